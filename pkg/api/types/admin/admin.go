package admin

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/utils"
	"github.com/cozyartz/etchNFT/pkg/utils/rfctime"
)

type Permission struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

func ComposePermission(p domain.Permission) Permission {
	return Permission(p)
}

type Role struct {
	Id          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	System      bool            `json:"isSystemRole"`
	Permissions []Permission    `json:"permissions"`
	CreatedAt   rfctime.RFC3339 `json:"createdAt"`
	UpdatedAt   rfctime.RFC3339 `json:"updatedAt"`
}

func ComposeRole(r domain.Role) Role {
	return Role{
		Id:          r.Id,
		Name:        r.Name,
		Description: r.Description,
		System:      r.System,
		Permissions: utils.Map(r.Permissions, ComposePermission),
		CreatedAt:   rfctime.RFC3339(r.CreatedAt),
		UpdatedAt:   rfctime.RFC3339(r.UpdatedAt),
	}
}

// RoleSpec is the body to create a role, or to update it partially.
//
// Permissions are written as "RESOURCE.ACTION".
type RoleSpec struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

// Change converts the spec into a role change.
func (s RoleSpec) Change() (domain.RoleChange, error) {
	change := domain.RoleChange{Name: s.Name, Description: s.Description}
	if s.Permissions != nil {
		ps, err := utils.MapUntilError(*s.Permissions, domain.ParsePermission)
		if err != nil {
			return domain.RoleChange{}, err
		}
		change.Permissions = &ps
	}
	return change, nil
}

type User struct {
	Id        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name,omitempty"`
	GithubId  string           `json:"githubId,omitempty"`
	AvatarURL string           `json:"avatarUrl,omitempty"`
	Status    string           `json:"status"`
	LastLogin *rfctime.RFC3339 `json:"lastLogin,omitempty"`
	CreatedAt rfctime.RFC3339  `json:"createdAt"`
	Roles     []Role           `json:"roles"`
}

func ComposeUser(u domain.User) User {
	var last *rfctime.RFC3339
	if u.LastLogin != nil {
		t := rfctime.RFC3339(*u.LastLogin)
		last = &t
	}
	return User{
		Id:        u.Id,
		Email:     u.Email,
		Name:      u.Name,
		GithubId:  u.GithubId,
		AvatarURL: u.AvatarURL,
		Status:    string(u.Status),
		LastLogin: last,
		CreatedAt: rfctime.RFC3339(u.CreatedAt),
		Roles:     utils.Map(u.Roles, ComposeRole),
	}
}

// Me is the signed in admin with permissions.
type Me struct {
	User
	Permissions []string `json:"permissions"`
}

type NewUser struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type UserStatus struct {
	Status string `json:"status"`
}

type Grant struct {
	RoleId string `json:"roleId"`
}

type AuditEntry struct {
	Id         int64           `json:"id"`
	UserId     string          `json:"userId,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resourceType"`
	ResourceId string          `json:"resourceId,omitempty"`
	Details    map[string]any  `json:"details,omitempty"`
	IPAddress  string          `json:"ipAddress,omitempty"`
	UserAgent  string          `json:"userAgent,omitempty"`
	CreatedAt  rfctime.RFC3339 `json:"createdAt"`
}

func ComposeAuditEntry(e domain.AuditEntry) AuditEntry {
	return AuditEntry{
		Id:         e.Id,
		UserId:     e.UserId,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceId: e.ResourceId,
		Details:    e.Details,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  rfctime.RFC3339(e.CreatedAt),
	}
}

type AuditPage struct {
	Entries []AuditEntry `json:"logs"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"hasMore"`
}

type PaymentEvent struct {
	Id          int64            `json:"id"`
	Provider    string           `json:"provider"`
	EventId     string           `json:"eventId"`
	EventType   string           `json:"eventType"`
	Signal      string           `json:"signal"`
	OrderRef    string           `json:"orderRef"`
	PaymentRef  string           `json:"paymentRef,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	State       string           `json:"state"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"lastError,omitempty"`
	NextAttempt rfctime.RFC3339  `json:"nextAttemptAt"`
	ReceivedAt  rfctime.RFC3339  `json:"receivedAt"`
	ProcessedAt *rfctime.RFC3339 `json:"processedAt,omitempty"`
	Payload     json.RawMessage  `json:"payload,omitempty"`
}

func ComposePaymentEvent(ev domain.PaymentEvent) PaymentEvent {
	var processed *rfctime.RFC3339
	if ev.ProcessedAt != nil {
		t := rfctime.RFC3339(*ev.ProcessedAt)
		processed = &t
	}
	return PaymentEvent{
		Id:          ev.Id,
		Provider:    ev.Provider.String(),
		EventId:     ev.EventId,
		EventType:   ev.EventType,
		Signal:      ev.Signal.String(),
		OrderRef:    ev.OrderRef,
		PaymentRef:  ev.PaymentRef,
		Amount:      ev.Amount,
		State:       ev.State.String(),
		Attempts:    ev.Attempts,
		LastError:   ev.LastError,
		NextAttempt: rfctime.RFC3339(ev.NextAttemptAt),
		ReceivedAt:  rfctime.RFC3339(ev.ReceivedAt),
		ProcessedAt: processed,
		Payload:     ev.Payload,
	}
}
