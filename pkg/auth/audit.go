package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/cozyartz/etchNFT/pkg/domain"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/utils/echoutil"
)

// Auditor records what admins did.
type Auditor struct {
	audit krbac.AuditInterface
}

func NewAuditor(audit krbac.AuditInterface) *Auditor {
	return &Auditor{audit: audit}
}

// Record writes an audit entry for the principal of c.
//
// Requests without principal are recorded with empty user id.
func (a *Auditor) Record(c echo.Context, action string, resource string, resourceId string, details map[string]any) error {
	userId := ""
	if p, ok := PrincipalOf(c); ok {
		userId = p.User.Id
	}
	return a.RecordFor(c, userId, action, resource, resourceId, details)
}

// RecordFor writes an audit entry for the user, like one just signed in.
func (a *Auditor) RecordFor(c echo.Context, userId string, action string, resource string, resourceId string, details map[string]any) error {
	req := c.Request()
	if err := a.audit.Record(req.Context(), domain.AuditEntry{
		UserId:     userId,
		Action:     action,
		Resource:   resource,
		ResourceId: resourceId,
		Details:    details,
		IPAddress:  echoutil.ClientIP(c),
		UserAgent:  req.UserAgent(),
	}); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
