// Package users manages admin users and their roles from the commandline.
//
// It is the way to register the first administrator, before anyone can sign in.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

const (
	ARG_EMAIL   = "EMAIL"
	ARG_ROLE_ID = "ROLE_ID"
)

func New() (flarc.Command, error) {
	list, err := flarc.NewCommand(
		"List admin users with their roles.",
		ListFlags{},
		flarc.Args{},
		common.NewTask(ListTask),
	)
	if err != nil {
		return nil, err
	}

	grant, err := flarc.NewCommand(
		"Grant a role to an admin user.",
		GrantFlags{},
		flarc.Args{
			{Name: ARG_EMAIL, Required: true, Help: "email address of the user"},
			{Name: ARG_ROLE_ID, Required: true, Help: "role to be granted, like role_super_admin"},
		},
		common.NewTask(GrantTask),
		flarc.WithDescription(`
Grant a role to the user with the email address.

When the user is not registered yet, the user is registered with the email.
The user can sign in with a GitHub account having the same email address.
`),
	)
	if err != nil {
		return nil, err
	}

	revoke, err := flarc.NewCommand(
		"Revoke a role from an admin user.",
		struct{}{},
		flarc.Args{
			{Name: ARG_EMAIL, Required: true, Help: "email address of the user"},
			{Name: ARG_ROLE_ID, Required: true, Help: "role to be revoked"},
		},
		common.NewTask(RevokeTask),
	)
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage admin users of EtchNFT.",
		struct{}{},
		flarc.WithSubcommand("list", list),
		flarc.WithSubcommand("grant", grant),
		flarc.WithSubcommand("revoke", revoke),
	)
}

type ListFlags struct {
	Status string `flag:"status" metavar:"active|inactive|suspended" help:"list users only in the status"`
}

func ListTask(
	ctx context.Context,
	logger *log.Logger,
	_ *server.Config,
	db kdb.Database,
	cl flarc.Commandline[ListFlags],
	_ []any,
) error {
	var status domain.UserStatus
	if s := cl.Flags().Status; s != "" {
		st, err := domain.AsUserStatus(s)
		if err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}
		status = st
	}

	users, err := db.RBAC().Users(ctx)
	if err != nil {
		return err
	}
	if status != "" {
		users = utils.Filter(users, func(u domain.User) bool { return u.Status == status })
	}

	enc := json.NewEncoder(cl.Stdout())
	enc.SetIndent("", "    ")
	if err := enc.Encode(utils.Map(users, apiadmin.ComposeUser)); err != nil {
		logger.Panicf("fail to dump found users")
	}
	return nil
}

type GrantFlags struct {
	Name string `flag:"name" help:"name of the user, used when the user is registered by this command"`
}

func GrantTask(
	ctx context.Context,
	logger *log.Logger,
	_ *server.Config,
	db kdb.Database,
	cl flarc.Commandline[GrantFlags],
	_ []any,
) error {
	email := strings.TrimSpace(cl.Args()[ARG_EMAIL][0])
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address: %s", flarc.ErrUsage, email)
	}
	roleId := cl.Args()[ARG_ROLE_ID][0]

	rbac := db.RBAC()
	if _, err := rbac.Role(ctx, roleId); err != nil {
		if errors.Is(err, kerr.ErrMissing) {
			return fmt.Errorf("role %s is not found", roleId)
		}
		return err
	}

	user, found, err := findUser(ctx, rbac, email)
	if err != nil {
		return err
	}
	if !found {
		user, err = rbac.CreateUser(ctx, email, cl.Flags().Name)
		if err != nil {
			return err
		}
		logger.Printf("user %s is registered as %s", email, user.Id)
		record(ctx, logger, db.Audit(), "create", user.Id, map[string]any{"email": email})
	}

	if err := rbac.Grant(ctx, user.Id, roleId, common.Actor); err != nil {
		return err
	}
	record(ctx, logger, db.Audit(), "grant", user.Id, map[string]any{"roleId": roleId})
	logger.Printf("%s is granted to %s", roleId, email)
	return nil
}

func RevokeTask(
	ctx context.Context,
	logger *log.Logger,
	_ *server.Config,
	db kdb.Database,
	cl flarc.Commandline[struct{}],
	_ []any,
) error {
	email := strings.TrimSpace(cl.Args()[ARG_EMAIL][0])
	roleId := cl.Args()[ARG_ROLE_ID][0]

	rbac := db.RBAC()
	user, found, err := findUser(ctx, rbac, email)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("user %s is not found", email)
	}

	if err := rbac.Revoke(ctx, user.Id, roleId); err != nil {
		return err
	}
	record(ctx, logger, db.Audit(), "revoke", user.Id, map[string]any{"roleId": roleId})
	logger.Printf("%s is revoked from %s", roleId, email)
	return nil
}

func findUser(ctx context.Context, rbac krbac.RBACInterface, email string) (domain.User, bool, error) {
	users, err := rbac.Users(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	u, ok := utils.First(users, func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
	return u, ok, nil
}

// record writes an audit entry. Failures are logged, not returned: the change is already done.
func record(ctx context.Context, logger *log.Logger, audit krbac.AuditInterface, action string, userId string, details map[string]any) {
	details["by"] = common.Actor
	err := audit.Record(ctx, domain.AuditEntry{
		Action:     action,
		Resource:   "users",
		ResourceId: userId,
		Details:    details,
	})
	if err != nil {
		logger.Printf("failed to record audit log (%s %s): %s", action, userId, err)
	}
}
