package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	pgerrors "github.com/cozyartz/etchNFT/pkg/domain/errors/dberrors/postgres"
	pgshared "github.com/cozyartz/etchNFT/pkg/domain/internal/db/postgres"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgRBAC struct {
	pool kpool.Pool
}

var _ kdb.RBACInterface = &pgRBAC{}

func New(pool kpool.Pool) *pgRBAC {
	return &pgRBAC{pool: pool}
}

func (r *pgRBAC) Permissions(ctx context.Context) ([]domain.Permission, error) {
	rows, err := r.pool.Query(
		ctx,
		`select "resource", "action", "description" from "permission" order by "resource", "action"`,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := []domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.Resource, &p.Action, &p.Description); err != nil {
			return nil, xe.Wrap(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}

// roles reads roles by ids, with their permissions. All roles if ids is nil.
func roles(ctx context.Context, q kpool.Queryer, ids []string) ([]domain.Role, error) {
	rows, err := q.Query(
		ctx,
		`
		select
			"r"."id", "r"."name", "r"."description", "r"."is_system", "r"."created_at", "r"."updated_at",
			"p"."resource", "p"."action", "p"."description"
		from "role" as "r"
		left join "role_permission" as "rp" on "rp"."role_id" = "r"."id"
		left join "permission" as "p" on ("p"."resource", "p"."action") = ("rp"."resource", "rp"."action")
		where $1::varchar[] is null or "r"."id" = any($1::varchar[])
		order by "r"."is_system" desc, "r"."name", "p"."resource", "p"."action"
		`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Role{}
	index := map[string]int{}
	for rows.Next() {
		var role domain.Role
		var resource, action, description pgtype.Text
		if err := rows.Scan(
			&role.Id, &role.Name, &role.Description, &role.System, &role.CreatedAt, &role.UpdatedAt,
			&resource, &action, &description,
		); err != nil {
			return nil, err
		}
		i, ok := index[role.Id]
		if !ok {
			role.Permissions = []domain.Permission{}
			result = append(result, role)
			i = len(result) - 1
			index[role.Id] = i
		}
		if resource.Status == pgtype.Present {
			result[i].Permissions = append(result[i].Permissions, domain.Permission{
				Resource: resource.String, Action: action.String, Description: description.String,
			})
		}
	}
	return result, rows.Err()
}

func (r *pgRBAC) Roles(ctx context.Context) ([]domain.Role, error) {
	rs, err := roles(ctx, r.pool, nil)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return rs, nil
}

func (r *pgRBAC) Role(ctx context.Context, id string) (domain.Role, error) {
	rs, err := roles(ctx, r.pool, []string{id})
	if err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	if len(rs) == 0 {
		return domain.Role{}, xe.Wrap(pgerrors.NewMissing("role", id))
	}
	return rs[0], nil
}

func setPermissions(ctx context.Context, tx kpool.Tx, roleId string, permissions []domain.Permission) error {
	if _, err := tx.Exec(ctx, `delete from "role_permission" where "role_id" = $1`, roleId); err != nil {
		return err
	}
	for _, p := range permissions {
		if _, err := tx.Exec(
			ctx,
			`insert into "role_permission" ("role_id", "resource", "action") values ($1, $2, $3)`,
			roleId, p.Resource, p.Action,
		); err != nil {
			if pgerrors.IsForeignKeyViolation(err) {
				return pgerrors.NewMissing("permission", p.String())
			}
			if pgerrors.IsUniqueViolation(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func (r *pgRBAC) CreateRole(
	ctx context.Context, name string, description string, permissions []domain.Permission,
) (domain.Role, error) {
	id := domain.RoleId(name)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		`insert into "role" ("id", "name", "description") values ($1, $2, $3)`,
		id, name, description,
	); err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.Role{}, xe.Wrap(pgerrors.NewConflict("role", id, err))
		}
		return domain.Role{}, xe.Wrap(err)
	}
	if err := setPermissions(ctx, tx, id, permissions); err != nil {
		return domain.Role{}, xe.Wrap(err)
	}

	rs, err := roles(ctx, tx, []string{id})
	if err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	return rs[0], nil
}

// lockRole locks a role which is not a system role.
func lockRole(ctx context.Context, tx kpool.Tx, id string) error {
	var system bool
	err := tx.QueryRow(
		ctx, `select "is_system" from "role" where "id" = $1 for update`, id,
	).Scan(&system)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgerrors.NewMissing("role", id)
	} else if err != nil {
		return err
	}
	if system {
		return fmt.Errorf("%w: %s", domerr.ErrSystemRole, id)
	}
	return nil
}

func (r *pgRBAC) UpdateRole(ctx context.Context, id string, change domain.RoleChange) (domain.Role, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if err := lockRole(ctx, tx, id); err != nil {
		return domain.Role{}, xe.Wrap(err)
	}

	if change.Name != nil || change.Description != nil {
		name := pgtype.Text{Status: pgtype.Null}
		if change.Name != nil {
			name = pgtype.Text{String: *change.Name, Status: pgtype.Present}
		}
		desc := pgtype.Text{Status: pgtype.Null}
		if change.Description != nil {
			desc = pgtype.Text{String: *change.Description, Status: pgtype.Present}
		}
		if _, err := tx.Exec(
			ctx,
			`
			update "role"
			set
				"name" = coalesce($2::varchar, "name"),
				"description" = coalesce($3::text, "description"),
				"updated_at" = now()
			where "id" = $1
			`,
			id, name, desc,
		); err != nil {
			if pgerrors.IsUniqueViolation(err) {
				return domain.Role{}, xe.Wrap(pgerrors.NewConflict("role", "name="+name.String, err))
			}
			return domain.Role{}, xe.Wrap(err)
		}
	}
	if change.Permissions != nil {
		if err := setPermissions(ctx, tx, id, *change.Permissions); err != nil {
			return domain.Role{}, xe.Wrap(err)
		}
		if _, err := tx.Exec(ctx, `update "role" set "updated_at" = now() where "id" = $1`, id); err != nil {
			return domain.Role{}, xe.Wrap(err)
		}
	}

	rs, err := roles(ctx, tx, []string{id})
	if err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Role{}, xe.Wrap(err)
	}
	return rs[0], nil
}

func (r *pgRBAC) DeleteRole(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if err := lockRole(ctx, tx, id); err != nil {
		return xe.Wrap(err)
	}

	var users int
	if err := tx.QueryRow(
		ctx, `select count(*) from "user_role" where "role_id" = $1`, id,
	).Scan(&users); err != nil {
		return xe.Wrap(err)
	}
	if 0 < users {
		return xe.Wrap(fmt.Errorf("%w: %s is granted to %d users", domerr.ErrRoleInUse, id, users))
	}

	if _, err := tx.Exec(ctx, `delete from "role" where "id" = $1`, id); err != nil {
		return xe.Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

const userColumns = `
	"u"."id", "u"."email", "u"."name", "u"."github_id", "u"."avatar_url",
	"u"."status", "u"."last_login", "u"."created_at"
`

func scanUser(row pgshared.RowScanner) (domain.User, error) {
	var u domain.User
	var githubId pgtype.Text
	var status string
	var lastLogin pgtype.Timestamptz
	if err := row.Scan(
		&u.Id, &u.Email, &u.Name, &githubId, &u.AvatarURL,
		&status, &lastLogin, &u.CreatedAt,
	); err != nil {
		return domain.User{}, err
	}
	var err error
	if u.Status, err = domain.AsUserStatus(status); err != nil {
		return domain.User{}, err
	}
	if githubId.Status == pgtype.Present {
		u.GithubId = githubId.String
	}
	if lastLogin.Status == pgtype.Present {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

// users reads users by ids, with their roles. All users if ids is nil.
func users(ctx context.Context, q kpool.Queryer, ids []string) ([]domain.User, error) {
	rows, err := q.Query(
		ctx,
		`
		select `+userColumns+` from "users" as "u"
		where $1::varchar[] is null or "u"."id" = any($1::varchar[])
		order by "u"."email"
		`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	userIds := []string{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.Roles = []domain.Role{}
		result = append(result, u)
		userIds = append(userIds, u.Id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	grants := map[string][]string{}
	roleIds := []string{}
	{
		rows, err := q.Query(
			ctx,
			`select "user_id", "role_id" from "user_role" where "user_id" = any($1) order by "role_id"`,
			userIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var uid, rid string
			if err := rows.Scan(&uid, &rid); err != nil {
				return nil, err
			}
			grants[uid] = append(grants[uid], rid)
			roleIds = append(roleIds, rid)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	if len(roleIds) == 0 {
		return result, nil
	}

	rs, err := roles(ctx, q, roleIds)
	if err != nil {
		return nil, err
	}
	byId := map[string]domain.Role{}
	for _, role := range rs {
		byId[role.Id] = role
	}
	for i := range result {
		for _, rid := range grants[result[i].Id] {
			result[i].Roles = append(result[i].Roles, byId[rid])
		}
	}
	return result, nil
}

func (r *pgRBAC) Users(ctx context.Context) ([]domain.User, error) {
	us, err := users(ctx, r.pool, nil)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return us, nil
}

func (r *pgRBAC) User(ctx context.Context, id string) (domain.User, error) {
	us, err := users(ctx, r.pool, []string{id})
	if err != nil {
		return domain.User{}, xe.Wrap(err)
	}
	if len(us) == 0 {
		return domain.User{}, xe.Wrap(pgerrors.NewMissing("users", id))
	}
	return us[0], nil
}

func (r *pgRBAC) CreateUser(ctx context.Context, email string, name string) (domain.User, error) {
	id := "user_" + uuid.NewString()
	if _, err := r.pool.Exec(
		ctx,
		`insert into "users" ("id", "email", "name") values ($1, lower($2), $3)`,
		id, email, name,
	); err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.User{}, xe.Wrap(pgerrors.NewConflict("users", "email="+email, err))
		}
		return domain.User{}, xe.Wrap(err)
	}
	return r.User(ctx, id)
}

func (r *pgRBAC) SetUserStatus(ctx context.Context, id string, status domain.UserStatus) (domain.User, error) {
	ctag, err := r.pool.Exec(ctx, `update "users" set "status" = $2 where "id" = $1`, id, string(status))
	if err != nil {
		return domain.User{}, xe.Wrap(err)
	}
	if ctag.RowsAffected() == 0 {
		return domain.User{}, xe.Wrap(pgerrors.NewMissing("users", id))
	}
	return r.User(ctx, id)
}

func (r *pgRBAC) Login(ctx context.Context, profile domain.GithubProfile) (domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.User{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(
		ctx,
		`
		select "id" from "users"
		where "github_id" = $1 or ("github_id" is null and "email" = lower($2))
		order by "github_id" is null
		limit 1
		for update
		`,
		profile.Id, profile.Email,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, xe.Wrap(pgerrors.NewMissing("users", "github:"+profile.Login))
	} else if err != nil {
		return domain.User{}, xe.Wrap(err)
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "users"
		set
			"github_id" = $2,
			"name" = case when "name" = '' then $3 else "name" end,
			"avatar_url" = $4,
			"last_login" = now()
		where "id" = $1
		`,
		id, profile.Id, profile.Name, profile.AvatarURL,
	); err != nil {
		return domain.User{}, xe.Wrap(err)
	}

	us, err := users(ctx, tx, []string{id})
	if err != nil {
		return domain.User{}, xe.Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, xe.Wrap(err)
	}
	return us[0], nil
}

func (r *pgRBAC) Grant(ctx context.Context, userId string, roleId string, grantedBy string) error {
	if _, err := r.pool.Exec(
		ctx,
		`
		insert into "user_role" ("user_id", "role_id", "granted_by") values ($1, $2, $3)
		on conflict do nothing
		`,
		userId, roleId, grantedBy,
	); err != nil {
		if pgerrors.IsForeignKeyViolation(err) {
			return xe.Wrap(pgerrors.NewMissing("users or role", userId+", "+roleId))
		}
		return xe.Wrap(err)
	}
	return nil
}

func (r *pgRBAC) Revoke(ctx context.Context, userId string, roleId string) error {
	if _, err := r.pool.Exec(
		ctx, `delete from "user_role" where "user_id" = $1 and "role_id" = $2`, userId, roleId,
	); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (r *pgRBAC) PermissionsOf(ctx context.Context, userId string) (domain.PermissionSet, error) {
	rows, err := r.pool.Query(
		ctx,
		`
		select distinct "rp"."resource", "rp"."action"
		from "users" as "u"
		inner join "user_role" as "ur" on "ur"."user_id" = "u"."id"
		inner join "role_permission" as "rp" on "rp"."role_id" = "ur"."role_id"
		where "u"."id" = $1 and "u"."status" = 'active'
		`,
		userId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ps := []domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, xe.Wrap(err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return domain.NewPermissionSet(ps...), nil
}
