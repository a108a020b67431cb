package postgres

import (
	"errors"
	"fmt"

	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// requested row is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return domerr.ErrMissing
}

// requested row is found too much.
type TooMuch struct {
	Table    string
	Identity string
	Expected int
}

var _ error = TooMuch{}

func (t TooMuch) Error() string {
	return fmt.Sprintf(
		"%s is found in %s more than %d times",
		t.Identity, t.Table, t.Expected,
	)
}

func (t TooMuch) Unwrap() error {
	return domerr.ErrTooMuch
}

// row to be inserted collides with an existing one.
type Conflict struct {
	Table    string
	Identity string
	Cause    error
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s already exists in %s", c.Identity, c.Table)
}

func (c Conflict) Unwrap() []error {
	return []error{domerr.ErrConflict, c.Cause}
}

// IsUniqueViolation reports whether err is caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return false
	}
	return pgerr.Code == pgerrcode.UniqueViolation
}

// IsForeignKeyViolation reports whether err is caused by a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return false
	}
	return pgerr.Code == pgerrcode.ForeignKeyViolation
}

func NewMissing(table, identity string) error {
	return Missing{Table: table, Identity: identity}
}

func NewConflict(table, identity string, cause error) error {
	return Conflict{Table: table, Identity: identity, Cause: cause}
}
