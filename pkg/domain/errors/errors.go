package errors

import (
	"errors"
)

var (
	// ErrMissing is returned when the requested entity does not exist.
	ErrMissing = errors.New("missing")

	// ErrTooMuch is returned when a lookup expected to be unique matches several rows.
	ErrTooMuch = errors.New("too much")

	// ErrConflict is returned when an entity with the same identity already exists.
	ErrConflict = errors.New("conflict")

	// ErrInvalidOrderStateChanging is returned when a status write is not allowed
	// by the order transition table.
	ErrInvalidOrderStateChanging = errors.New("cannot change order state")

	// ErrSystemRole is returned on attempts to modify or delete a built-in role.
	ErrSystemRole = errors.New("system roles cannot be modified")

	// ErrRoleInUse is returned when a role still assigned to users is deleted.
	ErrRoleInUse = errors.New("role is assigned to users")

	// ErrNotEligible is returned when an order is outside of a cancel/refund window
	// or in a status which cannot be cancelled or refunded.
	ErrNotEligible = errors.New("not eligible")

	// ErrNotOwner is returned when a requester is not the owner of the order.
	ErrNotOwner = errors.New("not the owner of the order")

	// ErrNotPurchasable is returned when a drop item cannot be reserved.
	ErrNotPurchasable = errors.New("drop item is not purchasable")
)
