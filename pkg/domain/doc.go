package domain

// domain package contains the Domain Models and Interfaces for the EtchNFT storefront.
//
// `domain/etchnft` package exposes the root object of the application.
// Entrypoints should instantiate it and reach every repository through it.
//
// `domain/ENTITY.go` has the entities (Domain Model types) and their rules.
// For example, `domain/order.go` contains `Order` and the order status transition table.
//
// `domain/ENTITY/db` directory contains the database expression of the entity:
// the interface (`db/ENTITY.go`), the PostgreSQL implementation (`db/postgres`) and
// a call-logging mock for tests (`db/mock`).
//
// # Entities
//
// - `order`: one row per etched item. Orders created by one checkout share a checkout id.
// An order starts as "pending" and moves only along `CanTransit`.
//
// - `payment`: the inbox of payment events reported by providers (Square, PayPal,
// Coinbase Commerce). Events are recorded once per provider event id, and
// then applied onto orders by webhook handlers or by the "reconcile loop".
// Events which cannot be applied yet are retried with backoff, and given up as "dead".
//
// - `drop`: limited releases and their items. An item is reserved for a checkout and
// marked sold when its order is paid.
//
// - `rbac`: admin users, roles, permissions and the audit log.
//
// - `schema`: versions of the database schema.
//
// - `loop`: constants for background loops ("reconcile", "expire", "notify").
// Implementation of the loops is in `cmd/loops/tasks/`.
