package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cozyartz/etchNFT/cmd/loops/hook"
	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	"github.com/cozyartz/etchNFT/cmd/loops/tasks/expire"
	"github.com/cozyartz/etchNFT/cmd/loops/tasks/notify"
	"github.com/cozyartz/etchNFT/cmd/loops/tasks/reconcile"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	cfg_hook "github.com/cozyartz/etchNFT/pkg/configs/hook"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	"github.com/cozyartz/etchNFT/pkg/loop"
)

// runTimeout bounds each run of a loop task.
const runTimeout = 30 * time.Second

// LoopManifest determines how a loop behaves.
type LoopManifest struct {
	Type domain.LoopType

	Policy recurring.Policy

	// lifecycle hooks for the notify loop.
	Hooks cfg_hook.Config

	// orders pending longer than this are failed by the expire loop.
	PendingTTL time.Duration
}

// prefixed is a logger writing where l does, with its own prefix.
func prefixed(l *log.Logger, loopType domain.LoopType) *log.Logger {
	return log.New(l.Writer(), fmt.Sprintf("[%s loop] ", loopType), l.Flags())
}

// monitor logs the start and the end of each run of the task.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	var runs uint64
	return func(ctx context.Context, value T) (ret T, next loop.Next) {
		runs += 1
		n, started := runs, time.Now()

		logger.Printf("run #%d starts", n)
		defer func() {
			logger.Printf("run #%d ends in %s: %s (value: %+v)", n, time.Since(started), next, ret)
		}()

		return task(ctx, value)
	}
}

// run drives task under the manifest's policy until the policy stops it.
func run[T any](ctx context.Context, logger *log.Logger, manifest LoopManifest, init T, task recurring.Task[T]) error {
	_, err := loop.Start(
		ctx, init,
		monitor(prefixed(logger, manifest.Type), task.Applied(manifest.Policy)),
		loop.WithTimeout(runTimeout),
	)
	return err
}

// StartLoop runs the loop named in the manifest until it ends.
func StartLoop(ctx context.Context, logger *log.Logger, db kdb.Database, manifest LoopManifest) error {
	switch manifest.Type {
	case domain.Reconcile:
		return run(
			ctx, logger, manifest,
			reconcile.Seed(), reconcile.Task(db.PaymentEvents()),
		)
	case domain.Expire:
		return run(
			ctx, logger, manifest,
			expire.Seed(manifest.PendingTTL), expire.Task(db.Orders(), db.Drops(), time.Now),
		)
	case domain.Notify:
		var lifecycle hook.Hook[apiorders.Notification, struct{}] = hook.None[apiorders.Notification, struct{}]{}
		if lc := manifest.Hooks.Lifecycle; 0 < len(lc.Before)+len(lc.After) {
			lifecycle = hook.Build[apiorders.Notification](
				lc, func(struct{}, struct{}) struct{} { return struct{}{} },
			)
		}
		return run(
			ctx, logger, manifest,
			notify.Seed(), notify.Task(db.Orders(), lifecycle, time.Now),
		)
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownLoopType, manifest.Type)
}
