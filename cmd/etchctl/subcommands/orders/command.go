// Package orders runs maintenance of orders from the commandline.
package orders

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	"github.com/cozyartz/etchNFT/cmd/loops/tasks/expire"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	"github.com/cozyartz/etchNFT/pkg/loop"
)

type Option struct {
	progressOutput io.Writer
	clock          func() time.Time
}

func WithProgressOutput(w io.Writer) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOutput = w
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{progressOutput: os.Stderr, clock: time.Now}
	for _, opt := range options {
		option = opt(option)
	}

	expireCmd, err := flarc.NewCommand(
		"Fail abandoned checkouts and release expired reservations now.",
		ExpireFlags{},
		flarc.Args{},
		common.NewTask(ExpireTask(option.progressOutput, option.clock)),
		flarc.WithDescription(`
Orders left pending longer than --pending-ttl are failed,
and reservations of drop items past their expiry are released.

This does what the expire loop does, until no backlog is left.
`),
	)
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Maintain orders.",
		struct{}{},
		flarc.WithSubcommand("expire", expireCmd),
	)
}

type ExpireFlags struct {
	PendingTTL time.Duration `flag:"pending-ttl" help:"orders pending longer than this are abandoned. Default: orders.pendingTTL in config"`
}

const counter pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }}`

func ExpireTask(progressOutput io.Writer, clock func() time.Time) common.Task[ExpireFlags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		conf *server.Config,
		db kdb.Database,
		cl flarc.Commandline[ExpireFlags],
		_ []any,
	) error {
		ttl := cl.Flags().PendingTTL
		if ttl <= 0 {
			ttl = conf.Orders().PendingTTL()
		}

		progress := counter.New(-1)
		progress.SetWriter(progressOutput)
		progress.Set("prefix", "expiring:")
		progress.Start()

		task := expire.Task(db.Orders(), db.Drops(), clock)
		counted := recurring.Task[domain.OrderCursor](
			func(ctx context.Context, cursor domain.OrderCursor) (domain.OrderCursor, bool, error) {
				next, picked, err := task(ctx, cursor)
				if picked {
					progress.Increment()
				}
				return next, picked, err
			},
		)

		_, err := loop.Start(
			ctx, expire.Seed(ttl),
			counted.Applied(recurring.UntilError(recurring.Backlog())),
		)
		progress.Finish()
		if err != nil {
			return err
		}
		logger.Printf("expiry is done in %d rounds.", progress.Current())
		return nil
	}
}
