// Package events inspects the payment event inbox, and replays events which were given up.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/cheggaaa/pb/v3"
	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	"github.com/cozyartz/etchNFT/pkg/reconcile"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

const ARG_EVENT_ID = "EVENT_ID"

// pageSize is how many dead events are fetched at once by `replay --all-dead`.
const pageSize = 100

type Option struct {
	progressOutput io.Writer
}

func WithProgressOutput(w io.Writer) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOutput = w
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{progressOutput: os.Stderr}
	for _, opt := range options {
		option = opt(option)
	}

	list, err := flarc.NewCommand(
		"List payment events, newest first.",
		ListFlags{Limit: 50},
		flarc.Args{},
		common.NewTask(ListTask),
	)
	if err != nil {
		return nil, err
	}

	replay, err := flarc.NewCommand(
		"Put payment events back to the inbox.",
		ReplayFlags{},
		flarc.Args{
			{
				Name: ARG_EVENT_ID, Required: false, Repeatable: true,
				Help: "id of a dead or ignored payment event",
			},
		},
		common.NewTask(ReplayTask(option.progressOutput)),
		flarc.WithDescription(`
Events replayed are resolved again by the reconcile loop, with attempts reset.

Pass event ids, or --all-dead to replay every dead event.
`),
	)
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Inspect payment events from providers.",
		struct{}{},
		flarc.WithSubcommand("list", list),
		flarc.WithSubcommand("replay", replay),
	)
}

type ListFlags struct {
	State    string `flag:"state" metavar:"received|applied|ignored|dead" help:"list events only in the state"`
	Provider string `flag:"provider" metavar:"square|paypal|coinbase|wallet" help:"list events only from the provider"`
	OrderRef string `flag:"order-ref" help:"list events only referring the order or checkout"`
	Limit    int    `flag:"limit" help:"max number of events to be listed"`
}

func ListTask(
	ctx context.Context,
	logger *log.Logger,
	_ *server.Config,
	db kdb.Database,
	cl flarc.Commandline[ListFlags],
	_ []any,
) error {
	flags := cl.Flags()
	query := domain.EventFindQuery{OrderRef: flags.OrderRef, Limit: flags.Limit}
	if flags.State != "" {
		st, err := domain.AsEventState(flags.State)
		if err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}
		query.State = []domain.EventState{st}
	}
	if flags.Provider != "" {
		p, err := domain.AsProvider(flags.Provider)
		if err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}
		query.Provider = []domain.Provider{p}
	}
	if query.Limit <= 0 {
		return fmt.Errorf("%w: --limit should be positive", flarc.ErrUsage)
	}

	found, err := db.PaymentEvents().Find(ctx, query)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cl.Stdout())
	enc.SetIndent("", "    ")
	if err := enc.Encode(utils.Map(found, apiadmin.ComposePaymentEvent)); err != nil {
		logger.Panicf("fail to dump found events")
	}
	return nil
}

type ReplayFlags struct {
	AllDead bool `flag:"all-dead" help:"replay every dead event"`
}

const bar pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }}`

func ReplayTask(progressOutput io.Writer) common.Task[ReplayFlags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		_ *server.Config,
		db kdb.Database,
		cl flarc.Commandline[ReplayFlags],
		_ []any,
	) error {
		args := cl.Args()[ARG_EVENT_ID]
		allDead := cl.Flags().AllDead
		if (len(args) == 0) == !allDead {
			return fmt.Errorf("%w: pass event ids or --all-dead, not both", flarc.ErrUsage)
		}

		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: event id should be a number: %s", flarc.ErrUsage, a)
			}
			ids = append(ids, id)
		}
		if allDead {
			dead, err := deadEvents(ctx, db.PaymentEvents())
			if err != nil {
				return err
			}
			ids = dead
		}
		if len(ids) == 0 {
			logger.Println("no events to be replayed.")
			return nil
		}

		inbox := reconcile.New(db.PaymentEvents())
		progress := bar.New(len(ids))
		progress.SetWriter(progressOutput)
		progress.Set("prefix", "replaying:")
		progress.Start()

		failed := []error{}
		for _, id := range ids {
			if _, err := inbox.Requeue(ctx, id); err != nil {
				failed = append(failed, fmt.Errorf("event %d: %w", id, err))
			}
			progress.Increment()
		}
		progress.Finish()

		logger.Printf("%d of %d events are replayed.", len(ids)-len(failed), len(ids))
		return errors.Join(failed...)
	}
}

func deadEvents(ctx context.Context, events kpayment.PaymentEventInterface) ([]int64, error) {
	ids := []int64{}
	for offset := 0; ; offset += pageSize {
		page, err := events.Find(ctx, domain.EventFindQuery{
			State:  []domain.EventState{domain.EventDead},
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		for _, ev := range page {
			ids = append(ids, ev.Id)
		}
		if len(page) < pageSize {
			return ids, nil
		}
	}
}
