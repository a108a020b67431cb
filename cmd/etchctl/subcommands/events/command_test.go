package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/events"
	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/internal/commandline"
	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/logger"
	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db/mock"
)

func TestListTask(t *testing.T) {
	t.Run("it finds events with the filter", func(t *testing.T) {
		db := dbmock.New()
		db.MockPaymentEvents.Impl.Find = func(context.Context, domain.EventFindQuery) ([]domain.PaymentEvent, error) {
			return []domain.PaymentEvent{
				{Id: 3, State: domain.EventDead, NewPaymentEvent: domain.NewPaymentEvent{Provider: domain.Square, EventId: "evt-3"}},
			}, nil
		}

		stdout := new(strings.Builder)
		err := events.ListTask(
			context.Background(), logger.Null(), nil, db,
			commandline.MockCommandline[events.ListFlags]{
				Stdout_: stdout,
				Flags_:  events.ListFlags{State: "dead", Provider: "square", OrderRef: "ord-1", Limit: 20},
			},
			nil,
		)
		if err != nil {
			t.Fatal(err)
		}

		q := db.MockPaymentEvents.Calls.Find.Last()
		if len(q.State) != 1 || q.State[0] != domain.EventDead ||
			len(q.Provider) != 1 || q.Provider[0] != domain.Square ||
			q.OrderRef != "ord-1" || q.Limit != 20 {
			t.Errorf("unexpected query: %+v", q)
		}

		got := []apiadmin.PaymentEvent{}
		if err := json.Unmarshal([]byte(stdout.String()), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].EventId != "evt-3" || got[0].State != "dead" {
			t.Errorf("unexpected output: %+v", got)
		}
	})

	for name, flags := range map[string]events.ListFlags{
		"unknown state":    {State: "lost", Limit: 1},
		"unknown provider": {Provider: "stripe", Limit: 1},
		"zero limit":       {},
	} {
		t.Run(name+" is usage error", func(t *testing.T) {
			err := events.ListTask(
				context.Background(), logger.Null(), nil, dbmock.New(),
				commandline.MockCommandline[events.ListFlags]{Flags_: flags},
				nil,
			)
			if !errors.Is(err, flarc.ErrUsage) {
				t.Errorf("expected ErrUsage, got %v", err)
			}
		})
	}
}

func TestReplayTask(t *testing.T) {
	requeueing := func(db *dbmock.Database, missing ...int64) {
		db.MockPaymentEvents.Impl.Requeue = func(_ context.Context, id int64) (domain.PaymentEvent, error) {
			for _, m := range missing {
				if m == id {
					return domain.PaymentEvent{}, kerr.ErrMissing
				}
			}
			return domain.PaymentEvent{Id: id, State: domain.EventReceived}, nil
		}
	}

	t.Run("it replays given events", func(t *testing.T) {
		db := dbmock.New()
		requeueing(db)

		err := events.ReplayTask(io.Discard)(
			context.Background(), logger.Null(), nil, db,
			commandline.MockCommandline[events.ReplayFlags]{
				Args_: map[string][]string{events.ARG_EVENT_ID: {"4", "7"}},
			},
			nil,
		)
		if err != nil {
			t.Fatal(err)
		}
		calls := db.MockPaymentEvents.Calls.Requeue
		if len(calls) != 2 || calls[0] != 4 || calls[1] != 7 {
			t.Errorf("requeued: %v", calls)
		}
	})

	t.Run("it replays all dead events page by page", func(t *testing.T) {
		db := dbmock.New()
		requeueing(db)
		db.MockPaymentEvents.Impl.Find = func(_ context.Context, q domain.EventFindQuery) ([]domain.PaymentEvent, error) {
			if len(q.State) != 1 || q.State[0] != domain.EventDead {
				t.Errorf("unexpected query: %+v", q)
			}
			page := []domain.PaymentEvent{}
			for i := q.Offset; i < q.Offset+q.Limit && i < 150; i++ {
				page = append(page, domain.PaymentEvent{Id: int64(i + 1)})
			}
			return page, nil
		}

		err := events.ReplayTask(io.Discard)(
			context.Background(), logger.Null(), nil, db,
			commandline.MockCommandline[events.ReplayFlags]{Flags_: events.ReplayFlags{AllDead: true}},
			nil,
		)
		if err != nil {
			t.Fatal(err)
		}
		if got := db.MockPaymentEvents.Calls.Find.Times(); got != 2 {
			t.Errorf("found %d times", got)
		}
		if got := db.MockPaymentEvents.Calls.Requeue.Times(); got != 150 {
			t.Errorf("requeued %d events", got)
		}
	})

	t.Run("failures are reported after trying all", func(t *testing.T) {
		db := dbmock.New()
		requeueing(db, 5)

		err := events.ReplayTask(io.Discard)(
			context.Background(), logger.Null(), nil, db,
			commandline.MockCommandline[events.ReplayFlags]{
				Args_: map[string][]string{events.ARG_EVENT_ID: {"5", "6"}},
			},
			nil,
		)
		if !errors.Is(err, kerr.ErrMissing) {
			t.Errorf("expected ErrMissing, got %v", err)
		}
		if got := db.MockPaymentEvents.Calls.Requeue.Times(); got != 2 {
			t.Errorf("requeued %d events", got)
		}
	})

	for name, cl := range map[string]commandline.MockCommandline[events.ReplayFlags]{
		"no targets": {},
		"both ids and --all-dead": {
			Flags_: events.ReplayFlags{AllDead: true},
			Args_:  map[string][]string{events.ARG_EVENT_ID: {"1"}},
		},
		"non numeric id": {
			Args_: map[string][]string{events.ARG_EVENT_ID: {"evt-1"}},
		},
	} {
		t.Run(fmt.Sprintf("%s is usage error", name), func(t *testing.T) {
			db := dbmock.New()
			err := events.ReplayTask(io.Discard)(context.Background(), logger.Null(), nil, db, cl, nil)
			if !errors.Is(err, flarc.ErrUsage) {
				t.Errorf("expected ErrUsage, got %v", err)
			}
			if db.MockPaymentEvents.Calls.Requeue.Times() != 0 {
				t.Error("nothing should be requeued")
			}
		})
	}
}
