package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/logger"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	kpg "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db/postgres"
)

// Actor is recorded in audit logs as who made changes from the commandline.
const Actor = "etchctl"

type CommonFlags struct {
	Config string `flag:"config" alias:"c" metavar:"path" help:"path to the config file of etchd. Default: $ETCHNFT_CONFIG"`
}

func DefaultFlags() CommonFlags {
	return CommonFlags{Config: os.Getenv("ETCHNFT_CONFIG")}
}

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		return task(ctx, logger.For(cl.Stderr(), cl.Fullname()), commonFlag, cl, newpos)
	}
}

// Task is a body of a command working on the database of etchd.
type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	conf *server.Config,
	db kdb.Database,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask loads the config of etchd and connects its database, then runs task.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		if commonFlag.Config == "" {
			return fmt.Errorf("%w: --config or $ETCHNFT_CONFIG is required", flarc.ErrUsage)
		}
		conf, err := server.LoadConfig(commonFlag.Config)
		if err != nil {
			return fmt.Errorf("%w: failed to load config (%s)", err, commonFlag.Config)
		}

		db, err := kpg.New(ctx, conf.Database(), kpg.WithRetryPolicy(conf.Events()))
		if err != nil {
			return fmt.Errorf("%w: cannot connect to the database", err)
		}
		defer db.Close()

		return task(ctx, logger, conf, db, cl, params)
	})
}
