package main

import (
	"context"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	subevents "github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/events"
	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/logger"
	suborders "github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/orders"
	substats "github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/stats"
	subusers "github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/users"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.For(os.Stderr, name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	users := try.To(subusers.New()).OrFatal(logger)
	events := try.To(subevents.New()).OrFatal(logger)
	orders := try.To(suborders.New()).OrFatal(logger)
	stats := try.To(substats.New()).OrFatal(logger)

	etchctl := try.To(
		flarc.NewCommandGroup(
			"EtchNFT operation tool",
			common.DefaultFlags(),
			flarc.WithSubcommand("users", users),
			flarc.WithSubcommand("events", events),
			flarc.WithSubcommand("orders", orders),
			flarc.WithSubcommand("stats", stats),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, etchctl, flarc.WithHelp(true)))
}
