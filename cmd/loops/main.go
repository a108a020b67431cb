package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	cfg_hook "github.com/cozyartz/etchNFT/pkg/configs/hook"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kpg "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db/postgres"
	"github.com/cozyartz/etchNFT/pkg/utils/args"
	"github.com/cozyartz/etchNFT/pkg/utils/filewatch"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("ETCHNFT_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("ETCHNFT_SCHEMA"),
		"schema repository path. when set, the loop stops if the database schema is older than it.",
	)
	phooks := flag.String(
		"hooks", os.Getenv("ETCHNFT_HOOK_CONFIG"), "path to hook config file",
	)
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type (reconcile|expire|notify)")
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog|once).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as interval.`+
			` "backlog" = run until error or backlog is over.`+
			` "once" = run just one time.`,
	)
	flag.Parse()

	if !loopType.IsSet() {
		logger.Fatal("-type is required")
	}
	if !policy.IsSet() {
		policy.Set("forever:5s")
	}

	{
		watched := []string{*pconfig}
		if *phooks != "" {
			watched = append(watched, *phooks)
		}
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, watched...)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(server.LoadConfig(*pconfig)).OrFatal(logger)

	schemaRepo := *pSchemaRepo
	if schemaRepo == "" {
		schemaRepo = conf.SchemaRepository()
	}
	db := try.To(kpg.New(
		ctx, conf.Database(),
		kpg.WithSchemaRepository(schemaRepo),
		kpg.WithRetryPolicy(conf.Events()),
	)).OrFatal(logger)
	defer db.Close()

	{
		sctx, scancel := db.Schema().Context(ctx)
		defer scancel()
		ctx = sctx
	}

	hooks := cfg_hook.Config{}
	if hookPath := *phooks; hookPath != "" {
		hooks = try.To(cfg_hook.Load(hookPath)).OrFatal(logger)
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	err := StartLoop(
		ctx, logger, db,
		LoopManifest{
			Type:       loopType.Value(),
			Policy:     recurring.UntilError(policy.Value()),
			Hooks:      hooks,
			PendingTTL: conf.Orders().PendingTTL(),
		},
	)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// config updates and outdated schema end here. The supervisor restarts us.
		logger.Fatalf("loop stopped: %v (by %v)", err, context.Cause(ctx))
	default:
		logger.Fatal(err)
	}
}
