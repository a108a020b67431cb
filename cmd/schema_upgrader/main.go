package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/youta-t/flarc"

	kpg "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db/postgres"
	kio "github.com/cozyartz/etchNFT/pkg/io"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

type Flag struct {
	Host     string `flag:"host" help:"The host of the database."`
	Port     int    `flag:"port" help:"The port of the database."`
	User     string `flag:"user" help:"The user of the database."`
	Password string `flag:"pass" help:"The password of the database."`
	Database string `flag:"database" help:"The name of the database."`

	Schema string `flag:"schema" help:"The path to the schema repository directory."`
}

const ARG_SCHEMA_DEST = "SCHEMA_DEST"

// databaseURL builds a connection string. Credentials are escaped.
func databaseURL(f Flag) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(f.User, f.Password),
		Host:   net.JoinHostPort(f.Host, strconv.Itoa(f.Port)),
		Path:   "/" + f.Database,
	}
	return u.String()
}

func upgrade(ctx context.Context, logger *log.Logger, c flarc.Commandline[Flag]) error {
	flags := c.Flags()
	if flags.Schema == "" {
		return fmt.Errorf("%w: --schema (or, envvar ETCHNFT_SCHEMA) is required", flarc.ErrUsage)
	}

	if dest := c.Args()[ARG_SCHEMA_DEST]; len(dest) != 0 {
		logger.Printf("copying schema files to %s...", dest[0])
		if err := kio.DirCopy(flags.Schema, dest[0]); err != nil {
			return err
		}
	}

	db, err := kpg.New(ctx, databaseURL(flags), kpg.WithSchemaRepository(flags.Schema))
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Println("upgrading schema...")
	if err := db.Schema().Upgrade(ctx); err != nil {
		return err
	}
	logger.Println("schema is up to date.")
	return nil
}

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := 5432
	if sp := os.Getenv("DB_PORT"); sp != "" {
		p, err := strconv.Atoi(sp)
		if err == nil {
			port = p
		}
	}

	cmd := try.To(flarc.NewCommand(
		"database schema upgrader of EtchNFT",
		Flag{
			Host:     os.Getenv("DB_HOST"),
			Port:     port,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_NAME"),

			Schema: os.Getenv("ETCHNFT_SCHEMA"),
		},
		flarc.Args{
			{
				Name: ARG_SCHEMA_DEST, Help: "The schema files are copied to this directory before upgrading.",
				Required: false, Repeatable: false,
			},
		},
		func(ctx context.Context, c flarc.Commandline[Flag], _ []any) error {
			return upgrade(ctx, logger, c)
		},
	)).OrFatal(logger)

	os.Exit(flarc.Run(ctx, cmd, flarc.WithHelp(true)))
}
