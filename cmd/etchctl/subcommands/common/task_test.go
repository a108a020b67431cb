package common_test

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/youta-t/flarc"

	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/common"
	"github.com/cozyartz/etchNFT/cmd/etchctl/subcommands/internal/commandline"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
)

func TestNewTaskWithCommonFlag(t *testing.T) {
	t.Run("it passes common flags apart from other params", func(t *testing.T) {
		called := false
		task := common.NewTaskWithCommonFlag(func(
			_ context.Context, logger *log.Logger, cf common.CommonFlags,
			_ flarc.Commandline[struct{}], params []any,
		) error {
			called = true
			if cf.Config != "/etc/etchnft/config.yaml" {
				t.Errorf("config = %s", cf.Config)
			}
			if len(params) != 1 || params[0] != "other" {
				t.Errorf("params = %v", params)
			}
			if !strings.HasPrefix(logger.Prefix(), "[etchctl users list]") {
				t.Errorf("logger prefix = %s", logger.Prefix())
			}
			return nil
		})

		stderr := new(strings.Builder)
		err := task(
			context.Background(),
			commandline.MockCommandline[struct{}]{Fullname_: "etchctl users list", Stderr_: stderr},
			[]any{common.CommonFlags{Config: "/etc/etchnft/config.yaml"}, "other"},
		)
		if err != nil {
			t.Fatal(err)
		}
		if !called {
			t.Error("task is not called")
		}
	})

	t.Run("missing common flags is an error", func(t *testing.T) {
		task := common.NewTaskWithCommonFlag(func(
			context.Context, *log.Logger, common.CommonFlags, flarc.Commandline[struct{}], []any,
		) error {
			t.Error("task should not be called")
			return nil
		})
		err := task(
			context.Background(),
			commandline.MockCommandline[struct{}]{Stderr_: new(strings.Builder)},
			[]any{},
		)
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestNewTask_RequiresConfig(t *testing.T) {
	task := common.NewTask(func(
		context.Context, *log.Logger, *server.Config, kdb.Database, flarc.Commandline[struct{}], []any,
	) error {
		t.Error("task should not be called")
		return nil
	})

	err := task(
		context.Background(),
		commandline.MockCommandline[struct{}]{Stderr_: new(strings.Builder)},
		[]any{common.CommonFlags{}},
	)
	if !errors.Is(err, flarc.ErrUsage) {
		t.Errorf("expected ErrUsage, got %v", err)
	}
}
