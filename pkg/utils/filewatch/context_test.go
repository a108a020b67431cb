package filewatch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cozyartz/etchNFT/pkg/utils/filewatch"
)

func TestUntilModifyContext(t *testing.T) {
	type When struct {
		// watchDir watches the directory instead of the file.
		watchDir bool
		modify   func(t *testing.T, dir string, file string)
	}

	theory := func(when When) func(*testing.T) {
		return func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(file, []byte("port: 8080\n"), 0644); err != nil {
				t.Fatal(err)
			}

			target := file
			if when.watchDir {
				target = dir
			}
			ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), target)
			if err != nil {
				t.Fatal(err)
			}
			defer cancel()

			if err := ctx.Err(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			when.modify(t, dir, file)

			select {
			case <-ctx.Done():
				if context.Cause(ctx) == nil {
					t.Error("cause should be given")
				}
			case <-time.After(10 * time.Second):
				t.Fatal("context is not cancelled")
			}
		}
	}

	write := func(t *testing.T, _ string, file string) {
		if err := os.WriteFile(file, []byte("port: 9090\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	remove := func(t *testing.T, _ string, file string) {
		if err := os.Remove(file); err != nil {
			t.Fatal(err)
		}
	}
	rename := func(t *testing.T, dir string, file string) {
		if err := os.Rename(file, filepath.Join(dir, "config.yaml.bak")); err != nil {
			t.Fatal(err)
		}
	}
	create := func(t *testing.T, dir string, _ string) {
		if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("writing the watched file cancels", theory(When{modify: write}))
	t.Run("removing the watched file cancels", theory(When{modify: remove}))
	t.Run("renaming the watched file cancels", theory(When{modify: rename}))
	t.Run("writing a file in the watched directory cancels", theory(When{watchDir: true, modify: write}))
	t.Run("creating a file in the watched directory cancels", theory(When{watchDir: true, modify: create}))
}

func TestUntilModifyContext_IgnoresChmod(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte("port: 8080\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), file)
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if err := os.Chmod(file, 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
		t.Errorf("context is cancelled by chmod: %v", context.Cause(ctx))
	case <-time.After(500 * time.Millisecond):
	}
}

func TestUntilModifyContext_MissingFile(t *testing.T) {
	ctx, cancel, err := filewatch.UntilModifyContext(
		context.Background(), filepath.Join(t.TempDir(), "missing.yaml"),
	)
	if err == nil {
		cancel()
		t.Fatal("expected error")
	}
	if ctx != nil || cancel != nil {
		t.Error("context and cancel should be nil")
	}
}
