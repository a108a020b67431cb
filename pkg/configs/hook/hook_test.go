package config_test

import (
	"os"
	"path/filepath"
	"testing"

	config "github.com/cozyartz/etchNFT/pkg/configs/hook"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

func TestLoad(t *testing.T) {
	t.Setenv("MAILER_HOST", "mailer.example.com")

	dir := t.TempDir()
	path := filepath.Join(dir, "hooks.yaml")
	content := `
lifecycle-hooks:
  before:
    - http://fraud.example.com/check
  after:
    - https://${MAILER_HOST}/orders
    - https://audit.example.com/orders
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := try.To(config.Load(path)).OrFatal(t)

	before := []string{}
	for _, u := range cfg.Lifecycle.Before {
		before = append(before, u.String())
	}
	after := []string{}
	for _, u := range cfg.Lifecycle.After {
		after = append(after, u.String())
	}

	if len(before) != 1 || before[0] != "http://fraud.example.com/check" {
		t.Errorf("before = %v", before)
	}
	if len(after) != 2 ||
		after[0] != "https://mailer.example.com/orders" ||
		after[1] != "https://audit.example.com/orders" {
		t.Errorf("after = %v", after)
	}
}

func TestLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := try.To(config.Load(path)).OrFatal(t)
	if len(cfg.Lifecycle.Before) != 0 || len(cfg.Lifecycle.After) != 0 {
		t.Errorf("unexpected hooks: %+v", cfg.Lifecycle)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nothing.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestLoad_NotHTTP(t *testing.T) {
	for name, endpoint := range map[string]string{
		"file":        "file:///etc/passwd",
		"no host":     "https:///orders",
		"bare string": "mailer",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hooks.yaml")
			content := "lifecycle-hooks:\n  after:\n    - " + endpoint + "\n"
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := config.Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
