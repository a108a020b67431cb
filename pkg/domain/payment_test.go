package domain_test

import (
	"testing"
	"time"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

func TestSignalTarget(t *testing.T) {
	for signal, want := range map[domain.Signal]struct {
		status domain.OrderStatus
		ok     bool
	}{
		domain.SignalAuthorized:    {status: domain.Confirmed, ok: true},
		domain.SignalCaptured:      {status: domain.Paid, ok: true},
		domain.SignalFailed:        {status: domain.Failed, ok: true},
		domain.SignalRefundPending: {status: domain.RefundPending, ok: true},
		domain.SignalRefunded:      {status: domain.Refunded, ok: true},
		domain.SignalPending:       {ok: false},
		domain.SignalNone:          {ok: false},
	} {
		status, ok := signal.Target()
		if ok != want.ok || status != want.status {
			t.Errorf("%s.Target() = (%s, %v), want (%s, %v)", signal, status, ok, want.status, want.ok)
		}
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := domain.RetryPolicy{
		MaxAttempts: 4, InitialBackoff: 30 * time.Second, Factor: 2,
	}

	for attempts, want := range map[int]time.Duration{
		1: 30 * time.Second,
		2: time.Minute,
		3: 2 * time.Minute,
		4: 4 * time.Minute,
	} {
		if got := policy.Backoff(attempts); got != want {
			t.Errorf("Backoff(%d) = %s, want %s", attempts, got, want)
		}
	}

	if policy.Exhausted(3) {
		t.Error("3 attempts should not exhaust 4 max attempts")
	}
	if !policy.Exhausted(4) {
		t.Error("4 attempts should exhaust 4 max attempts")
	}
}

func TestRoleId(t *testing.T) {
	for name, want := range map[string]string{
		"Super Admin":     "role_super_admin",
		"Content Manager": "role_content_manager",
		"  Viewer ":       "role_viewer",
		"Ops / On-Call":   "role_ops_on_call",
	} {
		if got := domain.RoleId(name); got != want {
			t.Errorf("RoleId(%q) = %s, want %s", name, got, want)
		}
	}
}
