package engine

import (
	"context"
	"testing"
	"time"

	"github.com/isoura4/isrobot-backend/internal/models"
)

func TestIssueMuteStoresRowAndEnforces(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.engine.IssueMute(ctx, "g1", "u1", 30*time.Minute, "cooling off", strptr("mod1")); err != nil {
		t.Fatalf("IssueMute failed: %v", err)
	}

	mute, err := env.engine.GetActiveMute("g1", "u1")
	if err != nil {
		t.Fatalf("GetActiveMute failed: %v", err)
	}
	if mute == nil {
		t.Fatal("expected an active mute")
	}
	if want := env.clock.Now().Add(30 * time.Minute); !mute.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, mute.ExpiresAt)
	}

	ops := env.enforcer.ops()
	if len(ops) != 1 || ops[0] != "apply" {
		t.Errorf("expected one apply call, got %v", ops)
	}

	actions := env.warnings.actions("g1", "u1")
	if len(actions) != 1 || actions[0] != models.ActionMute {
		t.Errorf("expected a single mute audit entry, got %v", actions)
	}
}

func TestIssueMuteRejectsNonPositiveDuration(t *testing.T) {
	env := newTestEnv()

	err := env.engine.IssueMute(context.Background(), "g1", "u1", 0, "bad", strptr("mod1"))
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReMuteReplacesExpiry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueMute(ctx, "g1", "u1", time.Hour, "first", strptr("mod1"))
	env.clock.Advance(10 * time.Minute)
	env.engine.IssueMute(ctx, "g1", "u1", 5*time.Minute, "shortened", strptr("mod2"))

	mute, _ := env.engine.GetActiveMute("g1", "u1")
	if mute == nil {
		t.Fatal("expected an active mute")
	}
	// Last write wins, even when the replacement is shorter.
	if want := env.clock.Now().Add(5 * time.Minute); !mute.ExpiresAt.Equal(want) {
		t.Errorf("expected replaced expiry %v, got %v", want, mute.ExpiresAt)
	}
	if mute.Reason != "shortened" {
		t.Errorf("expected replaced reason, got %q", mute.Reason)
	}
}

func TestRemoveMuteLiftsRestriction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueMute(ctx, "g1", "u1", time.Hour, "noise", strptr("mod1"))
	removed, err := env.engine.RemoveMute(ctx, "g1", "u1", "resolved", strptr("mod2"))
	if err != nil {
		t.Fatalf("RemoveMute failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}

	mute, _ := env.engine.GetActiveMute("g1", "u1")
	if mute != nil {
		t.Error("mute row should be gone")
	}
	ops := env.enforcer.ops()
	if len(ops) != 2 || ops[1] != "remove" {
		t.Errorf("expected apply then remove, got %v", ops)
	}
}

func TestRemoveMuteOnUnmutedUserIsNoOp(t *testing.T) {
	env := newTestEnv()

	removed, err := env.engine.RemoveMute(context.Background(), "g1", "u1", "nothing there", strptr("mod1"))
	if err != nil {
		t.Fatalf("RemoveMute failed: %v", err)
	}
	if removed {
		t.Error("expected no-op removal to report false")
	}
	if len(env.enforcer.ops()) != 0 {
		t.Error("no enforcement call expected for a no-op unmute")
	}
	if len(env.warnings.history) != 0 {
		t.Error("no audit entry expected for a no-op unmute")
	}
}

func TestMuteClearRetriesTransientFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "only", strptr("mod1"))
	env.engine.IssueMute(ctx, "g1", "u1", time.Hour, "manual", strptr("mod1"))

	// Two transient store failures, then success within the retry budget.
	env.mutes.failDelete = 2

	result, err := env.engine.RemoveWarning(ctx, "g1", "u1", "forgiven", strptr("mod2"))
	if err != nil {
		t.Fatalf("RemoveWarning failed: %v", err)
	}
	if !result.MuteLifted {
		t.Error("expected the mute to be lifted after retries")
	}
	mute, _ := env.engine.GetActiveMute("g1", "u1")
	if mute != nil {
		t.Error("mute row should be gone")
	}
}

func TestExpireMutesRemovesOnlyExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueMute(ctx, "g1", "u1", time.Hour, "short", strptr("mod1"))
	env.engine.IssueMute(ctx, "g1", "u2", 48*time.Hour, "long", strptr("mod1"))

	env.clock.Advance(time.Hour + time.Second)

	removed, err := env.engine.ExpireMutes(ctx)
	if err != nil {
		t.Fatalf("ExpireMutes failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired mute, got %d", removed)
	}

	if m, _ := env.engine.GetActiveMute("g1", "u1"); m != nil {
		t.Error("expired mute should be gone")
	}
	if m, _ := env.engine.GetActiveMute("g1", "u2"); m == nil {
		t.Error("unexpired mute must survive the sweep")
	}
}

func TestAutomaticMuteExpiresAfterConfiguredDuration(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "first", strptr("mod1"))
	env.engine.IssueWarning(ctx, "g1", "u1", "second", strptr("mod1"))

	// One second past the tier-2 hour.
	env.clock.Advance(3601 * time.Second)

	removed, err := env.engine.ExpireMutes(ctx)
	if err != nil {
		t.Fatalf("ExpireMutes failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected the automatic mute to expire, removed=%d", removed)
	}

	// Expiration lifts the mute but leaves the warning count alone.
	state, _ := env.engine.GetWarningState("g1", "u1")
	if state.Count != 2 {
		t.Errorf("expected count 2 after expiration, got %d", state.Count)
	}

	actions := env.warnings.actions("g1", "u1")
	last := actions[len(actions)-1]
	if last != models.ActionUnmute {
		t.Errorf("expected trailing unmute audit entry, got %v", actions)
	}
}

func TestExpireMutesSkipsReplacedMute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueMute(ctx, "g1", "u1", time.Minute, "short", strptr("mod1"))
	env.clock.Advance(2 * time.Minute)

	// Replace with a longer mute after the first would have expired but
	// before the sweep runs.
	env.engine.IssueMute(ctx, "g1", "u1", time.Hour, "extended", strptr("mod2"))

	removed, err := env.engine.ExpireMutes(ctx)
	if err != nil {
		t.Fatalf("ExpireMutes failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("replaced mute must not be expired, removed=%d", removed)
	}
	if m, _ := env.engine.GetActiveMute("g1", "u1"); m == nil {
		t.Error("extended mute should still be active")
	}
}
