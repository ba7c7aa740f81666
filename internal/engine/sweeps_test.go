package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/isoura4/isrobot-backend/internal/models"
)

func TestDecaySweepRemovesWarningAfterWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "spam", strptr("mod1"))

	// A single warning decays after seven days of silence.
	env.clock.Advance(7*24*time.Hour - time.Minute)
	decayed, err := env.engine.DecaySweep(ctx)
	if err != nil {
		t.Fatalf("DecaySweep failed: %v", err)
	}
	if decayed != 0 {
		t.Fatalf("window not elapsed, expected no decay, got %d", decayed)
	}

	env.clock.Advance(2 * time.Minute)
	decayed, err = env.engine.DecaySweep(ctx)
	if err != nil {
		t.Fatalf("DecaySweep failed: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("expected 1 decay, got %d", decayed)
	}

	state, _ := env.engine.GetWarningState("g1", "u1")
	if state.Count != 0 {
		t.Errorf("expected count 0 after decay, got %d", state.Count)
	}
	actions := env.warnings.actions("g1", "u1")
	if actions[len(actions)-1] != models.ActionDecay {
		t.Errorf("expected trailing decay entry, got %v", actions)
	}
}

func TestDecaySweepRemovesAtMostOnePerUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, r := range []string{"a", "b", "c"} {
		env.engine.IssueWarning(ctx, "g1", "u1", r, strptr("mod1"))
	}

	// Far past every window; still only one decrement per sweep.
	env.clock.Advance(120 * 24 * time.Hour)

	decayed, err := env.engine.DecaySweep(ctx)
	if err != nil {
		t.Fatalf("DecaySweep failed: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("expected exactly 1 decay, got %d", decayed)
	}
	state, _ := env.engine.GetWarningState("g1", "u1")
	if state.Count != 2 {
		t.Errorf("expected count 2 after one sweep, got %d", state.Count)
	}

	// The decrement restarts the clock for the next tier.
	decayed, _ = env.engine.DecaySweep(ctx)
	if decayed != 0 {
		t.Errorf("second immediate sweep must not decay, got %d", decayed)
	}
}

func TestDecayWindowDependsOnCurrentCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "a", strptr("mod1"))
	env.engine.IssueWarning(ctx, "g1", "u1", "b", strptr("mod1"))

	// Two warnings sit on the 14-day window; 8 days is not enough.
	env.clock.Advance(8 * 24 * time.Hour)
	decayed, _ := env.engine.DecaySweep(ctx)
	if decayed != 0 {
		t.Fatalf("14-day window not elapsed, got %d decays", decayed)
	}

	env.clock.Advance(7 * 24 * time.Hour)
	decayed, _ = env.engine.DecaySweep(ctx)
	if decayed != 1 {
		t.Fatalf("expected decay after 15 days at count 2, got %d", decayed)
	}
}

func TestDecayWindowFixedAtFourOrMoreWarnings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		env.engine.IssueWarning(ctx, "g1", "u1", "r", strptr("mod1"))
	}

	env.clock.Advance(27 * 24 * time.Hour)
	decayed, _ := env.engine.DecaySweep(ctx)
	if decayed != 0 {
		t.Fatalf("28-day window not elapsed, got %d decays", decayed)
	}

	env.clock.Advance(2 * 24 * time.Hour)
	decayed, _ = env.engine.DecaySweep(ctx)
	if decayed != 1 {
		t.Fatalf("expected decay after 29 days at count 4, got %d", decayed)
	}
}

func TestDecayUsesGuildConfiguredWindows(t *testing.T) {
	env := newTestEnv()
	cfg := models.DefaultGuildConfig("g1")
	cfg.Warn1DecayDays = 2
	env.config.set(cfg)
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "spam", strptr("mod1"))

	env.clock.Advance(3 * 24 * time.Hour)
	decayed, _ := env.engine.DecaySweep(ctx)
	if decayed != 1 {
		t.Fatalf("expected decay under the shortened window, got %d", decayed)
	}
}

func TestManualChangeResetsDecayClock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "first", strptr("mod1"))

	// Six days in, a second warning lands. The counter's clock restarts.
	env.clock.Advance(6 * 24 * time.Hour)
	env.engine.IssueWarning(ctx, "g1", "u1", "second", strptr("mod1"))

	// Two more days pass; 8 days since the first warning but only 2 on
	// the 14-day tier-2 window.
	env.clock.Advance(2 * 24 * time.Hour)
	decayed, _ := env.engine.DecaySweep(ctx)
	if decayed != 0 {
		t.Errorf("restarted window must not decay yet, got %d", decayed)
	}
}

func TestDecayToZeroLiftsMute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "only", strptr("mod1"))
	env.engine.IssueMute(ctx, "g1", "u1", 90*24*time.Hour, "long manual mute", strptr("mod1"))

	env.clock.Advance(8 * 24 * time.Hour)
	decayed, err := env.engine.DecaySweep(ctx)
	if err != nil {
		t.Fatalf("DecaySweep failed: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("expected 1 decay, got %d", decayed)
	}

	if m, _ := env.engine.GetActiveMute("g1", "u1"); m != nil {
		t.Error("mute must lift when decay drives the count to zero")
	}
}

func TestDecaySweepIsolatesGuilds(t *testing.T) {
	env := newTestEnv()
	fast := models.DefaultGuildConfig("g1")
	fast.Warn1DecayDays = 1
	env.config.set(fast)
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "spam", strptr("mod1"))
	env.engine.IssueWarning(ctx, "g2", "u1", "spam", strptr("mod1"))

	env.clock.Advance(2 * 24 * time.Hour)
	decayed, _ := env.engine.DecaySweep(ctx)
	if decayed != 1 {
		t.Fatalf("expected only g1's warning to decay, got %d", decayed)
	}

	s1, _ := env.engine.GetWarningState("g1", "u1")
	s2, _ := env.engine.GetWarningState("g2", "u1")
	if s1.Count != 0 || s2.Count != 1 {
		t.Errorf("expected counts 0 and 1, got %d and %d", s1.Count, s2.Count)
	}
}

func TestDecayReasonNamesWindowOfCurrentCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.engine.IssueWarning(ctx, "g1", "u1", "a", strptr("mod1"))
	env.engine.IssueWarning(ctx, "g1", "u1", "b", strptr("mod1"))
	env.clock.Advance(14*24*time.Hour + time.Minute)

	// The decrement reloads the state under the lock; the message must name
	// the window of the count it actually read, not a stale scan value.
	if !env.engine.decayOne(ctx, "g1", "u1") {
		t.Fatal("expected the second-tier window to have elapsed")
	}

	var reason string
	for _, h := range env.warnings.history {
		if h.Action == models.ActionDecay {
			reason = h.Reason
		}
	}
	if !strings.Contains(reason, "14 days") {
		t.Errorf("expected decay reason to name the 14 day window, got %q", reason)
	}
}
