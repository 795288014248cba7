package config

import "testing"

func TestApplyRolloutPhasePaper(t *testing.T) {
	cfg := Default()
	cfg.DryRun = false

	if err := ApplyRolloutPhase(&cfg, "paper"); err != nil {
		t.Fatalf("ApplyRolloutPhase: %v", err)
	}
	if !cfg.DryRun {
		t.Fatal("expected dry_run=true for paper phase")
	}
}

func TestApplyRolloutPhaseShadow(t *testing.T) {
	cfg := Default()
	cfg.DryRun = false

	if err := ApplyRolloutPhase(&cfg, "shadow"); err != nil {
		t.Fatalf("ApplyRolloutPhase: %v", err)
	}
	if !cfg.DryRun {
		t.Fatal("expected dry_run=true for shadow phase")
	}
}

func TestApplyRolloutPhaseLiveSmallClamps(t *testing.T) {
	cfg := Default()
	cfg.Signal.MaxArbPositionPct = 10
	cfg.Signal.MaxLatePositionPct = 8
	cfg.Risk.MaxDailyExposurePct = 50
	cfg.Risk.MaxConcurrentPositions = 40

	if err := ApplyRolloutPhase(&cfg, "live-small"); err != nil {
		t.Fatalf("ApplyRolloutPhase: %v", err)
	}
	if cfg.DryRun {
		t.Fatal("expected dry_run=false for live-small phase")
	}
	if cfg.Signal.MaxArbPositionPct != 1.0 {
		t.Fatalf("expected max_arb_position_pct=1.0, got %f", cfg.Signal.MaxArbPositionPct)
	}
	if cfg.Signal.MaxLatePositionPct != 0.5 {
		t.Fatalf("expected max_late_position_pct=0.5, got %f", cfg.Signal.MaxLatePositionPct)
	}
	if cfg.Risk.MaxDailyExposurePct != 10.0 {
		t.Fatalf("expected max_daily_exposure_pct=10.0, got %f", cfg.Risk.MaxDailyExposurePct)
	}
	if cfg.Risk.MaxConcurrentPositions != 3 {
		t.Fatalf("expected max_concurrent_positions=3, got %d", cfg.Risk.MaxConcurrentPositions)
	}
}

func TestApplyRolloutPhaseLive(t *testing.T) {
	cfg := Default()
	cfg.DryRun = true

	if err := ApplyRolloutPhase(&cfg, "live"); err != nil {
		t.Fatalf("ApplyRolloutPhase: %v", err)
	}
	if cfg.DryRun {
		t.Fatal("expected dry_run=false for live phase")
	}
}

func TestApplyRolloutPhaseUnknown(t *testing.T) {
	cfg := Default()
	if err := ApplyRolloutPhase(&cfg, "unknown-phase"); err == nil {
		t.Fatal("expected error for unknown rollout phase")
	}
}

func TestApplyRolloutPhaseEmpty(t *testing.T) {
	cfg := Default()
	wantDryRun := cfg.DryRun
	if err := ApplyRolloutPhase(&cfg, ""); err != nil {
		t.Fatalf("ApplyRolloutPhase: %v", err)
	}
	if cfg.DryRun != wantDryRun {
		t.Fatal("expected empty phase to leave dry_run unchanged")
	}
}
