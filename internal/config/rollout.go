package config

import (
	"fmt"
	"strings"
)

// ApplyRolloutPhase applies a staged rollout preset to the config.
// Supported phases:
//   - paper:      dry_run, no live credentials required
//   - shadow:     live market data, dry-run order placement (no fills sent)
//   - live-small: live trading with conservative, clamped position caps
//   - live:       live trading using configured values as-is
func ApplyRolloutPhase(cfg *Config, phase string) error {
	p := strings.ToLower(strings.TrimSpace(phase))
	if p == "" {
		return nil
	}

	switch p {
	case "paper":
		cfg.DryRun = true
	case "shadow", "live-dryrun", "live-dry-run":
		cfg.DryRun = true
	case "live-small", "small":
		cfg.DryRun = false
		clampMaxFloat(&cfg.Signal.MaxArbPositionPct, 1.0)
		clampMaxFloat(&cfg.Signal.MaxLatePositionPct, 0.5)
		clampMaxFloat(&cfg.Risk.MaxDailyExposurePct, 10.0)
		clampMaxInt(&cfg.Risk.MaxConcurrentPositions, 3)
	case "live":
		cfg.DryRun = false
	default:
		return fmt.Errorf("unknown rollout phase %q (supported: paper|shadow|live-small|live)", phase)
	}

	return nil
}

func clampMaxFloat(v *float64, max float64) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}

func clampMaxInt(v *int, max int) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}
