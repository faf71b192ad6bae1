package campaign

import (
	"errors"
	"fmt"
	"time"
)

// WindowPolicy selects how a stage's eligibility window is computed.
type WindowPolicy string

const (
	// PolicyRelative opens the window at created_at + target delay and
	// closes it one span later.
	PolicyRelative WindowPolicy = "relative"

	// PolicyFixedAnchor makes eligibility a calendar-day decision: the
	// entry qualifies on the local day its target delay crosses,
	// regardless of the exact hour the job runs.
	PolicyFixedAnchor WindowPolicy = "fixed_anchor"
)

// ErrInvalidStage is wrapped by all stage validation failures.
var ErrInvalidStage = errors.New("invalid stage configuration")

// Stage is one reminder tier (e.g. 24h/48h/72h). Stages are supplied at
// run time from configuration and never persisted.
type Stage struct {
	// Key is the stable identifier used as the dedup partition key in
	// the send ledger (e.g. "wishlist_v1_24h").
	Key string

	// TargetDelay is the nominal elapsed time after entry creation this
	// stage targets.
	TargetDelay time.Duration

	Policy WindowPolicy

	// Span is the width of the eligibility window under PolicyRelative.
	Span time.Duration

	// AnchorHour is the local wall-clock hour the daily job is expected
	// to run at under PolicyFixedAnchor. Eligibility itself is
	// day-granular; the hour is recorded for operators and validation.
	AnchorHour int

	// Cooldown is the minimum elapsed time before the same
	// (recipient, wishlist) pair may receive any further stage.
	Cooldown time.Duration

	Subject  string
	Template string
}

// ValidateStages checks a stage list before any side effects. Stages must
// be non-empty, uniquely keyed, and ordered by strictly ascending target
// delay so a later stage cannot re-select entries claimed by an earlier one.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages defined", ErrInvalidStage)
	}

	seen := make(map[string]struct{}, len(stages))
	var prevDelay time.Duration

	for i, st := range stages {
		if st.Key == "" {
			return fmt.Errorf("%w: stage %d has empty key", ErrInvalidStage, i)
		}
		if _, dup := seen[st.Key]; dup {
			return fmt.Errorf("%w: duplicate stage key %q", ErrInvalidStage, st.Key)
		}
		seen[st.Key] = struct{}{}

		if st.TargetDelay <= 0 {
			return fmt.Errorf("%w: stage %q has non-positive target delay", ErrInvalidStage, st.Key)
		}
		if i > 0 && st.TargetDelay <= prevDelay {
			return fmt.Errorf("%w: stage %q delay %s does not ascend past %s", ErrInvalidStage, st.Key, st.TargetDelay, prevDelay)
		}
		prevDelay = st.TargetDelay

		switch st.Policy {
		case PolicyRelative:
			if st.Span <= 0 {
				return fmt.Errorf("%w: relative stage %q needs a positive span", ErrInvalidStage, st.Key)
			}
		case PolicyFixedAnchor:
			if st.AnchorHour < 0 || st.AnchorHour > 23 {
				return fmt.Errorf("%w: stage %q anchor hour %d out of range", ErrInvalidStage, st.Key, st.AnchorHour)
			}
		default:
			return fmt.Errorf("%w: stage %q has unknown policy %q", ErrInvalidStage, st.Key, st.Policy)
		}

		if st.Cooldown < 0 {
			return fmt.Errorf("%w: stage %q has negative cooldown", ErrInvalidStage, st.Key)
		}
		// A cooldown that outlives the next stage's window starves it:
		// even a send at this stage's earliest instant still blocks the
		// pair past the next window's close, and a missed window is
		// never revisited.
		if i+1 < len(stages) {
			next := stages[i+1]
			nextClose := next.TargetDelay + next.Span
			if next.Policy == PolicyFixedAnchor {
				nextClose = next.TargetDelay + 24*time.Hour
			}
			if st.Cooldown >= nextClose-st.TargetDelay {
				return fmt.Errorf("%w: stage %q cooldown %s starves stage %q, whose window closes %s after this stage opens",
					ErrInvalidStage, st.Key, st.Cooldown, next.Key, nextClose-st.TargetDelay)
			}
		}
		if st.Subject == "" {
			return fmt.Errorf("%w: stage %q has no subject", ErrInvalidStage, st.Key)
		}
		if st.Template == "" {
			return fmt.Errorf("%w: stage %q has no template", ErrInvalidStage, st.Key)
		}
	}

	return nil
}
