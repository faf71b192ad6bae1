package campaign

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is the [Open, Close) instant range during which an entry
// qualifies for a stage.
type Window struct {
	Open  time.Time
	Close time.Time
}

// Resolver computes eligibility windows. The location is a fixed local
// offset (e.g. UTC-06:00) and is consulted only by the fixed-anchor
// policy; relative windows are pure UTC arithmetic.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Resolve reports whether an entry created at createdAt is inside the
// stage's window at now, and returns that window.
//
// Relative: open = createdAt + target delay, close = open + span;
// eligible iff open <= now < close. A run that arrives after close does
// not pick the entry up for this stage again.
//
// Fixed anchor: eligible iff createdAt falls on the local calendar day
// lying target-delay days before now. The window is that whole day, so
// the result is independent of cron jitter within the day; a run that
// misses the day entirely misses the entry for this stage.
func (r *Resolver) Resolve(st Stage, createdAt, now time.Time) (Window, bool) {
	switch st.Policy {
	case PolicyFixedAnchor:
		w := r.anchorDay(st, now)
		ok := !createdAt.Before(w.Open) && createdAt.Before(w.Close)
		return w, ok
	default:
		open := createdAt.Add(st.TargetDelay)
		w := Window{Open: open, Close: open.Add(st.Span)}
		ok := !now.Before(w.Open) && now.Before(w.Close)
		return w, ok
	}
}

// CreatedBounds returns inclusive coarse bounds on created_at for the
// stage at now, suitable for a BETWEEN predicate in the store query.
// The bounds are a superset of the exact window; callers must still run
// each row through Resolve for the precise boundary semantics.
func (r *Resolver) CreatedBounds(st Stage, now time.Time) (lo, hi time.Time) {
	if st.Policy == PolicyFixedAnchor {
		w := r.anchorDay(st, now)
		return w.Open, w.Close
	}
	return now.Add(-(st.TargetDelay + st.Span)), now.Add(-st.TargetDelay)
}

// anchorDay maps now to the local calendar day the stage targets:
// 24h -> yesterday, 48h -> two days back, 72h -> three days back.
func (r *Resolver) anchorDay(st Stage, now time.Time) Window {
	daysBack := int(st.TargetDelay / (24 * time.Hour))
	if daysBack < 1 {
		daysBack = 1
	}

	local := now.In(r.loc)
	y, m, d := local.AddDate(0, 0, -daysBack).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, r.loc)

	return Window{Open: start.UTC(), Close: start.AddDate(0, 0, 1).UTC()}
}

// ParseOffset converts an offset string like "-06:00" or "+05:30" into a
// fixed time.Location.
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.UTC, nil
	}

	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("offset %q: want HH:MM", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh > 14 {
		return nil, fmt.Errorf("offset %q: bad hours", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm > 59 {
		return nil, fmt.Errorf("offset %q: bad minutes", s)
	}

	secs := sign * (hh*3600 + mm*60)
	name := fmt.Sprintf("UTC%+03d:%02d", sign*hh, mm)
	return time.FixedZone(name, secs), nil
}
