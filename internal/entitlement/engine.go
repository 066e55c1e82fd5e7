package entitlement

import "time"

// Tier identifies which quota window governs a user at a given instant.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Default limits applied when configuration does not override them.
const (
	DefaultFreeDailyLimit  = 5
	DefaultProMonthlyLimit = 300
)

// Snapshot is the engine's read-only view of a user record. Counters are
// taken as stored; staleness across calendar boundaries is resolved here,
// never in the database.
type Snapshot struct {
	SubscriptionActive    bool
	SubscriptionExpiresAt *time.Time
	DailyUsed             int
	MonthlyUsed           int
	LastResetAt           time.Time
}

// Usage is the summary view serialized to clients on profile and
// subscription responses.
type Usage struct {
	Tier      Tier      `json:"tier"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Delta carries the three fields ApplyUsage rewrites. The persistence
// layer must apply all of them as a single atomic record update.
type Delta struct {
	DailyUsed   int
	MonthlyUsed int
	LastResetAt time.Time
}

// Engine decides whether a billable generation is allowed and computes the
// post-action counter update. All methods are pure; every call receives the
// current wall clock so decisions stay testable at exact boundaries.
type Engine struct {
	FreeDailyLimit  int
	ProMonthlyLimit int
	Loc             *time.Location
}

// NewEngine builds an engine with the given limits, falling back to the
// defaults for non-positive values and UTC for a nil location.
func NewEngine(freeDaily, proMonthly int, loc *time.Location) *Engine {
	if freeDaily <= 0 {
		freeDaily = DefaultFreeDailyLimit
	}
	if proMonthly <= 0 {
		proMonthly = DefaultProMonthlyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{FreeDailyLimit: freeDaily, ProMonthlyLimit: proMonthly, Loc: loc}
}

// isPro reports whether the paid monthly window governs the snapshot. An
// active flag without an expiry is inconsistent state and fails closed to
// the free tier.
func (e *Engine) isPro(s Snapshot, now time.Time) bool {
	return s.SubscriptionActive && s.SubscriptionExpiresAt != nil && s.SubscriptionExpiresAt.After(now)
}

// effective resolves the governing tier and its usage/limit pair, zeroing
// counters whose window has rolled over. CanConsume and UsageInfo both go
// through here so they can never disagree at a boundary instant.
func (e *Engine) effective(s Snapshot, now time.Time) (tier Tier, used, limit int) {
	if e.isPro(s, now) {
		used = s.MonthlyUsed
		if IsNewMonth(s.LastResetAt, now, e.Loc) {
			used = 0
		}
		return TierPro, used, e.ProMonthlyLimit
	}
	used = s.DailyUsed
	if IsNewDay(s.LastResetAt, now, e.Loc) {
		used = 0
	}
	return TierFree, used, e.FreeDailyLimit
}

// CanConsume reports whether one more generation is permitted right now.
// It never mutates state and is safe to call repeatedly; a false return is
// the caller's cue to reject with an upgrade hint (free) or a wait-for-reset
// hint (pro).
func (e *Engine) CanConsume(s Snapshot, now time.Time) bool {
	_, used, limit := e.effective(s, now)
	return used < limit
}

// UsageInfo computes the used/limit/remaining/reset view for the governing
// tier. Remaining is floored at zero: lowering a limit below already-built
// counters must not produce a negative display.
func (e *Engine) UsageInfo(s Snapshot, now time.Time) Usage {
	tier, used, limit := e.effective(s, now)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	resetAt := NextDailyReset(now, e.Loc)
	if tier == TierPro {
		resetAt = NextMonthlyReset(now, e.Loc)
	}
	return Usage{Tier: tier, Used: used, Limit: limit, Remaining: remaining, ResetAt: resetAt}
}

// ApplyUsage computes the counter update for one completed generation.
// Call it only after the billable action itself succeeded, and exactly once
// per action. Counters restart at 1 when their window rolled over; the
// reset timestamp advances only on a day rollover, since a month rollover
// is always also a day rollover.
func (e *Engine) ApplyUsage(s Snapshot, now time.Time) Delta {
	d := Delta{
		DailyUsed:   s.DailyUsed + 1,
		MonthlyUsed: s.MonthlyUsed + 1,
		LastResetAt: s.LastResetAt,
	}
	if IsNewDay(s.LastResetAt, now, e.Loc) {
		d.DailyUsed = 1
		d.LastResetAt = now
	}
	if IsNewMonth(s.LastResetAt, now, e.Loc) {
		d.MonthlyUsed = 1
	}
	return d
}
