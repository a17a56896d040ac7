// Package resolver reduces every known fact into one Activity.
//
// Resolve is a pure function of its Input. Side effects that the cascade
// calls for (ending or creating a sleep override) are returned as Effects
// for the caller to apply.
package resolver

import (
	"strings"
	"time"

	"github.com/hpungsan/stalker/internal/activity"
	"github.com/hpungsan/stalker/internal/blackboard"
	"github.com/hpungsan/stalker/internal/poll"
)

// Input is everything one resolution may look at.
type Input struct {
	Now      time.Time
	Polling  poll.Snapshot
	Override *blackboard.Override

	// PingAges maps each device to its ping age; missing devices are Infinite.
	PingAges map[string]time.Duration

	// Apps and Domains are the fresh list unions, already normalized.
	Apps    []string
	Domains []string

	// InCall is the fresh presence flag.
	InCall bool
}

// EffectKind names a side effect requested by a decision.
type EffectKind string

const (
	ClearOverride       EffectKind = "clear_override"
	CreateSleepOverride EffectKind = "create_sleep_override"
)

// Effect is a side effect for the caller to apply after resolving.
type Effect struct {
	Kind     EffectKind
	Activity activity.Activity
	At       time.Time
}

// Decision is the outcome of one resolution.
type Decision struct {
	Activity activity.Activity
	Rule     string
	Effects  []Effect
}

// Resolver evaluates the cascade with fixed thresholds.
type Resolver struct {
	params Params
	rules  []Rule
}

// New returns a Resolver using the default rule order.
func New(p Params) *Resolver {
	return &Resolver{params: p, rules: Rules}
}

// Resolve evaluates the override pre-step and then Rules in order.
// The first matching rule wins.
func (r *Resolver) Resolve(in Input) Decision {
	f := newFacts(in, r.params)

	var effects []Effect
	if o := in.Override; o != nil {
		if !f.sleepEnded(o) {
			return Decision{Activity: o.Activity(), Rule: RuleOverride}
		}
		effects = append(effects, Effect{Kind: ClearOverride, At: in.Now})
	}

	for _, rule := range r.rules {
		if !rule.Match(f) {
			continue
		}
		d := Decision{Activity: rule.Activity, Rule: rule.Name, Effects: effects}
		if rule.Effect != "" {
			d.Effects = append(d.Effects, Effect{Kind: rule.Effect, Activity: rule.Activity, At: in.Now})
		}
		return d
	}

	// Rules ends with an unconditional fallback; this is only reached with a custom list.
	return Decision{Activity: activity.Away, Rule: RuleAway, Effects: effects}
}

// Facts is the derived view of an Input that rules match against.
type Facts struct {
	Input Input

	apps    map[string]bool
	domains map[string]bool
	event   string

	minPing      time.Duration
	desktopFresh bool
	mobileFresh  bool
	sleepy       bool

	params Params
}

func newFacts(in Input, p Params) *Facts {
	desktop := pingAge(in.PingAges, blackboard.Desktop)
	mobile := pingAge(in.PingAges, blackboard.Mobile)
	minPing := blackboard.MinAge(in.PingAges)

	f := &Facts{
		Input:        in,
		apps:         toSet(in.Apps),
		domains:      map[string]bool{},
		event:        strings.ToLower(in.Polling.Calendar.EventName),
		minPing:      minPing,
		desktopFresh: desktop < p.PingFreshness,
		mobileFresh:  mobile < p.PingFreshness,
		params:       p,
	}
	// Cached domain lists are only trusted while the desktop is active.
	if f.desktopFresh {
		f.domains = toSet(in.Domains)
	}
	f.sleepy = minPing > p.SleepExpiration && p.InQuietHours(in.Now)
	return f
}

// sleepEnded reports whether a sleep override should be dropped: a device
// pinged recently, and that ping came more than SleepDelay after the override.
func (f *Facts) sleepEnded(o *blackboard.Override) bool {
	if !o.IsSleep() || f.minPing >= f.params.SleepExpiration {
		return false
	}
	return f.Input.Now.Sub(o.Time)-f.minPing > f.params.SleepDelay
}

// AnyApp reports whether any of names is an active app.
func (f *Facts) AnyApp(names ...string) bool {
	return anyIn(f.apps, names)
}

// AnyDomain reports whether any of names is an active, trusted domain.
func (f *Facts) AnyDomain(names ...string) bool {
	return anyIn(f.domains, names)
}

// EventContains reports whether the calendar title contains any keyword,
// ignoring case.
func (f *Facts) EventContains(keywords ...string) bool {
	if f.event == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(f.event, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func pingAge(ages map[string]time.Duration, device string) time.Duration {
	if a, ok := ages[device]; ok {
		return a
	}
	return blackboard.Infinite
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func anyIn(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}
