// Package rpz implements Response Policy Zones: name-triggered filtering
// that can block, rewrite, or pass through a query before it reaches a
// resolver.
package rpz

import (
	"sync"

	"github.com/dnsscience/dnscodec/internal/wire"
)

// Action is what to do with a query that matches a rule.
type Action int

const (
	ActionNone     Action = iota // no match, continue normal processing
	ActionNXDomain               // return NXDOMAIN
	ActionNoData                 // return NOERROR with no answer
	ActionPassthru               // allow the query (whitelist, overrides blocking rules)
	ActionDrop                   // drop the query, no response
	ActionRewrite                // rewrite to a different target
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionNXDomain:
		return "NXDOMAIN"
	case ActionNoData:
		return "NODATA"
	case ActionPassthru:
		return "PASSTHRU"
	case ActionDrop:
		return "DROP"
	case ActionRewrite:
		return "REWRITE"
	default:
		return "UNKNOWN"
	}
}

// Rule is a single RPZ trigger and the action it applies.
type Rule struct {
	Trigger       wire.Label
	Action        Action
	RewriteTarget wire.Label
	Reason        string
}

// Zone is a set of RPZ rules, matched by exact name or wildcard suffix.
type Zone struct {
	mu        sync.RWMutex
	rules     map[string]*Rule
	wildcards map[string]*Rule
	name      string
	enabled   bool
}

// New creates an empty, enabled RPZ zone.
func New(name string) *Zone {
	return &Zone{
		rules:     make(map[string]*Rule),
		wildcards: make(map[string]*Rule),
		name:      name,
		enabled:   true,
	}
}

// AddRule adds an exact-match rule.
func (z *Zone) AddRule(trigger wire.Label, action Action, reason string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rules[trigger.CanonicalKey()] = &Rule{Trigger: trigger, Action: action, Reason: reason}
}

// AddWildcard adds a rule matching trigger and any name under it.
func (z *Zone) AddWildcard(trigger wire.Label, action Action, reason string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.wildcards[trigger.CanonicalKey()] = &Rule{Trigger: trigger, Action: action, Reason: reason}
}

// AddRewriteRule adds a rule that replaces the answer with a CNAME to target.
func (z *Zone) AddRewriteRule(trigger, target wire.Label, reason string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rules[trigger.CanonicalKey()] = &Rule{
		Trigger:       trigger,
		Action:        ActionRewrite,
		RewriteTarget: target,
		Reason:        reason,
	}
}

// AddPassthru adds a whitelist rule that overrides any blocking match.
func (z *Zone) AddPassthru(trigger wire.Label, reason string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rules[trigger.CanonicalKey()] = &Rule{Trigger: trigger, Action: ActionPassthru, Reason: reason}
}

// Check evaluates name against the zone's rules: exact match first, then
// wildcard match walking up the label tree.
func (z *Zone) Check(name wire.Label) (*Rule, Action) {
	z.mu.RLock()
	defer z.mu.RUnlock()

	if !z.enabled {
		return nil, ActionNone
	}

	if rule, ok := z.rules[name.CanonicalKey()]; ok {
		return rule, rule.Action
	}

	walk := name
	for {
		if rule, ok := z.wildcards[walk.CanonicalKey()]; ok {
			return rule, rule.Action
		}
		if walk.IsRoot() {
			break
		}
		walk = walk.Child()
	}
	return nil, ActionNone
}

// ApplyToRecord mutates resp, the in-progress answer to req, according to
// any rule matching req's question. It reports whether resp was changed.
func (z *Zone) ApplyToRecord(req *wire.Record, resp *wire.Record) bool {
	if len(req.Question) == 0 {
		return false
	}

	rule, action := z.Check(req.Question[0].Name)
	if rule == nil {
		return false
	}

	switch action {
	case ActionNXDomain:
		resp.Header.Rcode = wire.RcodeNXDomain
		resp.Answer = nil
		resp.Authority = nil
		resp.Additional = nil
		return true

	case ActionNoData:
		resp.Header.Rcode = wire.RcodeNoError
		resp.Answer = nil
		return true

	case ActionPassthru:
		return false

	case ActionRewrite:
		if !rule.RewriteTarget.IsRoot() {
			resp.Answer = []wire.RR{{
				Name:  req.Question[0].Name,
				Type:  wire.TypeCNAME,
				Class: wire.ClassIN,
				TTL:   300,
				RData: wire.NewCNAME(rule.RewriteTarget),
			}}
			return true
		}
	}

	return false
}

// Enable turns rule evaluation on.
func (z *Zone) Enable() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.enabled = true
}

// Disable turns rule evaluation off; Check always returns ActionNone.
func (z *Zone) Disable() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.enabled = false
}

// Clear removes all rules.
func (z *Zone) Clear() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rules = make(map[string]*Rule)
	z.wildcards = make(map[string]*Rule)
}

// Stats reports the zone's rule population.
type Stats struct {
	Name          string
	Enabled       bool
	ExactRules    int
	WildcardRules int
}

func (z *Zone) Stats() Stats {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return Stats{
		Name:          z.name,
		Enabled:       z.enabled,
		ExactRules:    len(z.rules),
		WildcardRules: len(z.wildcards),
	}
}

// Aggregate evaluates multiple zones in priority order, first match wins.
type Aggregate struct {
	mu    sync.RWMutex
	zones []*Zone
}

// NewAggregate creates an empty priority-ordered zone chain.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// AddZone appends a zone to the end of the chain (lowest priority).
func (a *Aggregate) AddZone(z *Zone) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zones = append(a.zones, z)
}

// Check evaluates name against every zone in priority order.
func (a *Aggregate) Check(name wire.Label) (*Rule, Action) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, z := range a.zones {
		if rule, action := z.Check(name); action != ActionNone {
			return rule, action
		}
	}
	return nil, ActionNone
}

// ApplyToRecord mutates resp according to the first zone in the chain
// whose rules match req's question. It reports whether resp was changed.
func (a *Aggregate) ApplyToRecord(req *wire.Record, resp *wire.Record) bool {
	if len(req.Question) == 0 {
		return false
	}

	a.mu.RLock()
	zones := append([]*Zone(nil), a.zones...)
	a.mu.RUnlock()

	for _, z := range zones {
		if z.ApplyToRecord(req, resp) {
			return true
		}
		if rule, action := z.Check(req.Question[0].Name); rule != nil && action == ActionPassthru {
			return false
		}
	}
	return false
}
