package rpz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnscodec/internal/wire"
)

func label(t *testing.T, text string) wire.Label {
	t.Helper()
	l, err := wire.ParseLabel(text)
	require.NoError(t, err)
	return l
}

func TestZoneExactMatch(t *testing.T) {
	z := New("blocklist")
	z.AddRule(label(t, "malware.example.com"), ActionNXDomain, "malware")

	rule, action := z.Check(label(t, "malware.example.com"))
	assert.NotNil(t, rule)
	assert.Equal(t, ActionNXDomain, action)
	assert.Equal(t, "malware", rule.Reason)

	rule, action = z.Check(label(t, "safe.example.com"))
	assert.Nil(t, rule)
	assert.Equal(t, ActionNone, action)
}

func TestZoneWildcardMatch(t *testing.T) {
	z := New("blocklist")
	z.AddWildcard(label(t, "badsite.com"), ActionNXDomain, "phishing")

	for _, name := range []string{"www.badsite.com", "a.b.c.badsite.com", "badsite.com"} {
		rule, action := z.Check(label(t, name))
		assert.NotNilf(t, rule, "expected match for %s", name)
		assert.Equal(t, ActionNXDomain, action)
	}

	rule, action := z.Check(label(t, "unrelated.com"))
	assert.Nil(t, rule)
	assert.Equal(t, ActionNone, action)
}

func TestZonePassthruOverridesWildcard(t *testing.T) {
	z := New("blocklist")
	z.AddWildcard(label(t, "example.com"), ActionNXDomain, "blocked")
	z.AddPassthru(label(t, "safe.example.com"), "whitelist")

	_, action := z.Check(label(t, "safe.example.com"))
	assert.Equal(t, ActionPassthru, action)

	_, action = z.Check(label(t, "other.example.com"))
	assert.Equal(t, ActionNXDomain, action)
}

func TestZoneDisableStopsMatching(t *testing.T) {
	z := New("blocklist")
	z.AddRule(label(t, "bad.example.com"), ActionNXDomain, "bad")
	z.Disable()

	_, action := z.Check(label(t, "bad.example.com"))
	assert.Equal(t, ActionNone, action)

	z.Enable()
	_, action = z.Check(label(t, "bad.example.com"))
	assert.Equal(t, ActionNXDomain, action)
}

func TestApplyToRecordNXDomain(t *testing.T) {
	z := New("blocklist")
	z.AddRule(label(t, "bad.example.com"), ActionNXDomain, "bad")

	req := &wire.Record{Question: []wire.Question{{Name: label(t, "bad.example.com"), Type: wire.TypeA, Class: wire.ClassIN}}}
	resp := req.Reply()
	resp.Answer = []wire.RR{{Name: req.Question[0].Name, Type: wire.TypeA}}

	changed := z.ApplyToRecord(req, resp)
	require.True(t, changed)
	assert.Equal(t, wire.RcodeNXDomain, resp.Header.Rcode)
	assert.Empty(t, resp.Answer)
}

func TestApplyToRecordRewrite(t *testing.T) {
	z := New("rewrites")
	z.AddRewriteRule(label(t, "old.example.com"), label(t, "new.example.com"), "moved")

	req := &wire.Record{Question: []wire.Question{{Name: label(t, "old.example.com"), Type: wire.TypeA, Class: wire.ClassIN}}}
	resp := req.Reply()

	changed := z.ApplyToRecord(req, resp)
	require.True(t, changed)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, wire.TypeCNAME, resp.Answer[0].Type)
}

func TestAggregateFirstMatchWins(t *testing.T) {
	high := New("high-priority")
	high.AddPassthru(label(t, "safe.example.com"), "whitelist")
	low := New("low-priority")
	low.AddWildcard(label(t, "example.com"), ActionNXDomain, "blocked")

	agg := NewAggregate()
	agg.AddZone(high)
	agg.AddZone(low)

	_, action := agg.Check(label(t, "safe.example.com"))
	assert.Equal(t, ActionPassthru, action)

	_, action = agg.Check(label(t, "other.example.com"))
	assert.Equal(t, ActionNXDomain, action)
}
