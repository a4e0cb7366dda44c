package zonestore

import (
	"net"
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

func newTestZone(t *testing.T) *Zone {
	origin := label(t, "example.com")
	z := New(origin)

	require.NoError(t, z.AddRecord(wire.RR{
		Name: origin, Type: wire.TypeSOA, Class: wire.ClassIN, TTL: 3600,
		RData: &wire.RDataSOA{
			MName: label(t, "ns1.example.com"), RName: label(t, "hostmaster.example.com"),
			Serial: 2026080100, Refresh: 3600, Retry: 600, Expire: 604800, Minimum: 300,
		},
	}))
	require.NoError(t, z.AddRecord(wire.RR{
		Name: origin, Type: wire.TypeNS, Class: wire.ClassIN, TTL: 3600,
		RData: wire.NewNS(label(t, "ns1.example.com")),
	}))
	require.NoError(t, z.AddRecord(wire.RR{
		Name: label(t, "www.example.com"), Type: wire.TypeA, Class: wire.ClassIN, TTL: 300,
		RData: &wire.RDataA{Addr: net.ParseIP("192.0.2.1").To4()},
	}))
	require.NoError(t, z.AddRecord(wire.RR{
		Name: label(t, "*.example.com"), Type: wire.TypeA, Class: wire.ClassIN, TTL: 300,
		RData: &wire.RDataA{Addr: net.ParseIP("192.0.2.2").To4()},
	}))
	return z
}

func TestAddRecordRejectsOutOfZone(t *testing.T) {
	z := newTestZone(t)
	err := z.AddRecord(wire.RR{Name: label(t, "www.other.com"), Type: wire.TypeA})
	assert.ErrorIs(t, err, wire.ErrDNS)
}

func TestGetRecordsExactMatch(t *testing.T) {
	z := newTestZone(t)
	rrs := z.GetRecords(label(t, "www.example.com"), wire.TypeA)
	require.Len(t, rrs, 1)
	assert.Equal(t, "www.example.com.", rrs[0].Name.String())
}

func TestGetRecordsWildcardMatch(t *testing.T) {
	z := newTestZone(t)
	rrs := z.GetRecords(label(t, "anything.example.com"), wire.TypeA)
	require.Len(t, rrs, 1)
	// wildcard hits are reowned to the queried name, not "*.example.com."
	assert.Equal(t, "anything.example.com.", rrs[0].Name.String())
}

func TestGetRecordsNoMatch(t *testing.T) {
	z := newTestZone(t)
	rrs := z.GetRecords(label(t, "www.example.com"), wire.TypeAAAA)
	assert.Nil(t, rrs)
}

func TestValidateRequiresSOAAndNS(t *testing.T) {
	z := New(label(t, "example.com"))
	err := z.Validate()
	assert.ErrorIs(t, err, wire.ErrDNS)
}

func TestValidatePasses(t *testing.T) {
	z := newTestZone(t)
	assert.NoError(t, z.Validate())
}

func TestValidateRejectsCNAMECoexistence(t *testing.T) {
	z := newTestZone(t)
	require.NoError(t, z.AddRecord(wire.RR{
		Name: label(t, "www.example.com"), Type: wire.TypeCNAME,
		RData: wire.NewCNAME(label(t, "other.example.com")),
	}))
	assert.ErrorIs(t, z.Validate(), wire.ErrDNS)
}

func TestIncrementSerial(t *testing.T) {
	z := newTestZone(t)
	soa := z.SOA.RData.(*wire.RDataSOA)
	before := soa.Serial
	require.NoError(t, z.IncrementSerial())
	assert.Greater(t, soa.Serial, before)
}

func TestStats(t *testing.T) {
	z := newTestZone(t)
	st := z.Stats()
	assert.Equal(t, 3, st.Owners) // apex, www, wildcard
	assert.GreaterOrEqual(t, st.Records, 4)
}
