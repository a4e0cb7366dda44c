package zonefmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnscodec/internal/wire"
)

func mustLabel(t *testing.T, text string) wire.Label {
	t.Helper()
	l, err := wire.ParseLabel(text)
	require.NoError(t, err)
	return l
}

func TestParseZoneMultilineSOA(t *testing.T) {
	zone := `
$TTL 300
example.com.	3600	IN	SOA	ns1.example.com. hostmaster.example.com. (
					2026080100 ; serial
					3600       ; refresh
					600        ; retry
					604800     ; expire
					300 )      ; minimum
example.com.	3600	IN	NS	ns1.example.com.
www	IN	A	192.0.2.1
	IN	A	192.0.2.2
`
	rrs, err := ParseZone(strings.NewReader(zone), mustLabel(t, "example.com"), 300)
	require.NoError(t, err)
	require.Len(t, rrs, 4)

	soa, ok := rrs[0].RData.(*wire.RDataSOA)
	require.True(t, ok)
	assert.Equal(t, uint32(2026080100), soa.Serial)
	assert.Equal(t, uint32(300), soa.Minimum)

	assert.Equal(t, "ns1.example.com.", rrs[1].RData.String())

	// "www" without a trailing dot continuation carries through
	// to the unqualified follow-on record on the next line.
	assert.Equal(t, "www.example.com.", rrs[2].Name.String())
	assert.Equal(t, "www.example.com.", rrs[3].Name.String())
	assert.Equal(t, wire.TypeA, rrs[3].Type)
}

func TestParseZoneRejectsInclude(t *testing.T) {
	zone := "$INCLUDE other.zone\n"
	_, err := ParseZone(strings.NewReader(zone), mustLabel(t, "example.com"), 300)
	assert.ErrorIs(t, err, wire.ErrDNS)
}

func TestParseZoneFallsBackToGenericRData(t *testing.T) {
	zone := `exotic.example.com. 300 IN TYPE65280 \# 4 DEADBEEF` + "\n"
	rrs, err := ParseZone(strings.NewReader(zone), mustLabel(t, "example.com"), 300)
	require.NoError(t, err)
	require.Len(t, rrs, 1)
	assert.Equal(t, uint16(65280), rrs[0].Type)
}

// zoneRoundTrip parses a single zone-text record, renders it back, and
// reparses the rendering, asserting both parses produce the identical
// in-memory RDATA value — a real grammar round trip, not a fall back to
// the generic RFC 3597 hex form.
func zoneRoundTrip(t *testing.T, line string) wire.RR {
	t.Helper()
	origin := mustLabel(t, "example.com")
	rrs, err := ParseZone(strings.NewReader(line+"\n"), origin, 300)
	require.NoError(t, err)
	require.Len(t, rrs, 1)

	rendered := RenderZone(rrs)
	reparsed, err := ParseZone(strings.NewReader(rendered), origin, 300)
	require.NoError(t, err)
	require.Len(t, reparsed, 1)
	assert.Equal(t, rrs[0].RData.String(), reparsed[0].RData.String())
	return rrs[0]
}

func TestParseZoneNAPTR(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN NAPTR 100 10 "U" "E2U+sip" "!^.*$!sip:info@example.com!" .`)
	naptr, ok := rr.RData.(*wire.RDataNAPTR)
	require.True(t, ok)
	assert.Equal(t, uint16(100), naptr.Order)
	assert.Equal(t, "E2U+sip", string(naptr.Services))
}

func TestParseZoneDS(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN DS 12345 8 2 49FD46E6C4B45C55D4AC069C16BF1B1A2E70BBF9FAF61E24E4459B45D5FA2D55`)
	ds, ok := rr.RData.(*wire.RDataDS)
	require.True(t, ok)
	assert.Equal(t, uint16(12345), ds.KeyTag)
	assert.Equal(t, uint8(2), ds.DigestType)
}

func TestParseZoneSSHFP(t *testing.T) {
	rr := zoneRoundTrip(t, `host.example.com. 300 IN SSHFP 2 1 123456789ABCDEF67890123456789ABCDEF67890`)
	fp, ok := rr.RData.(*wire.RDataSSHFP)
	require.True(t, ok)
	assert.Equal(t, uint8(2), fp.Algorithm)
}

func TestParseZoneTLSA(t *testing.T) {
	rr := zoneRoundTrip(t, `_443._tcp.example.com. 300 IN TLSA 3 1 1 0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF`)
	tlsa, ok := rr.RData.(*wire.RDataTLSA)
	require.True(t, ok)
	assert.Equal(t, uint8(3), tlsa.Usage)
}

func TestParseZoneDNSKEY(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN DNSKEY 257 3 8 AwEAAagtesting==`)
	key, ok := rr.RData.(*wire.RDataDNSKEY)
	require.True(t, ok)
	assert.Equal(t, uint16(257), key.Flags)
}

func TestParseZoneRRSIG(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN RRSIG A 8 2 300 20260901000000 20260801000000 12345 example.com. c2lnbmF0dXJl`)
	sig, ok := rr.RData.(*wire.RDataRRSIG)
	require.True(t, ok)
	assert.Equal(t, wire.TypeA, sig.TypeCovered)
	assert.Equal(t, uint16(12345), sig.KeyTag)
}

func TestParseZoneNSEC(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN NSEC www.example.com. A NS SOA MX RRSIG`)
	nsec, ok := rr.RData.(*wire.RDataNSEC)
	require.True(t, ok)
	assert.Equal(t, "www.example.com.", nsec.NextDomain.String())
	assert.Contains(t, nsec.Types, wire.TypeMX)
}

func TestParseZoneSVCB(t *testing.T) {
	rr := zoneRoundTrip(t, `example.com. 300 IN HTTPS 1 . alpn="h2" ipv4hint="c0000201" no-default-alpn`)
	svcb, ok := rr.RData.(*wire.RDataSVCB)
	require.True(t, ok)
	assert.Equal(t, wire.TypeHTTPS, svcb.Type())
	assert.Equal(t, uint16(1), svcb.Priority)
	require.Len(t, svcb.Params, 3)
}

func TestRenderZoneRoundTrip(t *testing.T) {
	origin := mustLabel(t, "example.com")
	rrs := []wire.RR{
		{Name: origin, Type: wire.TypeNS, Class: wire.ClassIN, TTL: 3600, RData: wire.NewNS(mustLabel(t, "ns1.example.com"))},
	}
	text := RenderZone(rrs)
	assert.Contains(t, text, "example.com.")
	assert.Contains(t, text, "NS")

	reparsed, err := ParseZone(strings.NewReader(text), origin, 3600)
	require.NoError(t, err)
	require.Len(t, reparsed, 1)
	assert.Equal(t, wire.TypeNS, reparsed[0].Type)
}

func TestParseDigReconstructsRecord(t *testing.T) {
	transcript := `
;; ->>HEADER<<- opcode: QUERY, status: NOERROR, id: 12345
;; flags: qr rd ra; QUERY: 1, ANSWER: 1, AUTHORITY: 0, ADDITIONAL: 0

;; QUESTION SECTION:
;www.example.com.	IN	A

;; ANSWER SECTION:
www.example.com.	300	IN	A	192.0.2.1
`
	recs, err := ParseDig(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, uint16(12345), rec.Header.ID)
	assert.True(t, rec.Header.QR)
	assert.True(t, rec.Header.RD)
	assert.True(t, rec.Header.RA)
	require.Len(t, rec.Question, 1)
	assert.Equal(t, "www.example.com.", rec.Question[0].Name.String())
	require.Len(t, rec.Answer, 1)
	a, ok := rec.Answer[0].RData.(*wire.RDataA)
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", a.Addr.String())
}

func TestParseDigReconstructsOPTPseudoSectionWithDOBit(t *testing.T) {
	transcript := `
;; ->>HEADER<<- opcode: QUERY, status: NOERROR, id: 99

;; OPT PSEUDOSECTION:
; EDNS: version: 0, flags: do; udp: 4096

;; QUESTION SECTION:
;example.com.	IN	A
`
	recs, err := ParseDig(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	require.Len(t, rec.Additional, 1)
	opt := rec.Additional[0]
	assert.Equal(t, wire.TypeOPT, opt.Type)
	assert.Equal(t, uint16(4096), opt.Class)

	extended, version, do := wire.UnpackEDNSTTL(opt.TTL)
	assert.Equal(t, uint8(0), extended)
	assert.Equal(t, uint8(0), version)
	assert.True(t, do)
}

func TestParseDigReconstructsOPTWithoutDOBit(t *testing.T) {
	transcript := `
;; ->>HEADER<<- opcode: QUERY, status: NOERROR, id: 100

;; OPT PSEUDOSECTION:
; EDNS: version: 0, flags: ; udp: 512
`
	recs, err := ParseDig(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Additional, 1)

	_, _, do := wire.UnpackEDNSTTL(recs[0].Additional[0].TTL)
	assert.False(t, do)
}
