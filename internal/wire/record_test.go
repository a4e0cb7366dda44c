package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLabel(t *testing.T, text string) Label {
	t.Helper()
	l, err := ParseLabel(text)
	require.NoError(t, err)
	return l
}

func TestRecordPackParseRoundTripA(t *testing.T) {
	name := mustLabel(t, "www.example.com")
	rec := &Record{
		Header:   Header{ID: 0x1234, QR: true, RD: true, RA: true},
		Question: []Question{{Name: name, Type: TypeA, Class: ClassIN}},
		Answer: []RR{
			{Name: name, Type: TypeA, Class: ClassIN, TTL: 300, RData: &RDataA{Addr: net.ParseIP("192.0.2.1")}},
		},
	}

	data, err := rec.Pack()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, rec.Header.ID, got.Header.ID)
	require.Len(t, got.Question, 1)
	assert.True(t, got.Question[0].Name.Equal(name))
	require.Len(t, got.Answer, 1)
	a, ok := got.Answer[0].RData.(*RDataA)
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", a.Addr.String())
}

func TestRecordPackRejectsOverlongTXTString(t *testing.T) {
	name := mustLabel(t, "txt.example.com")
	rec := &Record{
		Header:   Header{ID: 1},
		Question: []Question{{Name: name, Type: TypeTXT, Class: ClassIN}},
		Answer: []RR{
			{Name: name, Type: TypeTXT, Class: ClassIN, TTL: 60, RData: &RDataTXT{Strings: [][]byte{make([]byte, 256)}}},
		},
	}

	_, err := rec.Pack()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDNS)
}

func TestRecordQueryConstructionRoundTrip(t *testing.T) {
	name := mustLabel(t, "example.org")
	query := &Record{
		Header:   Header{ID: 0xBEEF, RD: true},
		Question: []Question{{Name: name, Type: TypeMX, Class: ClassIN}},
	}

	data, err := query.Pack()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), got.Header.ID)
	assert.False(t, got.Header.QR)
	assert.True(t, got.Header.RD)
	require.Len(t, got.Question, 1)
	assert.Equal(t, TypeMX, got.Question[0].Type)
}

func TestRecordReplySkeleton(t *testing.T) {
	name := mustLabel(t, "example.com")
	req := &Record{
		Header:   Header{ID: 42, RD: true},
		Question: []Question{{Name: name, Type: TypeA, Class: ClassIN}},
	}

	reply := req.Reply()
	assert.Equal(t, req.Header.ID, reply.Header.ID)
	assert.True(t, reply.Header.QR)
	assert.True(t, reply.Header.AA)
	assert.True(t, reply.Header.RA)
	assert.True(t, reply.Header.RD)
	assert.Empty(t, reply.Answer)
	require.Len(t, reply.Question, 1)
	assert.True(t, reply.Question[0].Name.Equal(name))

	// mutating the reply's question slice must not affect the request's.
	reply.Question[0].Type = TypeAAAA
	assert.Equal(t, TypeA, req.Question[0].Type)
}

func TestParseRejectsCompressionPointerCycle(t *testing.T) {
	// header with QDCount=1, then a name whose single label points at
	// itself, forming an infinite compression loop.
	data := []byte{
		0, 0, // ID
		0, 0, // flags
		0, 1, // QDCount
		0, 0, 0, 0, // ANCount, NSCount
		0, 0, // ARCount
		0xC0, 12, // pointer to offset 12, i.e. itself
		0, byte(TypeA), 0, byte(ClassIN),
	}

	_, err := Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuffer)
}

func TestParseNeverPanicsOnRandomBytes(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		make([]byte, 11),
		{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for _, in := range inputs {
		_, err := Parse(in)
		// Either a clean error or a successful parse; the contract is
		// simply that it never panics (the deferred recover in Parse
		// would surface as an ErrDNS-wrapped error, not a crash).
		_ = err
	}
}
