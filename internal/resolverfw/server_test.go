package resolverfw

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnscodec/internal/ratelimit"
	"github.com/dnsscience/dnscodec/internal/wire"
)

type fakeHandler struct{ addr net.Addr }

func (h fakeHandler) Peer() net.Addr  { return h.addr }
func (h fakeHandler) Network() string { return "udp" }

func newTestServer(t *testing.T, resolve ResolveFunc) *Server {
	t.Helper()
	cfg := Config{
		ACL:           ratelimit.NewACL(true),
		Limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		EnableCookies: false,
		EnableRRL:     false,
	}
	s, err := New(cfg, resolve)
	require.NoError(t, err)
	return s
}

func queryBytes(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	l, err := wire.ParseLabel(name)
	require.NoError(t, err)
	req := &wire.Record{
		Header:   wire.Header{ID: id, RD: true},
		Question: []wire.Question{{Name: l, Type: wire.TypeA, Class: wire.ClassIN}},
	}
	data, err := req.Pack()
	require.NoError(t, err)
	return data
}

func TestHandleQueryTXIDMismatchCausesServFail(t *testing.T) {
	resolve := func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error) {
		resp := req.Reply()
		resp.Header.ID ^= 0xFFFF // deliberately mismatched
		resp.Header.Rcode = wire.RcodeNoError
		return resp, nil
	}
	s := newTestServer(t, resolve)

	data := queryBytes(t, 7, "example.com")
	h := fakeHandler{addr: &net.UDPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5353}}

	out := s.handleQuery(context.Background(), data, h)
	require.NotNil(t, out)

	resp, err := wire.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wire.RcodeServFail, resp.Header.Rcode)
	assert.Equal(t, uint16(7), resp.Header.ID)
}

func TestHandleQuerySilentDropReturnsNoBytes(t *testing.T) {
	resolve := func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error) {
		return nil, nil
	}
	s := newTestServer(t, resolve)

	data := queryBytes(t, 9, "blocked.example.com")
	h := fakeHandler{addr: &net.UDPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5353}}

	out := s.handleQuery(context.Background(), data, h)
	assert.Nil(t, out)
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}

func TestHandleQueryHappyPath(t *testing.T) {
	resolve := func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error) {
		resp := req.Reply()
		resp.Header.Rcode = wire.RcodeNoError
		resp.Header.AA = true
		resp.Answer = []wire.RR{{
			Name: req.Question[0].Name, Type: wire.TypeA, Class: wire.ClassIN, TTL: 60,
			RData: &wire.RDataA{Addr: net.ParseIP("192.0.2.1")},
		}}
		return resp, nil
	}
	s := newTestServer(t, resolve)

	data := queryBytes(t, 11, "www.example.com")
	h := fakeHandler{addr: &net.UDPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5353}}

	out := s.handleQuery(context.Background(), data, h)
	require.NotNil(t, out)

	resp, err := wire.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wire.RcodeNoError, resp.Header.Rcode)
	assert.Equal(t, uint16(11), resp.Header.ID)
	require.Len(t, resp.Answer, 1)
}

func TestHandleQueryPanicBecomesServFail(t *testing.T) {
	resolve := func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error) {
		panic("boom")
	}
	s := newTestServer(t, resolve)

	data := queryBytes(t, 3, "example.com")
	h := fakeHandler{addr: &net.UDPAddr{IP: net.ParseIP("192.0.2.9"), Port: 5353}}

	out := s.handleQuery(context.Background(), data, h)
	require.NotNil(t, out)

	resp, err := wire.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wire.RcodeServFail, resp.Header.Rcode)
}

func TestHandleQueryACLDeniesBeforeResolve(t *testing.T) {
	called := false
	resolve := func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error) {
		called = true
		return req.Reply(), nil
	}
	s := newTestServer(t, resolve)
	s.cfg.ACL = ratelimit.NewACL(false)

	data := queryBytes(t, 4, "example.com")
	h := fakeHandler{addr: &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 5353}}

	out := s.handleQuery(context.Background(), data, h)
	require.NotNil(t, out)
	assert.False(t, called)

	resp, err := wire.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, wire.RcodeRefused, resp.Header.Rcode)
}
