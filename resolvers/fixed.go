// Package resolvers holds example resolverfw.ResolveFunc implementations:
// a static record set, an authoritative zone, a shell-out resolver, a
// single-pass forwarder, and a forwarder with RPZ-style overrides.
package resolvers

import (
	"context"
	"sync"

	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/wire"
)

// Fixed answers every query for a configured owner/type pair from a
// static, in-memory record set. Anything else gets NXDOMAIN.
type Fixed struct {
	mu      sync.RWMutex
	records map[string]map[uint16][]wire.RR
}

// NewFixed creates an empty Fixed resolver.
func NewFixed() *Fixed {
	return &Fixed{records: make(map[string]map[uint16][]wire.RR)}
}

// Add registers rr to be returned for queries matching its owner and type.
func (f *Fixed) Add(rr wire.RR) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rr.Name.CanonicalKey()
	if f.records[key] == nil {
		f.records[key] = make(map[uint16][]wire.RR)
	}
	f.records[key][rr.Type] = append(f.records[key][rr.Type], rr)
}

// Resolve implements resolverfw.ResolveFunc.
func (f *Fixed) Resolve(_ context.Context, req *wire.Record, _ resolverfw.Handler) (*wire.Record, error) {
	resp := req.Reply()
	resp.Header.AA = true

	q := req.Question[0]
	f.mu.RLock()
	rrs := f.records[q.Name.CanonicalKey()][q.Type]
	f.mu.RUnlock()

	if len(rrs) == 0 {
		resp.Header.Rcode = wire.RcodeNXDomain
		return resp, nil
	}
	resp.Answer = rrs
	return resp, nil
}
