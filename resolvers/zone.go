package resolvers

import (
	"context"
	"sync"

	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/wire"
	"github.com/dnsscience/dnscodec/internal/zonestore"
)

// Zone answers authoritatively from a loaded zonestore.Zone.
type Zone struct {
	mu   sync.RWMutex
	zone *zonestore.Zone
}

// NewZone wraps z for serving.
func NewZone(z *zonestore.Zone) *Zone {
	return &Zone{zone: z}
}

// Reload swaps in a freshly parsed zone, e.g. after a zone-text reload.
func (z *Zone) Reload(next *zonestore.Zone) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.zone = next
}

// Resolve implements resolverfw.ResolveFunc.
func (z *Zone) Resolve(_ context.Context, req *wire.Record, _ resolverfw.Handler) (*wire.Record, error) {
	z.mu.RLock()
	zone := z.zone
	z.mu.RUnlock()

	resp := req.Reply()
	resp.Header.AA = true
	q := req.Question[0]

	if !inZone(zone, q.Name) {
		resp.Header.Rcode = wire.RcodeRefused
		return resp, nil
	}

	if q.Type == wire.TypeCNAME {
		resp.Answer = zone.GetRecords(q.Name, wire.TypeCNAME)
	} else if cnames := zone.GetRecords(q.Name, wire.TypeCNAME); len(cnames) > 0 {
		// A CNAME owner answers every query type with the alias.
		resp.Answer = cnames
	} else {
		resp.Answer = zone.GetRecords(q.Name, q.Type)
	}

	if len(resp.Answer) == 0 {
		resp.Authority = nonNilSOA(zone)
	}
	return resp, nil
}

func inZone(z *zonestore.Zone, name wire.Label) bool {
	for walk := name; ; {
		if walk.Equal(z.Origin) {
			return true
		}
		if walk.IsRoot() {
			return false
		}
		walk = walk.Child()
	}
}

func nonNilSOA(z *zonestore.Zone) []wire.RR {
	if z.SOA == nil {
		return nil
	}
	return []wire.RR{*z.SOA}
}
