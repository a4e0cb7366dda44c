package resolvers

import (
	"context"

	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/rpz"
	"github.com/dnsscience/dnscodec/internal/wire"
)

// Intercept forwards to an upstream like Proxy, but first checks the
// query against an RPZ rule chain: a matching rule can block, rewrite,
// or pass the query through before it ever reaches the upstream.
type Intercept struct {
	Upstream *Proxy
	Policy   *rpz.Aggregate
}

// NewIntercept wraps upstream with policy.
func NewIntercept(upstream *Proxy, policy *rpz.Aggregate) *Intercept {
	return &Intercept{Upstream: upstream, Policy: policy}
}

// Resolve implements resolverfw.ResolveFunc.
func (ic *Intercept) Resolve(ctx context.Context, req *wire.Record, h resolverfw.Handler) (*wire.Record, error) {
	resp := req.Reply()

	if ic.Policy != nil {
		rule, action := ic.Policy.Check(req.Question[0].Name)
		if rule != nil && action == rpz.ActionDrop {
			return nil, nil
		}
		if ic.Policy.ApplyToRecord(req, resp) {
			return resp, nil
		}
	}

	return ic.Upstream.Resolve(ctx, req, h)
}
