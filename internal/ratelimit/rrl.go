package ratelimit

import (
	"hash/fnv"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnsscience/dnscodec/internal/wire"
)

// Response Rate Limiting throttles the rate at which a resolver sends
// responses to a single client-prefix/qname/qtype/category tuple, the
// mitigation BIND 9 applies against reflection/amplification abuse.

// Category buckets a response by its shape, since abusive traffic
// clusters in NXDOMAIN/error responses rather than ordinary answers.
type Category int

const (
	CategoryResponse Category = iota
	CategoryError
	CategoryNXDomain
	CategoryReferral
	CategoryNodata
	CategoryAll
)

const (
	DefaultResponsesPerSecond = 5
	DefaultErrorsPerSecond    = 5
	DefaultNXDomainsPerSecond = 5
	DefaultWindow             = 15
	DefaultSlip               = 2
)

// RRLConfig configures a RateLimiter.
type RRLConfig struct {
	ResponsesPerSecond int
	ErrorsPerSecond    int
	NXDomainsPerSecond int
	ReferralsPerSecond int
	NodataPerSecond    int
	AllPerSecond       int

	Window int
	Slip   int

	ExemptPrefixes []*net.IPNet
	IPv4PrefixLen  int
	IPv6PrefixLen  int
	Enabled        bool
}

// DefaultRRLConfig returns recommended RRL defaults.
func DefaultRRLConfig() RRLConfig {
	return RRLConfig{
		ResponsesPerSecond: DefaultResponsesPerSecond,
		ErrorsPerSecond:    DefaultErrorsPerSecond,
		NXDomainsPerSecond: DefaultNXDomainsPerSecond,
		ReferralsPerSecond: 5,
		NodataPerSecond:    5,
		AllPerSecond:       100,
		Window:             DefaultWindow,
		Slip:               DefaultSlip,
		IPv4PrefixLen:      24,
		IPv6PrefixLen:      56,
		Enabled:            true,
	}
}

// Action is what a caller should do with a rate-limited response.
type Action int

const (
	ActionAllow Action = iota
	ActionDrop
	ActionSlip
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDrop:
		return "drop"
	case ActionSlip:
		return "slip"
	default:
		return "unknown"
	}
}

type rrlBucket struct {
	tokens    int32
	lastCheck int64
}

// RateLimiter implements per-response-shape Response Rate Limiting.
type RateLimiter struct {
	cfg RRLConfig

	buckets sync.Map

	allowed atomic.Uint64
	dropped atomic.Uint64
	slipped atomic.Uint64

	stopCleanup chan struct{}
	cleanupDone sync.WaitGroup
}

// NewRateLimiter constructs a RateLimiter from cfg.
func NewRateLimiter(cfg RRLConfig) *RateLimiter {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Slip == 0 {
		cfg.Slip = DefaultSlip
	}

	l := &RateLimiter{cfg: cfg, stopCleanup: make(chan struct{})}
	l.cleanupDone.Add(1)
	go l.cleanup()
	return l
}

// Check decides whether a response to clientIP answering qname/qtype in
// the given category should be sent, dropped, or truncated.
func (l *RateLimiter) Check(clientIP net.IP, qname string, qtype uint16, category Category) Action {
	if !l.cfg.Enabled || l.isExempt(clientIP) {
		l.allowed.Add(1)
		return ActionAllow
	}

	limit := l.limitFor(category)
	if limit == 0 {
		l.allowed.Add(1)
		return ActionAllow
	}

	hash := l.bucketHash(clientIP, qname, qtype, category)
	now := time.Now().Unix()

	bucketIface, _ := l.buckets.LoadOrStore(hash, &rrlBucket{
		tokens:    int32(limit * l.cfg.Window),
		lastCheck: now,
	})
	b := bucketIface.(*rrlBucket)

	lastCheck := atomic.LoadInt64(&b.lastCheck)
	if elapsed := now - lastCheck; elapsed > 0 {
		refill := int32(elapsed * int64(limit))
		maxTokens := int32(limit * l.cfg.Window)
		current := atomic.LoadInt32(&b.tokens)
		newTokens := current + refill
		if newTokens > maxTokens {
			newTokens = maxTokens
		}
		atomic.StoreInt32(&b.tokens, newTokens)
		atomic.StoreInt64(&b.lastCheck, now)
	}

	if tokens := atomic.AddInt32(&b.tokens, -1); tokens >= 0 {
		l.allowed.Add(1)
		return ActionAllow
	}
	atomic.AddInt32(&b.tokens, 1)

	if l.cfg.Slip > 0 && hash%uint64(l.cfg.Slip) == 0 {
		l.slipped.Add(1)
		return ActionSlip
	}
	l.dropped.Add(1)
	return ActionDrop
}

func (l *RateLimiter) isExempt(ip net.IP) bool {
	for _, prefix := range l.cfg.ExemptPrefixes {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

func (l *RateLimiter) limitFor(category Category) int {
	switch category {
	case CategoryResponse:
		return l.cfg.ResponsesPerSecond
	case CategoryError:
		return l.cfg.ErrorsPerSecond
	case CategoryNXDomain:
		return l.cfg.NXDomainsPerSecond
	case CategoryReferral:
		return l.cfg.ReferralsPerSecond
	case CategoryNodata:
		return l.cfg.NodataPerSecond
	default:
		return l.cfg.AllPerSecond
	}
}

func (l *RateLimiter) bucketHash(ip net.IP, qname string, qtype uint16, category Category) uint64 {
	h := fnv.New64a()
	h.Write(l.prefix(ip))
	h.Write([]byte(qname))
	var buf [4]byte
	buf[0] = byte(qtype >> 8)
	buf[1] = byte(qtype)
	buf[2] = byte(category >> 8)
	buf[3] = byte(category)
	h.Write(buf[:])
	return h.Sum64()
}

func (l *RateLimiter) prefix(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		prefixLen := l.cfg.IPv4PrefixLen
		if prefixLen == 0 {
			prefixLen = 24
		}
		return v4.Mask(net.CIDRMask(prefixLen, 32))
	}
	prefixLen := l.cfg.IPv6PrefixLen
	if prefixLen == 0 {
		prefixLen = 56
	}
	return ip.To16().Mask(net.CIDRMask(prefixLen, 128))
}

func (l *RateLimiter) cleanup() {
	defer l.cleanupDone.Done()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.performCleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *RateLimiter) performCleanup() {
	cutoff := time.Now().Unix() - int64(l.cfg.Window*2)
	l.buckets.Range(func(key, value interface{}) bool {
		b := value.(*rrlBucket)
		if atomic.LoadInt64(&b.lastCheck) < cutoff {
			l.buckets.Delete(key)
		}
		return true
	})
}

// Close stops the RateLimiter's background cleanup goroutine.
func (l *RateLimiter) Close() {
	close(l.stopCleanup)
	l.cleanupDone.Wait()
}

// RRLStats reports cumulative RateLimiter counters.
type RRLStats struct {
	Allowed  uint64
	Dropped  uint64
	Slipped  uint64
	Total    uint64
	DropRate float64
}

// Stats returns a snapshot of the limiter's counters.
func (l *RateLimiter) Stats() RRLStats {
	allowed := l.allowed.Load()
	dropped := l.dropped.Load()
	slipped := l.slipped.Load()
	total := allowed + dropped + slipped

	var dropRate float64
	if total > 0 {
		dropRate = float64(dropped) / float64(total)
	}
	return RRLStats{Allowed: allowed, Dropped: dropped, Slipped: slipped, Total: total, DropRate: dropRate}
}

// CategorizeResponse derives the RRL category of a reply from its rcode
// and section sizes.
func CategorizeResponse(rcode uint16, answerCount, nsCount int) Category {
	switch rcode {
	case wire.RcodeNoError:
		switch {
		case answerCount > 0:
			return CategoryResponse
		case nsCount > 0:
			return CategoryReferral
		default:
			return CategoryNodata
		}
	case wire.RcodeNXDomain:
		return CategoryNXDomain
	default:
		return CategoryError
	}
}
