package ratelimit

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies a per-client-IP token bucket to incoming queries,
// independent of the response-shape-aware Response Rate Limiter in rrl.go.
type Limiter struct {
	mu              sync.RWMutex
	limitersByIP    map[string]*rate.Limiter
	queriesPerSec   rate.Limit
	burstSize       int
	cleanupInterval time.Duration
	lastCleanup     time.Time
	exemptNets      []*net.IPNet
}

// Config configures a Limiter.
type Config struct {
	QueriesPerSecond float64
	BurstSize        int
	CleanupInterval  time.Duration
}

// DefaultConfig returns sane per-client defaults.
func DefaultConfig() Config {
	return Config{
		QueriesPerSecond: 100,
		BurstSize:        200,
		CleanupInterval:  5 * time.Minute,
	}
}

// NewLimiter constructs a Limiter from cfg.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		limitersByIP:    make(map[string]*rate.Limiter),
		queriesPerSec:   rate.Limit(cfg.QueriesPerSecond),
		burstSize:       cfg.BurstSize,
		cleanupInterval: cfg.CleanupInterval,
		lastCleanup:     time.Now(),
	}
}

// Allow reports whether a query from ip should proceed.
func (rl *Limiter) Allow(ip net.IP) bool {
	if rl.isExempt(ip) {
		return true
	}

	ipStr := ip.String()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > rl.cleanupInterval {
		rl.limitersByIP = make(map[string]*rate.Limiter)
		rl.lastCleanup = time.Now()
	}

	limiter, ok := rl.limitersByIP[ipStr]
	if !ok {
		limiter = rate.NewLimiter(rl.queriesPerSec, rl.burstSize)
		rl.limitersByIP[ipStr] = limiter
	}
	return limiter.Allow()
}

// AddExempt excludes a CIDR or single IP from rate limiting.
func (rl *Limiter) AddExempt(cidr string) error {
	ipnet, err := parseCIDROrIP(cidr)
	if err != nil {
		return err
	}
	rl.mu.Lock()
	rl.exemptNets = append(rl.exemptNets, ipnet)
	rl.mu.Unlock()
	return nil
}

func (rl *Limiter) isExempt(ip net.IP) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	for _, exempt := range rl.exemptNets {
		if exempt.Contains(ip) {
			return true
		}
	}
	return false
}

// Stats reports current Limiter occupancy.
type Stats struct {
	TrackedClients int
	ExemptNets     int
}

// Stats returns a snapshot of tracked client and exempt-net counts.
func (rl *Limiter) Stats() Stats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return Stats{TrackedClients: len(rl.limitersByIP), ExemptNets: len(rl.exemptNets)}
}
