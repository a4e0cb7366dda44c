// Package txid generates cryptographically strong transaction IDs and
// source ports, the entropy a resolver relies on to resist response
// spoofing (the Kaminsky attack and its descendants): an off-path
// attacker must guess both the 16-bit transaction ID and the ephemeral
// source port before a forged reply will be accepted.
package txid

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrPortPoolExhausted = errors.New("no available ports in pool")
	ErrInvalidPortRange  = errors.New("invalid port range")
)

// New generates a cryptographically random 16-bit transaction ID.
// math/rand must never be used here: a predictable ID collapses the
// spoofing resistance this package exists to provide.
func New() uint16 {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return binary.BigEndian.Uint16(buf[:])
}

// SourcePort generates a random ephemeral source port for an outbound
// query, avoiding privileged and unassigned ranges.
func SourcePort() uint16 {
	const (
		minPort   = 32768
		portRange = 61000 - 32768
	)

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	offset := binary.BigEndian.Uint32(buf[:]) % portRange
	return uint16(minPort + offset)
}

// PortPool manages a pool of randomized, time-boxed source ports for a
// resolver making many concurrent upstream queries.
type PortPool struct {
	mu sync.Mutex

	minPort, maxPort int
	available        map[uint16]struct{}
	inUse            map[uint16]time.Time

	maxInUse     int
	portLifetime time.Duration

	allocated   uint64
	recycled    uint64
	exhaustions uint64
}

// PortPoolConfig configures a PortPool.
type PortPoolConfig struct {
	MinPort, MaxPort int
	MaxInUse         int
	PortLifetime     time.Duration
}

// NewPortPool constructs a PortPool, applying defaults for any zero field.
func NewPortPool(cfg PortPoolConfig) (*PortPool, error) {
	if cfg.MinPort == 0 {
		cfg.MinPort = 32768
	}
	if cfg.MaxPort == 0 {
		cfg.MaxPort = 61000
	}
	if cfg.MaxInUse == 0 {
		cfg.MaxInUse = 10000
	}
	if cfg.PortLifetime == 0 {
		cfg.PortLifetime = 2 * time.Minute
	}
	if cfg.MinPort >= cfg.MaxPort {
		return nil, ErrInvalidPortRange
	}
	if cfg.MinPort < 1024 {
		return nil, errors.New("min port must be >= 1024 (non-privileged)")
	}

	p := &PortPool{
		minPort:      cfg.MinPort,
		maxPort:      cfg.MaxPort,
		available:    make(map[uint16]struct{}, cfg.MaxPort-cfg.MinPort),
		inUse:        make(map[uint16]time.Time, cfg.MaxInUse),
		maxInUse:     cfg.MaxInUse,
		portLifetime: cfg.PortLifetime,
	}
	for port := cfg.MinPort; port < cfg.MaxPort; port++ {
		p.available[uint16(port)] = struct{}{}
	}
	go p.cleanupLoop()
	return p, nil
}

// Allocate reserves a random available port, recycling an expired
// in-use port if the available pool is empty.
func (p *PortPool) Allocate() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.available) > 0 {
		ports := make([]uint16, 0, len(p.available))
		for port := range p.available {
			ports = append(ports, port)
		}
		var buf [4]byte
		rand.Read(buf[:])
		idx := int(binary.BigEndian.Uint32(buf[:])) % len(ports)
		selected := ports[idx]

		delete(p.available, selected)
		p.inUse[selected] = time.Now()
		p.allocated++
		return selected, nil
	}

	now := time.Now()
	for port, allocated := range p.inUse {
		if now.Sub(allocated) > p.portLifetime {
			p.recycled++
			p.inUse[port] = now
			return port, nil
		}
	}

	p.exhaustions++
	return 0, ErrPortPoolExhausted
}

// Release returns a port to the pool.
func (p *PortPool) Release(port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
	if int(port) >= p.minPort && int(port) < p.maxPort {
		p.available[port] = struct{}{}
	}
}

func (p *PortPool) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		now := time.Now()
		for port, allocated := range p.inUse {
			if now.Sub(allocated) > p.portLifetime {
				delete(p.inUse, port)
				p.available[port] = struct{}{}
				p.recycled++
			}
		}
		p.mu.Unlock()
	}
}

// PoolStats reports PortPool occupancy and lifetime counters.
type PoolStats struct {
	Available   int
	InUse       int
	Allocated   uint64
	Recycled    uint64
	Exhaustions uint64
}

// Stats returns a snapshot of the pool's occupancy.
func (p *PortPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Available:   len(p.available),
		InUse:       len(p.inUse),
		Allocated:   p.allocated,
		Recycled:    p.recycled,
		Exhaustions: p.exhaustions,
	}
}

// QueryID pairs a transaction ID with the source port it was sent from,
// the full entropy a resolver checks before trusting a response.
type QueryID struct {
	TxID uint16
	Port uint16
}

// NewQueryID generates a fresh random QueryID.
func NewQueryID() QueryID {
	return QueryID{TxID: New(), Port: SourcePort()}
}

func (q QueryID) String() string {
	return fmt.Sprintf("txid=%d port=%d", q.TxID, q.Port)
}
