package cookie

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dchest/siphash"
)

// RFC 7873: Domain Name System (DNS) Cookies
// RFC 9018: Interoperable Domain Name System (DNS) Server Cookies
//
// Cookies defend against off-path spoofing by letting client and server
// verify their communication partner without a full TCP-style handshake.
// The server cookie is SipHash-2-4(secret, client-cookie || client-IP ||
// version || timestamp), following BIND 9's approach.

var (
	ErrInvalidCookie       = errors.New("invalid cookie format")
	ErrInvalidClientCookie = errors.New("invalid client cookie")
	ErrInvalidServerCookie = errors.New("invalid server cookie")
	ErrExpiredCookie       = errors.New("server cookie expired")
	ErrBadCookie           = errors.New("bad cookie")
)

const (
	clientCookieSize = 8
	serverCookieSize = 8
	cookieVersion    = 1

	secretRotationInterval = 24 * time.Hour
)

// Manager handles DNS cookie generation and validation.
type Manager struct {
	mu sync.RWMutex

	currentSecret  [16]byte
	previousSecret [16]byte
	secretTime     time.Time

	enabled      bool
	requireValid bool

	clusterSecret [16]byte
	useCluster    bool

	totalQueries       atomic.Uint64
	queriesWithCookie  atomic.Uint64
	validCookies       atomic.Uint64
	invalidCookies     atomic.Uint64
	badCookieResponses atomic.Uint64
	cookiesGenerated   atomic.Uint64
}

// Config holds cookie manager configuration.
type Config struct {
	Enabled       bool
	RequireValid  bool
	ClusterSecret []byte
}

// NewManager creates a new DNS cookie manager.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		enabled:      cfg.Enabled,
		requireValid: cfg.RequireValid,
	}

	if cfg.ClusterSecret != nil && len(cfg.ClusterSecret) >= 16 {
		copy(m.clusterSecret[:], cfg.ClusterSecret)
		m.useCluster = true
		m.currentSecret = m.clusterSecret
	} else if err := m.rotateSecret(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) rotateSecret() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.useCluster {
		return nil
	}

	m.previousSecret = m.currentSecret
	if _, err := rand.Read(m.currentSecret[:]); err != nil {
		return err
	}
	m.secretTime = time.Now()
	return nil
}

// RotateSecretPeriodically runs secret rotation in the background until
// stop is closed.
func (m *Manager) RotateSecretPeriodically(stop <-chan struct{}) {
	ticker := time.NewTicker(secretRotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.rotateSecret()
		case <-stop:
			return
		}
	}
}

// GenerateClientCookie generates an 8-byte client cookie for outbound
// queries.
func GenerateClientCookie(clientIP, serverIP []byte) [8]byte {
	var cookie [8]byte
	var random [8]byte
	rand.Read(random[:])

	var key [16]byte
	rand.Read(key[:])

	h := siphash.New(key[:])
	h.Write(clientIP)
	h.Write(serverIP)
	h.Write(random[:])

	binary.LittleEndian.PutUint64(cookie[:], h.Sum64())
	return cookie
}

// GenerateServerCookie computes the server's half of the cookie pair.
func (m *Manager) GenerateServerCookie(clientCookie [8]byte, clientIP []byte) ([8]byte, error) {
	m.mu.RLock()
	secret := m.currentSecret
	m.mu.RUnlock()
	m.cookiesGenerated.Add(1)
	return m.computeServerCookie(secret, clientCookie, clientIP, time.Now())
}

// ValidateServerCookie validates a server cookie against the current and
// previous secrets, tolerating mid-rotation requests.
func (m *Manager) ValidateServerCookie(clientCookie [8]byte, serverCookie [8]byte, clientIP []byte) error {
	if !m.enabled {
		return nil
	}

	m.mu.RLock()
	current := m.currentSecret
	previous := m.previousSecret
	m.mu.RUnlock()

	expected, err := m.computeServerCookie(current, clientCookie, clientIP, time.Now())
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(serverCookie[:], expected[:]) == 1 {
		m.validCookies.Add(1)
		return nil
	}

	expected, err = m.computeServerCookie(previous, clientCookie, clientIP, time.Now())
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(serverCookie[:], expected[:]) == 1 {
		m.validCookies.Add(1)
		return nil
	}

	m.invalidCookies.Add(1)
	return ErrInvalidServerCookie
}

func (m *Manager) computeServerCookie(secret [16]byte, clientCookie [8]byte, clientIP []byte, t time.Time) ([8]byte, error) {
	var serverCookie [8]byte
	timestamp := uint32(t.Unix())

	h := siphash.New(secret[:])
	h.Write(clientCookie[:])
	h.Write(clientIP)
	h.Write([]byte{cookieVersion, 0, 0, 0})
	binary.Write(h, binary.BigEndian, timestamp)

	binary.LittleEndian.PutUint64(serverCookie[:], h.Sum64())
	return serverCookie, nil
}

// ParseCookie extracts client and server cookies from EDNS0 COOKIE
// option data.
func ParseCookie(data []byte) (clientCookie [8]byte, serverCookie []byte, err error) {
	if len(data) < clientCookieSize {
		return clientCookie, nil, ErrInvalidClientCookie
	}
	copy(clientCookie[:], data[:clientCookieSize])

	if len(data) > clientCookieSize {
		serverCookie = make([]byte, len(data)-clientCookieSize)
		copy(serverCookie, data[clientCookieSize:])
		if len(serverCookie) < 8 || len(serverCookie) > 32 {
			return clientCookie, nil, ErrInvalidServerCookie
		}
	}
	return clientCookie, serverCookie, nil
}

// FormatCookie creates EDNS0 COOKIE option data from a client/server pair.
func FormatCookie(clientCookie [8]byte, serverCookie []byte) []byte {
	data := make([]byte, clientCookieSize+len(serverCookie))
	copy(data[:clientCookieSize], clientCookie[:])
	copy(data[clientCookieSize:], serverCookie)
	return data
}

// ValidateQueryCookie validates an incoming query's cookie option and
// reports whether the server should respond BADCOOKIE.
func (m *Manager) ValidateQueryCookie(clientCookie [8]byte, serverCookie []byte, clientIP []byte) (badCookie bool, err error) {
	m.totalQueries.Add(1)
	if !m.enabled {
		return false, nil
	}

	if len(serverCookie) == 0 {
		return false, nil
	}
	m.queriesWithCookie.Add(1)

	if len(serverCookie) != serverCookieSize {
		if m.requireValid {
			m.badCookieResponses.Add(1)
			return true, ErrInvalidServerCookie
		}
		return false, nil
	}

	var sc [8]byte
	copy(sc[:], serverCookie)

	if err := m.ValidateServerCookie(clientCookie, sc, clientIP); err != nil {
		if m.requireValid {
			m.badCookieResponses.Add(1)
			return true, err
		}
		return false, nil
	}

	return false, nil
}

// Stats holds cumulative cookie-processing counters.
type Stats struct {
	TotalQueries       uint64
	QueriesWithCookie  uint64
	ValidCookies       uint64
	InvalidCookies     uint64
	BadCookieResponses uint64
	CookiesGenerated   uint64
}

// Stats returns a snapshot of the manager's cumulative counters.
func (m *Manager) Stats() Stats {
	return Stats{
		TotalQueries:       m.totalQueries.Load(),
		QueriesWithCookie:  m.queriesWithCookie.Load(),
		ValidCookies:       m.validCookies.Load(),
		InvalidCookies:     m.invalidCookies.Load(),
		BadCookieResponses: m.badCookieResponses.Load(),
		CookiesGenerated:   m.cookiesGenerated.Load(),
	}
}
