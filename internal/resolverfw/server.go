// Package resolverfw is the UDP/TCP server shell a DNS resolver is built
// on top of: it owns the listeners, the worker pool, and the security
// gauntlet (ACL, per-client rate limiting, Response Rate Limiting, DNS
// Cookies) a query passes through before reaching caller-supplied
// resolution logic.
package resolverfw

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnsscience/dnscodec/internal/cookie"
	"github.com/dnsscience/dnscodec/internal/eventbus"
	"github.com/dnsscience/dnscodec/internal/metrics"
	"github.com/dnsscience/dnscodec/internal/pool"
	"github.com/dnsscience/dnscodec/internal/ratelimit"
	"github.com/dnsscience/dnscodec/internal/wire"
	"github.com/dnsscience/dnscodec/internal/worker"
)

// Handler identifies the transport a query arrived on.
type Handler interface {
	Peer() net.Addr
	Network() string // "udp" or "tcp"
}

// ResolveFunc answers a parsed query. The reply must carry the request's
// ID (req.Reply() copies it); the server sends SERVFAIL in place of any
// reply whose ID differs. The server copies the request's question
// section into the reply afterward, so a ResolveFunc otherwise only needs
// to set Header.Rcode/AA/RA and the answer/authority/additional sections.
// Returning (nil, nil) asks the server to drop the query silently.
type ResolveFunc func(ctx context.Context, req *wire.Record, h Handler) (*wire.Record, error)

// Config configures a Server.
type Config struct {
	UDPAddr        string
	TCPAddr        string
	TCPIdleTimeout time.Duration
	MaxUDPSize     int

	Workers worker.Config

	EnableCookies bool
	CookieConfig  cookie.Config

	EnableRRL bool
	RRLConfig ratelimit.RRLConfig

	ACL     *ratelimit.ACL
	Limiter *ratelimit.Limiter

	Metrics *metrics.Metrics
	Bus     *eventbus.Bus
}

// DefaultConfig returns the daemon's built-in defaults.
func DefaultConfig() Config {
	return Config{
		UDPAddr:        ":53",
		TCPAddr:        ":53",
		TCPIdleTimeout: 120 * time.Second,
		MaxUDPSize:     4096,

		EnableCookies: true,
		CookieConfig:  cookie.Config{Enabled: true},

		EnableRRL: true,
		RRLConfig: ratelimit.DefaultRRLConfig(),

		ACL: ratelimit.NewACL(true),
	}
}

// Server is a DNS resolver framework: listeners plus the security
// gauntlet, dispatching to a caller-supplied ResolveFunc.
type Server struct {
	cfg     Config
	resolve ResolveFunc

	cookies *cookie.Manager
	rrl     *ratelimit.RateLimiter
	pool    *worker.Pool

	udpConn     *net.UDPConn
	tcpListener *net.TCPListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queries atomic.Uint64
	answers atomic.Uint64
	errors  atomic.Uint64
	dropped atomic.Uint64
}

// New constructs a Server that dispatches to resolve.
func New(cfg Config, resolve ResolveFunc) (*Server, error) {
	if resolve == nil {
		return nil, fmt.Errorf("%w: resolve function is nil", wire.ErrDNS)
	}
	if cfg.ACL == nil {
		cfg.ACL = ratelimit.NewACL(true)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		resolve: resolve,
		pool:    worker.NewPool(cfg.Workers),
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.EnableCookies {
		mgr, err := cookie.NewManager(cfg.CookieConfig)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("init cookies: %w", err)
		}
		s.cookies = mgr
	}
	if cfg.EnableRRL {
		s.rrl = ratelimit.NewRateLimiter(cfg.RRLConfig)
	}

	return s, nil
}

// ListenAndServe binds the UDP and TCP listeners and begins serving
// queries. It returns once both listeners are bound; serving continues
// in background goroutines until Close is called.
func (s *Server) ListenAndServe() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.cfg.UDPAddr)
	if err != nil {
		return fmt.Errorf("resolve udp addr: %w", err)
	}
	s.udpConn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("resolve tcp addr: %w", err)
	}
	s.tcpListener, err = net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}

	s.wg.Add(2)
	go s.serveUDP()
	go s.serveTCP()

	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(s.ctx, eventbus.TopicServer, "listening")
	}
	return nil
}

// Close stops accepting new work and waits for in-flight queries to
// finish.
func (s *Server) Close() error {
	s.cancel()
	if s.udpConn != nil {
		s.udpConn.Close()
	}
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	s.wg.Wait()
	s.pool.Close()
	if s.rrl != nil {
		s.rrl.Close()
	}
	return nil
}

type udpHandler struct{ addr *net.UDPAddr }

func (h udpHandler) Peer() net.Addr  { return h.addr }
func (h udpHandler) Network() string { return "udp" }

type tcpHandler struct{ addr net.Addr }

func (h tcpHandler) Peer() net.Addr  { return h.addr }
func (h tcpHandler) Network() string { return "tcp" }

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	default:
		return nil
	}
}

func (s *Server) serveUDP() {
	defer s.wg.Done()
	maxSize := s.cfg.MaxUDPSize
	if maxSize <= 0 {
		maxSize = 4096
	}

	for {
		buf := pool.GetBuffer(maxSize)
		n, addr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			pool.PutBuffer(buf)
			select {
			case <-s.ctx.Done():
				return
			default:
				continue
			}
		}

		data := append([]byte(nil), buf[:n]...)
		pool.PutBuffer(buf)
		h := udpHandler{addr: addr}

		if err := s.pool.SubmitAsync(s.ctx, worker.JobFunc(func(ctx context.Context) error {
			resp := s.handleQuery(ctx, data, h)
			if resp == nil {
				return nil
			}
			_, werr := s.udpConn.WriteToUDP(resp, addr)
			return werr
		})); err != nil {
			s.dropped.Add(1)
		}
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.WorkerQueueDepth.Set(float64(s.pool.QueueDepth()))
		}
	}
}

func (s *Server) serveTCP() {
	defer s.wg.Done()
	for {
		conn, err := s.tcpListener.AcceptTCP()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.serveTCPConn(conn)
	}
}

func (s *Server) serveTCPConn(conn *net.TCPConn) {
	defer s.wg.Done()
	defer conn.Close()

	h := tcpHandler{addr: conn.RemoteAddr()}
	idle := s.cfg.TCPIdleTimeout
	if idle <= 0 {
		idle = 120 * time.Second
	}

	var lenBuf [2]byte
	for {
		conn.SetReadDeadline(time.Now().Add(idle))

		if _, err := readFull(conn, lenBuf[:]); err != nil {
			return
		}
		msgLen := int(lenBuf[0])<<8 | int(lenBuf[1])
		if msgLen == 0 || msgLen > wire.MaxMessageSize {
			return
		}

		data := make([]byte, msgLen)
		if _, err := readFull(conn, data); err != nil {
			return
		}

		resp := s.handleQuery(s.ctx, data, h)
		if resp == nil {
			continue
		}

		out := make([]byte, 2+len(resp))
		out[0] = byte(len(resp) >> 8)
		out[1] = byte(len(resp))
		copy(out[2:], resp)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// handleQuery runs a raw datagram through the security gauntlet and the
// caller's ResolveFunc, returning the packed response to send, or nil if
// the query should be dropped with no response.
func (s *Server) handleQuery(ctx context.Context, data []byte, h Handler) []byte {
	s.queries.Add(1)
	clientIP := peerIP(h.Peer())

	req, err := wire.Parse(data)
	if err != nil {
		s.errors.Add(1)
		return nil
	}
	if len(req.Question) == 0 {
		s.errors.Add(1)
		return nil
	}

	if !s.cfg.ACL.IsAllowed(clientIP) {
		s.dropped.Add(1)
		return s.packError(req, wire.RcodeRefused)
	}
	if s.cfg.Limiter != nil && !s.cfg.Limiter.Allow(clientIP) {
		s.dropped.Add(1)
		return nil
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveQuery(h.Network(), wire.Opcodes.NameOf(uint16(req.Header.Opcode)))
	}

	clientCookie, serverCookie, haveCookie := requestCookie(req)
	if s.cookies != nil && haveCookie {
		bad, _ := s.cookies.ValidateQueryCookie(clientCookie, serverCookie, clientIP)
		if bad {
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.CookieBadCount.Inc()
			}
			resp := req.Reply()
			resp.Header.Rcode = wire.RcodeBadCookie
			s.attachCookie(resp, clientIP, clientCookie)
			return s.pack(resp)
		}
	}

	start := time.Now()
	resp, rerr := s.safeResolve(ctx, req, h)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.QueryDuration.WithLabelValues(h.Network()).Observe(time.Since(start).Seconds())
	}
	if rerr != nil {
		s.errors.Add(1)
		return s.packError(req, wire.RcodeServFail)
	}

	if resp == nil {
		// A ResolveFunc returning (nil, nil) is asking for the query to
		// be dropped with no response, e.g. an RPZ DROP action.
		s.dropped.Add(1)
		return nil
	}

	if resp.Header.ID != req.Header.ID {
		if s.cfg.Bus != nil {
			s.cfg.Bus.Publish(ctx, eventbus.TopicResolve, fmt.Sprintf("txid mismatch for query id %d", req.Header.ID))
		}
		s.errors.Add(1)
		return s.packError(req, wire.RcodeServFail)
	}
	resp.Question = req.Question

	if s.cookies != nil && haveCookie {
		s.attachCookie(resp, clientIP, clientCookie)
	}

	if s.rrl != nil && h.Network() == "udp" {
		category := ratelimit.CategorizeResponse(resp.Header.Rcode, len(resp.Answer), len(resp.Authority))
		switch s.rrl.Check(clientIP, req.Question[0].Name.String(), req.Question[0].Type, category) {
		case ratelimit.ActionDrop:
			s.dropped.Add(1)
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.RateLimitDropped.Inc()
			}
			return nil
		case ratelimit.ActionSlip:
			resp.Header.TC = true
			resp.Answer = nil
			resp.Authority = nil
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.RateLimitDropped.Inc()
			}
		}
	}

	s.answers.Add(1)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveResponse(wire.Rcodes.NameOf(resp.Header.Rcode))
	}
	return s.pack(resp)
}

// safeResolve calls the ResolveFunc, converting a panic into an error so
// a caller bug cannot take the listener goroutine down with it.
func (s *Server) safeResolve(ctx context.Context, req *wire.Record, h Handler) (resp *wire.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%w: resolve panicked: %v", wire.ErrDNS, r)
		}
	}()
	return s.resolve(ctx, req, h)
}

func (s *Server) pack(rec *wire.Record) []byte {
	data, err := rec.Pack()
	if err != nil {
		return nil
	}
	return data
}

func (s *Server) packError(req *wire.Record, rcode uint16) []byte {
	resp := req.Reply()
	resp.Header.Rcode = rcode
	return s.pack(resp)
}

func requestCookie(req *wire.Record) (client [8]byte, server []byte, ok bool) {
	for _, rr := range req.Additional {
		if rr.Type != wire.TypeOPT {
			continue
		}
		opt, isOPT := rr.RData.(*wire.RDataOPT)
		if !isOPT {
			continue
		}
		data, found := opt.Get(wire.EDNS0Cookie)
		if !found {
			continue
		}
		c, srv, err := cookie.ParseCookie(data)
		if err != nil {
			return client, nil, false
		}
		return c, srv, true
	}
	return client, nil, false
}

// attachCookie adds a fresh server cookie for clientIP to resp's OPT
// record, creating one if the resolver didn't already add it.
func (s *Server) attachCookie(resp *wire.Record, clientIP net.IP, clientCookie [8]byte) {
	serverCookie, err := s.cookies.GenerateServerCookie(clientCookie, clientIP)
	if err != nil {
		return
	}
	data := cookie.FormatCookie(clientCookie, serverCookie[:])

	for i := range resp.Additional {
		if resp.Additional[i].Type != wire.TypeOPT {
			continue
		}
		opt, isOPT := resp.Additional[i].RData.(*wire.RDataOPT)
		if !isOPT {
			continue
		}
		opt.Options = append(opt.Options, wire.EDNSOption{Code: wire.EDNS0Cookie, Data: data})
		return
	}

	resp.Additional = append(resp.Additional, wire.RR{
		Name:  wire.Root,
		Type:  wire.TypeOPT,
		Class: 4096,
		RData: &wire.RDataOPT{Options: []wire.EDNSOption{{Code: wire.EDNS0Cookie, Data: data}}},
	})
}

// Stats reports cumulative server counters.
type Stats struct {
	Queries uint64
	Answers uint64
	Errors  uint64
	Dropped uint64
	RRL     *ratelimit.RRLStats
}

// Stats returns a snapshot of the server's counters.
func (s *Server) Stats() Stats {
	st := Stats{
		Queries: s.queries.Load(),
		Answers: s.answers.Load(),
		Errors:  s.errors.Load(),
		Dropped: s.dropped.Load(),
	}
	if s.rrl != nil {
		rrl := s.rrl.Stats()
		st.RRL = &rrl
	}
	return st
}
