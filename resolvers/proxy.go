package resolvers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/txid"
	"github.com/dnsscience/dnscodec/internal/wire"
)

// Proxy forwards each query to a single upstream resolver and relays its
// answer verbatim. It performs no iteration of its own: one query out,
// one response back, matching RFC 1035's forwarding (as opposed to
// recursive) resolution mode.
type Proxy struct {
	Upstream string
	Timeout  time.Duration
}

// NewProxy creates a Proxy forwarding to upstream ("host:port").
func NewProxy(upstream string) *Proxy {
	return &Proxy{Upstream: upstream, Timeout: 5 * time.Second}
}

// Resolve implements resolverfw.ResolveFunc.
func (p *Proxy) Resolve(ctx context.Context, req *wire.Record, h resolverfw.Handler) (*wire.Record, error) {
	data, err := req.Pack()
	if err != nil {
		return nil, fmt.Errorf("%w: pack query for forward: %v", wire.ErrDNS, err)
	}

	network := h.Network()
	if network == "" {
		network = "udp"
	}

	respData, err := p.forward(ctx, network, data)
	if err != nil {
		return nil, err
	}

	resp, err := wire.Parse(respData)
	if err != nil {
		return nil, fmt.Errorf("%w: parse upstream response: %v", wire.ErrDNS, err)
	}
	return resp, nil
}

func (p *Proxy) forward(ctx context.Context, network string, query []byte) ([]byte, error) {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := dialWithRandomSourcePort(ctx, d, network, p.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: dial upstream %s: %v", wire.ErrDNS, p.Upstream, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(p.Timeout))

	switch network {
	case "tcp":
		framed := make([]byte, 2+len(query))
		framed[0] = byte(len(query) >> 8)
		framed[1] = byte(len(query))
		copy(framed[2:], query)
		if _, err := conn.Write(framed); err != nil {
			return nil, fmt.Errorf("%w: write upstream query: %v", wire.ErrDNS, err)
		}
		var lenBuf [2]byte
		if _, err := readFullConn(conn, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: read upstream length: %v", wire.ErrDNS, err)
		}
		msgLen := int(lenBuf[0])<<8 | int(lenBuf[1])
		buf := make([]byte, msgLen)
		if _, err := readFullConn(conn, buf); err != nil {
			return nil, fmt.Errorf("%w: read upstream response: %v", wire.ErrDNS, err)
		}
		return buf, nil

	default:
		if _, err := conn.Write(query); err != nil {
			return nil, fmt.Errorf("%w: write upstream query: %v", wire.ErrDNS, err)
		}
		buf := make([]byte, wire.MaxMessageSize)
		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: read upstream response: %v", wire.ErrDNS, err)
		}
		return buf[:n], nil
	}
}

// dialWithRandomSourcePort picks a random UDP source port per forwarded
// query, for the same spoofing-resistance reason txid randomizes the
// query ID, falling back to the OS-assigned port if that one is taken.
func dialWithRandomSourcePort(ctx context.Context, d net.Dialer, network, addr string) (net.Conn, error) {
	if network == "udp" {
		withPort := d
		withPort.LocalAddr = &net.UDPAddr{Port: int(txid.SourcePort())}
		if conn, err := withPort.DialContext(ctx, network, addr); err == nil {
			return conn, nil
		}
	}
	return d.DialContext(ctx, network, addr)
}

func readFullConn(conn net.Conn, buf []byte) (int, error) {
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
