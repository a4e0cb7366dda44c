package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dnsscience/dnscodec/internal/txid"
	"github.com/dnsscience/dnscodec/internal/wire"
)

var (
	server  = flag.String("server", "127.0.0.1:53", "DNS server address (host:port)")
	qtype   = flag.String("type", "A", "Query type")
	qclass  = flag.String("class", "IN", "Query class")
	network = flag.String("net", "udp", "Transport: udp or tcp")
	timeout = flag.Duration("timeout", 5*time.Second, "Query timeout")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: dnsclient [flags] <name>")
		os.Exit(2)
	}

	name, err := wire.ParseLabel(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad name %q: %v\n", args[0], err)
		os.Exit(1)
	}
	rtype, err := wire.RRTypes.CodeOf(*qtype)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown query type %q: %v\n", *qtype, err)
		os.Exit(1)
	}
	class, err := wire.Classes.CodeOf(*qclass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown query class %q: %v\n", *qclass, err)
		os.Exit(1)
	}

	req := &wire.Record{
		Header:   wire.Header{ID: txid.New(), RD: true},
		Question: []wire.Question{{Name: name, Type: rtype, Class: class}},
	}

	resp, rtt, err := send(req, *server, *network, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(resp.String())
	fmt.Printf(";; Query time: %d msec\n", rtt.Milliseconds())
	fmt.Printf(";; SERVER: %s (%s)\n", *server, *network)

	if resp.Header.Rcode != wire.RcodeNoError {
		os.Exit(1)
	}
}

func send(req *wire.Record, addr, network string, timeout time.Duration) (*wire.Record, time.Duration, error) {
	data, err := req.Pack()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: pack query: %v", wire.ErrDNS, err)
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial(network, addr)
	if err != nil {
		return nil, 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	start := time.Now()

	if network == "tcp" {
		framed := make([]byte, 2+len(data))
		framed[0] = byte(len(data) >> 8)
		framed[1] = byte(len(data))
		copy(framed[2:], data)
		if _, err := conn.Write(framed); err != nil {
			return nil, 0, fmt.Errorf("write query: %w", err)
		}
		var lenBuf [2]byte
		if _, err := readFull(conn, lenBuf[:]); err != nil {
			return nil, 0, fmt.Errorf("read response length: %w", err)
		}
		msgLen := int(lenBuf[0])<<8 | int(lenBuf[1])
		buf := make([]byte, msgLen)
		if _, err := readFull(conn, buf); err != nil {
			return nil, 0, fmt.Errorf("read response: %w", err)
		}
		rtt := time.Since(start)
		resp, err := wire.Parse(buf)
		return resp, rtt, err
	}

	if _, err := conn.Write(data); err != nil {
		return nil, 0, fmt.Errorf("write query: %w", err)
	}
	buf := make([]byte, wire.MaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	rtt := time.Since(start)
	resp, err := wire.Parse(buf[:n])
	return resp, rtt, err
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
