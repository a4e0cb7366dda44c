package wire

import (
	"fmt"
	"net"
)

func init() {
	registerRDATA(TypeA, decodeA)
	registerRDATA(TypeAAAA, decodeAAAA)
}

// RDataA is an IPv4 address record (RFC 1035 §3.4.1).
type RDataA struct {
	Addr net.IP
}

func (r *RDataA) Type() uint16 { return TypeA }

func (r *RDataA) Pack(buf *Buffer, c *Compressor) error {
	v4 := r.Addr.To4()
	if v4 == nil {
		v4 = make(net.IP, 4)
	}
	buf.WriteBytes(v4)
	return nil
}

func (r *RDataA) String() string { return r.Addr.String() }

func decodeA(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if rdlength != 4 {
		return nil, fmt.Errorf("%w: A rdata length %d, want 4", ErrDNS, rdlength)
	}
	raw, err := buf.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: A rdata: %v", ErrDNS, err)
	}
	return &RDataA{Addr: net.IP(raw)}, nil
}

// RDataAAAA is an IPv6 address record (RFC 3596 §2.2).
type RDataAAAA struct {
	Addr net.IP
}

func (r *RDataAAAA) Type() uint16 { return TypeAAAA }

func (r *RDataAAAA) Pack(buf *Buffer, c *Compressor) error {
	v6 := r.Addr.To16()
	if v6 == nil {
		v6 = make(net.IP, 16)
	}
	buf.WriteBytes(v6)
	return nil
}

func (r *RDataAAAA) String() string { return r.Addr.String() }

func decodeAAAA(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if rdlength != 16 {
		return nil, fmt.Errorf("%w: AAAA rdata length %d, want 16", ErrDNS, rdlength)
	}
	raw, err := buf.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("%w: AAAA rdata: %v", ErrDNS, err)
	}
	return &RDataAAAA{Addr: net.IP(raw)}, nil
}
