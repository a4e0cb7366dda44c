package wire

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	registerRDATA(TypeSRV, decodeSRV)
	registerRDATA(TypeNAPTR, decodeNAPTR)
}

// RDataSRV is a service location record (RFC 2782). Target is never
// compressed on the wire per RFC 2782 §"Domain Name" note, though the
// Compressor still records its offset so later names may point into it.
type RDataSRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Label
}

func (r *RDataSRV) Type() uint16 { return TypeSRV }

func (r *RDataSRV) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint16(r.Priority)
	buf.WriteUint16(r.Weight)
	buf.WriteUint16(r.Port)
	c.WriteName(buf, r.Target, false)
	return nil
}

func (r *RDataSRV) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Priority, r.Weight, r.Port, r.Target)
}

func decodeSRV(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	srv := &RDataSRV{}
	var err error
	if srv.Priority, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: SRV priority: %v", ErrDNS, err)
	}
	if srv.Weight, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: SRV weight: %v", ErrDNS, err)
	}
	if srv.Port, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: SRV port: %v", ErrDNS, err)
	}
	if srv.Target, err = ReadName(buf, msg); err != nil {
		return nil, fmt.Errorf("%w: SRV target: %v", ErrDNS, err)
	}
	return srv, nil
}

// RDataNAPTR is a naming-authority pointer record (RFC 3403).
type RDataNAPTR struct {
	Order       uint16
	Preference  uint16
	Flags       []byte
	Services    []byte
	Regexp      []byte
	Replacement Label
}

func (r *RDataNAPTR) Type() uint16 { return TypeNAPTR }

func (r *RDataNAPTR) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint16(r.Order)
	buf.WriteUint16(r.Preference)
	if err := writeCharString(buf, r.Flags); err != nil {
		return fmt.Errorf("NAPTR flags: %w", err)
	}
	if err := writeCharString(buf, r.Services); err != nil {
		return fmt.Errorf("NAPTR services: %w", err)
	}
	if err := writeCharString(buf, r.Regexp); err != nil {
		return fmt.Errorf("NAPTR regexp: %w", err)
	}
	c.WriteName(buf, r.Replacement, false)
	return nil
}

func (r *RDataNAPTR) String() string {
	return fmt.Sprintf("%d %d %s %s %s %s", r.Order, r.Preference,
		quoteCharString(r.Flags), quoteCharString(r.Services), quoteCharString(r.Regexp), r.Replacement)
}

func decodeNAPTR(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	n := &RDataNAPTR{}
	var err error
	if n.Order, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: NAPTR order: %v", ErrDNS, err)
	}
	if n.Preference, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: NAPTR preference: %v", ErrDNS, err)
	}
	if n.Flags, err = readCharString(buf); err != nil {
		return nil, fmt.Errorf("%w: NAPTR flags: %v", ErrDNS, err)
	}
	if n.Services, err = readCharString(buf); err != nil {
		return nil, fmt.Errorf("%w: NAPTR services: %v", ErrDNS, err)
	}
	if n.Regexp, err = readCharString(buf); err != nil {
		return nil, fmt.Errorf("%w: NAPTR regexp: %v", ErrDNS, err)
	}
	if n.Replacement, err = ReadName(buf, msg); err != nil {
		return nil, fmt.Errorf("%w: NAPTR replacement: %v", ErrDNS, err)
	}
	return n, nil
}

// ParseUint16Field parses a decimal zone-text field into a uint16,
// wrapping ErrDNS on failure.
func ParseUint16Field(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: bad numeric field %q", ErrDNS, s)
	}
	return uint16(n), nil
}
