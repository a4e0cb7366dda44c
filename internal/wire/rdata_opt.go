package wire

import (
	"fmt"
	"strings"
)

func init() {
	registerRDATA(TypeOPT, decodeOPT)
}

// EDNSOption is a single (code, data) pair carried in an OPT record
// (RFC 6891 §6.1.2). Option codes this codec does not interpret are kept
// as opaque data and round-trip unchanged.
type EDNSOption struct {
	Code uint16
	Data []byte
}

// RDataOPT is the EDNS0 pseudo-RR payload. The owning RR's TTL field
// carries the extended rcode, version and flag bits (RFC 6891 §6.1.3);
// decodeOPT/Pack only handle the option list, since those TTL bits live
// on the RR itself, not the RDATA.
type RDataOPT struct {
	Options []EDNSOption
}

func (r *RDataOPT) Type() uint16 { return TypeOPT }

func (r *RDataOPT) Pack(buf *Buffer, c *Compressor) error {
	for _, opt := range r.Options {
		buf.WriteUint16(opt.Code)
		buf.WriteUint16(uint16(len(opt.Data)))
		buf.WriteBytes(opt.Data)
	}
	return nil
}

func (r *RDataOPT) String() string {
	parts := make([]string, len(r.Options))
	for i, opt := range r.Options {
		parts[i] = fmt.Sprintf("%s=%x", EDNSOptions.NameOf(opt.Code), opt.Data)
	}
	return strings.Join(parts, " ")
}

// Get returns the data of the first option with the given code.
func (r *RDataOPT) Get(code uint16) ([]byte, bool) {
	for _, opt := range r.Options {
		if opt.Code == code {
			return opt.Data, true
		}
	}
	return nil, false
}

func decodeOPT(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	end := buf.Tell() + rdlength
	var opts []EDNSOption
	for buf.Tell() < end {
		code, err := buf.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("%w: EDNS option code: %v", ErrDNS, err)
		}
		length, err := buf.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("%w: EDNS option length: %v", ErrDNS, err)
		}
		data, err := buf.ReadBytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("%w: EDNS option data: %v", ErrDNS, err)
		}
		opts = append(opts, EDNSOption{Code: code, Data: data})
	}
	return &RDataOPT{Options: opts}, nil
}

// EDNS0 TTL-field bit layout (RFC 6891 §6.1.3).
const (
	ednsFlagDO uint32 = 1 << 15
)

// PackEDNSTTL assembles the TTL field of an OPT RR from its extended
// rcode, version and DO bit.
func PackEDNSTTL(extendedRcode, version uint8, do bool) uint32 {
	var ttl uint32
	ttl |= uint32(extendedRcode) << 24
	ttl |= uint32(version) << 16
	if do {
		ttl |= ednsFlagDO
	}
	return ttl
}

// UnpackEDNSTTL decomposes an OPT RR's TTL field.
func UnpackEDNSTTL(ttl uint32) (extendedRcode, version uint8, do bool) {
	extendedRcode = uint8(ttl >> 24)
	version = uint8(ttl >> 16)
	do = ttl&ednsFlagDO != 0
	return
}
