package wire

import "fmt"

// Header is the fixed 12-byte DNS message header (RFC 1035 §4.1.1). The
// four count fields are never stored independently of the sections they
// describe; Record recomputes them from slice lengths at Pack time, so a
// Header obtained from Parse reflects what was actually on the wire while
// a Header built programmatically can be left with zero counts.
type Header struct {
	ID      uint16
	QR      bool
	Opcode  uint8
	AA      bool
	TC      bool
	RD      bool
	RA      bool
	Z       bool
	AD      bool
	CD      bool
	Rcode   uint16 // full 12-bit rcode (RFC 6891 extends the base 4 bits)

	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

func (h Header) pack(buf *Buffer) {
	buf.WriteUint16(h.ID)

	var flags uint16
	if h.QR {
		flags |= 1 << 15
	}
	flags |= uint16(h.Opcode&0xF) << 11
	if h.AA {
		flags |= 1 << 10
	}
	if h.TC {
		flags |= 1 << 9
	}
	if h.RD {
		flags |= 1 << 8
	}
	if h.RA {
		flags |= 1 << 7
	}
	if h.Z {
		flags |= 1 << 6
	}
	if h.AD {
		flags |= 1 << 5
	}
	if h.CD {
		flags |= 1 << 4
	}
	flags |= uint16(h.Rcode & 0xF)
	buf.WriteUint16(flags)

	buf.WriteUint16(h.QDCount)
	buf.WriteUint16(h.ANCount)
	buf.WriteUint16(h.NSCount)
	buf.WriteUint16(h.ARCount)
}

func parseHeader(buf *Buffer) (Header, error) {
	var h Header
	var err error
	if h.ID, err = buf.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("%w: header id: %v", ErrDNS, err)
	}
	flags, err := buf.ReadUint16()
	if err != nil {
		return Header{}, fmt.Errorf("%w: header flags: %v", ErrDNS, err)
	}
	h.QR = flags&(1<<15) != 0
	h.Opcode = uint8((flags >> 11) & 0xF)
	h.AA = flags&(1<<10) != 0
	h.TC = flags&(1<<9) != 0
	h.RD = flags&(1<<8) != 0
	h.RA = flags&(1<<7) != 0
	h.Z = flags&(1<<6) != 0
	h.AD = flags&(1<<5) != 0
	h.CD = flags&(1<<4) != 0
	h.Rcode = flags & 0xF

	if h.QDCount, err = buf.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("%w: header qdcount: %v", ErrDNS, err)
	}
	if h.ANCount, err = buf.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("%w: header ancount: %v", ErrDNS, err)
	}
	if h.NSCount, err = buf.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("%w: header nscount: %v", ErrDNS, err)
	}
	if h.ARCount, err = buf.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("%w: header arcount: %v", ErrDNS, err)
	}
	return h, nil
}

// applyExtendedRcode folds the high 8 bits of an OPT record's extended
// rcode into Rcode, producing the full 12-bit value (RFC 6891 §6.1.3).
func (h *Header) applyExtendedRcode(extended uint8) {
	h.Rcode = uint16(extended)<<4 | (h.Rcode & 0xF)
}

// splitExtendedRcode returns the base 4-bit rcode and the extended top 8
// bits to place in an outgoing OPT record.
func (h Header) splitExtendedRcode() (base uint8, extended uint8) {
	return uint8(h.Rcode & 0xF), uint8(h.Rcode >> 4)
}
