package wire

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// RDATA is the decoded payload of a resource record. Each concrete type
// in this package implements it; an rtype the codec does not recognize
// still decodes successfully as rdataUnknown, per RFC 3597.
type RDATA interface {
	// Type returns the RR type this payload encodes as.
	Type() uint16
	// Pack appends the wire-format RDATA (without the leading RDLENGTH)
	// onto buf, using c to compress any embedded domain names that RFC
	// 1035 permits compressing. Pack fails only when the in-memory value
	// cannot be represented on the wire, e.g. a character-string longer
	// than 255 bytes.
	Pack(buf *Buffer, c *Compressor) error
	// String renders the RDATA in zone-file / DiG presentation form.
	String() string
}

// rdataDecoder parses exactly rdlength bytes of RDATA starting at the
// buffer's current cursor. Implementations must consume exactly rdlength
// bytes; decodeRDATA treats under- or over-consumption as ErrDNS.
type rdataDecoder func(buf *Buffer, msg []byte, rdlength int) (RDATA, error)

var rdataDecoders = map[uint16]rdataDecoder{}

func registerRDATA(rtype uint16, dec rdataDecoder) {
	rdataDecoders[rtype] = dec
}

// decodeRDATA dispatches to the registered decoder for rtype, falling
// back to the RFC 3597 opaque form for any type without one.
func decodeRDATA(rtype uint16, buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if dec, ok := rdataDecoders[rtype]; ok {
		start := buf.Tell()
		rd, err := dec(buf, msg, rdlength)
		if err != nil {
			return nil, err
		}
		if consumed := buf.Tell() - start; consumed != rdlength {
			return nil, fmt.Errorf("%w: rtype %s decoder consumed %d bytes, rdlength was %d", ErrDNS, RRTypes.NameOf(rtype), consumed, rdlength)
		}
		return rd, nil
	}
	return decodeUnknown(rtype, buf, rdlength)
}

// rdataUnknown is the RFC 3597 fallback representation for any RR type
// this codec has no dedicated decoder for: the raw RDATA bytes, rendered
// as "\# <len> <hex>".
type rdataUnknown struct {
	rtype uint16
	raw   []byte
}

func decodeUnknown(rtype uint16, buf *Buffer, rdlength int) (RDATA, error) {
	raw, err := buf.ReadBytes(rdlength)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown rdata for %s: %v", ErrDNS, RRTypes.NameOf(rtype), err)
	}
	return &rdataUnknown{rtype: rtype, raw: raw}, nil
}

func (r *rdataUnknown) Type() uint16 { return r.rtype }

func (r *rdataUnknown) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteBytes(r.raw)
	return nil
}

func (r *rdataUnknown) String() string {
	return fmt.Sprintf(`\# %d %s`, len(r.raw), hex.EncodeToString(r.raw))
}

// ParseGenericRData parses the RFC 3597 "\# <len> <hex>" generic form
// used by zone-text input for any rtype without a dedicated text parser.
func ParseGenericRData(rtype uint16, text string) (RDATA, error) {
	fields := strings.Fields(text)
	return parseGenericFields(rtype, fields)
}

func parseGenericFields(rtype uint16, fields []string) (RDATA, error) {
	if len(fields) < 2 || fields[0] != `\#` {
		return nil, fmt.Errorf("%w: expected \\# <len> <hex> generic rdata, got %q", ErrDNS, strings.Join(fields, " "))
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: bad generic rdata length %q", ErrDNS, fields[1])
	}
	raw, err := hex.DecodeString(strings.Join(fields[2:], ""))
	if err != nil {
		return nil, fmt.Errorf("%w: bad generic rdata hex: %v", ErrDNS, err)
	}
	if len(raw) != n {
		return nil, fmt.Errorf("%w: generic rdata length %d does not match declared %d", ErrDNS, len(raw), n)
	}
	return &rdataUnknown{rtype: rtype, raw: raw}, nil
}
