package wire

import (
	"fmt"
	"strings"
)

func init() {
	registerRDATA(TypeTXT, decodeTXT)
}

// RDataTXT is one or more character-strings (RFC 1035 §3.3.14). Each
// entry is independently length-prefixed on the wire and independently
// quoted in zone-text form.
type RDataTXT struct {
	Strings [][]byte
}

func (r *RDataTXT) Type() uint16 { return TypeTXT }

func (r *RDataTXT) Pack(buf *Buffer, c *Compressor) error {
	for _, s := range r.Strings {
		if err := writeCharString(buf, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *RDataTXT) String() string {
	parts := make([]string, len(r.Strings))
	for i, s := range r.Strings {
		parts[i] = quoteCharString(s)
	}
	return strings.Join(parts, " ")
}

func decodeTXT(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	end := buf.Tell() + rdlength
	var strs [][]byte
	for buf.Tell() < end {
		s, err := readCharString(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: TXT character-string: %v", ErrDNS, err)
		}
		strs = append(strs, s)
	}
	return &RDataTXT{Strings: strs}, nil
}

// writeCharString appends a single RFC 1035 §3.3 character-string
// (1-byte length prefix followed by up to 255 bytes).
func writeCharString(buf *Buffer, s []byte) error {
	if len(s) > 255 {
		return fmt.Errorf("%w: character-string of %d bytes exceeds 255-byte limit", ErrDNS, len(s))
	}
	buf.WriteUint8(uint8(len(s)))
	buf.WriteBytes(s)
	return nil
}

func readCharString(buf *Buffer) ([]byte, error) {
	n, err := buf.ReadUint8()
	if err != nil {
		return nil, err
	}
	return buf.ReadBytes(int(n))
}

// quoteCharString renders a character-string the way zone files and DiG
// do: double-quoted, with '"' and '\' backslash-escaped and any byte
// outside printable ASCII rendered as \DDD.
func quoteCharString(s []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range s {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c >= 0x7F:
			sb.WriteString(fmt.Sprintf("\\%03d", c))
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// UnquoteCharString parses the text form produced by quoteCharString back
// into raw bytes. A leading/trailing quote pair is optional on input.
func UnquoteCharString(text string) ([]byte, error) {
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	var out []byte
	b := []byte(text)
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			if isDigit(b[i+1]) && i+3 < len(b) && isDigit(b[i+2]) && isDigit(b[i+3]) {
				n := 0
				for j := 1; j <= 3; j++ {
					n = n*10 + int(b[i+j]-'0')
				}
				out = append(out, byte(n))
				i += 3
				continue
			}
			out = append(out, b[i+1])
			i++
			continue
		}
		out = append(out, b[i])
	}
	if len(out) > 255 {
		return nil, fmt.Errorf("%w: character-string exceeds 255 bytes", ErrDNS)
	}
	return out, nil
}
