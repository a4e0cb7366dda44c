package wire

import "fmt"

func init() {
	registerRDATA(TypeMX, decodeMX)
}

// RDataMX is a mail exchange record (RFC 1035 §3.3.9).
type RDataMX struct {
	Preference uint16
	Exchange   Label
}

func (r *RDataMX) Type() uint16 { return TypeMX }

func (r *RDataMX) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint16(r.Preference)
	c.WriteName(buf, r.Exchange, true)
	return nil
}

func (r *RDataMX) String() string {
	return fmt.Sprintf("%d %s", r.Preference, r.Exchange)
}

func decodeMX(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	pref, err := buf.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: MX preference: %v", ErrDNS, err)
	}
	exch, err := ReadName(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: MX exchange: %v", ErrDNS, err)
	}
	return &RDataMX{Preference: pref, Exchange: exch}, nil
}
