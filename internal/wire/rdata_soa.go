package wire

import "fmt"

func init() {
	registerRDATA(TypeSOA, decodeSOA)
}

// RDataSOA is a zone's start-of-authority record (RFC 1035 §3.3.13).
type RDataSOA struct {
	MName   Label
	RName   Label
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (r *RDataSOA) Type() uint16 { return TypeSOA }

func (r *RDataSOA) Pack(buf *Buffer, c *Compressor) error {
	c.WriteName(buf, r.MName, true)
	c.WriteName(buf, r.RName, true)
	buf.WriteUint32(r.Serial)
	buf.WriteUint32(r.Refresh)
	buf.WriteUint32(r.Retry)
	buf.WriteUint32(r.Expire)
	buf.WriteUint32(r.Minimum)
	return nil
}

func (r *RDataSOA) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", r.MName, r.RName, r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum)
}

func decodeSOA(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	mname, err := ReadName(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: SOA mname: %v", ErrDNS, err)
	}
	rname, err := ReadName(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: SOA rname: %v", ErrDNS, err)
	}
	soa := &RDataSOA{MName: mname, RName: rname}
	for _, field := range []*uint32{&soa.Serial, &soa.Refresh, &soa.Retry, &soa.Expire, &soa.Minimum} {
		v, err := buf.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: SOA timer field: %v", ErrDNS, err)
		}
		*field = v
	}
	return soa, nil
}
