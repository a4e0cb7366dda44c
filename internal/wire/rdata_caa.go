package wire

import "fmt"

func init() {
	registerRDATA(TypeCAA, decodeCAA)
}

// RDataCAA is a certification authority authorization record (RFC 8659).
type RDataCAA struct {
	Flag  uint8
	Tag   []byte
	Value []byte
}

func (r *RDataCAA) Type() uint16 { return TypeCAA }

func (r *RDataCAA) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint8(r.Flag)
	buf.WriteUint8(uint8(len(r.Tag)))
	buf.WriteBytes(r.Tag)
	buf.WriteBytes(r.Value)
	return nil
}

func (r *RDataCAA) String() string {
	return fmt.Sprintf("%d %s %q", r.Flag, r.Tag, r.Value)
}

func decodeCAA(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	end := buf.Tell() + rdlength
	c := &RDataCAA{}
	var err error
	if c.Flag, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: CAA flag: %v", ErrDNS, err)
	}
	taglen, err := buf.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: CAA tag length: %v", ErrDNS, err)
	}
	if c.Tag, err = buf.ReadBytes(int(taglen)); err != nil {
		return nil, fmt.Errorf("%w: CAA tag: %v", ErrDNS, err)
	}
	if buf.Tell() > end {
		return nil, fmt.Errorf("%w: CAA tag overruns rdlength", ErrDNS)
	}
	if c.Value, err = buf.ReadBytes(end - buf.Tell()); err != nil {
		return nil, fmt.Errorf("%w: CAA value: %v", ErrDNS, err)
	}
	return c, nil
}
