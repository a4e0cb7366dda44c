package wire

import "fmt"

// RR is a single resource record: owner name, type/class/ttl and decoded
// RDATA. For OPT pseudo-RRs the Class field carries the requestor's UDP
// payload size and TTL carries the extended rcode/version/flags, per RFC
// 6891 §6.1.2-6.1.3; RR itself does not special-case this, callers use
// UnpackEDNSTTL/PackEDNSTTL.
type RR struct {
	Name  Label
	Type  uint16
	Class uint16
	TTL   uint32
	RData RDATA
}

func (rr RR) pack(buf *Buffer, c *Compressor) error {
	c.WriteName(buf, rr.Name, true)
	buf.WriteUint16(rr.Type)
	buf.WriteUint16(rr.Class)
	buf.WriteUint32(rr.TTL)

	lenPos := buf.Tell()
	buf.WriteUint16(0) // RDLENGTH placeholder, backpatched below
	rdStart := buf.Tell()
	if err := rr.RData.Pack(buf, c); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDNS, RRTypes.NameOf(rr.Type), rr.Name, err)
	}
	rdLen := buf.Tell() - rdStart
	// PackUint16At only fails if lenPos is out of the already-written
	// range, which cannot happen here: we just wrote it ourselves.
	_ = buf.PackUint16At(lenPos, uint16(rdLen))
	return nil
}

func parseRR(buf *Buffer, msg []byte) (RR, error) {
	name, err := ReadName(buf, msg)
	if err != nil {
		return RR{}, fmt.Errorf("%w: rr name: %v", ErrDNS, err)
	}
	rtype, err := buf.ReadUint16()
	if err != nil {
		return RR{}, fmt.Errorf("%w: rr type: %v", ErrDNS, err)
	}
	class, err := buf.ReadUint16()
	if err != nil {
		return RR{}, fmt.Errorf("%w: rr class: %v", ErrDNS, err)
	}
	ttl, err := buf.ReadUint32()
	if err != nil {
		return RR{}, fmt.Errorf("%w: rr ttl: %v", ErrDNS, err)
	}
	rdlength, err := buf.ReadUint16()
	if err != nil {
		return RR{}, fmt.Errorf("%w: rr rdlength: %v", ErrDNS, err)
	}
	if buf.Remaining() < int(rdlength) {
		return RR{}, fmt.Errorf("%w: rr rdlength %d exceeds remaining message", ErrBuffer, rdlength)
	}
	rdata, err := decodeRDATA(rtype, buf, msg, int(rdlength))
	if err != nil {
		return RR{}, err
	}
	return RR{Name: name, Type: rtype, Class: class, TTL: ttl, RData: rdata}, nil
}

// String renders the RR in DiG presentation form: "NAME\tTTL\tCLASS\tTYPE\tRDATA".
func (rr RR) String() string {
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s", rr.Name, rr.TTL, Classes.NameOf(rr.Class), RRTypes.NameOf(rr.Type), rr.RData)
}

// ZoneText renders the RR the way a zone file would, identical in form
// to String; kept as a distinct method so zonefmt can evolve
// independently of DiG's rendering rules.
func (rr RR) ZoneText() string { return rr.String() }
