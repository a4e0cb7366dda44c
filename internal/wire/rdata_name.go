package wire

import "fmt"

func init() {
	registerRDATA(TypeCNAME, decodeCNAME)
	registerRDATA(TypeNS, decodeNS)
	registerRDATA(TypePTR, decodePTR)
}

// simpleNameRDATA backs CNAME, NS and PTR, which all carry a single
// compressible domain name as their entire RDATA (RFC 1035 §3.3).
type simpleNameRDATA struct {
	rtype uint16
	name  Label
}

func (r *simpleNameRDATA) Type() uint16 { return r.rtype }

func (r *simpleNameRDATA) Pack(buf *Buffer, c *Compressor) error {
	c.WriteName(buf, r.name, true)
	return nil
}

func (r *simpleNameRDATA) String() string { return r.name.String() }

func decodeSimpleName(rtype uint16) rdataDecoder {
	return func(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
		name, err := ReadName(buf, msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s rdata name: %v", ErrDNS, RRTypes.NameOf(rtype), err)
		}
		return &simpleNameRDATA{rtype: rtype, name: name}, nil
	}
}

var decodeCNAME = decodeSimpleName(TypeCNAME)
var decodeNS = decodeSimpleName(TypeNS)
var decodePTR = decodeSimpleName(TypePTR)

// NewCNAME constructs a CNAME RDATA value.
func NewCNAME(target Label) RDATA { return &simpleNameRDATA{rtype: TypeCNAME, name: target} }

// NewNS constructs an NS RDATA value.
func NewNS(target Label) RDATA { return &simpleNameRDATA{rtype: TypeNS, name: target} }

// NewPTR constructs a PTR RDATA value.
func NewPTR(target Label) RDATA { return &simpleNameRDATA{rtype: TypePTR, name: target} }
