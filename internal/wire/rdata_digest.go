package wire

import (
	"encoding/hex"
	"fmt"
)

func init() {
	registerRDATA(TypeDS, decodeDS)
	registerRDATA(TypeSSHFP, decodeSSHFP)
	registerRDATA(TypeTLSA, decodeTLSA)
}

// RDataDS is a delegation-signer record (RFC 4034 §5).
type RDataDS struct {
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

func (r *RDataDS) Type() uint16 { return TypeDS }

func (r *RDataDS) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint16(r.KeyTag)
	buf.WriteUint8(r.Algorithm)
	buf.WriteUint8(r.DigestType)
	buf.WriteBytes(r.Digest)
	return nil
}

func (r *RDataDS) String() string {
	return fmt.Sprintf("%d %d %d %s", r.KeyTag, r.Algorithm, r.DigestType, hex.EncodeToString(r.Digest))
}

func decodeDS(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if rdlength < 4 {
		return nil, fmt.Errorf("%w: DS rdlength %d too short", ErrDNS, rdlength)
	}
	d := &RDataDS{}
	var err error
	if d.KeyTag, err = buf.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: DS key tag: %v", ErrDNS, err)
	}
	if d.Algorithm, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: DS algorithm: %v", ErrDNS, err)
	}
	if d.DigestType, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: DS digest type: %v", ErrDNS, err)
	}
	if d.Digest, err = buf.ReadBytes(rdlength - 4); err != nil {
		return nil, fmt.Errorf("%w: DS digest: %v", ErrDNS, err)
	}
	return d, nil
}

// RDataSSHFP is an SSH fingerprint record (RFC 4255).
type RDataSSHFP struct {
	Algorithm   uint8
	FPType      uint8
	Fingerprint []byte
}

func (r *RDataSSHFP) Type() uint16 { return TypeSSHFP }

func (r *RDataSSHFP) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint8(r.Algorithm)
	buf.WriteUint8(r.FPType)
	buf.WriteBytes(r.Fingerprint)
	return nil
}

func (r *RDataSSHFP) String() string {
	return fmt.Sprintf("%d %d %s", r.Algorithm, r.FPType, hex.EncodeToString(r.Fingerprint))
}

func decodeSSHFP(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if rdlength < 2 {
		return nil, fmt.Errorf("%w: SSHFP rdlength %d too short", ErrDNS, rdlength)
	}
	s := &RDataSSHFP{}
	var err error
	if s.Algorithm, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: SSHFP algorithm: %v", ErrDNS, err)
	}
	if s.FPType, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: SSHFP type: %v", ErrDNS, err)
	}
	if s.Fingerprint, err = buf.ReadBytes(rdlength - 2); err != nil {
		return nil, fmt.Errorf("%w: SSHFP fingerprint: %v", ErrDNS, err)
	}
	return s, nil
}

// RDataTLSA is a TLS association record (RFC 6698).
type RDataTLSA struct {
	Usage        uint8
	Selector     uint8
	MatchingType uint8
	Data         []byte
}

func (r *RDataTLSA) Type() uint16 { return TypeTLSA }

func (r *RDataTLSA) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint8(r.Usage)
	buf.WriteUint8(r.Selector)
	buf.WriteUint8(r.MatchingType)
	buf.WriteBytes(r.Data)
	return nil
}

func (r *RDataTLSA) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Usage, r.Selector, r.MatchingType, hex.EncodeToString(r.Data))
}

func decodeTLSA(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
	if rdlength < 3 {
		return nil, fmt.Errorf("%w: TLSA rdlength %d too short", ErrDNS, rdlength)
	}
	t := &RDataTLSA{}
	var err error
	if t.Usage, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: TLSA usage: %v", ErrDNS, err)
	}
	if t.Selector, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: TLSA selector: %v", ErrDNS, err)
	}
	if t.MatchingType, err = buf.ReadUint8(); err != nil {
		return nil, fmt.Errorf("%w: TLSA matching type: %v", ErrDNS, err)
	}
	if t.Data, err = buf.ReadBytes(rdlength - 3); err != nil {
		return nil, fmt.Errorf("%w: TLSA data: %v", ErrDNS, err)
	}
	return t, nil
}
