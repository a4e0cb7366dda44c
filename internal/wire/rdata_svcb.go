package wire

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func init() {
	registerRDATA(TypeSVCB, decodeSVCB(TypeSVCB))
	registerRDATA(TypeHTTPS, decodeSVCB(TypeHTTPS))
}

// SvcParam is one key-value service parameter (RFC 9460 §2.1).
type SvcParam struct {
	Key   uint16
	Value []byte
}

// Well-known SvcParamKey values (RFC 9460 §14.3.2).
const (
	SvcParamMandatory     uint16 = 0
	SvcParamALPN          uint16 = 1
	SvcParamNoDefaultALPN uint16 = 2
	SvcParamPort          uint16 = 3
	SvcParamIPv4Hint      uint16 = 4
	SvcParamECH           uint16 = 5
	SvcParamIPv6Hint      uint16 = 6
)

var svcParamNames = map[uint16]string{
	SvcParamMandatory:     "mandatory",
	SvcParamALPN:          "alpn",
	SvcParamNoDefaultALPN: "no-default-alpn",
	SvcParamPort:          "port",
	SvcParamIPv4Hint:      "ipv4hint",
	SvcParamECH:           "ech",
	SvcParamIPv6Hint:      "ipv6hint",
}

func svcParamName(key uint16) string {
	if name, ok := svcParamNames[key]; ok {
		return name
	}
	return fmt.Sprintf("key%d", key)
}

// SvcParamKeyByName resolves a zone-text SvcParamKey mnemonic (as
// produced by svcParamName, e.g. "alpn" or "key12") back to its numeric
// form, for text parsers outside this package.
func SvcParamKeyByName(name string) (uint16, bool) {
	for k, n := range svcParamNames {
		if n == name {
			return k, true
		}
	}
	if rest, ok := strings.CutPrefix(name, "key"); ok {
		if n, err := strconv.ParseUint(rest, 10, 16); err == nil {
			return uint16(n), true
		}
	}
	return 0, false
}

// NewSVCB constructs an SVCB or HTTPS RDATA value; rtype must be TypeSVCB
// or TypeHTTPS.
func NewSVCB(rtype uint16, priority uint16, target Label, params []SvcParam) (RDATA, error) {
	if rtype != TypeSVCB && rtype != TypeHTTPS {
		return nil, fmt.Errorf("%w: NewSVCB: type %s is not SVCB or HTTPS", ErrDNS, RRTypes.NameOf(rtype))
	}
	return &RDataSVCB{rtype: rtype, Priority: priority, Target: target, Params: params}, nil
}

// RDataSVCB is the shared wire format for SVCB and HTTPS records (RFC
// 9460 §2.2). The resolved Open Question here follows RFC 9460's text
// strictly rather than any historical draft quirk: SvcParams are read
// to the end of rdlength with no special-casing.
type RDataSVCB struct {
	rtype         uint16
	Priority      uint16
	Target        Label
	Params        []SvcParam
}

func (r *RDataSVCB) Type() uint16 { return r.rtype }

func (r *RDataSVCB) Pack(buf *Buffer, c *Compressor) error {
	buf.WriteUint16(r.Priority)
	// Target is never compressed (RFC 9460 §2.2).
	c.WriteName(buf, r.Target, false)
	params := append([]SvcParam(nil), r.Params...)
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })
	for _, p := range params {
		buf.WriteUint16(p.Key)
		buf.WriteUint16(uint16(len(p.Value)))
		buf.WriteBytes(p.Value)
	}
	return nil
}

func (r *RDataSVCB) String() string {
	parts := []string{fmt.Sprintf("%d", r.Priority), r.Target.String()}
	for _, p := range r.Params {
		if len(p.Value) == 0 {
			parts = append(parts, svcParamName(p.Key))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", svcParamName(p.Key), formatSvcParamValue(p.Key, p.Value)))
	}
	return strings.Join(parts, " ")
}

func formatSvcParamValue(key uint16, v []byte) string {
	switch key {
	case SvcParamALPN:
		return string(v)
	default:
		return fmt.Sprintf("%x", v)
	}
}

func decodeSVCB(rtype uint16) rdataDecoder {
	return func(buf *Buffer, msg []byte, rdlength int) (RDATA, error) {
		end := buf.Tell() + rdlength
		r := &RDataSVCB{rtype: rtype}
		var err error
		if r.Priority, err = buf.ReadUint16(); err != nil {
			return nil, fmt.Errorf("%w: SVCB priority: %v", ErrDNS, err)
		}
		if r.Target, err = ReadName(buf, msg); err != nil {
			return nil, fmt.Errorf("%w: SVCB target: %v", ErrDNS, err)
		}
		for buf.Tell() < end {
			key, err := buf.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("%w: SVCB param key: %v", ErrDNS, err)
			}
			length, err := buf.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("%w: SVCB param length: %v", ErrDNS, err)
			}
			value, err := buf.ReadBytes(int(length))
			if err != nil {
				return nil, fmt.Errorf("%w: SVCB param value: %v", ErrDNS, err)
			}
			r.Params = append(r.Params, SvcParam{Key: key, Value: value})
		}
		return r, nil
	}
}
