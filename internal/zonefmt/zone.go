package zonefmt

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/dnsscience/dnscodec/internal/wire"
)

// ParseZone reads an RFC 1035 zone file from r and returns its records.
// origin qualifies any relative owner name; defaultTTL applies to any
// record that omits an explicit TTL field and appears before the first
// $TTL directive.
func ParseZone(r io.Reader, origin wire.Label, defaultTTL uint32) ([]wire.RR, error) {
	lines, err := logicalLines(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read zone: %v", wire.ErrDNS, err)
	}

	var rrs []wire.RR
	curOrigin := origin
	curTTL := defaultTTL
	var lastName wire.Label
	haveLastName := false

	for _, line := range lines {
		toks := fields(line)
		if len(toks) == 0 {
			continue
		}

		switch strings.ToUpper(toks[0]) {
		case "$TTL":
			if len(toks) < 2 {
				return nil, fmt.Errorf("%w: $TTL directive missing value", wire.ErrDNS)
			}
			ttl, err := strconv.ParseUint(toks[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: bad $TTL value %q: %v", wire.ErrDNS, toks[1], err)
			}
			curTTL = uint32(ttl)
			continue
		case "$ORIGIN":
			if len(toks) < 2 {
				return nil, fmt.Errorf("%w: $ORIGIN directive missing value", wire.ErrDNS)
			}
			o, err := wire.ParseLabel(toks[1])
			if err != nil {
				return nil, fmt.Errorf("%w: bad $ORIGIN %q: %v", wire.ErrDNS, toks[1], err)
			}
			curOrigin = o
			continue
		case "$INCLUDE":
			return nil, fmt.Errorf("%w: $INCLUDE is not supported", wire.ErrDNS)
		}

		rr, name, err := parseRecordLine(toks, curOrigin, curTTL, lastName, haveLastName)
		if err != nil {
			return nil, err
		}
		lastName = name
		haveLastName = true
		rrs = append(rrs, rr)
	}

	return rrs, nil
}

// qualifyName resolves "@", an absolute (trailing-dot) name, or a
// relative name against origin.
func qualifyName(text string, origin wire.Label) (wire.Label, error) {
	if text == "@" {
		return origin, nil
	}
	absolute := strings.HasSuffix(text, ".")
	l, err := wire.ParseLabel(text)
	if err != nil {
		return wire.Label{}, err
	}
	if absolute {
		return l, nil
	}
	return origin.Prepend(l.Labels()...), nil
}

func parseRecordLine(toks []string, origin wire.Label, defaultTTL uint32, lastName wire.Label, haveLastName bool) (wire.RR, wire.Label, error) {
	i := 0
	var name wire.Label
	var err error

	if isOwnerStart(toks[i]) {
		name, err = qualifyName(toks[i], origin)
		if err != nil {
			return wire.RR{}, wire.Label{}, fmt.Errorf("%w: owner name %q: %v", wire.ErrDNS, toks[i], err)
		}
		i++
	} else if haveLastName {
		name = lastName
	} else {
		return wire.RR{}, wire.Label{}, fmt.Errorf("%w: record has no owner name and none precedes it", wire.ErrDNS)
	}

	ttl := defaultTTL
	class := wire.ClassIN

	// TTL and class may appear in either order before the type.
	for i < len(toks)-1 {
		if n, err := strconv.ParseUint(toks[i], 10, 32); err == nil {
			ttl = uint32(n)
			i++
			continue
		}
		if code, err := wire.Classes.CodeOf(toks[i]); err == nil {
			class = code
			i++
			continue
		}
		break
	}

	if i >= len(toks) {
		return wire.RR{}, wire.Label{}, fmt.Errorf("%w: record %q missing type", wire.ErrDNS, strings.Join(toks, " "))
	}
	rtype, err := wire.RRTypes.CodeOf(toks[i])
	if err != nil {
		return wire.RR{}, wire.Label{}, fmt.Errorf("%w: unknown record type %q", wire.ErrDNS, toks[i])
	}
	i++

	rdata, err := parseRData(rtype, toks[i:], origin)
	if err != nil {
		return wire.RR{}, wire.Label{}, fmt.Errorf("%w: %s record %s: %v", wire.ErrDNS, toks[i-1], name, err)
	}

	return wire.RR{Name: name, Type: rtype, Class: class, TTL: ttl, RData: rdata}, name, nil
}

// isOwnerStart reports whether tok looks like an owner name rather than
// a TTL digit string or a class mnemonic. Type mnemonics are not ruled
// out, so a record line without an owner is only recognized as one when
// it starts with a TTL or a class. Zone files distinguish
// these positionally, not lexically, so callers must only consult this
// for the first token of a record line.
func isOwnerStart(tok string) bool {
	if tok == "@" {
		return true
	}
	if _, err := strconv.ParseUint(tok, 10, 32); err == nil {
		return false
	}
	if _, err := wire.Classes.CodeOf(tok); err == nil {
		return false
	}
	return true
}

func parseRData(rtype uint16, fields []string, origin wire.Label) (wire.RDATA, error) {
	switch rtype {
	case wire.TypeA:
		if len(fields) != 1 {
			return nil, fmt.Errorf("want 1 field, got %d", len(fields))
		}
		ip := net.ParseIP(fields[0]).To4()
		if ip == nil {
			return nil, fmt.Errorf("invalid IPv4 address %q", fields[0])
		}
		return &wire.RDataA{Addr: ip}, nil

	case wire.TypeAAAA:
		if len(fields) != 1 {
			return nil, fmt.Errorf("want 1 field, got %d", len(fields))
		}
		ip := net.ParseIP(fields[0])
		if ip == nil || ip.To4() != nil {
			return nil, fmt.Errorf("invalid IPv6 address %q", fields[0])
		}
		return &wire.RDataAAAA{Addr: ip}, nil

	case wire.TypeCNAME, wire.TypeNS, wire.TypePTR:
		if len(fields) != 1 {
			return nil, fmt.Errorf("want 1 field, got %d", len(fields))
		}
		target, err := qualifyName(fields[0], origin)
		if err != nil {
			return nil, err
		}
		switch rtype {
		case wire.TypeCNAME:
			return wire.NewCNAME(target), nil
		case wire.TypeNS:
			return wire.NewNS(target), nil
		default:
			return wire.NewPTR(target), nil
		}

	case wire.TypeMX:
		if len(fields) != 2 {
			return nil, fmt.Errorf("want 2 fields, got %d", len(fields))
		}
		pref, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad preference %q: %v", fields[0], err)
		}
		exch, err := qualifyName(fields[1], origin)
		if err != nil {
			return nil, err
		}
		return &wire.RDataMX{Preference: uint16(pref), Exchange: exch}, nil

	case wire.TypeSOA:
		if len(fields) != 7 {
			return nil, fmt.Errorf("want 7 fields, got %d", len(fields))
		}
		mname, err := qualifyName(fields[0], origin)
		if err != nil {
			return nil, err
		}
		rname, err := qualifyName(fields[1], origin)
		if err != nil {
			return nil, err
		}
		nums := make([]uint32, 5)
		for i, f := range fields[2:] {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad SOA field %q: %v", f, err)
			}
			nums[i] = uint32(n)
		}
		return &wire.RDataSOA{
			MName: mname, RName: rname,
			Serial: nums[0], Refresh: nums[1], Retry: nums[2], Expire: nums[3], Minimum: nums[4],
		}, nil

	case wire.TypeTXT:
		var strs [][]byte
		for _, f := range fields {
			s, err := wire.UnquoteCharString(f)
			if err != nil {
				return nil, err
			}
			strs = append(strs, s)
		}
		return &wire.RDataTXT{Strings: strs}, nil

	case wire.TypeSRV:
		if len(fields) != 4 {
			return nil, fmt.Errorf("want 4 fields, got %d", len(fields))
		}
		nums := make([]uint64, 3)
		for i, f := range fields[:3] {
			n, err := strconv.ParseUint(f, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("bad SRV field %q: %v", f, err)
			}
			nums[i] = n
		}
		target, err := qualifyName(fields[3], origin)
		if err != nil {
			return nil, err
		}
		return &wire.RDataSRV{
			Priority: uint16(nums[0]), Weight: uint16(nums[1]), Port: uint16(nums[2]), Target: target,
		}, nil

	case wire.TypeCAA:
		if len(fields) != 3 {
			return nil, fmt.Errorf("want 3 fields, got %d", len(fields))
		}
		flag, err := strconv.ParseUint(fields[0], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad CAA flag %q: %v", fields[0], err)
		}
		value, err := wire.UnquoteCharString(fields[2])
		if err != nil {
			return nil, err
		}
		return &wire.RDataCAA{Flag: uint8(flag), Tag: []byte(fields[1]), Value: value}, nil

	case wire.TypeNAPTR:
		if len(fields) != 6 {
			return nil, fmt.Errorf("want 6 fields, got %d", len(fields))
		}
		order, err := wire.ParseUint16Field(fields[0])
		if err != nil {
			return nil, err
		}
		pref, err := wire.ParseUint16Field(fields[1])
		if err != nil {
			return nil, err
		}
		flags, err := wire.UnquoteCharString(fields[2])
		if err != nil {
			return nil, fmt.Errorf("NAPTR flags: %w", err)
		}
		services, err := wire.UnquoteCharString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("NAPTR services: %w", err)
		}
		regexp, err := wire.UnquoteCharString(fields[4])
		if err != nil {
			return nil, fmt.Errorf("NAPTR regexp: %w", err)
		}
		replacement, err := qualifyName(fields[5], origin)
		if err != nil {
			return nil, err
		}
		return &wire.RDataNAPTR{
			Order: order, Preference: pref,
			Flags: flags, Services: services, Regexp: regexp,
			Replacement: replacement,
		}, nil

	case wire.TypeDS:
		if len(fields) != 4 {
			return nil, fmt.Errorf("want 4 fields, got %d", len(fields))
		}
		keyTag, err := wire.ParseUint16Field(fields[0])
		if err != nil {
			return nil, err
		}
		algorithm, err := parseUint8Field(fields[1])
		if err != nil {
			return nil, err
		}
		digestType, err := parseUint8Field(fields[2])
		if err != nil {
			return nil, err
		}
		digest, err := hex.DecodeString(strings.Join(fields[3:], ""))
		if err != nil {
			return nil, fmt.Errorf("bad DS digest: %v", err)
		}
		return &wire.RDataDS{KeyTag: keyTag, Algorithm: algorithm, DigestType: digestType, Digest: digest}, nil

	case wire.TypeSSHFP:
		if len(fields) != 3 {
			return nil, fmt.Errorf("want 3 fields, got %d", len(fields))
		}
		algorithm, err := parseUint8Field(fields[0])
		if err != nil {
			return nil, err
		}
		fpType, err := parseUint8Field(fields[1])
		if err != nil {
			return nil, err
		}
		fingerprint, err := hex.DecodeString(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bad SSHFP fingerprint: %v", err)
		}
		return &wire.RDataSSHFP{Algorithm: algorithm, FPType: fpType, Fingerprint: fingerprint}, nil

	case wire.TypeTLSA:
		if len(fields) != 4 {
			return nil, fmt.Errorf("want 4 fields, got %d", len(fields))
		}
		usage, err := parseUint8Field(fields[0])
		if err != nil {
			return nil, err
		}
		selector, err := parseUint8Field(fields[1])
		if err != nil {
			return nil, err
		}
		matchingType, err := parseUint8Field(fields[2])
		if err != nil {
			return nil, err
		}
		data, err := hex.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("bad TLSA data: %v", err)
		}
		return &wire.RDataTLSA{Usage: usage, Selector: selector, MatchingType: matchingType, Data: data}, nil

	case wire.TypeDNSKEY:
		if len(fields) != 4 {
			return nil, fmt.Errorf("want 4 fields, got %d", len(fields))
		}
		flags, err := wire.ParseUint16Field(fields[0])
		if err != nil {
			return nil, err
		}
		protocol, err := parseUint8Field(fields[1])
		if err != nil {
			return nil, err
		}
		algorithm, err := parseUint8Field(fields[2])
		if err != nil {
			return nil, err
		}
		key, err := base64.StdEncoding.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("bad DNSKEY public key: %v", err)
		}
		return &wire.RDataDNSKEY{Flags: flags, Protocol: protocol, Algorithm: algorithm, PublicKey: key}, nil

	case wire.TypeRRSIG:
		if len(fields) != 9 {
			return nil, fmt.Errorf("want 9 fields, got %d", len(fields))
		}
		typeCovered, err := wire.RRTypes.CodeOf(fields[0])
		if err != nil {
			return nil, fmt.Errorf("unknown type covered %q", fields[0])
		}
		algorithm, err := parseUint8Field(fields[1])
		if err != nil {
			return nil, err
		}
		labels, err := parseUint8Field(fields[2])
		if err != nil {
			return nil, err
		}
		origTTL, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad RRSIG orig ttl %q: %v", fields[3], err)
		}
		expiration, err := wire.ParseRRSIGTime(fields[4])
		if err != nil {
			return nil, err
		}
		inception, err := wire.ParseRRSIGTime(fields[5])
		if err != nil {
			return nil, err
		}
		keyTag, err := wire.ParseUint16Field(fields[6])
		if err != nil {
			return nil, err
		}
		signerName, err := qualifyName(fields[7], origin)
		if err != nil {
			return nil, err
		}
		signature, err := base64.StdEncoding.DecodeString(fields[8])
		if err != nil {
			return nil, fmt.Errorf("bad RRSIG signature: %v", err)
		}
		return &wire.RDataRRSIG{
			TypeCovered: typeCovered, Algorithm: algorithm, Labels: labels, OrigTTL: uint32(origTTL),
			Expiration: expiration, Inception: inception, KeyTag: keyTag,
			SignerName: signerName, Signature: signature,
		}, nil

	case wire.TypeNSEC:
		if len(fields) < 1 {
			return nil, fmt.Errorf("want at least 1 field, got %d", len(fields))
		}
		next, err := qualifyName(fields[0], origin)
		if err != nil {
			return nil, err
		}
		types := make([]uint16, 0, len(fields)-1)
		for _, f := range fields[1:] {
			t, err := wire.RRTypes.CodeOf(f)
			if err != nil {
				return nil, fmt.Errorf("unknown type %q in NSEC bitmap", f)
			}
			types = append(types, t)
		}
		return &wire.RDataNSEC{NextDomain: next, Types: types}, nil

	case wire.TypeSVCB, wire.TypeHTTPS:
		if len(fields) < 2 {
			return nil, fmt.Errorf("want at least 2 fields, got %d", len(fields))
		}
		priority, err := wire.ParseUint16Field(fields[0])
		if err != nil {
			return nil, err
		}
		target, err := qualifyName(fields[1], origin)
		if err != nil {
			return nil, err
		}
		params, err := parseSvcParams(fields[2:])
		if err != nil {
			return nil, err
		}
		return wire.NewSVCB(rtype, priority, target, params)

	default:
		return parseGenericRData(rtype, fields)
	}
}

func parseUint8Field(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("bad numeric field %q: %v", s, err)
	}
	return uint8(n), nil
}

// parseSvcParams parses the trailing SvcParam tokens of an SVCB/HTTPS
// record, each either a bare key mnemonic (e.g. "no-default-alpn") or a
// key=value pair (e.g. alpn="h2"). ALPN values are kept as their literal
// text bytes; every other key's value is hex-decoded, the inverse of
// RDataSVCB.String's default rendering.
func parseSvcParams(toks []string) ([]wire.SvcParam, error) {
	params := make([]wire.SvcParam, 0, len(toks))
	for _, tok := range toks {
		name, valueText, hasValue := strings.Cut(tok, "=")
		key, ok := wire.SvcParamKeyByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown SvcParamKey %q", name)
		}
		if !hasValue {
			params = append(params, wire.SvcParam{Key: key})
			continue
		}
		valueText = strings.Trim(valueText, `"`)
		var value []byte
		var err error
		if key == wire.SvcParamALPN {
			value = []byte(valueText)
		} else {
			value, err = hex.DecodeString(valueText)
			if err != nil {
				return nil, fmt.Errorf("bad SvcParam %q value: %v", name, err)
			}
		}
		params = append(params, wire.SvcParam{Key: key, Value: value})
	}
	return params, nil
}

// parseGenericRData handles the RFC 3597 "\# <len> <hex>" fallback form
// for any RR type without a dedicated text parser above.
func parseGenericRData(rtype uint16, fields []string) (wire.RDATA, error) {
	if len(fields) < 2 || fields[0] != `\#` {
		return nil, fmt.Errorf("no text parser for %s; expected generic \\# <len> <hex> form", wire.RRTypes.NameOf(rtype))
	}
	text := strings.Join(append([]string{`\#`}, fields[1:]...), " ")
	rr, err := wire.ParseGenericRData(rtype, text)
	if err != nil {
		return nil, err
	}
	return rr, nil
}

// RenderZone renders rrs as zone-file text, one record per line.
func RenderZone(rrs []wire.RR) string {
	var sb strings.Builder
	for _, rr := range rrs {
		sb.WriteString(rr.ZoneText())
		sb.WriteByte('\n')
	}
	return sb.String()
}
