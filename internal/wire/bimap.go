package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// BimapEntry is one (code, name) pair used to seed a Bimap.
type BimapEntry struct {
	Code uint16
	Name string
}

// Bimap is an immutable two-way mapping between small integer codes and
// symbolic names, used for record types, classes, opcodes, rcodes and
// EDNS option codes. It is process-wide constant data once constructed,
// per the "Bimap registries are process-wide constant tables" design
// note: nothing here mutates after NewBimap returns.
type Bimap struct {
	codeToName map[uint16]string
	nameToCode map[string]uint16
	unknown    func(uint16) string
	prefix     string
}

// NewBimap builds a Bimap from a source list of entries. prefix is the
// fallback prefix for a code with no entry: NameOf renders such a code as
// prefix plus its decimal value, and CodeOf accepts that form back (e.g.
// "TYPE", so that "TYPE65280" round-trips even though it was never one of
// entries).
func NewBimap(entries []BimapEntry, prefix string) *Bimap {
	b := &Bimap{
		codeToName: make(map[uint16]string, len(entries)),
		nameToCode: make(map[string]uint16, len(entries)),
		prefix:     prefix,
	}
	b.unknown = func(code uint16) string {
		return fmt.Sprintf("%s%d", prefix, code)
	}
	for _, e := range entries {
		b.codeToName[e.Code] = e.Name
		b.nameToCode[strings.ToUpper(e.Name)] = e.Code
	}
	return b
}

// NameOf returns the symbolic name for a code. It never fails: an
// unregistered code produces the synthesized fallback name.
func (b *Bimap) NameOf(code uint16) string {
	if name, ok := b.codeToName[code]; ok {
		return name
	}
	return b.unknown(code)
}

// CodeOf resolves a symbolic name back to its code. It accepts the
// canonical fallback form (e.g. "TYPE65280") in addition to registered
// mnemonics; anything else fails with ErrBimap.
func (b *Bimap) CodeOf(name string) (uint16, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if code, ok := b.nameToCode[upper]; ok {
		return code, nil
	}
	if strings.HasPrefix(upper, strings.ToUpper(b.prefix)) {
		numPart := upper[len(b.prefix):]
		if n, err := strconv.ParseUint(numPart, 10, 16); err == nil {
			return uint16(n), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mnemonic %q", ErrBimap, name)
}

// Has reports whether code has an explicit (non-fallback) entry.
func (b *Bimap) Has(code uint16) bool {
	_, ok := b.codeToName[code]
	return ok
}

// Record type codes (RFC 1035, RFC 3596, RFC 2782, RFC 3403, RFC 4034,
// RFC 6891, RFC 7344, RFC 8659, RFC 9460).
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeCNAME uint16 = 5
	TypeSOA   uint16 = 6
	TypePTR   uint16 = 12
	TypeMX    uint16 = 15
	TypeTXT   uint16 = 16
	TypeAAAA  uint16 = 28
	TypeSRV   uint16 = 33
	TypeNAPTR uint16 = 35
	TypeDS    uint16 = 43
	TypeSSHFP uint16 = 44
	TypeRRSIG uint16 = 46
	TypeNSEC  uint16 = 47
	TypeDNSKEY uint16 = 48
	TypeTLSA  uint16 = 52
	TypeSVCB  uint16 = 64
	TypeHTTPS uint16 = 65
	TypeOPT   uint16 = 41
	TypeCAA   uint16 = 257
)

// Class codes (RFC 1035).
const (
	ClassIN  uint16 = 1
	ClassCH  uint16 = 3
	ClassHS  uint16 = 4
	ClassANY uint16 = 255
)

// Opcode values (RFC 1035, RFC 1996, RFC 2136).
const (
	OpcodeQuery  uint8 = 0
	OpcodeIQuery uint8 = 1
	OpcodeStatus uint8 = 2
	OpcodeNotify uint8 = 4
	OpcodeUpdate uint8 = 5
)

// Rcode values (RFC 1035, RFC 6891, RFC 7873).
const (
	RcodeNoError   uint16 = 0
	RcodeFormErr   uint16 = 1
	RcodeServFail  uint16 = 2
	RcodeNXDomain  uint16 = 3
	RcodeNotImp    uint16 = 4
	RcodeRefused   uint16 = 5
	RcodeYXDomain  uint16 = 6
	RcodeYXRRSet   uint16 = 7
	RcodeNXRRSet   uint16 = 8
	RcodeNotAuth   uint16 = 9
	RcodeNotZone   uint16 = 10
	RcodeBadVers   uint16 = 16
	RcodeBadCookie uint16 = 23
)

// EDNS0 option codes (RFC 6891, RFC 7873, RFC 8914).
const (
	EDNS0Cookie         uint16 = 10
	EDNS0Padding        uint16 = 12
	EDNS0ExtendedError  uint16 = 15
)

// RRTypes maps rtype codes to their RFC 3597 "TYPE<n>" fallback mnemonic.
var RRTypes = NewBimap([]BimapEntry{
	{TypeA, "A"}, {TypeNS, "NS"}, {TypeCNAME, "CNAME"}, {TypeSOA, "SOA"},
	{TypePTR, "PTR"}, {TypeMX, "MX"}, {TypeTXT, "TXT"}, {TypeAAAA, "AAAA"},
	{TypeSRV, "SRV"}, {TypeNAPTR, "NAPTR"}, {TypeOPT, "OPT"},
	{TypeDS, "DS"}, {TypeSSHFP, "SSHFP"}, {TypeRRSIG, "RRSIG"},
	{TypeNSEC, "NSEC"}, {TypeDNSKEY, "DNSKEY"}, {TypeTLSA, "TLSA"},
	{TypeSVCB, "SVCB"}, {TypeHTTPS, "HTTPS"}, {TypeCAA, "CAA"},
}, "TYPE")

// Classes maps class codes to their RFC 3597 "CLASS<n>" fallback mnemonic.
var Classes = NewBimap([]BimapEntry{
	{ClassIN, "IN"}, {ClassCH, "CH"}, {ClassHS, "HS"}, {ClassANY, "ANY"},
}, "CLASS")

// Opcodes maps opcode values to mnemonics.
var Opcodes = NewBimap([]BimapEntry{
	{uint16(OpcodeQuery), "QUERY"}, {uint16(OpcodeIQuery), "IQUERY"},
	{uint16(OpcodeStatus), "STATUS"}, {uint16(OpcodeNotify), "NOTIFY"},
	{uint16(OpcodeUpdate), "UPDATE"},
}, "OPCODE")

// Rcodes maps response codes to mnemonics.
var Rcodes = NewBimap([]BimapEntry{
	{RcodeNoError, "NOERROR"}, {RcodeFormErr, "FORMERR"},
	{RcodeServFail, "SERVFAIL"}, {RcodeNXDomain, "NXDOMAIN"},
	{RcodeNotImp, "NOTIMP"}, {RcodeRefused, "REFUSED"},
	{RcodeYXDomain, "YXDOMAIN"}, {RcodeYXRRSet, "YXRRSET"},
	{RcodeNXRRSet, "NXRRSET"}, {RcodeNotAuth, "NOTAUTH"},
	{RcodeNotZone, "NOTZONE"}, {RcodeBadVers, "BADVERS"},
	{RcodeBadCookie, "BADCOOKIE"},
}, "RCODE")

// EDNSOptions maps EDNS0 option codes to mnemonics.
var EDNSOptions = NewBimap([]BimapEntry{
	{EDNS0Cookie, "COOKIE"}, {EDNS0Padding, "PADDING"},
	{EDNS0ExtendedError, "EDE"},
}, "OPT")
