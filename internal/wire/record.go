package wire

import (
	"fmt"
	"strings"
)

// Record is a complete DNS message: header plus its four sections. The
// header's count fields are derived, never authoritative — Pack always
// recomputes them from the section slice lengths, and Parse populates
// them from what was actually read so a round-trip through Pack
// reproduces the same bytes even if a caller mutated a section slice
// in between.
type Record struct {
	Header     Header
	Question   []Question
	Answer     []RR
	Authority  []RR
	Additional []RR
}

// Pack serializes the message to wire format, including name
// compression across all four sections sharing one Compressor.
func (m *Record) Pack() ([]byte, error) {
	if m.Header.Opcode > 15 {
		return nil, fmt.Errorf("%w: opcode %d out of 4-bit range", ErrDNS, m.Header.Opcode)
	}
	h := m.Header
	h.QDCount = uint16(len(m.Question))
	h.ANCount = uint16(len(m.Answer))
	h.NSCount = uint16(len(m.Authority))
	h.ARCount = uint16(len(m.Additional))

	buf := NewWriteBuffer(512)
	h.pack(buf)

	c := NewCompressor()
	for _, q := range m.Question {
		q.pack(buf, c)
	}
	for _, rr := range m.Answer {
		if err := rr.pack(buf, c); err != nil {
			return nil, err
		}
	}
	for _, rr := range m.Authority {
		if err := rr.pack(buf, c); err != nil {
			return nil, err
		}
	}
	for _, rr := range m.Additional {
		if err := rr.pack(buf, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Parse decodes a complete wire-format message. Parse never panics:
// every malformed-input path returns an error wrapping ErrDNS or
// ErrBuffer, including inputs that are arbitrary/random bytes.
func Parse(data []byte) (m *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: panic during parse: %v", ErrDNS, r)
		}
	}()

	buf := NewBuffer(data)
	h, perr := parseHeader(buf)
	if perr != nil {
		return nil, perr
	}

	rec := &Record{Header: h}
	for i := uint16(0); i < h.QDCount; i++ {
		q, qerr := parseQuestion(buf, data)
		if qerr != nil {
			return nil, qerr
		}
		rec.Question = append(rec.Question, q)
	}
	for i := uint16(0); i < h.ANCount; i++ {
		rr, rerr := parseRR(buf, data)
		if rerr != nil {
			return nil, rerr
		}
		rec.Answer = append(rec.Answer, rr)
	}
	for i := uint16(0); i < h.NSCount; i++ {
		rr, rerr := parseRR(buf, data)
		if rerr != nil {
			return nil, rerr
		}
		rec.Authority = append(rec.Authority, rr)
	}
	for i := uint16(0); i < h.ARCount; i++ {
		rr, rerr := parseRR(buf, data)
		if rerr != nil {
			return nil, rerr
		}
		rec.Additional = append(rec.Additional, rr)
	}

	if opt := rec.findOPT(); opt != nil {
		extended, _, _ := UnpackEDNSTTL(opt.TTL)
		rec.Header.applyExtendedRcode(extended)
	}

	return rec, nil
}

// findOPT returns the OPT pseudo-RR in the additional section, if any.
func (m *Record) findOPT() *RR {
	for i := range m.Additional {
		if m.Additional[i].Type == TypeOPT {
			return &m.Additional[i]
		}
	}
	return nil
}

// Reply builds a skeleton response to m: same ID and question section,
// qr/aa/ra set, RD copied from the request, Z/AD/CD left for the caller
// to set, and empty answer/authority/additional sections.
func (m *Record) Reply() *Record {
	reply := &Record{
		Header: Header{
			ID:     m.Header.ID,
			QR:     true,
			AA:     true,
			RA:     true,
			Opcode: m.Header.Opcode,
			RD:     m.Header.RD,
		},
		Question: append([]Question(nil), m.Question...),
	}
	return reply
}

// String renders the message in a DiG-like multi-section text form.
func (m *Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ";; ->>HEADER<<- opcode: %s, status: %s, id: %d\n",
		Opcodes.NameOf(uint16(m.Header.Opcode)), Rcodes.NameOf(m.Header.Rcode), m.Header.ID)
	fmt.Fprintf(&sb, ";; flags:%s; QUERY: %d, ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d\n",
		m.flagString(), len(m.Question), len(m.Answer), len(m.Authority), len(m.Additional))

	if opt := m.findOPT(); opt != nil {
		_, version, do := UnpackEDNSTTL(opt.TTL)
		doFlag := ""
		if do {
			doFlag = "do"
		}
		fmt.Fprintf(&sb, "\n;; OPT PSEUDOSECTION:\n; EDNS: version: %d, flags: %s; udp: %d\n", version, doFlag, opt.Class)
	}

	if len(m.Question) > 0 {
		sb.WriteString("\n;; QUESTION SECTION:\n")
		for _, q := range m.Question {
			sb.WriteString(q.String())
			sb.WriteByte('\n')
		}
	}
	writeSection(&sb, "ANSWER", m.Answer)
	writeSection(&sb, "AUTHORITY", m.Authority)
	writeSection(&sb, "ADDITIONAL", m.additionalWithoutOPT())
	return sb.String()
}

func (m *Record) additionalWithoutOPT() []RR {
	out := make([]RR, 0, len(m.Additional))
	for _, rr := range m.Additional {
		if rr.Type != TypeOPT {
			out = append(out, rr)
		}
	}
	return out
}

func writeSection(sb *strings.Builder, name string, rrs []RR) {
	if len(rrs) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n;; %s SECTION:\n", name)
	for _, rr := range rrs {
		sb.WriteString(rr.String())
		sb.WriteByte('\n')
	}
}

func (m *Record) flagString() string {
	var flags []string
	h := m.Header
	if h.QR {
		flags = append(flags, "qr")
	}
	if h.AA {
		flags = append(flags, "aa")
	}
	if h.TC {
		flags = append(flags, "tc")
	}
	if h.RD {
		flags = append(flags, "rd")
	}
	if h.RA {
		flags = append(flags, "ra")
	}
	if h.AD {
		flags = append(flags, "ad")
	}
	if h.CD {
		flags = append(flags, "cd")
	}
	if len(flags) == 0 {
		return ""
	}
	return " " + strings.Join(flags, " ")
}

// ZoneText renders only the RR sections (Answer/Authority/Additional) of
// the message as zone-file style lines, one RR per line.
func (m *Record) ZoneText() string {
	var sb strings.Builder
	for _, rr := range m.Answer {
		sb.WriteString(rr.ZoneText())
		sb.WriteByte('\n')
	}
	for _, rr := range m.Authority {
		sb.WriteString(rr.ZoneText())
		sb.WriteByte('\n')
	}
	for _, rr := range m.Additional {
		sb.WriteString(rr.ZoneText())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Equal compares two messages by canonical text form: this catches
// semantic equivalence (e.g. different name-compression choices
// producing different bytes) rather than requiring byte-identical wire
// output.
func (m *Record) Equal(other *Record) bool {
	if other == nil {
		return false
	}
	return m.String() == other.String()
}
