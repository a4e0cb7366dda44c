package zonefmt

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dnsscience/dnscodec/internal/wire"
)

var headerRe = regexp.MustCompile(`^;; ->>HEADER<<- opcode: (\S+), status: (\S+), id: (\d+)`)
var flagsRe = regexp.MustCompile(`^;; flags:([^;]*); QUERY: (\d+), ANSWER: (\d+), AUTHORITY: (\d+), ADDITIONAL: (\d+)`)
var ednsRe = regexp.MustCompile(`^; EDNS: version: (\d+), flags:\s*(\S*);\s*udp: (\d+)`)

// ParseDig reads DiG-style command output from r and reconstructs the
// message(s) it describes. A single transcript may hold more than one
// ->>HEADER<<- block, one per query dig ran.
func ParseDig(r io.Reader) ([]*wire.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read dig output: %v", wire.ErrDNS, err)
	}
	// DiG's header, flag and section lines all start with ';', so the
	// transcript is split into raw lines rather than run through the zone
	// reader's comment stripping.
	lines := strings.Split(string(data), "\n")

	var out []*wire.Record
	var cur *wire.Record
	section := ""

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if m := headerRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				out = append(out, cur)
			}
			cur = &wire.Record{}
			opcode, err := wire.Opcodes.CodeOf(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: unknown opcode %q", wire.ErrDNS, m[1])
			}
			cur.Header.Opcode = uint8(opcode)
			rcode, err := wire.Rcodes.CodeOf(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: unknown rcode %q", wire.ErrDNS, m[2])
			}
			cur.Header.Rcode = rcode
			id, err := strconv.ParseUint(m[3], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: bad header id %q", wire.ErrDNS, m[3])
			}
			cur.Header.ID = uint16(id)
			section = ""
			continue
		}
		if cur == nil {
			continue
		}

		if m := flagsRe.FindStringSubmatch(line); m != nil {
			applyFlags(&cur.Header, m[1])
			continue
		}
		if strings.HasPrefix(line, ";; OPT PSEUDOSECTION") {
			section = "OPT"
			continue
		}
		if section == "OPT" && strings.HasPrefix(line, "; EDNS:") {
			opt, err := parseEDNSLine(line)
			if err != nil {
				return nil, err
			}
			cur.Additional = append(cur.Additional, opt)
			continue
		}
		if strings.HasPrefix(line, ";; QUESTION SECTION") {
			section = "QUESTION"
			continue
		}
		if strings.HasPrefix(line, ";; ANSWER SECTION") {
			section = "ANSWER"
			continue
		}
		if strings.HasPrefix(line, ";; AUTHORITY SECTION") {
			section = "AUTHORITY"
			continue
		}
		if strings.HasPrefix(line, ";; ADDITIONAL SECTION") {
			section = "ADDITIONAL"
			continue
		}
		if section == "QUESTION" && strings.HasPrefix(line, ";") {
			q, err := parseQuestionLine(line)
			if err != nil {
				return nil, err
			}
			cur.Question = append(cur.Question, q)
			continue
		}
		if strings.HasPrefix(line, ";;") || strings.HasPrefix(line, ";") {
			continue
		}
		if line == "" {
			continue
		}

		switch section {
		case "ANSWER":
			rr, err := parseDigRRLine(line)
			if err != nil {
				return nil, err
			}
			cur.Answer = append(cur.Answer, rr)
		case "AUTHORITY":
			rr, err := parseDigRRLine(line)
			if err != nil {
				return nil, err
			}
			cur.Authority = append(cur.Authority, rr)
		case "ADDITIONAL":
			rr, err := parseDigRRLine(line)
			if err != nil {
				return nil, err
			}
			cur.Additional = append(cur.Additional, rr)
		}
	}

	if cur != nil {
		out = append(out, cur)
	}
	return out, nil
}

func applyFlags(h *wire.Header, flagText string) {
	for _, f := range strings.Fields(flagText) {
		switch f {
		case "qr":
			h.QR = true
		case "aa":
			h.AA = true
		case "tc":
			h.TC = true
		case "rd":
			h.RD = true
		case "ra":
			h.RA = true
		case "ad":
			h.AD = true
		case "cd":
			h.CD = true
		}
	}
}

// parseEDNSLine reconstructs the OPT pseudo-RR that produced the "; EDNS:"
// line in Record.String, since dig transcripts never spell out the
// individual EDNS options (just version/flags/udp size).
func parseEDNSLine(line string) (wire.RR, error) {
	m := ednsRe.FindStringSubmatch(line)
	if m == nil {
		return wire.RR{}, fmt.Errorf("%w: malformed EDNS line %q", wire.ErrDNS, line)
	}
	version, err := strconv.ParseUint(m[1], 10, 8)
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: bad EDNS version %q", wire.ErrDNS, m[1])
	}
	udpSize, err := strconv.ParseUint(m[3], 10, 16)
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: bad EDNS udp size %q", wire.ErrDNS, m[3])
	}
	do := false
	for _, f := range strings.Fields(m[2]) {
		if f == "do" {
			do = true
		}
	}
	return wire.RR{
		Name:  wire.Root,
		Type:  wire.TypeOPT,
		Class: uint16(udpSize),
		TTL:   wire.PackEDNSTTL(0, uint8(version), do),
		RData: &wire.RDataOPT{},
	}, nil
}

func parseQuestionLine(line string) (wire.Question, error) {
	toks := fields(strings.TrimPrefix(line, ";"))
	if len(toks) != 3 {
		return wire.Question{}, fmt.Errorf("%w: malformed question line %q", wire.ErrDNS, line)
	}
	name, err := qualifyName(toks[0], wire.Root)
	if err != nil {
		return wire.Question{}, fmt.Errorf("%w: question name %q: %v", wire.ErrDNS, toks[0], err)
	}
	class, err := wire.Classes.CodeOf(toks[1])
	if err != nil {
		return wire.Question{}, fmt.Errorf("%w: unknown class %q", wire.ErrDNS, toks[1])
	}
	rtype, err := wire.RRTypes.CodeOf(toks[2])
	if err != nil {
		return wire.Question{}, fmt.Errorf("%w: unknown type %q", wire.ErrDNS, toks[2])
	}
	return wire.Question{Name: name, Type: rtype, Class: class}, nil
}

// parseDigRRLine parses one "NAME TTL CLASS TYPE RDATA..." line, the
// presentation form shared by DiG's section dumps and zone files.
func parseDigRRLine(line string) (wire.RR, error) {
	toks := fields(line)
	if len(toks) < 4 {
		return wire.RR{}, fmt.Errorf("%w: malformed rr line %q", wire.ErrDNS, line)
	}
	name, err := qualifyName(toks[0], wire.Root)
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: rr name %q: %v", wire.ErrDNS, toks[0], err)
	}
	ttl, err := strconv.ParseUint(toks[1], 10, 32)
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: bad ttl %q: %v", wire.ErrDNS, toks[1], err)
	}
	class, err := wire.Classes.CodeOf(toks[2])
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: unknown class %q", wire.ErrDNS, toks[2])
	}
	rtype, err := wire.RRTypes.CodeOf(toks[3])
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: unknown type %q", wire.ErrDNS, toks[3])
	}
	rdata, err := parseRData(rtype, toks[4:], wire.Root)
	if err != nil {
		return wire.RR{}, fmt.Errorf("%w: %s record %s: %v", wire.ErrDNS, toks[3], name, err)
	}
	return wire.RR{Name: name, Type: rtype, Class: class, TTL: uint32(ttl), RData: rdata}, nil
}
