// Package zonestore holds an in-memory authoritative zone: the
// owner-name/rtype indexed record set a zone resolver answers queries
// from.
package zonestore

import (
	"fmt"
	"time"

	"github.com/dnsscience/dnscodec/internal/wire"
)

// Zone is a DNS zone with all its records indexed for lookup.
type Zone struct {
	Origin wire.Label
	Class  uint16

	SOA *wire.RR

	// Records maps owner name (canonical key) -> rtype -> RRs.
	Records map[string]map[uint16][]wire.RR
	// owners preserves each canonical key's original Label, since the
	// map key itself is case-folded and NUL-joined.
	owners map[string]wire.Label
}

// New creates an empty zone rooted at origin.
func New(origin wire.Label) *Zone {
	return &Zone{
		Origin:  origin,
		Class:   wire.ClassIN,
		Records: make(map[string]map[uint16][]wire.RR),
		owners:  make(map[string]wire.Label),
	}
}

// isSubDomain reports whether child is origin or a descendant of it.
func isSubDomain(origin, child wire.Label) bool {
	o := origin.Labels()
	c := child.Labels()
	if len(c) < len(o) {
		return false
	}
	childSuffix := child
	for len(childSuffix.Labels()) > len(o) {
		childSuffix = childSuffix.Child()
	}
	return childSuffix.Equal(origin)
}

// AddRecord inserts rr into the zone, indexed by its owner name and type.
func (z *Zone) AddRecord(rr wire.RR) error {
	if !isSubDomain(z.Origin, rr.Name) {
		return fmt.Errorf("%w: record %s not in zone %s", wire.ErrDNS, rr.Name, z.Origin)
	}

	key := rr.Name.CanonicalKey()
	if z.Records[key] == nil {
		z.Records[key] = make(map[uint16][]wire.RR)
		z.owners[key] = rr.Name
	}
	z.Records[key][rr.Type] = append(z.Records[key][rr.Type], rr)

	if rr.Type == wire.TypeSOA {
		cp := rr
		z.SOA = &cp
	}
	return nil
}

// GetRecords returns the RRs for an exact owner/type match, falling
// back to a wildcard match (RFC 1034 §4.3.3) at each ancestor level.
func (z *Zone) GetRecords(owner wire.Label, rtype uint16) []wire.RR {
	if typeMap, ok := z.Records[owner.CanonicalKey()]; ok {
		if rrs, ok := typeMap[rtype]; ok {
			return rrs
		}
	}

	walk := owner
	for !walk.IsRoot() {
		walk = walk.Child()
		wildcard := walk.Prepend([]byte("*"))
		if typeMap, ok := z.Records[wildcard.CanonicalKey()]; ok {
			if rrs, ok := typeMap[rtype]; ok {
				out := make([]wire.RR, len(rrs))
				for i, rr := range rrs {
					clone := rr
					clone.Name = owner
					out[i] = clone
				}
				return out
			}
		}
	}
	return nil
}

// GetAllRecords returns every RR held by the zone, in no particular order.
func (z *Zone) GetAllRecords() []wire.RR {
	var out []wire.RR
	for _, typeMap := range z.Records {
		for _, rrs := range typeMap {
			out = append(out, rrs...)
		}
	}
	return out
}

// GetNameservers returns the zone apex's NS records.
func (z *Zone) GetNameservers() []wire.RR {
	return z.GetRecords(z.Origin, wire.TypeNS)
}

// Validate performs the structural checks a zone must pass before it is
// served: an SOA at the apex, at least one NS, and CNAME exclusivity.
// Glue for in-zone NS targets is not checked.
func (z *Zone) Validate() error {
	if z.SOA == nil {
		return fmt.Errorf("%w: zone %s missing SOA record", wire.ErrDNS, z.Origin)
	}
	if !z.SOA.Name.Equal(z.Origin) {
		return fmt.Errorf("%w: SOA name %s does not match origin %s", wire.ErrDNS, z.SOA.Name, z.Origin)
	}

	nsRecords := z.GetNameservers()
	if len(nsRecords) == 0 {
		return fmt.Errorf("%w: zone %s has no nameservers", wire.ErrDNS, z.Origin)
	}

	for key, typeMap := range z.Records {
		if cnames, has := typeMap[wire.TypeCNAME]; has {
			if len(typeMap) > 1 {
				return fmt.Errorf("%w: CNAME at %s coexists with other records", wire.ErrDNS, z.owners[key])
			}
			if len(cnames) > 1 {
				return fmt.Errorf("%w: multiple CNAME records at %s", wire.ErrDNS, z.owners[key])
			}
		}
	}

	return nil
}

// IncrementSerial bumps the SOA serial using the YYYYMMDDnn convention,
// falling back to a bare increment once a day's sequence is exhausted.
func (z *Zone) IncrementSerial() error {
	if z.SOA == nil {
		return fmt.Errorf("%w: no SOA record to increment", wire.ErrDNS)
	}
	soa, ok := z.SOA.RData.(*wire.RDataSOA)
	if !ok {
		return fmt.Errorf("%w: SOA record has wrong rdata type", wire.ErrDNS)
	}

	today := time.Now().UTC().Format("20060102")
	var todaySerial uint32
	fmt.Sscanf(today+"00", "%d", &todaySerial)

	switch {
	case soa.Serial < todaySerial:
		soa.Serial = todaySerial
	case soa.Serial < todaySerial+99:
		soa.Serial++
	default:
		soa.Serial++
	}
	return nil
}

// Stats reports zone population counters.
type Stats struct {
	RecordSets int
	Records    int
	Owners     int
}

// Stats returns a snapshot of the zone's population.
func (z *Zone) Stats() Stats {
	var recordSets, records int
	for _, typeMap := range z.Records {
		for _, rrs := range typeMap {
			recordSets++
			records += len(rrs)
		}
	}
	return Stats{RecordSets: recordSets, Records: records, Owners: len(z.Records)}
}
