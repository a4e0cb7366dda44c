package wire

import (
	"net"
	"testing"
)

func benchRecord() *Record {
	name, _ := ParseLabel("www.example.com")
	return &Record{
		Header:   Header{ID: 1, QR: true, AA: true, RD: true, RA: true},
		Question: []Question{{Name: name, Type: TypeA, Class: ClassIN}},
		Answer: []RR{
			{Name: name, Type: TypeA, Class: ClassIN, TTL: 300, RData: &RDataA{Addr: net.ParseIP("192.0.2.1")}},
			{Name: name, Type: TypeA, Class: ClassIN, TTL: 300, RData: &RDataA{Addr: net.ParseIP("192.0.2.2")}},
		},
		Authority: []RR{
			{Name: mustBenchLabel("example.com"), Type: TypeNS, Class: ClassIN, TTL: 3600, RData: NewNS(mustBenchLabel("ns1.example.com"))},
		},
	}
}

func mustBenchLabel(text string) Label {
	l, err := ParseLabel(text)
	if err != nil {
		panic(err)
	}
	return l
}

func BenchmarkPack(b *testing.B) {
	rec := benchRecord()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := rec.Pack(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	rec := benchRecord()
	data, err := rec.Pack()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPackParseRoundTrip(b *testing.B) {
	rec := benchRecord()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		data, err := rec.Pack()
		if err != nil {
			b.Fatal(err)
		}
		if _, err := Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}
