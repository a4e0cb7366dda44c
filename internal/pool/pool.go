// Package pool supplies sync.Pool-backed reuse for the message and
// buffer allocations the resolver framework makes on every query, to
// keep GC pressure flat under high query rates.
package pool

import (
	"sync"

	"github.com/dnsscience/dnscodec/internal/wire"
)

const (
	SmallBufferSize  = 512
	MediumBufferSize = 4096
	LargeBufferSize  = wire.MaxMessageSize
)

// RecordPool recycles *wire.Record values across request/response
// cycles.
var RecordPool = sync.Pool{
	New: func() interface{} { return new(wire.Record) },
}

// GetRecord returns a zeroed *wire.Record from the pool.
func GetRecord() *wire.Record {
	return RecordPool.Get().(*wire.Record)
}

// PutRecord clears rec's sections before returning it to the pool, so a
// reused Record never leaks a previous query's data into its sections.
func PutRecord(rec *wire.Record) {
	if rec == nil {
		return
	}
	*rec = wire.Record{
		Question:   rec.Question[:0],
		Answer:     rec.Answer[:0],
		Authority:  rec.Authority[:0],
		Additional: rec.Additional[:0],
	}
	RecordPool.Put(rec)
}

var smallBufferPool = sync.Pool{New: func() interface{} { b := make([]byte, SmallBufferSize); return &b }}
var mediumBufferPool = sync.Pool{New: func() interface{} { b := make([]byte, MediumBufferSize); return &b }}
var largeBufferPool = sync.Pool{New: func() interface{} { b := make([]byte, LargeBufferSize); return &b }}

// GetBuffer returns a byte slice sized to hold at least size bytes,
// drawn from the smallest pool that fits.
func GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		return (*smallBufferPool.Get().(*[]byte))[:SmallBufferSize]
	case size <= MediumBufferSize:
		return (*mediumBufferPool.Get().(*[]byte))[:MediumBufferSize]
	default:
		return (*largeBufferPool.Get().(*[]byte))[:LargeBufferSize]
	}
}

// PutBuffer returns buf to the pool matching its capacity. Buffers of a
// capacity this package never handed out are left for the garbage
// collector.
func PutBuffer(buf []byte) {
	buf = buf[:cap(buf)]
	switch cap(buf) {
	case SmallBufferSize:
		smallBufferPool.Put(&buf)
	case MediumBufferSize:
		mediumBufferPool.Put(&buf)
	case LargeBufferSize:
		largeBufferPool.Put(&buf)
	}
}
