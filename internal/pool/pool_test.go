package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnscodec/internal/wire"
)

func TestGetBufferSizing(t *testing.T) {
	assert.Len(t, GetBuffer(10), SmallBufferSize)
	assert.Len(t, GetBuffer(1000), MediumBufferSize)
	assert.Len(t, GetBuffer(100000), LargeBufferSize)
}

func TestPutBufferRoundTrip(t *testing.T) {
	buf := GetBuffer(10)
	for i := range buf {
		buf[i] = 0xAA
	}
	PutBuffer(buf)

	reused := GetBuffer(10)
	require.Len(t, reused, SmallBufferSize)
}

func TestPutRecordClearsSections(t *testing.T) {
	rec := GetRecord()
	rec.Question = append(rec.Question, wire.Question{Type: wire.TypeA})
	rec.Answer = append(rec.Answer, wire.RR{Type: wire.TypeA})

	PutRecord(rec)
	assert.Empty(t, rec.Question)
	assert.Empty(t, rec.Answer)

	reused := GetRecord()
	assert.Empty(t, reused.Question)
	assert.Empty(t, reused.Answer)
}
