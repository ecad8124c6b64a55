package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTraceDefaultsCapacity(t *testing.T) {
	tr := NewTrace(0)
	assert.Equal(t, "", tr.Dump())
}

func TestRecordAppendsFormattedLine(t *testing.T) {
	tr := NewTrace(4096)
	tr.Record("send", "SEND_IO_CALL tx=abc")
	tr.Record("recv", "128 bytes")

	dump := tr.Dump()
	assert.True(t, strings.Contains(dump, "send SEND_IO_CALL tx=abc"))
	assert.True(t, strings.Contains(dump, "recv 128 bytes"))
}

func TestRecordDropsOldestOnceCapacityExceeded(t *testing.T) {
	tr := NewTrace(16)
	for i := 0; i < 50; i++ {
		tr.Record("send", "x")
	}
	assert.LessOrEqual(t, len(tr.Dump()), 16)
}
