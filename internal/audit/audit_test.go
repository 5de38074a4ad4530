package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsID(t *testing.T) {
	l := NewLog(4)
	l.Append(Record{RequestID: "req-1", At: time.Now()})

	recs := l.Recent(0)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, "req-1", recs[0].RequestID)
}

func TestRecentNewestFirst(t *testing.T) {
	l := NewLog(8)
	for i := 0; i < 5; i++ {
		l.Append(Record{RequestID: fmt.Sprintf("req-%d", i)})
	}

	recs := l.Recent(3)
	require.Len(t, recs, 3)
	assert.Equal(t, "req-4", recs[0].RequestID)
	assert.Equal(t, "req-3", recs[1].RequestID)
	assert.Equal(t, "req-2", recs[2].RequestID)
}

func TestRingEvictsOldest(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Append(Record{RequestID: fmt.Sprintf("req-%d", i)})
	}

	assert.Equal(t, 3, l.Len())
	recs := l.Recent(0)
	require.Len(t, recs, 3)
	assert.Equal(t, "req-4", recs[0].RequestID)
	assert.Equal(t, "req-2", recs[2].RequestID)
}

func TestZeroCapacityFallsBackToDefault(t *testing.T) {
	l := NewLog(0)
	l.Append(Record{RequestID: "one"})
	assert.Equal(t, 1, l.Len())
}
