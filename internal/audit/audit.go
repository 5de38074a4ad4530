// Package audit keeps a bounded in-memory log of recent routing
// outcomes for operator inspection. Nothing here is durable: the log
// resets with the process, matching the gateway's no-persistence
// contract.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexgate/lexgate/pkg/models"
)

// Record is one routed request's outcome.
type Record struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id"`
	Type      models.RequestType `json:"type"`
	Priority  models.Priority    `json:"priority"`
	Provider  string             `json:"provider,omitempty"`
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
	Latency   time.Duration      `json:"latency"`
	Tokens    int                `json:"tokens"`
	At        time.Time          `json:"at"`
}

// Log is a fixed-capacity ring of Records. Appends evict the oldest
// entry once capacity is reached.
type Log struct {
	mu   sync.RWMutex
	max  int
	recs []Record
	next int
	full bool
}

// DefaultCapacity bounds the log when no explicit size is configured.
const DefaultCapacity = 512

// NewLog creates a ring holding at most max records.
func NewLog(max int) *Log {
	if max <= 0 {
		max = DefaultCapacity
	}
	return &Log{
		max:  max,
		recs: make([]Record, max),
	}
}

// Append stores one record, assigning an ID if the caller left it
// empty.
func (l *Log) Append(rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs[l.next] = rec
	l.next++
	if l.next == l.max {
		l.next = 0
		l.full = true
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns
// everything held.
func (l *Log) Recent(limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = l.max
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (l.next - 1 - i + l.max) % l.max
		out = append(out, l.recs[idx])
	}
	return out
}

// Len reports how many records the log currently holds.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return l.max
	}
	return l.next
}
