package domain

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskIDPrefix prefixes every generated task id.
const TaskIDPrefix = "task-"

// IDGenerator produces new task ids.
type IDGenerator interface {
	NewID() string
}

// TimestampIDs generates "task-<unix millis>" ids. Ids are strictly increasing
// within one generator: a creation in the same millisecond as the previous one
// gets the next free millisecond.
type TimestampIDs struct {
	now  func() time.Time
	last atomic.Int64
}

// NewTimestampIDs returns a generator reading the wall clock.
func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{now: time.Now}
}

func (g *TimestampIDs) NewID() string {
	clock := g.now
	if clock == nil {
		clock = time.Now
	}
	for {
		now := clock().UnixMilli()
		last := g.last.Load()
		if now <= last {
			now = last + 1
		}
		if g.last.CompareAndSwap(last, now) {
			return TaskIDPrefix + strconv.FormatInt(now, 10)
		}
	}
}

// UUIDIDs generates "task-<uuid>" ids, safe across several service instances.
type UUIDIDs struct{}

func (UUIDIDs) NewID() string {
	return TaskIDPrefix + uuid.NewString()
}

// NewIDGenerator returns the generator for the given strategy name:
// "uuid" or anything else for timestamps.
func NewIDGenerator(strategy string) IDGenerator {
	if strings.EqualFold(strings.TrimSpace(strategy), "uuid") {
		return UUIDIDs{}
	}
	return NewTimestampIDs()
}
