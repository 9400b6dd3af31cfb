// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package midi

import (
	"iter"

	"github.com/tidwall/btree"
)

// Event is a message scheduled at an absolute time.
type Event struct {
	// Ticks since the start of the track.
	Tick    uint64
	Message Message

	seq uint64 // Insertion order, to keep simultaneous events stable.
}

func eventLess(a, b Event) bool {
	if a.Tick != b.Tick {
		return a.Tick < b.Tick
	}
	return a.seq < b.seq
}

// Timeline is a set of events ordered by time. Events scheduled at the same
// tick keep the order in which they were added.
//
// A zero Timeline is not ready to use; call [NewTimeline].
type Timeline struct {
	tree *btree.BTreeG[Event]
	seq  uint64
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{tree: btree.NewBTreeG(eventLess)}
}

// Add schedules msg at tick.
func (t *Timeline) Add(tick uint64, msg Message) {
	t.tree.Set(Event{Tick: tick, Message: msg, seq: t.seq})
	t.seq++
}

// Len returns the number of scheduled events.
func (t *Timeline) Len() int {
	return t.tree.Len()
}

// End returns the tick of the last event, or zero if there are none.
func (t *Timeline) End() uint64 {
	last, ok := t.tree.Max()
	if !ok {
		return 0
	}
	return last.Tick
}

// Events returns an iterator over the events in time order.
func (t *Timeline) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		t.tree.Scan(func(e Event) bool {
			return yield(e)
		})
	}
}
