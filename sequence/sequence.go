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

// Package sequence linearizes a Coda AST into the flat element and duration
// sequences consumed by the MIDI encoder.
package sequence

import (
	"fmt"
	"strings"
)

// Element is one entry of a sounding sequence. The only implementations are
// [Note], [Chord], [Rest] and [Group].
type Element interface {
	fmt.Stringer
	element()
}

// Note is a single pitch, such as C4 or Eb3.
type Note struct {
	Pitch string
}

// Chord is a triad, such as C+4* or A-3*.
type Chord struct {
	Name string
}

// Rest is a silent element; it only advances time.
type Rest struct{}

// Group marks the next Count elements as sounding together. The elements a
// group covers are never themselves groups.
type Group struct {
	Count int
}

var (
	_ Element = Note{}
	_ Element = Chord{}
	_ Element = Rest{}
	_ Element = Group{}
)

func (n Note) String() string  { return n.Pitch }
func (c Chord) String() string { return c.Name }
func (Rest) String() string    { return "_" }
func (g Group) String() string { return fmt.Sprintf("grp[%d]", g.Count) }

func (Note) element()  {}
func (Chord) element() {}
func (Rest) element()  {}
func (Group) element() {}

// TimeSignature is the value of the sig header.
type TimeSignature struct {
	Numerator, Denominator int
}

// String implements [fmt.Stringer].
func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Numerator, t.Denominator)
}

// Score is everything the encoder needs from a program.
type Score struct {
	// The key name, such as C or Eb-.
	Key  string
	Time TimeSignature
	// Beats per minute.
	Tempo int

	// Elements and Durations are parallel. Durations are in quarter notes.
	// The duration of a [Group] is the duration shared by its members.
	Elements  []Element
	Durations []int
}

// String returns the sequence in a compact textual form, one element per
// entry with its duration after a colon.
func (s *Score) String() string {
	var out strings.Builder
	for i, e := range s.Elements {
		if i > 0 {
			out.WriteByte(' ')
		}
		fmt.Fprintf(&out, "%v:%d", e, s.Durations[i])
	}
	return out.String()
}
