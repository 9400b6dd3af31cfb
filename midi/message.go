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
	"fmt"
)

// Status bytes and meta event types.
const (
	statusNoteOff = 0x80
	statusNoteOn  = 0x90
	statusMeta    = 0xff

	metaTempo         = 0x51
	metaTimeSignature = 0x58
	metaKeySignature  = 0x59
	metaEndOfTrack    = 0x2f
)

// Message is the raw bytes of a track event, without its delta-time.
type Message []byte

// NoteOn returns a note-on message on channel 0.
func NoteOn(key, velocity uint8) Message {
	return Message{statusNoteOn, key, velocity}
}

// NoteOff returns a note-off message on channel 0, with release velocity 0.
func NoteOff(key uint8) Message {
	return Message{statusNoteOff, key, 0}
}

// Tempo returns a set-tempo meta message. micros must fit in 24 bits.
func Tempo(micros uint32) Message {
	return Message{statusMeta, metaTempo, 3, byte(micros >> 16), byte(micros >> 8), byte(micros)}
}

// TimeSignature returns a time signature meta message. denomPower is the
// base-two logarithm of the denominator. The metronome clicks once per
// quarter note.
func TimeSignature(numerator, denomPower uint8) Message {
	return Message{statusMeta, metaTimeSignature, 4, numerator, denomPower, 24, 8}
}

// KeySignature returns a key signature meta message.
func KeySignature(sharps int8, isMinor bool) Message {
	var mi byte
	if isMinor {
		mi = 1
	}
	return Message{statusMeta, metaKeySignature, 2, byte(sharps), mi}
}

// EndOfTrack returns the end-of-track meta message.
func EndOfTrack() Message {
	return Message{statusMeta, metaEndOfTrack, 0}
}

// String implements [fmt.Stringer].
func (m Message) String() string {
	if len(m) == 0 {
		return "empty"
	}
	switch m[0] & 0xf0 {
	case statusNoteOn:
		if len(m) == 3 {
			return fmt.Sprintf("note-on %s key=%d velocity=%d", PitchName(m[1]), m[1], m[2])
		}
	case statusNoteOff:
		if len(m) == 3 {
			return fmt.Sprintf("note-off %s key=%d velocity=%d", PitchName(m[1]), m[1], m[2])
		}
	}
	if m[0] != statusMeta || len(m) < 3 || len(m) != 3+int(m[2]) {
		return fmt.Sprintf("raw % x", []byte(m))
	}

	data := []byte(m[3:])
	switch {
	case m[1] == metaTempo && len(data) == 3:
		micros := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
		return fmt.Sprintf("tempo %d", micros)
	case m[1] == metaTimeSignature && len(data) == 4:
		return fmt.Sprintf("time-signature %d/%d", data[0], 1<<data[1])
	case m[1] == metaKeySignature && len(data) == 2:
		quality := "major"
		if data[1] == 1 {
			quality = "minor"
		}
		return fmt.Sprintf("key-signature %d %s", int8(data[0]), quality)
	case m[1] == metaEndOfTrack && len(data) == 0:
		return "end-of-track"
	default:
		return fmt.Sprintf("meta 0x%02x % x", m[1], data)
	}
}
