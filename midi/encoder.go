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

// Package midi encodes Coda scores as Standard MIDI Files: format 0, a
// single track, note events on channel 0.
package midi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
	"time"

	"github.com/bufbuild/coda/sequence"
)

const (
	// DefaultDivision is the number of ticks per quarter note.
	DefaultDivision = 480
	// DefaultVelocity is the note-on velocity of every note.
	DefaultVelocity = 64

	maxTempo = 1<<24 - 1
)

// Encoder turns scores into Standard MIDI Files.
//
// The zero value uses DefaultDivision and DefaultVelocity, and emits no meta
// events other than tempo and end-of-track.
type Encoder struct {
	// Ticks per quarter note. Zero means DefaultDivision.
	Division uint16
	// Note-on velocity, 1 to 127. Zero means DefaultVelocity.
	Velocity uint8
	// If set, the track also carries time signature and key signature meta
	// events after the tempo.
	Meta bool
}

// Song is a scheduled score, ready to be written.
type Song struct {
	Division uint16
	// Microseconds per quarter note.
	Tempo    uint32
	Timeline *Timeline
}

// Duration returns the time from the start of the song to its last event.
// Songs too long for a [time.Duration] report the largest one.
func (s *Song) Duration() time.Duration {
	if s.Division == 0 {
		return 0
	}
	hi, lo := bits.Mul64(s.Timeline.End(), uint64(s.Tempo))
	if hi >= uint64(s.Division) {
		return math.MaxInt64
	}
	micros, _ := bits.Div64(hi, lo, uint64(s.Division))
	if micros > math.MaxInt64/uint64(time.Microsecond) {
		return math.MaxInt64
	}
	return time.Duration(micros) * time.Microsecond
}

// Encode encodes a tempo and a sequence with the default settings. It is
// equivalent to encoding a [sequence.Score] with only those fields set using
// a zero [Encoder].
func Encode(tempo int, elems []sequence.Element, durs []int) ([]byte, error) {
	var e Encoder
	return e.Encode(&sequence.Score{Tempo: tempo, Elements: elems, Durations: durs})
}

// Encode schedules score and returns the bytes of the resulting file.
func (e *Encoder) Encode(score *sequence.Score) ([]byte, error) {
	song, err := e.Schedule(score)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := song.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) division() uint16 {
	if e.Division == 0 {
		return DefaultDivision
	}
	return e.Division
}

func (e *Encoder) velocity() uint8 {
	if e.Velocity == 0 {
		return DefaultVelocity
	}
	return min(e.Velocity, 127)
}

// Schedule places every event of score on a timeline.
//
// Notes sound one after the other for their duration. Rests only move time
// forward, so they show up as the delta-time of the next event. A chord and
// the members of a group start together and stop together, after the
// group's own duration.
func (e *Encoder) Schedule(score *sequence.Score) (*Song, error) {
	if len(score.Elements) != len(score.Durations) {
		return nil, fmt.Errorf("midi: %d elements but %d durations", len(score.Elements), len(score.Durations))
	}

	micros, err := tempo(score.Tempo)
	if err != nil {
		return nil, err
	}
	song := &Song{
		Division: e.division(),
		Tempo:    micros,
		Timeline: NewTimeline(),
	}
	timeline := song.Timeline
	timeline.Add(0, Tempo(micros))

	if e.Meta {
		msgs, err := meta(score)
		if err != nil {
			return nil, err
		}
		for _, msg := range msgs {
			timeline.Add(0, msg)
		}
	}

	var now uint64
	elems, durs := score.Elements, score.Durations
	for i := 0; i < len(elems); i++ {
		ticks, err := e.ticks(durs[i])
		if err != nil {
			return nil, err
		}

		members := elems[i : i+1]
		if g, ok := elems[i].(sequence.Group); ok {
			end := min(i+1+g.Count, len(elems))
			members = elems[i+1 : end]
			i = end - 1
		}

		var keys []uint8
		for _, m := range members {
			k, err := resolve(m)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k...)
		}
		for _, k := range keys {
			timeline.Add(now, NoteOn(k, e.velocity()))
		}
		for _, k := range keys {
			timeline.Add(now+ticks, NoteOff(k))
		}
		now += ticks
	}

	return song, nil
}

// ticks converts a duration in quarter notes to ticks.
func (e *Encoder) ticks(dur int) (uint64, error) {
	if dur < 0 {
		return 0, &SemanticError{Text: fmt.Sprint(dur), Err: ErrDeltaRange}
	}
	hi, lo := bits.Mul64(uint64(dur), uint64(e.division()))
	if hi != 0 || lo > MaxDelta {
		return 0, &SemanticError{Text: fmt.Sprint(dur), Err: ErrDeltaRange}
	}
	return lo, nil
}

// resolve returns the keys an element sounds. Rests sound none.
func resolve(elem sequence.Element) ([]uint8, error) {
	switch elem := elem.(type) {
	case sequence.Note:
		k, err := Pitch(elem.Pitch)
		if err != nil {
			return nil, err
		}
		return []uint8{k}, nil
	case sequence.Chord:
		keys, err := Chord(elem.Name)
		if err != nil {
			return nil, err
		}
		return keys[:], nil
	case sequence.Rest:
		return nil, nil
	default:
		return nil, fmt.Errorf("midi: unexpected %T in group", elem)
	}
}

// tempo converts beats per minute to microseconds per quarter note.
func tempo(bpm int) (uint32, error) {
	if bpm <= 0 {
		return 0, &SemanticError{Text: fmt.Sprint(bpm), Err: ErrTempoRange}
	}
	micros := math.Round(60_000_000 / float64(bpm))
	if micros < 1 || micros > maxTempo {
		return 0, &SemanticError{Text: fmt.Sprint(bpm), Err: ErrTempoRange}
	}
	return uint32(micros), nil
}

func meta(score *sequence.Score) ([]Message, error) {
	sig := score.Time
	text := sig.String()
	if sig.Numerator < 1 || sig.Numerator > math.MaxUint8 ||
		sig.Denominator < 1 || bits.OnesCount(uint(sig.Denominator)) != 1 {
		return nil, &SemanticError{Text: text, Err: ErrTimeSignature}
	}
	power := bits.TrailingZeros(uint(sig.Denominator))

	sharps, isMinor, err := Key(score.Key)
	if err != nil {
		return nil, err
	}
	return []Message{
		TimeSignature(uint8(sig.Numerator), uint8(power)),
		KeySignature(sharps, isMinor),
	}, nil
}

// Write writes the song as a Standard MIDI File.
func (s *Song) Write(w io.Writer) error {
	track, err := s.track()
	if err != nil {
		return err
	}

	out := make([]byte, 0, 14+8+len(track))
	out = append(out, "MThd"...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0) // Format.
	out = binary.BigEndian.AppendUint16(out, 1) // Tracks.
	out = binary.BigEndian.AppendUint16(out, s.Division)

	out = append(out, "MTrk"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	out = append(out, track...)

	_, err = w.Write(out)
	return err
}

// track encodes the event stream of the track chunk.
func (s *Song) track() ([]byte, error) {
	var out []byte
	var prev uint64
	for event := range s.Timeline.Events() {
		delta := event.Tick - prev
		if delta > MaxDelta {
			return nil, &SemanticError{Text: fmt.Sprint(delta), Err: ErrDeltaRange}
		}
		out = AppendVLQ(out, delta)
		out = append(out, event.Message...)
		prev = event.Tick
	}
	// End of track comes right after the last event; trailing rests are
	// dropped.
	out = AppendVLQ(out, uint8(0))
	out = append(out, EndOfTrack()...)
	return out, nil
}
