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
	"bytes"
	"encoding/hex"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/bufbuild/coda/parser"
	"github.com/bufbuild/coda/sequence"
)

const (
	header = "!key[C]!sig[4,4]!tmp[120]"

	fileHeader = "4d546864 00000006 0000 0001 01e0"
	tempo120   = "00 ff5103 07a120"
	endOfTrack = "00 ff2f00"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	require.NoError(t, err)
	return data
}

// file assembles the expected bytes of a file whose track holds events.
func file(t *testing.T, events ...string) []byte {
	t.Helper()
	track := unhex(t, strings.Join(events, " "))
	out := unhex(t, fileHeader)
	out = append(out, "MTrk"...)
	out = append(out, byte(len(track)>>24), byte(len(track)>>16), byte(len(track)>>8), byte(len(track)))
	return append(out, track...)
}

func score(t *testing.T, src string) *sequence.Score {
	t.Helper()
	root, _, err := parser.ParseSource("test.coda", src)
	require.NoError(t, err)
	s, err := sequence.Extract(root)
	require.NoError(t, err)
	return s
}

func encode(t *testing.T, enc *Encoder, src string) []byte {
	t.Helper()
	data, err := enc.Encode(score(t, src))
	require.NoError(t, err)
	return data
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		events []string
	}{
		{
			name: "single note",
			body: "{C4}",
			events: []string{
				tempo120,
				"00 903040", "8360 803000",
				endOfTrack,
			},
		},
		{
			name: "repetition",
			body: "{rep[2]{C4}}",
			events: []string{
				tempo120,
				"00 903040", "8360 803000",
				"00 903040", "8360 803000",
				endOfTrack,
			},
		},
		{
			name: "duration",
			body: "{typ[2]{C4 D4 {E4}}}",
			events: []string{
				tempo120,
				"00 903040", "8740 803000",
				"00 903240", "8740 803200",
				"00 903440", "8740 803400",
				endOfTrack,
			},
		},
		{
			name: "grouping",
			body: "{grp[2]{C4 E4 G4}}",
			events: []string{
				tempo120,
				"00 903040", "00 903440",
				"8360 803000", "00 803400",
				"00 903740", "8360 803700",
				endOfTrack,
			},
		},
		{
			name: "rest",
			body: "{_ C4}",
			events: []string{
				tempo120,
				"8360 903040", "8360 803000",
				endOfTrack,
			},
		},
		{
			name: "consecutive rests",
			body: "{_ typ[2]{_} C4}",
			events: []string{
				tempo120,
				"8b20 903040", "8360 803000",
				endOfTrack,
			},
		},
		{
			name: "trailing rest",
			body: "{C4 _}",
			events: []string{
				tempo120,
				"00 903040", "8360 803000",
				endOfTrack,
			},
		},
		{
			name: "major chord",
			body: "{C+4*}",
			events: []string{
				tempo120,
				"00 903040", "00 903440", "00 903740",
				"8360 803000", "00 803400", "00 803700",
				endOfTrack,
			},
		},
		{
			name: "minor chord",
			body: "{A-3*}",
			events: []string{
				tempo120,
				"00 902d40", "00 902440", "00 902840",
				"8360 802d00", "00 802400", "00 802800",
				endOfTrack,
			},
		},
		{
			name: "group with chord and rest",
			body: "{typ[2] grp[3] {C+4* _ G5}}",
			events: []string{
				tempo120,
				"00 903040", "00 903440", "00 903740", "00 904340",
				"8740 803000", "00 803400", "00 803700", "00 804300",
				endOfTrack,
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := encode(t, &Encoder{}, header+test.body)
			assert.Equal(t, file(t, test.events...), got)
		})
	}
}

func TestEncodeFunction(t *testing.T) {
	t.Parallel()

	data, err := Encode(120, []sequence.Element{sequence.Note{Pitch: "C4"}}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, file(t, tempo120, "00 903040", "8360 803000", endOfTrack), data)

	// Same bytes as a whole program, whatever its key and time signature.
	assert.Equal(t, data, encode(t, &Encoder{}, "!key[F#-]!sig[7,16]!tmp[120]{C4}"))
}

func TestTempo(t *testing.T) {
	t.Parallel()

	data := encode(t, &Encoder{}, "!key[C]!sig[4,4]!tmp[90]{C4}")
	// 60000000 / 90 rounds to 666667, 0x0a2c2b.
	assert.Equal(t, unhex(t, "00 ff5103 0a2c2b"), data[22:29])

	_, err := (&Encoder{}).Encode(score(t, "!key[C]!sig[4,4]!tmp[3]{C4}"))
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.ErrorIs(t, err, ErrTempoRange)
	assert.Equal(t, "3", semErr.Text)

	// 60000000 / 4 fits in 24 bits.
	_, err = (&Encoder{}).Encode(score(t, "!key[C]!sig[4,4]!tmp[4]{C4}"))
	assert.NoError(t, err)
}

func TestMetaEvents(t *testing.T) {
	t.Parallel()

	got := encode(t, &Encoder{Meta: true}, "!key[Eb-]!sig[3,8]!tmp[120]{C4}")
	assert.Equal(t, file(t,
		tempo120,
		"00 ff5804 03031808",
		"00 ff5902 fa01",
		"00 903040", "8360 803000",
		endOfTrack,
	), got)

	got = encode(t, &Encoder{Meta: true}, "!key[A]!sig[4,4]!tmp[120]{C4}")
	assert.Contains(t, string(got), string(unhex(t, "ff5902 0300")))

	_, err := (&Encoder{Meta: true}).Encode(score(t, "!key[C]!sig[4,3]!tmp[120]{C4}"))
	assert.ErrorIs(t, err, ErrTimeSignature)

	_, err = (&Encoder{Meta: true}).Encode(score(t, "!key[Fb]!sig[4,4]!tmp[120]{C4}"))
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, "Fb", semErr.Text)

	// Without meta events, neither header is checked.
	_, err = (&Encoder{}).Encode(score(t, "!key[Fb]!sig[4,3]!tmp[120]{C4}"))
	assert.NoError(t, err)
}

func TestEncoderSettings(t *testing.T) {
	t.Parallel()

	got := encode(t, &Encoder{Division: 96, Velocity: 100}, header+"{C4}")
	assert.Equal(t, unhex(t, "0060"), got[12:14])
	assert.Equal(t, unhex(t, "00 903064 60 803000"), got[29:37])
}

func TestSemanticErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body string
		err  error
		text string
	}{
		{body: "{E#4}", err: ErrUnknownPitch, text: "E#4"},
		{body: "{C8}", err: nil},
		{body: "{Cb+4*}", err: ErrUnknownChord, text: "Cb+4*"},
		{body: "{grp[2] {C4 Fb2}}", err: ErrUnknownPitch, text: "Fb2"},
		{body: "{typ[999999999]{C4}}", err: ErrDeltaRange, text: "999999999"},
	}
	for _, test := range tests {
		root, _, err := parser.ParseSource("test.coda", header+test.body)
		if test.err == nil {
			// Octave 8 does not even lex as a note.
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err, test.body)
		s, err := sequence.Extract(root)
		require.NoError(t, err)

		_, err = (&Encoder{}).Encode(s)
		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr, test.body)
		assert.ErrorIs(t, err, test.err)
		assert.Equal(t, test.text, semErr.Text)
	}
}

func TestSongDuration(t *testing.T) {
	t.Parallel()

	song, err := (&Encoder{}).Schedule(score(t, header+"{C4 typ[3]{D4} _}"))
	require.NoError(t, err)
	// Four beats at 120 bpm; the trailing rest does not count.
	assert.Equal(t, 2*time.Second, song.Duration())
	assert.Equal(t, uint64(4*DefaultDivision), song.Timeline.End())
	assert.Equal(t, 5, song.Timeline.Len())
}

func TestSongDurationLong(t *testing.T) {
	t.Parallel()

	long := func(end uint64, tempo uint32, division uint16) *Song {
		timeline := NewTimeline()
		timeline.Add(end, EndOfTrack())
		return &Song{Division: division, Tempo: tempo, Timeline: timeline}
	}
	// Ticks times tempo does not fit 64 bits, but the result does.
	assert.Equal(t, time.Duration(1<<50)*time.Microsecond, long(1<<42, 1<<23, 1<<15).Duration())
	assert.Equal(t, time.Duration(math.MaxInt64), long(1<<48, maxTempo, 1).Duration())
	assert.Equal(t, time.Duration(math.MaxInt64), long(1<<60, maxTempo, 1).Duration())
}

// TestReadBack checks encoded files with an independent SMF reader.
func TestReadBack(t *testing.T) {
	t.Parallel()

	data := encode(t, &Encoder{Meta: true}, "!key[C]!sig[4,4]!tmp[120]{rep[2] grp[2]{C4 E4} _ C+4*}")
	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, parsed.Tracks, 1)
	ticks, ok := parsed.TimeFormat.(smf.MetricTicks)
	require.True(t, ok)
	assert.Equal(t, smf.MetricTicks(DefaultDivision), ticks)

	type note struct {
		key        uint8
		start, end uint64
	}
	var notes []note
	open := make(map[uint8]uint64)
	var now uint64
	var bpm float64
	for _, ev := range parsed.Tracks[0] {
		now += uint64(ev.Delta)
		msg := gomidi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetMetaTempo(&bpm):
		case msg.GetNoteStart(&ch, &key, &vel):
			assert.Equal(t, uint8(DefaultVelocity), vel)
			open[key] = now
		case msg.GetNoteEnd(&ch, &key):
			notes = append(notes, note{key: key, start: open[key], end: now})
		}
	}
	assert.InDelta(t, 120, bpm, 0.001)
	assert.Equal(t, []note{
		{48, 0, 480}, {52, 0, 480},
		{48, 480, 960}, {52, 960, 1440},
		{48, 1920, 2400}, {52, 1920, 2400}, {55, 1920, 2400},
	}, notes)
}
