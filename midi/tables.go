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
	"strings"
)

// semitones of each pitch name within an octave. Only the sharps and flats
// below have entries; E#, Fb, B# and Cb are not recognized.
var semitones = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "F": 5,
	"F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
}

// Triad intervals in semitones above the root, by chord quality.
var (
	major = [3]uint8{0, 4, 7}
	minor = [3]uint8{0, 3, 7}
)

const (
	minOctave = 1
	maxOctave = 7
)

// Pitch returns the MIDI key number of a pitch such as C4 or Eb3. C1 is 12
// and B7 is 95.
func Pitch(name string) (uint8, error) {
	if len(name) < 2 {
		return 0, &SemanticError{Text: name, Err: ErrUnknownPitch}
	}
	root, octave := name[:len(name)-1], name[len(name)-1]
	key, ok := pitch(root, octave)
	if !ok {
		return 0, &SemanticError{Text: name, Err: ErrUnknownPitch}
	}
	return key, nil
}

func pitch(root string, octave byte) (uint8, bool) {
	semi, ok := semitones[root]
	if !ok || octave < '0'+minOctave || octave > '0'+maxOctave {
		return 0, false
	}
	return uint8(12*int(octave-'0') + semi), true
}

// Chord returns the three MIDI key numbers of a chord such as C+4* (C major
// in octave 4) or A-3* (A minor in octave 3). All three notes are in the
// octave the chord names: A+4* is A4 C#4 E4.
func Chord(name string) ([3]uint8, error) {
	var keys [3]uint8
	body, ok := strings.CutSuffix(name, "*")
	if !ok || len(body) < 3 {
		return keys, &SemanticError{Text: name, Err: ErrUnknownChord}
	}

	root, quality, octave := body[:len(body)-2], body[len(body)-2], body[len(body)-1]
	var intervals [3]uint8
	switch quality {
	case '+':
		intervals = major
	case '-':
		intervals = minor
	default:
		return keys, &SemanticError{Text: name, Err: ErrUnknownChord}
	}

	base, ok := pitch(root, octave)
	if !ok {
		return keys, &SemanticError{Text: name, Err: ErrUnknownChord}
	}
	floor := base - base%12
	for i, interval := range intervals {
		keys[i] = floor + (base%12+interval)%12
	}
	return keys, nil
}

// Sharps (positive) or flats (negative) in the signature of each key.
var fifths = map[string]int8{
	"Cb": -7, "Gb": -6, "Db": -5, "Ab": -4, "Eb": -3, "Bb": -2, "F": -1,
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "C#": 7,
}

var minorFifths = map[string]int8{
	"Ab": -7, "Eb": -6, "Bb": -5, "F": -4, "C": -3, "G": -2, "D": -1,
	"A": 0, "E": 1, "B": 2, "F#": 3, "C#": 4, "G#": 5, "D#": 6, "A#": 7,
}

// Key resolves a key such as C, Eb+ or A- to the number of sharps
// (positive) or flats (negative) in its signature, and whether it is minor.
// A key without a quality is major.
func Key(name string) (sharps int8, isMinor bool, err error) {
	root := name
	switch {
	case strings.HasSuffix(name, "-"):
		root, isMinor = name[:len(name)-1], true
	case strings.HasSuffix(name, "+"):
		root = name[:len(name)-1]
	}

	table := fifths
	if isMinor {
		table = minorFifths
	}
	sharps, ok := table[root]
	if !ok {
		return 0, false, &SemanticError{Text: name, Err: ErrUnknownKey}
	}
	return sharps, isMinor, nil
}

// PitchName returns the name of a MIDI key number, spelled with sharps.
func PitchName(key uint8) string {
	names := [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	return fmt.Sprintf("%s%d", names[key%12], int(key)/12)
}
