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

// Package render plays an encoded song through a SoundFont synthesizer and
// writes the result as a WAV file.
package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/bufbuild/coda/midi"
)

const (
	// DefaultSampleRate is the sample rate used when Options leaves it unset.
	DefaultSampleRate = 44100
	// DefaultTail is how long rendering continues after the last event, so
	// that released notes can decay.
	DefaultTail = time.Second

	channels = 2
	block    = 512
)

// Options configures rendering.
type Options struct {
	// Samples per second. Zero means DefaultSampleRate.
	SampleRate int32
	// General MIDI program (instrument), 0 to 127.
	Program int32
	// Silence rendered after the last event. Zero means DefaultTail.
	Tail time.Duration
}

func (o Options) sampleRate() int32 {
	if o.SampleRate <= 0 {
		return DefaultSampleRate
	}
	return o.SampleRate
}

func (o Options) tail() time.Duration {
	if o.Tail <= 0 {
		return DefaultTail
	}
	return o.Tail
}

// synthesizer is the subset of meltysynth.Synthesizer used for rendering.
type synthesizer interface {
	ProcessMidiMessage(channel int32, command int32, data1, data2 int32)
	NoteOn(channel, key, vel int32)
	NoteOff(channel, key int32)
	Render(left, right []float32)
}

// OpenSoundFont loads a SoundFont 2 file.
func OpenSoundFont(path string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("render: loading %s: %w", path, err)
	}
	return sf, nil
}

// WAV renders song with sf and writes it to w as 16-bit stereo PCM.
func WAV(w io.Writer, sf *meltysynth.SoundFont, song *midi.Song, opts Options) error {
	settings := meltysynth.NewSynthesizerSettings(opts.sampleRate())
	syn, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	left, right := play(syn, song, opts)
	return writeWAV(w, opts.sampleRate(), pcm(left, right))
}

// play feeds the events of song to syn at their sample positions, and
// returns everything syn renders.
func play(syn synthesizer, song *midi.Song, opts Options) (left, right []float32) {
	rate := opts.sampleRate()
	syn.ProcessMidiMessage(0, 0xc0, opts.Program, 0)

	samplesPer := float64(song.Tempo) * float64(rate) / (float64(song.Division) * 1e6)
	at := func(tick uint64) int {
		return int(math.Round(float64(tick) * samplesPer))
	}
	total := at(song.Timeline.End()) + int(opts.tail().Seconds()*float64(rate))

	left = make([]float32, 0, total)
	right = make([]float32, 0, total)
	advance := func(to int) {
		for len(left) < to {
			n := min(block, to-len(left))
			l, r := make([]float32, n), make([]float32, n)
			syn.Render(l, r)
			left = append(left, l...)
			right = append(right, r...)
		}
	}

	for event := range song.Timeline.Events() {
		advance(at(event.Tick))
		msg := event.Message
		if len(msg) != 3 || msg[0] == 0xff {
			continue // Meta events do not reach the synthesizer.
		}
		switch msg[0] & 0xf0 {
		case 0x90:
			syn.NoteOn(int32(msg[0]&0x0f), int32(msg[1]), int32(msg[2]))
		case 0x80:
			syn.NoteOff(int32(msg[0]&0x0f), int32(msg[1]))
		default:
			syn.ProcessMidiMessage(int32(msg[0]&0x0f), int32(msg[0]&0xf0), int32(msg[1]), int32(msg[2]))
		}
	}
	advance(total)
	return left, right
}

// pcm normalizes the samples and interleaves them as 16-bit PCM.
func pcm(left, right []float32) []byte {
	var peak float32
	for i := range left {
		peak = max(peak, float32(math.Abs(float64(left[i]))), float32(math.Abs(float64(right[i]))))
	}
	gain := float32(1)
	if peak > 0 {
		gain = 0.99 / peak
	}

	out := make([]byte, len(left)*2*channels)
	for i := range left {
		l := int16(left[i] * gain * math.MaxInt16)
		r := int16(right[i] * gain * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[4*i:], uint16(l))
		binary.LittleEndian.PutUint16(out[4*i+2:], uint16(r))
	}
	return out
}

func writeWAV(w io.Writer, rate int32, data []byte) error {
	const bytesPerSample = 2
	var header [44]byte
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], 36+uint32(len(data)))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM.
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], uint32(rate))
	binary.LittleEndian.PutUint32(header[28:], uint32(rate)*channels*bytesPerSample)
	binary.LittleEndian.PutUint16(header[32:], channels*bytesPerSample)
	binary.LittleEndian.PutUint16(header[34:], 8*bytesPerSample)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
