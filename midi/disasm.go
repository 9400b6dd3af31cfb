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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedFile is returned by [Disassemble] for input that is not a
// well-formed Standard MIDI File.
var ErrMalformedFile = errors.New("malformed MIDI file")

// Disassemble writes a listing of a Standard MIDI File to w: one line for the
// header, and one per chunk and event with its absolute tick and delta-time.
//
// Only the events this package writes are decoded; running status and
// system exclusive events are reported as errors.
func Disassemble(w io.Writer, data []byte) error {
	if len(data) < 14 || string(data[:4]) != "MThd" || binary.BigEndian.Uint32(data[4:]) != 6 {
		return fmt.Errorf("%w: bad header chunk", ErrMalformedFile)
	}
	format := binary.BigEndian.Uint16(data[8:])
	tracks := binary.BigEndian.Uint16(data[10:])
	division := binary.BigEndian.Uint16(data[12:])
	if _, err := fmt.Fprintf(w, "header format=%d tracks=%d division=%d\n", format, tracks, division); err != nil {
		return err
	}

	data = data[14:]
	for len(data) > 0 {
		if len(data) < 8 {
			return fmt.Errorf("%w: truncated chunk header", ErrMalformedFile)
		}
		id, size := string(data[:4]), binary.BigEndian.Uint32(data[4:])
		data = data[8:]
		if uint64(size) > uint64(len(data)) {
			return fmt.Errorf("%w: %s chunk of %d bytes has only %d", ErrMalformedFile, id, size, len(data))
		}
		chunk := data[:size]
		data = data[size:]

		if _, err := fmt.Fprintf(w, "chunk %s length=%d\n", id, size); err != nil {
			return err
		}
		if id != "MTrk" {
			continue
		}
		if err := disassembleTrack(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

func disassembleTrack(w io.Writer, data []byte) error {
	var tick uint64
	for len(data) > 0 {
		delta, n, err := ReadVLQ[uint32](data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}
		data = data[n:]
		tick += uint64(delta)

		size, err := messageSize(data)
		if err != nil {
			return err
		}
		msg := Message(data[:size])
		data = data[size:]

		if _, err := fmt.Fprintf(w, "%8d %+8d  %v\n", tick, delta, msg); err != nil {
			return err
		}
	}
	return nil
}

// messageSize returns the length of the message at the start of data.
func messageSize(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: missing event after delta-time", ErrMalformedFile)
	}
	var size int
	switch status := data[0]; {
	case status == statusMeta:
		if len(data) < 2 {
			return 0, fmt.Errorf("%w: truncated meta event", ErrMalformedFile)
		}
		length, n, err := ReadVLQ[uint32](data[2:])
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMalformedFile, err)
		}
		size = 2 + n + int(length)
	case status&0xf0 == statusNoteOn, status&0xf0 == statusNoteOff:
		size = 3
	default:
		return 0, fmt.Errorf("%w: unsupported status byte 0x%02x", ErrMalformedFile, status)
	}
	if size > len(data) {
		return 0, fmt.Errorf("%w: truncated event", ErrMalformedFile)
	}
	return size, nil
}
