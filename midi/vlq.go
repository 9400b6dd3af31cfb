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
	"errors"
	"math/bits"

	"golang.org/x/exp/constraints" //nolint:exptostd // No Unsigned constraint in the standard library.
)

// MaxDelta is the largest delta-time a Standard MIDI File may contain: four
// bytes of seven bits each.
const MaxDelta = 0x0FFFFFFF

var (
	// ErrVLQTruncated is returned when the input ends inside a quantity.
	ErrVLQTruncated = errors.New("truncated variable-length quantity")
	// ErrVLQOverflow is returned when a quantity does not fit the requested
	// type.
	ErrVLQOverflow = errors.New("variable-length quantity overflows")
)

// AppendVLQ appends the variable-length encoding of v to buf: seven bits per
// byte, most significant group first, with the high bit set on every byte
// but the last.
func AppendVLQ[T constraints.Unsigned](buf []byte, v T) []byte {
	var scratch [10]byte
	i := len(scratch) - 1
	scratch[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		scratch[i] = byte(v&0x7f) | 0x80
	}
	return append(buf, scratch[i:]...)
}

// ReadVLQ decodes a variable-length quantity from the start of data and
// returns it along with the number of bytes read.
func ReadVLQ[T constraints.Unsigned](data []byte) (T, int, error) {
	width := bits.Len64(uint64(^T(0)))
	var v T
	for i, b := range data {
		if bits.Len64(uint64(v)) > width-7 {
			return 0, 0, ErrVLQOverflow
		}
		v = v<<7 | T(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrVLQTruncated
}
