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
	"fmt"
)

var (
	ErrUnknownPitch  = errors.New("unknown pitch")
	ErrUnknownChord  = errors.New("unknown chord")
	ErrUnknownKey    = errors.New("unknown key signature")
	ErrTimeSignature = errors.New("time signature denominator is not a power of two")
	ErrTempoRange    = errors.New("tempo out of range")
	ErrDeltaRange    = errors.New("delta-time out of range")
)

// SemanticError is returned for programs that parse but cannot be encoded.
// It carries the offending source text rather than a position.
type SemanticError struct {
	Text string
	Err  error
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

func (e *SemanticError) Unwrap() error {
	return e.Err
}
