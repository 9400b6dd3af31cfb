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

package reporter

import (
	"errors"
	"fmt"

	"github.com/bufbuild/coda/report"
)

// ErrInvalidSource is a sentinel error that is returned by compilation when
// errors were reported but the configured error reporter swallowed all of
// them by returning nil.
var ErrInvalidSource = errors.New("compile failed: invalid coda source")

// ErrorWithPos is an error about a Coda source file that includes information
// about the location in the file that caused the error.
//
// The value of Error() will contain both the location and the underlying
// error. The value of Unwrap() will only be the underlying error.
type ErrorWithPos interface {
	error
	GetPosition() report.Location
	Unwrap() error
}

// Error wraps err with the given location.
func Error(pos report.Location, err error) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: err}
}

// Errorf creates a new positioned error from a format string.
func Errorf(pos report.Location, format string, args ...any) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

// ErrorWithSpan is an [ErrorWithPos] that also knows the extent of the
// offending source, so that it can be rendered as an annotated snippet.
type ErrorWithSpan interface {
	ErrorWithPos
	GetSpan() report.Span
}

// ErrorAt wraps err with the given span.
func ErrorAt(span report.Span, err error) ErrorWithSpan {
	return errorWithSpan{span: span, underlying: err}
}

type errorWithSpan struct {
	underlying error
	span       report.Span
}

func (e errorWithSpan) Error() string {
	return fmt.Sprintf("%v: %v", e.span.Start(), e.underlying)
}

func (e errorWithSpan) GetPosition() report.Location {
	return e.span.Start()
}

func (e errorWithSpan) GetSpan() report.Span {
	return e.span
}

func (e errorWithSpan) Unwrap() error {
	return e.underlying
}

var _ ErrorWithSpan = errorWithSpan{}

type errorWithPos struct {
	underlying error
	pos        report.Location
}

func (e errorWithPos) Error() string {
	return fmt.Sprintf("%v: %v", e.pos, e.underlying)
}

// GetPosition implements the ErrorWithPos interface, supplying a location in
// Coda source that caused the error.
func (e errorWithPos) GetPosition() report.Location {
	return e.pos
}

// Unwrap implements the ErrorWithPos interface, supplying the underlying
// error. This error will not include location information.
func (e errorWithPos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithPos{}
