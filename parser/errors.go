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

package parser

import (
	"errors"
	"fmt"

	"github.com/bufbuild/coda/report"
	"github.com/bufbuild/coda/reporter"
	"github.com/bufbuild/coda/token"
)

var (
	// ErrUnrecognized is wrapped by a [LexicalError] when no rule comes close
	// to matching the input.
	ErrUnrecognized = errors.New("unrecognized symbol or token")
	// ErrMalformed is wrapped by a [LexicalError] when exactly one stage of
	// some rule kept the input from matching.
	ErrMalformed = errors.New("malformed token")
	// ErrUnexpectedToken is wrapped by every [SyntaxError].
	ErrUnexpectedToken = errors.New("unexpected token")
)

// LexicalError is returned when no registered rule produces a valid match at
// some position of the input.
type LexicalError struct {
	// The offending input.
	Span report.Span
	// Either ErrUnrecognized or ErrMalformed, wrapped with details.
	Err error

	// For malformed tokens, the class of the rule that nearly matched and
	// the stage that failed.
	Class token.Class
	Stage int
}

var _ reporter.ErrorWithSpan = (*LexicalError)(nil)

func (e *LexicalError) Error() string {
	return fmt.Sprintf("%v: %v", e.GetPosition(), e.Err)
}

// GetPosition implements [reporter.ErrorWithPos].
func (e *LexicalError) GetPosition() report.Location {
	return e.Span.Start()
}

// GetSpan implements [reporter.ErrorWithSpan].
func (e *LexicalError) GetSpan() report.Span {
	return e.Span
}

// Unwrap implements [reporter.ErrorWithPos].
func (e *LexicalError) Unwrap() error {
	return e.Err
}

// Malformed returns whether this error carries a correction suggestion.
func (e *LexicalError) Malformed() bool {
	return errors.Is(e.Err, ErrMalformed)
}

// SyntaxError is returned when the token stream does not derive from the
// grammar.
type SyntaxError struct {
	// The span of the token the parser choked on.
	Span report.Span
	Err  error

	// The lookahead token.
	Found token.Token
	// The nonterminal being expanded when the table had no entry for the
	// lookahead. Empty for terminal mismatches.
	Nonterminal Nonterminal
	// The terminals that would have been accepted instead.
	Expected []Terminal
}

var _ reporter.ErrorWithSpan = (*SyntaxError)(nil)

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %v", e.GetPosition(), e.Err)
}

// GetPosition implements [reporter.ErrorWithPos].
func (e *SyntaxError) GetPosition() report.Location {
	return e.Span.Start()
}

// GetSpan implements [reporter.ErrorWithSpan].
func (e *SyntaxError) GetSpan() report.Span {
	return e.Span
}

// Unwrap implements [reporter.ErrorWithPos].
func (e *SyntaxError) Unwrap() error {
	return e.Err
}
