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

package coda

import (
	"errors"

	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/parser"
	"github.com/bufbuild/coda/report"
	"github.com/bufbuild/coda/reporter"
	"github.com/bufbuild/coda/sequence"
	"github.com/bufbuild/coda/token"
)

// Kind classifies a compilation error by the stage of the pipeline that
// produced it: "lexical", "syntax" or "semantic". It returns "" for errors
// that do not come from the pipeline, such as I/O failures.
func Kind(err error) string {
	var (
		lexErr *parser.LexicalError
		synErr *parser.SyntaxError
		seqErr *sequence.Error
		semErr *midi.SemanticError
	)
	switch {
	case errors.As(err, &lexErr):
		return "lexical"
	case errors.As(err, &synErr):
		return "syntax"
	case errors.As(err, &seqErr), errors.As(err, &semErr),
		errors.Is(err, midi.ErrTempoRange), errors.Is(err, midi.ErrDeltaRange):
		return "semantic"
	default:
		return ""
	}
}

// Diagnose converts a compilation error into a diagnostic. Errors that carry
// a span are rendered with a snippet of the offending source.
func Diagnose(err error) report.Diagnostic {
	return diagnose(report.Error, err)
}

// DiagnoseWarning converts a warning passed to a [reporter.Reporter] into a
// diagnostic.
func DiagnoseWarning(err reporter.ErrorWithPos) report.Diagnostic {
	return diagnose(report.Warning, err)
}

func diagnose(level report.Level, err error) report.Diagnostic {
	var opts []report.DiagnosticOption
	msg := err

	var spanErr reporter.ErrorWithSpan
	if errors.As(err, &spanErr) {
		msg = spanErr.Unwrap()
		opts = append(opts, report.SnippetAt(spanErr.GetSpan(), "%s", label(err)))
	}
	if kind := Kind(err); kind != "" {
		opts = append(opts, report.Note("%s error", kind))
	}

	var lexErr *parser.LexicalError
	switch {
	case errors.As(err, &lexErr) && lexErr.Malformed():
		opts = append(opts, report.Help("stage %d of the %v rule did not match", lexErr.Stage, lexErr.Class))
	case errors.Is(err, midi.ErrUnknownPitch):
		opts = append(opts, report.Help("pitches are a letter from A to G, an optional # or b, and an octave from 1 to 7"))
	case errors.Is(err, midi.ErrUnknownChord):
		opts = append(opts, report.Help("chords are written as a root, + or -, an octave and a *, as in C+4* or Eb-3*"))
	case errors.Is(err, midi.ErrTempoRange):
		opts = append(opts, report.Help("the tempo must be at least 4 beats per minute"))
	}

	return report.New(level, msg, opts...)
}

func label(err error) string {
	var (
		lexErr *parser.LexicalError
		synErr *parser.SyntaxError
	)
	switch {
	case errors.As(err, &lexErr) && lexErr.Malformed():
		return "malformed " + lexErr.Class.String()
	case errors.As(err, &lexErr):
		return "not the start of any token"
	case errors.As(err, &synErr) && synErr.Found.Class == token.EOF:
		return "program ends here"
	case errors.As(err, &synErr):
		return "unexpected " + synErr.Found.Class.String()
	case errors.Is(err, ErrConnector):
		return "ignored"
	default:
		return "here"
	}
}
