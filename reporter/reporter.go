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

// Package reporter contains the types used for reporting errors and warnings
// from the Coda compiler to its caller.
package reporter

import (
	"sync"

	"github.com/bufbuild/coda/report"
)

// ErrorReporter is responsible for reporting the given error. If the reporter
// returns a non-nil error, compilation aborts with that error. Coda has no
// error recovery, so compilation of the offending file stops either way; a
// nil return only lets other files of the same batch finish.
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is responsible for reporting the given warning. Warnings
// never fail a compilation; they flag constructs that are accepted but have
// no effect, such as reserved connectors.
type WarningReporter func(ErrorWithPos)

// Reporter receives the errors and warnings produced while compiling.
type Reporter interface {
	Error(ErrorWithPos) error
	Warning(ErrorWithPos)
}

// NewReporter builds a Reporter out of a pair of functions. Either may be
// nil: a nil error reporter returns every error unchanged and a nil warning
// reporter drops warnings.
func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(err ErrorWithPos) error {
	if r.errs == nil {
		return err
	}
	return r.errs(err)
}

func (r reporterFuncs) Warning(err ErrorWithPos) {
	if r.warnings != nil {
		r.warnings(err)
	}
}

// Handler funnels errors and warnings from concurrent compilations into a
// single Reporter, and remembers the first error it returned.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	err          error
}

// NewHandler creates a handler for the given reporter. A nil reporter fails
// on the first error and ignores warnings.
func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

// HandleErrorf reports a positioned error built from a format string.
func (h *Handler) HandleErrorf(pos report.Location, format string, args ...any) error {
	return h.HandleError(Errorf(pos, format, args...))
}

// HandleError reports err. Errors without a position bypass the reporter and
// are returned as is.
func (h *Handler) HandleError(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if ewp, ok := err.(ErrorWithPos); ok {
		h.errsReported = true
		err = h.reporter.Error(ewp)
	}
	h.err = err
	return err
}

// HandleWarning reports a warning at the given position.
func (h *Handler) HandleWarning(pos report.Location, err error) {
	// no need for lock; warnings don't interact with mutable fields
	h.reporter.Warning(errorWithPos{pos: pos, underlying: err})
}

// HandleWarningAt reports a warning about the given span of source.
func (h *Handler) HandleWarningAt(span report.Span, err error) {
	h.reporter.Warning(ErrorAt(span, err))
}

// Error returns the error that compilation should fail with, if any.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrInvalidSource
	}
	return h.err
}

// ReporterError returns the error the reporter returned, if any.
func (h *Handler) ReporterError() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}
