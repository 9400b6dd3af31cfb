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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bufbuild/coda/ast"
	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/parser"
	"github.com/bufbuild/coda/reporter"
	"github.com/bufbuild/coda/sequence"
	"github.com/bufbuild/coda/token"
	"github.com/bufbuild/coda/walk"
)

// ErrConnector is reported as a warning for every connector in a program.
// Connectors are part of the grammar but do not affect the output.
var ErrConnector = errors.New("connector is reserved and has no effect")

// Compiler handles compilation tasks, to turn Coda source files, or other
// intermediate representations, into Standard MIDI Files.
//
// The compilation process involves four steps for each file:
//  1. Tokenizing and parsing the source into an AST.
//  2. Checking the pitches and chords named in the AST.
//  3. Extracting the header values and the note sequence.
//  4. Scheduling the sequence and writing it out as MIDI.
//
// Every file is compiled independently of the others, and files are
// compiled concurrently.
type Compiler struct {
	// Resolves paths into source code or intermediate representations. This
	// is how the compiler loads the files to be compiled. This field is the
	// only required field.
	Resolver Resolver
	// The maximum parallelism to use when compiling. If unspecified or set to
	// a non-positive value, then min(runtime.NumCPU(), runtime.GOMAXPROCS(-1))
	// will be used.
	MaxParallelism int
	// A custom error and warning reporter. If unspecified a default reporter
	// is used. A default reporter fails the compilation after encountering any
	// errors and ignores all warnings.
	Reporter reporter.Reporter
	// Settings for the MIDI output.
	Encoder midi.Encoder
}

// Result is the output of compiling one file.
type Result struct {
	Path string
	// The token stream, if the file was compiled from source.
	Stream *parser.Stream
	// The parsed program. Nil if the resolver supplied a score.
	AST   *ast.ProductionNode
	Score *sequence.Score
	Song  *midi.Song
	// The encoded Standard MIDI File.
	MIDI []byte
}

// Compile compiles the given files. The compiler's resolver is used to
// locate source code (or intermediate artifacts such as parsed ASTs or
// scores) and then do what is necessary to transform that into MIDI.
//
// Results are returned in the order of files. If the reporter returns an
// error, compilation is aborted and that error is returned. If it swallows
// every error, the files that did compile are returned, with nil entries for
// the others, along with [reporter.ErrInvalidSource].
func (c *Compiler) Compile(ctx context.Context, files ...string) ([]*Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	par := c.MaxParallelism
	if par <= 0 {
		par = min(runtime.GOMAXPROCS(-1), runtime.NumCPU())
	}

	e := executor{
		c:       c,
		h:       reporter.NewHandler(c.Reporter),
		s:       semaphore.NewWeighted(int64(par)),
		cancel:  cancel,
		results: map[string]*result{},
	}

	pending := make([]*result, len(files))
	for i, f := range files {
		pending[i] = e.compile(ctx, f)
	}

	results := make([]*Result, len(files))
	for i, r := range pending {
		select {
		case <-r.ready:
		case <-ctx.Done():
			if err := e.h.ReporterError(); err != nil {
				return nil, err
			}
			return nil, ctx.Err()
		}
		results[i] = r.res
	}

	if err := e.h.ReporterError(); err != nil {
		return nil, err
	}
	if err := e.h.Error(); err != nil {
		return results, err
	}
	for _, r := range pending {
		if r.err != nil {
			return results, r.err
		}
	}
	return results, nil
}

type result struct {
	ready chan struct{}
	res   *Result
	err   error
}

func (r *result) fail(err error) {
	r.err = err
	close(r.ready)
}

func (r *result) complete(res *Result) {
	r.res = res
	close(r.ready)
}

type executor struct {
	c      *Compiler
	h      *reporter.Handler
	s      *semaphore.Weighted
	cancel context.CancelFunc

	mu      sync.Mutex
	results map[string]*result
}

func (e *executor) compile(ctx context.Context, file string) *result {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.results[file]
	if r != nil {
		return r
	}

	r = &result{
		ready: make(chan struct{}),
	}
	e.results[file] = r
	go func() {
		e.doCompile(ctx, file, r)
	}()
	return r
}

func (e *executor) doCompile(ctx context.Context, file string, r *result) {
	if err := e.s.Acquire(ctx, 1); err != nil {
		r.fail(err)
		return
	}
	defer e.s.Release(1)

	res, err := e.run(file)
	if err != nil {
		if err = e.h.HandleError(err); err != nil {
			e.cancel()
		} else {
			err = reporter.ErrInvalidSource
		}
		r.fail(err)
		return
	}
	r.complete(res)
}

// run takes a single file through the whole pipeline.
func (e *executor) run(path string) (*Result, error) {
	sr, err := e.c.Resolver.FindFileByPath(path)
	if err != nil {
		return nil, err
	}
	if c, ok := sr.Source.(io.Closer); ok {
		defer c.Close()
	}

	res := &Result{Path: path}
	switch {
	case sr.Score != nil:
		res.Score = sr.Score
	case sr.AST != nil:
		res.AST = sr.AST
	case sr.Source != nil:
		data, err := io.ReadAll(sr.Source)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		res.AST, res.Stream, err = parser.ParseSource(path, string(data))
		if err != nil {
			return nil, err
		}
		if err := e.check(res); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: resolver returned an empty result for %q", ErrNotFound, path)
	}

	if res.Score == nil {
		res.Score, err = sequence.Extract(res.AST)
		if err != nil {
			var seqErr *sequence.Error
			if res.Stream != nil && errors.As(err, &seqErr) {
				tok := seqErr.Token
				return nil, reporter.ErrorAt(res.Stream.File.NewSpan(tok.Offset, tok.End()), err)
			}
			return nil, err
		}
	}

	res.Song, err = e.c.Encoder.Schedule(res.Score)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := res.Song.Write(&buf); err != nil {
		return nil, err
	}
	res.MIDI = buf.Bytes()
	return res, nil
}

// check looks up every pitch, chord and (if meta events are enabled) key
// named by the program, so that a name missing from the tables is reported
// where it appears. Connectors produce warnings.
func (e *executor) check(res *Result) error {
	file := res.Stream.File
	return walk.Nodes(res.AST, func(n ast.Node) error {
		leaf, ok := n.(*ast.TokenNode)
		if !ok {
			return nil
		}
		tok := leaf.Token
		var err error
		switch tok.Class {
		case token.Connector:
			e.h.HandleWarningAt(file.NewSpan(tok.Offset, tok.End()), fmt.Errorf("%w: %q", ErrConnector, tok.Text))
		case token.Note:
			_, err = midi.Pitch(tok.Text)
		case token.Chord:
			_, err = midi.Chord(tok.Text)
		case token.Key:
			if e.c.Encoder.Meta {
				_, _, err = midi.Key(tok.Text)
			}
		}
		if err != nil {
			return reporter.ErrorAt(file.NewSpan(tok.Offset, tok.End()), err)
		}
		return nil
	})
}
