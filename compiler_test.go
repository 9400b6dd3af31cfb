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
	"context"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/parser"
	"github.com/bufbuild/coda/report"
	"github.com/bufbuild/coda/reporter"
	"github.com/bufbuild/coda/sequence"
)

const header = "!key[C]!sig[4,4]!tmp[120]"

func compiler(files map[string]string) *Compiler {
	return &Compiler{
		Resolver: &SourceResolver{Accessor: SourceAccessorFromMap(files)},
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	comp := compiler(map[string]string{
		"a.coda": header + "{C4}",
		"b.coda": header + "// two notes\n{typ[2]{C4 D4}}",
	})
	results, err := comp.Compile(context.Background(), "a.coda", "b.coda", "a.coda")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a.coda", results[0].Path)
	assert.Same(t, results[0], results[2])
	want, err := midi.Encode(120, []sequence.Element{sequence.Note{Pitch: "C4"}}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, want, results[0].MIDI)

	b := results[1]
	assert.Equal(t, "C4:2 D4:2", b.Score.String())
	require.NotNil(t, b.Stream)
	require.Len(t, b.Stream.Comments, 1)
	assert.Equal(t, "// two notes\n", b.Stream.Comments[0].Text)
	assert.Equal(t, uint64(4*480), b.Song.Timeline.End())
}

func TestCompileEncoderSettings(t *testing.T) {
	t.Parallel()

	comp := compiler(map[string]string{"a.coda": "!key[Eb-]!sig[3,8]!tmp[120]{C4}"})
	comp.Encoder = midi.Encoder{Division: 96, Meta: true}
	results, err := comp.Compile(context.Background(), "a.coda")
	require.NoError(t, err)

	var listing strings.Builder
	require.NoError(t, midi.Disassemble(&listing, results[0].MIDI))
	assert.Contains(t, listing.String(), "division=96")
	assert.Contains(t, listing.String(), "time-signature 3/8")
	assert.Contains(t, listing.String(), "key-signature -6 minor")
}

func TestCompileIntermediates(t *testing.T) {
	t.Parallel()

	root, _, err := parser.ParseSource("ast.coda", header+"{D4}")
	require.NoError(t, err)
	score := &sequence.Score{
		Tempo:     60,
		Elements:  []sequence.Element{sequence.Rest{}, sequence.Note{Pitch: "E4"}},
		Durations: []int{1, 1},
	}
	comp := Compiler{
		Resolver: ResolverFunc(func(path string) (SearchResult, error) {
			switch path {
			case "ast.coda":
				return SearchResult{AST: root}, nil
			case "score.coda":
				return SearchResult{Score: score, AST: root}, nil
			default:
				return SearchResult{}, nil
			}
		}),
	}

	results, err := comp.Compile(context.Background(), "ast.coda", "score.coda")
	require.NoError(t, err)
	assert.Nil(t, results[0].Stream)
	assert.Equal(t, "D4:1", results[0].Score.String())
	assert.Same(t, score, results[1].Score)
	assert.Equal(t, 2*time.Second, results[1].Song.Duration())

	_, err = comp.Compile(context.Background(), "empty.coda")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		kind string
		want string
	}{
		{
			name: "unrecognized",
			src:  header + "{C4 @}",
			kind: "lexical",
			want: `1:30: unrecognized symbol or token "@}"`,
		},
		{
			name: "syntax",
			src:  header + "{C4",
			kind: "syntax",
			want: "1:29: unexpected token: expected RBRACE, found end of input",
		},
		{
			name: "unknown pitch",
			src:  header + "{C4\nE#4}",
			kind: "semantic",
			want: `2:1: unknown pitch: "E#4"`,
		},
		{
			name: "unknown chord",
			src:  header + "{E#+4*}",
			kind: "semantic",
			want: `1:27: unknown chord: "E#+4*"`,
		},
		{
			name: "number range",
			src:  "!key[C]!sig[4,4]!tmp[99999999999999999999]{C4}",
			kind: "semantic",
			want: `1:22: number out of range: "99999999999999999999"`,
		},
		{
			name: "tempo",
			src:  "!key[C]!sig[4,4]!tmp[3]{C4}",
			kind: "semantic",
			want: "tempo out of range",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			comp := compiler(map[string]string{"test.coda": test.src})
			results, err := comp.Compile(context.Background(), "test.coda")
			require.Error(t, err)
			assert.Nil(t, results)
			assert.Contains(t, err.Error(), test.want)
			assert.Equal(t, test.kind, Kind(err))
		})
	}
}

func TestCompileMissingFile(t *testing.T) {
	t.Parallel()

	comp := compiler(map[string]string{})
	_, err := comp.Compile(context.Background(), "missing.coda")
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Empty(t, Kind(err))
}

func TestCompileWarnings(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var warnings []string
	comp := compiler(map[string]string{"test.coda": header + "{C4 > D4 >> E4}"})
	comp.Reporter = reporter.NewReporter(nil, func(err reporter.ErrorWithPos) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, err.Error())
	})

	results, err := comp.Compile(context.Background(), "test.coda")
	require.NoError(t, err)
	assert.Equal(t, "C4:1 D4:1 E4:1", results[0].Score.String())
	assert.Equal(t, []string{
		`1:30: connector is reserved and has no effect: ">"`,
		`1:35: connector is reserved and has no effect: ">>"`,
	}, warnings)
}

func TestDiagnose(t *testing.T) {
	t.Parallel()

	comp := compiler(map[string]string{"test.coda": header + "{C4 E#+4*}"})
	_, err := comp.Compile(context.Background(), "test.coda")
	require.Error(t, err)

	d := Diagnose(err)
	assert.Equal(t, report.Error, d.Level)
	assert.Equal(t, []string{"semantic error"}, d.Notes())
	assert.Equal(t, `error: test.coda:1:30: unknown chord: "E#+4*"`, d.Render(report.Simple))

	file, start, end := d.Primary()
	assert.Equal(t, "test.coda", file.Path)
	assert.Equal(t, 29, start.Offset)
	assert.Equal(t, 34, end.Offset)

	rendered := d.Render(report.Monochrome)
	assert.Contains(t, rendered, "--> test.coda:1:30")
	assert.Contains(t, rendered, "^^^^^ here")
	assert.Contains(t, rendered, "help: chords are written as")
}

func TestDiagnoseWithoutSpan(t *testing.T) {
	t.Parallel()

	d := Diagnose(fs.ErrNotExist)
	assert.Equal(t, "error: <unknown>: file does not exist", d.Render(report.Simple))
	assert.Empty(t, d.Notes())
}

func TestDiagnoseWarning(t *testing.T) {
	t.Parallel()

	var warnings []report.Diagnostic
	comp := compiler(map[string]string{"test.coda": header + "{C4 > D4}"})
	comp.Reporter = reporter.NewReporter(nil, func(err reporter.ErrorWithPos) {
		warnings = append(warnings, DiagnoseWarning(err))
	})
	_, err := comp.Compile(context.Background(), "test.coda")
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, report.Warning, warnings[0].Level)
	assert.Equal(t, `warning: test.coda:1:30: connector is reserved and has no effect: ">"`,
		warnings[0].Render(report.Simple))
	assert.Contains(t, warnings[0].Render(report.Monochrome), "^ ignored")
}
