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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/coda/token"
)

func TestStageMatching(t *testing.T) {
	t.Parallel()

	rule := NewRule(token.Note, Required("AB"), Optional("#"), Repeat("12"), Required("x"))
	assert.Equal(t, 3, rule.Final())

	tests := []struct {
		input  string
		text   string
		failed []int
	}{
		{input: "Ax", text: "Ax"},
		{input: "A#x", text: "A#x"},
		{input: "A#1212xy", text: "A#1212x"},
		{input: "B2", text: "B2", failed: []int{3}},
		{input: "Cx", text: "", failed: []int{0, 3}},
		{input: "", failed: []int{0, 3}},
		{input: "A#1y", text: "A#1", failed: []int{3}},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			t.Parallel()
			tok := rule.Match(test.input)
			assert.Equal(t, test.text, tok.Text)
			assert.Equal(t, test.failed, tok.Failed)
			assert.Equal(t, len(test.failed) == 0, tok.Valid())
		})
	}
}

func TestInvertedStage(t *testing.T) {
	t.Parallel()

	rule := NewRule(token.Comment, Required("/"), Required("/"), Repeat("\n").Inverted(), Optional("\n"))
	tok := rule.Match("// hello\nC4")
	assert.True(t, tok.Valid())
	assert.Equal(t, "// hello\n", tok.Text)

	tok = rule.Match("//eof")
	assert.True(t, tok.Valid())
	assert.Equal(t, "//eof", tok.Text)
}

func TestLiteralRule(t *testing.T) {
	t.Parallel()

	assert.True(t, Literal(token.RBrace, "}").Single)
	kw := Literal(token.Keyword, "typ")
	assert.False(t, kw.Single)
	assert.Equal(t, 2, kw.Final())

	tok := kw.Match("tmp")
	assert.False(t, tok.Valid())
	assert.Equal(t, []int{1, 2}, tok.Failed)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	stream, err := Tokenize("test.coda", "!key[Eb-] // header\n{typ[2] C4 C+4* _ > Ab3 >> G#2}")
	require.NoError(t, err)

	type tok struct {
		Class  token.Class
		Text   string
		Offset int
	}
	var got []tok
	for _, tk := range stream.Tokens {
		got = append(got, tok{tk.Class, tk.Text, tk.Offset})
	}
	want := []tok{
		{token.Declarator, "!", 0},
		{token.Keyword, "key", 1},
		{token.LBracket, "[", 4},
		{token.Key, "Eb-", 5},
		{token.RBracket, "]", 8},
		{token.LBrace, "{", 20},
		{token.Keyword, "typ", 21},
		{token.LBracket, "[", 24},
		{token.Number, "2", 25},
		{token.RBracket, "]", 26},
		{token.Note, "C4", 28},
		{token.Chord, "C+4*", 31},
		{token.Rest, "_", 36},
		{token.Connector, ">", 38},
		{token.Note, "Ab3", 40},
		{token.Connector, ">>", 44},
		{token.Note, "G#2", 47},
		{token.RBrace, "}", 50},
		{token.EOF, "", 51},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected tokens (-want +got):\n%s", diff)
	}

	require.Len(t, stream.Comments, 1)
	assert.Equal(t, "// header\n", stream.Comments[0].Text)
}

func TestTokenizeEmpty(t *testing.T) {
	t.Parallel()

	stream, err := Tokenize("empty.coda", " \t\r\n")
	require.NoError(t, err)
	require.Len(t, stream.Tokens, 1)
	assert.Equal(t, token.EOF, stream.Tokens[0].Class)
	assert.Equal(t, 4, stream.Tokens[0].Offset)
}

func TestMaximalMunch(t *testing.T) {
	t.Parallel()

	// The longest valid match wins regardless of registration order.
	stream, err := Tokenize("test.coda", "C+4* 120 >>")
	require.NoError(t, err)
	assert.Equal(t, token.Chord, stream.Tokens[0].Class)
	assert.Equal(t, token.Number, stream.Tokens[1].Class)
	assert.Equal(t, "120", stream.Tokens[1].Text)
	assert.Equal(t, ">>", stream.Tokens[2].Text)

	// KEY matches C, NOTE matches C4; the longer one wins.
	stream, err = Tokenize("test.coda", "C4")
	require.NoError(t, err)
	assert.Equal(t, token.Note, stream.Tokens[0].Class)

	// Only KEY matches a bare letter.
	stream, err = Tokenize("test.coda", "C]")
	require.NoError(t, err)
	assert.Equal(t, token.Key, stream.Tokens[0].Class)
}

func TestMaximalMunchTieBreak(t *testing.T) {
	t.Parallel()

	// Both rules match "C4" in full. The first registered wins, every time.
	note := NewRule(token.Note, Required("ABCDEFG"), Required("1234567"))
	chord := NewRule(token.Chord, Required("ABCDEFG"), Repeat("1234567"))

	for range 10 {
		stream, err := NewLexer(note, chord).Tokenize("test", "C4")
		require.NoError(t, err)
		assert.Equal(t, token.Note, stream.Tokens[0].Class)

		stream, err = NewLexer(chord, note).Tokenize("test", "C4")
		require.NoError(t, err)
		assert.Equal(t, token.Chord, stream.Tokens[0].Class)
	}

	// A strictly longer match still beats an earlier rule.
	stream, err := NewLexer(note, chord).Tokenize("test", "C45")
	require.NoError(t, err)
	assert.Equal(t, token.Chord, stream.Tokens[0].Class)
	assert.Equal(t, "C45", stream.Tokens[0].Text)
}

func TestLexicalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		malformed bool
		class     token.Class
		stage     int
		line, col int
		message   string
	}{
		{
			name:    "unrecognized",
			input:   "{C4}\n  @@",
			line:    2,
			col:     3,
			message: `2:3: unrecognized symbol or token "@@"`,
		},
		{
			name:      "misspelled keyword",
			input:     "!tmq[120]",
			malformed: true,
			class:     token.Keyword,
			stage:     2,
			line:      1,
			col:       2,
			message:   `1:2: malformed token: for KEYWORD token, correct stage 2 of input "tmq[120]"`,
		},
		{
			name:      "zero",
			input:     "tmp[0]",
			malformed: true,
			class:     token.Number,
			stage:     0,
			line:      1,
			col:       5,
			message:   `1:5: malformed token: for NUMBER token, correct stage 0 of input "0]"`,
		},
		{
			// KEY fails only at its first stage here, but matched nothing,
			// so it is not offered as a correction.
			name:    "no key suggestion",
			input:   "x",
			line:    1,
			col:     1,
			message: `1:1: unrecognized symbol or token "x"`,
		},
		{
			name:    "no suggestion inside a block",
			input:   "{C4 H}",
			line:    1,
			col:     5,
			message: `1:5: unrecognized symbol or token "H}"`,
		},
		{
			name:    "long excerpt",
			input:   "$abcdefghijklmnop",
			line:    1,
			col:     1,
			message: `1:1: unrecognized symbol or token "$abcdefghi..."`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := Tokenize("test.coda", test.input)
			var lexErr *LexicalError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, test.malformed, lexErr.Malformed())
			if test.malformed {
				assert.ErrorIs(t, err, ErrMalformed)
				assert.Equal(t, test.class, lexErr.Class)
				assert.Equal(t, test.stage, lexErr.Stage)
			} else {
				assert.True(t, errors.Is(err, ErrUnrecognized))
			}
			pos := lexErr.GetPosition()
			assert.Equal(t, test.line, pos.Line)
			assert.Equal(t, test.col, pos.Column)
			assert.Equal(t, test.message, err.Error())
		})
	}
}
