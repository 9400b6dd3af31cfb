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
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bufbuild/coda/report"
	"github.com/bufbuild/coda/token"
)

// Stage is one step of a staged matcher: a set of bytes, and how the matcher
// behaves when the current input byte is or is not in that set.
type Stage struct {
	Chars string

	// An optional stage always advances, and consumes a byte only if it
	// matches.
	Optional bool
	// A repeat stage consumes matching bytes until one does not match, and
	// only then advances.
	Repeat bool
	// An inverted stage matches every byte not in Chars.
	Invert bool
}

// Required returns a stage that must match exactly one byte from chars.
func Required(chars string) Stage {
	return Stage{Chars: chars}
}

// Optional returns a stage that matches zero or one byte from chars.
func Optional(chars string) Stage {
	return Stage{Chars: chars, Optional: true}
}

// Repeat returns a stage that matches any number of bytes from chars.
func Repeat(chars string) Stage {
	return Stage{Chars: chars, Repeat: true}
}

// Inverted returns a copy of s that matches the complement of its set.
func (s Stage) Inverted() Stage {
	s.Invert = true
	return s
}

func (s Stage) accepts(c byte) bool {
	return (strings.IndexByte(s.Chars, c) >= 0) != s.Invert
}

func (s Stage) required() bool {
	return !s.Optional && !s.Repeat
}

// Rule is a staged matcher for one token class.
type Rule struct {
	Class  token.Class
	Stages []Stage
	// Single marks rules for single-character classes. Such rules are never
	// offered as correction suggestions.
	Single bool

	final int
}

// NewRule creates a rule for class out of stages, which are tried in order.
func NewRule(class token.Class, stages ...Stage) *Rule {
	final := -1
	for i, stage := range stages {
		if !stage.Optional {
			final = i
		}
	}
	return &Rule{Class: class, Stages: stages, final: final}
}

// Literal creates a rule matching exactly text. Rules for one-byte literals
// are marked Single.
func Literal(class token.Class, text string) *Rule {
	stages := make([]Stage, len(text))
	for i := range len(text) {
		stages[i] = Required(text[i : i+1])
	}
	rule := NewRule(class, stages...)
	rule.Single = len(text) == 1
	return rule
}

// Final returns the index of the last stage that is not optional. A match
// must get through this stage to be valid.
func (r *Rule) Final() int {
	return r.final
}

// Match runs r against the start of input and returns what it consumed.
//
// The result is valid only if every required stage up to the final one
// matched. A required stage that does not match is recorded as failed and
// the matcher moves on to the next stage without consuming anything, so
// that near misses can be reported with the stage that needs correcting.
func (r *Rule) Match(input string) token.Token {
	var failed []int
	var i, stage int
	for stage < len(r.Stages) {
		cur := r.Stages[stage]
		if i == len(input) {
			// Out of input; every remaining required stage fails.
			for ; stage <= r.final; stage++ {
				if r.Stages[stage].required() {
					failed = append(failed, stage)
				}
			}
			break
		}

		ok := cur.accepts(input[i])
		switch {
		case cur.Optional:
			if ok {
				i++
			}
			stage++
		case cur.Repeat:
			if ok {
				i++
			} else {
				stage++
			}
		case ok:
			i++
			stage++
		default:
			failed = append(failed, stage)
			stage++
		}
	}

	return token.Token{Class: r.Class, Text: input[:i], Failed: failed}
}

// Stream is the result of tokenizing a file.
type Stream struct {
	File *report.IndexedFile
	// Every token the parser sees, ending with a token.EOF.
	Tokens []token.Token
	// Comments, which are discarded before parsing.
	Comments []token.Token
}

// Lexer tokenizes input with a fixed set of rules.
//
// A Lexer is immutable once built and may be used from multiple goroutines.
type Lexer struct {
	rules   []*Rule
	singles map[token.Class]bool
}

// NewLexer creates a lexer from rules. Registration order matters: when two
// rules produce valid matches of the same length, the one registered first
// wins.
func NewLexer(rules ...*Rule) *Lexer {
	l := &Lexer{singles: make(map[token.Class]bool)}
	for _, rule := range rules {
		l.rules = append(l.rules, rule)
		if rule.Single {
			l.singles[rule.Class] = true
		}
	}
	return l
}

// Tokenize splits the contents of a file into tokens.
//
// Whitespace separates tokens and is otherwise ignored. Comment tokens are
// moved to [Stream.Comments]. The first position where no rule produces a
// valid match fails the whole file with a [*LexicalError].
func (l *Lexer) Tokenize(path, text string) (*Stream, error) {
	stream := &Stream{File: report.NewIndexedFile(report.File{Path: path, Text: text})}

	pos := skipSpace(text, 0)
	for pos < len(text) {
		tok, err := l.next(stream.File, pos)
		if err != nil {
			return nil, err
		}
		if tok.Class == token.Comment {
			stream.Comments = append(stream.Comments, tok)
		} else {
			stream.Tokens = append(stream.Tokens, tok)
		}
		pos = skipSpace(text, tok.End())
	}

	stream.Tokens = append(stream.Tokens, token.Token{Class: token.EOF, Offset: len(text)})
	return stream, nil
}

// next runs every rule at pos and picks the winner by maximal munch.
func (l *Lexer) next(file *report.IndexedFile, pos int) (token.Token, error) {
	rest := file.File().Text[pos:]

	var best, near token.Token
	var haveBest, haveNear bool
	for _, rule := range l.rules {
		match := rule.Match(rest)
		match.Offset = pos

		if match.Valid() {
			// Strictly longer only, so earlier rules win ties.
			if match.Text != "" && (!haveBest || len(match.Text) > len(best.Text)) {
				best, haveBest = match, true
			}
			continue
		}

		// A near miss must have consumed something; a rule that failed on
		// its first character does not resemble the input at all.
		if len(match.Failed) == 1 && match.Text != "" && !l.singles[rule.Class] &&
			(!haveNear || len(match.Text) > len(near.Text)) {
			near, haveNear = match, true
		}
	}

	if haveBest {
		return best, nil
	}

	excerpt := excerpt(rest)
	if haveNear {
		return token.Token{}, &LexicalError{
			Span: file.NewSpan(pos, pos+len(near.Text)),
			Err: fmt.Errorf("%w: for %v token, correct stage %d of input %q",
				ErrMalformed, near.Class, near.Failed[0], excerpt),
			Class: near.Class,
			Stage: near.Failed[0],
		}
	}

	_, size := utf8.DecodeRuneInString(rest)
	return token.Token{}, &LexicalError{
		Span:  file.NewSpan(pos, pos+size),
		Err:   fmt.Errorf("%w %q", ErrUnrecognized, excerpt),
		Class: token.EOF,
		Stage: -1,
	}
}

// excerpt returns up to ten runes of text, stopping at the end of the line.
func excerpt(text string) string {
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[:nl]
	}
	var n int
	for i := range text {
		if n == 10 {
			return text[:i] + "..."
		}
		n++
	}
	return text
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && strings.IndexByte(" \t\r\n", text[pos]) >= 0 {
		pos++
	}
	return pos
}
