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

// Package token defines the lexical vocabulary of the Coda language: the
// token classes and the token values the lexer produces.
package token

import "fmt"

const (
	Note       Class = iota // A pitch, such as C4 or Eb3.
	Key                     // A key name inside key[...], such as C or A-.
	Chord                   // A triad, such as C+4* or A-3*.
	Connector               // One of > or >>. Reserved.
	Comment                 // A // comment running to the end of the line.
	Number                  // A positive decimal integer.
	Keyword                 // One of key, sig, tmp, typ, rep or grp.
	Declarator              // The ! that introduces a header declaration.
	Rest                    // The _ rest marker.
	Separator               // The , between time signature numbers.
	LBrace
	RBrace
	LBracket
	RBracket
	EOF // Synthesized at the end of every token stream.

	numClasses
)

// Class identifies what kind of token a particular [Token] is.
type Class int8

// String implements [fmt.Stringer].
func (c Class) String() string {
	switch c {
	case Note:
		return "NOTE"
	case Key:
		return "KEY"
	case Chord:
		return "CHORD"
	case Connector:
		return "CONNECTOR"
	case Comment:
		return "COMMENT"
	case Number:
		return "NUMBER"
	case Keyword:
		return "KEYWORD"
	case Declarator:
		return "DECLARATOR"
	case Rest:
		return "REST"
	case Separator:
		return "SEPARATOR"
	case LBrace:
		return "LBRACE"
	case RBrace:
		return "RBRACE"
	case LBracket:
		return "LBRACKET"
	case RBracket:
		return "RBRACKET"
	case EOF:
		return "EOF"
	default:
		return fmt.Sprintf("token.Class(%d)", int(c))
	}
}

// Literal returns whether tokens of this class are told apart by their text
// as well as their class. Each keyword and each connector behaves as its own
// terminal in the grammar.
func (c Class) Literal() bool {
	return c == Keyword || c == Connector
}

// Classes returns every token class, in declaration order.
func Classes() []Class {
	classes := make([]Class, numClasses)
	for i := range classes {
		classes[i] = Class(i)
	}
	return classes
}

// Token is a classified piece of source text.
//
// Tokens are created by the lexer and never mutated afterwards.
type Token struct {
	Class Class
	// The text the token matched. For an invalid match, this is the prefix
	// the matcher managed to consume.
	Text string
	// The byte offset of the first character of the token in its source.
	Offset int
	// The matcher stages that failed while producing this token, in the
	// order they failed. Empty for every token the lexer emits.
	Failed []int
}

// Valid returns whether this token is a complete match for its class.
func (t Token) Valid() bool {
	return len(t.Failed) == 0
}

// End returns the byte offset just past the end of the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// String implements [fmt.Stringer].
func (t Token) String() string {
	if t.Class == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%v %q", t.Class, t.Text)
}
