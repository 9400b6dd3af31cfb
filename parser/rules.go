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
	"github.com/bufbuild/coda/token"
)

const (
	letters    = "ABCDEFG"
	accidental = "#b"
	quality    = "-+"
	octaves    = "1234567"
	digits     = "0123456789"
)

// Keywords lists the keywords of the language, each its own terminal.
var Keywords = []string{"key", "sig", "tmp", "typ", "rep", "grp"}

// Rules returns the Coda rule set, in registration order.
//
// NOTE comes before KEY and CHORD, so C4 is a note. Every rule returns fresh
// values, so callers may modify the result.
func Rules() []*Rule {
	rules := []*Rule{
		NewRule(token.Note, Required(letters), Optional(accidental), Required(octaves)),
		NewRule(token.Key, Required(letters), Optional(accidental), Optional(quality)),
		NewRule(token.Chord, Required(letters), Optional(accidental), Required(quality), Required(octaves), Required("*")),
		NewRule(token.Connector, Required(">"), Optional(">")),
		NewRule(token.Comment, Required("/"), Required("/"), Repeat("\n").Inverted(), Optional("\n")),
		NewRule(token.Number, Required(digits[1:]), Repeat(digits)),
		Literal(token.Declarator, "!"),
		Literal(token.Rest, "_"),
		Literal(token.Separator, ","),
		Literal(token.LBrace, "{"),
		Literal(token.RBrace, "}"),
		Literal(token.LBracket, "["),
		Literal(token.RBracket, "]"),
	}
	for _, kw := range Keywords {
		rules = append(rules, Literal(token.Keyword, kw))
	}
	return rules
}

var codaLexer = NewLexer(Rules()...)

// Tokenize splits Coda source text into tokens. The path is only used for
// error positions.
func Tokenize(path, text string) (*Stream, error) {
	return codaLexer.Tokenize(path, text)
}
