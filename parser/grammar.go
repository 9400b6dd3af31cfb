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

	"github.com/bufbuild/coda/ast"
	"github.com/bufbuild/coda/token"
)

// Symbol is a grammar symbol: either a [Terminal] or a [Nonterminal].
type Symbol interface {
	fmt.Stringer
	symbol()
}

// Terminal is a grammar symbol matched by a single token.
//
// Keyword and connector terminals carry their literal text, since every
// keyword is a distinct terminal even though they share a token class. All
// other terminals have empty text.
type Terminal struct {
	Class token.Class
	Text  string
}

// Nonterminal is a grammar symbol that expands through the parse table.
type Nonterminal string

// Epsilon is the empty expansion. The parser drops it without consulting the
// table.
const Epsilon Nonterminal = "ε"

var (
	_ Symbol = Terminal{}
	_ Symbol = Nonterminal("")
)

// TerminalOf returns the terminal a token matches.
func TerminalOf(tok token.Token) Terminal {
	if tok.Class.Literal() {
		return Terminal{Class: tok.Class, Text: tok.Text}
	}
	return Terminal{Class: tok.Class}
}

// Matches returns whether tok is an instance of t.
func (t Terminal) Matches(tok token.Token) bool {
	return TerminalOf(tok) == t
}

// String implements [fmt.Stringer].
func (t Terminal) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Class.String()
}

// String implements [fmt.Stringer].
func (n Nonterminal) String() string {
	return string(n)
}

func (Terminal) symbol()    {}
func (Nonterminal) symbol() {}

// compareTerminals orders terminals by class, then by text.
func compareTerminals(a, b Terminal) int {
	if a.Class != b.Class {
		return int(a.Class) - int(b.Class)
	}
	return strings.Compare(a.Text, b.Text)
}

// Production is a single grammar rule, Head -> Body.
type Production struct {
	Head Nonterminal
	Body []Symbol

	// The label of the AST node this production opens. Empty if the
	// production is structurally transparent.
	Label ast.Label
	// The terminal that closes the node this production opens: the last
	// terminal in its body.
	Closer Terminal
}

// Nodable returns whether expanding p opens a new AST node.
func (p *Production) Nodable() bool {
	return p.Label != ""
}

// String implements [fmt.Stringer].
func (p *Production) String() string {
	var out strings.Builder
	out.WriteString(string(p.Head))
	out.WriteString(" ->")
	for _, sym := range p.Body {
		out.WriteByte(' ')
		out.WriteString(sym.String())
	}
	return out.String()
}

// Grammar is a context-free grammar.
type Grammar struct {
	Start       Nonterminal
	Productions []*Production
}

// Rule adds the production head -> body to g.
func (g *Grammar) Rule(head Nonterminal, body ...Symbol) *Grammar {
	g.Productions = append(g.Productions, &Production{Head: head, Body: body})
	return g
}

// Node adds the production head -> body to g and marks it nodable. Its
// closer is the last terminal of body.
func (g *Grammar) Node(label ast.Label, head Nonterminal, body ...Symbol) *Grammar {
	p := &Production{Head: head, Body: body, Label: label}
	for i := len(body) - 1; i >= 0; i-- {
		if t, ok := body[i].(Terminal); ok {
			p.Closer = t
			break
		}
	}
	g.Productions = append(g.Productions, p)
	return g
}

func keyword(text string) Terminal {
	return Terminal{Class: token.Keyword, Text: text}
}

func connector(text string) Terminal {
	return Terminal{Class: token.Connector, Text: text}
}

func class(c token.Class) Terminal {
	return Terminal{Class: c}
}

// CodaGrammar returns the grammar of the Coda language.
func CodaGrammar() *Grammar {
	var (
		bang   = class(token.Declarator)
		lbrack = class(token.LBracket)
		rbrack = class(token.RBracket)
		lbrace = class(token.LBrace)
		rbrace = class(token.RBrace)
		number = class(token.Number)
	)

	g := &Grammar{Start: "S"}
	g.Rule("S", Nonterminal("I"), Nonterminal("B")).
		Rule("I", bang, Nonterminal("K"), bang, Nonterminal("M"), bang, Nonterminal("D")).
		Node(ast.KeySignature, "K", keyword("key"), lbrack, class(token.Key), rbrack).
		Node(ast.TimeSignature, "M", keyword("sig"), lbrack, number, class(token.Separator), number, rbrack).
		Node(ast.Tempo, "D", keyword("tmp"), lbrack, number, rbrack).
		Rule("B", Nonterminal("C"), Nonterminal("Bp")).
		Rule("Bp", Nonterminal("C"), Nonterminal("Bp")).
		Rule("Bp", Epsilon).
		Node(ast.NoteBlock, "C", Nonterminal("T"), Nonterminal("R"), Nonterminal("G"), lbrace, Nonterminal("B"), rbrace).
		Rule("C", Nonterminal("N")).
		Node(ast.DurationModifier, "T", keyword("typ"), lbrack, number, rbrack).
		Rule("T", Epsilon).
		Node(ast.RepetitionModifier, "R", keyword("rep"), lbrack, number, rbrack).
		Rule("R", Epsilon).
		Node(ast.GroupingModifier, "G", keyword("grp"), lbrack, number, rbrack).
		Rule("G", Epsilon).
		Rule("N", Nonterminal("W"), Nonterminal("Np")).
		Rule("Np", connector(">"), Nonterminal("N")).
		Rule("Np", connector(">>"), Nonterminal("N")).
		Rule("Np", Epsilon).
		Node(ast.Term, "W", class(token.Chord)).
		Node(ast.Term, "W", class(token.Note)).
		Node(ast.Term, "W", class(token.Rest))
	return g
}
