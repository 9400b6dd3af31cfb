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

// derivation is the complete state of a leftmost derivation in progress.
// Each call to step takes one and returns the next.
type derivation struct {
	// The unexpanded remainder of the sentential form, with its head at the
	// end of the slice.
	form []Symbol
	// Index of the lookahead token.
	cursor int
	// The open AST nodes; the last one receives new children.
	nodes []*ast.ProductionNode
	// The closers of the open nodes, excluding the root. closers[i] closes
	// nodes[i+1].
	closers []Terminal
}

func (d derivation) head() Symbol {
	return d.form[len(d.form)-1]
}

func (d derivation) top() *ast.ProductionNode {
	return d.nodes[len(d.nodes)-1]
}

// Parse derives the token stream from start using table, and returns the AST
// it builds along the way. The returned root is labeled [ast.Program].
//
// The first token that cannot be derived fails the parse with a
// [*SyntaxError]; there is no recovery.
func Parse(stream *Stream, table *Table, start Nonterminal) (*ast.ProductionNode, error) {
	root := ast.NewProductionNode(ast.Program)
	d := derivation{
		form:  []Symbol{start},
		nodes: []*ast.ProductionNode{root},
	}

	var err error
	for len(d.form) > 0 {
		if d, err = step(stream, table, d); err != nil {
			return nil, err
		}
	}

	if tok := stream.Tokens[d.cursor]; tok.Class != token.EOF {
		return nil, &SyntaxError{
			Span:  stream.File.NewSpan(tok.Offset, tok.End()),
			Err:   fmt.Errorf("%w %v after end of program", ErrUnexpectedToken, tok),
			Found: tok,
		}
	}
	return root, nil
}

// step expands or matches the head of the sentential form.
func step(stream *Stream, table *Table, d derivation) (derivation, error) {
	la := stream.Tokens[d.cursor]
	head := d.head()
	d.form = d.form[:len(d.form)-1]

	switch head := head.(type) {
	case Nonterminal:
		if head == Epsilon {
			return d, nil
		}

		p, ok := table.Lookup(head, TerminalOf(la))
		if !ok {
			expected := table.Expected(head)
			return d, &SyntaxError{
				Span:        stream.File.NewSpan(la.Offset, la.End()),
				Err:         fmt.Errorf("%w %v in %s, expected %s", ErrUnexpectedToken, la, head, oneOf(expected)),
				Found:       la,
				Nonterminal: head,
				Expected:    expected,
			}
		}

		// Push the body in reverse, so that its first symbol is the new head.
		for i := len(p.Body) - 1; i >= 0; i-- {
			d.form = append(d.form, p.Body[i])
		}
		if p.Nodable() {
			node := ast.NewProductionNode(p.Label)
			d.top().Append(node)
			d.nodes = append(d.nodes, node)
			d.closers = append(d.closers, p.Closer)
		}
		return d, nil

	case Terminal:
		if !head.Matches(la) {
			return d, &SyntaxError{
				Span:     stream.File.NewSpan(la.Offset, la.End()),
				Err:      fmt.Errorf("%w: expected %v, found %v", ErrUnexpectedToken, head, la),
				Found:    la,
				Expected: []Terminal{head},
			}
		}

		d.top().Append(&ast.TokenNode{Token: la})
		d.cursor++
		if n := len(d.closers); n > 0 && d.closers[n-1].Matches(la) {
			d.closers = d.closers[:n-1]
			d.nodes = d.nodes[:len(d.nodes)-1]
		}
		return d, nil
	}

	panic(fmt.Sprintf("parser: unknown symbol type %T", head))
}

func oneOf(terminals []Terminal) string {
	names := make([]string, len(terminals))
	for i, t := range terminals {
		names[i] = t.String()
	}
	switch len(names) {
	case 0:
		return "nothing"
	case 1:
		return names[0]
	default:
		return "one of " + strings.Join(names, ", ")
	}
}

var codaTable = mustTable(CodaGrammar())

func mustTable(g *Grammar) *Table {
	table, err := NewTable(g)
	if err != nil {
		panic(err)
	}
	return table
}

// CodaTable returns the parse table for [CodaGrammar]. The table is built
// once and shared.
func CodaTable() *Table {
	return codaTable
}

// ParseSource tokenizes and parses a Coda program.
func ParseSource(path, text string) (*ast.ProductionNode, *Stream, error) {
	stream, err := Tokenize(path, text)
	if err != nil {
		return nil, nil, err
	}
	root, err := Parse(stream, codaTable, codaTable.Grammar().Start)
	if err != nil {
		return nil, stream, err
	}
	return root, stream, nil
}
