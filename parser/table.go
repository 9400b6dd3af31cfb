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
	"fmt"
	"slices"

	"github.com/bufbuild/coda/token"
)

// ErrConflict is returned by [NewTable] for grammars that are not LL(1).
var ErrConflict = errors.New("grammar is not LL(1)")

// TableKey is the key of a parse table entry.
type TableKey struct {
	Head      Nonterminal
	Lookahead Terminal
}

// Table is an LL(1) parse table: a partial function from a nonterminal and
// a lookahead terminal to the production to expand.
type Table struct {
	grammar *Grammar
	entries map[TableKey]*Production
}

// NewTable computes FIRST and FOLLOW sets for g and builds its parse table.
//
// Construction fails with an error wrapping [ErrConflict] if two productions
// claim the same key.
func NewTable(g *Grammar) (*Table, error) {
	sets := newFirstFollow(g)
	table := &Table{grammar: g, entries: make(map[TableKey]*Production)}

	for _, p := range g.Productions {
		first, nullable := sets.firstOfSeq(p.Body)
		lookaheads := sorted(first)
		if nullable {
			lookaheads = append(lookaheads, sorted(sets.follow[p.Head])...)
		}
		for _, t := range lookaheads {
			key := TableKey{Head: p.Head, Lookahead: t}
			if prev, ok := table.entries[key]; ok && prev != p {
				return nil, fmt.Errorf("%w: %v and %v both apply to %v with lookahead %v",
					ErrConflict, prev, p, p.Head, t)
			}
			table.entries[key] = p
		}
	}
	return table, nil
}

// Grammar returns the grammar this table was built from.
func (t *Table) Grammar() *Grammar {
	return t.grammar
}

// Lookup returns the production to expand for head when the lookahead is
// la.
func (t *Table) Lookup(head Nonterminal, la Terminal) (*Production, bool) {
	p, ok := t.entries[TableKey{Head: head, Lookahead: la}]
	return p, ok
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns every key of the table, sorted.
func (t *Table) Keys() []TableKey {
	keys := make([]TableKey, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b TableKey) int {
		if a.Head != b.Head {
			if a.Head < b.Head {
				return -1
			}
			return 1
		}
		return compareTerminals(a.Lookahead, b.Lookahead)
	})
	return keys
}

// Expected returns the lookaheads for which head has an entry, sorted.
func (t *Table) Expected(head Nonterminal) []Terminal {
	var expected []Terminal
	for key := range t.entries {
		if key.Head == head {
			expected = append(expected, key.Lookahead)
		}
	}
	slices.SortFunc(expected, compareTerminals)
	return expected
}

type terminalSet map[Terminal]struct{}

func (s terminalSet) addAll(other terminalSet) (changed bool) {
	for t := range other {
		if _, ok := s[t]; !ok {
			s[t] = struct{}{}
			changed = true
		}
	}
	return changed
}

func sorted(s terminalSet) []Terminal {
	out := make([]Terminal, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, compareTerminals)
	return out
}

type firstFollow struct {
	nullable map[Nonterminal]bool
	first    map[Nonterminal]terminalSet
	follow   map[Nonterminal]terminalSet
}

func newFirstFollow(g *Grammar) *firstFollow {
	sets := &firstFollow{
		nullable: make(map[Nonterminal]bool),
		first:    make(map[Nonterminal]terminalSet),
		follow:   make(map[Nonterminal]terminalSet),
	}
	declare := func(nt Nonterminal) {
		if _, ok := sets.first[nt]; !ok {
			sets.first[nt] = terminalSet{}
			sets.follow[nt] = terminalSet{}
		}
	}
	declare(g.Start)
	for _, p := range g.Productions {
		declare(p.Head)
		for _, sym := range p.Body {
			if nt, ok := sym.(Nonterminal); ok {
				declare(nt)
			}
		}
	}
	sets.follow[g.Start][Terminal{Class: token.EOF}] = struct{}{}

	for changed := true; changed; {
		changed = false
		for _, p := range g.Productions {
			first, nullable := sets.firstOfSeq(p.Body)
			if sets.first[p.Head].addAll(first) {
				changed = true
			}
			if nullable && !sets.nullable[p.Head] {
				sets.nullable[p.Head] = true
				changed = true
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, p := range g.Productions {
			for i, sym := range p.Body {
				nt, ok := sym.(Nonterminal)
				if !ok || nt == Epsilon {
					continue
				}
				first, nullable := sets.firstOfSeq(p.Body[i+1:])
				if sets.follow[nt].addAll(first) {
					changed = true
				}
				if nullable && sets.follow[nt].addAll(sets.follow[p.Head]) {
					changed = true
				}
			}
		}
	}
	return sets
}

// firstOfSeq returns FIRST of a sequence of symbols, and whether the whole
// sequence can derive the empty string.
func (s *firstFollow) firstOfSeq(seq []Symbol) (terminalSet, bool) {
	first := terminalSet{}
	for _, sym := range seq {
		switch sym := sym.(type) {
		case Terminal:
			first[sym] = struct{}{}
			return first, false
		case Nonterminal:
			if sym == Epsilon {
				continue
			}
			first.addAll(s.first[sym])
			if !s.nullable[sym] {
				return first, false
			}
		}
	}
	return first, true
}
