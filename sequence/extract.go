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

package sequence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/bufbuild/coda/ast"
	"github.com/bufbuild/coda/token"
)

// MaxElements bounds the length of an extracted sequence. Repetition makes
// sequences grow multiplicatively, so a short program can otherwise ask for
// an arbitrary amount of memory.
const MaxElements = 1 << 20

var (
	// ErrMissingHeader is returned for trees that lack one of the three
	// header declarations.
	ErrMissingHeader = errors.New("missing header declaration")
	// ErrNumberRange is returned for numbers too large to represent.
	ErrNumberRange = errors.New("number out of range")
	// ErrTooLong is returned when a sequence would exceed MaxElements.
	ErrTooLong = errors.New("sequence too long")
	// ErrMalformedTree is returned for trees whose shape the parser could
	// not have produced, such as a term without a token.
	ErrMalformedTree = errors.New("malformed syntax tree")
)

// Error is an extraction error tied to a token of the source.
type Error struct {
	Token token.Token
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Token.Text)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extract reads the header values and the element and duration sequences
// out of a tree produced by the parser.
//
// Durations start at one quarter note. A typ modifier changes the duration
// for its block and every block nested in it that does not declare its own.
// A rep modifier repeats everything its block produces, and a grp modifier
// then groups the first elements of the result, so only the first
// repetition is grouped. Connectors carry no meaning and are skipped.
func Extract(root *ast.ProductionNode) (*Score, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: no root", ErrMalformedTree)
	}
	score := &Score{}

	key := root.Child(ast.KeySignature)
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, ast.KeySignature)
	}
	keys := key.Tokens(token.Key)
	if len(keys) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, ast.KeySignature)
	}
	score.Key = keys[0].Text

	var err error
	if score.Time.Numerator, score.Time.Denominator, err = timeSignature(root); err != nil {
		return nil, err
	}
	if score.Tempo, err = number(root.Child(ast.Tempo), ast.Tempo); err != nil {
		return nil, err
	}

	score.Elements, score.Durations, err = block(root, 1)
	if err != nil {
		return nil, err
	}
	return score, nil
}

func timeSignature(root *ast.ProductionNode) (num, denom int, err error) {
	node := root.Child(ast.TimeSignature)
	if node == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingHeader, ast.TimeSignature)
	}
	numbers := node.Tokens(token.Number)
	if len(numbers) != 2 {
		return 0, 0, fmt.Errorf("%w: %s", ErrMissingHeader, ast.TimeSignature)
	}
	if num, err = atoi(numbers[0]); err != nil {
		return 0, 0, err
	}
	if denom, err = atoi(numbers[1]); err != nil {
		return 0, 0, err
	}
	return num, denom, nil
}

// number returns the single number inside a bracketed declaration or
// modifier.
func number(node *ast.ProductionNode, label ast.Label) (int, error) {
	if node == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingHeader, label)
	}
	numbers := node.Tokens(token.Number)
	if len(numbers) != 1 {
		return 0, fmt.Errorf("%w: %s", ErrMissingHeader, label)
	}
	return atoi(numbers[0])
}

func atoi(tok token.Token) (int, error) {
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		return 0, &Error{Token: tok, Err: ErrNumberRange}
	}
	return n, nil
}

// block linearizes a note block, given the duration inherited from the
// enclosing block. It is also used on the root, whose header nodes are
// skipped.
func block(node *ast.ProductionNode, dur int) ([]Element, []int, error) {
	var elems []Element
	var durs []int
	repeat, grp := 1, 0
	var repeatTok token.Token

	for _, child := range node.Children {
		child, ok := child.(*ast.ProductionNode)
		if !ok {
			// Braces, declarators and connectors.
			continue
		}

		var err error
		switch child.Label {
		case ast.DurationModifier:
			dur, err = number(child, child.Label)
		case ast.RepetitionModifier:
			if repeat, err = number(child, child.Label); err == nil {
				repeatTok = child.Tokens(token.Number)[0]
			}
		case ast.GroupingModifier:
			grp, err = number(child, child.Label)
		case ast.Term:
			var elem Element
			if elem, err = term(child); err == nil {
				elems = append(elems, elem)
				durs = append(durs, dur)
			}
		case ast.NoteBlock:
			var es []Element
			var ds []int
			es, ds, err = block(child, dur)
			elems = append(elems, es...)
			durs = append(durs, ds...)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if repeat > 1 {
		if repeat > MaxElements/max(len(elems), 1) {
			return nil, nil, &Error{Token: repeatTok, Err: ErrTooLong}
		}
		elems = slices.Repeat(elems, repeat)
		durs = slices.Repeat(durs, repeat)
	}
	if grp > 0 {
		elems, durs = group(elems, durs, grp, dur)
	}
	return elems, durs, nil
}

func term(node *ast.ProductionNode) (Element, error) {
	if len(node.Children) != 1 {
		return nil, fmt.Errorf("%w: %s with %d children", ErrMalformedTree, node.Label, len(node.Children))
	}
	leaf, ok := node.Children[0].(*ast.TokenNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s without a token", ErrMalformedTree, node.Label)
	}
	switch tok := leaf.Token; tok.Class {
	case token.Chord:
		return Chord{Name: tok.Text}, nil
	case token.Rest:
		return Rest{}, nil
	case token.Note:
		return Note{Pitch: tok.Text}, nil
	default:
		return nil, &Error{Token: tok, Err: ErrMalformedTree}
	}
}

// group puts the first n elements of elems into a group whose shared
// duration is dur.
//
// Groups produced by nested blocks are merged into the new one: their
// markers are dropped, and n grows if needed so that no inner group is split.
// If there are fewer than n elements, the group covers what there is.
func group(elems []Element, durs []int, n, dur int) ([]Element, []int) {
	var members int
	i := 0
	for ; i < len(elems) && members < n; i++ {
		if inner, ok := elems[i].(Group); ok {
			n = max(n, members+inner.Count)
			continue
		}
		members++
	}
	if members == 0 {
		return elems, durs
	}

	outElems := make([]Element, 0, len(elems)+1)
	outDurs := make([]int, 0, len(durs)+1)
	outElems = append(outElems, Group{Count: members})
	outDurs = append(outDurs, dur)
	for j := range i {
		if _, ok := elems[j].(Group); ok {
			continue
		}
		outElems = append(outElems, elems[j])
		outDurs = append(outDurs, durs[j])
	}
	outElems = append(outElems, elems[i:]...)
	outDurs = append(outDurs, durs[i:]...)
	return outElems, outDurs
}
