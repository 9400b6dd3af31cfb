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

package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/bufbuild/coda/token"
)

// Label describes what a [ProductionNode] represents.
type Label string

const (
	Program            Label = "PROGRAM"
	KeySignature       Label = "KEY SIGNATURE"
	TimeSignature      Label = "TIME SIGNATURE"
	Tempo              Label = "TEMPO"
	NoteBlock          Label = "NOTE BLOCK"
	DurationModifier   Label = "DURATION MODIFIER"
	RepetitionModifier Label = "REPETITION MODIFIER"
	GroupingModifier   Label = "GROUPING MODIFIER"
	Term               Label = "NOTE/CHORD/REST"
)

// Node is a node in the AST. The only implementations are [*ProductionNode]
// and [*TokenNode].
type Node interface {
	// Start returns the byte offset of the first token under this node, or
	// -1 if the node covers no tokens.
	Start() int
	// End returns the byte offset just past the last token under this node,
	// or -1 if the node covers no tokens.
	End() int

	sealed()
}

// ProductionNode is an interior node, created when the parser expands a
// nodable production.
type ProductionNode struct {
	Label    Label
	Children []Node
}

// TokenNode is a leaf node wrapping a token consumed by the parser.
type TokenNode struct {
	Token token.Token
}

var (
	_ Node = (*ProductionNode)(nil)
	_ Node = (*TokenNode)(nil)
)

// NewProductionNode creates an empty node with the given label.
func NewProductionNode(label Label) *ProductionNode {
	return &ProductionNode{Label: label}
}

// Append adds child as the last child of n.
func (n *ProductionNode) Append(child Node) {
	n.Children = append(n.Children, child)
}

// Child returns the first direct child of n with the given label, or nil.
func (n *ProductionNode) Child(label Label) *ProductionNode {
	for _, child := range n.Children {
		if p, ok := child.(*ProductionNode); ok && p.Label == label {
			return p
		}
	}
	return nil
}

// Tokens returns the tokens of the given class among the direct children
// of n, in order.
func (n *ProductionNode) Tokens(class token.Class) []token.Token {
	var tokens []token.Token
	for _, child := range n.Children {
		if t, ok := child.(*TokenNode); ok && t.Token.Class == class {
			tokens = append(tokens, t.Token)
		}
	}
	return tokens
}

func (n *ProductionNode) Start() int {
	for _, child := range n.Children {
		if start := child.Start(); start >= 0 {
			return start
		}
	}
	return -1
}

func (n *ProductionNode) End() int {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if end := n.Children[i].End(); end >= 0 {
			return end
		}
	}
	return -1
}

func (n *TokenNode) Start() int {
	return n.Token.Offset
}

func (n *TokenNode) End() int {
	return n.Token.End()
}

func (*ProductionNode) sealed() {}
func (*TokenNode) sealed()      {}

// Print writes an indented outline of the tree rooted at n to w, one node
// per line.
func Print(w io.Writer, n Node) error {
	return printNode(w, n, 0)
}

func printNode(w io.Writer, n Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *ProductionNode:
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, n.Label); err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := printNode(w, child, depth+1); err != nil {
				return err
			}
		}
	case *TokenNode:
		if _, err := fmt.Fprintf(w, "%s%v\n", indent, n.Token); err != nil {
			return err
		}
	}
	return nil
}
