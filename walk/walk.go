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

// Package walk provides helper functions for traversing the nodes of a Coda
// AST.
package walk

import (
	"errors"

	"github.com/bufbuild/coda/ast"
)

// ErrSkipChildren may be returned by an enter function to skip the children
// of the node just entered. The node's exit function is still called.
var ErrSkipChildren = errors.New("skip children")

// Nodes walks the tree rooted at root in depth-first pre-order, calling fn
// for every node. If fn returns an error, the walk stops and that error is
// returned.
func Nodes(root ast.Node, fn func(ast.Node) error) error {
	return NodesEnterAndExit(root, fn, nil)
}

// NodesEnterAndExit walks the tree rooted at root, calling enter before a
// node's children are visited and exit after. The exit function may be nil.
func NodesEnterAndExit(root ast.Node, enter, exit func(ast.Node) error) error {
	enterWithPath := func(_ []*ast.ProductionNode, n ast.Node) error {
		return enter(n)
	}
	var exitWithPath func([]*ast.ProductionNode, ast.Node) error
	if exit != nil {
		exitWithPath = func(_ []*ast.ProductionNode, n ast.Node) error {
			return exit(n)
		}
	}
	w := &nodeWalker{enter: enterWithPath, exit: exitWithPath}
	return w.walk(root)
}

// NodesWithPath is like [Nodes], but also passes fn the ancestors of each
// node, outermost first. The slice is reused between calls and must not be
// retained.
func NodesWithPath(root ast.Node, fn func(path []*ast.ProductionNode, n ast.Node) error) error {
	return NodesWithPathEnterAndExit(root, fn, nil)
}

// NodesWithPathEnterAndExit is like [NodesEnterAndExit], but also passes the
// ancestors of each node.
func NodesWithPathEnterAndExit(root ast.Node, enter, exit func(path []*ast.ProductionNode, n ast.Node) error) error {
	w := &nodeWalker{enter: enter, exit: exit}
	return w.walk(root)
}

// Terms calls fn for every NOTE/CHORD/REST node under root, in source order,
// along with the innermost note block containing it. Terms outside any block
// are reported with a nil block.
func Terms(root ast.Node, fn func(block, term *ast.ProductionNode) error) error {
	return NodesWithPath(root, func(path []*ast.ProductionNode, n ast.Node) error {
		term, ok := n.(*ast.ProductionNode)
		if !ok || term.Label != ast.Term {
			return nil
		}
		var block *ast.ProductionNode
		for i := len(path) - 1; i >= 0; i-- {
			if path[i].Label == ast.NoteBlock {
				block = path[i]
				break
			}
		}
		return fn(block, term)
	})
}

type nodeWalker struct {
	path        []*ast.ProductionNode
	enter, exit func([]*ast.ProductionNode, ast.Node) error
}

func (w *nodeWalker) walk(n ast.Node) error {
	err := w.enter(w.path, n)
	switch {
	case errors.Is(err, ErrSkipChildren):
	case err != nil:
		return err
	default:
		if prod, ok := n.(*ast.ProductionNode); ok {
			w.path = append(w.path, prod)
			for _, child := range prod.Children {
				if err := w.walk(child); err != nil {
					return err
				}
			}
			w.path = w.path[:len(w.path)-1]
		}
	}
	if w.exit != nil {
		return w.exit(w.path, n)
	}
	return nil
}
