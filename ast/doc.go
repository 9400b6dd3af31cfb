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

// Package ast defines types for modeling the AST (Abstract Syntax Tree) of a
// Coda program.
//
// The tree has exactly two kinds of nodes. A [*ProductionNode] is introduced
// by a nodable production of the grammar and carries a [Label] describing it;
// a [*TokenNode] is a leaf that wraps a single consumed token. Productions that
// are not nodable are structurally transparent: the nodes they derive are
// attached directly to the enclosing production node.
//
// Each node is owned by its parent and the root is owned by whoever called
// the parser. Nodes hold no references back to their parents.
package ast
