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

// Package parser turns Coda source text into an AST.
//
// Lexing is done by a set of staged matchers ([Rule]), each a small
// deterministic automaton over character classes, run in parallel at every
// position with maximal munch deciding between them. Parsing is predictive:
// a [Table] built from the grammar's FIRST and FOLLOW sets picks exactly one
// production for every nonterminal and one token of lookahead, and the AST is
// materialized while the leftmost derivation proceeds.
package parser
