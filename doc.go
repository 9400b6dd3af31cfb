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

// Package coda provides the entry point for a compiler from the Coda music
// notation language to Standard MIDI Files.
//
// The various sub-packages represent the various compile phases and contain
// models for the intermediate results. Those phases follow:
//  1. Tokenize and parse into an AST.
//     Also see: parser.Tokenize, parser.Parse
//  2. Extract the header values and the note and duration sequences.
//     Also see: sequence.Extract
//  3. Schedule the sequences and write them out as MIDI.
//     Also see: midi.Encoder
//
// This package provides an easy-to-use interface that does all of the phases
// relevant, based on the inputs given. It is also capable of taking advantage
// of multiple CPU cores: every file is compiled on its own, so a batch of
// files is compiled in parallel.
//
// # Resolvers
//
// A Resolver is how the compiler locates the files it is asked to compile.
// It can answer a query with any of the following:
//   - Source code: the compiler runs every phase on it.
//   - AST: the parsing step is skipped.
//   - Score: only the encoding step is left.
//
// # Compiler
//
// A Compiler accepts a list of file names and produces a [Result] for each.
// Only the Resolver field is required. A minimal Compiler, that loads files
// from the file system relative to the current working directory, is:
//
//	compiler := coda.Compiler{
//		Resolver: &coda.SourceResolver{},
//	}
//
// This minimal Compiler uses default parallelism, equal to the number of CPU
// cores detected, and fails as soon as any file has an error. Set Reporter
// to collect every error and warning instead, and Encoder to change the MIDI
// output.
package coda
