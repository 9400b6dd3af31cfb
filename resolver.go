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

package coda

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bufbuild/coda/ast"
	"github.com/bufbuild/coda/sequence"
)

// ErrNotFound is returned by resolvers that have no file for a path.
var ErrNotFound = errors.New("file not found")

// Resolver is used by the compiler to load the files it is asked to compile.
type Resolver interface {
	FindFileByPath(string) (SearchResult, error)
}

// SearchResult is what a [Resolver] produces for a path.
//
// Only one of the fields needs to be set. If several are, the compiler
// prefers them in the opposite order they are listed: it uses Score if
// present, falls back to AST, and only parses Source if nothing else is
// available. Diagnostics carry source positions only for files compiled from
// Source.
type SearchResult struct {
	// Source text. If it implements io.Closer, the compiler closes it.
	Source io.Reader
	// An already parsed program.
	AST *ast.ProductionNode
	// An already extracted score.
	Score *sequence.Score
}

// ResolverFunc is a simple function type that implements [Resolver].
type ResolverFunc func(string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

// FindFileByPath implements [Resolver].
func (f ResolverFunc) FindFileByPath(path string) (SearchResult, error) {
	return f(path)
}

// CompositeResolver is a slice of resolvers, which are consulted in order
// until one can supply a result. If none of the constituent resolvers can
// supply a result, the error returned by the first resolver is returned.
type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

// FindFileByPath implements [Resolver].
func (f CompositeResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(f) == 0 {
		return SearchResult{}, ErrNotFound
	}
	var firstErr error
	for _, res := range f {
		r, err := res.FindFileByPath(path)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver loads source files, either directly or from a set of
// search paths.
type SourceResolver struct {
	// Directories searched, in order, for relative paths. If empty, paths
	// are opened as given.
	SearchPaths []string
	// Opens a file. If nil, os.Open is used.
	Accessor func(string) (io.ReadCloser, error)
}

var _ Resolver = (*SourceResolver)(nil)

// FindFileByPath implements [Resolver].
func (r *SourceResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(r.SearchPaths) == 0 || filepath.IsAbs(path) {
		reader, err := r.open(path)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}

	var e error
	for _, searchPath := range r.SearchPaths {
		reader, err := r.open(filepath.Join(searchPath, path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e = err
				continue
			}
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}
	return SearchResult{}, e
}

func (r *SourceResolver) open(path string) (io.ReadCloser, error) {
	if r.Accessor == nil {
		return os.Open(path)
	}
	return r.Accessor(path)
}

// SourceAccessorFromMap returns an accessor for a [SourceResolver] that
// serves files out of the given map. Missing paths report an error wrapping
// fs.ErrNotExist.
func SourceAccessorFromMap(srcs map[string]string) func(string) (io.ReadCloser, error) {
	return func(path string) (io.ReadCloser, error) {
		src, ok := srcs[path]
		if !ok {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		return io.NopCloser(strings.NewReader(src)), nil
	}
}
