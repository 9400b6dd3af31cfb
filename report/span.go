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

package report

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rivo/uniseg"
)

// TabstopWidth is the size we render all tabstops as.
const TabstopWidth int = 4

// Span is any type that can be used to generate source code information for a diagnostic.
type Span interface {
	File() File
	Start() Location
	End() Location
}

// File is a source file involved in a diagnostic.
type File struct {
	// The path of the file. It doesn't need to be a real path, but it is used
	// to group snippets by file.
	Path string

	// The complete text of the file.
	Text string
}

// Location is a user-displayable location within a source file.
type Location struct {
	// The byte offset for this location.
	Offset int

	// The line and column for this location, 1-indexed.
	//
	// Column is measured in terminal cells rather than bytes: the rune A is
	// one column wide, 貓 is two columns wide, and a tab advances to the next
	// multiple of [TabstopWidth].
	//
	// Because these are 1-indexed, a zero Line can be used as a sentinel.
	Line, Column int
}

// IsZero returns whether this location was never computed.
func (l Location) IsZero() bool {
	return l.Line == 0
}

// String implements [fmt.Stringer].
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// IndexedFile is an index of line information from a [File], which permits
// O(log n) calculation of [Location]s from offsets.
type IndexedFile struct {
	file File

	once sync.Once
	// A prefix sum of the line lengths of text. Given a byte offset, the
	// line it is on is found by binary search.
	lines []int
}

// NewIndexedFile constructs a line index for the given file. The index itself
// is built lazily, on the first call to [IndexedFile.Search].
func NewIndexedFile(file File) *IndexedFile {
	return &IndexedFile{file: file}
}

// File returns the file that this index indexes.
func (i *IndexedFile) File() File {
	return i.file
}

// NewSpan returns the span of the bytes [start, end) of the indexed file.
func (i *IndexedFile) NewSpan(start, end int) Span {
	return naiveSpan{
		file:  i.File(),
		start: i.Search(start),
		end:   i.Search(end),
	}
}

// Search builds full Location information for the given byte offset.
func (i *IndexedFile) Search(offset int) Location {
	i.once.Do(func() {
		var next int
		text := i.file.Text
		for {
			newline := strings.IndexByte(text, '\n') + 1
			if newline == 0 {
				break
			}
			text = text[newline:]
			i.lines = append(i.lines, next)
			next += newline
		}
		i.lines = append(i.lines, next)
	})

	offset = min(max(offset, 0), len(i.file.Text))

	// Find the greatest index such that lines[line] <= offset.
	line, exact := slices.BinarySearch(i.lines, offset)
	if !exact {
		line--
	}

	return Location{
		Offset: offset,
		Line:   line + 1,
		Column: columnWidth(i.file.Text[i.lines[line]:offset]) + 1,
	}
}

// columnWidth calculates the rendered width of text placed at the start of a
// line.
func columnWidth(text string) int {
	var column int
	for text != "" {
		tab := strings.IndexByte(text, '\t')
		if tab == -1 {
			column += uniseg.StringWidth(text)
			break
		}
		column += uniseg.StringWidth(text[:tab])
		column += TabstopWidth - column%TabstopWidth
		text = text[tab+1:]
	}
	return column
}

type naiveSpan struct {
	file       File
	start, end Location
}

func (s naiveSpan) File() File      { return s.file }
func (s naiveSpan) Start() Location { return s.start }
func (s naiveSpan) End() Location   { return s.end }
