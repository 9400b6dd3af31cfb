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
	"iter"
	"slices"
	"strings"
)

// Render renders this diagnostic report in a format suitable for showing to a user.
func (r *Report) Render(style Style) string {
	var out strings.Builder
	var errors, warnings int
	for _, diagnostic := range *r {
		out.WriteString(diagnostic.Render(style))
		out.WriteString("\n")
		if style != Simple {
			out.WriteString("\n")
		}
		switch diagnostic.Level {
		case Error:
			errors++
		case Warning:
			warnings++
		}
	}
	if style == Simple {
		return out.String()
	}

	var color color
	if style == Colored {
		color = ansiColor()
	}

	pluralize := func(count int, what string) string {
		if count == 1 {
			return "1 " + what
		}
		return fmt.Sprint(count, " ", what, "s")
	}

	if errors > 0 {
		fmt.Fprint(&out, color.bRed, "encountered ", pluralize(errors, "error"))
		if warnings > 0 {
			fmt.Fprint(&out, " and ", pluralize(warnings, "warning"))
		}
		fmt.Fprintln(&out, color.reset)
	} else if warnings > 0 {
		fmt.Fprintln(&out, color.bYellow+"encountered", pluralize(warnings, "warning")+color.reset)
	}

	return out.String()
}

// Render renders this diagnostic in a format suitable for showing to a user.
func (d *Diagnostic) Render(style Style) string {
	level := d.Level.String()

	// For the simple style, we imitate the Go compiler.
	if style == Simple {
		file, start, _ := d.Primary()
		if file.Path == "" {
			file.Path = "<unknown>"
		}
		if start.IsZero() {
			return fmt.Sprintf("%s: %s: %s", level, file.Path, d.Err.Error())
		}
		return fmt.Sprintf("%s: %s:%d:%d: %s", level, file.Path, start.Line, start.Column, d.Err.Error())
	}

	// For the other styles, we imitate the Rust compiler.
	var color color
	if style == Colored {
		color = ansiColor()
	}

	var out strings.Builder
	fmt.Fprint(&out, color.BoldForLevel(d.Level), level, ": ", d.Err.Error(), color.reset)

	// The line bar is as wide as the largest line number among the snippets.
	var greatestLine int
	for _, snip := range d.snippets {
		greatestLine = max(greatestLine, snip.end.Line)
	}
	lineBarWidth := max(2, len(fmt.Sprint(greatestLine)))
	bar := strings.Repeat(" ", lineBarWidth)

	for i, snippets := range partition(d.snippets, func(a, b *snippet) bool { return a.file.Path != b.file.Path }) {
		arrow := "-->"
		if i != 0 {
			arrow = ":::"
		}
		fmt.Fprintf(&out, "\n%s%s%s %s:%d:%d", color.nBlue, bar, arrow,
			snippets[0].file.Path, snippets[0].start.Line, snippets[0].start.Column)
		fmt.Fprintf(&out, "\n%s%s |%s", color.nBlue, bar, color.reset)
		renderWindow(d.Level, snippets, lineBarWidth, &color, &out)
	}

	if len(d.snippets) == 0 {
		path := d.mention
		if path == "" {
			path = "<unknown>"
		}
		fmt.Fprintf(&out, "\n%s%s--> %s:?:?%s", color.nBlue, bar[1:], path, color.reset)
	}

	var footers [][2]string
	for _, note := range d.notes {
		footers = append(footers, [2]string{"note", note})
	}
	for _, help := range d.help {
		footers = append(footers, [2]string{"help", help})
	}
	for i, frame := range d.trace {
		if debugMode < debugFull && i > 0 {
			break
		}
		footers = append(footers, [2]string{"debug", fmt.Sprintf("at %s", frame.Function)})
		footers = append(footers, [2]string{"debug", fmt.Sprintf("   %s:%d", frame.File, frame.Line)})
	}
	for _, footer := range footers {
		fmt.Fprintf(&out, "\n%s%s = %s%s: %s%s", color.nBlue, bar, color.bCyan, footer[0], color.reset, footer[1])
	}

	return out.String()
}

// renderWindow renders every source line touched by snippets, which must all
// belong to the same file, followed by the underlines for that line.
func renderWindow(level Level, snippets []snippet, lineBarWidth int, color *color, out *strings.Builder) {
	underlines := make([]underline, 0, len(snippets))
	for _, snip := range snippets {
		ul := underline{
			line:    snip.start.Line,
			start:   snip.start.Column,
			end:     snip.end.Column,
			level:   note,
			message: snip.message,
		}
		if snip.end.Line != snip.start.Line {
			// Only the first line of a multi-line span is underlined.
			ul.end = columnWidth(lineOf(snip.file.Text, ul.line)) + 1
		}
		if snip.primary {
			ul.level = level
		}
		if ul.end <= ul.start {
			ul.end = ul.start + 1
		}
		underlines = append(underlines, ul)
	}
	slices.SortFunc(underlines, cmpUnderlines)

	bar := strings.Repeat(" ", lineBarWidth)
	prev := 0
	for _, part := range partition(underlines, func(a, b *underline) bool { return a.line != b.line }) {
		lineno := part[0].line
		if prev != 0 && lineno > prev+1 {
			fmt.Fprintf(out, "\n%s%s ~", color.bBlue, bar)
		}
		prev = lineno

		text := expandTabs(lineOf(snippets[0].file.Text, lineno))
		fmt.Fprintf(out, "\n%s%*d | %s%s", color.nBlue, lineBarWidth, lineno, color.reset, text)

		// Lay out the physical underlines in reverse order, so that shorter
		// underlines overwrite longer ones.
		var buf []Level
		for i := len(part) - 1; i >= 0; i-- {
			ul := part[i]
			for len(buf) < ul.end-1 {
				buf = append(buf, 0)
			}
			for j := ul.start - 1; j < ul.end-1; j++ {
				buf[j] = ul.level
			}
		}

		var carets strings.Builder
		for _, run := range partition(buf, func(a, b *Level) bool { return *a != *b }) {
			if run[0] == 0 {
				carets.WriteString(color.reset)
				carets.WriteString(strings.Repeat(" ", len(run)))
				continue
			}
			carets.WriteString(color.BoldForLevel(run[0]))
			mark := "^"
			if run[0] == note || run[0] == Remark {
				mark = "-"
			}
			carets.WriteString(strings.Repeat(mark, len(run)))
		}

		// The rightmost underline's message goes inline; every other message
		// gets a line of its own, starting under its underline.
		rightmost := &part[0]
		for i := range part {
			if part[i].end > rightmost.end {
				rightmost = &part[i]
			}
		}
		line := carets.String()
		if rightmost.message != "" {
			line += " " + color.BoldForLevel(rightmost.level) + rightmost.message
		}
		fmt.Fprintf(out, "\n%s%s | %s%s", color.bBlue, bar, line, color.reset)
		for i := range part {
			ul := &part[i]
			if ul == rightmost || ul.message == "" {
				continue
			}
			fmt.Fprintf(out, "\n%s%s | %s%s%s%s", color.bBlue, bar,
				strings.Repeat(" ", ul.start-1), color.BoldForLevel(ul.level), ul.message, color.reset)
		}
	}
}

// lineOf returns the text of the given 1-indexed line, without its newline.
func lineOf(text string, line int) string {
	for ; line > 1; line-- {
		nl := strings.IndexByte(text, '\n')
		if nl == -1 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[:nl]
	}
	return strings.TrimSuffix(text, "\r")
}

// expandTabs replaces each tab with enough spaces to reach the next tabstop,
// so that underlines computed by [columnWidth] line up with the text.
func expandTabs(text string) string {
	if !strings.Contains(text, "\t") {
		return text
	}
	var out strings.Builder
	for text != "" {
		tab := strings.IndexByte(text, '\t')
		if tab == -1 {
			out.WriteString(text)
			break
		}
		out.WriteString(text[:tab])
		out.WriteByte(' ')
		for columnWidth(out.String())%TabstopWidth != 0 {
			out.WriteByte(' ')
		}
		text = text[tab+1:]
	}
	return out.String()
}

type underline struct {
	line       int
	start, end int
	level      Level
	message    string
}

func (u underline) Len() int {
	return u.end - u.start
}

func cmpUnderlines(a, b underline) int {
	if diff := a.line - b.line; diff != 0 {
		return diff
	}
	if diff := a.level - b.level; diff != 0 {
		return int(diff)
	}
	if diff := a.Len() - b.Len(); diff != 0 {
		return diff
	}
	return a.start - b.start
}

// color is the colors used for pretty-rendering diagnostics.
type color struct {
	reset string
	// Normal colors.
	nRed, nYellow, nCyan, nBlue string
	// Bold colors.
	bRed, bYellow, bCyan, bBlue string
}

func ansiColor() color {
	return color{
		reset:   "\033[0m",
		nRed:    "\033[0;31m",
		nYellow: "\033[0;33m",
		nCyan:   "\033[0;36m",
		nBlue:   "\033[0;34m",
		bRed:    "\033[1;31m",
		bYellow: "\033[1;33m",
		bCyan:   "\033[1;36m",
		bBlue:   "\033[1;34m",
	}
}

func (c color) BoldForLevel(l Level) string {
	switch l {
	case Error:
		return c.bRed
	case Warning:
		return c.bYellow
	case Remark:
		return c.bCyan
	case note:
		return c.bBlue
	default:
		return ""
	}
}

// partition returns an iterator of subslices of s such that each yielded
// slice is delimited according to delimit. Also yields the starting index of
// the subslice.
//
// In other words, suppose delimit is !=. Then, the slice [a a a b c c] is yielded
// as the subslices [a a a], [b], and [c c].
//
// Will never yield an empty slice.
func partition[T any](s []T, delimit func(a, b *T) bool) iter.Seq2[int, []T] {
	return func(yield func(int, []T) bool) {
		var start int
		for i := 1; i < len(s); i++ {
			if delimit(&s[i-1], &s[i]) {
				if !yield(start, s[start:i]) {
					return
				}
				start = i
			}
		}
		rest := s[start:]
		if len(rest) > 0 {
			yield(start, rest)
		}
	}
}
