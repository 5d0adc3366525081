// Package source owns the raw bytes of FIDL source files and hands out
// immutable spans into them. A File is created once and outlives every Span
// derived from it; Spans are plain views (offset/length) and never copy the
// underlying bytes.
package source

import "fmt"

// File is an immutable, named byte buffer.
type File struct {
	name string
	data string

	// lineStarts[i] is the byte offset of the first character of line i
	// (0-indexed). Computed lazily on first use.
	lineStarts []int
}

// NewFile wraps raw bytes as a named source file. data is copied once into
// the File's immutable string, so later changes to data do not affect it.
func NewFile(name string, data []byte) *File {
	return &File{name: name, data: string(data)}
}

func (f *File) Name() string { return f.name }

func (f *File) Data() string { return f.data }

func (f *File) Len() int { return len(f.data) }

func (f *File) ensureLineStarts() {
	if f.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i := 0; i < len(f.data); i++ {
		if f.data[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	f.lineStarts = starts
}

// LineCol returns the 1-indexed line and column for a byte offset.
func (f *File) LineCol(offset int) (line, col int) {
	f.ensureLineStarts()
	// binary search for the last lineStart <= offset
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - f.lineStarts[lo] + 1
}

// Span is a half-open [Start, End) byte range into a File.
type Span struct {
	File  *File
	Start int
	End   int
}

// NewSpan builds a span; it is the caller's responsibility to keep start <=
// end <= file.Len().
func NewSpan(file *File, start, end int) Span {
	return Span{File: file, Start: start, End: end}
}

func (s Span) Text() string {
	if s.File == nil {
		return ""
	}
	return s.File.data[s.Start:s.End]
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Valid() bool { return s.File != nil }

// String renders "file:line:col" for use in diagnostics.
func (s Span) String() string {
	if s.File == nil {
		return "<unknown>"
	}
	line, col := s.File.LineCol(s.Start)
	return fmt.Sprintf("%s:%d:%d", s.File.Name(), line, col)
}

// Union returns the smallest span covering both s and other. Both must
// refer to the same File.
func (s Span) Union(other Span) Span {
	if s.File != other.File {
		return s
	}
	start, end := s.Start, s.End
	if other.Start < start {
		start = other.Start
	}
	if other.End > end {
		end = other.End
	}
	return Span{File: s.File, Start: start, End: end}
}
