package editor

import "fmt"

// LineIndex converts between byte offsets and 1-based line/column
// positions for a fixed content snapshot. Columns are byte columns; the
// analysis protocol addresses everything in bytes, so no rune or UTF-16
// accounting happens here.
type LineIndex struct {
	content []byte
	starts  []int // byte offset of each line start
}

// NewLineIndex builds the index for content.
func NewLineIndex(content []byte) *LineIndex {
	li := &LineIndex{content: content, starts: []int{0}}
	for i, b := range content {
		if b == '\n' {
			li.starts = append(li.starts, i+1)
		}
	}
	return li
}

// LineCount returns the number of lines, counting a trailing unterminated
// line.
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// lineSpan returns the [start, end) byte range of a 0-based line,
// excluding the newline.
func (li *LineIndex) lineSpan(line int) (int, int) {
	start := li.starts[line]
	end := len(li.content)
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	return start, end
}

// Offset converts a 1-based line and byte column to a byte offset. The
// column may point one past the last byte of the line (the insertion
// point before the newline).
func (li *LineIndex) Offset(line, col int) (int, error) {
	if line < 1 || line > len(li.starts) {
		return 0, fmt.Errorf("line %d out of range 1..%d", line, len(li.starts))
	}
	if col < 1 {
		return 0, fmt.Errorf("column %d out of range", col)
	}

	start, end := li.lineSpan(line - 1)
	offset := start + col - 1
	if offset > end {
		return 0, fmt.Errorf("column %d out of range on line %d", col, line)
	}
	return offset, nil
}

// Position converts a byte offset to a 1-based line and byte column. An
// offset equal to the content length maps to the insertion point at the
// very end.
func (li *LineIndex) Position(offset int) (line, col int, err error) {
	if offset < 0 || offset > len(li.content) {
		return 0, 0, fmt.Errorf("offset %d out of range 0..%d", offset, len(li.content))
	}

	// Binary search for the last line start <= offset.
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - li.starts[lo] + 1, nil
}
