package editor

import (
	"fmt"
	"strings"
)

// UnifiedDiff renders the difference between two content snapshots as a
// single-hunk unified diff, for dry runs. Common leading and trailing
// lines are trimmed; everything between is shown as removed then added.
func UnifiedDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	beforeLines := splitLines(before)
	afterLines := splitLines(after)

	// Trim the common prefix and suffix.
	prefix := 0
	for prefix < len(beforeLines) && prefix < len(afterLines) && beforeLines[prefix] == afterLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(beforeLines)-prefix && suffix < len(afterLines)-prefix &&
		beforeLines[len(beforeLines)-1-suffix] == afterLines[len(afterLines)-1-suffix] {
		suffix++
	}

	removed := beforeLines[prefix : len(beforeLines)-suffix]
	added := afterLines[prefix : len(afterLines)-suffix]

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", hunkStart(prefix, len(removed)), len(removed), hunkStart(prefix, len(added)), len(added))
	for _, line := range removed {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range added {
		b.WriteString("+" + line + "\n")
	}
	return b.String()
}

// hunkStart gives the 1-based start line of a hunk side; empty sides
// report the line before the change, matching diff convention.
func hunkStart(prefix, count int) int {
	if count == 0 {
		return prefix
	}
	return prefix + 1
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	// A trailing newline yields a phantom empty final element.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
