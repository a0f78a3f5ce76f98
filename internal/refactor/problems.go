package refactor

import (
	"strings"

	"github.com/dshills/refract/internal/analysis"
)

// FirstFatal returns the first FATAL problem in list order, if any.
// Callers pass the concatenated (initial, options, final) lists so the
// pick is order-stable.
func FirstFatal(problems []analysis.Problem) (analysis.Problem, bool) {
	for _, p := range problems {
		if p.Severity == analysis.SeverityFatal {
			return p, true
		}
	}
	return analysis.Problem{}, false
}

// Partition splits problems into fatal and actionable groups. Actionable
// means ERROR or WARNING: severities the user may consent past. INFO
// problems fall into neither group and never gate anything.
func Partition(problems []analysis.Problem) (fatals, actionable []analysis.Problem) {
	for _, p := range problems {
		switch p.Severity {
		case analysis.SeverityFatal:
			fatals = append(fatals, p)
		case analysis.SeverityError, analysis.SeverityWarning:
			actionable = append(actionable, p)
		}
	}
	return fatals, actionable
}

// HasSeverity reports whether any problem carries the given severity.
func HasSeverity(problems []analysis.Problem, sev analysis.Severity) bool {
	for _, p := range problems {
		if p.Severity == sev {
			return true
		}
	}
	return false
}

// DedupMessages returns the problems' messages with exact duplicates
// collapsed, preserving first-occurrence order.
func DedupMessages(problems []analysis.Problem) []string {
	seen := make(map[string]struct{}, len(problems))
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		if _, ok := seen[p.Message]; ok {
			continue
		}
		seen[p.Message] = struct{}{}
		msgs = append(msgs, p.Message)
	}
	return msgs
}

// JoinMessages renders deduplicated messages as one block, separated by
// blank lines.
func JoinMessages(msgs []string) string {
	return strings.Join(msgs, "\n\n")
}
