package main

import (
	"strings"
	"testing"

	"github.com/dshills/refract/internal/analysis"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want analysis.RefactoringKind
	}{
		{"rename", analysis.KindRename},
		{"RENAME", analysis.KindRename},
		{"extract-method", analysis.KindExtractMethod},
		{"extract-local", analysis.KindExtractLocalVariable},
		{"extract-local-variable", analysis.KindExtractLocalVariable},
		{"inline-local", analysis.KindInlineLocalVariable},
		{"inline-method", analysis.KindInlineMethod},
		{"move-file", analysis.KindMoveFile},
		{"getter-to-method", analysis.KindConvertGetterToMethod},
		{"method-to-getter", analysis.KindConvertMethodToGetter},
		{"EXTRACT_WIDGET", analysis.KindExtractWidget},
		// Unknown kinds pass through normalized, for script resolvers.
		{"my-custom-kind", analysis.RefactoringKind("MY_CUSTOM_KIND")},
	}

	for _, tt := range tests {
		if got := parseKind(tt.in); got != tt.want {
			t.Errorf("parseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAtSpec(t *testing.T) {
	tests := []struct {
		spec    string
		line    int
		col     int
		length  int
		wantErr bool
	}{
		{spec: "12:5", line: 12, col: 5},
		{spec: "12:5+8", line: 12, col: 5, length: 8},
		{spec: "1:1+0", line: 1, col: 1},
		{spec: "12", wantErr: true},
		{spec: "12:x", wantErr: true},
		{spec: "x:5", wantErr: true},
		{spec: "12:5+x", wantErr: true},
		{spec: "-1:5", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		line, col, length, err := parseAtSpec(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAtSpec(%q) expected error", tt.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAtSpec(%q) error = %v", tt.spec, err)
			continue
		}
		if line != tt.line || col != tt.col || length != tt.length {
			t.Errorf("parseAtSpec(%q) = %d:%d+%d, want %d:%d+%d",
				tt.spec, line, col, length, tt.line, tt.col, tt.length)
		}
	}
}

func TestDescribeProblems(t *testing.T) {
	tests := []struct {
		name     string
		problems []analysis.Problem
		want     string
	}{
		{
			name: "clean",
			want: "ok",
		},
		{
			name: "fatal wins",
			problems: []analysis.Problem{
				{Severity: analysis.SeverityWarning, Message: "long method"},
				{Severity: analysis.SeverityFatal, Message: "cannot extract here"},
			},
			want: "blocked: cannot extract here",
		},
		{
			name: "single warning shown",
			problems: []analysis.Problem{
				{Severity: analysis.SeverityWarning, Message: "long method"},
			},
			want: "warning: long method",
		},
		{
			name: "several warnings counted",
			problems: []analysis.Problem{
				{Severity: analysis.SeverityWarning, Message: "long method"},
				{Severity: analysis.SeverityError, Message: "name collides"},
			},
			want: "warnings: 2",
		},
		{
			name: "info never gates",
			problems: []analysis.Problem{
				{Severity: analysis.SeverityInfo, Message: "style note"},
			},
			want: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeProblems(tt.problems); got != tt.want {
				t.Errorf("describeProblems() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	err := exitf(exitUsage, "bad flag %q", "--wat")
	if err.code != exitUsage {
		t.Errorf("code = %d, want %d", err.code, exitUsage)
	}
	if !strings.Contains(err.Error(), "--wat") {
		t.Errorf("Error() = %q, want the flag named", err.Error())
	}

	silent := &exitError{code: exitAborted}
	if silent.Error() != "" {
		t.Errorf("silent exit error has message %q", silent.Error())
	}
}
