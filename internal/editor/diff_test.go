package editor

import "testing"

func TestUnifiedDiffEqual(t *testing.T) {
	if got := UnifiedDiff("/a.dart", []byte("same\n"), []byte("same\n")); got != "" {
		t.Errorf("UnifiedDiff(equal) = %q, want empty", got)
	}
}

func TestUnifiedDiffReplacement(t *testing.T) {
	before := []byte("alpha\nbravo\ncharlie\n")
	after := []byte("alpha\nBETA\ncharlie\n")

	want := "--- a/lib/app.dart\n" +
		"+++ b/lib/app.dart\n" +
		"@@ -2,1 +2,1 @@\n" +
		"-bravo\n" +
		"+BETA\n"
	if got := UnifiedDiff("lib/app.dart", before, after); got != want {
		t.Errorf("UnifiedDiff() = %q, want %q", got, want)
	}
}

func TestUnifiedDiffAddition(t *testing.T) {
	before := []byte("alpha\ncharlie\n")
	after := []byte("alpha\nbravo\ncharlie\n")

	want := "--- a/lib/app.dart\n" +
		"+++ b/lib/app.dart\n" +
		"@@ -1,0 +2,1 @@\n" +
		"+bravo\n"
	if got := UnifiedDiff("lib/app.dart", before, after); got != want {
		t.Errorf("UnifiedDiff() = %q, want %q", got, want)
	}
}

func TestUnifiedDiffDeletion(t *testing.T) {
	before := []byte("alpha\nbravo\ncharlie\n")
	after := []byte("alpha\ncharlie\n")

	want := "--- a/lib/app.dart\n" +
		"+++ b/lib/app.dart\n" +
		"@@ -2,1 +1,0 @@\n" +
		"-bravo\n"
	if got := UnifiedDiff("lib/app.dart", before, after); got != want {
		t.Errorf("UnifiedDiff() = %q, want %q", got, want)
	}
}
