package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporter(t *testing.T) {
	t.Setenv("CI", "true")
	var buf bytes.Buffer

	r := NewReporter(&buf)
	if _, ok := r.(*CIReporter); !ok {
		t.Fatalf("expected CIReporter, got %T", r)
	}
	r.Start(2)
	r.Update(1, "a.pdf")
	r.Update(2, "b.pdf")
	r.Finish("2 indexed, 0 failed")

	out := buf.String()
	for _, want := range []string{"Indexing 2 document(s)", "[1/2] a.pdf", "[2/2] b.pdf", "2 indexed, 0 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalReporter(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	var buf bytes.Buffer

	r := NewReporter(&buf)
	if _, ok := r.(*TerminalReporter); !ok {
		t.Fatalf("expected TerminalReporter, got %T", r)
	}
	r.Start(1)
	r.Update(1, "a.pdf")
	r.Finish("done")
	if !strings.Contains(buf.String(), "done") {
		t.Errorf("summary not written: %q", buf.String())
	}
}
