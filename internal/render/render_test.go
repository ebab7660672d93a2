package render

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("The refund window is **30 days**.\n\n- receipt\n- original packaging")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<strong>30 days</strong>", "<li>receipt</li>", "<ul>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestToHTMLDropsRawHTML(t *testing.T) {
	out, err := ToHTML("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML passed through: %s", out)
	}
}

func TestToHTMLTables(t *testing.T) {
	out, _ := ToHTML("| a | b |\n|---|---|\n| 1 | 2 |")
	if !strings.Contains(out, "<table>") {
		t.Errorf("GFM tables not enabled: %s", out)
	}
}

func TestMustHTML(t *testing.T) {
	if out := MustHTML("plain"); !strings.Contains(out, "plain") {
		t.Errorf("MustHTML = %q", out)
	}
}
