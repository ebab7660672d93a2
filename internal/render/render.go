// Package render converts model answers, which are usually Markdown, into
// HTML for the chat page.
package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var (
	once sync.Once
	md   goldmark.Markdown
)

func markdown() goldmark.Markdown {
	once.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			// Raw HTML in answers is dropped; only Markdown is rendered.
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		)
	})
	return md
}

// ToHTML renders Markdown source as HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// MustHTML renders source, falling back to escaped plain text on error.
func MustHTML(source string) string {
	out, err := ToHTML(source)
	if err != nil {
		var buf bytes.Buffer
		buf.WriteString("<p>")
		buf.Write(util.EscapeHTML([]byte(source)))
		buf.WriteString("</p>")
		return buf.String()
	}
	return out
}
