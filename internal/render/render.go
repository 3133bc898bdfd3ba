// Package render turns message markdown into sanitized HTML for the browser
// and styled text for the terminal.
package render

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTML renders markdown to HTML that is safe to inject into the page.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates a GitHub-flavoured markdown renderer with a UGC sanitizer.
func NewHTML() *HTML {
	return &HTML{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts src to sanitized HTML.
func (h *HTML) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return h.policy.Sanitize(buf.String()), nil
}

// Terminal renders markdown for display in a terminal.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer wrapping at width columns.
func NewTerminal(width int) (*Terminal, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating terminal renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

// Render converts src to styled terminal output.
func (t *Terminal) Render(src string) (string, error) {
	return t.renderer.Render(src)
}
