// ABOUTME: Renders revealed stage content for the terminal, as markdown via glamour or as plain wrapped text.
// ABOUTME: GlamourRenderer caches one glamour.TermRenderer per wrap width.
package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ContentRenderer turns stage content into terminal text no wider than width.
type ContentRenderer interface {
	Render(content string, width int) string
}

// PlainRenderer wraps content without interpreting markdown.
type PlainRenderer struct{}

func (PlainRenderer) Render(content string, width int) string {
	if width < 1 {
		return content
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// GlamourRenderer renders markdown with a glamour standard style. It is not
// safe for concurrent use; the TUI only renders from its update loop.
type GlamourRenderer struct {
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewGlamourRenderer creates a renderer using the named glamour standard
// style ("dark", "light", "notty", ...). An empty style means "dark".
func NewGlamourRenderer(style string) *GlamourRenderer {
	if style == "" {
		style = "dark"
	}
	return &GlamourRenderer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render falls back to plain wrapping if glamour fails.
func (g *GlamourRenderer) Render(content string, width int) string {
	r, err := g.renderer(width)
	if err != nil {
		return PlainRenderer{}.Render(content, width)
	}
	out, err := r.Render(content)
	if err != nil {
		return PlainRenderer{}.Render(content, width)
	}
	return strings.Trim(out, "\n")
}

func (g *GlamourRenderer) renderer(width int) (*glamour.TermRenderer, error) {
	if width < 1 {
		width = 1
	}
	if r, ok := g.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(g.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	g.renderers[width] = r
	return r, nil
}
