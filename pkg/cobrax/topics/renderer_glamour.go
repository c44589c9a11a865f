package topics

import (
	"github.com/charmbracelet/glamour"
)

// GlamourRenderer draws .md topics for the terminal. Plain-text topics
// are printed as written.
type GlamourRenderer struct {
	// Style names a glamour theme or a JSON style file. Empty or "auto"
	// follows the terminal background.
	Style string
	// Width is the wrap column. Zero leaves wrapping to glamour.
	Width int
}

// NewGlamourRenderer returns a renderer that follows the terminal background
func NewGlamourRenderer() *GlamourRenderer {
	return &GlamourRenderer{Style: "auto"}
}

func (r *GlamourRenderer) options() []glamour.TermRendererOption {
	style := glamour.WithAutoStyle()
	if r.Style != "" && r.Style != "auto" {
		style = glamour.WithStylePath(r.Style)
	}
	opts := []glamour.TermRendererOption{style}
	if r.Width > 0 {
		opts = append(opts, glamour.WithWordWrap(r.Width))
	}
	return opts
}

// Render draws content when format is ".md". A topic glamour cannot draw
// is shown as its source.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}
	tr, err := glamour.NewTermRenderer(r.options()...)
	if err != nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return out
}
