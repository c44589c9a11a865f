// Package ui renders npkg's user-facing output: package lists, search
// results and status lines, styled for terminals and plain otherwise.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/arthur-debert/npkg/pkg/ui/styles"
	"github.com/pterm/pterm"
)

// Printer writes formatted output to one stream
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter creates a printer. FormatAuto inspects w when it is a file
// and falls back to plain text otherwise.
func NewPrinter(w io.Writer, format Format) *Printer {
	if format == FormatAuto {
		format = FormatText
		if f, ok := w.(*os.File); ok {
			format = DetectFormat(f)
		}
	}
	return &Printer{w: w, styled: format == FormatTerminal}
}

// Styled reports whether output carries colors
func (p *Printer) Styled() bool {
	return p.styled
}

func (p *Printer) style(name, text string) string {
	if !p.styled {
		return text
	}
	return styles.Render(name, text)
}

func (p *Printer) line(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

// Header prints a section title
func (p *Printer) Header(title string) {
	p.line("%s", p.style("Header", title))
}

// Packages prints one package per line under an optional header
func (p *Printer) Packages(title string, pkgs []string) {
	if title != "" {
		p.Header(title + ":")
	}
	bullet := "-"
	if p.styled {
		bullet = pterm.ThemeDefault.BulletListBulletStyle.Sprint("•")
	}
	for _, pkg := range pkgs {
		p.line("  %s %s", bullet, p.style("Package", pkg))
	}
}

// SearchResult is one row of search output
type SearchResult struct {
	Attr        string
	Version     string
	Description string
	Broken      bool
	// InstalledIn names the targets that already have the package
	InstalledIn []string
}

// SearchResults prints hits with the query terms highlighted
func (p *Printer) SearchResults(results []SearchResult, terms []string) {
	for _, r := range results {
		head := p.highlight(r.Attr, terms, "Package")
		if r.Version != "" {
			head += " " + p.style("Version", "("+r.Version+")")
		}
		if len(r.InstalledIn) > 0 {
			in := append([]string(nil), r.InstalledIn...)
			sort.Strings(in)
			head += " " + p.style("Installed", "["+strings.Join(in, ", ")+"]")
		}
		if r.Broken {
			head += " " + p.style("Broken", "(broken)")
		}
		p.line("* %s", head)
		if r.Description != "" {
			p.line("  %s", p.highlight(r.Description, terms, "Description"))
		}
	}
}

// highlight styles text with base and each occurrence of a term with
// the Match style, ignoring case.
func (p *Printer) highlight(text string, terms []string, base string) string {
	if !p.styled {
		return text
	}

	lower := strings.ToLower(text)
	marks := make([]bool, len(text))
	for _, t := range terms {
		t = strings.ToLower(t)
		if t == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(lower[from:], t)
			if i < 0 {
				break
			}
			for j := from + i; j < from+i+len(t) && j < len(marks); j++ {
				marks[j] = true
			}
			from += i + len(t)
		}
	}

	var b strings.Builder
	for start := 0; start < len(text); {
		end := start
		for end < len(text) && marks[end] == marks[start] {
			end++
		}
		if marks[start] {
			b.WriteString(styles.Render("Match", text[start:end]))
		} else {
			b.WriteString(styles.Render(base, text[start:end]))
		}
		start = end
	}
	return b.String()
}

// Suggestions prints "did you mean" candidates
func (p *Printer) Suggestions(query string, candidates []string) {
	if len(candidates) == 0 {
		return
	}
	p.line("%s", p.style("Muted", fmt.Sprintf("No exact match for %q. Did you mean:", query)))
	for _, c := range candidates {
		p.line("  %s", p.style("Package", c))
	}
}

// Success prints a completion message
func (p *Printer) Success(msg string) {
	p.prefixed(pterm.Success.Prefix, "Success", msg)
}

// Info prints an informational message
func (p *Printer) Info(msg string) {
	p.prefixed(pterm.Info.Prefix, "Muted", msg)
}

// Warning prints a warning
func (p *Printer) Warning(msg string) {
	p.prefixed(pterm.Warning.Prefix, "Warning", msg)
}

// Error prints an error
func (p *Printer) Error(msg string) {
	p.prefixed(pterm.Error.Prefix, "Error", msg)
}

func (p *Printer) prefixed(prefix pterm.Prefix, style, msg string) {
	if !p.styled {
		p.line("%s: %s", strings.ToLower(strings.TrimSpace(prefix.Text)), msg)
		return
	}
	p.line("%s %s", prefix.Style.Sprint(" "+prefix.Text+" "), styles.Render(style, msg))
}
