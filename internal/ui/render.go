package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/henri123lemoine/gridmsg/internal/decode"
	"github.com/henri123lemoine/gridmsg/internal/source"
)

// State constants (matching app.State)
const (
	StateList = iota
	StateFilter
	StateOpen
	StateFetching
	StateView
	StateHelp
)

// HelpBinding represents a keybinding for help display.
type HelpBinding struct {
	Keys string
	Desc string
}

// HelpSection represents a section of help bindings.
type HelpSection struct {
	Title    string
	Bindings []HelpBinding
}

// RenderParams contains all parameters needed for rendering.
type RenderParams struct {
	State         int
	Documents     []source.Document
	Cursor        int
	ViewOffset    int
	VisibleCount  int
	Width         int
	Height        int
	Loading       bool
	Err           error
	Status        string
	Now           time.Time
	FilterInput   string
	FilterValue   string
	OpenInput     string
	PendingRef    string
	Result        *decode.Result
	Viewport      string
	ScrollPercent float64
	HelpSections  []HelpSection
}

// MinWidth is the absolute minimum terminal width we try to support.
const MinWidth = 30

// MinHeight is the absolute minimum terminal height we try to support.
const MinHeight = 8

// Render renders the full UI.
func Render(p RenderParams) string {
	if p.Width < MinWidth {
		p.Width = MinWidth
	}
	if p.Height < MinHeight {
		p.Height = MinHeight
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}

	switch p.State {
	case StateFilter:
		return renderFilter(p)
	case StateOpen:
		return renderOpen(p)
	case StateFetching:
		return renderFetching(p)
	case StateView:
		return renderView(p)
	case StateHelp:
		return renderHelp(p)
	default:
		return renderList(p)
	}
}

// renderList renders the cached document list.
func renderList(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(TitleStyle.Render("gridmsg") + "  ")
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%d cached", len(p.Documents))))
	if p.FilterValue != "" {
		b.WriteString("  " + PathStyle.Render("filter: "+p.FilterValue))
	}
	b.WriteString("\n" + DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")

	if p.Err != nil {
		b.WriteString(ErrorStyle.Render("Error: "+p.Err.Error()) + "\n")
	} else if p.Status != "" {
		b.WriteString(StatusStyle.Render(p.Status) + "\n")
	}

	switch {
	case p.Loading:
		b.WriteString("\n" + PathStyle.Render("Loading cache...") + "\n")
	case len(p.Documents) == 0 && p.FilterValue != "":
		b.WriteString("\n" + PathStyle.Render("No matches found.") + "\n")
	case len(p.Documents) == 0:
		b.WriteString("\n" + PathStyle.Render("No cached documents. Press o to open one.") + "\n")
	default:
		b.WriteString(renderEntries(p, contentWidth))
	}

	b.WriteString("\n" + DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")
	helpText := compactHelp(
		"enter view • o open • r refresh • d forget • / filter • ? help • q quit",
		"enter•o•r•d•/•?•q",
		p.Width,
	)
	b.WriteString(HelpStyle.Render(helpText))

	return wrapInBox(b.String(), p.Width, p.Height)
}

// renderEntries renders the visible slice of the document list.
func renderEntries(p RenderParams, width int) string {
	var b strings.Builder

	startIdx, endIdx := visibleRange(p.ViewOffset, p.VisibleCount, len(p.Documents))

	if startIdx > 0 {
		b.WriteString(PathStyle.Render(fmt.Sprintf("  %s %d more above", SymbolAbove, startIdx)) + "\n")
	}

	for i := startIdx; i < endIdx; i++ {
		b.WriteString(renderDocumentEntry(p.Documents[i], i == p.Cursor, width, p.Now))
		if i < endIdx-1 {
			b.WriteString("\n")
		}
	}

	if endIdx < len(p.Documents) {
		b.WriteString("\n" + PathStyle.Render(fmt.Sprintf("  %s %d more below", SymbolBelow, len(p.Documents)-endIdx)))
	}
	return b.String()
}

func visibleRange(offset, count, total int) (int, int) {
	if count <= 0 {
		count = total
	}
	start := offset
	if start >= total || start < 0 {
		start = 0
	}
	end := start + count
	if end > total {
		end = total
	}
	return start, end
}

// renderDocumentEntry renders a single cached document.
func renderDocumentEntry(doc source.Document, selected bool, width int, now time.Time) string {
	cursor := "  "
	title := DisplayRef(doc.Ref)
	if selected {
		cursor = SelectedStyle.Render(SymbolCursor + " ")
		title = SelectedStyle.Render(truncate(title, width-2))
	} else {
		title = NormalStyle.Render(truncate(title, width-2))
	}

	details := []string{
		"fetched " + FormatAge(now.Sub(doc.FetchedAt)),
		FormatSize(len(doc.Body)),
	}
	if ct := shortContentType(doc.ContentType); ct != "" {
		details = append(details, ct)
	}

	return cursor + title + "\n    " + PathStyle.Render(strings.Join(details, " · "))
}

// renderFilter renders the filter input with live matches.
func renderFilter(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(HeaderStyle.Render("FILTER") + "  ")
	b.WriteString(p.FilterInput + "\n")
	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")

	if len(p.Documents) == 0 {
		b.WriteString("\n" + PathStyle.Render("No matches found.") + "\n")
	} else {
		b.WriteString(renderEntries(p, contentWidth))
	}

	b.WriteString("\n" + DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")
	b.WriteString(HelpStyle.Render("enter select • esc clear"))

	return wrapInBox(b.String(), p.Width, p.Height)
}

// renderOpen renders the ref prompt.
func renderOpen(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(HeaderStyle.Render("OPEN DOCUMENT") + "\n")
	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n\n")

	b.WriteString("URL or file path:\n")
	b.WriteString(p.OpenInput + "\n")

	b.WriteString("\n" + DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")
	b.WriteString(HelpStyle.Render("enter fetch • esc cancel"))

	return wrapInBox(b.String(), p.Width, p.Height)
}

// renderFetching renders the in-flight fetch screen.
func renderFetching(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(HeaderStyle.Render("FETCHING") + "\n")
	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n\n")
	b.WriteString("Fetching " + PathStyle.Render(truncate(DisplayRef(p.PendingRef), contentWidth-12)) + "...\n")

	return wrapInBox(b.String(), p.Width, p.Height)
}

// renderView renders a decoded grid inside the viewport.
func renderView(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	if p.Result == nil {
		return renderList(p)
	}
	res := p.Result

	b.WriteString(HeaderStyle.Render("GRID") + "  ")
	b.WriteString(NormalStyle.Render(truncate(DisplayRef(res.Ref), contentWidth-8)) + "\n")

	info := fmt.Sprintf("%d×%d · %d triples", res.Width, res.Height, res.Triples)
	if res.FromCache {
		info += " · " + CachedStyle.Render("cached")
	}
	b.WriteString(PathStyle.Render(info) + "\n")
	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")

	if res.Empty() {
		b.WriteString(PathStyle.Render(decode.NoGridMessage) + "\n")
	} else {
		b.WriteString(GridStyle.Render(p.Viewport) + "\n")
	}

	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")
	helpText := compactHelp(
		fmt.Sprintf("↑/↓ scroll • r refresh • esc back  %3.0f%%", p.ScrollPercent*100),
		"↑↓•r•esc",
		p.Width,
	)
	b.WriteString(HelpStyle.Render(helpText))

	return wrapInBox(b.String(), p.Width, p.Height)
}

// renderHelp renders the help screen.
func renderHelp(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 4

	b.WriteString(HeaderStyle.Render("HELP") + "\n")
	b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n\n")

	for i, section := range p.HelpSections {
		b.WriteString(NormalStyle.Render(section.Title) + "\n")
		b.WriteString(DividerStyle.Render(strings.Repeat(SymbolDivider, 40)) + "\n")
		for _, binding := range section.Bindings {
			// Pad keys to 10 chars for alignment
			keys := binding.Keys
			if len(keys) < 10 {
				keys = keys + strings.Repeat(" ", 10-len(keys))
			}
			b.WriteString(PathStyle.Render("  "+keys) + " " + binding.Desc + "\n")
		}
		if i < len(p.HelpSections)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + DividerStyle.Render(strings.Repeat(SymbolDivider, contentWidth)) + "\n")
	b.WriteString(HelpStyle.Render("Press any key to close"))

	return wrapInBox(b.String(), p.Width, p.Height)
}

func wrapInBox(content string, width, height int) string {
	boxWidth := width - 2
	if boxWidth < MinWidth-2 {
		boxWidth = MinWidth - 2
	}

	// Don't force height - let content determine size
	style := BoxStyle.Width(boxWidth)

	return style.Render(content)
}

// compactHelp returns a shortened help string for small terminals.
func compactHelp(full, compact string, width int) string {
	if width >= 80 {
		return full
	}
	return compact
}

// DisplayRef shortens a ref for display: URLs lose their scheme, query and
// a trailing export path.
func DisplayRef(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ref
	}
	path := strings.TrimSuffix(u.Path, "/export")
	return u.Host + path
}

// FormatAge renders a duration as a coarse "3m ago" style string.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// FormatSize renders a byte count.
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

func shortContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
