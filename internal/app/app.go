package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/henri123lemoine/gridmsg/internal/config"
	"github.com/henri123lemoine/gridmsg/internal/debug"
	"github.com/henri123lemoine/gridmsg/internal/decode"
	"github.com/henri123lemoine/gridmsg/internal/source"
	"github.com/henri123lemoine/gridmsg/internal/ui"
)

// State represents the current UI state.
type State int

const (
	StateList State = iota
	StateFilter
	StateOpen
	StateFetching
	StateView
	StateHelp
)

// Services wires the browser to the fetch and decode pipeline.
type Services struct {
	// Fetcher serves refs from cache when it can; refresh bypasses it.
	Fetcher *source.Fetcher

	// CacheDir is the disk cache listed by the browser.
	CacheDir string

	Decode decode.Options
}

// Model is the main application model.
type Model struct {
	// Configuration
	config  *config.Config
	svc     Services
	decoder *decode.Decoder

	// Data
	documents         []source.Document
	filteredDocuments []source.Document
	cursor            int
	viewOffset        int

	// State
	state      State
	loading    bool
	err        error
	status     string
	pendingRef string

	// Inputs
	filterInput textinput.Model
	openInput   textinput.Model

	// Grid view
	viewport viewport.Model
	result   *decode.Result

	// UI
	width  int
	height int
	keys   KeyMap

	shouldQuit bool
}

// New creates a new Model.
func New(cfg *config.Config, svc Services) Model {
	filterInput := textinput.New()
	filterInput.Placeholder = "filter..."
	filterInput.CharLimit = 100

	openInput := textinput.New()
	openInput.Placeholder = "https://docs.google.com/document/d/..."
	openInput.CharLimit = 2048

	keys := DefaultKeyMap()
	if cfg != nil {
		keys = KeyMapFromConfig(&cfg.Keys)
	}

	return Model{
		config:      cfg,
		svc:         svc,
		decoder:     decode.New(svc.Fetcher, svc.Decode),
		keys:        keys,
		filterInput: filterInput,
		openInput:   openInput,
		viewport:    viewport.New(0, 0),
		state:       StateList,
		loading:     true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return loadDocuments(m.svc.CacheDir)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		// Handle quit globally
		if key.Matches(msg, m.keys.Quit) && (m.state == StateList || m.state == StateFetching) {
			m.shouldQuit = true
			return m, tea.Quit
		}

		return m.handleKeyPress(msg)

	case DocumentsLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.documents = msg.Documents
		m.applyFilter()
		return m, nil

	case DocumentDecodedMsg:
		m.pendingRef = ""
		if msg.Err != nil {
			debug.Log("decode %s failed: %v", msg.Ref, msg.Err)
			m.err = msg.Err
			m.state = StateList
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.showResult(msg.Result)
		if msg.Result.FromCache {
			return m, nil
		}
		// A network fetch may have added or updated a cache entry
		return m, loadDocuments(m.svc.CacheDir)

	case DocumentForgottenMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.status = "Forgot " + ui.DisplayRef(msg.Ref)
		return m, loadDocuments(m.svc.CacheDir)
	}

	return m, nil
}

// handleKeyPress handles key presses based on current state.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateList:
		return m.handleListKeys(msg)
	case StateFilter:
		return m.handleFilterKeys(msg)
	case StateOpen:
		return m.handleOpenKeys(msg)
	case StateView:
		return m.handleViewKeys(msg)
	case StateHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

// handleListKeys handles key presses in the list view.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.filteredDocuments)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.filteredDocuments) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.View):
		if doc, ok := m.selected(); ok {
			return m, decodeCached(m.decoder, doc)
		}
	case key.Matches(msg, m.keys.Open):
		m.state = StateOpen
		m.openInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Refresh):
		if doc, ok := m.selected(); ok {
			return m.startFetch(doc.Ref, refreshDocument(m.decoder, doc.Ref))
		}
	case key.Matches(msg, m.keys.Delete):
		if doc, ok := m.selected(); ok {
			return m, forgetDocument(m.svc.Fetcher, doc.Ref)
		}
	case key.Matches(msg, m.keys.Filter):
		m.state = StateFilter
		m.filterInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Help):
		m.state = StateHelp
		return m, nil
	}
	m.clampOffset()
	return m, nil
}

// handleHelpKeys handles key presses in the help view.
func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	m.state = StateList
	return m, nil
}

// handleOpenKeys handles key presses in the ref prompt.
func (m Model) handleOpenKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateList
		m.openInput.Reset()
		m.openInput.Blur()
		return m, nil
	case tea.KeyEnter:
		ref := strings.TrimSpace(m.openInput.Value())
		if ref == "" {
			return m, nil
		}
		if ref == source.StdinRef {
			m.err = fmt.Errorf("cannot read standard input from the browser")
			return m, nil
		}
		m.openInput.Reset()
		m.openInput.Blur()
		return m.startFetch(ref, fetchDocument(m.decoder, ref))
	}

	var cmd tea.Cmd
	m.openInput, cmd = m.openInput.Update(msg)
	return m, cmd
}

// handleViewKeys handles key presses while a grid is shown.
func (m Model) handleViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.state = StateList
		m.result = nil
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		if m.result != nil {
			return m.startFetch(m.result.Ref, refreshDocument(m.decoder, m.result.Ref))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleFilterKeys handles key presses in filter mode.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateList
		m.filterInput.Reset()
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.state = StateList
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) startFetch(ref string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.state = StateFetching
	m.pendingRef = ref
	m.err = nil
	m.status = ""
	return m, cmd
}

func (m Model) selected() (source.Document, bool) {
	if m.cursor < 0 || m.cursor >= len(m.filteredDocuments) {
		return source.Document{}, false
	}
	return m.filteredDocuments[m.cursor], true
}

func (m *Model) showResult(res *decode.Result) {
	m.result = res
	m.state = StateView
	m.viewport.SetContent(strings.Join(res.Rows, "\n"))
	m.viewport.GotoTop()
}

// resizeViewport fits the grid viewport inside the box chrome.
func (m *Model) resizeViewport() {
	m.viewport.Width = max(1, m.width-8)
	m.viewport.Height = max(1, m.height-12)
}

// visibleCount is how many two-line list entries fit on screen.
func (m Model) visibleCount() int {
	if m.height == 0 {
		return len(m.filteredDocuments)
	}
	return max(1, (m.height-12)/2)
}

// clampOffset scrolls the list so the cursor stays visible.
func (m *Model) clampOffset() {
	n := m.visibleCount()
	if m.cursor < m.viewOffset {
		m.viewOffset = m.cursor
	}
	if m.cursor >= m.viewOffset+n {
		m.viewOffset = m.cursor - n + 1
	}
	if m.viewOffset < 0 {
		m.viewOffset = 0
	}
}

// documentSource implements fuzzy.Source for document fuzzy matching.
type documentSource []source.Document

func (d documentSource) String(i int) string {
	return d[i].Ref
}

func (d documentSource) Len() int {
	return len(d)
}

// applyFilter filters documents based on current filter input using fuzzy matching.
func (m *Model) applyFilter() {
	filter := m.filterInput.Value()
	if filter == "" {
		m.filteredDocuments = m.documents
	} else {
		matches := fuzzy.FindFrom(filter, documentSource(m.documents))

		m.filteredDocuments = nil
		for _, match := range matches {
			m.filteredDocuments = append(m.filteredDocuments, m.documents[match.Index])
		}
	}

	// Ensure cursor is in bounds
	if m.cursor >= len(m.filteredDocuments) {
		m.cursor = len(m.filteredDocuments) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampOffset()
}

// View renders the UI.
func (m Model) View() string {
	return ui.Render(ui.RenderParams{
		State:         int(m.state),
		Documents:     m.filteredDocuments,
		Cursor:        m.cursor,
		ViewOffset:    m.viewOffset,
		VisibleCount:  m.visibleCount(),
		Width:         m.width,
		Height:        m.height,
		Loading:       m.loading,
		Err:           m.err,
		Status:        m.status,
		Now:           time.Now(),
		FilterInput:   m.filterInput.View(),
		FilterValue:   m.filterInput.Value(),
		OpenInput:     m.openInput.View(),
		PendingRef:    m.pendingRef,
		Result:        m.result,
		Viewport:      m.viewport.View(),
		ScrollPercent: m.viewport.ScrollPercent(),
		HelpSections:  m.keys.HelpSections(),
	})
}

// ShouldQuit returns true if the app should quit.
func (m Model) ShouldQuit() bool {
	return m.shouldQuit
}

// Commands

func loadDocuments(dir string) tea.Cmd {
	return func() tea.Msg {
		docs, err := source.ListCache(dir)
		return DocumentsLoadedMsg{Documents: docs, Err: err}
	}
}

func decodeCached(d *decode.Decoder, doc source.Document) tea.Cmd {
	return func() tea.Msg {
		res, err := d.DecodeDocument(&doc)
		return DocumentDecodedMsg{Ref: doc.Ref, Result: res, Err: err}
	}
}

func fetchDocument(d *decode.Decoder, ref string) tea.Cmd {
	return func() tea.Msg {
		res, err := d.Decode(context.Background(), ref)
		return DocumentDecodedMsg{Ref: ref, Result: res, Err: err}
	}
}

func refreshDocument(d *decode.Decoder, ref string) tea.Cmd {
	return func() tea.Msg {
		res, err := d.Refresh(context.Background(), ref)
		return DocumentDecodedMsg{Ref: ref, Result: res, Err: err}
	}
}

func forgetDocument(f *source.Fetcher, ref string) tea.Cmd {
	return func() tea.Msg {
		return DocumentForgottenMsg{Ref: ref, Err: f.Forget(ref)}
	}
}
