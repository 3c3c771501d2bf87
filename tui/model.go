// Package tui is the terminal front end of the reader. Every user action is
// turned into a call on a reader.Store and the view is redrawn from the
// State snapshot it returns.
package tui

import (
	"context"
	"fmt"
	"rssreader/models"
	"rssreader/reader"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
)

const AllFeeds = "All Feeds"

const feedsPaneWidth = 32

type view int

const (
	viewFeeds view = iota
	viewItems
	viewReading
	viewAddFeed
)

// Purger is implemented by fetchers that keep results around between calls
type Purger interface {
	Purge()
}

type feedEntry struct {
	feed *models.Feed
}

func (e feedEntry) Title() string {
	if e.feed == nil {
		return AllFeeds
	}
	return titleText(e.feed.Title)
}

func (e feedEntry) Description() string {
	if e.feed == nil {
		return "Every feed, newest first"
	}
	return plainText(e.feed.Url)
}

func (e feedEntry) FilterValue() string { return e.Title() }

type itemEntry struct {
	item models.FeedItem
}

func (e itemEntry) Title() string {
	title := titleText(e.item.Title)
	if e.item.HasAudio() {
		title = "♪ " + title
	}
	return title
}

func (e itemEntry) Description() string { return formatDate(e.item.Date) }
func (e itemEntry) FilterValue() string { return e.Title() }

// Messages carrying Store results back into Update
type stateMsg reader.State

type addedFeedMsg struct {
	state reader.State
	err   error
}

type transcriptMsg struct {
	state reader.State
	err   error
}

type Model struct {
	ctx    context.Context
	store  *reader.Store
	purger Purger

	view    view
	state   reader.State
	feeds   list.Model
	items   list.Model
	reading viewport.Model
	input   textinput.Model
	spinner spinner.Model
	loading int
	addErr  string
	status  string
	width   int
	height  int
}

// NewModel builds the UI on top of store. purger may be nil; when set it is
// purged before every manual refresh.
func NewModel(ctx context.Context, store *reader.Store, purger Purger) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "https://example.com/feed.xml"
	ti.Prompt = "URL: "
	ti.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		ctx:     ctx,
		store:   store,
		purger:  purger,
		view:    viewFeeds,
		feeds:   newList("Feeds"),
		items:   newList(AllFeeds),
		reading: viewport.New(0, 0),
		input:   ti,
		spinner: s,
	}
	m.apply(store.State())
	return m
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view == viewAddFeed {
			return m.updateAddFeed(msg)
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case stateMsg:
		m.loading--
		m.apply(reader.State(msg))
		return m, nil

	case addedFeedMsg:
		m.loading--
		if msg.err != nil {
			m.addErr = plainText(fmt.Sprintf("Could not add feed: %v", msg.err))
			return m, nil
		}
		m.addErr = ""
		m.input.Reset()
		m.input.Blur()
		m.view = viewItems
		m.apply(msg.state)
		m.feeds.Select(m.selectedFeedIndex())
		return m, nil

	case transcriptMsg:
		m.loading--
		if msg.err != nil {
			m.status = plainText(fmt.Sprintf("Transcription failed: %v", msg.err))
		}
		m.apply(msg.state)
		return m, nil

	case spinner.TickMsg:
		if m.loading <= 0 {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.view {
	case viewFeeds:
		m.feeds, cmd = m.feeds.Update(msg)
	case viewItems:
		m.items, cmd = m.items.Update(msg)
	case viewReading:
		m.reading, cmd = m.reading.Update(msg)
	}
	return m, cmd
}

// handleKey runs the key bindings of the list and reading views. Keys it does
// not handle go to the focused component.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return m, tea.Quit, true
	case "a":
		m.view = viewAddFeed
		m.addErr = ""
		return m, m.input.Focus(), true
	case "r":
		return m, m.run(m.refresh()), true
	}

	switch m.view {
	case viewFeeds:
		if msg.String() == "enter" {
			entry, ok := m.feeds.SelectedItem().(feedEntry)
			if !ok {
				return m, nil, true
			}
			m.view = viewItems
			m.status = ""
			return m, m.run(m.selectFeed(entry.feed)), true
		}

	case viewItems:
		switch msg.String() {
		case "enter":
			entry, ok := m.items.SelectedItem().(itemEntry)
			if !ok {
				return m, nil, true
			}
			m.view = viewReading
			m.status = ""
			m.apply(m.store.SelectItem(entry.item))
			m.reading.GotoTop()
			return m, nil, true
		case "esc":
			m.view = viewFeeds
			return m, nil, true
		}

	case viewReading:
		switch msg.String() {
		case "t":
			if m.state.SelectedItem == nil || !m.state.SelectedItem.HasAudio() {
				m.status = "This item has no audio"
				return m, nil, true
			}
			m.status = ""
			return m, m.run(m.transcribe()), true
		case "esc":
			m.view = viewItems
			return m, nil, true
		}
	}

	return m, nil, false
}

func (m Model) updateAddFeed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = viewFeeds
		m.addErr = ""
		m.input.Reset()
		m.input.Blur()
		return m, nil
	case "enter":
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			m.addErr = "Enter the URL of an RSS or Atom feed"
			return m, nil
		}
		m.addErr = ""
		return m, m.run(m.addFeed(url))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run marks a Store call as in flight and starts the spinner
func (m *Model) run(cmd tea.Cmd) tea.Cmd {
	m.loading++
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) addFeed(url string) tea.Cmd {
	return func() tea.Msg {
		state, err := m.store.AddFeed(m.ctx, url)
		return addedFeedMsg{state: state, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		if m.purger != nil {
			m.purger.Purge()
		}
		return stateMsg(m.store.Refresh(m.ctx))
	}
}

func (m Model) selectFeed(feed *models.Feed) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(m.store.SelectFeed(m.ctx, feed))
	}
}

func (m Model) transcribe() tea.Cmd {
	return func() tea.Msg {
		state, err := m.store.RequestTranscript(m.ctx)
		return transcriptMsg{state: state, err: err}
	}
}

// apply redraws the lists and the reading pane from a State snapshot
func (m *Model) apply(state reader.State) {
	m.state = state

	feedItems := make([]list.Item, 0, len(state.Feeds)+1)
	feedItems = append(feedItems, feedEntry{})
	for i := range state.Feeds {
		feedItems = append(feedItems, feedEntry{feed: &state.Feeds[i]})
	}
	m.feeds.SetItems(feedItems)

	entries := make([]list.Item, len(state.DisplayedItems))
	for i, item := range state.DisplayedItems {
		entries[i] = itemEntry{item: item}
	}
	m.items.SetItems(entries)
	m.items.Title = AllFeeds
	if state.SelectedFeed != nil {
		m.items.Title = titleText(state.SelectedFeed.Title)
	}

	m.renderReading()

	log.WithFields(log.Fields{
		"phase":     state.Phase().String(),
		"feeds":     len(state.Feeds),
		"displayed": len(state.DisplayedItems),
	}).Debug("Applied state")
}

// selectedFeedIndex is the feeds list index matching state.SelectedFeed, where
// 0 is All Feeds. An add that lost to a newer selection leaves that selection
// highlighted.
func (m *Model) selectedFeedIndex() int {
	selected := m.state.SelectedFeed
	if selected == nil {
		return 0
	}
	if entry, ok := m.feeds.SelectedItem().(feedEntry); ok && entry.feed != nil && *entry.feed == *selected {
		return m.feeds.Index()
	}
	// Duplicate URLs compare equal, the newest entry wins
	for i := len(m.state.Feeds) - 1; i >= 0; i-- {
		if m.state.Feeds[i] == *selected {
			return i + 1
		}
	}
	return 0
}

func (m *Model) renderReading() {
	item := m.state.SelectedItem
	if item == nil {
		m.reading.SetContent(MutedStyle.Render("Select an item to read it"))
		return
	}

	width := m.reading.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(HeadingStyle.Render(wrap(titleText(item.Title), width)))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(formatDate(item.Date)))
	if item.Link != "" {
		b.WriteString("\n")
		b.WriteString(LinkStyle.Render(plainText(item.Link)))
	}
	if item.HasAudio() {
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("♪ " + plainText(*item.AudioUrl) + " (press t to transcribe)"))
	}
	b.WriteString("\n\n")

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	b.WriteString(RenderContent(body, width))

	if m.state.Transcript != nil {
		b.WriteString("\n\n")
		b.WriteString(HeadingStyle.Render("Transcript"))
		b.WriteString("\n\n")
		b.WriteString(wrap(plainText(m.state.Transcript.Transcript), width))
	}

	m.reading.SetContent(b.String())
}

func (m *Model) resize() {
	frameW, frameH := DocStyle.GetFrameSize()
	paneW, paneH := PaneStyle.GetFrameSize()

	height := m.height - frameH - paneH - 2
	if height < 3 {
		height = 3
	}
	mainWidth := m.width - frameW - feedsPaneWidth - 2*paneW
	if mainWidth < 20 {
		mainWidth = 20
	}

	m.feeds.SetSize(feedsPaneWidth, height)
	m.items.SetSize(mainWidth, height)
	m.reading.Width = mainWidth
	m.reading.Height = height
	m.input.Width = mainWidth - len(m.input.Prompt) - 1
	m.renderReading()
}

func (m Model) View() string {
	var main string
	switch m.view {
	case viewReading:
		main = m.reading.View()
	case viewAddFeed:
		main = m.addFeedView()
	default:
		main = m.items.View()
	}

	feedsPane, mainPane := ActivePaneStyle, PaneStyle
	if m.view != viewFeeds {
		feedsPane, mainPane = PaneStyle, ActivePaneStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		feedsPane.Render(m.feeds.View()),
		mainPane.Render(main),
	)
	return DocStyle.Render(body + "\n" + m.statusLine())
}

func (m Model) addFeedView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Add feed"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.addErr != "" {
		b.WriteString(ErrorStyle.Render(m.addErr))
		b.WriteString("\n\n")
	}
	b.WriteString(MutedStyle.Render("enter to add • esc to cancel"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.loading > 0 {
		return m.spinner.View() + " Loading..."
	}
	if m.status != "" {
		return ErrorStyle.Render(m.status)
	}
	if m.state.Phase() == reader.NoFeeds {
		return MutedStyle.Render("No feeds yet • a add feed • q quit")
	}

	switch m.view {
	case viewReading:
		return MutedStyle.Render("t transcribe • esc back • r refresh • q quit")
	case viewItems:
		return MutedStyle.Render("enter read • esc feeds • a add feed • r refresh • q quit")
	default:
		return MutedStyle.Render("enter open • a add feed • r refresh • q quit")
	}
}

func formatDate(date string) string {
	parsed, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return date
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
