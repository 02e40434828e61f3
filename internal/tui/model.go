// Package tui provides the BubbleTea-based badge menu.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/traybadge/internal/adapter/input"
	"github.com/jmylchreest/traybadge/internal/adapter/output"
	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/tray"
)

const requestTimeout = 5 * time.Second

// Controller performs actions on the daemon.
type Controller interface {
	Activate(ctx context.Context, snapshotID string, index int) error
	Rescan(ctx context.Context) error
}

// Model is the menu model. Closed, it shows only the badge; open, it lists
// the grouped items.
type Model struct {
	source input.InputAdapter
	ctl    Controller

	list list.Model
	help help.Model
	keys KeyMap

	snapshot *model.Snapshot
	open     bool
	showHelp bool
	width    int
	height   int

	statusMsg string
	statusErr bool

	refreshCh <-chan struct{}
}

// menuItem wraps a snapshot item for the list component.
type menuItem struct {
	item model.SnapshotItem
}

func (i menuItem) Title() string       { return output.ItemLabel(i.item) }
func (i menuItem) Description() string { return "" }
func (i menuItem) FilterValue() string { return i.item.Title }

// menuDelegate renders one line per item.
type menuDelegate struct{}

func (d menuDelegate) Height() int                             { return 1 }
func (d menuDelegate) Spacing() int                            { return 0 }
func (d menuDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d menuDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(menuItem)
	if !ok {
		return
	}

	style := lipgloss.NewStyle().PaddingLeft(2)
	prefix := "  "
	if index == m.Index() {
		style = style.Foreground(lipgloss.Color("12")).Bold(true)
		prefix = "> "
	}

	title := mi.Title()
	if width := m.Width() - 4; width > 0 && len(title) > width {
		title = title[:width-1] + "…"
	}
	fmt.Fprint(w, style.Render(prefix+title))
}

// New creates a menu model. ctl may be nil, in which case activation is
// unavailable. refreshCh, when set, triggers a reload on every receive.
func New(source input.InputAdapter, ctl Controller, keybinding string, refreshCh <-chan struct{}) Model {
	l := list.New(nil, menuDelegate{}, 0, 0)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		source:    source,
		ctl:       ctl,
		list:      l,
		help:      help.New(),
		keys:      DefaultKeyMap(keybinding),
		snapshot:  model.EmptySnapshot(),
		refreshCh: refreshCh,
	}
}

// Init initializes the menu.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot, m.watchForChanges)
}

type snapshotMsg struct {
	snap *model.Snapshot
	err  error
}

type refreshMsg struct{}

type activatedMsg struct {
	title string
	err   error
}

type rescannedMsg struct {
	err error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

func (m Model) loadSnapshot() tea.Msg {
	if m.source == nil {
		return snapshotMsg{snap: model.EmptySnapshot()}
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := m.source.Snapshot(ctx)
	return snapshotMsg{snap: snap, err: err}
}

func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return refreshMsg{}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, max(msg.Height-4, 1))
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			return m, setStatus("Failed to load: "+msg.err.Error(), true)
		}
		m.setSnapshot(msg.snap)
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadSnapshot, m.watchForChanges)

	case activatedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, tray.ErrStaleSnapshot) {
				return m, tea.Batch(setStatus("Menu was out of date, refreshed", true), m.loadSnapshot)
			}
			return m, setStatus("Open failed: "+msg.err.Error(), true)
		}
		m.open = false
		return m, tea.Batch(setStatus("Opened "+msg.title, false), m.loadSnapshot)

	case rescannedMsg:
		if msg.err != nil {
			return m, setStatus("Rescan failed: "+msg.err.Error(), true)
		}
		return m, tea.Batch(setStatus("Rescanned", false), m.loadSnapshot)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	if m.open {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

func (m *Model) setSnapshot(snap *model.Snapshot) {
	if snap == nil {
		snap = model.EmptySnapshot()
	}
	m.snapshot = snap

	items := make([]list.Item, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = menuItem{item: item}
	}
	m.list.SetItems(items)
	if m.list.Index() >= len(items) {
		m.list.Select(max(len(items)-1, 0))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.open = !m.open
		if m.open {
			return m, m.loadSnapshot
		}
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Rescan):
		return m, m.rescan()
	}

	if !m.open {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.open = false
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return m, m.activateSelected()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) activateSelected() tea.Cmd {
	mi, ok := m.list.SelectedItem().(menuItem)
	if !ok {
		return nil
	}
	if m.ctl == nil {
		return setStatus("Daemon not available", true)
	}

	ctl := m.ctl
	snapshotID := m.snapshot.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := ctl.Activate(ctx, snapshotID, mi.item.Index)
		return activatedMsg{title: mi.item.Title, err: err}
	}
}

func (m Model) rescan() tea.Cmd {
	if m.ctl == nil {
		return setStatus("Daemon not available", true)
	}
	ctl := m.ctl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return rescannedMsg{err: ctl.Rescan(ctx)}
	}
}

// View renders the menu.
func (m Model) View() string {
	s := m.viewBadge() + "\n"

	if m.open {
		if len(m.snapshot.Items) == 0 {
			s += lipgloss.NewStyle().Faint(true).Render("  Nothing to show") + "\n"
		} else {
			s += m.list.View() + "\n"
		}
	}

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += statusStyle.Render(m.statusMsg) + "\n"
	}

	if m.showHelp {
		s += m.help.FullHelpView(m.keys.FullHelp())
	} else {
		s += m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return s
}

func (m Model) viewBadge() string {
	if !m.snapshot.ShowBadge {
		return lipgloss.NewStyle().Faint(true).Render("No notifications")
	}
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("11")).
		Padding(0, 1).
		Render(fmt.Sprintf("%d", m.snapshot.Total))
	return badge + " " + fmt.Sprintf("%d %s", m.snapshot.Total, itemsWord(m.snapshot.Total))
}

func itemsWord(n int) string {
	if n == 1 {
		return "item"
	}
	return "items"
}

// IsOpen reports whether the menu is expanded.
func (m Model) IsOpen() bool {
	return m.open
}
