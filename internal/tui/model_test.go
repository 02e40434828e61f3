package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/tray"
)

type fakeSource struct {
	snap *model.Snapshot
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Snapshot(context.Context) (*model.Snapshot, error) {
	return f.snap, f.err
}

type activation struct {
	snapshotID string
	index      int
}

type fakeController struct {
	activations []activation
	rescans     int
	err         error
}

func (f *fakeController) Activate(_ context.Context, snapshotID string, index int) error {
	f.activations = append(f.activations, activation{snapshotID, index})
	return f.err
}

func (f *fakeController) Rescan(context.Context) error {
	f.rescans++
	return f.err
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		ID:        "snap-1",
		Total:     2,
		ShowBadge: true,
		Items: []model.SnapshotItem{
			{Index: 1, Title: "Alice", DisplayCount: 3},
			{Index: 2, Title: "Inbox", DisplayCount: model.UnknownCount},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func loaded(t *testing.T, ctl Controller, keybinding string) Model {
	t.Helper()
	m := New(&fakeSource{snap: testSnapshot()}, ctl, keybinding, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, m.loadSnapshot())
	return m
}

func TestModel_ToggleWithConfiguredKey(t *testing.T) {
	m := loaded(t, nil, "n")
	assert.False(t, m.IsOpen())

	m, _ = update(t, m, runes("m"))
	assert.False(t, m.IsOpen(), "default key is not bound when another is configured")

	m, cmd := update(t, m, runes("n"))
	assert.True(t, m.IsOpen())
	assert.NotNil(t, cmd, "opening reloads the snapshot")

	m, _ = update(t, m, runes("n"))
	assert.False(t, m.IsOpen())

	m, _ = update(t, m, runes("n"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.IsOpen())
}

func TestModel_ViewShowsBadgeAndItems(t *testing.T) {
	m := loaded(t, nil, "m")

	view := m.View()
	assert.Contains(t, view, "2 items")
	assert.NotContains(t, view, "Alice")

	m, _ = update(t, m, runes("m"))
	view = m.View()
	assert.Contains(t, view, "Alice (3)")
	assert.Contains(t, view, "Inbox")
	assert.NotContains(t, view, "Inbox (")
}

func TestModel_HiddenBadge(t *testing.T) {
	m := New(&fakeSource{snap: model.EmptySnapshot()}, nil, "m", nil)
	m, _ = update(t, m, m.loadSnapshot())
	assert.Contains(t, m.View(), "No notifications")
}

func TestModel_ActivateSelected(t *testing.T) {
	ctl := &fakeController{}
	m := loaded(t, ctl, "m")
	m, _ = update(t, m, runes("m"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, []activation{{"snap-1", 2}}, ctl.activations)

	m, _ = update(t, m, msg)
	assert.False(t, m.IsOpen(), "menu closes after a successful activation")
}

func TestModel_EnterIgnoredWhenClosed(t *testing.T) {
	ctl := &fakeController{}
	m := loaded(t, ctl, "m")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, ctl.activations)
}

func TestModel_StaleActivationReloads(t *testing.T) {
	ctl := &fakeController{err: tray.ErrStaleSnapshot}
	m := loaded(t, ctl, "m")
	m, _ = update(t, m, runes("m"))

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, next := update(t, m, cmd())
	assert.True(t, m.IsOpen())
	assert.NotNil(t, next)
}

func TestModel_NoController(t *testing.T) {
	m := loaded(t, nil, "m")
	m, _ = update(t, m, runes("m"))

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	status, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, status.isErr)
}

func TestModel_Rescan(t *testing.T) {
	ctl := &fakeController{}
	m := loaded(t, ctl, "m")

	_, cmd := update(t, m, runes("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, ctl.rescans)
	assert.Equal(t, rescannedMsg{}, msg)
}

func TestModel_LoadError(t *testing.T) {
	m := New(&fakeSource{err: errors.New("gone")}, nil, "m", nil)
	m, cmd := update(t, m, m.loadSnapshot())
	require.NotNil(t, cmd)

	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "Failed to load: gone")
}

func TestModel_RefreshChannel(t *testing.T) {
	ch := make(chan struct{}, 1)
	m := New(&fakeSource{snap: testSnapshot()}, nil, "m", ch)

	ch <- struct{}{}
	assert.Equal(t, refreshMsg{}, m.watchForChanges())

	close(ch)
	assert.Nil(t, m.watchForChanges())
}

func TestModel_Quit(t *testing.T) {
	m := loaded(t, nil, "m")
	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
