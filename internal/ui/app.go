package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/config"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutations"
	"github.com/Risclover/toby/internal/prefs"
	"github.com/Risclover/toby/internal/querycache"
	"github.com/Risclover/toby/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewBoard View = iota
	ViewShopping
	ViewActivity
)

// BoardSource is the live household board the UI renders.
type BoardSource interface {
	Snapshot() state.Board
	Changes() <-chan struct{}
	SelectShoppingList(listID int64)
}

// Refresher forces a poll outside the regular cadence.
type Refresher interface {
	Refresh() []querycache.Key
}

// Service is the subset of mutations the UI triggers.
type Service interface {
	AddTodo(ctx context.Context, n mutations.NewTodo) (household.Todo, error)
	CompleteTodo(ctx context.Context, ref mutations.TodoRef, completed bool) (household.Todo, error)
	UpdateTodo(ctx context.Context, ref mutations.TodoRef, patch household.TodoPatch) (household.Todo, error)
	DeleteTodo(ctx context.Context, ref mutations.TodoRef) error
	ReorderTodos(ctx context.Context, listID, householdID int64, orderedIDs []int64) error
	AddShoppingItem(ctx context.Context, n mutations.NewShoppingItem) (household.ShoppingItem, error)
	ToggleShoppingItem(ctx context.Context, ref mutations.ItemRef) error
	UpdateShoppingItem(ctx context.Context, ref mutations.ItemRef, patch household.ShoppingItemPatch) error
	DeleteShoppingItem(ctx context.Context, ref mutations.ItemRef) error
	CreateAnnouncement(ctx context.Context, householdID int64, text string, pinned bool) (household.Announcement, error)
	SetMyMood(ctx context.Context, mood household.MoodKey) (household.Mood, error)
	ClearMyMood(ctx context.Context) error
	CheckInToday(ctx context.Context, userID int64) (household.CheckInToday, error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Binding   BoardSource
	Service   Service
	Poller    Refresher
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	source    BoardSource
	svc       Service
	poller    Refresher
	config    config.Config
	prefsPath string
	log       zerolog.Logger
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	focusedPane int // 0 = lists, 1 = entries

	// Data state
	board       state.Board
	lastUpdated time.Time

	// Selection, by id so it survives reordering and refetches
	listID     int64
	todoID     int64
	shopListID int64
	itemID     int64

	// Activity log
	activityViewport viewport.Model
	activity         activityState

	// Overlays
	showHelp bool
	modal    Modal

	// Last action result
	flash    string
	flashErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	view := ViewBoard
	if opts.Prefs.View == prefs.ViewShopping {
		view = ViewShopping
	}

	return Model{
		ctx:         ctx,
		source:      opts.Binding,
		svc:         opts.Service,
		poller:      opts.Poller,
		config:      opts.Config,
		prefsPath:   prefsPath,
		log:         opts.Logger,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: view,
		listID:      opts.Prefs.LastListID,
		shopListID:  opts.Prefs.LastShoppingListID,
		activity:    newActivityState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.source == nil {
		return nil
	}
	return tea.Batch(loadBoardCmd(m.source), waitForBoardCmd(m.ctx, m.source))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.activityViewport = viewport.New(m.width-2, m.contentHeight()-2)
		}
		m.ready = true
		m.updateActivityViewport()
		return m, nil

	case boardMsg:
		return m.handleBoard(state.Board(msg), false)

	case boardChangedMsg:
		return m.handleBoard(state.Board(msg), true)

	case actionMsg:
		m.handleAction(msg)
		return m, nil

	case activityMsg:
		m.handleActivity(msg)
		return m, nil

	case tickMsg:
		if m.currentView != ViewActivity {
			return m, nil
		}
		return m, tea.Batch(m.loadActivity(), tickCmd(activityRefresh))
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) handleBoard(board state.Board, wait bool) (tea.Model, tea.Cmd) {
	prev := m.board
	m.board = board
	m.lastUpdated = time.Now()
	m.clampSelection(prev)

	var cmds []tea.Cmd
	if wait {
		cmds = append(cmds, waitForBoardCmd(m.ctx, m.source))
	}
	if cmd := m.syncShoppingList(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.poller != nil {
			keys := m.poller.Refresh()
			m.setFlash("refreshing "+pluralize(len(keys), "entry", "entries"), false)
		}
		return m, nil

	case key.Matches(msg, m.keys.ViewBoard):
		m.switchView(ViewBoard)
		return m, nil

	case key.Matches(msg, m.keys.ViewShopping):
		m.switchView(ViewShopping)
		return m, m.syncShoppingList()

	case key.Matches(msg, m.keys.ViewActivity):
		m.switchView(ViewActivity)
		return m, tea.Batch(m.loadActivity(), tickCmd(activityRefresh))

	case key.Matches(msg, m.keys.Escape):
		m.switchView(ViewBoard)
		m.flash = ""
		return m, nil

	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.ShiftTab):
		if m.currentView != ViewActivity {
			m.focusedPane = 1 - m.focusedPane
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleMood):
		return m, m.cycleMood()

	case key.Matches(msg, m.keys.ClearMood):
		return m, m.clearMood()

	case key.Matches(msg, m.keys.CheckIn):
		return m, m.checkIn()

	case key.Matches(msg, m.keys.Announce):
		m.openPrompt("New announcement", "", m.announce)
		return m, m.modal.Init()
	}

	switch m.currentView {
	case ViewBoard:
		return m.handleBoardKey(msg)
	case ViewShopping:
		return m.handleShoppingKey(msg)
	case ViewActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

func (m *Model) switchView(v View) {
	if m.currentView == v {
		return
	}
	m.currentView = v
	m.focusedPane = 0
	if v != ViewActivity {
		m.savePrefs()
	}
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd, done := m.modal.Update(msg, m.keys)
	if done {
		m.modal = nil
	} else {
		m.modal = next
	}
	return m, cmd
}

// savePrefs persists the theme, view and selections.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{
		Theme:              m.theme.Name,
		View:               prefs.ViewBoard,
		LastListID:         m.listID,
		LastShoppingListID: m.shopListID,
	}
	if m.currentView == ViewShopping {
		p.View = prefs.ViewShopping
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Str("path", m.prefsPath).Msg("save prefs")
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// contentHeight is the height left for the active view.
func (m Model) contentHeight() int {
	return max(m.height-3, 3) // header, command bar, footer
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	return m.renderHeader() + "\n" +
		m.renderCommandBar() + "\n" +
		m.renderContent() + "\n" +
		m.renderFooter()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewShopping:
		return m.renderShopping()
	case ViewActivity:
		return m.renderActivity()
	default:
		return m.renderBoard()
	}
}

// Messages

type tickMsg time.Time

// boardMsg is the initial snapshot; boardChangedMsg follows a change signal.
type boardMsg state.Board

type boardChangedMsg state.Board

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadBoardCmd(src BoardSource) tea.Cmd {
	return func() tea.Msg {
		return boardMsg(src.Snapshot())
	}
}

// waitForBoardCmd blocks until the binding signals a change. It yields nil
// once ctx is done, which ends the wait loop.
func waitForBoardCmd(ctx context.Context, src BoardSource) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-src.Changes():
			return boardChangedMsg(src.Snapshot())
		}
	}
}

// Run starts the Bubble Tea program and saves preferences on exit.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.savePrefs()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
