package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/soundsync/internal/formatter"
	"github.com/desertthunder/soundsync/internal/models"
	"github.com/desertthunder/soundsync/internal/tasks"
)

// maxLogLines is how many progress messages the sync view keeps on screen.
const maxLogLines = 10

// ViewState represents the current view in the TUI.
type ViewState int

const (
	UserListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// UserLister lists the users shown in [UserListView].
type UserLister interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.User, error)
}

// Syncer runs jobs in the foreground; [tasks.Dispatcher] implements it.
type Syncer interface {
	RunJob(ctx context.Context, job tasks.Job) tasks.JobResult
	RunScheduledSync(ctx context.Context) (*tasks.BatchResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	users    UserLister
	syncer   Syncer
	updates  <-chan tasks.ProgressUpdate
	done     chan syncCompleteMsg
	width    int
	height   int
	userList list.Model
	selected *models.User // nil means every user with a source URL
	current  tasks.ProgressUpdate
	percent  float64
	lines    []string
	bar      progress.Model
	result   syncCompleteMsg
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. updates must be the progress channel the syncer reports to.
func NewModel(ctx context.Context, users UserLister, syncer Syncer, updates <-chan tasks.ProgressUpdate) *Model {
	return &Model{
		ctx:      ctx,
		view:     UserListView,
		users:    users,
		syncer:   syncer,
		updates:  updates,
		userList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		bar:      progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by loading the users.
func (m *Model) Init() tea.Cmd {
	return m.fetchUsers()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.userList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(max(msg.Width-8, 10), 80)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case UserListView:
			return m.handleUserListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case usersFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.users))
		for i, u := range msg.users {
			items[i] = userItem{user: u}
		}
		cmd := m.userList.SetItems(items)
		m.userList.Title = fmt.Sprintf("Users (%d)", len(msg.users))
		return m, cmd

	case progressUpdateMsg:
		m.track(tasks.ProgressUpdate(msg))
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.drainProgress()
		m.result = msg
		m.view = ResultView
		return m, nil
	}

	if m.view == UserListView {
		var cmd tea.Cmd
		m.userList, cmd = m.userList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return formatter.Err(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case UserListView:
		return m.renderUserList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleUserListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.userList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.userList, cmd = m.userList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.all):
		m.selected = nil
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.userList.SelectedItem().(userItem); ok {
			m.selected = item.user
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.userList, cmd = m.userList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = UserListView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = UserListView
		m.selected = nil
		m.result = syncCompleteMsg{}
		m.current = tasks.ProgressUpdate{}
		m.percent = 0
		m.lines = nil
		return m, m.fetchUsers()
	}
	return m, nil
}

func (m *Model) fetchUsers() tea.Cmd {
	return func() tea.Msg {
		users, err := m.users.List(m.ctx, nil)
		return usersFetchedMsg{users: users, err: err}
	}
}

// startSync runs the selected job (or the batch) in the background and starts listening for
// its progress.
func (m *Model) startSync() tea.Cmd {
	m.done = make(chan syncCompleteMsg, 1)
	m.lines = nil
	m.percent = 0

	selected, done := m.selected, m.done
	go func() {
		if selected != nil {
			res := m.syncer.RunJob(m.ctx, tasks.NewJob(selected, selected.SourceURL()))
			done <- syncCompleteMsg{results: []tasks.JobResult{res}}
			return
		}

		batch, err := m.syncer.RunScheduledSync(m.ctx)
		msg := syncCompleteMsg{batch: batch, err: err}
		if batch != nil {
			msg.results = batch.Results
		}
		done <- msg
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		select {
		case update := <-updates:
			return progressUpdateMsg(update)
		case res := <-done:
			return res
		}
	}
}

// drainProgress discards updates still buffered after a job completed.
func (m *Model) drainProgress() {
	for {
		select {
		case update := <-m.updates:
			m.appendLine(update.Message)
		default:
			return
		}
	}
}

// track records update; the bar follows phases for a single job and finished jobs for a batch.
func (m *Model) track(update tasks.ProgressUpdate) {
	m.current = update
	m.appendLine(update.Message)

	if update.Total <= 0 {
		return
	}
	switch {
	case m.selected != nil, update.Phase == tasks.BatchStarted,
		update.Phase == tasks.JobFinished, update.Phase == tasks.BatchFinished:
		m.percent = float64(update.Step) / float64(update.Total)
	}
}

func (m *Model) appendLine(line string) {
	if line == "" {
		return
	}
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func (m *Model) target() string {
	if m.selected == nil {
		return "every user with a source URL"
	}
	return m.selected.Username()
}

func (m *Model) renderUserList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.all, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.userList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := formatter.Title(fmt.Sprintf("Sync %s now?", m.target()))

	info := "\nFetches new items from each source URL, then records new tracks."
	if m.selected != nil {
		source := m.selected.SourceURL()
		if source == "" {
			source = formatter.Warn("not set, the job will be skipped")
		}
		info = fmt.Sprintf("\nSource: %s", source)
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := formatter.Title(fmt.Sprintf("Syncing %s", m.target()))

	var status string
	switch m.current.Phase {
	case tasks.BatchStarted, tasks.JobQueued:
		status = "Queueing jobs..."
	case tasks.Fetching, tasks.FetchEvent:
		status = fmt.Sprintf("Fetching for %s...", m.current.Job.Username)
	case tasks.Scanning:
		status = fmt.Sprintf("Scanning library of %s...", m.current.Job.Username)
	case tasks.UpdatingState:
		status = fmt.Sprintf("Recording sync for %s...", m.current.Job.Username)
	default:
		status = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, status, m.bar.ViewAs(m.percent), formatter.Hint(strings.Join(m.lines, "\n")))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.result.err != nil {
		return fmt.Sprintf("%s\n\n%s", formatter.Err(fmt.Sprintf("Sync failed: %v", m.result.err)), helpView)
	}

	var body string
	if m.result.batch != nil {
		body = formatter.BatchSummary(m.result.batch)
	} else {
		var b strings.Builder
		b.WriteString(formatter.Title("Sync finished"))
		b.WriteString("\n")
		for _, res := range m.result.results {
			b.WriteString(formatter.JobLine(res))
			b.WriteString("\n")
		}
		body = b.String()
	}

	return fmt.Sprintf("%s\n%s", body, helpView)
}
