// Package tui provides the Bubble Tea station browser.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

type screen int

const (
	listScreen screen = iota
	searchScreen
	detailScreen
)

// listMsg and detailMsg carry presenter responses back into the event loop.
type (
	listMsg   core.ListResponse
	detailMsg core.DetailResponse
)

const (
	defaultTableHeight = 10
	chromeHeight       = 7
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	messageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Padding(1, 2)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Padding(1, 2)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	metStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	unmetStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	excellentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#52C41A"))
	adequateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAAD14"))
	limitedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F"))
)

var listColumns = []table.Column{
	{Title: "ID", Width: 7},
	{Title: "Station", Width: 16},
	{Title: "Prefecture", Width: 10},
	{Title: "Line", Width: 24},
	{Title: "Score", Width: 7},
	{Title: "Band", Width: 9},
}

// Model implements the Bubble Tea station browser. All presenter state is
// touched from Update only; fetches run as commands.
type Model struct {
	ctx       context.Context
	presenter *core.Presenter

	screen screen
	input  textinput.Model
	table  table.Model

	width  int
	height int
}

// NewModel constructs a browser over presenter. ctx bounds every fetch.
func NewModel(ctx context.Context, presenter *core.Presenter) *Model {
	input := textinput.New()
	input.Placeholder = "station name"
	input.Prompt = "🔍 "
	input.CharLimit = 64
	input.SetValue(presenter.State().Keyword)

	t := table.New(
		table.WithColumns(listColumns),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)

	return &Model{
		ctx:       ctx,
		presenter: presenter,
		input:     input,
		table:     t,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadList()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-chromeHeight, 3))
		return m, nil
	case listMsg:
		if !m.presenter.ApplyList(core.ListResponse(msg)) {
			return m, nil
		}
		m.refreshRows()
		if m.presenter.NeedsRefetch() {
			return m, m.loadList()
		}
		return m, nil
	case detailMsg:
		m.presenter.ApplyDetail(core.DetailResponse(msg))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case searchScreen:
			return m.updateSearch(msg)
		case detailScreen:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.screen = searchScreen
		m.table.Blur()
		return m, m.input.Focus()
	case "n":
		return m, m.navigate(core.NavNext)
	case "p":
		return m, m.navigate(core.NavPrev)
	case "g":
		return m, m.navigate(core.NavFirst)
	case "G":
		return m, m.navigate(core.NavLast)
	case "s":
		m.presenter.CycleSort()
		return m, m.loadList()
	case "r":
		m.presenter.Reset()
		m.input.SetValue("")
		return m, m.loadList()
	case "enter":
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		m.screen = detailScreen
		return m, m.loadDetail(id)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.presenter.SetKeyword(strings.TrimSpace(m.input.Value()))
		m.leaveSearch()
		return m, m.loadList()
	case tea.KeyEsc:
		m.input.SetValue(m.presenter.State().Keyword)
		m.leaveSearch()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = listScreen
	}
	return m, nil
}

func (m *Model) leaveSearch() {
	m.input.Blur()
	m.table.Focus()
	m.screen = listScreen
}

// navigate moves pages only when the control is enabled for the current page.
func (m *Model) navigate(nav core.Nav) tea.Cmd {
	if !m.presenter.Pagination().Enabled(nav) {
		return nil
	}
	m.presenter.Navigate(nav)
	return m.loadList()
}

func (m *Model) loadList() tea.Cmd {
	req, err := m.presenter.BeginList()
	if err != nil {
		m.refreshRows()
		return nil
	}
	ctx, presenter := m.ctx, m.presenter
	return func() tea.Msg {
		return listMsg(presenter.FetchList(ctx, req))
	}
}

func (m *Model) loadDetail(id int64) tea.Cmd {
	req := m.presenter.BeginDetail(id)
	ctx, presenter := m.ctx, m.presenter
	return func() tea.Msg {
		return detailMsg(presenter.FetchDetail(ctx, req))
	}
}

func (m *Model) refreshRows() {
	view := m.presenter.ListView()
	rows := make([]table.Row, len(view.Stations))
	for i, s := range view.Stations {
		rows[i] = table.Row{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.Prefecture,
			s.LineName,
			fmt.Sprintf("%d%%", s.Score.Percentage),
			s.Score.Label,
		}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m *Model) selectedID() (int64, bool) {
	if m.presenter.ListView().State != schema.ResultsState {
		return 0, false
	}
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	return id, err == nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.screen == detailScreen {
		return m.renderDetail()
	}
	return m.renderList()
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	view := m.presenter.ListView()
	switch view.State {
	case schema.ErrorState:
		b.WriteString(errorStyle.Render(view.Message))
	case schema.EmptyState:
		b.WriteString(messageStyle.Render(view.Message))
	case schema.LoadingState:
		if len(view.Stations) == 0 {
			b.WriteString(messageStyle.Render(view.Message))
			break
		}
		b.WriteString(m.table.View())
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) title() string {
	category := m.presenter.Catalog().Category()
	title := fmt.Sprintf("Barrier Navi · %s accessibility", category)
	if session := m.presenter.Session(); session.Authenticated() {
		title += " · " + session.Username
	}
	return title
}

func (m *Model) renderFooter() string {
	state := m.presenter.State()
	pagination := m.presenter.ListView().Pagination
	segments := []string{
		fmt.Sprintf("Page %d/%d", pagination.CurrentPage, pagination.TotalPages()),
		fmt.Sprintf("%d stations", pagination.TotalCount),
		"sort " + string(state.Sort),
	}
	if len(state.Required) > 0 {
		segments = append(segments, fmt.Sprintf("%d filters", len(state.Required)))
	}
	segments = append(segments, "n/p/g/G page · s sort · / search · r reset · enter detail · q quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) renderDetail() string {
	view := m.presenter.DetailView()
	var b strings.Builder
	switch view.State {
	case schema.ResultsState:
		station := view.Station
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s %s)", station.Name, station.Prefecture, station.City)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s · %s\n", station.Operator, station.LineName)
		fmt.Fprintf(&b, "%s %d%% (%s)\n\n", bandStyle(station.Score.Label).Render(station.Score.Label),
			station.Score.Percentage, station.Score.Points)
		for _, metric := range station.Metrics {
			fmt.Fprintf(&b, "  %s %-36s %s\n", metMark(metric.Met), metric.Label, metric.Display)
		}
		for _, mismatch := range view.Mismatches {
			b.WriteString(errorStyle.Render(mismatch.String()))
			b.WriteString("\n")
		}
	case schema.ErrorState:
		b.WriteString(errorStyle.Render(view.Message))
		b.WriteString("\n")
	default:
		b.WriteString(messageStyle.Render(view.Message))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("esc back · q quit"))
	return b.String()
}

func metMark(met bool) string {
	if met {
		return metStyle.Render(contract.MetMark)
	}
	return unmetStyle.Render(contract.UnmetMark)
}

func bandStyle(label string) lipgloss.Style {
	switch label {
	case schema.ExcellentLabel:
		return excellentStyle
	case schema.AdequateLabel:
		return adequateStyle
	default:
		return limitedStyle
	}
}
