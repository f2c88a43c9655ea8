package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stationPage(total int, ids ...int64) schema.StationPage {
	stations := make([]schema.StationSummary, len(ids))
	for i, id := range ids {
		stations[i] = schema.StationSummary{
			ID:         id,
			Name:       fmt.Sprintf("駅%d", id),
			Prefecture: "東京都",
			Score:      schema.ScoreSummary{MetItems: 3, TotalItems: 4, Percentage: 75},
		}
	}
	return schema.StationPage{Stations: stations, Count: len(stations), TotalCount: total}
}

func offsetIs(offset int) any {
	return mock.MatchedBy(func(q schema.StationQuery) bool { return q.Offset == offset })
}

func newTestModel(t *testing.T, api contract.StationAPI) *Model {
	t.Helper()
	catalog, err := core.CatalogFor(schema.HearingCategory)
	require.NoError(t, err)
	presenter := core.NewPresenter(api, catalog, 2, schema.Session{LoggedIn: true, UserID: 3, Username: "hanako"})
	return NewModel(context.Background(), presenter)
}

// run feeds msg to the model and keeps executing the commands it returns,
// the way the Bubble Tea runtime would. Keys that start cursor blinking are
// sent with Update directly instead.
func run(m *Model, msg tea.Msg) {
	for msg != nil {
		_, cmd := m.Update(msg)
		if cmd == nil {
			return
		}
		msg = cmd()
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel_InitLoadsFirstPage(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, offsetIs(0)).Return(stationPage(5, 1, 2), nil)

	m := newTestModel(t, api)
	assert.Contains(t, m.View(), core.LoadingMessage)

	run(m, m.Init()())

	view := m.View()
	assert.Contains(t, view, "駅1")
	assert.Contains(t, view, "75%")
	assert.Contains(t, view, schema.AdequateLabel)
	assert.Contains(t, view, "Page 1/3")
	assert.Contains(t, view, "hearing accessibility")
	assert.Contains(t, view, "hanako")
	api.AssertExpectations(t)
}

func TestModel_Navigation(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, offsetIs(0)).Return(stationPage(5, 1, 2), nil)
	api.On("ListStations", mock.Anything, offsetIs(2)).Return(stationPage(5, 3, 4), nil)
	api.On("ListStations", mock.Anything, offsetIs(4)).Return(stationPage(5, 5), nil)

	m := newTestModel(t, api)
	run(m, m.Init()())

	tests := []struct {
		key      string
		wantPage string
		wantName string
	}{
		{"n", "Page 2/3", "駅3"},
		{"G", "Page 3/3", "駅5"},
		{"n", "Page 3/3", "駅5"},
		{"p", "Page 2/3", "駅3"},
		{"g", "Page 1/3", "駅1"},
		{"p", "Page 1/3", "駅1"},
	}
	for _, tt := range tests {
		run(m, key(tt.key))
		view := m.View()
		assert.Contains(t, view, tt.wantPage, "after %q", tt.key)
		assert.Contains(t, view, tt.wantName, "after %q", tt.key)
	}
}

func TestModel_SortAndSearch(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, mock.MatchedBy(func(q schema.StationQuery) bool {
		return q.Keyword == "" && q.Sort == schema.SortNone
	})).Return(stationPage(2, 1, 2), nil)
	api.On("ListStations", mock.Anything, mock.MatchedBy(func(q schema.StationQuery) bool {
		return q.Sort == schema.SortScoreDesc && q.Keyword == ""
	})).Return(stationPage(2, 2, 1), nil)
	api.On("ListStations", mock.Anything, mock.MatchedBy(func(q schema.StationQuery) bool {
		return q.Keyword == "新宿"
	})).Return(schema.StationPage{}, nil)

	m := newTestModel(t, api)
	run(m, m.Init()())

	run(m, key("s"))
	assert.Equal(t, schema.SortScoreDesc, m.presenter.State().Sort)
	assert.Contains(t, m.View(), "sort score-desc")

	m.Update(key("/"))
	assert.Equal(t, searchScreen, m.screen)
	m.Update(key("新宿"))
	run(m, key("enter"))
	assert.Equal(t, listScreen, m.screen)
	assert.Equal(t, "新宿", m.presenter.State().Keyword)
	assert.Contains(t, m.View(), core.EmptyMessage)

	t.Run("escape keeps the previous keyword", func(t *testing.T) {
		m.Update(key("/"))
		m.Update(key("x"))
		m.Update(key("esc"))
		assert.Equal(t, listScreen, m.screen)
		assert.Equal(t, "新宿", m.presenter.State().Keyword)
		assert.Equal(t, "新宿", m.input.Value())
	})
}

func TestModel_Detail(t *testing.T) {
	detail := schema.StationDetail{
		StationSummary: schema.StationSummary{ID: 1, Name: "駅1", Prefecture: "東京都", City: "千代田区"},
		Metrics: []schema.MetricObservation{
			{Key: "has_guidance_system", RawValue: schema.Known(1), Met: true},
			{Key: "has_accessible_gate", RawValue: schema.Known(0), Met: false},
		},
	}
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, mock.Anything).Return(stationPage(2, 1, 2), nil)
	api.On("GetStation", mock.Anything, schema.HearingCategory, int64(1), mock.Anything).Return(detail, nil)

	m := newTestModel(t, api)
	run(m, m.Init()())

	run(m, key("enter"))
	assert.Equal(t, detailScreen, m.screen)
	view := m.View()
	assert.Contains(t, view, "駅1 (東京都 千代田区)")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, contract.MetMark)
	assert.Contains(t, view, contract.UnmetMark)

	run(m, key("esc"))
	assert.Equal(t, listScreen, m.screen)
	api.AssertExpectations(t)
}

func TestModel_ErrorsAreShown(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, mock.Anything).
		Return(schema.StationPage{}, &schema.APIError{Status: 500, Message: "database is locked"})

	m := newTestModel(t, api)
	run(m, m.Init()())

	assert.Contains(t, m.View(), "database is locked")

	_, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd, "no detail without results")
	assert.Equal(t, listScreen, m.screen)
}

func TestModel_DropsStaleResponses(t *testing.T) {
	api := &contract.MockStationAPI{}
	api.On("ListStations", mock.Anything, offsetIs(0)).Return(stationPage(5, 1, 2), nil)
	api.On("ListStations", mock.Anything, offsetIs(2)).Return(stationPage(5, 3, 4), nil)

	m := newTestModel(t, api)
	run(m, m.Init()())

	_, first := m.Update(key("n"))
	_, second := m.Update(key("g"))
	require.NotNil(t, first)
	require.NotNil(t, second)

	m.Update(second())
	m.Update(first())
	assert.Contains(t, m.View(), "駅1")
	assert.NotContains(t, m.View(), "駅3")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &contract.MockStationAPI{})

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
