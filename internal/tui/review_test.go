package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck/internal/client"
	"flashdeck/internal/deck"
	"flashdeck/internal/review"
)

type fakeSource struct {
	deck  deck.Deck
	cards []deck.ReconciledCard
	err   error
}

func (f *fakeSource) Deck(context.Context, int64) (deck.Deck, error) { return f.deck, f.err }
func (f *fakeSource) Cards(context.Context, int64) ([]deck.ReconciledCard, error) {
	return f.cards, f.err
}

func speedsters() *fakeSource {
	return &fakeSource{
		deck: deck.Deck{ID: 1, Name: "Speedsters"},
		cards: []deck.ReconciledCard{
			{Card: deck.Card{ID: 1, FrontContent: "The Flash"}, Cells: []deck.Cell{
				{State: deck.Persisted, ValueID: 1, AttributeName: "Secret Identity", Value: "Barry Allen"},
				{State: deck.Unsaved, AttributeName: "Lightning Color"},
			}},
			{Card: deck.Card{ID: 2, FrontContent: "Kid Flash"}, Cells: []deck.Cell{
				{State: deck.Persisted, ValueID: 2, AttributeName: "Secret Identity", Value: "Wally West"},
				{State: deck.Persisted, ValueID: 3, AttributeName: "Lightning Color", Value: "yellow"},
			}},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func loaded(t *testing.T, src *fakeSource) Model {
	t.Helper()
	m := New(context.Background(), src, 1, NewStyles(false))
	msg := m.Init()()
	m, _ = send(t, m, msg)
	return m
}

func TestReviewFlow(t *testing.T) {
	m := loaded(t, speedsters())
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "Speedsters")
	assert.Contains(t, m.View(), "The Flash")

	m, _ = send(t, m, key(" "))
	assert.Equal(t, review.Back, m.session.Side())
	v := m.View()
	assert.Contains(t, v, "Barry Allen")
	assert.Contains(t, v, "(empty)")

	m, _ = send(t, m, key("right"))
	assert.Equal(t, review.Front, m.session.Side())
	assert.Contains(t, m.View(), "Kid Flash")

	m, _ = send(t, m, key("n"))
	assert.Contains(t, m.View(), "The Flash", "wraps to the first card")

	m, _ = send(t, m, key("left"))
	assert.Contains(t, m.View(), "Kid Flash")

	_, cmd := send(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestReloadKeepsPosition(t *testing.T) {
	src := speedsters()
	m := loaded(t, src)
	m, _ = send(t, m, key("n"))

	m, cmd := send(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	m, _ = send(t, m, cmd())
	assert.Equal(t, 1, m.session.Pos())
}

func TestSupersededLoadIsIgnored(t *testing.T) {
	m := loaded(t, speedsters())
	m, _ = send(t, m, loadedMsg{err: client.ErrSuperseded})
	assert.Equal(t, 2, m.session.Len())
	assert.NoError(t, m.err)
}

func TestLoadErrorAndEmptyDeck(t *testing.T) {
	m := loaded(t, &fakeSource{err: client.ErrNotFound})
	assert.Contains(t, m.View(), "Could not load deck")

	m = loaded(t, &fakeSource{deck: deck.Deck{ID: 1, Name: "Empty"}})
	assert.Contains(t, m.View(), "no cards yet")
	m, _ = send(t, m, key(" "))
	assert.Equal(t, review.Front, m.session.Side())
}
