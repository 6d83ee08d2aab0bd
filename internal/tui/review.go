// Package tui is the terminal flip-and-cycle review view.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"flashdeck/internal/client"
	"flashdeck/internal/deck"
	"flashdeck/internal/review"
)

// Source loads a deck and its reconciled cards. *client.Client satisfies it.
type Source interface {
	Deck(ctx context.Context, id int64) (deck.Deck, error)
	Cards(ctx context.Context, deckID int64) ([]deck.ReconciledCard, error)
}

type deckData struct {
	Deck  deck.Deck
	Cards []deck.ReconciledCard
}

type loadedMsg struct {
	data deckData
	err  error
}

type Model struct {
	ctx    context.Context
	deckID int64
	loader *client.Loader[int64, deckData]
	styles Styles

	deck    deck.Deck
	session *review.Session
	loading bool
	err     error
}

func New(ctx context.Context, src Source, deckID int64, styles Styles) Model {
	loader := client.NewLoader(func(ctx context.Context, id int64) (deckData, error) {
		d, err := src.Deck(ctx, id)
		if err != nil {
			return deckData{}, err
		}
		cards, err := src.Cards(ctx, id)
		if err != nil {
			return deckData{}, err
		}
		return deckData{Deck: d, Cards: cards}, nil
	})
	return Model{
		ctx:     ctx,
		deckID:  deckID,
		loader:  loader,
		styles:  styles,
		session: review.NewSession(nil),
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	loader, ctx, id := m.loader, m.ctx, m.deckID
	return func() tea.Msg {
		data, err := loader.Load(ctx, id)
		return loadedMsg{data: data, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if errors.Is(msg.err, client.ErrSuperseded) {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			pos := m.session.Pos()
			m.deck = msg.data.Deck
			m.session = review.NewSession(msg.data.Cards)
			m.session.Seek(pos)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.loader.Cancel()
			return m, tea.Quit
		case " ", "enter", "f":
			m.session.Flip()
		case "right", "n", "l":
			m.session.Next()
		case "left", "p", "h":
			m.session.Prev()
		case "r":
			m.loading = true
			return m, m.load()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	title := m.deck.Name
	if title == "" {
		title = fmt.Sprintf("deck %d", m.deckID)
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Could not load deck: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Status.Render("r retry • q quit"))
		return b.String()
	case m.loading && m.session.Len() == 0:
		b.WriteString(m.styles.Status.Render("Loading…"))
		return b.String()
	}

	card, ok := m.session.Current()
	if !ok {
		b.WriteString(m.styles.Status.Render("This deck has no cards yet."))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Status.Render("r reload • q quit"))
		return b.String()
	}

	b.WriteString(m.styles.Card.Render(m.face(card)))
	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(fmt.Sprintf("%d/%d • %s • space flip • ←/→ move • r reload • q quit",
		m.session.Pos()+1, m.session.Len(), m.session.Side())))
	return b.String()
}

func (m Model) face(card deck.ReconciledCard) string {
	if m.session.Side() == review.Front {
		return lipgloss.NewStyle().Bold(true).Render(card.FrontContent)
	}
	lines := make([]string, 0, len(card.Cells)+1)
	for _, c := range card.Cells {
		v := m.styles.Value.Render(c.Value)
		if !c.Persisted() || c.Value == "" {
			v = m.styles.Blank.Render("(empty)")
		}
		lines = append(lines, m.styles.Label.Render(c.AttributeName+": ")+v)
	}
	if card.Notes != nil && *card.Notes != "" {
		lines = append(lines, "", m.styles.Label.Render(*card.Notes))
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Blank.Render("(no attributes)"))
	}
	return strings.Join(lines, "\n")
}
