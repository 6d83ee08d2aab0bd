package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck/internal/dbtest"
	"flashdeck/internal/deck"
)

func cards(fronts ...string) []deck.ReconciledCard {
	out := make([]deck.ReconciledCard, len(fronts))
	for i, f := range fronts {
		out[i] = deck.ReconciledCard{Card: deck.Card{ID: int64(i + 1), FrontContent: f, DisplayOrder: i}}
	}
	return out
}

func front(t *testing.T, s *Session) string {
	t.Helper()
	c, ok := s.Current()
	require.True(t, ok)
	return c.FrontContent
}

func TestEmptySession(t *testing.T) {
	s := NewSession(nil)
	_, ok := s.Current()
	assert.False(t, ok)

	s.Next()
	s.Prev()
	s.Flip()
	s.Seek(3)
	assert.Equal(t, 0, s.Pos())
	assert.Equal(t, Front, s.Side())
}

func TestCycleWraps(t *testing.T) {
	s := NewSession(cards("one", "two", "three"))
	assert.Equal(t, "one", front(t, s))

	s.Next()
	assert.Equal(t, "two", front(t, s))
	s.Next()
	assert.Equal(t, "three", front(t, s))
	s.Next()
	assert.Equal(t, "one", front(t, s))

	s.Prev()
	assert.Equal(t, "three", front(t, s))

	s.Seek(-4)
	assert.Equal(t, "three", front(t, s))
	s.Seek(7)
	assert.Equal(t, "two", front(t, s))
}

func TestFlipResetsOnMove(t *testing.T) {
	s := NewSession(cards("one", "two"))
	s.Flip()
	assert.Equal(t, Back, s.Side())
	s.Flip()
	assert.Equal(t, Front, s.Side())

	s.Reveal()
	s.Next()
	assert.Equal(t, Front, s.Side())
	assert.Equal(t, "front", s.Side().String())
}

func TestReviewStoredDeck(t *testing.T) {
	ctx := context.Background()
	const owner = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	svc := &deck.Service{DB: dbtest.Open(t, deck.Models()...)}

	d, err := svc.CreateDeck(ctx, owner, "Speedsters")
	require.NoError(t, err)
	identity, err := svc.AddAttributeType(ctx, owner, d.ID, "Secret Identity", deck.KindText)
	require.NoError(t, err)
	color, err := svc.AddAttributeType(ctx, owner, d.ID, "Lightning Color", deck.KindText)
	require.NoError(t, err)

	for _, c := range []struct{ front, who, color string }{
		{"The Flash", "Barry Allen", "yellow"},
		{"Kid Flash", "Wally West", "yellow"},
		{"Reverse Flash", "Eobard Thawne", "red"},
	} {
		_, err := svc.CreateCard(ctx, owner, d.ID, deck.CardInput{
			FrontContent: c.front,
			Values:       map[int64]string{identity.ID: c.who, color.ID: c.color},
		})
		require.NoError(t, err)
	}

	list, err := svc.ListCards(ctx, owner, d.ID)
	require.NoError(t, err)
	s := NewSession(list)

	var seen []string
	for i := 0; i < 4; i++ {
		seen = append(seen, front(t, s))
		s.Next()
	}
	assert.Equal(t, []string{"The Flash", "Kid Flash", "Reverse Flash", "The Flash"}, seen)

	c, _ := s.Current()
	require.Len(t, c.Cells, 2)
	assert.Equal(t, "Wally West", c.Cells[0].Value)
}
