package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck/internal/dbtest"
)

const (
	alice = "6f1d1c7e-1b0a-4a55-9d43-8a3f7f0b6a01"
	bob   = "0c9e4b52-2d6f-4c1e-8e0b-2f9b1d7c3e02"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return &Service{DB: dbtest.Open(t, Models()...)}
}

func texts(cells []Cell) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.Value)
	}
	return out
}

func TestDeckLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	d, err := s.CreateDeck(ctx, alice, "  Chrono Trigger ")
	require.NoError(t, err)
	assert.Equal(t, "Chrono Trigger", d.Name)
	require.NotNil(t, d.UserID)
	assert.Equal(t, alice, *d.UserID)

	_, err = s.CreateDeck(ctx, alice, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	t.Run("rename is visible under the new name only", func(t *testing.T) {
		renamed, err := s.RenameDeck(ctx, alice, d.ID, "Chrono Cross")
		require.NoError(t, err)
		assert.Equal(t, "Chrono Cross", renamed.Name)

		decks, err := s.ListDecks(ctx, alice)
		require.NoError(t, err)
		var names []string
		for _, x := range decks {
			names = append(names, x.Name)
		}
		assert.Contains(t, names, "Chrono Cross")
		assert.NotContains(t, names, "Chrono Trigger")
	})

	t.Run("other users cannot see or change it", func(t *testing.T) {
		_, err := s.GetDeck(ctx, bob, d.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.RenameDeck(ctx, bob, d.ID, "Mine now")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteDeck(ctx, bob, d.ID), ErrNotFound)

		decks, err := s.ListDecks(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, decks)
	})
}

func TestAttributeTypes(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	d, err := s.CreateDeck(ctx, alice, "Speedsters")
	require.NoError(t, err)

	first, err := s.AddAttributeType(ctx, alice, d.ID, "Secret Identity", "")
	require.NoError(t, err)
	assert.Equal(t, KindText, first.AttributeType)
	assert.Equal(t, 0, first.DisplayOrder)

	second, err := s.AddAttributeType(ctx, alice, d.ID, "Portrait", KindImage)
	require.NoError(t, err)
	assert.Equal(t, 1, second.DisplayOrder)

	_, err = s.AddAttributeType(ctx, alice, d.ID, "Secret Identity", KindText)
	assert.ErrorIs(t, err, ErrDuplicateAttribute)

	_, err = s.AddAttributeType(ctx, alice, d.ID, "Speed", Kind("number"))
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = s.AddAttributeType(ctx, bob, d.ID, "Speed", KindText)
	assert.ErrorIs(t, err, ErrNotFound)

	types, err := s.ListAttributeTypes(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Secret Identity", types[0].AttributeName)
	assert.Equal(t, "Portrait", types[1].AttributeName)
}

func TestSpeedstersScenario(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	d, err := s.CreateDeck(ctx, alice, "Speedsters")
	require.NoError(t, err)
	identity, err := s.AddAttributeType(ctx, alice, d.ID, "Secret Identity", KindText)
	require.NoError(t, err)

	flash, err := s.CreateCard(ctx, alice, d.ID, CardInput{
		FrontContent: "The Flash",
		Values:       map[int64]string{identity.ID: "Barry Allen"},
	})
	require.NoError(t, err)
	require.Len(t, flash.Cells, 1)
	assert.Equal(t, "Barry Allen", flash.Cells[0].Value)

	color, err := s.AddAttributeType(ctx, alice, d.ID, "Lightning Color", KindText)
	require.NoError(t, err)

	kidFlash, err := s.CreateCard(ctx, alice, d.ID, CardInput{
		FrontContent: "Kid Flash",
		Values:       map[int64]string{identity.ID: "Wally West", color.ID: "yellow"},
	})
	require.NoError(t, err)

	cards, err := s.ListCards(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "The Flash", cards[0].FrontContent)
	require.Len(t, cards[0].Cells, 2)
	assert.Equal(t, []string{"Barry Allen", ""}, texts(cards[0].Cells))
	assert.True(t, cards[0].Cells[0].Persisted())
	assert.False(t, cards[0].Cells[1].Persisted())
	assert.Equal(t, "Lightning Color", cards[0].Cells[1].AttributeName)

	assert.Equal(t, kidFlash.ID, cards[1].ID)
	assert.Equal(t, []string{"Wally West", "yellow"}, texts(cards[1].Cells))
	assert.Equal(t, "Lightning Color", cards[1].Cells[1].AttributeName)
	assert.True(t, cards[1].Cells[0].Persisted())
	assert.True(t, cards[1].Cells[1].Persisted())
	assert.NotZero(t, cards[1].Cells[1].ValueID)

	t.Run("filling the blank persists it", func(t *testing.T) {
		updated, err := s.UpdateCard(ctx, alice, d.ID, flash.ID, CardInput{
			FrontContent: "The Flash",
			Values:       map[int64]string{color.ID: "red"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Barry Allen", "red"}, texts(updated.Cells))
		assert.True(t, updated.Cells[1].Persisted())
		assert.Equal(t, int64(3), dbtest.Count(t, s.DB, &AttributeValue{}))
	})

	t.Run("unknown attribute ids are rejected", func(t *testing.T) {
		_, err := s.CreateCard(ctx, alice, d.ID, CardInput{
			FrontContent: "Reverse Flash",
			Values:       map[int64]string{color.ID + 100: "red"},
		})
		assert.ErrorIs(t, err, ErrUnknownAttribute)
	})

	t.Run("removing an attribute drops its values", func(t *testing.T) {
		require.NoError(t, s.RemoveAttributeType(ctx, alice, d.ID, color.ID))
		cards, err := s.ListCards(ctx, alice, d.ID)
		require.NoError(t, err)
		for _, c := range cards {
			require.Len(t, c.Cells, 1)
		}
		assert.Equal(t, int64(2), dbtest.Count(t, s.DB, &AttributeValue{}))
		assert.ErrorIs(t, s.RemoveAttributeType(ctx, alice, d.ID, color.ID), ErrNotFound)
	})
}

func TestCardOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	d, err := s.CreateDeck(ctx, alice, "Order")
	require.NoError(t, err)
	at, err := s.AddAttributeType(ctx, alice, d.ID, "Back", KindText)
	require.NoError(t, err)

	var ids []int64
	for i, front := range []string{"one", "two", "three"} {
		c, err := s.CreateCard(ctx, alice, d.ID, CardInput{
			FrontContent: front,
			Values:       map[int64]string{at.ID: front + "-back"},
		})
		require.NoError(t, err)
		assert.Equal(t, i, c.DisplayOrder)
		ids = append(ids, c.ID)
	}

	require.NoError(t, s.DeleteCard(ctx, alice, d.ID, ids[1]))
	assert.ErrorIs(t, s.DeleteCard(ctx, alice, d.ID, ids[1]), ErrNotFound)

	cards, err := s.ListCards(ctx, alice, d.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "one", cards[0].FrontContent)
	assert.Equal(t, "three", cards[1].FrontContent)
	assert.Equal(t, int64(2), dbtest.Count(t, s.DB, &AttributeValue{}))

	_, err = s.UpdateCard(ctx, alice, d.ID, ids[1], CardInput{FrontContent: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedDeck(t *testing.T, s *Service, owner, name string, attrs, cards int) Deck {
	t.Helper()
	ctx := context.Background()
	d, err := s.CreateDeck(ctx, owner, name)
	require.NoError(t, err)

	values := map[int64]string{}
	for i := 0; i < attrs; i++ {
		at, err := s.AddAttributeType(ctx, owner, d.ID, "attr-"+string(rune('a'+i)), KindText)
		require.NoError(t, err)
		values[at.ID] = "v"
	}
	for i := 0; i < cards; i++ {
		_, err := s.CreateCard(ctx, owner, d.ID, CardInput{FrontContent: "card", Values: values})
		require.NoError(t, err)
	}
	return d
}

func TestDeleteDeckCascades(t *testing.T) {
	cases := []struct {
		name         string
		attrs, cards int
	}{
		{"empty deck", 0, 0},
		{"one of each", 1, 1},
		{"many", 3, 4},
		{"attributes without cards", 2, 0},
		{"cards without attributes", 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := newService(t)
			keep := seedDeck(t, s, alice, "keep", 2, 2)
			gone := seedDeck(t, s, alice, "gone", tc.attrs, tc.cards)

			require.NoError(t, s.DeleteDeck(ctx, alice, gone.ID))

			_, err := s.GetDeck(ctx, alice, gone.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, int64(1), dbtest.Count(t, s.DB, &Deck{}))
			assert.Equal(t, int64(2), dbtest.Count(t, s.DB, &AttributeType{}))
			assert.Equal(t, int64(2), dbtest.Count(t, s.DB, &Card{}))
			assert.Equal(t, int64(4), dbtest.Count(t, s.DB, &AttributeValue{}))

			cards, err := s.ListCards(ctx, alice, keep.ID)
			require.NoError(t, err)
			assert.Len(t, cards, 2)
		})
	}
}

func TestDeleteDecksOwnedBy(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	seedDeck(t, s, alice, "a1", 2, 3)
	seedDeck(t, s, alice, "a2", 0, 0)
	bobs := seedDeck(t, s, bob, "b1", 1, 2)

	n, err := s.DeleteDecksOwnedBy(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	decks, err := s.ListDecks(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, decks)

	cards, err := s.ListCards(ctx, bob, bobs.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, int64(2), dbtest.Count(t, s.DB, &AttributeValue{}))

	t.Run("second run is a no-op", func(t *testing.T) {
		n, err := s.DeleteDecksOwnedBy(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("global teardown removes the rest", func(t *testing.T) {
		n, err := s.DeleteAllDecks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		for _, m := range Models() {
			assert.Zero(t, dbtest.Count(t, s.DB, m))
		}
	})
}

func TestForeignKeysAreEnforced(t *testing.T) {
	s := newService(t)
	d := seedDeck(t, s, alice, "fk", 1, 1)

	err := s.DB.Where("id = ?", d.ID).Delete(&Deck{}).Error
	assert.Error(t, err, "a deck with children cannot be deleted directly")
}
