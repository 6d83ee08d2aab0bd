package deck

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// deleteDeckTree removes a deck and everything referencing it, children
// first: attribute values, then attribute types, then cards, then the deck.
// A deck with no rows (or no deck at all) is a no-op.
func deleteDeckTree(tx *gorm.DB, deckID int64) error {
	cardIDs := tx.Model(&Card{}).Select("id").Where("deck_id = ?", deckID)
	typeIDs := tx.Model(&AttributeType{}).Select("id").Where("deck_id = ?", deckID)

	if err := tx.Where("card_id IN (?) OR deck_attribute_type_id IN (?)", cardIDs, typeIDs).
		Delete(&AttributeValue{}).Error; err != nil {
		return errors.Wrapf(err, "delete attribute values of deck %d", deckID)
	}
	if err := tx.Where("deck_id = ?", deckID).Delete(&AttributeType{}).Error; err != nil {
		return errors.Wrapf(err, "delete attribute types of deck %d", deckID)
	}
	if err := tx.Where("deck_id = ?", deckID).Delete(&Card{}).Error; err != nil {
		return errors.Wrapf(err, "delete cards of deck %d", deckID)
	}
	if err := tx.Where("id = ?", deckID).Delete(&Deck{}).Error; err != nil {
		return errors.Wrapf(err, "delete deck %d", deckID)
	}
	return nil
}

// DeleteDecksOwnedBy cascades every deck owned by userID, one transaction
// per deck, and returns how many decks were removed. A user without decks
// is a no-op.
func (s *Service) DeleteDecksOwnedBy(ctx context.Context, userID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.DeleteDecksOwnedBy")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	var ids []int64
	if err := s.DB.WithContext(ctx).Model(&Deck{}).Where("user_id = ?", userID).
		Order("id").Pluck("id", &ids).Error; err != nil {
		span.RecordError(err)
		return 0, errors.Wrapf(err, "list decks of user %s", userID)
	}
	return s.deleteTrees(ctx, ids)
}

// DeleteAllDecks cascades every deck in the store, owned or orphaned.
func (s *Service) DeleteAllDecks(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.DeleteAllDecks")
	defer span.End()

	var ids []int64
	if err := s.DB.WithContext(ctx).Model(&Deck{}).Order("id").Pluck("id", &ids).Error; err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "list decks")
	}
	return s.deleteTrees(ctx, ids)
}

func (s *Service) deleteTrees(ctx context.Context, ids []int64) (int, error) {
	deleted := 0
	for _, id := range ids {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return deleteDeckTree(tx, id)
		})
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
