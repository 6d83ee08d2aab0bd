package deck

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const maxNameLen = 200

var tracer = otel.Tracer("deck")

// Service owns decks, their attribute schemas and cards. Every operation
// taking a userID only touches rows of decks that user owns.
type Service struct {
	DB *gorm.DB
}

type CardInput struct {
	FrontContent string
	Notes        *string
	// Values maps attribute type id to value. Missing ids are left as-is.
	Values map[int64]string
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func (s *Service) ListDecks(ctx context.Context, userID string) ([]Deck, error) {
	var decks []Deck
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&decks).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list decks of user %s", userID)
	}
	return decks, nil
}

func (s *Service) CreateDeck(ctx context.Context, userID, name string) (Deck, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.CreateDeck")
	defer span.End()

	name, err := cleanName(name)
	if err != nil {
		return Deck{}, err
	}
	d := Deck{Name: name, UserID: &userID}
	if err := s.DB.WithContext(ctx).Create(&d).Error; err != nil {
		span.RecordError(err)
		return Deck{}, errors.Wrap(err, "create deck")
	}
	return d, nil
}

func (s *Service) GetDeck(ctx context.Context, userID string, deckID int64) (Deck, error) {
	return s.ownedDeck(s.DB.WithContext(ctx), userID, deckID)
}

func (s *Service) ownedDeck(tx *gorm.DB, userID string, deckID int64) (Deck, error) {
	var d Deck
	if err := tx.Where("id = ? AND user_id = ?", deckID, userID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Deck{}, ErrNotFound
		}
		return Deck{}, errors.Wrapf(err, "load deck %d", deckID)
	}
	return d, nil
}

func (s *Service) RenameDeck(ctx context.Context, userID string, deckID int64, name string) (Deck, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.RenameDeck")
	defer span.End()
	span.SetAttributes(attribute.Int64("deck_id", deckID))

	name, err := cleanName(name)
	if err != nil {
		return Deck{}, err
	}

	var d Deck
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if d, err = s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		d.Name = name
		d.UpdatedAt = time.Now()
		return tx.Model(&Deck{}).Where("id = ?", d.ID).
			Updates(map[string]any{"name": d.Name, "updated_at": d.UpdatedAt}).Error
	})
	if err != nil {
		span.RecordError(err)
		return Deck{}, err
	}
	return d, nil
}

// DeleteDeck removes an owned deck and every row depending on it.
func (s *Service) DeleteDeck(ctx context.Context, userID string, deckID int64) error {
	ctx, span := tracer.Start(ctx, "Deck.Service.DeleteDeck")
	defer span.End()
	span.SetAttributes(attribute.Int64("deck_id", deckID))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		return deleteDeckTree(tx, deckID)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Service) ListAttributeTypes(ctx context.Context, userID string, deckID int64) ([]AttributeType, error) {
	tx := s.DB.WithContext(ctx)
	if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
		return nil, err
	}
	return attributeTypes(tx, deckID)
}

func attributeTypes(tx *gorm.DB, deckID int64) ([]AttributeType, error) {
	var types []AttributeType
	if err := tx.Where("deck_id = ?", deckID).Order("display_order, id").Find(&types).Error; err != nil {
		return nil, errors.Wrapf(err, "list attribute types of deck %d", deckID)
	}
	return types, nil
}

// AddAttributeType appends a column to the deck schema. Existing cards get
// no stored value; reconciliation shows them a blank cell.
func (s *Service) AddAttributeType(ctx context.Context, userID string, deckID int64, name string, kind Kind) (AttributeType, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.AddAttributeType")
	defer span.End()

	name, err := cleanName(name)
	if err != nil {
		return AttributeType{}, err
	}
	if kind == "" {
		kind = KindText
	}
	if !kind.Valid() {
		return AttributeType{}, ErrInvalidKind
	}

	var at AttributeType
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&AttributeType{}).
			Where("deck_id = ? AND attribute_name = ?", deckID, name).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateAttribute
		}

		next, err := nextOrder(tx, &AttributeType{}, deckID)
		if err != nil {
			return err
		}
		at = AttributeType{DeckID: deckID, AttributeName: name, AttributeType: kind, DisplayOrder: next}
		if err := tx.Create(&at).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateAttribute
			}
			return errors.Wrap(err, "create attribute type")
		}
		return touchDeck(tx, deckID)
	})
	if err != nil {
		span.RecordError(err)
		return AttributeType{}, err
	}
	return at, nil
}

// RemoveAttributeType deletes the column and every value stored for it.
func (s *Service) RemoveAttributeType(ctx context.Context, userID string, deckID, attrID int64) error {
	ctx, span := tracer.Start(ctx, "Deck.Service.RemoveAttributeType")
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND deck_id = ?", attrID, deckID).Limit(1).Find(&AttributeType{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("deck_attribute_type_id = ?", attrID).Delete(&AttributeValue{}).Error; err != nil {
			return errors.Wrapf(err, "delete values of attribute %d", attrID)
		}
		if err := tx.Where("id = ?", attrID).Delete(&AttributeType{}).Error; err != nil {
			return errors.Wrapf(err, "delete attribute %d", attrID)
		}
		return touchDeck(tx, deckID)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// ListCards returns the deck's cards in display order, each reconciled
// against the deck's attribute schema.
func (s *Service) ListCards(ctx context.Context, userID string, deckID int64) ([]ReconciledCard, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.ListCards")
	defer span.End()
	span.SetAttributes(attribute.Int64("deck_id", deckID))

	tx := s.DB.WithContext(ctx)
	if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
		return nil, err
	}
	types, err := attributeTypes(tx, deckID)
	if err != nil {
		return nil, err
	}

	var cards []Card
	if err := tx.Preload("Values").
		Where("deck_id = ?", deckID).
		Order("display_order, id").
		Find(&cards).Error; err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "list cards of deck %d", deckID)
	}

	out, err := ReconcileAll(types, cards)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (s *Service) GetCard(ctx context.Context, userID string, deckID, cardID int64) (ReconciledCard, error) {
	tx := s.DB.WithContext(ctx)
	if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
		return ReconciledCard{}, err
	}
	return loadReconciled(tx, deckID, cardID)
}

func loadReconciled(tx *gorm.DB, deckID, cardID int64) (ReconciledCard, error) {
	types, err := attributeTypes(tx, deckID)
	if err != nil {
		return ReconciledCard{}, err
	}
	var c Card
	if err := tx.Preload("Values").Where("id = ? AND deck_id = ?", cardID, deckID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReconciledCard{}, ErrNotFound
		}
		return ReconciledCard{}, errors.Wrapf(err, "load card %d", cardID)
	}
	cells, err := Reconcile(types, c)
	if err != nil {
		return ReconciledCard{}, err
	}
	c.Values = nil
	return ReconciledCard{Card: c, Cells: cells}, nil
}

func (s *Service) CreateCard(ctx context.Context, userID string, deckID int64, in CardInput) (ReconciledCard, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.CreateCard")
	defer span.End()

	front := strings.TrimSpace(in.FrontContent)
	if front == "" {
		return ReconciledCard{}, ErrInvalidName
	}

	var out ReconciledCard
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		if err := checkAttributes(tx, deckID, in.Values); err != nil {
			return err
		}
		next, err := nextOrder(tx, &Card{}, deckID)
		if err != nil {
			return err
		}
		c := Card{DeckID: deckID, FrontContent: front, Notes: in.Notes, DisplayOrder: next}
		if err := tx.Create(&c).Error; err != nil {
			return errors.Wrap(err, "create card")
		}
		if err := upsertValues(tx, c.ID, in.Values); err != nil {
			return err
		}
		if err := touchDeck(tx, deckID); err != nil {
			return err
		}
		out, err = loadReconciled(tx, deckID, c.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return ReconciledCard{}, err
	}
	return out, nil
}

func (s *Service) UpdateCard(ctx context.Context, userID string, deckID, cardID int64, in CardInput) (ReconciledCard, error) {
	ctx, span := tracer.Start(ctx, "Deck.Service.UpdateCard")
	defer span.End()

	front := strings.TrimSpace(in.FrontContent)
	if front == "" {
		return ReconciledCard{}, ErrInvalidName
	}

	var out ReconciledCard
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		if err := checkAttributes(tx, deckID, in.Values); err != nil {
			return err
		}
		res := tx.Model(&Card{}).Where("id = ? AND deck_id = ?", cardID, deckID).
			Updates(map[string]any{"front_content": front, "notes": in.Notes, "updated_at": time.Now()})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update card %d", cardID)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := upsertValues(tx, cardID, in.Values); err != nil {
			return err
		}
		if err := touchDeck(tx, deckID); err != nil {
			return err
		}
		var err error
		out, err = loadReconciled(tx, deckID, cardID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return ReconciledCard{}, err
	}
	return out, nil
}

// DeleteCard removes the card's attribute values, then the card.
func (s *Service) DeleteCard(ctx context.Context, userID string, deckID, cardID int64) error {
	ctx, span := tracer.Start(ctx, "Deck.Service.DeleteCard")
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedDeck(tx, userID, deckID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND deck_id = ?", cardID, deckID).Limit(1).Find(&Card{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("card_id = ?", cardID).Delete(&AttributeValue{}).Error; err != nil {
			return errors.Wrapf(err, "delete values of card %d", cardID)
		}
		if err := tx.Where("id = ?", cardID).Delete(&Card{}).Error; err != nil {
			return errors.Wrapf(err, "delete card %d", cardID)
		}
		return touchDeck(tx, deckID)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func checkAttributes(tx *gorm.DB, deckID int64, values map[int64]string) error {
	if len(values) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	var n int64
	if err := tx.Model(&AttributeType{}).Where("deck_id = ? AND id IN ?", deckID, ids).Count(&n).Error; err != nil {
		return errors.Wrap(err, "check attribute types")
	}
	if int(n) != len(ids) {
		return ErrUnknownAttribute
	}
	return nil
}

func upsertValues(tx *gorm.DB, cardID int64, values map[int64]string) error {
	for typeID, value := range values {
		var existing AttributeValue
		res := tx.Where("card_id = ? AND deck_attribute_type_id = ?", cardID, typeID).Limit(1).Find(&existing)
		if res.Error != nil {
			return errors.Wrap(res.Error, "load attribute value")
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&AttributeValue{}).Where("id = ?", existing.ID).
				Update("value", value).Error; err != nil {
				return errors.Wrapf(err, "update attribute value %d", existing.ID)
			}
			continue
		}
		v := AttributeValue{CardID: cardID, DeckAttributeTypeID: typeID, Value: value}
		if err := tx.Create(&v).Error; err != nil {
			return errors.Wrap(err, "create attribute value")
		}
	}
	return nil
}

func nextOrder(tx *gorm.DB, model any, deckID int64) (int, error) {
	var max int
	if err := tx.Model(model).Where("deck_id = ?", deckID).
		Select("COALESCE(MAX(display_order), -1)").Scan(&max).Error; err != nil {
		return 0, errors.Wrap(err, "next display order")
	}
	return max + 1, nil
}

func touchDeck(tx *gorm.DB, deckID int64) error {
	return tx.Model(&Deck{}).Where("id = ?", deckID).Update("updated_at", time.Now()).Error
}
