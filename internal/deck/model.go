package deck

import "time"

// Kind is the storage kind of an attribute column.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// Deck is a named collection of cards. UserID is nil for orphaned rows.
type Deck struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	AttributeTypes []AttributeType `gorm:"foreignKey:DeckID;constraint:OnDelete:RESTRICT" json:"-"`
	Cards          []Card          `gorm:"foreignKey:DeckID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Deck) TableName() string { return "deck" }

// AttributeType is one column of a deck's card schema.
type AttributeType struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	DeckID        int64  `gorm:"not null;uniqueIndex:uq_attr_type_deck_name,priority:1" json:"deck_id"`
	AttributeName string `gorm:"type:text;not null;uniqueIndex:uq_attr_type_deck_name,priority:2" json:"attribute_name"`
	AttributeType Kind   `gorm:"type:text;not null;default:'text'" json:"attribute_type"`
	DisplayOrder  int    `gorm:"not null;default:0" json:"display_order"`

	Values []AttributeValue `gorm:"foreignKey:DeckAttributeTypeID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (AttributeType) TableName() string { return "deck_attribute_type" }

type Card struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	DeckID       int64     `gorm:"not null;index" json:"deck_id"`
	FrontContent string    `gorm:"type:text;not null" json:"front_content"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`

	Values []AttributeValue `gorm:"foreignKey:CardID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Card) TableName() string { return "card" }

// AttributeValue links one card to one attribute type.
type AttributeValue struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	CardID              int64     `gorm:"not null;uniqueIndex:uq_attr_value_card_type,priority:1" json:"card_id"`
	DeckAttributeTypeID int64     `gorm:"not null;index;uniqueIndex:uq_attr_value_card_type,priority:2" json:"deck_attribute_type_id"`
	Value               string    `gorm:"type:text;not null;default:''" json:"value"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}

func (AttributeValue) TableName() string { return "card_attribute_value" }

// Models lists every table owned by this package in dependency order.
func Models() []any {
	return []any{&Deck{}, &AttributeType{}, &Card{}, &AttributeValue{}}
}
