package deck

import (
	"sort"

	"github.com/pkg/errors"
)

// CellState tells whether a cell is backed by a stored attribute value.
type CellState uint8

const (
	Unsaved CellState = iota
	Persisted
)

func (s CellState) String() string {
	if s == Persisted {
		return "persisted"
	}
	return "unsaved"
}

func (s CellState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CellState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "persisted":
		*s = Persisted
	case "unsaved":
		*s = Unsaved
	default:
		return errors.Errorf("unknown cell state %q", b)
	}
	return nil
}

// Cell is a card's value for one attribute type after reconciliation.
// ValueID is set only when State is Persisted.
type Cell struct {
	State           CellState `json:"state"`
	ValueID         int64     `json:"value_id,omitempty"`
	CardID          int64     `json:"card_id"`
	AttributeTypeID int64     `json:"deck_attribute_type_id"`
	AttributeName   string    `json:"attribute_name"`
	Kind            Kind      `json:"attribute_type"`
	Value           string    `json:"value"`
}

func (c Cell) Persisted() bool { return c.State == Persisted }

// ReconciledCard is a card carrying one cell per attribute type of its deck.
type ReconciledCard struct {
	Card
	Cells []Cell `json:"attributes"`
}

// SortAttributeTypes orders types by display order, then id.
func SortAttributeTypes(types []AttributeType) {
	sort.SliceStable(types, func(i, j int) bool {
		if types[i].DisplayOrder != types[j].DisplayOrder {
			return types[i].DisplayOrder < types[j].DisplayOrder
		}
		return types[i].ID < types[j].ID
	})
}

// Reconcile returns exactly one cell per attribute type, in display order.
// Stored values are matched by attribute name; attribute types the card has
// no value for yield an Unsaved cell with an empty value. Values pointing at
// attribute types outside types are ignored. Two stored values resolving to
// the same attribute name are an integrity error.
func Reconcile(types []AttributeType, card Card) ([]Cell, error) {
	ordered := make([]AttributeType, len(types))
	copy(ordered, types)
	SortAttributeTypes(ordered)

	nameByType := make(map[int64]string, len(ordered))
	for _, at := range ordered {
		nameByType[at.ID] = at.AttributeName
	}

	byName := make(map[string]AttributeValue, len(card.Values))
	for _, v := range card.Values {
		name, ok := nameByType[v.DeckAttributeTypeID]
		if !ok {
			continue
		}
		if prev, dup := byName[name]; dup {
			return nil, errors.Wrapf(ErrDuplicateAttributeValue,
				"card %d attribute %q (values %d and %d)", card.ID, name, prev.ID, v.ID)
		}
		byName[name] = v
	}

	cells := make([]Cell, 0, len(ordered))
	for _, at := range ordered {
		cell := Cell{
			State:           Unsaved,
			CardID:          card.ID,
			AttributeTypeID: at.ID,
			AttributeName:   at.AttributeName,
			Kind:            at.AttributeType,
		}
		if v, ok := byName[at.AttributeName]; ok {
			cell.State = Persisted
			cell.ValueID = v.ID
			cell.Value = v.Value
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// ReconcileAll reconciles every card against the same schema.
func ReconcileAll(types []AttributeType, cards []Card) ([]ReconciledCard, error) {
	out := make([]ReconciledCard, 0, len(cards))
	for _, c := range cards {
		cells, err := Reconcile(types, c)
		if err != nil {
			return nil, err
		}
		c.Values = nil
		out = append(out, ReconciledCard{Card: c, Cells: cells})
	}
	return out, nil
}
