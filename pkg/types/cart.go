package types

import (
	"github.com/shopspring/decimal"
)

// CartLine is one product entry in the cart with its resolved display
// fields. ItemID is the merge key; RemoteLineID is only present once the
// line exists server-side.
type CartLine struct {
	ItemID         string          `json:"itemId"`
	RemoteLineID   *int64          `json:"remoteLineId,omitempty"`
	Title          string          `json:"title"`
	AuthorDisplay  string          `json:"authorDisplay"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	AvailableStock *int            `json:"availableStock,omitempty"`
	SKUID          *int64          `json:"skuId,omitempty"`
}

// Clone returns a deep copy of the line.
func (l CartLine) Clone() CartLine {
	copied := l
	if l.RemoteLineID != nil {
		v := *l.RemoteLineID
		copied.RemoteLineID = &v
	}
	if l.AvailableStock != nil {
		v := *l.AvailableStock
		copied.AvailableStock = &v
	}
	if l.SKUID != nil {
		v := *l.SKUID
		copied.SKUID = &v
	}
	return copied
}

// Cart is an insertion-ordered list of lines, unique by ItemID.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// TotalQuantity sums the quantity across all lines.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// TotalValue sums unit price times quantity across all lines.
func (c Cart) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Find returns the line with the given item id, if present.
func (c Cart) Find(itemID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ItemID == itemID {
			return line, true
		}
	}
	return CartLine{}, false
}

// IsEmpty reports whether the cart holds no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	if len(c.Lines) == 0 {
		return Cart{}
	}
	lines := make([]CartLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, line.Clone())
	}
	return Cart{Lines: lines}
}
