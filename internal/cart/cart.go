// Package cart holds the rules for mutating a shopper's cart. Functions here
// are pure: persistence and change notification belong to the caller.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront/internal/model"
)

// AddLine adds one unit of p in the given size. It returns false when the cart
// was left unchanged, which happens for sold-out products and for lines
// already at their stock bound.
func AddLine(c *model.Cart, p *model.Product, size string) (bool, error) {
	if len(p.Sizes) > 0 {
		if size == "" {
			return false, model.ErrSizeRequired
		}
		if !p.HasSize(size) {
			return false, model.ErrInvalidSize
		}
	} else if size != "" {
		return false, model.ErrInvalidSize
	}

	if p.Stock <= 0 {
		return false, nil
	}

	if i := find(c, p.ID, size, -1); i >= 0 {
		line := &c.Lines[i]
		next := clamp(line.Quantity+1, 1, upperBound(line))
		if next == line.Quantity {
			return false, nil
		}
		line.Quantity = next
		return true, nil
	}

	sizes := make([]string, len(p.Sizes))
	copy(sizes, p.Sizes)
	c.Lines = append(c.Lines, model.CartLine{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPrice:      p.Price,
		ImageURL:       p.ImageURL,
		AvailableSizes: sizes,
		SelectedSize:   size,
		Quantity:       1,
		StockSnapshot:  p.Stock,
	})
	return true, nil
}

// SetQuantity moves a line's quantity by delta, clamped to [1, stock snapshot].
func SetQuantity(c *model.Cart, index, delta int) error {
	if err := checkIndex(c, index); err != nil {
		return err
	}
	line := &c.Lines[index]
	hi := upperBound(line)
	// the result lands in [1, hi], so a wider delta only risks overflow
	delta = clamp(delta, -hi, hi)
	line.Quantity = clamp(line.Quantity+delta, 1, hi)
	return nil
}

// ChangeSize switches a line to newSize. If another line of the same product
// already has that size the two are merged and the line at index disappears.
func ChangeSize(c *model.Cart, index int, newSize string) error {
	if err := checkIndex(c, index); err != nil {
		return err
	}
	line := c.Lines[index]
	if !contains(line.AvailableSizes, newSize) {
		return model.ErrInvalidSize
	}

	if j := find(c, line.ProductID, newSize, index); j >= 0 {
		target := &c.Lines[j]
		target.Quantity = clamp(target.Quantity+line.Quantity, 1, upperBound(target))
		c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
		return nil
	}

	c.Lines[index].SelectedSize = newSize
	return nil
}

func RemoveLine(c *model.Cart, index int) error {
	if err := checkIndex(c, index); err != nil {
		return err
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	return nil
}

// Total is the exact sum of unit price times quantity over all lines.
func Total(c model.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func Clear(c *model.Cart) {
	c.Lines = nil
}

// Reservations aggregates quantities per product across sizes, in first-seen order.
func Reservations(c model.Cart) []model.StockReservation {
	var out []model.StockReservation
	pos := make(map[uuid.UUID]int)
	for _, l := range c.Lines {
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, model.StockReservation{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func find(c *model.Cart, productID uuid.UUID, size string, skip int) int {
	for i, l := range c.Lines {
		if i != skip && l.ProductID == productID && l.SelectedSize == size {
			return i
		}
	}
	return -1
}

func checkIndex(c *model.Cart, index int) error {
	if index < 0 || index >= len(c.Lines) {
		return model.ErrLineOutOfRange
	}
	return nil
}

func upperBound(l *model.CartLine) int {
	return max(1, l.StockSnapshot)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
