package pricing

import "cafepos/backend/internal/domain"

// Selection is the working state of the discount picker for one discount.
// It reads the cart but never mutates it.
type Selection struct {
	cart     *Cart
	discount domain.Discount
	selected map[int]int

	// prior holds the selection replaced by the last SelectAll, so a second
	// SelectAll can put it back.
	prior    map[int]int
	hasPrior bool
}

func (c *Cart) NewSelection(discount domain.Discount) *Selection {
	return &Selection{
		cart:     c,
		discount: cloneDiscount(discount),
		selected: make(map[int]int),
	}
}

// SelectItems sets the quantity picked from a line, bounded to what the line
// can give this discount. The bounded quantity is returned.
func (s *Selection) SelectItems(index int, quantity int) int {
	limit := s.cart.SelectableQuantity(index, s.discount)
	quantity = max(0, min(quantity, limit))
	if quantity == 0 {
		delete(s.selected, index)
	} else {
		s.selected[index] = quantity
	}
	s.hasPrior = false
	s.prior = nil
	return quantity
}

// SelectAll selects every selectable unit, or, when that is already the
// selection, returns to whatever was selected before.
func (s *Selection) SelectAll() {
	if s.IsAllSelected() {
		if s.hasPrior {
			s.selected = s.prior
		} else {
			s.selected = make(map[int]int)
		}
		s.prior = nil
		s.hasPrior = false
		return
	}

	s.prior = cloneSelection(s.selected)
	s.hasPrior = true
	full := make(map[int]int)
	for i := 0; i < s.cart.Len(); i++ {
		if n := s.cart.SelectableQuantity(i, s.discount); n > 0 {
			full[i] = n
		}
	}
	s.selected = full
}

func (s *Selection) IsAllSelected() bool {
	found := false
	for i := 0; i < s.cart.Len(); i++ {
		n := s.cart.SelectableQuantity(i, s.discount)
		if s.selected[i] != n {
			return false
		}
		if n > 0 {
			found = true
		}
	}
	return found
}

func (s *Selection) Selected() map[int]int {
	return cloneSelection(s.selected)
}

func (s *Selection) Allocation() (domain.AppliedDiscount, error) {
	return ComputeAllocation(s.cart.lines, s.discount, s.selected)
}
