package pricing

import (
	"fmt"
	"strings"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/xid"
)

// Cart is the mutable cart of one terminal. It is not safe for concurrent
// use; callers serialize access per cart.
type Cart struct {
	lines     []domain.CartLine
	discounts []domain.AppliedDiscount
	promotion *domain.AutoPromotion
}

func NewCart() *Cart {
	return &Cart{}
}

// FromState rebuilds a cart from persisted state. The state is copied.
func FromState(state domain.CartState) *Cart {
	return &Cart{
		lines:     cloneLines(state.Lines),
		discounts: cloneAppliedList(state.AppliedDiscounts),
		promotion: clonePromotion(state.AutoPromotion),
	}
}

func (c *Cart) State() domain.CartState {
	lines := cloneLines(c.lines)
	if lines == nil {
		lines = []domain.CartLine{}
	}
	discounts := cloneAppliedList(c.discounts)
	if discounts == nil {
		discounts = []domain.AppliedDiscount{}
	}
	return domain.CartState{
		Lines:            lines,
		AppliedDiscounts: discounts,
		AutoPromotion:    clonePromotion(c.promotion),
	}
}

func (c *Cart) Lines() []domain.CartLine {
	return cloneLines(c.lines)
}

func (c *Cart) Line(index int) (domain.CartLine, bool) {
	if index < 0 || index >= len(c.lines) {
		return domain.CartLine{}, false
	}
	return cloneLine(c.lines[index]), true
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) AppliedDiscounts() []domain.AppliedDiscount {
	return cloneAppliedList(c.discounts)
}

func (c *Cart) AutoPromotion() *domain.AutoPromotion {
	return clonePromotion(c.promotion)
}

// MergeTarget returns the index of the line an AddItem call for item would
// increment, if any. Only lines without add-ons merge.
func (c *Cart) MergeTarget(item domain.CartLine) (int, bool) {
	if len(item.Addons) > 0 {
		return -1, false
	}
	for i, line := range c.lines {
		if line.ItemID == item.ItemID && line.Type == item.Type && len(line.Addons) == 0 {
			return i, true
		}
	}
	return -1, false
}

// AddItem increments a matching line or appends a new line of quantity one.
// A MaxQuantity on item refreshes the ceiling of a merged line.
func (c *Cart) AddItem(item domain.CartLine) (int, error) {
	if err := validateItem(item); err != nil {
		return -1, err
	}

	if idx, ok := c.MergeTarget(item); ok {
		line := &c.lines[idx]
		if item.MaxQuantity != nil {
			ceiling := *item.MaxQuantity
			line.MaxQuantity = &ceiling
		}
		if err := CheckIncrease(*line, 1); err != nil {
			return idx, err
		}
		line.Quantity++
		return idx, nil
	}

	line := cloneLine(item)
	if line.MaxQuantity != nil && *line.MaxQuantity < 1 {
		return -1, fmt.Errorf("%w: %s is out of stock", ErrMaxQuantityReached, line.Name)
	}
	if strings.TrimSpace(line.LineID) == "" {
		line.LineID = xid.New("line")
	}
	line.Quantity = 1
	if line.Addons == nil {
		line.Addons = []domain.Addon{}
	}
	c.lines = append(c.lines, line)
	return len(c.lines) - 1, nil
}

// UpdateQuantity applies delta to a line. Dropping to zero removes the line
// with the same cascade as RemoveItem.
func (c *Cart) UpdateQuantity(index int, delta int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	if delta == 0 {
		return nil
	}

	line := &c.lines[index]
	if err := CheckIncrease(*line, delta); err != nil {
		return err
	}
	next := line.Quantity + delta
	if next <= 0 {
		c.removeLine(index)
		return nil
	}
	if allocated := c.AllocatedQuantity(index); next < allocated {
		return fmt.Errorf("%w: %d unit(s) of %s are discounted", ErrQuantityBelowDiscounted, allocated, line.Name)
	}
	line.Quantity = next
	return nil
}

// MaxLineQuantity caps every line regardless of its own MaxQuantity.
const MaxLineQuantity = 9999

// CheckIncrease reports whether line may grow by delta units. The sum is
// never formed before the bounds are checked.
func CheckIncrease(line domain.CartLine, delta int) error {
	if delta <= 0 {
		return nil
	}
	if delta > MaxLineQuantity-line.Quantity {
		return fmt.Errorf("%w: %s is limited to %d", ErrMaxQuantityReached, line.Name, MaxLineQuantity)
	}
	if line.MaxQuantity != nil && delta > *line.MaxQuantity-line.Quantity {
		return fmt.Errorf("%w: %s is limited to %d", ErrMaxQuantityReached, line.Name, *line.MaxQuantity)
	}
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	c.removeLine(index)
	return nil
}

// SetAddons replaces the add-ons of a line. Discount allocations are kept as
// they are.
func (c *Cart) SetAddons(index int, addons []domain.Addon) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	for _, addon := range addons {
		if err := validateAddon(addon); err != nil {
			return err
		}
	}
	replaced := make([]domain.Addon, len(addons))
	copy(replaced, addons)
	c.lines[index].Addons = replaced
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
	c.discounts = nil
	c.promotion = nil
}

// Recompute resolves automatic promotions from scratch against the current
// lines and applied discounts.
func (c *Cart) Recompute(promotions []domain.Promotion) {
	c.promotion = ResolvePromotions(c.lines, promotions, c.discounts)
}

// AllocatedQuantity is the number of units of a line held by applied discounts.
func (c *Cart) AllocatedQuantity(index int) int {
	return allocatedQuantity(c.discounts, index)
}

func allocatedQuantity(discounts []domain.AppliedDiscount, index int) int {
	total := 0
	for _, applied := range discounts {
		total += applied.SelectedItemsQty[index]
	}
	return total
}

// removeLine drops a line, every applied discount that selected units from
// it, and the auto promotion when it covered the line. Remaining indices
// shift down by one.
func (c *Cart) removeLine(index int) {
	c.lines = append(c.lines[:index], c.lines[index+1:]...)

	kept := c.discounts[:0]
	for _, applied := range c.discounts {
		if applied.SelectedItemsQty[index] > 0 {
			continue
		}
		kept = append(kept, reindexApplied(applied, index))
	}
	if len(kept) == 0 {
		kept = nil
	}
	c.discounts = kept

	if c.promotion == nil {
		return
	}
	for _, ip := range c.promotion.ItemPromotions {
		if ip.LineIndex == index {
			c.promotion = nil
			return
		}
	}
	for i := range c.promotion.ItemPromotions {
		if c.promotion.ItemPromotions[i].LineIndex > index {
			c.promotion.ItemPromotions[i].LineIndex--
		}
	}
}

func reindexApplied(applied domain.AppliedDiscount, removed int) domain.AppliedDiscount {
	selected := make(map[int]int, len(applied.SelectedItemsQty))
	for idx, n := range applied.SelectedItemsQty {
		if n <= 0 || idx == removed {
			continue
		}
		if idx > removed {
			idx--
		}
		selected[idx] = n
	}
	applied.SelectedItemsQty = selected

	items := make([]domain.ItemDiscount, 0, len(applied.ItemDiscounts))
	for _, item := range applied.ItemDiscounts {
		if item.LineIndex == removed {
			continue
		}
		if item.LineIndex > removed {
			item.LineIndex--
		}
		items = append(items, item)
	}
	applied.ItemDiscounts = items
	return applied
}

func validateItem(item domain.CartLine) error {
	if strings.TrimSpace(item.ItemID) == "" || strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidItem)
	}
	if !item.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidItem, item.Type)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative unit price", ErrInvalidItem)
	}
	for _, addon := range item.Addons {
		if err := validateAddon(addon); err != nil {
			return err
		}
	}
	return nil
}

func validateAddon(addon domain.Addon) error {
	if strings.TrimSpace(addon.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAddon)
	}
	if addon.Quantity < 1 {
		return fmt.Errorf("%w: %s quantity must be at least 1", ErrInvalidAddon, addon.Name)
	}
	if addon.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: %s has a negative price", ErrInvalidAddon, addon.Name)
	}
	return nil
}
