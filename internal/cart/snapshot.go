package cart

// Snapshot is an immutable view of the cart at one committed version.
// Version 0 is the empty cart before the initial load finished; every
// committed change after that gets a higher version.
type Snapshot struct {
	items   []LineItem
	version uint64
}

// Items returns a copy of the line items in insertion order.
func (s Snapshot) Items() []LineItem {
	return cloneItems(s.items)
}

func (s Snapshot) Len() int {
	return len(s.items)
}

// Find returns the line with the given id.
func (s Snapshot) Find(id string) (LineItem, bool) {
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return LineItem{}, false
}

func (s Snapshot) Version() uint64 {
	return s.version
}

// TotalQuantity sums the quantities of every line.
func (s Snapshot) TotalQuantity() int {
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}
