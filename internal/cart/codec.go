package cart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a persisted payload that is not a JSON array of line items.
var ErrMalformed = errors.New("malformed cart payload")

// Encode serializes the full item list. An empty cart encodes as [].
func Encode(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

// Decode parses a persisted payload. Records with quantity below one and
// repeated ids are dropped so the result always satisfies the cart
// invariants; the first occurrence of an id wins.
func Decode(raw string) ([]LineItem, error) {
	items, _, err := decode(raw)
	return items, err
}

func decode(raw string) ([]LineItem, int, error) {
	var decoded []LineItem
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]LineItem, 0, len(decoded))
	seen := make(map[string]struct{}, len(decoded))
	for _, it := range decoded {
		if it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	return items, len(decoded) - len(items), nil
}
