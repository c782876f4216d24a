package helpers

import "github.com/google/uuid"

// PricedLine is a cart line with the unit price the client displayed.
type PricedLine struct {
	ProductID   uuid.UUID
	Quantity    int
	ClientPrice *int64
}

// StaleLine is a line whose submitted price no longer matches the catalog.
type StaleLine struct {
	Line      int       `json:"line"`
	ProductID uuid.UUID `json:"product_id"`
	Expected  int64     `json:"expected_price"`
	Submitted int64     `json:"submitted_price"`
}

// Quote is the server-side pricing of a cart.
type Quote struct {
	UnitPrices []int64
	Total      int64
	Units      int
	Stale      []StaleLine
}

// ComputeQuote prices every line at the current catalog price. Lines for
// products missing from prices are priced at zero; callers reject those
// before quoting.
func ComputeQuote(lines []PricedLine, prices map[uuid.UUID]int64) Quote {
	q := Quote{UnitPrices: make([]int64, len(lines))}
	for i, line := range lines {
		price := prices[line.ProductID]
		q.UnitPrices[i] = price
		q.Total += price * int64(line.Quantity)
		q.Units += line.Quantity
		if line.ClientPrice != nil && *line.ClientPrice != price {
			q.Stale = append(q.Stale, StaleLine{
				Line:      i,
				ProductID: line.ProductID,
				Expected:  price,
				Submitted: *line.ClientPrice,
			})
		}
	}
	return q
}

// TotalMatches reports whether a client supplied total agrees with the
// quote. A missing total always matches.
func (q Quote) TotalMatches(submitted *int64) bool {
	return submitted == nil || *submitted == q.Total
}
