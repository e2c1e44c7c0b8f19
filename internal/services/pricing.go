package services

import (
	"errors"
	"fmt"

	domain "github.com/franchisehub/api/internal/domain"
)

var (
	// ErrEmptyOrder signals a creation request without any line items.
	ErrEmptyOrder = errors.New("pricing: order has no items")
	// ErrInvalidLine signals a line with a non-positive quantity or price.
	ErrInvalidLine = errors.New("pricing: invalid line")
	// ErrProductNotFound signals a line referencing a product the catalog does not carry.
	ErrProductNotFound = errors.New("pricing: product not found")
)

// PricedLine is a validated order line with its computed total.
type PricedLine struct {
	ProductID string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// PricingBreakdown captures the monetary results of pricing an order. All
// amounts are whole won.
type PricingBreakdown struct {
	Lines    []PricedLine
	Subtotal int64
	Vat      int64
	Total    int64
}

// VatPolicy derives the VAT amount owed on an order subtotal. It is a named
// policy so a per-product rate scheme can replace the flat rate without
// touching order creation.
type VatPolicy interface {
	Assess(subtotal int64) int64
}

// FlatRateVatPolicy applies a single order-level VAT rate expressed in basis
// points, rounding half-up to the whole won.
type FlatRateVatPolicy struct {
	RateBasisPoints int64
}

// Assess returns round-half-up(subtotal * rate).
func (p FlatRateVatPolicy) Assess(subtotal int64) int64 {
	if p.RateBasisPoints <= 0 || subtotal <= 0 {
		return 0
	}
	return (subtotal*p.RateBasisPoints + 5000) / 10000
}

// Pricer validates requested lines against the catalog and computes the
// order totals. It performs no persistence.
type Pricer struct {
	Vat VatPolicy
}

// NewPricer constructs a Pricer with the provided VAT policy.
func NewPricer(vat VatPolicy) *Pricer {
	if vat == nil {
		vat = FlatRateVatPolicy{}
	}
	return &Pricer{Vat: vat}
}

// PriceOrder validates every requested line and returns the priced breakdown.
// Products must contain the catalog rows for every referenced product id;
// lines referencing absent products fail with ErrProductNotFound. The
// client-captured unit price is used for the monetary computation so the
// order keeps its price-at-order-time semantics.
func (p *Pricer) PriceOrder(lines []OrderLineInput, products map[string]domain.Product) (PricingBreakdown, error) {
	if len(lines) == 0 {
		return PricingBreakdown{}, ErrEmptyOrder
	}

	priced := make([]PricedLine, 0, len(lines))
	var subtotal int64
	for i, line := range lines {
		if line.ProductID == "" {
			return PricingBreakdown{}, fmt.Errorf("%w: line %d has no product id", ErrInvalidLine, i+1)
		}
		if line.Quantity <= 0 {
			return PricingBreakdown{}, fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidLine, i+1)
		}
		if line.UnitPrice <= 0 {
			return PricingBreakdown{}, fmt.Errorf("%w: line %d unit price must be positive", ErrInvalidLine, i+1)
		}
		if _, ok := products[line.ProductID]; !ok {
			return PricingBreakdown{}, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}

		lineTotal := line.UnitPrice * int64(line.Quantity)
		subtotal += lineTotal
		priced = append(priced, PricedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	vat := p.Vat.Assess(subtotal)
	return PricingBreakdown{
		Lines:    priced,
		Subtotal: subtotal,
		Vat:      vat,
		Total:    subtotal + vat,
	}, nil
}
