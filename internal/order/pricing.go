package order

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/toy-session-engine/internal/model"
)

// Pricing holds the shipping rule: orders strictly above FreeShippingThreshold
// ship for free, everything else pays ShippingFee.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(5000),
		ShippingFee:           decimal.NewFromInt(200),
	}
}

type Quote struct {
	Lines         []model.OrderLine `json:"orderItems"`
	ItemsPrice    decimal.Decimal   `json:"itemsPrice"`
	ShippingPrice decimal.Decimal   `json:"shippingPrice"`
	GiftWrapID    string            `json:"giftWrapping,omitempty"`
	GiftWrapPrice decimal.Decimal   `json:"giftWrappingPrice"`
	TotalPrice    decimal.Decimal   `json:"totalPrice"`
}

// Price is pure: it sums the lines and applies the shipping rule.
func (p Pricing) Price(lines []model.OrderLine, wrap *model.GiftWrap) Quote {
	q := Quote{Lines: lines, ItemsPrice: decimal.Zero, GiftWrapPrice: decimal.Zero}
	for _, l := range lines {
		q.ItemsPrice = q.ItemsPrice.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	if q.ItemsPrice.GreaterThan(p.FreeShippingThreshold) {
		q.ShippingPrice = decimal.Zero
	} else {
		q.ShippingPrice = p.ShippingFee
	}
	if wrap != nil {
		q.GiftWrapID = wrap.ID
		q.GiftWrapPrice = wrap.Price
	}
	q.TotalPrice = q.ItemsPrice.Add(q.ShippingPrice).Add(q.GiftWrapPrice)
	return q
}

func (q Quote) draft(userID string, d model.Delivery) model.OrderDraft {
	return model.OrderDraft{
		UserID:        userID,
		Delivery:      d,
		Lines:         q.Lines,
		ItemsPrice:    q.ItemsPrice,
		ShippingPrice: q.ShippingPrice,
		GiftWrapID:    q.GiftWrapID,
		GiftWrapPrice: q.GiftWrapPrice,
		TotalPrice:    q.TotalPrice,
	}
}
