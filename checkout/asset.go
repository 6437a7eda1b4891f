package checkout

import (
	"github.com/shopspring/decimal"

	beep "github.com/beep-labs/beep-go"
)

// AssetReference is one checkout line item. Exactly one of the two shapes
// is populated: AssetID points at an existing product, Name+Price describe
// one to create on the fly. The discriminator is resolved once, here, rather
// than checked ad hoc downstream.
type AssetReference struct {
	// Existing product shape
	AssetID string `json:"assetId,omitempty"`

	// Ad-hoc product shape
	Name  string `json:"name,omitempty"`
	Price string `json:"price,omitempty"`

	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

// assetKind is the resolved discriminator for an AssetReference
type assetKind int

const (
	kindExisting assetKind = iota
	kindAdHoc
)

// kind resolves the union discriminator, validating the shape
func (r AssetReference) kind() (assetKind, error) {
	hasID := r.AssetID != ""
	hasPrice := r.Price != ""

	switch {
	case hasID && hasPrice:
		return 0, beep.NewError(beep.ErrCodeValidation,
			"asset reference must not set both assetId and price", nil)
	case hasID:
		return kindExisting, nil
	case r.Name != "" && hasPrice:
		return kindAdHoc, nil
	default:
		return 0, beep.NewError(beep.ErrCodeValidation,
			"asset reference needs either assetId or name and price", nil)
	}
}

// quantity returns the effective quantity, defaulting to 1
func (r AssetReference) quantity() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// ResolvedAsset is a normalized checkout line: a canonical product id, the
// quantity, and the unit price in base units.
type ResolvedAsset struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice uint64 `json:"unitPrice"`
	// Created reports that resolving this line created a product record as
	// a side effect of the checkout.
	Created bool `json:"created"`
}

// priceDecimal parses the ad-hoc price field
func (r AssetReference) priceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.Price)
	if err != nil {
		return decimal.Decimal{}, beep.NewError(beep.ErrCodeValidation,
			"asset "+r.Name+" has an invalid price", map[string]interface{}{"price": r.Price})
	}
	return d, nil
}
