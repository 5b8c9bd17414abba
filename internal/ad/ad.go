// Package ad defines the data types that flow through the posting pipeline:
// ProductInfo as extracted from images, and the validated AdRecord that is
// handed to the browser automation.
package ad

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// TitleMaxLen is the title length limit imposed by kleinanzeigen.de.
const TitleMaxLen = 65

// DefaultCondition is used when the vision backend could not determine
// the condition of an item.
const DefaultCondition = "Gebraucht"

// ShippingType describes how the item can be handed over to a buyer.
type ShippingType string

const (
	ShippingPickup   ShippingType = "PICKUP"
	ShippingShipping ShippingType = "SHIPPING"
	ShippingBoth     ShippingType = "BOTH"
)

// ProductInfo is the best-effort structured extraction of product attributes
// from images, before category mapping or validation. Optional fields are
// pointers so that "not detected" is distinguishable from an empty string.
type ProductInfo struct {
	Name           string
	Description    string
	Condition      string
	Category       *string
	Brand          *string
	Color          *string
	Features       []string
	SuggestedPrice *float64
	ImagePaths     []string
}

// AdRecord is the fully validated, ready-to-post listing. It is constructed
// once by the content generator and never mutated afterwards.
type AdRecord struct {
	Title        string       `validate:"required,max=65"`
	Description  string
	Price        float64      `validate:"gte=0"`
	Category     string       `validate:"required"`
	Subcategory  *string
	Condition    string       `validate:"required"`
	ShippingType ShippingType `validate:"oneof=PICKUP SHIPPING BOTH"`
	PostalCode   string       `validate:"len=5,number"`
}

var validate = validator.New()

// Validate checks all AdRecord invariants. A record that fails validation
// must not proceed to the automation layer.
func (r *AdRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid ad record: %w", err)
	}
	return nil
}
