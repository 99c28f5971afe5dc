package model

// OfferType selects how an offer's value is applied to the base price.
type OfferType string

const (
	OfferPercentage OfferType = "percentage"
	OfferFlat       OfferType = "flat"
)

// Offer is a time-bounded, togglable discount attached to a device.
// ValidFrom/ValidTo are date strings as entered by the supplier; date
// validity is evaluated at pricing time, never enforced on write, so an
// offer with a past ValidTo is stored as-is.
type Offer struct {
	ID          string    `json:"id"`
	Type        OfferType `json:"type"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
	ValidFrom   string    `json:"validFrom"`
	ValidTo     string    `json:"validTo"`
	IsActive    bool      `json:"isActive"`
}
