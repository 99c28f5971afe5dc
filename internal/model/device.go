package model

import "time"

// Category classifies a device in the rental catalog.
type Category string

const (
	CategoryPhone      Category = "phone"
	CategoryLaptop     Category = "laptop"
	CategoryTablet     Category = "tablet"
	CategorySmartwatch Category = "smartwatch"
	CategoryHeadphones Category = "headphones"
	CategoryOther      Category = "other"
)

// Specifications holds the free-text hardware description of a device.
type Specifications struct {
	Processor string `json:"processor"`
	RAM       string `json:"ram"`
	Storage   string `json:"storage"`
	Display   string `json:"display"`
	Camera    string `json:"camera"`
	Battery   string `json:"battery"`
}

// Device is a rentable catalog item owned by the supplier.
// Stock never goes below zero; Version increases on every mutation.
type Device struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Model          string         `json:"model"`
	Category       Category       `json:"category"`
	Image          string         `json:"image"`
	Price          int            `json:"price"`       // monthly rental
	MarketPrice    int            `json:"marketPrice"` // original retail price
	Stock          int            `json:"stock"`
	Specifications Specifications `json:"specifications"`
	Offers         []Offer        `json:"offers"`
	IsActive       bool           `json:"isActive"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy so callers can never reach back into the
// canonical record through a shared offer slice.
func (d Device) Clone() Device {
	c := d
	if d.Offers != nil {
		c.Offers = make([]Offer, len(d.Offers))
		copy(c.Offers, d.Offers)
	}
	return c
}
