package repo

import "tortoise-backend/internal/model"

// Patch enumerates the device fields a supplier may change. Nil fields
// are left untouched, so a partial edit can never zero out the rest of
// the record. Stock and offers have their own operations and are
// deliberately not patchable here.
type Patch struct {
	Name           *string
	Brand          *string
	Model          *string
	Category       *model.Category
	Image          *string
	Price          *int
	MarketPrice    *int
	Specifications *model.Specifications
	IsActive       *bool
}

func (p Patch) apply(d *model.Device) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Brand != nil {
		d.Brand = *p.Brand
	}
	if p.Model != nil {
		d.Model = *p.Model
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Image != nil {
		d.Image = *p.Image
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.MarketPrice != nil {
		d.MarketPrice = *p.MarketPrice
	}
	if p.Specifications != nil {
		d.Specifications = *p.Specifications
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
}
