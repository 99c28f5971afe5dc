package model

import "time"

// OrderStatus is the lifecycle state of a lease order. The lease flow
// only ever produces pending; the other states exist for the approval
// workflow that happens outside this system.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderActive   OrderStatus = "active"
)

// LeaseOrder records one simulated rental. Device fields are a snapshot
// taken at lease time; later edits or deletion of the device do not
// rewrite history.
type LeaseOrder struct {
	ID             string      `json:"id"`
	DeviceID       string      `json:"deviceId"`
	DeviceName     string      `json:"deviceName"`
	DeviceBrand    string      `json:"deviceBrand"`
	MonthlyRental  int         `json:"monthlyRental"`
	EffectivePrice int         `json:"effectivePrice"` // employee net after the pre-tax reduction
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}
