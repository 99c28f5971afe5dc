package model

import "time"

// PushSubscription holds a browser push subscription and the set of
// devices the employee wants availability alerts for.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256DH    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	DeviceIDs []string  `json:"subscribed_devices"`
	CreatedAt time.Time `json:"createdAt"`
}
