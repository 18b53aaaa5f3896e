package model

import "time"

// PushSubscription holds the information for a staff device's browser push
// subscription. Every subscription receives new-order alerts for the whole
// board; there is no per-order filtering.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Label     string    `gorm:"size:128"` // free-form device label, e.g. "counter tablet"
	CreatedAt time.Time `gorm:"not null"`
}
