package model

import "time"

// IPRecord is one entry in the append-only public IP history. Only the most
// recent entry is consulted, to detect address changes.
type IPRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Address    string
	DetectedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}
