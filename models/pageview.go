package models

import (
	"time"

	"gorm.io/datatypes"
)

// PageView stores aggregated page view counts per day and path.
type PageView struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Date      datatypes.Date `gorm:"index:idx_pv_date_path,unique;not null" json:"date"`
	Path      string         `gorm:"index:idx_pv_date_path,unique;size:255;not null" json:"path"`
	Count     int64          `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
