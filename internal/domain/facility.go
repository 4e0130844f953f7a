package domain

import (
	"time"

	"gorm.io/gorm"
)

type Facility struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	OwnerID   int64          `json:"owner_id" gorm:"not null;index"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Address   string         `json:"address,omitempty" gorm:"type:text"`
	IsActive  bool           `json:"is_active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// SubField is an individually bookable unit of a facility (a single court or pitch).
type SubField struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	FacilityID   int64          `json:"facility_id" gorm:"not null;index"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	SportType    string         `json:"sport_type,omitempty" gorm:"type:varchar(50)"`
	OpenTime     Clock          `json:"open_time" gorm:"type:integer;not null"`
	CloseTime    Clock          `json:"close_time" gorm:"type:integer;not null"`
	DefaultPrice int64          `json:"default_price" gorm:"not null"`
	IsActive     bool           `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Contains reports whether [start, end) lies within the operating hours.
func (s SubField) Contains(start, end Clock) bool {
	return start >= s.OpenTime && end <= s.CloseTime
}

// FacilityService is a paid add-on (equipment rental, referee, showers) sold with a booking.
type FacilityService struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	FacilityID  int64          `json:"facility_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Unit        string         `json:"unit,omitempty" gorm:"type:varchar(50)"`
	Price       int64          `json:"price" gorm:"not null"`
	IsActive    bool           `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (FacilityService) TableName() string { return "facility_services" }
