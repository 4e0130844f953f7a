package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// WeekdaySet is a bitmask of time.Weekday values (bit 0 = Sunday).
type WeekdaySet uint8

const AllWeekdays WeekdaySet = 0x7f

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	days := s.Days()
	nums := make([]int, len(days))
	for i, d := range days {
		nums[i] = int(d)
	}
	return json.Marshal(nums)
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	var out WeekdaySet
	for _, n := range nums {
		if n < 0 || n > 6 {
			return fmt.Errorf("weekday %d out of range", n)
		}
		out |= 1 << uint(n)
	}
	*s = out
	return nil
}

func (s WeekdaySet) Value() (driver.Value, error) { return int64(s), nil }

func (s *WeekdaySet) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = WeekdaySet(v)
	case int32:
		*s = WeekdaySet(v)
	case nil:
		*s = 0
	default:
		var c Clock
		if err := c.Scan(src); err != nil {
			return fmt.Errorf("cannot scan %T into WeekdaySet", src)
		}
		*s = WeekdaySet(c)
	}
	return nil
}

// PricingRule prices 30-minute units of a sub-field on the listed weekdays.
// Rules are evaluated in ascending ID order; the first one with a matching range wins.
type PricingRule struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	SubFieldID int64          `json:"sub_field_id" gorm:"not null;index"`
	Weekdays   WeekdaySet     `json:"weekdays" gorm:"type:integer;not null"`
	Ranges     []PricingRange `json:"ranges" gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type PricingRange struct {
	ID        int64 `json:"id" gorm:"primaryKey"`
	RuleID    int64 `json:"rule_id" gorm:"not null;index"`
	StartTime Clock `json:"start_time" gorm:"type:integer;not null"`
	EndTime   Clock `json:"end_time" gorm:"type:integer;not null"`
	Price     int64 `json:"price" gorm:"not null"`
}

// PriceFor returns the unit price when [start, end) on weekday is fully inside one of the rule's ranges.
func (r PricingRule) PriceFor(weekday time.Weekday, start, end Clock) (int64, bool) {
	if !r.Weekdays.Has(weekday) {
		return 0, false
	}
	for _, rg := range r.Ranges {
		if start >= rg.StartTime && end <= rg.EndTime {
			return rg.Price, true
		}
	}
	return 0, false
}
