package booking

import (
	"testing"
	"time"

	"fieldbooking/internal/domain"

	"github.com/stretchr/testify/assert"
)

func clk(s string) domain.Clock {
	c, err := domain.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func TestComputePrice(t *testing.T) {
	sf := &domain.SubField{OpenTime: clk("06:00"), CloseTime: clk("22:00"), DefaultPrice: 200_000}
	monday := time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2030, 6, 8, 0, 0, 0, 0, time.UTC)

	weekendEvening := domain.PricingRule{
		ID:       2,
		Weekdays: domain.NewWeekdaySet(time.Saturday, time.Sunday),
		Ranges: []domain.PricingRange{
			{StartTime: clk("17:00"), EndTime: clk("22:00"), Price: 300_000},
		},
	}
	everyMorning := domain.PricingRule{
		ID:       5,
		Weekdays: domain.AllWeekdays,
		Ranges: []domain.PricingRange{
			{StartTime: clk("06:00"), EndTime: clk("09:00"), Price: 120_000},
			{StartTime: clk("16:00"), EndTime: clk("18:00"), Price: 250_000},
		},
	}
	rules := []domain.PricingRule{everyMorning, weekendEvening}

	cases := []struct {
		name       string
		rules      []domain.PricingRule
		date       time.Time
		start, end string
		want       int64
	}{
		{"default price without rules", nil, monday, "18:00", "19:00", 400_000},
		{"weekday rule ignored on other days", []domain.PricingRule{weekendEvening}, monday, "18:00", "19:00", 400_000},
		{"weekend rule", []domain.PricingRule{weekendEvening}, saturday, "18:00", "19:00", 600_000},
		{"unit straddling a range boundary", []domain.PricingRule{weekendEvening}, saturday, "16:30", "17:30", 500_000},
		{"rule order by id", rules, saturday, "17:00", "18:00", 600_000},
		{"second range of the same rule", rules, monday, "16:00", "17:00", 500_000},
		{"morning rule", rules, monday, "08:30", "09:30", 320_000},
		{"empty interval", rules, monday, "09:00", "09:00", 0},
	}
	var engine PricingEngine
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := engine.ComputePrice(sf, tc.rules, tc.date, clk(tc.start), clk(tc.end))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputePrice_ReportsUnits(t *testing.T) {
	sf := &domain.SubField{DefaultPrice: 100_000}
	rule := domain.PricingRule{
		ID:       9,
		Weekdays: domain.AllWeekdays,
		Ranges:   []domain.PricingRange{{StartTime: clk("10:30"), EndTime: clk("11:00"), Price: 80_000}},
	}

	total, units := PricingEngine{}.ComputePrice(sf, []domain.PricingRule{rule}, time.Now(), clk("10:00"), clk("11:00"))

	assert.Equal(t, int64(180_000), total)
	assert.Equal(t, []UnitPrice{
		{Start: clk("10:00"), End: clk("10:30"), Price: 100_000},
		{Start: clk("10:30"), End: clk("11:00"), Price: 80_000, RuleID: 9},
	}, units)
}

func TestComputePrice_AdditiveAcrossAlignedSplits(t *testing.T) {
	sf := &domain.SubField{OpenTime: clk("06:00"), CloseTime: clk("22:00"), DefaultPrice: 200_000}
	rules := []domain.PricingRule{
		{
			ID:       7,
			Weekdays: domain.NewWeekdaySet(time.Monday, time.Saturday),
			Ranges: []domain.PricingRange{
				{StartTime: clk("15:00"), EndTime: clk("19:30"), Price: 280_000},
				{StartTime: clk("19:30"), EndTime: clk("22:00"), Price: 330_000},
			},
		},
		{
			ID:       3,
			Weekdays: domain.AllWeekdays,
			Ranges: []domain.PricingRange{
				{StartTime: clk("06:00"), EndTime: clk("10:00"), Price: 120_000},
				{StartTime: clk("16:30"), EndTime: clk("18:00"), Price: 250_000},
			},
		},
	}
	var engine PricingEngine

	for _, date := range []time.Time{
		time.Date(2030, 6, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 6, 8, 0, 0, 0, 0, time.UTC),
	} {
		for start := sf.OpenTime; start < sf.CloseTime; start += domain.SlotMinutes {
			for end := start + domain.SlotMinutes; end <= sf.CloseTime; end += domain.SlotMinutes {
				whole, units := engine.ComputePrice(sf, rules, date, start, end)
				assert.Len(t, units, int(end-start)/domain.SlotMinutes)
				for mid := start; mid <= end; mid += domain.SlotMinutes {
					left, _ := engine.ComputePrice(sf, rules, date, start, mid)
					right, _ := engine.ComputePrice(sf, rules, date, mid, end)
					if left+right != whole {
						t.Fatalf("%s %s-%s split at %s: %d + %d != %d",
							date.Weekday(), start, end, mid, left, right, whole)
					}
				}
			}
		}
	}
}
