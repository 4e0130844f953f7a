package booking

import (
	"sort"
	"time"

	"fieldbooking/internal/domain"
)

// UnitPrice is the price of one 30-minute unit and the rule that produced it (0 = default price).
type UnitPrice struct {
	Start  domain.Clock `json:"start"`
	End    domain.Clock `json:"end"`
	Price  int64        `json:"price"`
	RuleID int64        `json:"rule_id,omitempty"`
}

type PricingEngine struct{}

// ComputePrice walks [start, end) in 30-minute units. Each unit takes the price of the first rule
// (ascending id) whose weekdays include the date and one of whose ranges contains the whole unit,
// otherwise the sub-field's default price. start and end must be 30-minute aligned; callers validate that.
func (PricingEngine) ComputePrice(sf *domain.SubField, rules []domain.PricingRule, date time.Time, start, end domain.Clock) (int64, []UnitPrice) {
	if end <= start {
		return 0, nil
	}
	ordered := make([]domain.PricingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	weekday := date.Weekday()
	var total int64
	units := make([]UnitPrice, 0, int(end-start)/domain.SlotMinutes+1)
	for u := start; u < end; u += domain.SlotMinutes {
		ue := u + domain.SlotMinutes
		unit := UnitPrice{Start: u, End: ue, Price: sf.DefaultPrice}
		for _, r := range ordered {
			if p, ok := r.PriceFor(weekday, u, ue); ok {
				unit.Price, unit.RuleID = p, r.ID
				break
			}
		}
		total += unit.Price
		units = append(units, unit)
	}
	return total, units
}
