package policies

// ReplacementPolicy maintains a minimum supply of upcoming first
// calvings by introducing purchased pregnant heifers when the planned
// calvings over the next LookaheadMonths fall short of
// AnnualHeiferRatio * currentMilkingCount.
type ReplacementPolicy struct {
	Enabled           bool
	AnnualHeiferRatio float64
	LookaheadMonths   int
}

// Deficit returns the number of additional pregnant-heifer introductions
// needed this month, given the milking headcount and the count of
// first calvings already planned within the lookahead window. Returns 0
// when the policy is disabled or there is no shortfall.
func (r ReplacementPolicy) Deficit(milkingCount, plannedFirstCalvingsInWindow int) int {
	if !r.Enabled {
		return 0
	}
	target := int(r.AnnualHeiferRatio * float64(milkingCount) * float64(r.LookaheadMonths) / 12.0)
	deficit := target - plannedFirstCalvingsInWindow
	if deficit < 0 {
		return 0
	}
	return deficit
}
