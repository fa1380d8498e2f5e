package policies

import "time"

// PurchaseLog records every purchase decision made during a run, broken
// down by which policy produced it — used to build the PurchasesIn event
// series and to explain a run's assumptions in the result meta block.
type PurchaseLog struct {
	Manual      []PurchaseEntry
	AutoCounter []PurchaseEntry
	AutoForecast []PurchaseEntry
}

// PurchaseEntry is one dated purchase decision.
type PurchaseEntry struct {
	Date  time.Time
	Count int
}

func (l *PurchaseLog) record(kind *[]PurchaseEntry, date time.Time, count int) {
	if count <= 0 {
		return
	}
	*kind = append(*kind, PurchaseEntry{Date: date, Count: count})
}

// PurchasePolicy is implemented by exactly one of ManualPurchasePolicy,
// AutoCounterPurchasePolicy, AutoForecastPurchasePolicy — a closed,
// tagged-variant set rather than an open interface hierarchy.
type PurchasePolicy interface {
	// PurchasesToday returns the number of pregnant heifers to buy on
	// today's date, recording the decision to log.
	PurchasesToday(today time.Time, log *PurchaseLog, ctx PurchaseContext) int
	// OnAdded notifies the policy that the herd gained an animal
	// (birth or purchase), for policies that track a running balance.
	OnAdded()
	// OnRemoved notifies the policy that the herd lost an animal
	// (cull), for policies that track a running balance.
	OnRemoved()
	// Kind identifies the variant, used in the result meta block.
	Kind() string
}

// PurchaseContext carries the read-only state a purchase policy needs to
// make today's decision, without giving it write access to the live herd.
type PurchaseContext struct {
	MilkingCount       int
	ForecastMilkingAt  func(leadTimeDays int) int
}

// ManualPurchasePolicy consumes a fixed, date-keyed plan.
type ManualPurchasePolicy struct {
	PlanByDate map[string]int // key: "2006-01-02"
}

func (p *ManualPurchasePolicy) PurchasesToday(today time.Time, log *PurchaseLog, _ PurchaseContext) int {
	n := p.PlanByDate[today.Format("2006-01-02")]
	log.record(&log.Manual, today, n)
	return n
}

func (p *ManualPurchasePolicy) OnAdded()   {}
func (p *ManualPurchasePolicy) OnRemoved() {}
func (p *ManualPurchasePolicy) Kind() string { return "manual" }

// AutoCounterPurchasePolicy runs a signed balance incremented on every
// addition (birth or purchase) and decremented on every removal (cull);
// on each month-start, if the balance is negative, it buys enough
// pregnant heifers to bring the balance back to zero.
type AutoCounterPurchasePolicy struct {
	balance int
}

func (p *AutoCounterPurchasePolicy) PurchasesToday(today time.Time, log *PurchaseLog, _ PurchaseContext) int {
	if today.Day() != 1 || p.balance >= 0 {
		return 0
	}
	n := -p.balance
	p.balance = 0
	log.record(&log.AutoCounter, today, n)
	return n
}

func (p *AutoCounterPurchasePolicy) OnAdded()   { p.balance++ }
func (p *AutoCounterPurchasePolicy) OnRemoved() { p.balance-- }
func (p *AutoCounterPurchasePolicy) Kind() string { return "auto_counter" }

// AutoForecastPurchasePolicy projects the milking headcount LeadTimeDays
// ahead (by replaying planned transitions without mutating the live
// herd — see simulator.ForecastMilkingCount) and buys enough pregnant
// heifers to keep that projection at or above TargetMilking + Buffer,
// capped at MaxBuy per month.
type AutoForecastPurchasePolicy struct {
	TargetMilking int
	Buffer        int
	LeadTimeDays  int
	MaxBuy        int
}

func (p *AutoForecastPurchasePolicy) PurchasesToday(today time.Time, log *PurchaseLog, ctx PurchaseContext) int {
	if today.Day() != 1 {
		return 0
	}
	projection := ctx.ForecastMilkingAt(p.LeadTimeDays)
	need := p.TargetMilking + p.Buffer - projection
	if need <= 0 {
		return 0
	}
	if p.MaxBuy > 0 && need > p.MaxBuy {
		need = p.MaxBuy
	}
	log.record(&log.AutoForecast, today, need)
	return need
}

func (p *AutoForecastPurchasePolicy) OnAdded()   {}
func (p *AutoForecastPurchasePolicy) OnRemoved() {}
func (p *AutoForecastPurchasePolicy) Kind() string { return "auto_forecast" }
