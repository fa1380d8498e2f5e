package simulator

import (
	"math/rand"
	"time"

	"github.com/dairyforecast/herdsim/internal/herd"
	"github.com/dairyforecast/herdsim/internal/policies"
)

// dayCounters accumulates the event counts a snapshot reports since the
// previous snapshot (SPEC_FULL.md §4.3 step 6).
type dayCounters struct {
	calvings, dryoffs, culls, purchasesIn, heiferIntros int
}

// Simulation is one self-contained Monte Carlo run: an animal population,
// an event queue, a simulated clock, and the policies/samplers driving
// it. A Simulation never crosses goroutines once started.
type Simulation struct {
	Animals    map[int]*herd.Animal
	nextID     int
	ReportDate time.Time
	EndDate    time.Time
	Cfg        ModelConfig
	Pol        Policies
	RNG        *rand.Rand
	PurchaseLog *policies.PurchaseLog

	// EventLog records every transition this run schedules, draining at
	// each monthly snapshot into Snapshot.RawEvents. nil on the shadow
	// Simulation a forecast projection builds, which must not record
	// anything.
	EventLog *herd.EventQueue

	counters dayCounters
}

// logEvent appends to EventLog when one is attached (it is absent on the
// throwaway Simulation a forecast projection builds).
func (s *Simulation) logEvent(date time.Time, kind herd.EventKind, animalID int) {
	if s.EventLog == nil {
		return
	}
	s.EventLog.Schedule(date, kind, animalID, true, nil)
}

// NewSimulation constructs a run over the given initial population,
// scheduling the end date as the horizonMonths-th month boundary after
// reportDate.
func NewSimulation(animals []*herd.Animal, reportDate time.Time, horizonMonths int, cfg ModelConfig, pol Policies, rng *rand.Rand) *Simulation {
	s := &Simulation{
		Animals:     make(map[int]*herd.Animal, len(animals)),
		ReportDate:  reportDate,
		Cfg:         cfg,
		Pol:         pol,
		RNG:         rng,
		PurchaseLog: &policies.PurchaseLog{},
		EventLog:    herd.NewEventQueue(),
	}
	maxID := 0
	for _, a := range animals {
		s.Animals[a.ID] = a
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	s.nextID = maxID + 1

	end := firstMonthStartAfter(reportDate)
	for i := 1; i < horizonMonths; i++ {
		end = end.AddDate(0, 1, 0)
	}
	s.EndDate = end

	s.seedInitialState()
	return s
}

// firstMonthStartAfter returns the first day-of-month-1 strictly after d's
// month (i.e. the start of the month following d's own month).
func firstMonthStartAfter(d time.Time) time.Time {
	firstOfThisMonth := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	return firstOfThisMonth.AddDate(0, 1, 0)
}

// seedInitialState fills in anything the dataset derivation left
// unresolved: a planned dry date for animals bootstrapped straight into
// PREGNANT, and a scheduled cull date for every non-archived animal.
func (s *Simulation) seedInitialState() {
	for _, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		if a.Status == herd.StatusPregnant && !a.HasPlannedDry {
			s.assignPlannedDry(a)
		}
		a.ScheduledCullDate, a.HasScheduledCullDate = s.Pol.Culling.SampleCullDate(s.RNG, a, s.ReportDate, s.EndDate)
	}
}

func (s *Simulation) assignPlannedDry(a *herd.Animal) {
	dryDays := s.Cfg.ConceptionToDrySampler.Sample(s.RNG)
	planned := s.ReportDate.AddDate(0, 0, dryDays)
	if a.HasPlannedCalving && !planned.Before(a.PlannedCalving) {
		planned = a.PlannedCalving.AddDate(0, 0, -1)
	}
	a.PlannedDry, a.HasPlannedDry = planned, true
}

// Run advances the clock from ReportDate to EndDate one day at a time and
// returns one Snapshot per month boundary plus the initial state.
func (s *Simulation) Run() []Snapshot {
	first := s.snapshot(s.ReportDate)
	if s.EventLog != nil {
		first.RawEvents = s.EventLog.PopBefore(s.ReportDate)
	}
	snapshots := []Snapshot{first}
	s.counters = dayCounters{}

	day := s.ReportDate.AddDate(0, 0, 1)
	for !day.After(s.EndDate) {
		s.stepDay(day)
		if day.Day() == 1 {
			snap := s.snapshot(day)
			if s.EventLog != nil {
				snap.RawEvents = s.EventLog.PopBefore(day)
			}
			snapshots = append(snapshots, snap)
			s.counters = dayCounters{}
		}
		day = day.AddDate(0, 0, 1)
	}
	return snapshots
}

// stepDay runs one simulated day per SPEC_FULL.md §4.3 "Daily tick".
func (s *Simulation) stepDay(today time.Time) {
	s.processPurchases(today)
	s.runCullingTrials(today)
	for _, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		s.tickOne(a, today, &s.counters)
	}
	for _, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		if a.Status.Milking() {
			a.DaysInMilk++
		}
		a.DaysInStatus++
	}
}

func (s *Simulation) processPurchases(today time.Time) {
	ctx := policies.PurchaseContext{
		MilkingCount:      s.countMilking(),
		ForecastMilkingAt: func(leadDays int) int { return s.ForecastMilkingCount(today, leadDays) },
	}
	n := s.Pol.Purchase.PurchasesToday(today, s.PurchaseLog, ctx)
	for i := 0; i < n; i++ {
		s.buyPregnantHeifer(today)
	}
	s.counters.purchasesIn += n

	if s.Pol.Replacement.Enabled && today.Day() == 1 {
		windowEnd := today.AddDate(0, s.Pol.Replacement.LookaheadMonths, 0)
		planned := 0
		for _, a := range s.Animals {
			if !a.IsArchived() && a.HasPlannedCalving && a.Lactation == 0 &&
				!a.PlannedCalving.Before(today) && a.PlannedCalving.Before(windowEnd) {
				planned++
			}
		}
		deficit := s.Pol.Replacement.Deficit(s.countMilking(), planned)
		for i := 0; i < deficit; i++ {
			calving := today.AddDate(0, 0, 30*(1+i%s.Pol.Replacement.LookaheadMonths))
			s.introduceHeifer(today, calving)
		}
		s.counters.heiferIntros += deficit
	}
}

func (s *Simulation) buyPregnantHeifer(today time.Time) {
	lo, hi := s.Cfg.PurchasedDaysToCalvingLo, s.Cfg.PurchasedDaysToCalvingHi
	span := hi - lo
	daysToCalving := lo
	if span > 0 {
		daysToCalving += s.RNG.Intn(span + 1)
	}
	calving := today.AddDate(0, 0, daysToCalving)

	ageSpan := s.Pol.HeiferInsem.MaxAgeDays - s.Pol.HeiferInsem.MinAgeDays
	firstInsemAge := s.Pol.HeiferInsem.MinAgeDays
	if ageSpan > 0 {
		firstInsemAge += s.RNG.Intn(ageSpan + 1)
	}
	conception := calving.AddDate(0, 0, -gestationDays)
	birth := conception.AddDate(0, 0, -firstInsemAge)

	a := &herd.Animal{
		ID:                s.nextID,
		BirthDate:         birth,
		Status:            herd.StatusPregnantHeifer,
		PlannedCalving:    calving,
		HasPlannedCalving: true,
		Purchased:         true,
	}
	s.nextID++
	a.ScheduledCullDate, a.HasScheduledCullDate = s.Pol.Culling.SampleCullDate(s.RNG, a, today, s.EndDate)
	s.Animals[a.ID] = a
	s.Pol.Purchase.OnAdded()
	s.logEvent(today, herd.EventPurchaseIn, a.ID)
}

func (s *Simulation) introduceHeifer(today, calving time.Time) {
	conception := calving.AddDate(0, 0, -gestationDays)
	a := &herd.Animal{
		ID:                s.nextID,
		BirthDate:         conception.AddDate(0, 0, -s.Pol.HeiferInsem.MinAgeDays),
		Status:            herd.StatusPregnantHeifer,
		PlannedCalving:    calving,
		HasPlannedCalving: true,
		Purchased:         true,
	}
	s.nextID++
	a.ScheduledCullDate, a.HasScheduledCullDate = s.Pol.Culling.SampleCullDate(s.RNG, a, today, s.EndDate)
	s.Animals[a.ID] = a
	s.Pol.Purchase.OnAdded()
	s.logEvent(today, herd.EventHeiferIntro, a.ID)
}

func (s *Simulation) runCullingTrials(today time.Time) {
	for _, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		scheduled := a.HasScheduledCullDate && !a.ScheduledCullDate.After(today)
		p := s.Pol.Culling.CombinedDailyHazard(a, today, scheduled)
		if s.RNG.Float64() < p {
			a.Status = herd.StatusArchived
			a.ArchiveDate, a.HasArchiveDate = today, true
			s.counters.culls++
			s.Pol.Purchase.OnRemoved()
			s.logEvent(today, herd.EventCull, a.ID)
		}
	}
}

// tickOne dispatches the per-status transition for one surviving animal.
// counters may be nil when called from a forecast projection, which
// advances state without recording events.
func (s *Simulation) tickOne(a *herd.Animal, today time.Time, counters *dayCounters) {
	switch a.Status {
	case herd.StatusHeifer:
		s.tickHeifer(a, today)
	case herd.StatusPregnantHeifer:
		s.tickPregnantHeifer(a, today, counters)
	case herd.StatusFresh:
		s.tickFresh(a, today)
	case herd.StatusReadyForBreeding:
		s.tickReadyForBreeding(a, today, counters)
	case herd.StatusPregnant:
		s.tickPregnant(a, today, counters)
	case herd.StatusDry:
		s.tickDry(a, today, counters)
	}
}

func (s *Simulation) tickHeifer(a *herd.Animal, today time.Time) {
	if !a.HasPlannedFirstInsem {
		target := s.Pol.HeiferInsem.SampleFirstSuccessInsem(s.RNG, a.BirthDate, today)
		a.PlannedFirstInsem, a.HasPlannedFirstInsem = target, true
		return
	}
	if !today.Before(a.PlannedFirstInsem) {
		gestation := s.Cfg.GestationSampler.Sample(s.RNG)
		a.Status = herd.StatusPregnantHeifer
		a.PlannedCalving, a.HasPlannedCalving = today.AddDate(0, 0, gestation), true
		s.logEvent(today, herd.EventSuccessInsem, a.ID)
	}
}

func (s *Simulation) tickPregnantHeifer(a *herd.Animal, today time.Time, counters *dayCounters) {
	if a.HasPlannedCalving && !today.Before(a.PlannedCalving) {
		s.doCalving(a, today, counters)
	}
}

func (s *Simulation) tickFresh(a *herd.Animal, today time.Time) {
	if a.DaysInStatus < s.Cfg.VoluntaryWaitingPeriod {
		return
	}
	a.Status = herd.StatusReadyForBreeding
	a.DaysInStatus = 0

	anchor := today
	if a.HasLastCalving {
		anchor = a.LastCalving
	}
	target := s.Pol.ServicePeriod.SampleSuccessInsemDate(s.RNG, anchor, today)
	a.PlannedConception, a.HasPlannedConception = target, true
}

func (s *Simulation) tickReadyForBreeding(a *herd.Animal, today time.Time, counters *dayCounters) {
	if a.DaysInStatus > s.Cfg.MaxServicePeriodAfterVWP {
		a.Status = herd.StatusArchived
		a.ArchiveDate, a.HasArchiveDate = today, true
		if counters != nil {
			counters.culls++
		}
		s.Pol.Purchase.OnRemoved()
		return
	}
	if !a.HasPlannedConception || today.Before(a.PlannedConception) {
		return
	}
	a.Status = herd.StatusPregnant
	a.SuccessInsem, a.HasSuccessInsem = today, true
	a.DaysInStatus = 0
	s.logEvent(today, herd.EventSuccessInsem, a.ID)

	gestation := s.Cfg.GestationSampler.Sample(s.RNG)
	a.PlannedCalving, a.HasPlannedCalving = today.AddDate(0, 0, gestation), true

	s.assignPlannedDry(a)
}

func (s *Simulation) tickPregnant(a *herd.Animal, today time.Time, counters *dayCounters) {
	if a.HasPlannedDry && !today.Before(a.PlannedDry) {
		a.Status = herd.StatusDry
		a.DaysInStatus = 0
		if counters != nil {
			counters.dryoffs++
			s.logEvent(today, herd.EventDryoff, a.ID)
		}
	}
}

func (s *Simulation) tickDry(a *herd.Animal, today time.Time, counters *dayCounters) {
	if a.HasPlannedCalving && !today.Before(a.PlannedCalving) {
		s.doCalving(a, today, counters)
	}
}

// doCalving resets a cow's lactation-scoped fields, bumps its lactation
// number, and (with probability HeiferBirthProb) spawns a newborn heifer.
func (s *Simulation) doCalving(a *herd.Animal, today time.Time, counters *dayCounters) {
	if counters != nil {
		counters.calvings++
		s.logEvent(today, herd.EventCalving, a.ID)
	}
	a.Lactation++
	a.LastCalving, a.HasLastCalving = today, true
	a.Status = herd.StatusFresh
	a.DaysInMilk = 0
	a.DaysInStatus = 0
	a.HasPlannedCalving = false
	a.HasPlannedConception = false
	a.HasPlannedDry = false
	a.HasSuccessInsem = false
	a.HasPlannedFirstInsem = false

	if s.RNG.Float64() >= s.Cfg.HeiferBirthProb {
		return
	}
	newborn := &herd.Animal{ID: s.nextID, BirthDate: today, Status: herd.StatusHeifer}
	s.nextID++
	newborn.ScheduledCullDate, newborn.HasScheduledCullDate = s.Pol.Culling.SampleCullDate(s.RNG, newborn, today, s.EndDate)
	s.Animals[newborn.ID] = newborn
	s.Pol.Purchase.OnAdded()
}

func (s *Simulation) countMilking() int {
	n := 0
	for _, a := range s.Animals {
		if !a.IsArchived() && a.Status.Milking() {
			n++
		}
	}
	return n
}

// snapshot reads the current population into a Snapshot, attaching and
// then clearing the counters accumulated since the previous snapshot.
func (s *Simulation) snapshot(date time.Time) Snapshot {
	snap := Snapshot{Date: date}
	var dimSum, milking int
	for _, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		switch {
		case a.Status == herd.StatusHeifer:
			snap.Heifer++
		case a.Status == herd.StatusPregnantHeifer:
			snap.PregnantHeifer++
		case a.Status.Milking():
			snap.Milking++
			milking++
			dimSum += a.DaysInMilk
		case a.Status == herd.StatusDry:
			snap.Dry++
		}
	}
	if milking > 0 {
		snap.AvgDaysInMilk = float64(dimSum) / float64(milking)
	} else {
		snap.AvgDaysInMilk = 0.0
	}

	snap.Calvings = s.counters.calvings
	snap.Dryoffs = s.counters.dryoffs
	snap.Culls = s.counters.culls
	snap.PurchasesIn = s.counters.purchasesIn
	snap.HeiferIntros = s.counters.heiferIntros
	return snap
}

// ForecastMilkingCount projects the milking headcount leadDays after asOf
// by replaying every live animal's planned transitions on a private clone
// of the population, without mutating the live run. No purchases,
// culling trials, or births are applied during the projection — it
// answers "how many of today's cows will still be milking", not "how big
// will the herd be".
func (s *Simulation) ForecastMilkingCount(asOf time.Time, leadDays int) int {
	tmpRNG := rand.New(rand.NewSource(s.RNG.Int63()))
	clones := make(map[int]*herd.Animal, len(s.Animals))
	for id, a := range s.Animals {
		if a.IsArchived() {
			continue
		}
		clones[id] = a.Clone()
	}

	shadow := &Simulation{
		Animals: clones,
		nextID:  s.nextID,
		Cfg:     s.Cfg,
		Pol:     s.Pol,
		RNG:     tmpRNG,
	}

	day := asOf
	end := asOf.AddDate(0, 0, leadDays)
	for day.Before(end) {
		day = day.AddDate(0, 0, 1)
		for _, a := range clones {
			if a.IsArchived() {
				continue
			}
			shadow.tickOne(a, day, nil)
		}
		for _, a := range clones {
			if !a.IsArchived() && a.Status.Milking() {
				a.DaysInMilk++
			}
			if !a.IsArchived() {
				a.DaysInStatus++
			}
		}
	}

	n := 0
	for _, a := range clones {
		if !a.IsArchived() && a.Status.Milking() {
			n++
		}
	}
	return n
}
