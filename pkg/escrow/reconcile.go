package escrow

import "github.com/shopspring/decimal"

// The reconciliation engine. Every function here is a pure fold over the
// snapshot it receives: no I/O, no clock, no hidden state. Callers fetch a
// fresh snapshot from the store and recompute after every successful match.

// Unmatched returns the transactions with no booking reference.
func Unmatched(transactions []Transaction) []Transaction {
	unmatched := make([]Transaction, 0, len(transactions))
	for _, transaction := range transactions {
		if !transaction.Matched() {
			unmatched = append(unmatched, transaction)
		}
	}
	return unmatched
}

// Matched returns the transactions bound to a booking. A transaction whose
// booking reference points at a missing booking still counts as matched.
func Matched(transactions []Transaction) []Transaction {
	matched := make([]Transaction, 0, len(transactions))
	for _, transaction := range transactions {
		if transaction.Matched() {
			matched = append(matched, transaction)
		}
	}
	return matched
}

// MatchedBookingIDs returns the set of booking ids already claimed by a
// matched transaction.
func MatchedBookingIDs(transactions []Transaction) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, transaction := range transactions {
		if transaction.Matched() {
			ids[*transaction.BookingID] = struct{}{}
		}
	}
	return ids
}

// AvailableForMatch returns the bookings that may still receive a match:
// those whose id is not already claimed by a matched transaction. This is
// the candidate list offered when matching an unmatched transaction.
func AvailableForMatch(bookings []Booking, transactions []Transaction) []Booking {
	claimed := MatchedBookingIDs(transactions)
	available := make([]Booking, 0, len(bookings))
	for _, booking := range bookings {
		if _, taken := claimed[booking.BookingID]; !taken {
			available = append(available, booking)
		}
	}
	return available
}

// UnitStatusOf derives the tri-state status of a unit: available when no
// booking references it, unpaid when its booking is not yet matched by any
// transaction, paid otherwise.
func UnitStatusOf(unit Unit, bookings []Booking, transactions []Transaction) UnitStatus {
	var unitBooking *Booking
	for index := range bookings {
		if bookings[index].UnitID == unit.UnitID {
			unitBooking = &bookings[index]
			break
		}
	}
	if unitBooking == nil {
		return UnitStatusAvailable
	}
	claimed := MatchedBookingIDs(transactions)
	if _, paid := claimed[unitBooking.BookingID]; paid {
		return UnitStatusPaid
	}
	return UnitStatusUnpaid
}

// BookedUnitIDs returns the set of unit ids with an active booking.
func BookedUnitIDs(bookings []Booking) map[string]struct{} {
	booked := make(map[string]struct{}, len(bookings))
	for _, booking := range bookings {
		booked[booking.UnitID] = struct{}{}
	}
	return booked
}

// ProjectSummary aggregates one project's units, bookings, and unmatched
// transactions.
type ProjectSummary struct {
	ProjectID             string
	UnitCount             int
	BookingCount          int
	TotalBookingAmount    decimal.Decimal
	UnmatchedTransactions int
}

// DashboardSummary aggregates a whole scope (one builder or the platform).
type DashboardSummary struct {
	TotalUnits            int
	UnitsBooked           int
	TotalBookingAmount    decimal.Decimal
	UnmatchedTransactions int
}

// SummarizeProjects groups the snapshot by project. Units attach directly
// through their project reference; bookings and transactions attach
// transitively through their unit. Transactions on unknown units are
// dropped rather than misattributed.
func SummarizeProjects(snapshot Snapshot) map[string]ProjectSummary {
	summaries := make(map[string]ProjectSummary)
	projectByUnit := make(map[string]string, len(snapshot.Units))
	for _, unit := range snapshot.Units {
		projectByUnit[unit.UnitID] = unit.ProjectID
		summary := summaryFor(summaries, unit.ProjectID)
		summary.UnitCount++
		summaries[unit.ProjectID] = summary
	}
	for _, booking := range snapshot.Bookings {
		projectID, known := projectByUnit[booking.UnitID]
		if !known {
			continue
		}
		summary := summaryFor(summaries, projectID)
		summary.BookingCount++
		summary.TotalBookingAmount = summary.TotalBookingAmount.Add(booking.Amount)
		summaries[projectID] = summary
	}
	for _, transaction := range snapshot.Transactions {
		if transaction.Matched() {
			continue
		}
		projectID, known := projectByUnit[transaction.UnitID]
		if !known {
			continue
		}
		summary := summaryFor(summaries, projectID)
		summary.UnmatchedTransactions++
		summaries[projectID] = summary
	}
	return summaries
}

// Summarize folds the whole snapshot into one dashboard row.
func Summarize(snapshot Snapshot) DashboardSummary {
	summary := DashboardSummary{
		TotalUnits:         len(snapshot.Units),
		TotalBookingAmount: decimal.Zero,
	}
	knownUnits := make(map[string]struct{}, len(snapshot.Units))
	for _, unit := range snapshot.Units {
		knownUnits[unit.UnitID] = struct{}{}
	}
	for _, booking := range snapshot.Bookings {
		if _, known := knownUnits[booking.UnitID]; !known {
			continue
		}
		summary.UnitsBooked++
		summary.TotalBookingAmount = summary.TotalBookingAmount.Add(booking.Amount)
	}
	for _, transaction := range snapshot.Transactions {
		if transaction.Matched() {
			continue
		}
		if _, known := knownUnits[transaction.UnitID]; !known {
			continue
		}
		summary.UnmatchedTransactions++
	}
	return summary
}

func summaryFor(summaries map[string]ProjectSummary, projectID string) ProjectSummary {
	summary, present := summaries[projectID]
	if !present {
		summary = ProjectSummary{ProjectID: projectID, TotalBookingAmount: decimal.Zero}
	}
	return summary
}
