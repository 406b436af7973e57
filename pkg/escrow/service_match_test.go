package escrow

import (
	"context"
	"errors"
	"testing"
)

type matchFixture struct {
	store   *stubStore
	service *Service
	buyer   Buyer
	unit    Unit
	booking Booking
}

func newMatchFixture(test *testing.T) matchFixture {
	test.Helper()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()

	builderInput, err := NewUserInput("Skyline Builders", "builder@example.com", "hash", RoleBuilder)
	if err != nil {
		test.Fatalf("builder input: %v", err)
	}
	builder, err := service.RegisterUser(ctx, builderInput)
	if err != nil {
		test.Fatalf("register builder: %v", err)
	}

	projectInput, err := NewProjectInput(builder.UserID, "Marina Heights", "Dubai Marina", 10)
	if err != nil {
		test.Fatalf("project input: %v", err)
	}
	project, err := service.CreateProject(ctx, projectInput)
	if err != nil {
		test.Fatalf("create project: %v", err)
	}

	unitInput, err := NewUnitInput(project.ProjectID, "U-101", 1, mustDecimal("85.5"), mustDecimal("50000"))
	if err != nil {
		test.Fatalf("unit input: %v", err)
	}
	unit, err := service.AddUnit(ctx, unitInput)
	if err != nil {
		test.Fatalf("add unit: %v", err)
	}

	buyerInput, err := NewBuyerInput("Amina", "784199012345678", "+971500000000", "amina@example.com", "hash")
	if err != nil {
		test.Fatalf("buyer input: %v", err)
	}
	buyer, err := service.RegisterBuyer(ctx, buyerInput)
	if err != nil {
		test.Fatalf("register buyer: %v", err)
	}

	booking, err := service.BookUnit(ctx, buyer.BuyerID, project.ProjectID, unit.Code, mustAmount(test, "50000"), "2024-03-01")
	if err != nil {
		test.Fatalf("book unit: %v", err)
	}
	return matchFixture{store: store, service: service, buyer: buyer, unit: unit, booking: booking}
}

func (fixture matchFixture) recordPayment(test *testing.T, amount string) Transaction {
	test.Helper()
	transaction, err := fixture.service.RecordPayment(
		context.Background(),
		fixture.buyer.BuyerID,
		fixture.unit.ProjectID,
		fixture.unit.Code,
		mustAmount(test, amount),
		"2024-03-02",
		PaymentMethodBankTransfer,
		"",
	)
	if err != nil {
		test.Fatalf("record payment: %v", err)
	}
	return transaction
}

func TestMatchBindsTransactionAndDerivesPaidStatus(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)
	ctx := context.Background()
	transaction := fixture.recordPayment(test, "50000")

	if err := fixture.service.MatchTransaction(ctx, transaction.TransactionID, fixture.booking.BookingID); err != nil {
		test.Fatalf("match: %v", err)
	}

	refetched, err := fixture.store.GetTransaction(ctx, transaction.TransactionID)
	if err != nil {
		test.Fatalf("refetch transaction: %v", err)
	}
	if !refetched.Matched() || *refetched.BookingID != fixture.booking.BookingID {
		test.Fatalf("expected transaction bound to %s, got %+v", fixture.booking.BookingID, refetched.BookingID)
	}

	bookings, _ := fixture.store.ListBookings(ctx)
	transactions, _ := fixture.store.ListTransactions(ctx)
	if status := UnitStatusOf(fixture.unit, bookings, transactions); status != UnitStatusPaid {
		test.Fatalf("expected unit paid after match, got %s", status)
	}
	for _, candidate := range AvailableForMatch(bookings, transactions) {
		if candidate.BookingID == fixture.booking.BookingID {
			test.Fatalf("matched booking still offered as candidate")
		}
	}
}

func TestMatchIsOneWayAndRejectsSecondClaim(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)
	ctx := context.Background()
	first := fixture.recordPayment(test, "50000")
	second := fixture.recordPayment(test, "25000")

	if err := fixture.service.MatchTransaction(ctx, first.TransactionID, fixture.booking.BookingID); err != nil {
		test.Fatalf("first match: %v", err)
	}

	err := fixture.service.MatchTransaction(ctx, second.TransactionID, fixture.booking.BookingID)
	if !errors.Is(err, ErrBookingAlreadyMatched) {
		test.Fatalf("expected ErrBookingAlreadyMatched, got %v", err)
	}

	err = fixture.service.MatchTransaction(ctx, first.TransactionID, fixture.booking.BookingID)
	if !errors.Is(err, ErrTransactionAlreadyMatched) {
		test.Fatalf("expected ErrTransactionAlreadyMatched on rematch, got %v", err)
	}
}

func TestMatchUnknownIdentifiers(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)
	ctx := context.Background()
	transaction := fixture.recordPayment(test, "50000")

	err := fixture.service.MatchTransaction(ctx, "no-such-transaction", fixture.booking.BookingID)
	if !errors.Is(err, ErrTransactionNotFound) {
		test.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	err = fixture.service.MatchTransaction(ctx, transaction.TransactionID, "no-such-booking")
	if !errors.Is(err, ErrBookingNotFound) {
		test.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestBookUnitRejectsAmountBelowPrice(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()

	projectInput, _ := NewProjectInput("builder-1", "Palm Gate", "Abu Dhabi", 4)
	project, err := service.CreateProject(ctx, projectInput)
	if err != nil {
		test.Fatalf("create project: %v", err)
	}
	unitInput, _ := NewUnitInput(project.ProjectID, "PG-1", 2, mustDecimal("120"), mustDecimal("75000"))
	if _, err := service.AddUnit(ctx, unitInput); err != nil {
		test.Fatalf("add unit: %v", err)
	}

	_, err = service.BookUnit(ctx, "buyer-1", project.ProjectID, "PG-1", mustAmount(test, "74999.99"), "2024-05-01")
	if !errors.Is(err, ErrAmountBelowPrice) {
		test.Fatalf("expected ErrAmountBelowPrice, got %v", err)
	}
}

func TestBookUnitRejectsSecondBooking(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)

	_, err := fixture.service.BookUnit(context.Background(), "another-buyer", fixture.unit.ProjectID, fixture.unit.Code, mustAmount(test, "60000"), "2024-04-01")
	if !errors.Is(err, ErrUnitAlreadyBooked) {
		test.Fatalf("expected ErrUnitAlreadyBooked, got %v", err)
	}
}

func TestBookUnitUnknownCode(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)

	_, err := service.BookUnit(context.Background(), "buyer-1", "project-1", "GHOST-9", mustAmount(test, "1000"), "2024-05-01")
	if !errors.Is(err, ErrUnitNotFound) {
		test.Fatalf("expected ErrUnitNotFound, got %v", err)
	}
}

func TestBookUnitResolvesCodeWithinProject(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()

	// Two builders reuse the same public code for different units.
	firstInput, _ := NewProjectInput("builder-1", "Marina Heights", "Dubai Marina", 4)
	firstProject, err := service.CreateProject(ctx, firstInput)
	if err != nil {
		test.Fatalf("create first project: %v", err)
	}
	secondInput, _ := NewProjectInput("builder-2", "Palm Gate", "Abu Dhabi", 4)
	secondProject, err := service.CreateProject(ctx, secondInput)
	if err != nil {
		test.Fatalf("create second project: %v", err)
	}
	unitInput, _ := NewUnitInput(firstProject.ProjectID, "D-1", 1, mustDecimal("85.5"), mustDecimal("50000"))
	firstUnit, err := service.AddUnit(ctx, unitInput)
	if err != nil {
		test.Fatalf("add first unit: %v", err)
	}
	unitInput, _ = NewUnitInput(secondProject.ProjectID, "D-1", 1, mustDecimal("70"), mustDecimal("40000"))
	secondUnit, err := service.AddUnit(ctx, unitInput)
	if err != nil {
		test.Fatalf("add second unit: %v", err)
	}

	booking, err := service.BookUnit(ctx, "buyer-1", secondProject.ProjectID, "D-1", mustAmount(test, "40000"), "2024-03-01")
	if err != nil {
		test.Fatalf("book unit: %v", err)
	}
	if booking.UnitID != secondUnit.UnitID {
		test.Fatalf("booking resolved to unit %s, want %s", booking.UnitID, secondUnit.UnitID)
	}

	transaction, err := service.RecordPayment(ctx, "buyer-1", firstProject.ProjectID, "D-1", mustAmount(test, "50000"), "2024-03-02", PaymentMethodCash, "")
	if err != nil {
		test.Fatalf("record payment: %v", err)
	}
	if transaction.UnitID != firstUnit.UnitID {
		test.Fatalf("payment resolved to unit %s, want %s", transaction.UnitID, firstUnit.UnitID)
	}
}

func TestServiceStampsCreationTimestamps(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)
	transaction := fixture.recordPayment(test, "50000")

	if fixture.booking.CreatedUnixUTC != stubClockUnix {
		test.Fatalf("booking timestamp %d, want %d", fixture.booking.CreatedUnixUTC, stubClockUnix)
	}
	if transaction.CreatedUnixUTC != stubClockUnix {
		test.Fatalf("transaction timestamp %d, want %d", transaction.CreatedUnixUTC, stubClockUnix)
	}
	if fixture.buyer.CreatedUnixUTC != stubClockUnix {
		test.Fatalf("buyer timestamp %d, want %d", fixture.buyer.CreatedUnixUTC, stubClockUnix)
	}
	if fixture.unit.CreatedUnixUTC != stubClockUnix {
		test.Fatalf("unit timestamp %d, want %d", fixture.unit.CreatedUnixUTC, stubClockUnix)
	}
}

func TestBuilderDashboardAggregates(test *testing.T) {
	test.Parallel()
	fixture := newMatchFixture(test)
	ctx := context.Background()

	// One paid unit, one with an unmatched payment, one untouched.
	builderID := fixture.store.projects[fixture.unit.ProjectID].BuilderID

	unitInput, _ := NewUnitInput(fixture.unit.ProjectID, "U-102", 1, mustDecimal("85.5"), mustDecimal("40000"))
	secondUnit, err := fixture.service.AddUnit(ctx, unitInput)
	if err != nil {
		test.Fatalf("add second unit: %v", err)
	}
	unitInput, _ = NewUnitInput(fixture.unit.ProjectID, "U-103", 1, mustDecimal("85.5"), mustDecimal("40000"))
	if _, err := fixture.service.AddUnit(ctx, unitInput); err != nil {
		test.Fatalf("add third unit: %v", err)
	}

	if _, err := fixture.service.BookUnit(ctx, fixture.buyer.BuyerID, fixture.unit.ProjectID, secondUnit.Code, mustAmount(test, "41000"), "2024-03-05"); err != nil {
		test.Fatalf("book second unit: %v", err)
	}

	paid := fixture.recordPayment(test, "50000")
	if err := fixture.service.MatchTransaction(ctx, paid.TransactionID, fixture.booking.BookingID); err != nil {
		test.Fatalf("match: %v", err)
	}
	if _, err := fixture.service.RecordPayment(ctx, fixture.buyer.BuyerID, fixture.unit.ProjectID, secondUnit.Code, mustAmount(test, "41000"), "2024-03-06", PaymentMethodCash, ""); err != nil {
		test.Fatalf("record unmatched payment: %v", err)
	}

	summary, err := fixture.service.BuilderDashboard(ctx, builderID)
	if err != nil {
		test.Fatalf("dashboard: %v", err)
	}
	if summary.TotalUnits != 3 {
		test.Fatalf("expected 3 units, got %d", summary.TotalUnits)
	}
	if summary.UnitsBooked != 2 {
		test.Fatalf("expected 2 bookings, got %d", summary.UnitsBooked)
	}
	if summary.UnmatchedTransactions != 1 {
		test.Fatalf("expected 1 unmatched transaction, got %d", summary.UnmatchedTransactions)
	}
	if !summary.TotalBookingAmount.Equal(mustDecimal("91000")) {
		test.Fatalf("expected booking amount 91000, got %s", summary.TotalBookingAmount)
	}
}

func TestAddUnitBatchCreatesSequentialCodes(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()

	projectInput, _ := NewProjectInput("builder-1", "Creek Rise", "Dubai Creek", 20)
	project, err := service.CreateProject(ctx, projectInput)
	if err != nil {
		test.Fatalf("create project: %v", err)
	}

	units, err := service.AddUnitBatch(ctx, project.ProjectID, "CR3", 3, 4, mustAmount(test, "95"), mustAmount(test, "64000"))
	if err != nil {
		test.Fatalf("add batch: %v", err)
	}
	if len(units) != 4 {
		test.Fatalf("expected 4 units, got %d", len(units))
	}
	if units[0].Code != "CR3-1" || units[3].Code != "CR3-4" {
		test.Fatalf("unexpected codes: %s .. %s", units[0].Code, units[3].Code)
	}

	// Re-running the same batch collides on codes and commits nothing new.
	if _, err := service.AddUnitBatch(ctx, project.ProjectID, "CR3", 3, 4, mustAmount(test, "95"), mustAmount(test, "64000")); !errors.Is(err, ErrDuplicateUnitCode) {
		test.Fatalf("expected ErrDuplicateUnitCode, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	ctx := context.Background()

	input, _ := NewUserInput("First", "same@example.com", "hash", RoleBuilder)
	if _, err := service.RegisterUser(ctx, input); err != nil {
		test.Fatalf("register: %v", err)
	}
	duplicate, _ := NewUserInput("Second", "same@example.com", "hash", RoleBuilder)
	if _, err := service.RegisterUser(ctx, duplicate); !errors.Is(err, ErrDuplicateEmail) {
		test.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
