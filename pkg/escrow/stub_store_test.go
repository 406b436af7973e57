package escrow

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

// stubStore is an in-memory Store for service tests. It enforces the same
// uniqueness invariants the real store enforces with unique indexes.
type stubStore struct {
	users        map[string]User
	buyers       map[string]Buyer
	projects     map[string]Project
	units        map[string]Unit
	bookings     map[string]Booking
	transactions map[string]Transaction
	nextID       int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:        make(map[string]User),
		buyers:       make(map[string]Buyer),
		projects:     make(map[string]Project),
		units:        make(map[string]Unit),
		bookings:     make(map[string]Booking),
		transactions: make(map[string]Transaction),
	}
}

func (store *stubStore) allocateID(prefix string) string {
	store.nextID++
	return fmt.Sprintf("%s-%d", prefix, store.nextID)
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) InsertUser(_ context.Context, input UserInput) (User, error) {
	for _, user := range store.users {
		if user.Email == input.Email {
			return User{}, ErrDuplicateEmail
		}
	}
	user := User{
		UserID:         store.allocateID("user"),
		Name:           input.Name,
		Email:          input.Email,
		PasswordHash:   input.PasswordHash,
		Role:           input.Role,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.users[user.UserID] = user
	return user, nil
}

func (store *stubStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, user := range store.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (store *stubStore) ListBuilders(_ context.Context) ([]User, error) {
	builders := make([]User, 0, len(store.users))
	for _, user := range store.users {
		if user.Role == RoleBuilder {
			builders = append(builders, user)
		}
	}
	return builders, nil
}

func (store *stubStore) InsertBuyer(_ context.Context, input BuyerInput) (Buyer, error) {
	for _, buyer := range store.buyers {
		if buyer.Email == input.Email {
			return Buyer{}, ErrDuplicateEmail
		}
	}
	buyer := Buyer{
		BuyerID:        store.allocateID("buyer"),
		Name:           input.Name,
		NationalID:     input.NationalID,
		PhoneNumber:    input.PhoneNumber,
		Email:          input.Email,
		PasswordHash:   input.PasswordHash,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.buyers[buyer.BuyerID] = buyer
	return buyer, nil
}

func (store *stubStore) GetBuyerByEmail(_ context.Context, email string) (Buyer, error) {
	for _, buyer := range store.buyers {
		if buyer.Email == email {
			return buyer, nil
		}
	}
	return Buyer{}, ErrBuyerNotFound
}

func (store *stubStore) ListBuyers(_ context.Context) ([]Buyer, error) {
	buyers := make([]Buyer, 0, len(store.buyers))
	for _, buyer := range store.buyers {
		buyers = append(buyers, buyer)
	}
	return buyers, nil
}

func (store *stubStore) InsertProject(_ context.Context, input ProjectInput) (Project, error) {
	project := Project{
		ProjectID:      store.allocateID("project"),
		BuilderID:      input.BuilderID,
		Name:           input.Name,
		Location:       input.Location,
		PlannedUnits:   input.PlannedUnits,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.projects[project.ProjectID] = project
	return project, nil
}

func (store *stubStore) GetProject(_ context.Context, projectID string) (Project, error) {
	project, present := store.projects[projectID]
	if !present {
		return Project{}, ErrProjectNotFound
	}
	return project, nil
}

func (store *stubStore) ListProjects(_ context.Context) ([]Project, error) {
	projects := make([]Project, 0, len(store.projects))
	for _, project := range store.projects {
		projects = append(projects, project)
	}
	return projects, nil
}

func (store *stubStore) ListProjectsByBuilder(_ context.Context, builderID string) ([]Project, error) {
	projects := make([]Project, 0)
	for _, project := range store.projects {
		if project.BuilderID == builderID {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (store *stubStore) InsertUnit(_ context.Context, input UnitInput) (Unit, error) {
	for _, unit := range store.units {
		if unit.ProjectID == input.ProjectID && unit.Code == input.Code {
			return Unit{}, ErrDuplicateUnitCode
		}
	}
	unit := Unit{
		UnitID:         store.allocateID("unit"),
		ProjectID:      input.ProjectID,
		Code:           input.Code,
		Floor:          input.Floor,
		Area:           input.Area,
		Price:          input.Price,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.units[unit.UnitID] = unit
	return unit, nil
}

func (store *stubStore) GetUnitByCode(_ context.Context, projectID string, code string) (Unit, error) {
	for _, unit := range store.units {
		if unit.ProjectID == projectID && unit.Code == code {
			return unit, nil
		}
	}
	return Unit{}, ErrUnitNotFound
}

func (store *stubStore) ListUnits(_ context.Context) ([]Unit, error) {
	units := make([]Unit, 0, len(store.units))
	for _, unit := range store.units {
		units = append(units, unit)
	}
	return units, nil
}

func (store *stubStore) ListUnitsByProject(_ context.Context, projectID string) ([]Unit, error) {
	units := make([]Unit, 0)
	for _, unit := range store.units {
		if unit.ProjectID == projectID {
			units = append(units, unit)
		}
	}
	return units, nil
}

func (store *stubStore) ListUnitsByBuilder(_ context.Context, builderID string) ([]Unit, error) {
	units := make([]Unit, 0)
	for _, unit := range store.units {
		project, present := store.projects[unit.ProjectID]
		if present && project.BuilderID == builderID {
			units = append(units, unit)
		}
	}
	return units, nil
}

func (store *stubStore) InsertBooking(_ context.Context, input BookingInput) (Booking, error) {
	for _, booking := range store.bookings {
		if booking.UnitID == input.UnitID {
			return Booking{}, ErrUnitAlreadyBooked
		}
	}
	booking := Booking{
		BookingID:      store.allocateID("booking"),
		UnitID:         input.UnitID,
		BuyerID:        input.BuyerID,
		Amount:         input.Amount,
		Date:           input.Date,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.bookings[booking.BookingID] = booking
	return booking, nil
}

func (store *stubStore) GetBooking(_ context.Context, bookingID string) (Booking, error) {
	booking, present := store.bookings[bookingID]
	if !present {
		return Booking{}, ErrBookingNotFound
	}
	return booking, nil
}

func (store *stubStore) ListBookings(_ context.Context) ([]Booking, error) {
	bookings := make([]Booking, 0, len(store.bookings))
	for _, booking := range store.bookings {
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (store *stubStore) ListBookingsByBuyer(_ context.Context, buyerID string) ([]Booking, error) {
	bookings := make([]Booking, 0)
	for _, booking := range store.bookings {
		if booking.BuyerID == buyerID {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (store *stubStore) ListBookingsByBuilder(_ context.Context, builderID string) ([]Booking, error) {
	bookings := make([]Booking, 0)
	for _, booking := range store.bookings {
		unit, present := store.units[booking.UnitID]
		if !present {
			continue
		}
		project, present := store.projects[unit.ProjectID]
		if present && project.BuilderID == builderID {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (store *stubStore) InsertTransaction(_ context.Context, input TransactionInput) (Transaction, error) {
	transaction := Transaction{
		TransactionID:  store.allocateID("txn"),
		UnitID:         input.UnitID,
		BuyerID:        input.BuyerID,
		Amount:         input.Amount,
		Date:           input.Date,
		Method:         input.Method,
		MetadataJSON:   input.MetadataJSON,
		CreatedUnixUTC: input.CreatedUnixUTC,
	}
	store.transactions[transaction.TransactionID] = transaction
	return transaction, nil
}

func (store *stubStore) GetTransaction(_ context.Context, transactionID string) (Transaction, error) {
	transaction, present := store.transactions[transactionID]
	if !present {
		return Transaction{}, ErrTransactionNotFound
	}
	return transaction, nil
}

func (store *stubStore) ListTransactions(_ context.Context) ([]Transaction, error) {
	transactions := make([]Transaction, 0, len(store.transactions))
	for _, transaction := range store.transactions {
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *stubStore) ListTransactionsByBuyer(_ context.Context, buyerID string) ([]Transaction, error) {
	transactions := make([]Transaction, 0)
	for _, transaction := range store.transactions {
		if transaction.BuyerID == buyerID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (store *stubStore) ListTransactionsByBuilder(_ context.Context, builderID string) ([]Transaction, error) {
	transactions := make([]Transaction, 0)
	for _, transaction := range store.transactions {
		unit, present := store.units[transaction.UnitID]
		if !present {
			continue
		}
		project, present := store.projects[unit.ProjectID]
		if present && project.BuilderID == builderID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (store *stubStore) BindTransactionToBooking(_ context.Context, transactionID string, bookingID string) error {
	transaction, present := store.transactions[transactionID]
	if !present {
		return ErrTransactionNotFound
	}
	for _, other := range store.transactions {
		if other.Matched() && *other.BookingID == bookingID {
			return ErrBookingAlreadyMatched
		}
	}
	bound := bookingID
	transaction.BookingID = &bound
	store.transactions[transactionID] = transaction
	return nil
}

const stubClockUnix int64 = 1700000000

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return stubClockUnix })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustAmount(test *testing.T, raw string) PositiveAmount {
	test.Helper()
	amount, err := NewPositiveAmount(decimal.RequireFromString(raw))
	if err != nil {
		test.Fatalf("amount %q: %v", raw, err)
	}
	return amount
}

func mustDecimal(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}
