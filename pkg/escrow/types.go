package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Role identifies a staff account kind. Buyers authenticate separately.
type Role string

const (
	RoleBuilder Role = "builder"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a staff role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(raw)) {
	case RoleBuilder:
		return RoleBuilder, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// String returns the role literal.
func (role Role) String() string {
	return string(role)
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank transfer"
)

// ParsePaymentMethod validates a payment method string.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.TrimSpace(raw)) {
	case PaymentMethodCash:
		return PaymentMethodCash, nil
	case PaymentMethodBankTransfer:
		return PaymentMethodBankTransfer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
	}
}

// String returns the payment method literal.
func (method PaymentMethod) String() string {
	return string(method)
}

// UnitStatus is the derived tri-state of a unit. It is always computed from
// the booking/transaction join and never stored.
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusUnpaid    UnitStatus = "unpaid"
	UnitStatusPaid      UnitStatus = "paid"
)

// String returns the status literal.
func (status UnitStatus) String() string {
	return string(status)
}

// User is a staff account (builder or bank admin).
type User struct {
	UserID         string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	CreatedUnixUTC int64
}

// Buyer is a purchaser account.
type Buyer struct {
	BuyerID        string
	Name           string
	NationalID     string
	PhoneNumber    string
	Email          string
	PasswordHash   string
	CreatedUnixUTC int64
}

// Project is a builder development containing units.
type Project struct {
	ProjectID      string
	BuilderID      string
	Name           string
	Location       string
	PlannedUnits   int
	CreatedUnixUTC int64
}

// Unit is a sellable apartment within a project. Booked status is derived.
type Unit struct {
	UnitID         string
	ProjectID      string
	Code           string
	Floor          int
	Area           decimal.Decimal
	Price          decimal.Decimal
	CreatedUnixUTC int64
}

// Booking reserves a unit for a buyer. At most one booking per unit.
type Booking struct {
	BookingID      string
	UnitID         string
	BuyerID        string
	Amount         decimal.Decimal
	Date           string
	CreatedUnixUTC int64
}

// Transaction is a recorded payment. BookingID stays nil until the
// transaction is matched; matching is one-way.
type Transaction struct {
	TransactionID  string
	UnitID         string
	BuyerID        string
	Amount         decimal.Decimal
	Date           string
	Method         PaymentMethod
	BookingID      *string
	MetadataJSON   string
	CreatedUnixUTC int64
}

// Matched reports whether the transaction has been bound to a booking.
func (transaction Transaction) Matched() bool {
	return transaction.BookingID != nil
}

// Snapshot is the reconciliation engine input: the entity sets for one scope.
type Snapshot struct {
	Units        []Unit
	Bookings     []Booking
	Transactions []Transaction
}

// PositiveAmount is a validated, strictly positive monetary amount.
type PositiveAmount struct {
	value decimal.Decimal
}

// NewPositiveAmount validates an amount and ensures it is strictly positive.
func NewPositiveAmount(raw decimal.Decimal) (PositiveAmount, error) {
	if !raw.IsPositive() {
		return PositiveAmount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return PositiveAmount{value: raw}, nil
}

// Value returns the underlying decimal.
func (amount PositiveAmount) Value() decimal.Decimal {
	return amount.value
}

// ProjectInput carries validated fields for a new project. CreatedUnixUTC is
// stamped by the service clock before insert; a zero value lets the store
// fall back to its own clock.
type ProjectInput struct {
	BuilderID      string
	Name           string
	Location       string
	PlannedUnits   int
	CreatedUnixUTC int64
}

// NewProjectInput validates project creation fields.
func NewProjectInput(builderID string, name string, location string, plannedUnits int) (ProjectInput, error) {
	normalizedBuilderID, err := requireID(builderID, ErrInvalidUserID)
	if err != nil {
		return ProjectInput{}, err
	}
	normalizedName := strings.TrimSpace(name)
	if normalizedName == "" {
		return ProjectInput{}, fmt.Errorf("%w: name is required", ErrInvalidProjectInput)
	}
	normalizedLocation := strings.TrimSpace(location)
	if normalizedLocation == "" {
		return ProjectInput{}, fmt.Errorf("%w: location is required", ErrInvalidProjectInput)
	}
	if plannedUnits < 0 {
		return ProjectInput{}, fmt.Errorf("%w: planned units must not be negative", ErrInvalidProjectInput)
	}
	return ProjectInput{
		BuilderID:    normalizedBuilderID,
		Name:         normalizedName,
		Location:     normalizedLocation,
		PlannedUnits: plannedUnits,
	}, nil
}

// UnitInput carries validated fields for a new unit.
type UnitInput struct {
	ProjectID      string
	Code           string
	Floor          int
	Area           decimal.Decimal
	Price          decimal.Decimal
	CreatedUnixUTC int64
}

// NewUnitInput validates unit creation fields.
func NewUnitInput(projectID string, code string, floor int, area decimal.Decimal, price decimal.Decimal) (UnitInput, error) {
	normalizedProjectID, err := requireID(projectID, ErrInvalidProjectID)
	if err != nil {
		return UnitInput{}, err
	}
	normalizedCode := strings.TrimSpace(code)
	if normalizedCode == "" {
		return UnitInput{}, fmt.Errorf("%w: empty value", ErrInvalidUnitCode)
	}
	if !area.IsPositive() {
		return UnitInput{}, fmt.Errorf("%w: area must be greater than zero", ErrInvalidAmount)
	}
	if !price.IsPositive() {
		return UnitInput{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidAmount)
	}
	return UnitInput{
		ProjectID: normalizedProjectID,
		Code:      normalizedCode,
		Floor:     floor,
		Area:      area,
		Price:     price,
	}, nil
}

// BookingInput carries validated fields for a new booking.
type BookingInput struct {
	UnitID         string
	BuyerID        string
	Amount         decimal.Decimal
	Date           string
	CreatedUnixUTC int64
}

// NewBookingInput validates booking creation fields. The amount-versus-price
// check happens in the service where the unit record is available.
func NewBookingInput(unitID string, buyerID string, amount decimal.Decimal, date string) (BookingInput, error) {
	normalizedUnitID, err := requireID(unitID, ErrInvalidUnitID)
	if err != nil {
		return BookingInput{}, err
	}
	normalizedBuyerID, err := requireID(buyerID, ErrInvalidBuyerID)
	if err != nil {
		return BookingInput{}, err
	}
	if !amount.IsPositive() {
		return BookingInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	normalizedDate := strings.TrimSpace(date)
	if normalizedDate == "" {
		return BookingInput{}, fmt.Errorf("%w: date is required", ErrInvalidBookingInput)
	}
	return BookingInput{
		UnitID:  normalizedUnitID,
		BuyerID: normalizedBuyerID,
		Amount:  amount,
		Date:    normalizedDate,
	}, nil
}

// TransactionInput carries validated fields for a new payment transaction.
type TransactionInput struct {
	UnitID         string
	BuyerID        string
	Amount         decimal.Decimal
	Date           string
	Method         PaymentMethod
	MetadataJSON   string
	CreatedUnixUTC int64
}

// NewTransactionInput validates transaction creation fields (defaulting
// metadata to "{}" for empty inputs).
func NewTransactionInput(unitID string, buyerID string, amount decimal.Decimal, date string, method PaymentMethod, metadataJSON string) (TransactionInput, error) {
	normalizedUnitID, err := requireID(unitID, ErrInvalidUnitID)
	if err != nil {
		return TransactionInput{}, err
	}
	normalizedBuyerID, err := requireID(buyerID, ErrInvalidBuyerID)
	if err != nil {
		return TransactionInput{}, err
	}
	if !amount.IsPositive() {
		return TransactionInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	normalizedDate := strings.TrimSpace(date)
	if normalizedDate == "" {
		return TransactionInput{}, fmt.Errorf("%w: date is required", ErrInvalidTransactionInput)
	}
	if _, err := ParsePaymentMethod(method.String()); err != nil {
		return TransactionInput{}, err
	}
	normalizedMetadata := strings.TrimSpace(metadataJSON)
	if normalizedMetadata == "" {
		normalizedMetadata = "{}"
	}
	if !json.Valid([]byte(normalizedMetadata)) {
		return TransactionInput{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return TransactionInput{
		UnitID:       normalizedUnitID,
		BuyerID:      normalizedBuyerID,
		Amount:       amount,
		Date:         normalizedDate,
		Method:       method,
		MetadataJSON: normalizedMetadata,
	}, nil
}

// UserInput carries validated fields for a new staff account. The password
// arrives already hashed; the domain never sees plaintext credentials.
type UserInput struct {
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	CreatedUnixUTC int64
}

// NewUserInput validates staff registration fields.
func NewUserInput(name string, email string, passwordHash string, role Role) (UserInput, error) {
	normalizedName := strings.TrimSpace(name)
	if normalizedName == "" {
		return UserInput{}, fmt.Errorf("%w: name is required", ErrInvalidUserInput)
	}
	normalizedEmail, err := normalizeEmail(email)
	if err != nil {
		return UserInput{}, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return UserInput{}, fmt.Errorf("%w: password hash is required", ErrInvalidUserInput)
	}
	if _, err := ParseRole(role.String()); err != nil {
		return UserInput{}, err
	}
	return UserInput{
		Name:         normalizedName,
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

// BuyerInput carries validated fields for a new buyer account.
type BuyerInput struct {
	Name           string
	NationalID     string
	PhoneNumber    string
	Email          string
	PasswordHash   string
	CreatedUnixUTC int64
}

// NewBuyerInput validates buyer registration fields. National id format
// rules are enforced at the transport boundary.
func NewBuyerInput(name string, nationalID string, phoneNumber string, email string, passwordHash string) (BuyerInput, error) {
	normalizedName := strings.TrimSpace(name)
	if normalizedName == "" {
		return BuyerInput{}, fmt.Errorf("%w: name is required", ErrInvalidBuyerInput)
	}
	normalizedNationalID := strings.TrimSpace(nationalID)
	if normalizedNationalID == "" {
		return BuyerInput{}, fmt.Errorf("%w: national id is required", ErrInvalidBuyerInput)
	}
	normalizedEmail, err := normalizeEmail(email)
	if err != nil {
		return BuyerInput{}, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return BuyerInput{}, fmt.Errorf("%w: password hash is required", ErrInvalidBuyerInput)
	}
	return BuyerInput{
		Name:         normalizedName,
		NationalID:   normalizedNationalID,
		PhoneNumber:  strings.TrimSpace(phoneNumber),
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
	}, nil
}

func requireID(raw string, invalidErr error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", invalidErr)
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return trimmed, nil
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	InsertUser(ctx context.Context, input UserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListBuilders(ctx context.Context) ([]User, error)

	InsertBuyer(ctx context.Context, input BuyerInput) (Buyer, error)
	GetBuyerByEmail(ctx context.Context, email string) (Buyer, error)
	ListBuyers(ctx context.Context) ([]Buyer, error)

	InsertProject(ctx context.Context, input ProjectInput) (Project, error)
	GetProject(ctx context.Context, projectID string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListProjectsByBuilder(ctx context.Context, builderID string) ([]Project, error)

	InsertUnit(ctx context.Context, input UnitInput) (Unit, error)
	GetUnitByCode(ctx context.Context, projectID string, code string) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	ListUnitsByProject(ctx context.Context, projectID string) ([]Unit, error)
	ListUnitsByBuilder(ctx context.Context, builderID string) ([]Unit, error)

	InsertBooking(ctx context.Context, input BookingInput) (Booking, error)
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	ListBookingsByBuyer(ctx context.Context, buyerID string) ([]Booking, error)
	ListBookingsByBuilder(ctx context.Context, builderID string) ([]Booking, error)

	InsertTransaction(ctx context.Context, input TransactionInput) (Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (Transaction, error)
	ListTransactions(ctx context.Context) ([]Transaction, error)
	ListTransactionsByBuyer(ctx context.Context, buyerID string) ([]Transaction, error)
	ListTransactionsByBuilder(ctx context.Context, builderID string) ([]Transaction, error)
	BindTransactionToBooking(ctx context.Context, transactionID string, bookingID string) error
}
