package escrow

import (
	"context"
	"fmt"
)

// Service contains the domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// RegisterUser creates a staff account (builder or admin), rejecting
// duplicate emails.
func (service *Service) RegisterUser(ctx context.Context, input UserInput) (User, error) {
	input.CreatedUnixUTC = service.nowFn()
	var created User
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		user, err := transactionStore.InsertUser(ctx, input)
		if err != nil {
			return err
		}
		created = user
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRegisterUser,
		ActorID:   created.UserID,
		Error:     operationError,
	})
	return created, operationError
}

// RegisterBuyer creates a buyer account, rejecting duplicate emails.
func (service *Service) RegisterBuyer(ctx context.Context, input BuyerInput) (Buyer, error) {
	input.CreatedUnixUTC = service.nowFn()
	var created Buyer
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		buyer, err := transactionStore.InsertBuyer(ctx, input)
		if err != nil {
			return err
		}
		created = buyer
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationRegisterBuyer,
		ActorID:   created.BuyerID,
		Error:     operationError,
	})
	return created, operationError
}

// AuthenticateUser looks up a staff account by email for credential checks.
func (service *Service) AuthenticateUser(ctx context.Context, email string) (User, error) {
	normalizedEmail, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	return service.store.GetUserByEmail(ctx, normalizedEmail)
}

// AuthenticateBuyer looks up a buyer account by email for credential checks.
func (service *Service) AuthenticateBuyer(ctx context.Context, email string) (Buyer, error) {
	normalizedEmail, err := normalizeEmail(email)
	if err != nil {
		return Buyer{}, err
	}
	return service.store.GetBuyerByEmail(ctx, normalizedEmail)
}

// CreateProject registers a new development for a builder.
func (service *Service) CreateProject(ctx context.Context, input ProjectInput) (Project, error) {
	input.CreatedUnixUTC = service.nowFn()
	var created Project
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		project, err := transactionStore.InsertProject(ctx, input)
		if err != nil {
			return err
		}
		created = project
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateProject,
		ActorID:   input.BuilderID,
		ProjectID: created.ProjectID,
		Error:     operationError,
	})
	return created, operationError
}

// AddUnit adds one sellable unit to a project. The unit code must be unique
// within the project.
func (service *Service) AddUnit(ctx context.Context, input UnitInput) (Unit, error) {
	input.CreatedUnixUTC = service.nowFn()
	var created Unit
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetProject(ctx, input.ProjectID); err != nil {
			return err
		}
		unit, err := transactionStore.InsertUnit(ctx, input)
		if err != nil {
			return err
		}
		created = unit
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationAddUnit,
		ProjectID: input.ProjectID,
		UnitID:    created.UnitID,
		Error:     operationError,
	})
	return created, operationError
}

// BookUnit reserves a unit for a buyer. The public unit code is unique only
// within a project, so the caller names the project and the code is resolved
// inside it. The amount must cover the unit price, and the unit must not
// already carry an active booking; the store enforces the
// at-most-one-booking invariant with a unique index so a racing duplicate
// fails instead of double-applying.
func (service *Service) BookUnit(ctx context.Context, buyerID string, projectID string, unitCode string, amount PositiveAmount, date string) (Booking, error) {
	normalizedProjectID, err := requireID(projectID, ErrInvalidProjectID)
	if err != nil {
		return Booking{}, err
	}
	var created Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		unit, err := transactionStore.GetUnitByCode(ctx, normalizedProjectID, unitCode)
		if err != nil {
			return err
		}
		if amount.Value().LessThan(unit.Price) {
			return fmt.Errorf("%w: booking %s below price %s", ErrAmountBelowPrice, amount.Value().String(), unit.Price.String())
		}
		input, err := NewBookingInput(unit.UnitID, buyerID, amount.Value(), date)
		if err != nil {
			return err
		}
		input.CreatedUnixUTC = service.nowFn()
		booking, err := transactionStore.InsertBooking(ctx, input)
		if err != nil {
			return err
		}
		created = booking
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationBookUnit,
		ActorID:   buyerID,
		BookingID: created.BookingID,
		Error:     operationError,
	})
	return created, operationError
}

// RecordPayment inserts a payment transaction for a unit, independent of
// whether a booking exists yet. The unit code is resolved within the named
// project. The transaction starts unmatched.
func (service *Service) RecordPayment(ctx context.Context, buyerID string, projectID string, unitCode string, amount PositiveAmount, date string, method PaymentMethod, metadataJSON string) (Transaction, error) {
	normalizedProjectID, err := requireID(projectID, ErrInvalidProjectID)
	if err != nil {
		return Transaction{}, err
	}
	var created Transaction
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		unit, err := transactionStore.GetUnitByCode(ctx, normalizedProjectID, unitCode)
		if err != nil {
			return err
		}
		input, err := NewTransactionInput(unit.UnitID, buyerID, amount.Value(), date, method, metadataJSON)
		if err != nil {
			return err
		}
		input.CreatedUnixUTC = service.nowFn()
		transaction, err := transactionStore.InsertTransaction(ctx, input)
		if err != nil {
			return err
		}
		created = transaction
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationRecordPayment,
		ActorID:       buyerID,
		TransactionID: created.TransactionID,
		Error:         operationError,
	})
	return created, operationError
}

// MatchTransaction binds one unmatched transaction to one unmatched booking.
// Both sides are re-validated inside the transaction; the store's unique
// index on the booking reference rejects a racing duplicate match. Matching
// is one-way: there is no unmatch operation.
func (service *Service) MatchTransaction(ctx context.Context, transactionID string, bookingID string) error {
	normalizedTransactionID, err := requireID(transactionID, ErrInvalidTransactionID)
	if err != nil {
		return err
	}
	normalizedBookingID, err := requireID(bookingID, ErrInvalidBookingID)
	if err != nil {
		return err
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		transaction, err := transactionStore.GetTransaction(ctx, normalizedTransactionID)
		if err != nil {
			return err
		}
		if transaction.Matched() {
			return ErrTransactionAlreadyMatched
		}
		if _, err := transactionStore.GetBooking(ctx, normalizedBookingID); err != nil {
			return err
		}
		return transactionStore.BindTransactionToBooking(ctx, normalizedTransactionID, normalizedBookingID)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationMatchTransaction,
		TransactionID: normalizedTransactionID,
		BookingID:     normalizedBookingID,
		Error:         operationError,
	})
	return operationError
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
