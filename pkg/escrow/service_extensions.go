package escrow

import (
	"context"
	"fmt"
	"strings"
)

// AddUnitBatch creates a run of units on one floor sharing a code prefix
// (PREFIX-1 .. PREFIX-n). All units share the given area and price. The
// whole batch commits or none of it does.
func (service *Service) AddUnitBatch(ctx context.Context, projectID string, codePrefix string, floor int, count int, area, price PositiveAmount) ([]Unit, error) {
	normalizedPrefix := strings.TrimSpace(codePrefix)
	if normalizedPrefix == "" {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidUnitCode)
	}
	if count <= 0 || count > maxUnitBatchSize {
		return nil, fmt.Errorf("%w: batch size must be between 1 and %d", ErrInvalidProjectInput, maxUnitBatchSize)
	}
	var created []Unit
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetProject(ctx, projectID); err != nil {
			return err
		}
		units := make([]Unit, 0, count)
		for index := 1; index <= count; index++ {
			code := normalizedPrefix + unitBatchCodeSeparator + fmt.Sprintf("%d", index)
			input, err := NewUnitInput(projectID, code, floor, area.Value(), price.Value())
			if err != nil {
				return err
			}
			input.CreatedUnixUTC = service.nowFn()
			unit, err := transactionStore.InsertUnit(ctx, input)
			if err != nil {
				return err
			}
			units = append(units, unit)
		}
		created = units
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationAddUnitBatch,
		ProjectID: projectID,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return created, nil
}

// Project returns one project by id.
func (service *Service) Project(ctx context.Context, projectID string) (Project, error) {
	normalizedID, err := requireID(projectID, ErrInvalidProjectID)
	if err != nil {
		return Project{}, err
	}
	return service.store.GetProject(ctx, normalizedID)
}

// Projects returns every project on the platform.
func (service *Service) Projects(ctx context.Context) ([]Project, error) {
	return service.store.ListProjects(ctx)
}

// ProjectsByBuilder returns the projects owned by one builder.
func (service *Service) ProjectsByBuilder(ctx context.Context, builderID string) ([]Project, error) {
	normalizedID, err := requireID(builderID, ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	return service.store.ListProjectsByBuilder(ctx, normalizedID)
}

// ProjectsByName filters all projects by a case-insensitive name substring.
func (service *Service) ProjectsByName(ctx context.Context, name string) ([]Project, error) {
	projects, err := service.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return projects, nil
	}
	filtered := make([]Project, 0, len(projects))
	for _, project := range projects {
		if strings.Contains(strings.ToLower(project.Name), needle) {
			filtered = append(filtered, project)
		}
	}
	return filtered, nil
}

// UnitsByProject returns a project's units.
func (service *Service) UnitsByProject(ctx context.Context, projectID string) ([]Unit, error) {
	normalizedID, err := requireID(projectID, ErrInvalidProjectID)
	if err != nil {
		return nil, err
	}
	return service.store.ListUnitsByProject(ctx, normalizedID)
}

// Units returns every unit on the platform.
func (service *Service) Units(ctx context.Context) ([]Unit, error) {
	return service.store.ListUnits(ctx)
}

// Buyers returns every registered buyer account.
func (service *Service) Buyers(ctx context.Context) ([]Buyer, error) {
	return service.store.ListBuyers(ctx)
}

// Builders returns every registered builder account.
func (service *Service) Builders(ctx context.Context) ([]User, error) {
	return service.store.ListBuilders(ctx)
}

// Bookings returns every booking on the platform.
func (service *Service) Bookings(ctx context.Context) ([]Booking, error) {
	return service.store.ListBookings(ctx)
}

// BookingsByBuyer returns one buyer's bookings.
func (service *Service) BookingsByBuyer(ctx context.Context, buyerID string) ([]Booking, error) {
	normalizedID, err := requireID(buyerID, ErrInvalidBuyerID)
	if err != nil {
		return nil, err
	}
	return service.store.ListBookingsByBuyer(ctx, normalizedID)
}

// BookingsByBuilder returns the bookings under one builder's projects.
func (service *Service) BookingsByBuilder(ctx context.Context, builderID string) ([]Booking, error) {
	normalizedID, err := requireID(builderID, ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	return service.store.ListBookingsByBuilder(ctx, normalizedID)
}

// Transactions returns every transaction on the platform.
func (service *Service) Transactions(ctx context.Context) ([]Transaction, error) {
	return service.store.ListTransactions(ctx)
}

// TransactionsByBuyer returns one buyer's transactions.
func (service *Service) TransactionsByBuyer(ctx context.Context, buyerID string) ([]Transaction, error) {
	normalizedID, err := requireID(buyerID, ErrInvalidBuyerID)
	if err != nil {
		return nil, err
	}
	return service.store.ListTransactionsByBuyer(ctx, normalizedID)
}

// TransactionsByBuilder returns the transactions under one builder's projects.
func (service *Service) TransactionsByBuilder(ctx context.Context, builderID string) ([]Transaction, error) {
	normalizedID, err := requireID(builderID, ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	return service.store.ListTransactionsByBuilder(ctx, normalizedID)
}

// BuilderSnapshot fetches the reconciliation input scoped to one builder.
func (service *Service) BuilderSnapshot(ctx context.Context, builderID string) (Snapshot, error) {
	normalizedID, err := requireID(builderID, ErrInvalidUserID)
	if err != nil {
		return Snapshot{}, err
	}
	units, err := service.store.ListUnitsByBuilder(ctx, normalizedID)
	if err != nil {
		return Snapshot{}, err
	}
	bookings, err := service.store.ListBookingsByBuilder(ctx, normalizedID)
	if err != nil {
		return Snapshot{}, err
	}
	transactions, err := service.store.ListTransactionsByBuilder(ctx, normalizedID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Units: units, Bookings: bookings, Transactions: transactions}, nil
}

// BuilderDashboard folds a builder's snapshot into the dashboard summary.
func (service *Service) BuilderDashboard(ctx context.Context, builderID string) (DashboardSummary, error) {
	snapshot, err := service.BuilderSnapshot(ctx, builderID)
	if err != nil {
		return DashboardSummary{}, err
	}
	return Summarize(snapshot), nil
}
