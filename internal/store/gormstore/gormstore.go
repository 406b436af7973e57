package gormstore

import (
	"context"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/escrowhq/escrow/pkg/escrow"
)

const (
	defaultMetadataJSON   = "{}"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore    = "store"
	errorSubjectUser       = "user"
	errorSubjectBuyer      = "buyer"
	errorSubjectProject    = "project"
	errorSubjectUnit       = "unit"
	errorSubjectBooking    = "booking"
	errorSubjectTxn        = "transaction"
	errorCodeInsert        = "insert"
	errorCodeDuplicate     = "duplicate"
	errorCodeGet           = "get"
	errorCodeList          = "list"
	errorCodeBind          = "bind"
)

// Store implements escrow.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema for drivers without managed migrations.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Buyer{}, &Project{}, &Unit{}, &Booking{}, &Transaction{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore escrow.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) InsertUser(ctx context.Context, input escrow.UserInput) (escrow.User, error) {
	row := User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role.String(),
		CreatedAt:    rowCreatedAt(input.CreatedUnixUTC),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return escrow.User{}, wrapStoreError(errorSubjectUser, errorCodeDuplicate, escrow.ErrDuplicateEmail)
	}
	if err != nil {
		return escrow.User{}, wrapStoreError(errorSubjectUser, errorCodeInsert, err)
	}
	return mapUser(row)
}

func (store *Store) GetUserByEmail(ctx context.Context, email string) (escrow.User, error) {
	var row User
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, escrow.ErrUserNotFound)
	}
	if err != nil {
		return escrow.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	return mapUser(row)
}

func (store *Store) ListBuilders(ctx context.Context) ([]escrow.User, error) {
	var rows []User
	err := store.db.WithContext(ctx).
		Where("role = ?", escrow.RoleBuilder.String()).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUser, errorCodeList, err)
	}
	users := make([]escrow.User, 0, len(rows))
	for _, row := range rows {
		user, err := mapUser(row)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (store *Store) InsertBuyer(ctx context.Context, input escrow.BuyerInput) (escrow.Buyer, error) {
	row := Buyer{
		Name:         input.Name,
		NationalID:   input.NationalID,
		PhoneNumber:  input.PhoneNumber,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		CreatedAt:    rowCreatedAt(input.CreatedUnixUTC),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return escrow.Buyer{}, wrapStoreError(errorSubjectBuyer, errorCodeDuplicate, escrow.ErrDuplicateEmail)
	}
	if err != nil {
		return escrow.Buyer{}, wrapStoreError(errorSubjectBuyer, errorCodeInsert, err)
	}
	return mapBuyer(row), nil
}

func (store *Store) GetBuyerByEmail(ctx context.Context, email string) (escrow.Buyer, error) {
	var row Buyer
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.Buyer{}, wrapStoreError(errorSubjectBuyer, errorCodeGet, escrow.ErrBuyerNotFound)
	}
	if err != nil {
		return escrow.Buyer{}, wrapStoreError(errorSubjectBuyer, errorCodeGet, err)
	}
	return mapBuyer(row), nil
}

func (store *Store) ListBuyers(ctx context.Context) ([]escrow.Buyer, error) {
	var rows []Buyer
	if err := store.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBuyer, errorCodeList, err)
	}
	buyers := make([]escrow.Buyer, 0, len(rows))
	for _, row := range rows {
		buyers = append(buyers, mapBuyer(row))
	}
	return buyers, nil
}

func (store *Store) InsertProject(ctx context.Context, input escrow.ProjectInput) (escrow.Project, error) {
	row := Project{
		BuilderID:    input.BuilderID,
		Name:         input.Name,
		Location:     input.Location,
		PlannedUnits: input.PlannedUnits,
		CreatedAt:    rowCreatedAt(input.CreatedUnixUTC),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return escrow.Project{}, wrapStoreError(errorSubjectProject, errorCodeInsert, err)
	}
	return mapProject(row), nil
}

func (store *Store) GetProject(ctx context.Context, projectID string) (escrow.Project, error) {
	var row Project
	err := store.db.WithContext(ctx).Where("project_id = ?", projectID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.Project{}, wrapStoreError(errorSubjectProject, errorCodeGet, escrow.ErrProjectNotFound)
	}
	if err != nil {
		return escrow.Project{}, wrapStoreError(errorSubjectProject, errorCodeGet, err)
	}
	return mapProject(row), nil
}

func (store *Store) ListProjects(ctx context.Context) ([]escrow.Project, error) {
	var rows []Project
	if err := store.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectProject, errorCodeList, err)
	}
	return mapProjects(rows), nil
}

func (store *Store) ListProjectsByBuilder(ctx context.Context, builderID string) ([]escrow.Project, error) {
	var rows []Project
	err := store.db.WithContext(ctx).
		Where("builder_id = ?", builderID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectProject, errorCodeList, err)
	}
	return mapProjects(rows), nil
}

func (store *Store) InsertUnit(ctx context.Context, input escrow.UnitInput) (escrow.Unit, error) {
	row := Unit{
		ProjectID: input.ProjectID,
		Code:      input.Code,
		Floor:     input.Floor,
		Area:      input.Area,
		Price:     input.Price,
		CreatedAt: rowCreatedAt(input.CreatedUnixUTC),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return escrow.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeDuplicate, escrow.ErrDuplicateUnitCode)
	}
	if err != nil {
		return escrow.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeInsert, err)
	}
	return mapUnit(row), nil
}

// GetUnitByCode resolves a public unit code within one project. Codes are
// unique per project only, so an unscoped lookup would be ambiguous.
func (store *Store) GetUnitByCode(ctx context.Context, projectID string, code string) (escrow.Unit, error) {
	var row Unit
	err := store.db.WithContext(ctx).Where("project_id = ? AND code = ?", projectID, code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeGet, escrow.ErrUnitNotFound)
	}
	if err != nil {
		return escrow.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeGet, err)
	}
	return mapUnit(row), nil
}

func (store *Store) ListUnits(ctx context.Context) ([]escrow.Unit, error) {
	var rows []Unit
	if err := store.db.WithContext(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows), nil
}

func (store *Store) ListUnitsByProject(ctx context.Context, projectID string) ([]escrow.Unit, error) {
	var rows []Unit
	err := store.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("code").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows), nil
}

func (store *Store) ListUnitsByBuilder(ctx context.Context, builderID string) ([]escrow.Unit, error) {
	var rows []Unit
	err := store.db.WithContext(ctx).
		Joins("JOIN projects ON projects.project_id = units.project_id").
		Where("projects.builder_id = ?", builderID).
		Order("units.code").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows), nil
}

func (store *Store) InsertBooking(ctx context.Context, input escrow.BookingInput) (escrow.Booking, error) {
	row := Booking{
		UnitID:    input.UnitID,
		BuyerID:   input.BuyerID,
		Amount:    input.Amount,
		Date:      input.Date,
		CreatedAt: rowCreatedAt(input.CreatedUnixUTC),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return escrow.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeDuplicate, escrow.ErrUnitAlreadyBooked)
	}
	if err != nil {
		return escrow.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInsert, err)
	}
	return mapBooking(row), nil
}

func (store *Store) GetBooking(ctx context.Context, bookingID string) (escrow.Booking, error) {
	var row Booking
	err := store.db.WithContext(ctx).Where("booking_id = ?", bookingID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, escrow.ErrBookingNotFound)
	}
	if err != nil {
		return escrow.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	return mapBooking(row), nil
}

func (store *Store) ListBookings(ctx context.Context) ([]escrow.Booking, error) {
	var rows []Booking
	if err := store.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows), nil
}

func (store *Store) ListBookingsByBuyer(ctx context.Context, buyerID string) ([]escrow.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows), nil
}

func (store *Store) ListBookingsByBuilder(ctx context.Context, builderID string) ([]escrow.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Joins("JOIN units ON units.unit_id = bookings.unit_id").
		Joins("JOIN projects ON projects.project_id = units.project_id").
		Where("projects.builder_id = ?", builderID).
		Order("bookings.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows), nil
}

func (store *Store) InsertTransaction(ctx context.Context, input escrow.TransactionInput) (escrow.Transaction, error) {
	row := Transaction{
		UnitID:    input.UnitID,
		BuyerID:   input.BuyerID,
		Amount:    input.Amount,
		Date:      input.Date,
		Method:    input.Method.String(),
		Metadata:  datatypesJSON(input.MetadataJSON),
		CreatedAt: rowCreatedAt(input.CreatedUnixUTC),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return escrow.Transaction{}, wrapStoreError(errorSubjectTxn, errorCodeInsert, err)
	}
	return mapTransaction(row)
}

func (store *Store) GetTransaction(ctx context.Context, transactionID string) (escrow.Transaction, error) {
	var row Transaction
	err := store.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return escrow.Transaction{}, wrapStoreError(errorSubjectTxn, errorCodeGet, escrow.ErrTransactionNotFound)
	}
	if err != nil {
		return escrow.Transaction{}, wrapStoreError(errorSubjectTxn, errorCodeGet, err)
	}
	return mapTransaction(row)
}

func (store *Store) ListTransactions(ctx context.Context) ([]escrow.Transaction, error) {
	var rows []Transaction
	if err := store.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectTxn, errorCodeList, err)
	}
	return mapTransactions(rows)
}

func (store *Store) ListTransactionsByBuyer(ctx context.Context, buyerID string) ([]escrow.Transaction, error) {
	var rows []Transaction
	err := store.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTxn, errorCodeList, err)
	}
	return mapTransactions(rows)
}

func (store *Store) ListTransactionsByBuilder(ctx context.Context, builderID string) ([]escrow.Transaction, error) {
	var rows []Transaction
	err := store.db.WithContext(ctx).
		Joins("JOIN units ON units.unit_id = transactions.unit_id").
		Joins("JOIN projects ON projects.project_id = units.project_id").
		Where("projects.builder_id = ?", builderID).
		Order("transactions.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTxn, errorCodeList, err)
	}
	return mapTransactions(rows)
}

// BindTransactionToBooking sets the booking reference on an unmatched
// transaction. The WHERE clause keeps a concurrent rematch from overwriting
// an existing reference, and the unique index on booking_id rejects a second
// claim on the same booking.
func (store *Store) BindTransactionToBooking(ctx context.Context, transactionID string, bookingID string) error {
	result := store.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("transaction_id = ? AND booking_id IS NULL", transactionID).
		Update("booking_id", bookingID)
	if isUniqueViolation(result.Error) {
		return wrapStoreError(errorSubjectTxn, errorCodeDuplicate, escrow.ErrBookingAlreadyMatched)
	}
	if result.Error != nil {
		return wrapStoreError(errorSubjectTxn, errorCodeBind, result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := store.db.WithContext(ctx).Model(&Transaction{}).Where("transaction_id = ?", transactionID).Count(&exists).Error; err != nil {
			return wrapStoreError(errorSubjectTxn, errorCodeBind, err)
		}
		if exists == 0 {
			return wrapStoreError(errorSubjectTxn, errorCodeBind, escrow.ErrTransactionNotFound)
		}
		return wrapStoreError(errorSubjectTxn, errorCodeBind, escrow.ErrTransactionAlreadyMatched)
	}
	return nil
}

func mapUser(row User) (escrow.User, error) {
	role, err := escrow.ParseRole(row.Role)
	if err != nil {
		return escrow.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	return escrow.User{
		UserID:         row.UserID,
		Name:           row.Name,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		Role:           role,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapBuyer(row Buyer) escrow.Buyer {
	return escrow.Buyer{
		BuyerID:        row.BuyerID,
		Name:           row.Name,
		NationalID:     row.NationalID,
		PhoneNumber:    row.PhoneNumber,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}
}

func mapProject(row Project) escrow.Project {
	return escrow.Project{
		ProjectID:      row.ProjectID,
		BuilderID:      row.BuilderID,
		Name:           row.Name,
		Location:       row.Location,
		PlannedUnits:   row.PlannedUnits,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}
}

func mapProjects(rows []Project) []escrow.Project {
	projects := make([]escrow.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, mapProject(row))
	}
	return projects
}

func mapUnit(row Unit) escrow.Unit {
	return escrow.Unit{
		UnitID:         row.UnitID,
		ProjectID:      row.ProjectID,
		Code:           row.Code,
		Floor:          row.Floor,
		Area:           row.Area,
		Price:          row.Price,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}
}

func mapUnits(rows []Unit) []escrow.Unit {
	units := make([]escrow.Unit, 0, len(rows))
	for _, row := range rows {
		units = append(units, mapUnit(row))
	}
	return units
}

func mapBooking(row Booking) escrow.Booking {
	return escrow.Booking{
		BookingID:      row.BookingID,
		UnitID:         row.UnitID,
		BuyerID:        row.BuyerID,
		Amount:         row.Amount,
		Date:           row.Date,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}
}

func mapBookings(rows []Booking) []escrow.Booking {
	bookings := make([]escrow.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, mapBooking(row))
	}
	return bookings
}

func mapTransaction(row Transaction) (escrow.Transaction, error) {
	method, err := escrow.ParsePaymentMethod(row.Method)
	if err != nil {
		return escrow.Transaction{}, wrapStoreError(errorSubjectTxn, errorCodeGet, err)
	}
	return escrow.Transaction{
		TransactionID:  row.TransactionID,
		UnitID:         row.UnitID,
		BuyerID:        row.BuyerID,
		Amount:         row.Amount,
		Date:           row.Date,
		Method:         method,
		BookingID:      row.BookingID,
		MetadataJSON:   string(row.Metadata),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapTransactions(rows []Transaction) ([]escrow.Transaction, error) {
	transactions := make([]escrow.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

// rowCreatedAt prefers the caller-stamped creation time. A zero value means
// the store was used without the service clock, so it falls back to now.
func rowCreatedAt(unix int64) time.Time {
	if unix == 0 {
		return time.Now().UTC()
	}
	return time.Unix(unix, 0).UTC()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func wrapStoreError(subject string, code string, err error) error {
	return escrow.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
