package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents the users table (builder and admin accounts).
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"not null;index:uniq_users_email,unique"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (user *User) BeforeCreate(tx *gorm.DB) error {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	return nil
}

// Buyer represents the buyers table.
type Buyer struct {
	BuyerID      string    `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	NationalID   string    `gorm:"not null"`
	PhoneNumber  string    `gorm:""`
	Email        string    `gorm:"not null;index:uniq_buyers_email,unique"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Buyer) TableName() string { return "buyers" }

func (buyer *Buyer) BeforeCreate(tx *gorm.DB) error {
	if buyer.BuyerID == "" {
		buyer.BuyerID = uuid.NewString()
	}
	return nil
}

// Project represents the projects table.
type Project struct {
	ProjectID    string    `gorm:"type:uuid;primaryKey"`
	BuilderID    string    `gorm:"type:uuid;not null;index:idx_projects_builder"`
	Name         string    `gorm:"not null"`
	Location     string    `gorm:"not null"`
	PlannedUnits int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

func (project *Project) BeforeCreate(tx *gorm.DB) error {
	if project.ProjectID == "" {
		project.ProjectID = uuid.NewString()
	}
	return nil
}

// Unit represents the units table. The public code is unique per project.
type Unit struct {
	UnitID    string          `gorm:"type:uuid;primaryKey"`
	ProjectID string          `gorm:"type:uuid;not null;index:uniq_units_project_code,unique,priority:1"`
	Code      string          `gorm:"not null;index:uniq_units_project_code,unique,priority:2"`
	Floor     int             `gorm:"not null"`
	Area      decimal.Decimal `gorm:"type:numeric;not null"`
	Price     decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (Unit) TableName() string { return "units" }

func (unit *Unit) BeforeCreate(tx *gorm.DB) error {
	if unit.UnitID == "" {
		unit.UnitID = uuid.NewString()
	}
	return nil
}

// Booking represents the bookings table. The unique index on unit_id is the
// authoritative at-most-one-booking-per-unit guard.
type Booking struct {
	BookingID string          `gorm:"type:uuid;primaryKey"`
	UnitID    string          `gorm:"type:uuid;not null;index:uniq_bookings_unit,unique"`
	BuyerID   string          `gorm:"type:uuid;not null;index:idx_bookings_buyer"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Date      string          `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

func (booking *Booking) BeforeCreate(tx *gorm.DB) error {
	if booking.BookingID == "" {
		booking.BookingID = uuid.NewString()
	}
	return nil
}

// Transaction represents the transactions table. The unique index on the
// nullable booking_id is the authoritative at-most-one-match-per-booking
// guard; NULLs do not collide, so unmatched transactions coexist freely.
type Transaction struct {
	TransactionID string          `gorm:"type:uuid;primaryKey"`
	UnitID        string          `gorm:"type:uuid;not null;index:idx_transactions_unit"`
	BuyerID       string          `gorm:"type:uuid;not null;index:idx_transactions_buyer"`
	Amount        decimal.Decimal `gorm:"type:numeric;not null"`
	Date          string          `gorm:"not null"`
	Method        string          `gorm:"not null"`
	BookingID     *string         `gorm:"type:uuid;index:uniq_transactions_booking,unique"`
	Metadata      datatypes.JSON  `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}
