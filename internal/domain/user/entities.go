package user

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("user not found")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	LimitMaxTotalLoanAmount      = "maxTotalLoanAmount"
	LimitMaxActiveLoans          = "maxActiveLoans"
	LimitMaxLoanAmountPerRequest = "maxLoanAmountPerRequest"
)

// LoanLimits caps lending per user. A zero value disables that cap.
type LoanLimits struct {
	MaxTotalLoanAmount      decimal.Decimal `gorm:"column:max_total_loan_amount;type:decimal(18,2);not null;default:50000" json:"max_total_loan_amount"`
	MaxActiveLoans          int             `gorm:"column:max_active_loans;not null;default:1" json:"max_active_loans"`
	MaxLoanAmountPerRequest decimal.Decimal `gorm:"column:max_loan_amount_per_request;type:decimal(18,2);not null;default:20000" json:"max_loan_amount_per_request"`
	LimitsUpdatedAt         *time.Time      `gorm:"column:limits_updated_at" json:"limits_updated_at,omitempty"`
	LimitsUpdatedBy         string          `gorm:"column:limits_updated_by;size:32" json:"limits_updated_by,omitempty"`
}

// DefaultLoanLimits are applied to newly registered users.
func DefaultLoanLimits() LoanLimits {
	return LoanLimits{
		MaxTotalLoanAmount:      decimal.NewFromInt(50000),
		MaxActiveLoans:          1,
		MaxLoanAmountPerRequest: decimal.NewFromInt(20000),
	}
}

// Table: users
type User struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID       string     `gorm:"column:user_id;size:32;not null;uniqueIndex:ux_users_user_id" json:"user_id"`
	FullName     string     `gorm:"column:full_name;size:128" json:"full_name"`
	MobileNumber string     `gorm:"column:mobile_number;size:16" json:"mobile_number"`
	Role         Role       `gorm:"column:role;size:16;not null;default:'user'" json:"role"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LoanLimits   LoanLimits `gorm:"embedded" json:"loan_limits"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// LimitChange is one entry of the append-only limit audit log.
type LimitChange struct {
	ID           uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID       string          `gorm:"column:user_id;size:32;not null;index" json:"user_id"`
	LimitType    string          `gorm:"column:limit_type;size:32;not null" json:"limit_type"`
	OldValue     decimal.Decimal `gorm:"column:old_value;type:decimal(18,2);not null" json:"old_value"`
	NewValue     decimal.Decimal `gorm:"column:new_value;type:decimal(18,2);not null" json:"new_value"`
	ChangedBy    string          `gorm:"column:changed_by;size:32;not null" json:"changed_by"`
	ChangeReason string          `gorm:"column:change_reason;size:255" json:"change_reason"`
	ChangedAt    time.Time       `gorm:"column:changed_at;not null" json:"changed_at"`
}

func (LimitChange) TableName() string { return "user_limit_history" }
