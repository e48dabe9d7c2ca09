package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusPartiallyPaid Status = "partially paid"
	StatusFullyPaid     Status = "fully paid"
	StatusDefaulted     Status = "defaulted"
)

// ActiveStatuses are the states that count as the borrower's one open loan.
var ActiveStatuses = []Status{StatusPending, StatusApproved, StatusPartiallyPaid}

// OutstandingStatuses are the states whose remaining balance counts against lending limits.
var OutstandingStatuses = []Status{StatusApproved, StatusPartiallyPaid}

type Category string

const (
	CategoryPermanent Category = "permanent"
	CategoryCasual    Category = "casual"
)

func (c Category) Valid() bool { return c == CategoryPermanent || c == CategoryCasual }

type PaymentRequestStatus string

const (
	PaymentRequestPending   PaymentRequestStatus = "pending"
	PaymentRequestCompleted PaymentRequestStatus = "completed"
	PaymentRequestFailed    PaymentRequestStatus = "failed"
)

type PaymentSource string

const (
	SourceMpesa    PaymentSource = "mpesa"
	SourceManual   PaymentSource = "manual"
	SourceOverride PaymentSource = "override"
)

type Loan struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	UserID           string          `gorm:"size:32;index:idx_loans_user_status" json:"user_id"`
	LoanAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"loan_amount"`
	Interest         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"interest"`
	TotalRepayment   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_repayment"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"remaining_balance"`
	Status           Status          `gorm:"size:32;not null;default:'pending';index:idx_loans_user_status" json:"status"`
	Category         Category        `gorm:"size:16;not null;default:'permanent'" json:"category"`
	RepaymentDate    time.Time       `gorm:"not null" json:"repayment_date"`
	ExtensionCount   int             `gorm:"not null;default:0" json:"extension_count"`
	ExtensionMonth   string          `gorm:"size:7" json:"extension_month,omitempty"`
	IsDefaulted      bool            `gorm:"not null;default:false" json:"is_defaulted"`
	DefaultReason    string          `gorm:"size:255" json:"default_reason,omitempty"`
	DefaultedAt      *time.Time      `json:"defaulted_at,omitempty"`
	StateUpdatedAt   time.Time       `json:"state_updated_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	PaymentRequests []PaymentRequest `gorm:"foreignKey:LoanID;references:ID" json:"payment_requests"`
	Payments        []Payment        `gorm:"foreignKey:LoanID;references:ID" json:"payments"`
}

func (Loan) TableName() string { return "loans" }

// PaymentRequest is one push payment initiated against the loan. CorrelationID is
// issued by the gateway and never changes.
type PaymentRequest struct {
	ID                uint64               `gorm:"primaryKey;column:id" json:"-"`
	LoanID            uint64               `gorm:"column:loan_id;not null;index" json:"-"`
	CorrelationID     string               `gorm:"size:64;not null;uniqueIndex:ux_payment_requests_correlation" json:"correlation_id"`
	MerchantRequestID string               `gorm:"size:64" json:"merchant_request_id,omitempty"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,2);not null" json:"amount"`
	Phone             string               `gorm:"size:16;not null" json:"phone"`
	Status            PaymentRequestStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	FailureReason     string               `gorm:"size:255" json:"failure_reason,omitempty"`
	ProcessedAt       *time.Time           `json:"processed_at,omitempty"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentRequest) TableName() string { return "loan_payment_requests" }

// Payment is an append-only record of money credited to the loan.
type Payment struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID          uint64          `gorm:"column:loan_id;not null;index" json:"-"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ReportedAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"reported_amount"`
	Reference       string          `gorm:"size:64;not null" json:"reference"`
	Phone           string          `gorm:"size:16" json:"phone,omitempty"`
	TransactionDate string          `gorm:"size:32" json:"transaction_date,omitempty"`
	CorrelationID   string          `gorm:"size:64;index" json:"correlation_id,omitempty"`
	Source          PaymentSource   `gorm:"size:16;not null" json:"source"`
	PaidAt          time.Time       `gorm:"not null" json:"paid_at"`
}

func (Payment) TableName() string { return "loan_payments" }
