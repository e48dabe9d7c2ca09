package loan

import (
	"time"

	domain "cashloan-backend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type ApplyInput struct {
	UserID     string
	LoanAmount decimal.Decimal
}

type EditInput struct {
	UserID        string
	LoanID        string
	LoanAmount    decimal.Decimal
	RepaymentDate *time.Time
}

type PaymentRequestDTO struct {
	CorrelationID string     `json:"correlation_id"`
	Amount        string     `json:"amount"`
	Phone         string     `json:"phone"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type PaymentDTO struct {
	Amount          string    `json:"amount"`
	ReportedAmount  string    `json:"reported_amount"`
	Reference       string    `json:"reference"`
	Phone           string    `json:"phone,omitempty"`
	TransactionDate string    `json:"transaction_date,omitempty"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
	Source          string    `json:"source"`
	PaidAt          time.Time `json:"paid_at"`
}

type LoanDTO struct {
	LoanID           string              `json:"loan_id"`
	UserID           string              `json:"user_id"`
	LoanAmount       string              `json:"loan_amount"`
	Interest         string              `json:"interest"`
	TotalRepayment   string              `json:"total_repayment"`
	PaidAmount       string              `json:"paid_amount"`
	RemainingBalance string              `json:"remaining_balance"`
	Status           string              `json:"status"`
	Category         string              `json:"category"`
	RepaymentDate    time.Time           `json:"repayment_date"`
	ExtensionCount   int                 `json:"extension_count"`
	ExtensionMonth   string              `json:"extension_month,omitempty"`
	IsDefaulted      bool                `json:"is_defaulted"`
	DefaultReason    string              `json:"default_reason,omitempty"`
	DefaultedAt      *time.Time          `json:"defaulted_at,omitempty"`
	StateUpdatedAt   time.Time           `json:"state_updated_at"`
	CreatedAt        time.Time           `json:"created_at"`
	PaymentRequests  []PaymentRequestDTO `json:"payment_requests,omitempty"`
	Payments         []PaymentDTO        `json:"payments,omitempty"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// ToDTO renders a loan with money as fixed two-decimal strings.
func ToDTO(l *domain.Loan) *LoanDTO {
	dto := &LoanDTO{
		LoanID:           l.LoanID,
		UserID:           l.UserID,
		LoanAmount:       money(l.LoanAmount),
		Interest:         money(l.Interest),
		TotalRepayment:   money(l.TotalRepayment),
		PaidAmount:       money(l.PaidAmount),
		RemainingBalance: money(l.RemainingBalance),
		Status:           string(l.Status),
		Category:         string(l.Category),
		RepaymentDate:    l.RepaymentDate,
		ExtensionCount:   l.ExtensionCount,
		ExtensionMonth:   l.ExtensionMonth,
		IsDefaulted:      l.IsDefaulted,
		DefaultReason:    l.DefaultReason,
		DefaultedAt:      l.DefaultedAt,
		StateUpdatedAt:   l.StateUpdatedAt,
		CreatedAt:        l.CreatedAt,
	}
	for _, pr := range l.PaymentRequests {
		dto.PaymentRequests = append(dto.PaymentRequests, PaymentRequestDTO{
			CorrelationID: pr.CorrelationID,
			Amount:        money(pr.Amount),
			Phone:         pr.Phone,
			Status:        string(pr.Status),
			FailureReason: pr.FailureReason,
			ProcessedAt:   pr.ProcessedAt,
			CreatedAt:     pr.CreatedAt,
		})
	}
	for _, p := range l.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			Amount:          money(p.Amount),
			ReportedAmount:  money(p.ReportedAmount),
			Reference:       p.Reference,
			Phone:           p.Phone,
			TransactionDate: p.TransactionDate,
			CorrelationID:   p.CorrelationID,
			Source:          string(p.Source),
			PaidAt:          p.PaidAt,
		})
	}
	return dto
}

func ToDTOs(ls []domain.Loan) []LoanDTO {
	out := make([]LoanDTO, 0, len(ls))
	for i := range ls {
		out = append(out, *ToDTO(&ls[i]))
	}
	return out
}
