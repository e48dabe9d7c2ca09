package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RepaymentTermDays = 30
	OverrideReference = "ADMIN-OVERRIDE"
	moneyPlaces       = 2
)

// InterestRate is the flat interest charged on every loan.
var InterestRate = decimal.RequireFromString("0.20")

// New builds a pending loan for amount with flat interest and a 30-day repayment date.
func New(loanID, userID string, amount decimal.Decimal, now time.Time) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", ErrValidation)
	}
	now = now.UTC()
	l := &Loan{
		LoanID:         loanID,
		UserID:         userID,
		Status:         StatusPending,
		Category:       CategoryPermanent,
		RepaymentDate:  now.AddDate(0, 0, RepaymentTermDays),
		StateUpdatedAt: now,
	}
	l.price(amount)
	return l, nil
}

func (l *Loan) price(amount decimal.Decimal) {
	l.LoanAmount = amount.Round(moneyPlaces)
	l.Interest = l.LoanAmount.Mul(InterestRate).Round(moneyPlaces)
	l.TotalRepayment = l.LoanAmount.Add(l.Interest)
	l.PaidAmount = decimal.Zero
	l.RemainingBalance = l.TotalRepayment
}

// Edit reprices a pending or rejected loan and puts it back to pending.
// A nil repaymentDate keeps the current one.
func (l *Loan) Edit(amount decimal.Decimal, repaymentDate *time.Time, now time.Time) error {
	if !l.Editable() {
		return fmt.Errorf("%w: only pending or rejected loans can be edited", ErrInvalidTransition)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: loan amount must be positive", ErrValidation)
	}
	if repaymentDate != nil {
		if !repaymentDate.After(now) {
			return fmt.Errorf("%w: repayment date must be in the future", ErrValidation)
		}
		l.RepaymentDate = repaymentDate.UTC()
	}
	l.price(amount)
	if l.Status == StatusRejected {
		return l.transition(StatusPending, now)
	}
	return nil
}

func (l *Loan) Approve(now time.Time) error { return l.transition(StatusApproved, now) }

func (l *Loan) Reject(now time.Time) error { return l.transition(StatusRejected, now) }

// CanInitiatePayment checks a borrower push of amount against the loan.
func (l *Loan) CanInitiatePayment(amount decimal.Decimal) error {
	if !l.AcceptsPayments() {
		return fmt.Errorf("%w: loan in status %q cannot be paid", ErrInvalidTransition, l.Status)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return fmt.Errorf("%w: amount exceeds remaining balance of %s", ErrValidation, l.RemainingBalance.StringFixed(moneyPlaces))
	}
	return nil
}

// AddPaymentRequest records a pending push. The caller persists the returned entry.
func (l *Loan) AddPaymentRequest(correlationID, merchantRequestID, phone string, amount decimal.Decimal, now time.Time) (*PaymentRequest, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	if err := l.CanInitiatePayment(amount); err != nil {
		return nil, err
	}
	if l.findRequest(correlationID) != nil {
		return nil, fmt.Errorf("%w: duplicate correlation id %s", ErrValidation, correlationID)
	}
	l.PaymentRequests = append(l.PaymentRequests, PaymentRequest{
		LoanID:            l.ID,
		CorrelationID:     correlationID,
		MerchantRequestID: merchantRequestID,
		Amount:            amount.Round(moneyPlaces),
		Phone:             phone,
		Status:            PaymentRequestPending,
		CreatedAt:         now.UTC(),
	})
	return &l.PaymentRequests[len(l.PaymentRequests)-1], nil
}

// FindPaymentRequest returns the request with correlationID, or nil.
func (l *Loan) FindPaymentRequest(correlationID string) *PaymentRequest {
	return l.findRequest(correlationID)
}

func (l *Loan) findRequest(correlationID string) *PaymentRequest {
	for i := range l.PaymentRequests {
		if l.PaymentRequests[i].CorrelationID == correlationID {
			return &l.PaymentRequests[i]
		}
	}
	return nil
}

func (l *Loan) pendingRequest(correlationID string) (*PaymentRequest, error) {
	pr := l.findRequest(correlationID)
	if pr == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPaymentRequest, correlationID)
	}
	if pr.Status != PaymentRequestPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrPaymentRequestSettled, correlationID, pr.Status)
	}
	return pr, nil
}

// GatewayPayment is a successful push reported by the gateway.
type GatewayPayment struct {
	CorrelationID   string
	Amount          decimal.Decimal
	Receipt         string
	Phone           string
	TransactionDate string
}

// ApplyGatewayPayment completes the pending request and credits the reported amount.
// Credit is capped at the remaining balance; the full reported amount is kept on the record.
func (l *Loan) ApplyGatewayPayment(in GatewayPayment, at time.Time) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	pr, err := l.pendingRequest(in.CorrelationID)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	pr.Status = PaymentRequestCompleted
	pr.ProcessedAt = &at
	phone := in.Phone
	if phone == "" {
		phone = pr.Phone
	}
	return l.credit(Payment{
		ReportedAmount:  in.Amount.Round(moneyPlaces),
		Reference:       in.Receipt,
		Phone:           phone,
		TransactionDate: in.TransactionDate,
		CorrelationID:   in.CorrelationID,
		Source:          SourceMpesa,
	}, at)
}

// FailPaymentRequest settles a pending request as failed without moving money.
func (l *Loan) FailPaymentRequest(correlationID, reason string, at time.Time) (*PaymentRequest, error) {
	pr, err := l.pendingRequest(correlationID)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	pr.Status = PaymentRequestFailed
	pr.FailureReason = reason
	pr.ProcessedAt = &at
	return pr, nil
}

// ApplyManualPayment credits money collected outside the gateway.
func (l *Loan) ApplyManualPayment(amount decimal.Decimal, reference string, at time.Time) (*Payment, error) {
	if err := l.CanInitiatePayment(amount); err != nil {
		return nil, err
	}
	if reference == "" {
		reference = "MANUAL"
	}
	return l.credit(Payment{
		ReportedAmount: amount.Round(moneyPlaces),
		Reference:      reference,
		Source:         SourceManual,
	}, at.UTC())
}

func (l *Loan) credit(p Payment, at time.Time) (*Payment, error) {
	credited := decimal.Min(p.ReportedAmount, l.RemainingBalance)
	if credited.IsNegative() {
		credited = decimal.Zero
	}
	l.PaidAmount = l.PaidAmount.Add(credited)
	l.RemainingBalance = l.TotalRepayment.Sub(l.PaidAmount)

	p.LoanID = l.ID
	p.Amount = credited
	p.PaidAt = at
	l.Payments = append(l.Payments, p)

	if l.AcceptsPayments() {
		if err := l.transition(RepaymentStatus(l.RemainingBalance), at); err != nil {
			return nil, err
		}
	}
	return &l.Payments[len(l.Payments)-1], nil
}

// MarkFullyPaid is the administrative override: the outstanding difference is booked
// as an override payment so paid amount still equals the sum of payments.
func (l *Loan) MarkFullyPaid(at time.Time) (*Payment, error) {
	if !CanTransition(l.Status, StatusFullyPaid) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, StatusFullyPaid)
	}
	at = at.UTC()
	var p *Payment
	if diff := l.TotalRepayment.Sub(l.PaidAmount); diff.IsPositive() {
		l.Payments = append(l.Payments, Payment{
			LoanID:         l.ID,
			Amount:         diff,
			ReportedAmount: diff,
			Reference:      OverrideReference,
			Source:         SourceOverride,
			PaidAt:         at,
		})
		p = &l.Payments[len(l.Payments)-1]
	}
	l.PaidAmount = l.TotalRepayment
	l.RemainingBalance = decimal.Zero
	return p, l.transition(StatusFullyPaid, at)
}

func (l *Loan) MarkDefaulted(reason string, at time.Time) error {
	if !l.AcceptsPayments() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, StatusDefaulted)
	}
	if reason == "" {
		reason = "Repayment period exceeded"
	}
	at = at.UTC()
	if err := l.transition(StatusDefaulted, at); err != nil {
		return err
	}
	l.IsDefaulted = true
	l.DefaultReason = reason
	l.DefaultedAt = &at
	return nil
}

// ExtendRepayment pushes the repayment date out by one month.
func (l *Loan) ExtendRepayment(at time.Time) error {
	if !l.AcceptsPayments() {
		return fmt.Errorf("%w: repayment can only be extended on approved or partially paid loans", ErrInvalidTransition)
	}
	l.RepaymentDate = l.RepaymentDate.AddDate(0, 1, 0)
	l.ExtensionCount++
	l.ExtensionMonth = at.UTC().Format("2006-01")
	return nil
}

func (l *Loan) RescheduleRepayment(date, now time.Time) error {
	if !l.AcceptsPayments() {
		return fmt.Errorf("%w: repayment date can only be edited on approved or partially paid loans", ErrInvalidTransition)
	}
	if !date.After(now) {
		return fmt.Errorf("%w: repayment date must be in the future", ErrValidation)
	}
	l.RepaymentDate = date.UTC()
	return nil
}

// RedateApplication corrects the application date and moves the repayment date
// to the last second of that month. Future dates are rejected.
func (l *Loan) RedateApplication(date, now time.Time) error {
	if date.IsZero() || date.After(now) {
		return fmt.Errorf("%w: application date must not be in the future", ErrValidation)
	}
	if IsTerminal(l.Status) {
		return fmt.Errorf("%w: application date cannot be changed on a %s loan", ErrInvalidTransition, l.Status)
	}
	date = date.UTC()
	l.CreatedAt = date
	l.RepaymentDate = EndOfMonth(date)
	return nil
}

// EndOfMonth is the last second of t's month, in t's location.
func EndOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0).Add(-time.Second)
}

func (l *Loan) AssignCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, c)
	}
	if l.Status != StatusApproved {
		return fmt.Errorf("%w: loan must be approved to assign a category", ErrInvalidTransition)
	}
	l.Category = c
	return nil
}

// CheckInvariants verifies the monetary invariants of the aggregate.
func (l *Loan) CheckInvariants() error {
	if !l.RemainingBalance.Equal(l.TotalRepayment.Sub(l.PaidAmount)) {
		return fmt.Errorf("remaining balance %s != total %s - paid %s", l.RemainingBalance, l.TotalRepayment, l.PaidAmount)
	}
	if l.RemainingBalance.IsNegative() {
		return fmt.Errorf("remaining balance %s is negative", l.RemainingBalance)
	}
	sum := decimal.Zero
	for _, p := range l.Payments {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(l.PaidAmount) {
		return fmt.Errorf("paid amount %s != sum of payments %s", l.PaidAmount, sum)
	}
	return nil
}
