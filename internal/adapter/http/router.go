package http

import (
	"time"

	"cashloan-backend/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Routes struct {
	Health    *Handler
	Loans     *LoanHandler
	Admin     *AdminHandler
	Limits    *LimitsHandler
	Callbacks *CallbackHandler

	JWTSecret      []byte
	Redis          redis.Cmdable
	IdempotencyTTL time.Duration
}

// Register mounts every route on e. The callback route is unauthenticated:
// the gateway cannot present a token.
func Register(e *echo.Echo, r Routes) {
	e.Validator = NewValidator()
	e.GET("/health", r.Health.Health)

	api := e.Group("/api")
	api.POST("/payments/callback", r.Callbacks.Callback)

	auth := middleware.Authenticate(r.JWTSecret)
	idem := middleware.Idempotency(r.Redis, r.IdempotencyTTL)

	loans := api.Group("/loans", auth)
	loans.GET("", r.Loans.List)
	loans.POST("", r.Loans.Apply, idem)
	loans.GET("/:loan_id", r.Loans.Get)
	loans.PUT("/:loan_id", r.Loans.Edit)
	loans.DELETE("/:loan_id", r.Loans.Delete)
	loans.POST("/:loan_id/payments", r.Loans.InitiatePayment, idem)

	adm := api.Group("/admin", auth, middleware.RequireRole("admin"))
	adm.GET("/loans", r.Admin.ListLoans)
	adm.GET("/loans/:loan_id", r.Admin.GetLoan)
	adm.PUT("/loans/:loan_id/approve", r.Admin.Approve)
	adm.PUT("/loans/:loan_id/reject", r.Admin.Reject)
	adm.PUT("/loans/:loan_id/mark-paid", r.Admin.MarkFullyPaid)
	adm.PUT("/loans/:loan_id/manual-payment", r.Admin.ManualPayment)
	adm.PUT("/loans/:loan_id/extend", r.Admin.Extend)
	adm.PUT("/loans/:loan_id/repayment-date", r.Admin.RepaymentDate)
	adm.PUT("/loans/:loan_id/application-date", r.Admin.ApplicationDate)
	adm.PUT("/loans/:loan_id/category", r.Admin.Category)
	adm.PUT("/loans/:loan_id/mark-defaulted", r.Admin.MarkDefaulted)
	adm.GET("/users/:user_id/loans", r.Admin.ListUserLoans)
	adm.PUT("/users/:user_id/loan-limits", r.Limits.Update)
	adm.GET("/users/:user_id/loan-limits/history", r.Limits.History)
	adm.POST("/users/:user_id/check-eligibility", r.Limits.CheckEligibility)
}
