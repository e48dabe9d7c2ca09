package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"cashloan-backend/internal/adapter/middleware"
	"cashloan-backend/internal/adapter/repository/mysql"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/testutil/dbtest"
	"cashloan-backend/internal/testutil/gatewaymock"
	"cashloan-backend/internal/testutil/lockmock"
	"cashloan-backend/internal/usecase/admin"
	"cashloan-backend/internal/usecase/limits"
	"cashloan-backend/internal/usecase/loan"
	"cashloan-backend/internal/usecase/payment"
	"cashloan-backend/internal/usecase/reconcile"
	"cashloan-backend/pkg/id"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("handler-test-secret")

// server runs the full route table over sqlite, miniredis and a fake gateway.
type server struct {
	e     *echo.Echo
	loans *mysql.LoanRepository
	users *mysql.UserRepository
	gw    *gatewaymock.Gateway
	mr    *miniredis.Miniredis
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := dbtest.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	loans := mysql.NewLoanRepository(db)
	users := mysql.NewUserRepository(db)
	tx := mysql.NewGormUoW(db)
	locker := &lockmock.Locker{}
	gw := &gatewaymock.Gateway{}

	limitsUC := limits.NewUsecase(loans, users, tx)
	e := echo.New()
	e.HideBanner = true
	Register(e, Routes{
		Health:         NewHandler(nil),
		Loans:          NewLoanHandler(loan.NewUsecase(loans, users, limitsUC, locker, tx, time.Second), payment.NewUsecase(loans, gw, locker, tx, time.Second)),
		Admin:          NewAdminHandler(admin.NewUsecase(loans, tx)),
		Limits:         NewLimitsHandler(limitsUC),
		Callbacks:      NewCallbackHandler(reconcile.NewUsecase(tx)),
		JWTSecret:      testSecret,
		Redis:          rdb,
		IdempotencyTTL: time.Minute,
	})
	return &server{e: e, loans: loans, users: users, gw: gw, mr: mr}
}

// seedUser stores an active user with default limits and returns its id.
func (s *server) seedUser(t *testing.T, role user.Role) string {
	t.Helper()
	u := &user.User{
		UserID:       id.NewID32(),
		FullName:     "Test User",
		MobileNumber: "254712345678",
		Role:         role,
		IsActive:     true,
		LoanLimits:   user.DefaultLoanLimits(),
	}
	if err := s.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.UserID
}

type call struct {
	method, path string
	as           string
	body         any
	idemKey      string
}

func (s *server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if c.as != "" {
		role := "user"
		if u, err := s.users.GetByUserID(context.Background(), c.as); err == nil {
			role = string(u.Role)
		}
		tok, err := middleware.IssueToken(testSecret, c.as, role, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	if c.method == http.MethodPost && c.as != "" {
		key := c.idemKey
		if key == "" {
			key = id.NewID32()
		}
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
		req.Header.Set(middleware.HeaderRequestAt, strconv.FormatInt(time.Now().Unix(), 10))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json (%d): %v; raw=%s", rec.Code, err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, want, rec.Body.String())
	}
}

// applyApproved creates a loan for userID and approves it as adminID.
func (s *server) applyApproved(t *testing.T, userID, adminID string, amount float64) loan.LoanDTO {
	t.Helper()
	rec := s.do(t, call{method: http.MethodPost, path: "/api/loans", as: userID, body: map[string]any{"loan_amount": amount}})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[loan.LoanDTO](t, rec)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/admin/loans/" + created.LoanID + "/approve", as: adminID})
	expectStatus(t, rec, http.StatusOK)
	return decode[loan.LoanDTO](t, rec)
}
