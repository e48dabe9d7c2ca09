package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestAt      = "X-Request-At"
	HeaderReplayed       = "Idempotent-Replayed"

	provisionalLockTTL = 60 * time.Second
	maxClockSkew       = 10 * time.Minute
	storeTimeout       = 2 * time.Second
)

// idempEntry is what Redis holds per key: a placeholder while the handler
// runs, then the recorded answer.
type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// teeWriter copies everything the handler writes so it can be stored.
type teeWriter struct {
	http.ResponseWriter
	body bytes.Buffer
	code int
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type idempRequest struct {
	key       string
	requestID string
	at        time.Time
	bodyHash  string
}

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// Idempotency makes borrower POSTs safe to retry. The first request with a
// given Idempotency-Key runs; repeats from the same user with the same body get
// the recorded answer back. Runs after Authenticate.
func Idempotency(rdb redis.Cmdable, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			ir, status, msg := readIdempRequest(c)
			if status != 0 {
				return jsonError(c, status, msg)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			defer cancel()
			claimed, err := provisionalSet(ctx, rdb, ir.key, idempEntry{
				InProgress:  true,
				BodySHA256:  ir.bodyHash,
				RequestID:   ir.requestID,
				RequestAtMS: ir.at.UnixMilli(),
				CreatedAt:   nowUTC(),
			})
			if err != nil {
				log.Printf("idempotency store unavailable for %s: %v", ir.key, err)
				return jsonError(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !claimed {
				return replay(ctx, c, rdb, ir)
			}

			w := &teeWriter{ResponseWriter: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				c.Error(err)
			}
			record(rdb, ir, w, ttl)
			return nil
		}
	}
}

// readIdempRequest checks the headers and identity and hashes the body. A
// non-zero status means the request is refused with msg.
func readIdempRequest(c echo.Context) (idempRequest, int, string) {
	req := c.Request()
	reqID := strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey))
	switch {
	case reqID == "":
		return idempRequest{}, http.StatusBadRequest, "missing " + HeaderIdempotencyKey
	case !validReqID(reqID):
		return idempRequest{}, http.StatusBadRequest, "invalid " + HeaderIdempotencyKey + " format"
	}

	at, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
	if err != nil {
		return idempRequest{}, http.StatusBadRequest, err.Error()
	}
	if now := nowUTC(); at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return idempRequest{}, http.StatusBadRequest, HeaderRequestAt + " too skewed"
	}

	subject := Subject(c)
	if subject == "" {
		return idempRequest{}, http.StatusUnauthorized, "unauthenticated"
	}

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	return idempRequest{
		key:       buildKey(req.Method, c.Path(), subject, reqID),
		requestID: reqID,
		at:        at,
		bodyHash:  bodyHash(body),
	}, 0, ""
}

// replay answers a request whose key is already claimed.
func replay(ctx context.Context, c echo.Context, rdb redis.Cmdable, ir idempRequest) error {
	cur, err := loadEntry(ctx, rdb, ir.key)
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("idempotency load %s: %v", ir.key, err)
	}
	if cur.BodySHA256 != "" && cur.BodySHA256 != ir.bodyHash {
		return jsonError(c, http.StatusConflict, HeaderIdempotencyKey+" reused with different body")
	}
	if cur.InProgress || cur.Code == 0 || len(cur.Body) == 0 {
		return jsonError(c, http.StatusConflict, "request is already in progress")
	}
	c.Response().Header().Set(HeaderReplayed, "true")
	return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
}

// record stores the handler's answer, or frees the key after a 5xx so the
// client can retry.
func record(rdb redis.Cmdable, ir idempRequest, w *teeWriter, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if w.code >= http.StatusInternalServerError {
		if err := rdb.Del(ctx, ir.key).Err(); err != nil {
			log.Printf("idempotency release %s: %v", ir.key, err)
		}
		return
	}
	err := saveFinal(ctx, rdb, ir.key, idempEntry{
		Code:        w.code,
		Body:        w.body.Bytes(),
		BodySHA256:  ir.bodyHash,
		RequestID:   ir.requestID,
		RequestAtMS: ir.at.UnixMilli(),
		CreatedAt:   nowUTC(),
	}, ttl)
	if err != nil {
		log.Printf("idempotency save %s: %v", ir.key, err)
	}
}
