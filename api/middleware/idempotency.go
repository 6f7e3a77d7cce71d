package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/shopflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/shopflow-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	inFlightTTL       = time.Minute
)

type idempotentRoute struct {
	method string
	path   *regexp.Regexp
	ttl    time.Duration
}

// Money-moving routes keep their records for a week, status changes for a day.
var idempotentRoutes = []idempotentRoute{
	{http.MethodPost, regexp.MustCompile(`^/api/v1/checkout$`), 7 * 24 * time.Hour},
	{http.MethodPost, regexp.MustCompile(`^/api/v1/orders/[^/]+/(cancel|pay|pay/crypto)$`), 7 * 24 * time.Hour},
	{http.MethodPost, regexp.MustCompile(`^/api/admin/v1/orders/[^/]+/refund$`), 7 * 24 * time.Hour},
	{http.MethodPost, regexp.MustCompile(`^/api/admin/v1/orders/[^/]+/status$`), 24 * time.Hour},
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rt := range idempotentRoutes {
		if rt.method == method && rt.path.MatchString(path) {
			return rt.ttl, true
		}
	}
	return 0, false
}

// idempotencyRecord is stored as JSON under the key. While the first request
// runs the record is only a claim (InFlight with the body hash).
type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the routes in idempotentRoutes safe to retry. The first
// request claims the key with SETNX, runs, and stores its response; repeats
// with the same body get that response back, repeats with a different body
// get 409, and repeats that race the first one get a conflict. A 5xx
// releases the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), clientKey)
			claim, _ := json.Marshal(idempotencyRecord{RequestHash: hash, InFlight: true})
			won, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				rec, err := loadRecord(ctx, store, key, hash)
				if err != nil {
					fail(err)
					return
				}
				w.Header().Set(replayedHeader, "true")
				if rec.ContentType != "" {
					w.Header().Set("Content-Type", rec.ContentType)
				}
				w.WriteHeader(rec.Status)
				_, _ = w.Write(rec.Body)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			// the response is already on the wire; persisting must not depend on the client staying
			bg := context.WithoutCancel(ctx)
			if capture.status >= http.StatusInternalServerError {
				if err := store.Del(bg, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			done, _ := json.Marshal(idempotencyRecord{
				RequestHash: hash,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(bg, key, string(done), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

// loadRecord returns a completed record for a repeated key, or the typed
// error explaining why it cannot be replayed.
func loadRecord(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (*idempotencyRecord, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request expired mid-flight; retry")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	switch {
	case rec.RequestHash != hash:
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case rec.InFlight:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress")
	}
	return &rec, nil
}

// buildScope keeps keys from different callers or endpoints apart.
func buildScope(r *http.Request) string {
	return identityScope(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
