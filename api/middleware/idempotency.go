package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/showcart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/showcart-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// An idempotencyRule is either an exact path or a prefix/suffix pair
// bracketing a path parameter.
type idempotencyRule struct {
	method string
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (r idempotencyRule) matches(method, path string) bool {
	if method != r.method {
		return false
	}
	if r.exact != "" {
		return path == r.exact
	}
	return strings.HasPrefix(path, r.prefix) && strings.HasSuffix(path, r.suffix)
}

// Money-moving endpoints keep their replay window for a week; the rest of
// the mutating surface gets a day.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, exact: "/api/v1/shows", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/v1/products", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/products/", suffix: "/restock", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/notifications/", suffix: "/read", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/v1/notifications/read-all", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/v1/checkout", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/cancel", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/refund", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/batches/", suffix: "/checkout-complete", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/batches/", suffix: "/complete", ttl: criticalIdempotencyTTL},
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.matches(method, path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a mutating request repeats
// with the same Idempotency-Key. Reusing a key with a different body is an
// error rather than a replay.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		g := &idempotencyGate{store: store, logg: logg}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, requestPath(r))
			if !covered || g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, ttl)
		})
	}
}

type idempotencyGate struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

func (g *idempotencyGate) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	ctx := r.Context()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey == "" {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	digest := bodyDigest(body)
	key := g.store.IdempotencyKey(requestScope(r), idempotencyKey)

	if done := g.replayStored(ctx, w, key, digest); done {
		return
	}

	capture := &captureWriter{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.persist(ctx, key, digest, capture, ttl)
}

// replayStored reports true when it already answered the request, whether
// by replaying a record or surfacing a conflict.
func (g *idempotencyGate) replayStored(ctx context.Context, w http.ResponseWriter, key, digest string) bool {
	stored, err := g.store.Get(ctx, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return true
	}
	if stored == "" {
		return false
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return true
	}
	if record.RequestHash != digest {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return true
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
	return true
}

// persist stores settled outcomes only. A 5xx stays unrecorded so the
// client can retry the same key once the fault clears.
func (g *idempotencyGate) persist(ctx context.Context, key, digest string, capture *captureWriter, ttl time.Duration) {
	status := capture.statusOrOK()
	if status >= http.StatusInternalServerError {
		return
	}

	record := idempotencyRecord{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: digest,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		g.logError(ctx, "marshal idempotency record", err)
		return
	}
	if _, err := g.store.SetNX(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGate) logError(ctx context.Context, msg string, err error) {
	if g.logg == nil || err == nil {
		return
	}
	g.logg.Error(ctx, msg, err)
}

// requestScope keys records per caller and route, so two users reusing the
// same header value never collide.
func requestScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		ShopIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

// requestPath matches rules against the raw URL path. Route patterns
// are not usable here: middleware mounted on a subrouter runs before
// the leaf route resolves, so the pattern still ends in a wildcard.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
