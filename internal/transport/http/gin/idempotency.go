package httpgin

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/atelier/internal/repository/redis"
)

const (
	idempotencyHeader  = "Idempotency-Key"
	idempotencyLockTTL = 60 * time.Second
	maxIdempotentBody  = 1 << 20
	jsonContentType    = "application/json; charset=utf-8"
)

// createFunc performs a create operation and returns the status and body to
// send on success.
type createFunc func(c *gin.Context) (int, any, error)

// idempotent replays the first successful response for a repeated
// Idempotency-Key within scope. A key only matches requests from the same
// client with the same body. Without a store or a key the request simply
// runs. A key whose first request is still running gets 409.
func idempotent(idem *redisrepo.IdempotencyStore, scope string, run createFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if idem == nil || key == "" {
			status, body, err := run(c)
			if err != nil {
				respondErr(c, err)
				return
			}
			c.JSON(status, body)
			return
		}

		fp, err := fingerprint(c)
		if err != nil {
			respondErr(c, inputError(err))
			return
		}

		ctx := c.Request.Context()
		storageKey := redisrepo.KeyIdem(scope, key+":"+fp)

		if res, ok, _ := idem.GetResult(ctx, storageKey); ok {
			replay(c, key, res)
			return
		}

		locked, err := idem.AcquireLock(ctx, storageKey, idempotencyLockTTL)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !locked {
			if res, ok, _ := idem.GetResult(ctx, storageKey); ok {
				replay(c, key, res)
				return
			}
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}

		status, body, err := run(c)
		if err != nil {
			_ = idem.Release(ctx, storageKey)
			respondErr(c, err)
			return
		}

		b, err := json.Marshal(body)
		if err != nil {
			_ = idem.Release(ctx, storageKey)
			respondErr(c, err)
			return
		}

		_ = idem.SaveResult(ctx, storageKey, status, b)
		c.Header(idempotencyHeader, key)
		c.Data(status, jsonContentType, b)
	}
}

func replay(c *gin.Context, key string, res redisrepo.StoredResponse) {
	c.Header(idempotencyHeader, key)
	c.Header("Idempotent-Replayed", "true")
	c.Data(res.Status, jsonContentType, res.Body)
}

// fingerprint hashes the client address and the request body, leaving the
// body readable for the handler.
func fingerprint(c *gin.Context) (string, error) {
	var body []byte
	if c.Request.Body != nil {
		b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBody))
		if err != nil {
			return "", err
		}
		body = b
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	h := sha256.New()
	h.Write([]byte(c.ClientIP()))
	h.Write([]byte{0})
	h.Write(body)

	return hex.EncodeToString(h.Sum(nil)[:12]), nil
}
