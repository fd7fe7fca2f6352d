package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set
// their own. Session state is per client and changes under the reader, so it
// is never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if policy := cachePolicy(c.Path()); policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}

func cachePolicy(path string) string {
	switch {
	case path == "/metrics", strings.HasPrefix(path, "/v1/sessions"):
		return "no-store"
	case path == "/v1/health", path == "/v1/ready":
		return "no-cache"
	case strings.HasPrefix(path, "/v1/geocode"):
		return "public, max-age=3600"
	case path == "/v1/pins":
		return "public, max-age=30"
	case strings.HasPrefix(path, "/v1/restrooms/"):
		return "public, max-age=120"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=60"
	}
	return ""
}

// ETagMiddleware tags successful GET bodies with a weak ETag and answers
// 304 when the client already holds it. no-store responses are skipped.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		if strings.Contains(string(c.Response().Header.Peek(fiber.HeaderCacheControl)), "no-store") {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)
		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
