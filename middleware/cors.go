package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"taskhub/config"
)

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	AllowedMethods   []string
	AllowedHeaders   []string
	// Content-Disposition must be exposed for report downloads to keep
	// their filename in the browser.
	ExposedHeaders []string
	MaxAge         int
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions},
		AllowedHeaders:   []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization},
		ExposedHeaders:   []string{fiber.HeaderContentLength, fiber.HeaderContentDisposition},
		MaxAge:           3600,
	}
}

// CORSConfigFrom applies the configured origins on top of the defaults.
func CORSConfigFrom(cfg *config.Config) CORSConfig {
	cors := DefaultCORSConfig()
	if cfg != nil && len(cfg.AllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.AllowedOrigins
	}
	return cors
}

func CORS(cfg CORSConfig) fiber.Handler {
	wildcard := false
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ",")
	headers := strings.Join(cfg.AllowedHeaders, ",")
	exposed := strings.Join(cfg.ExposedHeaders, ",")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *fiber.Ctx) error {
		c.Vary(fiber.HeaderOrigin)

		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}

		_, ok := allowed[origin]
		switch {
		case ok:
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			if cfg.AllowCredentials {
				c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
			}
		case wildcard:
			// credentials are never allowed with a wildcard origin
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		default:
			if c.Method() == fiber.MethodOptions {
				return c.SendStatus(fiber.StatusForbidden)
			}
			return c.Next()
		}

		if c.Method() != fiber.MethodOptions {
			if exposed != "" {
				c.Set(fiber.HeaderAccessControlExposeHeaders, exposed)
			}
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, methods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, headers)
		c.Set(fiber.HeaderAccessControlMaxAge, maxAge)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
