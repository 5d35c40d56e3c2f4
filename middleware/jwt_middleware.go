package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/utils"
)

const (
	LocalUser      = "user"
	LocalSessionID = "sessionID"
)

// Protected resolves the caller from a bearer token or the access_token
// cookie and stores the loaded user in the request locals.
func Protected(db *gorm.DB, issuer *utils.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.Unauthorized("Invalid authorization format")
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.Unauthorized("Authorization required")
			}
		}

		claims, err := issuer.ParseToken(token)
		if err != nil {
			return utils.Unauthorized("Invalid or expired token")
		}
		if claims.Type != utils.TokenTypeAccess {
			return utils.Unauthorized("Access token required")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			return utils.Unauthorized("User not found")
		}

		if !user.IsActive {
			return utils.Forbidden("Account is not active")
		}

		if claims.TokenVersion != user.TokenVersion {
			return utils.Unauthorized("Invalid token version")
		}

		c.Locals(LocalUser, &user)
		c.Locals(LocalSessionID, claims.SessionID)

		return c.Next()
	}
}

// CurrentUser returns the user stored by Protected, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// SessionID returns the session id of the token Protected accepted.
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalSessionID).(string)
	return id
}
