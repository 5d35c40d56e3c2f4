package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

type AuthController struct {
	DB     *gorm.DB
	Issuer *utils.TokenIssuer
	Logger *logrus.Entry
}

func NewAuthController(db *gorm.DB, issuer *utils.TokenIssuer, logger *logrus.Entry) *AuthController {
	return &AuthController{
		DB:     db,
		Issuer: issuer,
		Logger: logger,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register signs up a new account. The first account in an empty system
// becomes HEAD; every later signup is an EMPLOYEE without a manager.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hashedPassword,
		Role:         models.RoleEmployee,
		IsActive:     true,
	}

	err = ac.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return utils.Conflict("Email already registered")
		}

		var total int64
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			user.Role = models.RoleHead
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		return err
	}

	utils.LogEvent("user_registered", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return ac.respondWithTokens(c, fiber.StatusCreated, &user)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var user models.User
	if err := ac.DB.WithContext(c.UserContext()).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized("Invalid email or password")
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.Unauthorized("Invalid email or password")
	}

	if !user.IsActive {
		return utils.Forbidden("Account is not active")
	}

	return ac.respondWithTokens(c, fiber.StatusOK, &user)
}

func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	claims, err := ac.Issuer.ParseToken(req.RefreshToken)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		return utils.Unauthorized("Invalid or expired refresh token")
	}

	var user models.User
	if err := ac.DB.WithContext(c.UserContext()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		return utils.Unauthorized("User not found")
	}
	if !user.IsActive {
		return utils.Forbidden("Account is not active")
	}
	if claims.TokenVersion != user.TokenVersion {
		return utils.Unauthorized("Invalid token version")
	}

	return ac.respondWithTokens(c, fiber.StatusOK, &user)
}

// Logout revokes every token issued to the user so far.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	if err := ac.DB.WithContext(c.UserContext()).Model(user).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		return err
	}

	ac.Logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": middleware.SessionID(c),
	}).Info("User logged out")

	c.ClearCookie("access_token")
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return utils.Unauthorized("Invalid current password")
	}

	hashedPassword, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := ac.DB.WithContext(c.UserContext()).Model(user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error; err != nil {
		return err
	}

	// Reload so the new token carries the bumped version.
	if err := ac.DB.WithContext(c.UserContext()).First(user, "id = ?", user.ID).Error; err != nil {
		return err
	}
	return ac.respondWithTokens(c, fiber.StatusOK, user)
}

func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(middleware.CurrentUser(c)))
}

func (ac *AuthController) respondWithTokens(c *fiber.Ctx, status int, user *models.User) error {
	accessToken, refreshToken, err := ac.Issuer.GenerateTokens(user)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Expires:  time.Now().Add(ac.Issuer.AccessTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(status).JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}
