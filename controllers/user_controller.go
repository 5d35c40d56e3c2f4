package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type CreateUserRequest struct {
	Name      string      `json:"name" validate:"required,max=100"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=8"`
	Role      models.Role `json:"role" validate:"required"`
	ManagerID *string     `json:"managerId" validate:"omitempty,uuid"`
}

type AssignManagerRequest struct {
	ManagerID *string `json:"managerId" validate:"omitempty,uuid"`
}

type UserController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewUserController(db *gorm.DB, logger *logrus.Entry) *UserController {
	return &UserController{
		DB:     db,
		Logger: logger,
	}
}

// ListUsers returns every user for HEAD and the direct reports for a MANAGER.
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	decision, err := authorize(c, policy.ListUsers, policy.Resource{})
	if err != nil {
		return err
	}

	query := uc.DB.WithContext(c.UserContext()).Preload("Manager").Order("name ASC")
	if !decision.Capabilities.Has(policy.ScopeAll) {
		query = query.Where("manager_id = ?", callerOf(c).ID)
	}
	if role := models.Role(c.Query("role")); role != "" {
		if !role.Valid() {
			return utils.BadRequest("Invalid role filter")
		}
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(users))
}

// ListManagers returns every MANAGER account for assignment pickers.
func (uc *UserController) ListManagers(c *fiber.Ctx) error {
	decision, err := authorize(c, policy.ListUsers, policy.Resource{})
	if err != nil {
		return err
	}
	if !decision.Capabilities.Has(policy.ScopeAll) {
		return utils.Forbidden("Only HEAD can list managers")
	}

	var managers []models.User
	if err := uc.DB.WithContext(c.UserContext()).
		Where("role = ?", models.RoleManager).
		Order("name ASC").
		Find(&managers).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(managers))
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	db := uc.DB.WithContext(c.UserContext())
	user, err := loadUser(db, c.Params("id"))
	if err != nil {
		return err
	}

	if _, err := authorize(c, policy.ViewUser, policy.Resource{User: policy.UserFactsOf(user)}); err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(user))
}

// CreateUser creates a MANAGER or EMPLOYEE account. An EMPLOYEE created by
// a MANAGER reports to that manager.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)
	if _, err := authorize(c, policy.CreateAccount, policy.Resource{RequestedRole: req.Role}); err != nil {
		return err
	}

	db := uc.DB.WithContext(c.UserContext())
	managerID := req.ManagerID
	switch {
	case req.Role != models.RoleEmployee && managerID != nil:
		return utils.BadRequest("Only EMPLOYEE users can have a manager")
	case req.Role == models.RoleEmployee && caller.Role == models.RoleManager:
		if managerID != nil && *managerID != caller.ID {
			return utils.Forbidden("Managers can only create their own reports")
		}
		managerID = utils.Pointer(caller.ID)
	case managerID != nil:
		manager, err := loadUser(db, *managerID)
		if err != nil {
			return err
		}
		if manager.Role != models.RoleManager {
			return utils.BadRequest("Manager must have role MANAGER")
		}
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Name:         req.Name,
		Email:        normalizeEmail(req.Email),
		PasswordHash: hashedPassword,
		Role:         req.Role,
		ManagerID:    managerID,
		IsActive:     true,
	}

	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return utils.Conflict("Email already registered")
	}

	if err := db.Create(&user).Error; err != nil {
		return err
	}

	uc.Logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": caller.ID,
	}).Info("User created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(user))
}

// AssignManager sets or clears the manager of an EMPLOYEE.
func (uc *UserController) AssignManager(c *fiber.Ctx) error {
	var req AssignManagerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if d := policy.Precheck(callerOf(c), policy.ReassignManager); !d.Allowed {
		return d.Err
	}

	db := uc.DB.WithContext(c.UserContext())
	target, err := loadUser(db, c.Params("id"))
	if err != nil {
		return err
	}

	res := policy.Resource{User: policy.UserFactsOf(target)}
	if req.ManagerID != nil {
		manager, err := loadUser(db, *req.ManagerID)
		if err != nil {
			return err
		}
		res.NewManager = policy.UserFactsOf(manager)
	}

	if _, err := authorize(c, policy.ReassignManager, res); err != nil {
		return err
	}

	var managerID interface{}
	if req.ManagerID != nil {
		managerID = *req.ManagerID
	}
	if err := db.Model(target).Update("manager_id", managerID).Error; err != nil {
		return err
	}

	if err := db.Preload("Manager").First(target, "id = ?", target.ID).Error; err != nil {
		return err
	}

	utils.LogEvent("manager_reassigned", map[string]interface{}{
		"user_id":    target.ID,
		"manager_id": req.ManagerID,
		"by":         callerOf(c).ID,
	})

	return c.JSON(utils.SuccessResponse(target))
}
