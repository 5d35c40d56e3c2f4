package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type NotificationController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

func NewNotificationController(db *gorm.DB, logger *logrus.Entry) *NotificationController {
	return &NotificationController{
		DB:     db,
		Logger: logger,
	}
}

func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	query := nc.DB.WithContext(c.UserContext()).
		Preload("Sender").
		Where("user_id = ?", callerOf(c).ID).
		Order("created_at DESC").
		Limit(queryLimit(c, defaultNotificationLimit, maxNotificationLimit))
	if c.QueryBool("unread") {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(notifications))
}

func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	db := nc.DB.WithContext(c.UserContext())

	var notification models.Notification
	if err := db.First(&notification, "id = ?", c.Params("id")).Error; err != nil {
		return notFoundAs(err, "Notification not found")
	}
	if _, err := authorize(c, policy.ReadNotification, policy.Resource{OwnerID: notification.UserID}); err != nil {
		return err
	}

	if err := db.Model(&notification).Update("read", true).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(notification))
}

func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	result := nc.DB.WithContext(c.UserContext()).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", callerOf(c).ID, false).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"updated": result.RowsAffected}))
}
