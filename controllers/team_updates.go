package controller

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type UpdateRequestRequest struct {
	MemberIDs []string `json:"memberIds" validate:"dive,uuid"`
	Message   string   `json:"message" validate:"max=500"`
}

// RequestUpdate notifies team members that the caller wants a status update.
// Without memberIds every member except the caller is asked.
func (tc *TeamController) RequestUpdate(c *fiber.Ctx) error {
	var req UpdateRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)
	db := tc.DB.WithContext(c.UserContext())
	team, facts, err := loadTeamFacts(db, c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.RequestTeamUpdate, policy.Resource{Team: facts}); err != nil {
		return err
	}

	targets := uniqueIDs(req.MemberIDs)
	if len(targets) == 0 {
		for _, id := range facts.MemberIDs {
			if id != caller.ID {
				targets = append(targets, id)
			}
		}
	}
	if len(targets) == 0 {
		return utils.BadRequest("Team has no members to request an update from")
	}
	for _, id := range targets {
		if !facts.IsMember(id) {
			return utils.BadRequest(fmt.Sprintf("User %s is not a member of this team", id))
		}
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("%s requested an update from team %s", caller.Name, team.Name)
	}

	notifications := make([]models.Notification, 0, len(targets))
	for _, id := range targets {
		notifications = append(notifications, models.Notification{
			Type:     models.NotificationUpdateRequest,
			Message:  message,
			UserID:   id,
			SenderID: utils.Pointer(caller.ID),
			TeamID:   utils.Pointer(team.ID),
		})
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&notifications).Error
	}); err != nil {
		return err
	}

	var recipients []models.User
	if err := db.Where("id IN ?", targets).Find(&recipients).Error; err != nil {
		return err
	}
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, r.Email)
	}
	sendEmail(tc.Mailer, tc.Logger, utils.EmailData{
		Subject:  "Update requested: " + team.Name,
		To:       emails,
		Template: "update_request",
		Data: map[string]interface{}{
			"Sender":  caller.Name,
			"Team":    team.Name,
			"Message": message,
			"Year":    utils.TemplateYear(),
		},
	})

	utils.LogEvent("update_requested", map[string]interface{}{
		"team_id":    team.ID,
		"sender_id":  caller.ID,
		"recipients": len(targets),
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(notifications))
}

// GetUpdateRequests lists the update requests sent within the team.
func (tc *TeamController) GetUpdateRequests(c *fiber.Ctx) error {
	db := tc.DB.WithContext(c.UserContext())
	team, facts, err := loadTeamFacts(db, c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ViewTeamUpdates, policy.Resource{Team: facts}); err != nil {
		return err
	}

	var requests []models.Notification
	if err := db.Preload("Sender").
		Where("team_id = ? AND type = ?", team.ID, models.NotificationUpdateRequest).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(requests))
}
