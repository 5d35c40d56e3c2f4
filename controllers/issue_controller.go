package controller

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type CreateIssueRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	TaskID      *string `json:"taskId" validate:"omitempty,uuid"`
}

type UpdateIssueRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Status      *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

type IssueController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewIssueController(db *gorm.DB, logger *logrus.Entry) *IssueController {
	return &IssueController{
		DB:     db,
		Logger: logger,
	}
}

// CreateIssue reports an issue, optionally against a task the caller can see.
// The task's assignee is notified.
func (ic *IssueController) CreateIssue(c *fiber.Ctx) error {
	var req CreateIssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	caller := callerOf(c)
	db := ic.DB.WithContext(c.UserContext())

	var task *models.Task
	res := policy.Resource{Issue: &policy.IssueFacts{CreatorID: caller.ID}}
	if req.TaskID != nil {
		task = &models.Task{}
		if err := db.First(task, "id = ?", *req.TaskID).Error; err != nil {
			return notFoundAs(err, "Task not found")
		}
		facts, err := taskFacts(db, task, caller)
		if err != nil {
			return err
		}
		res.Issue.Task = facts
	}

	if _, err := authorize(c, policy.CreateIssue, res); err != nil {
		return err
	}

	issue := models.Issue{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.IssueOpen,
		Priority:    models.PriorityMedium,
		CreatorID:   caller.ID,
		TaskID:      req.TaskID,
	}
	if req.Priority != "" {
		issue.Priority = models.Priority(req.Priority)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		if task == nil || task.AssigneeID == caller.ID {
			return nil
		}
		return tx.Create(&models.Notification{
			Type:     models.NotificationIssueReported,
			Message:  fmt.Sprintf("Issue %q was reported on task %q", issue.Title, task.Title),
			UserID:   task.AssigneeID,
			SenderID: utils.Pointer(caller.ID),
			TeamID:   task.TeamID,
			TaskID:   utils.Pointer(task.ID),
		}).Error
	})
	if err != nil {
		return err
	}

	fields := logrus.Fields{"issue_id": issue.ID}
	if issue.TaskID != nil {
		fields["task_id"] = *issue.TaskID
	}
	ic.Logger.WithFields(fields).Info("Issue reported")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(issue))
}

// GetIssues lists every issue for HEAD. Others see issues they reported,
// issues of their direct reports and issues on any task they can see.
func (ic *IssueController) GetIssues(c *fiber.Ctx) error {
	caller := callerOf(c)
	db := ic.DB.WithContext(c.UserContext())

	query := visibleIssues(db, caller).Preload("Creator").Preload("Task").Order("updated_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if taskID := c.Query("taskId"); taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}

	var issues []models.Issue
	if err := query.Find(&issues).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(issues))
}

func (ic *IssueController) loadIssue(c *fiber.Ctx) (*models.Issue, *policy.IssueFacts, error) {
	db := ic.DB.WithContext(c.UserContext())

	var issue models.Issue
	if err := db.First(&issue, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, notFoundAs(err, "Issue not found")
	}
	facts, err := issueFacts(db, &issue, callerOf(c))
	if err != nil {
		return nil, nil, err
	}
	return &issue, facts, nil
}

func (ic *IssueController) GetIssue(c *fiber.Ctx) error {
	issue, facts, err := ic.loadIssue(c)
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ViewIssue, policy.Resource{Issue: facts}); err != nil {
		return err
	}

	if err := ic.DB.WithContext(c.UserContext()).Preload("Creator").Preload("Task").
		First(issue, "id = ?", issue.ID).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(issue))
}

func (ic *IssueController) UpdateIssue(c *fiber.Ctx) error {
	var req UpdateIssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	issue, facts, err := ic.loadIssue(c)
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.UpdateIssue, policy.Resource{Issue: facts}); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if len(updates) == 0 {
		return utils.BadRequest("Nothing to update")
	}

	db := ic.DB.WithContext(c.UserContext())
	if err := db.Model(issue).Updates(updates).Error; err != nil {
		return err
	}
	if err := db.Preload("Creator").First(issue, "id = ?", issue.ID).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(issue))
}
