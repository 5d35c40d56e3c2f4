package controller

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Status      string  `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS IN_REVIEW DONE"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate     *string `json:"dueDate"`
	AssigneeID  *string `json:"assigneeId" validate:"omitempty,uuid"`
	TeamID      *string `json:"teamId" validate:"omitempty,uuid"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Status      *string `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS IN_REVIEW DONE"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate     *string `json:"dueDate"`
	AssigneeID  *string `json:"assigneeId" validate:"omitempty,uuid"`
}

// statusOnly reports whether the request changes nothing but the status.
func (r UpdateTaskRequest) statusOnly() bool {
	return r.Status != nil && r.Title == nil && r.Description == nil &&
		r.Priority == nil && r.DueDate == nil && r.AssigneeID == nil
}

type TaskController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewTaskController(db *gorm.DB, logger *logrus.Entry) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
	}
}

func parseDueDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	due, err := utils.ParseDate(*value, false)
	if err != nil {
		return nil, utils.BadRequest("dueDate: " + err.Error())
	}
	return &due, nil
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return err
	}

	caller := callerOf(c)
	db := tc.DB.WithContext(c.UserContext())

	assigneeID := caller.ID
	if req.AssigneeID != nil {
		assigneeID = *req.AssigneeID
	}
	assignee, err := loadUser(db, assigneeID)
	if err != nil {
		return err
	}

	facts := &policy.TaskFacts{
		AssigneeID: assignee.ID,
		CreatorID:  caller.ID,
		Assignee:   policy.UserFactsOf(assignee),
	}
	if req.TeamID != nil {
		if _, facts.Team, err = loadTeamFacts(db, *req.TeamID, caller); err != nil {
			return err
		}
	}

	if _, err := authorize(c, policy.CreateTask, policy.Resource{Task: facts}); err != nil {
		return err
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskTodo,
		Priority:    models.PriorityMedium,
		DueDate:     dueDate,
		AssigneeID:  assignee.ID,
		CreatorID:   caller.ID,
		TeamID:      req.TeamID,
	}
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}
	if req.Priority != "" {
		task.Priority = models.Priority(req.Priority)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if assignee.ID == caller.ID {
			return nil
		}
		return tx.Create(&models.Notification{
			Type:     models.NotificationTaskAssigned,
			Message:  fmt.Sprintf("You were assigned the task %q", task.Title),
			UserID:   assignee.ID,
			SenderID: utils.Pointer(caller.ID),
			TeamID:   task.TeamID,
			TaskID:   utils.Pointer(task.ID),
		}).Error
	})
	if err != nil {
		return err
	}

	task.MarkOverdue(time.Now())
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// GetTasks lists the tasks the caller can see: everything for HEAD,
// otherwise tasks they are assigned or created, tasks of their direct
// reports and tasks on teams they lead.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	caller := callerOf(c)
	db := tc.DB.WithContext(c.UserContext())

	query := visibleTasks(db, caller).Preload("Assignee").Order("updated_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if teamID := c.Query("teamId"); teamID != "" {
		query = query.Where("team_id = ?", teamID)
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return err
	}
	now := time.Now()
	for i := range tasks {
		tasks[i].MarkOverdue(now)
	}
	return c.JSON(utils.SuccessResponse(tasks))
}

func (tc *TaskController) loadTask(c *fiber.Ctx) (*models.Task, *policy.TaskFacts, error) {
	db := tc.DB.WithContext(c.UserContext())

	var task models.Task
	if err := db.Preload("Assignee").First(&task, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, notFoundAs(err, "Task not found")
	}
	facts, err := taskFacts(db, &task, callerOf(c))
	if err != nil {
		return nil, nil, err
	}
	return &task, facts, nil
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	task, facts, err := tc.loadTask(c)
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ViewTask, policy.Resource{Task: facts}); err != nil {
		return err
	}

	if err := tc.DB.WithContext(c.UserContext()).
		Preload("Assignee").Preload("Creator").Preload("Team").
		Preload("Issues", func(db *gorm.DB) *gorm.DB { return db.Order("updated_at DESC") }).
		First(task, "id = ?", task.ID).Error; err != nil {
		return err
	}
	task.MarkOverdue(time.Now())
	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTask applies a partial update. A status-only change is allowed for
// the assignee; any other field needs edit rights on the task.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	task, facts, err := tc.loadTask(c)
	if err != nil {
		return err
	}

	action := policy.UpdateTask
	if req.statusOnly() {
		action = policy.UpdateTaskStatus
	}
	if _, err := authorize(c, action, policy.Resource{Task: facts}); err != nil {
		return err
	}

	db := tc.DB.WithContext(c.UserContext())
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
	if req.DueDate != nil {
		dueDate, err := parseDueDate(req.DueDate)
		if err != nil {
			return err
		}
		updates["due_date"] = dueDate
		updates["overdue_notified_at"] = nil
	}

	var reassigned *models.User
	if req.AssigneeID != nil && *req.AssigneeID != task.AssigneeID {
		if reassigned, err = loadUser(db, *req.AssigneeID); err != nil {
			return err
		}
		next := &policy.TaskFacts{
			AssigneeID: reassigned.ID,
			CreatorID:  task.CreatorID,
			Assignee:   policy.UserFactsOf(reassigned),
			Team:       facts.Team,
		}
		if _, err := authorize(c, policy.CreateTask, policy.Resource{Task: next}); err != nil {
			return err
		}
		updates["assignee_id"] = reassigned.ID
	}

	if len(updates) == 0 {
		return utils.BadRequest("Nothing to update")
	}

	caller := callerOf(c)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}
		if reassigned == nil || reassigned.ID == caller.ID {
			return nil
		}
		return tx.Create(&models.Notification{
			Type:     models.NotificationTaskAssigned,
			Message:  fmt.Sprintf("You were assigned the task %q", task.Title),
			UserID:   reassigned.ID,
			SenderID: utils.Pointer(caller.ID),
			TeamID:   task.TeamID,
			TaskID:   utils.Pointer(task.ID),
		}).Error
	})
	if err != nil {
		return err
	}

	if err := db.Preload("Assignee").First(task, "id = ?", task.ID).Error; err != nil {
		return err
	}
	task.MarkOverdue(time.Now())
	return c.JSON(utils.SuccessResponse(task))
}
