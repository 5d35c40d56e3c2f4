package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewDashboardController(db *gorm.DB, logger *logrus.Entry) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type TimeRange struct {
	Start *time.Time `json:"start"`
	End   time.Time  `json:"end"`
}

type DashboardStats struct {
	TimeRange           TimeRange                   `json:"timeRange"`
	TasksByStatus       map[models.TaskStatus]int64 `json:"tasksByStatus"`
	OverdueTasks        int64                       `json:"overdueTasks"`
	OpenIssues          int64                       `json:"openIssues"`
	UnreadNotifications int64                       `json:"unreadNotifications"`
	Teams               int64                       `json:"teams"`
}

// GetDashboardStats returns summary counts for the dashboard cards, scoped to
// what the caller can see.
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	caller := callerOf(c)
	now := time.Now().UTC()
	start := utils.TimeFrameStart(c.Query("time_frame", "all"), now)

	stats := DashboardStats{
		TimeRange:     TimeRange{End: now},
		TasksByStatus: map[models.TaskStatus]int64{},
	}
	if !start.IsZero() {
		stats.TimeRange.Start = &start
	}

	db := dc.DB.WithContext(c.UserContext())
	inRange := func(query *gorm.DB) *gorm.DB {
		if start.IsZero() {
			return query
		}
		return query.Where("created_at BETWEEN ? AND ?", start, now)
	}

	var counts []StatusCount
	if err := inRange(visibleTasks(db, caller)).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return err
	}
	for _, sc := range counts {
		stats.TasksByStatus[models.TaskStatus(sc.Status)] = sc.Count
	}

	if err := inRange(visibleTasks(db, caller)).
		Where("due_date < ? AND status <> ?", now, models.TaskDone).
		Count(&stats.OverdueTasks).Error; err != nil {
		return err
	}

	if err := inRange(visibleIssues(db, caller)).
		Where("status IN ?", []models.IssueStatus{models.IssueOpen, models.IssueInProgress}).
		Count(&stats.OpenIssues).Error; err != nil {
		return err
	}

	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", caller.ID, false).
		Count(&stats.UnreadNotifications).Error; err != nil {
		return err
	}

	teams := db.Model(&models.Team{})
	if !policy.Evaluate(caller, policy.ListTeams, policy.Resource{}).Capabilities.Has(policy.ScopeAll) {
		teams = teams.Where("id IN (?)", teamIDsOf(db, caller.ID))
	}
	if err := teams.Count(&stats.Teams).Error; err != nil {
		return err
	}

	return c.JSON(utils.SuccessResponse(stats))
}
