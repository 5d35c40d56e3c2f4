package controller

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type DownloadReportRequest struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ReportSummary struct {
	UserID       string        `json:"userId"`
	UserName     string        `json:"userName"`
	StartDate    string        `json:"startDate"`
	EndDate      string        `json:"endDate"`
	Tasks        []StatusCount `json:"tasks"`
	Issues       []StatusCount `json:"issues"`
	OverdueTasks int64         `json:"overdueTasks"`
}

type ReportController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewReportController(db *gorm.DB, logger *logrus.Entry) *ReportController {
	return &ReportController{
		DB:     db,
		Logger: logger,
	}
}

func parseRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := utils.ParseDate(startValue, false)
	if err != nil {
		return time.Time{}, time.Time{}, utils.BadRequest("startDate: " + err.Error())
	}
	end, err := utils.ParseDate(endValue, true)
	if err != nil {
		return time.Time{}, time.Time{}, utils.BadRequest("endDate: " + err.Error())
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, utils.BadRequest("endDate must not be before startDate")
	}
	return start, end, nil
}

// reportTarget loads the user a report is about and checks the caller may
// see it.
func (rc *ReportController) reportTarget(c *fiber.Ctx, userID string) (*models.User, error) {
	user, err := loadUser(rc.DB.WithContext(c.UserContext()), userID)
	if err != nil {
		return nil, err
	}
	if _, err := authorize(c, policy.ViewReport, policy.Resource{User: policy.UserFactsOf(user)}); err != nil {
		return nil, err
	}
	return user, nil
}

// DownloadReport streams a CSV of the user's tasks and issues created in the
// requested range.
func (rc *ReportController) DownloadReport(c *fiber.Ctx) error {
	var req DownloadReportRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return err
	}

	user, err := rc.reportTarget(c, req.UserID)
	if err != nil {
		return err
	}

	db := rc.DB.WithContext(c.UserContext())
	var tasks []models.Task
	if err := db.Preload("Issues").
		Where("assignee_id = ? AND created_at BETWEEN ? AND ?", user.ID, start, end).
		Find(&tasks).Error; err != nil {
		return err
	}

	var standalone []models.Issue
	if err := db.Where("creator_id = ? AND task_id IS NULL AND created_at BETWEEN ? AND ?", user.ID, start, end).
		Find(&standalone).Error; err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := utils.WriteReportCSV(&buf, utils.BuildReportRows(tasks, standalone)); err != nil {
		return err
	}

	filename := utils.ReportFilename(user.Name, start)
	rc.Logger.WithFields(logrus.Fields{
		"user_id":      user.ID,
		"requested_by": callerOf(c).ID,
		"tasks":        len(tasks),
		"issues":       len(standalone),
	}).Info("Report generated")

	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

// GetReportSummary returns per-status counts for the same data set as the
// CSV download.
func (rc *ReportController) GetReportSummary(c *fiber.Ctx) error {
	now := time.Now().UTC()
	startValue := c.Query("startDate", now.AddDate(0, 0, -30).Format(utils.DateLayout))
	endValue := c.Query("endDate", now.Format(utils.DateLayout))
	start, end, err := parseRange(startValue, endValue)
	if err != nil {
		return err
	}

	user, err := rc.reportTarget(c, c.Params("userId"))
	if err != nil {
		return err
	}

	db := rc.DB.WithContext(c.UserContext())
	summary := ReportSummary{
		UserID:    user.ID,
		UserName:  user.Name,
		StartDate: start.Format(utils.DateLayout),
		EndDate:   end.Format(utils.DateLayout),
		Tasks:     []StatusCount{},
		Issues:    []StatusCount{},
	}

	if err := db.Model(&models.Task{}).Select("status, COUNT(*) AS count").
		Where("assignee_id = ? AND created_at BETWEEN ? AND ?", user.ID, start, end).
		Group("status").Order("status").
		Scan(&summary.Tasks).Error; err != nil {
		return err
	}

	if err := db.Model(&models.Issue{}).Select("status, COUNT(*) AS count").
		Where("creator_id = ? AND created_at BETWEEN ? AND ?", user.ID, start, end).
		Group("status").Order("status").
		Scan(&summary.Issues).Error; err != nil {
		return err
	}

	if err := db.Model(&models.Task{}).
		Where("assignee_id = ? AND created_at BETWEEN ? AND ?", user.ID, start, end).
		Where("due_date < ? AND status <> ?", now, models.TaskDone).
		Count(&summary.OverdueTasks).Error; err != nil {
		return err
	}

	return c.JSON(utils.SuccessResponse(summary))
}
