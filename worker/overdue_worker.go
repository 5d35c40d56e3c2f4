package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/utils"
)

// OverdueWorker periodically notifies assignees, and their managers, about
// tasks that passed their due date without being completed. Each task is
// reported once per due date.
type OverdueWorker struct {
	DB       *gorm.DB
	Mailer   utils.Mailer
	Logger   *logrus.Entry
	Interval time.Duration
}

func NewOverdueWorker(db *gorm.DB, mailer utils.Mailer, logger *logrus.Entry, interval time.Duration) *OverdueWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueWorker{
		DB:       db,
		Mailer:   mailer,
		Logger:   logger,
		Interval: interval,
	}
}

func (ow *OverdueWorker) Start(ctx context.Context) {
	ow.Logger.WithField("interval", ow.Interval.String()).Info("Overdue worker started")

	ticker := time.NewTicker(ow.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ow.Logger.Info("Overdue worker shutting down...")
			return
		case now := <-ticker.C:
			if _, err := ow.RunOnce(ctx, now); err != nil {
				utils.LogError("overdue_scan_failed", err, nil)
			}
		}
	}
}

// RunOnce scans for overdue tasks at now and returns how many were flagged.
func (ow *OverdueWorker) RunOnce(ctx context.Context, now time.Time) (int, error) {
	db := ow.DB.WithContext(ctx)

	var tasks []models.Task
	if err := db.Preload("Assignee").
		Where("due_date < ? AND status <> ? AND overdue_notified_at IS NULL", now, models.TaskDone).
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch overdue tasks: %w", err)
	}

	flagged := 0
	for i := range tasks {
		if err := ow.flagTask(db, &tasks[i], now); err != nil {
			ow.Logger.WithError(err).WithField("task_id", tasks[i].ID).Error("Failed to flag overdue task")
			continue
		}
		flagged++
	}

	if flagged > 0 {
		ow.Logger.WithField("tasks", flagged).Info("Overdue tasks flagged")
	}
	return flagged, nil
}

func (ow *OverdueWorker) flagTask(db *gorm.DB, task *models.Task, now time.Time) error {
	recipients := []string{task.AssigneeID}
	emails := []string{}
	if task.Assignee != nil {
		emails = append(emails, task.Assignee.Email)
		if task.Assignee.ManagerID != nil {
			var manager models.User
			if err := db.First(&manager, "id = ?", *task.Assignee.ManagerID).Error; err == nil {
				recipients = append(recipients, manager.ID)
				emails = append(emails, manager.Email)
			}
		}
	}

	message := fmt.Sprintf("Task %q was due on %s and is still %s",
		task.Title, task.DueDate.Format(utils.DateLayout), task.Status)

	err := db.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent scan flagging the same task.
		result := tx.Model(&models.Task{}).
			Where("id = ? AND overdue_notified_at IS NULL", task.ID).
			Update("overdue_notified_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		notifications := make([]models.Notification, 0, len(recipients))
		for _, id := range recipients {
			notifications = append(notifications, models.Notification{
				Type:    models.NotificationTaskOverdue,
				Message: message,
				UserID:  id,
				TeamID:  task.TeamID,
				TaskID:  utils.Pointer(task.ID),
			})
		}
		return tx.Create(&notifications).Error
	})
	if err != nil {
		return err
	}

	if ow.Mailer != nil && len(emails) > 0 {
		if err := ow.Mailer.Send(utils.EmailData{
			Subject:  "Task overdue: " + task.Title,
			To:       emails,
			Template: "task_overdue",
			Data: map[string]interface{}{
				"Title":   task.Title,
				"DueDate": task.DueDate.Format(utils.DateLayout),
				"Status":  task.Status,
				"Year":    utils.TemplateYear(),
			},
		}); err != nil {
			ow.Logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to send overdue email")
		}
	}
	return nil
}
