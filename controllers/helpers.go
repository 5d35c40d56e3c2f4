package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

// parseBody decodes and validates the JSON request body into req.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.BadRequest(err.Error())
	}
	return nil
}

// queryLimit reads ?limit, falling back to def when it is missing or not
// positive and capping it at ceiling.
func queryLimit(c *fiber.Ctx, def, ceiling int) int {
	limit := c.QueryInt("limit", def)
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func callerOf(c *fiber.Ctx) policy.Caller {
	return policy.CallerOf(middleware.CurrentUser(c))
}

// authorize runs the policy for the current caller and returns its error
// when the action is denied.
func authorize(c *fiber.Ctx, action policy.Action, res policy.Resource) (policy.Decision, error) {
	decision := policy.Evaluate(callerOf(c), action, res)
	if !decision.Allowed {
		return decision, decision.Err
	}
	return decision, nil
}

func notFoundAs(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound(message)
	}
	return err
}

func loadUser(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	return &user, nil
}

func loadTeam(db *gorm.DB, id string) (*models.Team, error) {
	var team models.Team
	if err := db.Preload("Members").First(&team, "id = ?", id).Error; err != nil {
		return nil, notFoundAs(err, "Team not found")
	}
	return &team, nil
}

// teamFacts describes team relative to caller. Members must be loaded.
func teamFacts(db *gorm.DB, team *models.Team, caller policy.Caller) (*policy.TeamFacts, error) {
	facts := &policy.TeamFacts{
		ID:        team.ID,
		LeaderID:  team.LeaderID,
		MemberIDs: team.MemberIDs(),
	}

	if caller.Role == models.RoleManager && len(facts.MemberIDs) > 0 {
		var managed int64
		if err := db.Model(&models.User{}).
			Where("id IN ? AND manager_id = ?", facts.MemberIDs, caller.ID).
			Count(&managed).Error; err != nil {
			return nil, err
		}
		facts.ManagesMember = managed > 0
	}
	return facts, nil
}

// loadTeamFacts loads a team with its members and describes it for caller.
func loadTeamFacts(db *gorm.DB, id string, caller policy.Caller) (*models.Team, *policy.TeamFacts, error) {
	team, err := loadTeam(db, id)
	if err != nil {
		return nil, nil, err
	}
	facts, err := teamFacts(db, team, caller)
	if err != nil {
		return nil, nil, err
	}
	return team, facts, nil
}

// taskFacts loads the assignee and team a task decision depends on.
func taskFacts(db *gorm.DB, task *models.Task, caller policy.Caller) (*policy.TaskFacts, error) {
	facts := &policy.TaskFacts{
		AssigneeID: task.AssigneeID,
		CreatorID:  task.CreatorID,
	}

	assignee := task.Assignee
	if assignee == nil {
		var err error
		if assignee, err = loadUser(db, task.AssigneeID); err != nil {
			return nil, err
		}
	}
	facts.Assignee = policy.UserFactsOf(assignee)

	if task.TeamID != nil {
		_, team, err := loadTeamFacts(db, *task.TeamID, caller)
		if err != nil {
			return nil, err
		}
		facts.Team = team
	}
	return facts, nil
}

func issueFacts(db *gorm.DB, issue *models.Issue, caller policy.Caller) (*policy.IssueFacts, error) {
	creator, err := loadUser(db, issue.CreatorID)
	if err != nil {
		return nil, err
	}
	facts := &policy.IssueFacts{
		CreatorID: issue.CreatorID,
		Creator:   policy.UserFactsOf(creator),
	}

	if issue.TaskID != nil {
		var task models.Task
		if err := db.First(&task, "id = ?", *issue.TaskID).Error; err != nil {
			return nil, notFoundAs(err, "Task not found")
		}
		if facts.Task, err = taskFacts(db, &task, caller); err != nil {
			return nil, err
		}
	}
	return facts, nil
}

// reportIDs is a subquery selecting the direct reports of managerID.
func reportIDs(db *gorm.DB, managerID string) *gorm.DB {
	return db.Model(&models.User{}).Select("id").Where("manager_id = ?", managerID)
}

// teamIDsOf is a subquery selecting teams userID leads or belongs to.
func teamIDsOf(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Team{}).Select("id").
		Where("leader_id = ?", userID).
		Or("id IN (?)", db.Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", userID))
}

// visibleTasks scopes a task query to what caller can see.
func visibleTasks(db *gorm.DB, caller policy.Caller) *gorm.DB {
	query := db.Model(&models.Task{})
	if caller.IsHead() {
		return query
	}
	return query.Where(
		db.Where("assignee_id = ?", caller.ID).
			Or("creator_id = ?", caller.ID).
			Or("assignee_id IN (?)", reportIDs(db, caller.ID)).
			Or("team_id IN (?)", db.Model(&models.Team{}).Select("id").Where("leader_id = ?", caller.ID)),
	)
}

// visibleIssues scopes an issue query to what caller can see. Issues on a
// task are visible to everyone who can see the task.
func visibleIssues(db *gorm.DB, caller policy.Caller) *gorm.DB {
	query := db.Model(&models.Issue{})
	if caller.IsHead() {
		return query
	}
	return query.Where(
		db.Where("creator_id = ?", caller.ID).
			Or("creator_id IN (?)", reportIDs(db, caller.ID)).
			Or("task_id IN (?)", visibleTasks(db, caller).Select("id")),
	)
}

// sendEmail delivers mail when a mailer is configured. Failures are logged
// and never fail the request.
func sendEmail(mailer utils.Mailer, logger *logrus.Entry, data utils.EmailData) {
	if mailer == nil || len(data.To) == 0 {
		return
	}
	if err := mailer.Send(data); err != nil {
		logger.WithError(err).WithField("template", data.Template).Warn("Failed to send email")
	}
}
