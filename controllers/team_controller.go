package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type CreateTeamRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	LeaderID    *string  `json:"leaderId" validate:"omitempty,uuid"`
	MemberIDs   []string `json:"memberIds" validate:"dive,uuid"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type TeamController struct {
	DB     *gorm.DB
	Mailer utils.Mailer
	Logger *logrus.Entry
}

func NewTeamController(db *gorm.DB, mailer utils.Mailer, logger *logrus.Entry) *TeamController {
	return &TeamController{
		DB:     db,
		Mailer: mailer,
		Logger: logger,
	}
}

// GetTeams lists every team for HEAD, otherwise the teams the caller leads
// or belongs to.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	decision, err := authorize(c, policy.ListTeams, policy.Resource{})
	if err != nil {
		return err
	}

	caller := callerOf(c)
	db := tc.DB.WithContext(c.UserContext())
	query := db.Preload("Leader").Preload("Members").Order("name ASC")
	if !decision.Capabilities.Has(policy.ScopeAll) {
		query = query.Where("id IN (?)", teamIDsOf(db, caller.ID))
	}

	var teams []models.Team
	if err := query.Find(&teams).Error; err != nil {
		return err
	}

	visible := make([]models.Team, 0, len(teams))
	for i := range teams {
		facts := &policy.TeamFacts{ID: teams[i].ID, LeaderID: teams[i].LeaderID, MemberIDs: teams[i].MemberIDs()}
		if policy.Evaluate(caller, policy.ListTeams, policy.Resource{Team: facts}).Allowed {
			visible = append(visible, teams[i])
		}
	}
	return c.JSON(utils.SuccessResponse(visible))
}

// CreateTeam creates a team led by leaderId (default: the caller). The
// leader is added as a member.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	var req CreateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if _, err := authorize(c, policy.CreateTeam, policy.Resource{}); err != nil {
		return err
	}

	caller := callerOf(c)
	leaderID := caller.ID
	if req.LeaderID != nil {
		leaderID = *req.LeaderID
	}

	memberIDs := uniqueIDs(append([]string{leaderID}, req.MemberIDs...))

	db := tc.DB.WithContext(c.UserContext())
	var found int64
	if err := db.Model(&models.User{}).Where("id IN ?", memberIDs).Count(&found).Error; err != nil {
		return err
	}
	if int(found) != len(memberIDs) {
		return utils.BadRequest("One or more users do not exist")
	}

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    leaderID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		members := make([]models.TeamMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, models.TeamMember{TeamID: team.ID, UserID: id})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return err
	}

	if err := db.Preload("Leader").Preload("Members.User").First(&team, "id = ?", team.ID).Error; err != nil {
		return err
	}

	tc.Logger.WithFields(logrus.Fields{
		"team_id":   team.ID,
		"leader_id": leaderID,
		"members":   len(memberIDs),
	}).Info("Team created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	db := tc.DB.WithContext(c.UserContext())
	team, facts, err := loadTeamFacts(db, c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}

	if _, err := authorize(c, policy.ViewTeam, policy.Resource{Team: facts}); err != nil {
		return err
	}

	if err := db.Preload("Leader").Preload("Members.User").Preload("Projects").
		First(team, "id = ?", team.ID).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(team))
}

// GetPermissions returns the caller's flags for the team.
func (tc *TeamController) GetPermissions(c *fiber.Ctx) error {
	_, facts, err := loadTeamFacts(tc.DB.WithContext(c.UserContext()), c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}

	decision, err := authorize(c, policy.ViewTeamPermissions, policy.Resource{Team: facts})
	if err != nil {
		return err
	}
	return c.JSON(policy.TeamPermissionsFrom(decision.Capabilities))
}

func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	db := tc.DB.WithContext(c.UserContext())
	team, facts, err := loadTeamFacts(db, c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ManageTeamMembers, policy.Resource{Team: facts}); err != nil {
		return err
	}

	if _, err := loadUser(db, req.UserID); err != nil {
		return err
	}
	if facts.IsMember(req.UserID) {
		return utils.Conflict("User is already a member of this team")
	}

	member := models.TeamMember{TeamID: team.ID, UserID: req.UserID}
	if err := db.Create(&member).Error; err != nil {
		return err
	}
	if err := db.Preload("User").First(&member, "team_id = ? AND user_id = ?", team.ID, req.UserID).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	db := tc.DB.WithContext(c.UserContext())
	team, facts, err := loadTeamFacts(db, c.Params("id"), callerOf(c))
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ManageTeamMembers, policy.Resource{Team: facts}); err != nil {
		return err
	}

	userID := c.Params("userId")
	if userID == team.LeaderID {
		return utils.BadRequest("The team leader cannot be removed")
	}
	if !facts.IsMember(userID) {
		return utils.NotFound("User is not a member of this team")
	}

	if err := db.Where("team_id = ? AND user_id = ?", team.ID, userID).Delete(&models.TeamMember{}).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Member removed"})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
