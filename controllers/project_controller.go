package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/utils"
)

type CreateProjectRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Status      string   `json:"status" validate:"omitempty,oneof=PLANNING ACTIVE ON_HOLD COMPLETED"`
	TeamIDs     []string `json:"teamIds" validate:"dive,uuid"`
}

type UpdateProjectRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Status      *string   `json:"status" validate:"omitempty,oneof=PLANNING ACTIVE ON_HOLD COMPLETED"`
	TeamIDs     *[]string `json:"teamIds" validate:"omitempty,dive,uuid"`
}

type ProjectController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewProjectController(db *gorm.DB, logger *logrus.Entry) *ProjectController {
	return &ProjectController{
		DB:     db,
		Logger: logger,
	}
}

func (pc *ProjectController) findTeams(db *gorm.DB, ids []string) ([]models.Team, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var teams []models.Team
	if err := db.Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, err
	}
	if len(teams) != len(ids) {
		return nil, utils.BadRequest("One or more teams do not exist")
	}
	return teams, nil
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if _, err := authorize(c, policy.CreateProject, policy.Resource{}); err != nil {
		return err
	}

	db := pc.DB.WithContext(c.UserContext())
	teams, err := pc.findTeams(db, req.TeamIDs)
	if err != nil {
		return err
	}

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectPlanning,
		CreatorID:   callerOf(c).ID,
		Teams:       teams,
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}

	if err := db.Omit("Teams.*").Create(&project).Error; err != nil {
		return err
	}

	pc.Logger.WithFields(logrus.Fields{
		"project_id": project.ID,
		"teams":      len(teams),
	}).Info("Project created")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(project))
}

// GetProjects lists every project for HEAD, otherwise the projects of the
// caller's teams.
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	caller := callerOf(c)
	db := pc.DB.WithContext(c.UserContext())

	query := db.Preload("Teams").Order("updated_at DESC")
	if !policy.Evaluate(caller, policy.ViewProject, policy.Resource{}).Allowed {
		query = query.Where("id IN (?)",
			db.Table("project_teams").Select("project_id").Where("team_id IN (?)", teamIDsOf(db, caller.ID)))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(projects))
}

func (pc *ProjectController) loadProject(c *fiber.Ctx) (*models.Project, policy.Resource, error) {
	var project models.Project
	if err := pc.DB.WithContext(c.UserContext()).Preload("Teams.Members").
		First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return nil, policy.Resource{}, notFoundAs(err, "Project not found")
	}

	res := policy.Resource{ProjectTeams: make([]policy.TeamFacts, 0, len(project.Teams))}
	for _, team := range project.Teams {
		res.ProjectTeams = append(res.ProjectTeams, policy.TeamFacts{
			ID:        team.ID,
			LeaderID:  team.LeaderID,
			MemberIDs: team.MemberIDs(),
		})
	}
	return &project, res, nil
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	project, res, err := pc.loadProject(c)
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.ViewProject, res); err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	var req UpdateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if d := policy.Precheck(callerOf(c), policy.UpdateProject); !d.Allowed {
		return d.Err
	}

	project, res, err := pc.loadProject(c)
	if err != nil {
		return err
	}
	if _, err := authorize(c, policy.UpdateProject, res); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	db := pc.DB.WithContext(c.UserContext())
	err = db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(project).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.TeamIDs != nil {
			teams, err := pc.findTeams(tx, *req.TeamIDs)
			if err != nil {
				return err
			}
			association := tx.Model(project).Association("Teams")
			if len(teams) == 0 {
				return association.Clear()
			}
			return association.Replace(teams)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := db.Preload("Teams").First(project, "id = ?", project.ID).Error; err != nil {
		return err
	}
	return c.JSON(utils.SuccessResponse(project))
}
