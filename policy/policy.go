// Package policy decides whether a caller may act on a resource.
//
// Evaluate is pure: controllers load the relationship facts a rule needs
// (team leader and members, a user's manager, a task's assignee) and pass
// them in. No rule reads the database or any global state.
package policy

import (
	"taskhub/models"
	"taskhub/utils"
)

type Action string

const (
	CreateProject       Action = "project:create"
	ViewProject         Action = "project:view"
	UpdateProject       Action = "project:update"
	ViewReport          Action = "report:view"
	CreateTeam          Action = "team:create"
	ListTeams           Action = "team:list"
	ViewTeam            Action = "team:view"
	ViewTeamPermissions Action = "team:permissions"
	ManageTeamMembers   Action = "team:members"
	RequestTeamUpdate   Action = "team:request-update"
	ViewTeamUpdates     Action = "team:view-updates"
	ListUsers           Action = "user:list"
	ViewUser            Action = "user:view"
	CreateAccount       Action = "user:create"
	ReassignManager     Action = "user:reassign-manager"
	CreateTask          Action = "task:create"
	ViewTask            Action = "task:view"
	UpdateTask          Action = "task:update"
	UpdateTaskStatus    Action = "task:update-status"
	CreateIssue         Action = "issue:create"
	ViewIssue           Action = "issue:view"
	UpdateIssue         Action = "issue:update"
	ReadNotification    Action = "notification:read"
)

// Caller is the authenticated identity a decision is made for.
type Caller struct {
	ID   string
	Role models.Role
}

func CallerOf(u *models.User) Caller {
	if u == nil {
		return Caller{}
	}
	return Caller{ID: u.ID, Role: u.Role}
}

func (c Caller) IsHead() bool    { return c.Role == models.RoleHead }
func (c Caller) IsManager() bool { return c.Role == models.RoleManager }

// UserFacts describes a user that is the target of an action.
type UserFacts struct {
	ID        string
	Role      models.Role
	ManagerID *string
}

func UserFactsOf(u *models.User) *UserFacts {
	if u == nil {
		return nil
	}
	return &UserFacts{ID: u.ID, Role: u.Role, ManagerID: u.ManagerID}
}

func (u *UserFacts) ManagedBy(id string) bool {
	return u != nil && u.ManagerID != nil && *u.ManagerID == id
}

// TeamFacts describes a team relative to the caller. ManagesMember is true
// when the caller is the manager of at least one member.
type TeamFacts struct {
	ID            string
	LeaderID      string
	MemberIDs     []string
	ManagesMember bool
}

func (t *TeamFacts) IsLeader(id string) bool {
	return t != nil && t.LeaderID == id
}

func (t *TeamFacts) IsMember(id string) bool {
	if t == nil {
		return false
	}
	for _, m := range t.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Includes reports whether id leads or belongs to the team.
func (t *TeamFacts) Includes(id string) bool {
	return t.IsLeader(id) || t.IsMember(id)
}

type TaskFacts struct {
	AssigneeID string
	CreatorID  string
	Assignee   *UserFacts
	Team       *TeamFacts
}

type IssueFacts struct {
	CreatorID string
	Creator   *UserFacts
	Task      *TaskFacts
}

// Resource carries whatever facts the action under evaluation needs.
type Resource struct {
	User          *UserFacts
	NewManager    *UserFacts
	RequestedRole models.Role
	Team          *TeamFacts
	ProjectTeams  []TeamFacts
	Task          *TaskFacts
	Issue         *IssueFacts
	OwnerID       string
}

type Decision struct {
	Allowed      bool
	Capabilities Capabilities
	Err          error
}

func allow(caps ...Capability) Decision {
	return Decision{Allowed: true, Capabilities: NewCapabilities(caps...)}
}

func deny(message string) Decision {
	return Decision{Err: utils.Forbidden(message)}
}

func invalid(message string) Decision {
	return Decision{Err: utils.BadRequest(message)}
}

// Precheck applies the role gate of action before any resource is loaded,
// so callers who can never perform it learn nothing about the resource.
// Actions without a role gate are allowed here and decided by Evaluate.
func Precheck(caller Caller, action Action) Decision {
	if caller.ID == "" {
		return Decision{Err: utils.Unauthorized("Authentication required")}
	}
	switch action {
	case CreateProject, UpdateProject:
		if !caller.IsHead() {
			return deny("Only HEAD can manage projects")
		}
	case ReassignManager:
		if !caller.IsHead() {
			return deny("Only HEAD can reassign managers")
		}
	}
	return allow()
}

// Evaluate decides whether caller may perform action on res.
func Evaluate(caller Caller, action Action, res Resource) Decision {
	if caller.ID == "" {
		return Decision{Err: utils.Unauthorized("Authentication required")}
	}

	switch action {
	case CreateProject, UpdateProject:
		if caller.IsHead() {
			return allow()
		}
		return deny("Only HEAD can manage projects")

	case ViewProject:
		if caller.IsHead() {
			return allow()
		}
		for i := range res.ProjectTeams {
			if res.ProjectTeams[i].Includes(caller.ID) {
				return allow()
			}
		}
		return deny("You are not on a team assigned to this project")

	case ViewReport:
		if res.User == nil {
			return invalid("userId is required")
		}
		if caller.IsHead() {
			return allow()
		}
		if caller.IsManager() && res.User.ManagedBy(caller.ID) {
			return allow()
		}
		return deny("You can only view reports of your direct reports")

	case CreateTeam:
		if caller.IsHead() || caller.IsManager() {
			return allow()
		}
		return deny("Only HEAD or MANAGER can create teams")

	case ListTeams:
		if res.Team == nil {
			if caller.IsHead() {
				return allow(ScopeAll)
			}
			return allow(ScopeOwn)
		}
		if caller.IsHead() || res.Team.Includes(caller.ID) {
			return allow()
		}
		return deny("You are not part of this team")

	case ViewTeam:
		if res.Team == nil {
			return invalid("team is required")
		}
		if caller.IsHead() || res.Team.Includes(caller.ID) {
			return allow()
		}
		if caller.IsManager() && res.Team.ManagesMember {
			return allow()
		}
		return deny("You do not have access to this team")

	case ViewTeamPermissions:
		if res.Team == nil {
			return invalid("team is required")
		}
		perms := ResolveTeamPermissions(caller, res.Team)
		if !perms.IsHead && !perms.IsLeader && !perms.IsMember {
			return deny("You are not part of this team")
		}
		return allow(perms.Capabilities()...)

	case ManageTeamMembers, RequestTeamUpdate:
		if res.Team == nil {
			return invalid("team is required")
		}
		if caller.IsHead() || res.Team.IsLeader(caller.ID) {
			return allow()
		}
		return deny("Only HEAD or the team leader can do this")

	case ViewTeamUpdates:
		if res.Team == nil {
			return invalid("team is required")
		}
		if caller.IsHead() || res.Team.Includes(caller.ID) {
			return allow()
		}
		return deny("You are not a member of this team")

	case ListUsers:
		switch caller.Role {
		case models.RoleHead:
			return allow(ScopeAll)
		case models.RoleManager:
			return allow(ScopeReports)
		}
		return deny("You do not have permission to list users")

	case ViewUser:
		if res.User == nil {
			return invalid("user is required")
		}
		if caller.IsHead() || res.User.ID == caller.ID || res.User.ManagedBy(caller.ID) {
			return allow()
		}
		return deny("You do not have access to this user")

	case CreateAccount:
		return evaluateCreateAccount(caller, res)

	case ReassignManager:
		return evaluateReassignManager(caller, res)

	case CreateTask:
		return evaluateCreateTask(caller, res)

	case ViewTask:
		if res.Task == nil {
			return invalid("task is required")
		}
		if canViewTask(caller, res.Task) {
			return allow()
		}
		return deny("You do not have access to this task")

	case UpdateTask:
		if res.Task == nil {
			return invalid("task is required")
		}
		if canEditTask(caller, res.Task) {
			return allow()
		}
		return deny("You cannot edit this task")

	case UpdateTaskStatus:
		if res.Task == nil {
			return invalid("task is required")
		}
		if res.Task.AssigneeID == caller.ID || canEditTask(caller, res.Task) {
			return allow()
		}
		return deny("You cannot change the status of this task")

	case CreateIssue:
		if res.Issue == nil {
			return invalid("issue is required")
		}
		if res.Issue.Task != nil && !canViewTask(caller, res.Issue.Task) {
			return deny("You do not have access to the linked task")
		}
		return allow()

	case ViewIssue:
		if res.Issue == nil {
			return invalid("issue is required")
		}
		if ownsIssue(caller, res.Issue) || (res.Issue.Task != nil && canViewTask(caller, res.Issue.Task)) {
			return allow()
		}
		return deny("You do not have access to this issue")

	case UpdateIssue:
		if res.Issue == nil {
			return invalid("issue is required")
		}
		if ownsIssue(caller, res.Issue) || (res.Issue.Task != nil && res.Issue.Task.Team.IsLeader(caller.ID)) {
			return allow()
		}
		return deny("You cannot edit this issue")

	case ReadNotification:
		if res.OwnerID == caller.ID {
			return allow()
		}
		return deny("This notification belongs to another user")
	}

	return deny("Unknown action")
}

func evaluateCreateAccount(caller Caller, res Resource) Decision {
	switch res.RequestedRole {
	case models.RoleManager:
		if caller.IsHead() {
			return allow()
		}
		return deny("Only HEAD can create MANAGER accounts")
	case models.RoleEmployee:
		if caller.IsHead() || caller.IsManager() {
			return allow()
		}
		return deny("Only HEAD or MANAGER can create EMPLOYEE accounts")
	case models.RoleHead:
		return deny("HEAD accounts cannot be created")
	}
	return invalid("role must be MANAGER or EMPLOYEE")
}

func evaluateReassignManager(caller Caller, res Resource) Decision {
	if d := Precheck(caller, ReassignManager); !d.Allowed {
		return d
	}
	if res.User == nil {
		return invalid("user is required")
	}
	if res.User.Role != models.RoleEmployee {
		return invalid("Only EMPLOYEE users can have a manager")
	}
	if res.NewManager != nil && res.NewManager.Role != models.RoleManager {
		return invalid("New manager must have role MANAGER")
	}
	return allow()
}

func evaluateCreateTask(caller Caller, res Resource) Decision {
	task := res.Task
	if task == nil || task.Assignee == nil {
		return invalid("assigneeId is required")
	}
	if task.Team != nil {
		if !caller.IsHead() && !task.Team.Includes(caller.ID) {
			return deny("You are not part of this team")
		}
		if !task.Team.Includes(task.Assignee.ID) {
			return invalid("Assignee is not part of this team")
		}
	}

	switch {
	case caller.IsHead():
		return allow()
	case task.Assignee.ID == caller.ID:
		return allow()
	case caller.IsManager() && task.Assignee.ManagedBy(caller.ID):
		return allow()
	case task.Team.IsLeader(caller.ID):
		return allow()
	}
	return deny("You cannot assign tasks to this user")
}

func canViewTask(caller Caller, task *TaskFacts) bool {
	return caller.IsHead() ||
		task.AssigneeID == caller.ID ||
		task.CreatorID == caller.ID ||
		task.Assignee.ManagedBy(caller.ID) ||
		task.Team.IsLeader(caller.ID)
}

func canEditTask(caller Caller, task *TaskFacts) bool {
	return caller.IsHead() ||
		task.CreatorID == caller.ID ||
		task.Assignee.ManagedBy(caller.ID) ||
		task.Team.IsLeader(caller.ID)
}

func ownsIssue(caller Caller, issue *IssueFacts) bool {
	return caller.IsHead() ||
		issue.CreatorID == caller.ID ||
		issue.Creator.ManagedBy(caller.ID)
}
