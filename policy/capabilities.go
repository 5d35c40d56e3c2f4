package policy

import "taskhub/models"

type Capability string

const (
	IsLeader       Capability = "isLeader"
	IsHead         Capability = "isHead"
	IsManager      Capability = "isManager"
	IsMember       Capability = "isMember"
	CanManageTasks Capability = "canManageTasks"

	// Listing scopes.
	ScopeAll     Capability = "scope:all"
	ScopeReports Capability = "scope:reports"
	ScopeOwn     Capability = "scope:own"
)

type Capabilities map[Capability]struct{}

func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (c Capabilities) Has(capability Capability) bool {
	_, ok := c[capability]
	return ok
}

// TeamPermissions is the caller's standing on a team as returned by the
// team permissions endpoint.
type TeamPermissions struct {
	IsLeader       bool `json:"isLeader"`
	IsHead         bool `json:"isHead"`
	IsManager      bool `json:"isManager"`
	IsMember       bool `json:"isMember"`
	CanManageTasks bool `json:"canManageTasks"`
}

// ResolveTeamPermissions derives the caller's flags for a team. IsManager
// reflects the caller's role only; it does not check that the manager
// oversees anyone on the team.
func ResolveTeamPermissions(caller Caller, team *TeamFacts) TeamPermissions {
	perms := TeamPermissions{
		IsLeader:  team.IsLeader(caller.ID),
		IsHead:    caller.Role == models.RoleHead,
		IsManager: caller.Role == models.RoleManager,
		IsMember:  team.IsMember(caller.ID),
	}
	perms.CanManageTasks = perms.IsLeader || perms.IsHead || perms.IsManager
	return perms
}

func (p TeamPermissions) Capabilities() []Capability {
	var caps []Capability
	for _, flag := range []struct {
		on  bool
		cap Capability
	}{
		{p.IsLeader, IsLeader},
		{p.IsHead, IsHead},
		{p.IsManager, IsManager},
		{p.IsMember, IsMember},
		{p.CanManageTasks, CanManageTasks},
	} {
		if flag.on {
			caps = append(caps, flag.cap)
		}
	}
	return caps
}

// TeamPermissionsFrom rebuilds the flags from a capability set.
func TeamPermissionsFrom(caps Capabilities) TeamPermissions {
	return TeamPermissions{
		IsLeader:       caps.Has(IsLeader),
		IsHead:         caps.Has(IsHead),
		IsManager:      caps.Has(IsManager),
		IsMember:       caps.Has(IsMember),
		CanManageTasks: caps.Has(CanManageTasks),
	}
}
