package auth

import "github.com/workpulse/workpulse/internal/models"

// Action names every role check in the system goes through. Handlers never
// compare role strings directly; they ask the capability table.
type Action string

const (
	ActionClockUse        Action = "clock:use"
	ActionClockViewOthers Action = "clock:view-others"
	ActionLeaveApply      Action = "leave:apply"
	ActionLeaveDecide     Action = "leave:decide"
	ActionLeaveListAll    Action = "leave:list-all"
	ActionLeaveTypesAdmin Action = "admin:leave-types"
	ActionReportExport    Action = "report:export"
	ActionAuditRead       Action = "audit:read"
)

// Capabilities is the role-to-action table.
type Capabilities struct {
	allowed map[models.UserRole]map[Action]bool
}

func NewCapabilities() *Capabilities {
	c := &Capabilities{allowed: make(map[models.UserRole]map[Action]bool)}

	grant := func(role models.UserRole, actions ...Action) {
		m := c.allowed[role]
		if m == nil {
			m = make(map[Action]bool)
			c.allowed[role] = m
		}
		for _, a := range actions {
			m[a] = true
		}
	}

	grant(models.RoleEmployee,
		ActionClockUse, ActionLeaveApply)
	grant(models.RoleManager,
		ActionClockUse, ActionClockViewOthers, ActionLeaveApply,
		ActionLeaveDecide, ActionReportExport)
	grant(models.RoleAdmin,
		ActionClockUse, ActionClockViewOthers, ActionLeaveApply,
		ActionLeaveDecide, ActionLeaveListAll, ActionLeaveTypesAdmin,
		ActionReportExport, ActionAuditRead)

	return c
}

// Allowed reports whether the role may perform the action. Unknown roles
// have no capabilities.
func (c *Capabilities) Allowed(role string, action Action) bool {
	return c.allowed[models.UserRole(role)][action]
}
