package member

import "strings"

// Capability is one explicit permission resolved from a member's roles.
// Consumers check capabilities instead of re-deriving role booleans.
type Capability string

const (
	CapPublishCourses   Capability = "courses:publish"
	CapModerateCourses  Capability = "courses:moderate"
	CapViewSupportInbox Capability = "support:view-inbox"
	CapAnswerSupport    Capability = "support:answer"
	CapManageKeys       Capability = "keys:manage"
	CapBroadcast        Capability = "admin:broadcast"
	CapManageMembers    Capability = "admin:manage-members"
)

type CapabilitySet map[Capability]struct{}

func (set CapabilitySet) Has(cap Capability) bool {
	_, ok := set[cap]
	return ok
}

func (set CapabilitySet) grant(caps ...Capability) {
	for _, cap := range caps {
		set[cap] = struct{}{}
	}
}

// Capabilities resolves a member's roles into its full permission set.
func Capabilities(roles []string) CapabilitySet {
	set := make(CapabilitySet)
	for _, role := range roles {
		switch {
		case strings.HasPrefix(role, RoleAdmin):
			set.grant(
				CapPublishCourses, CapModerateCourses,
				CapViewSupportInbox, CapAnswerSupport,
				CapManageKeys, CapBroadcast, CapManageMembers,
			)
		case strings.HasPrefix(role, RoleSupport):
			set.grant(CapViewSupportInbox, CapAnswerSupport)
		case strings.HasPrefix(role, RoleTrainer):
			set.grant(CapPublishCourses, CapModerateCourses)
		}
	}
	return set
}

// Can reports whether a member's roles carry a capability.
func (m *Member) Can(cap Capability) bool {
	return Capabilities(m.Roles).Has(cap)
}
