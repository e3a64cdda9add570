package core

// Notification audiences
const (
	AudienceMember  = "member"
	AudienceSupport = "support"
	AudienceAdmins  = "admins"
)

type (
	// Notification is a push/local notification to be delivered to an audience.
	// TargetKey narrows the audience to one member when set.
	Notification struct {
		Audience  string
		TargetKey string
		Title     string
		Body      string
	}

	// NotificationService is any service that can deliver notifications.
	// Delivery is fire-and-forget: implementations must not block the caller
	// and must swallow (but log) delivery failures.
	NotificationService interface {
		Push(notifs ...*Notification)
	}
)
