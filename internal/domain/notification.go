package domain

type Importance string

const (
	ImportanceMin     Importance = "min"
	ImportanceLow     Importance = "low"
	ImportanceDefault Importance = "default"
	ImportanceHigh    Importance = "high"
)

// Channel groups notifications; presenters that need one must have it
// registered before the first notification is shown.
type Channel struct {
	ID          string
	Name        string
	Description string
	Importance  Importance
}

type Notification struct {
	ID        int
	ChannelID string
	Title     string
	Text      string
	// Ongoing notifications cannot be dismissed by the user.
	Ongoing bool
	Actions []NotificationAction
}

type NotificationAction struct {
	Label   string
	Command Command
}
