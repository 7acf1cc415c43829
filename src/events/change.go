package events

// Op is the kind of diff applied to a channel's record set.
type Op string

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
)

// Channel names one of the coordinator's observable collections.
type Channel string

const (
	ChannelSessions      Channel = "sessions"
	ChannelQueues        Channel = "queues"
	ChannelExtensions    Channel = "extension_requests"
	ChannelNotifications Channel = "notifications"
	ChannelSessionLogs   Channel = "session_logs"
)

// Change is one diff event: a record was added to, updated in or removed
// from a channel. TargetUserID is set only for per-user channels
// (notifications) so subscribers can filter what they forward.
type Change struct {
	Channel      Channel `json:"channel"`
	Op           Op      `json:"op"`
	ResourceID   string  `json:"resource_id,omitempty"`
	TargetUserID string  `json:"target_user_id,omitempty"`
	Record       any     `json:"record"`
}
