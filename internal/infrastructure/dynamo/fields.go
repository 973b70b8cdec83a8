package dynamo

// DynamoDB attribute names used in key and update expressions across all repos.
const (
	fieldUserID               = "user_id"
	fieldToken                = "token"
	fieldCampaignID           = "campaign_id"
	fieldNotificationsEnabled = "notifications_enabled"
	fieldEnabled              = "enabled"
	fieldLastSentAt           = "last_sent_at"
	fieldStatus               = "status"
	fieldTotalSent            = "total_sent"
	fieldTotalFailed          = "total_failed"
	fieldSentAt               = "sent_at"
	fieldFailureReason        = "failure_reason"
	fieldUpdatedAt            = "updated_at"
)

const indexUserID = "user_id-index"
