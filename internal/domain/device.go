package domain

import "time"

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// DeviceToken is a push registration for one device of one recipient.
// It is deleted, never edited, when the gateway reports it permanently invalid.
type DeviceToken struct {
	Token     string    `json:"-" dynamodbav:"token"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Platform  Platform  `json:"platform" dynamodbav:"platform"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
