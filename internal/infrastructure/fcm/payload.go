package fcm

import (
	"firebase.google.com/go/v4/messaging"
	"github.com/go-push-scheduler/internal/domain"
)

// Fixed platform hints. They are part of the payload contract with the mobile
// apps and are not derived per message.
const (
	androidPriority  = "high"
	androidChannelID = "reminders"
	defaultSound     = "default"
	apnsPriority     = "10"
	apnsBadge        = 1
)

// BuildMessage shapes msg for token's platform. Unknown platforms get both
// mobile configs.
func BuildMessage(token domain.DeviceToken, msg domain.Message) *messaging.Message {
	data := map[string]string{"category": string(msg.Category)}
	if msg.SourceID != "" {
		data["source_id"] = msg.SourceID
	}
	for k, v := range msg.Data {
		data[k] = v
	}

	m := &messaging.Message{
		Token: token.Token,
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	}
	switch token.Platform {
	case domain.PlatformIOS:
		m.APNS = apnsConfig(msg)
	case domain.PlatformAndroid:
		m.Android = androidConfig()
	case domain.PlatformWeb:
		m.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{Title: msg.Title, Body: msg.Body},
		}
	default:
		m.APNS = apnsConfig(msg)
		m.Android = androidConfig()
	}
	return m
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: androidPriority,
		Notification: &messaging.AndroidNotification{
			Sound:     defaultSound,
			ChannelID: androidChannelID,
		},
	}
}

func apnsConfig(msg domain.Message) *messaging.APNSConfig {
	badge := apnsBadge
	return &messaging.APNSConfig{
		Headers: map[string]string{"apns-priority": apnsPriority},
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Alert:    &messaging.ApsAlert{Title: msg.Title, Body: msg.Body},
				Sound:    defaultSound,
				Badge:    &badge,
				Category: string(msg.Category),
			},
		},
	}
}
