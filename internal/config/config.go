package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-push-scheduler/internal/pkg/validate"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// Service account for the push gateway. Either a JSON key file or the
	// inline FCM_* variables.
	ServiceAccountFile string
	FCMClientEmail     string
	FCMPrivateKey      string
	FCMProjectID       string
	FCMEndpoint        string `validate:"required,url"`
	OAuthTokenURL      string `validate:"omitempty,url"` // empty defers to the key file
	TokenExpirySkew    time.Duration
	CredentialTimeout  time.Duration `validate:"gt=0"`

	SendTimeout         time.Duration `validate:"gt=0"`
	DispatchBatchSize   int           `validate:"gt=0"`
	DispatchConcurrency int           `validate:"gt=0"`
	DispatchRatePerSec  int           `validate:"gte=0"`

	MinCooldown           time.Duration `validate:"gte=0"`
	SendWindowStartHour   int           `validate:"gte=0,lte=24"`
	SendWindowEndHour     int           `validate:"gte=0,lte=24,gtefield=SendWindowStartHour"`
	ServiceUTCOffsetHours int           `validate:"gte=-12,lte=14"`

	ReportBucket  string
	AlertTopicARN string
	SNSRegion     string

	AllowedOrigins   []string // CORS allowed origins
	JWTPublicKeyPath string
	TriggerKeyHash   string // bcrypt hash of the scheduler's trigger key
	SweepCron        string // optional in-process schedule for the API binary
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Recipients       string `validate:"required"`
	DeviceTokens     string `validate:"required"`
	JourneyTemplates string `validate:"required"`
	CycleReminders   string `validate:"required"`
	Broadcasts       string `validate:"required"`
	Deliveries       string `validate:"required"`
	Campaigns        string `validate:"required"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Recipients:       getEnv("DYNAMO_TABLE_RECIPIENTS", "recipients"),
			DeviceTokens:     getEnv("DYNAMO_TABLE_DEVICE_TOKENS", "device_tokens"),
			JourneyTemplates: getEnv("DYNAMO_TABLE_JOURNEY_TEMPLATES", "journey_templates"),
			CycleReminders:   getEnv("DYNAMO_TABLE_CYCLE_REMINDERS", "cycle_reminders"),
			Broadcasts:       getEnv("DYNAMO_TABLE_BROADCASTS", "broadcasts"),
			Deliveries:       getEnv("DYNAMO_TABLE_DELIVERIES", "deliveries"),
			Campaigns:        getEnv("DYNAMO_TABLE_CAMPAIGNS", "campaigns"),
		},
		ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		FCMClientEmail:     getEnv("FCM_CLIENT_EMAIL", ""),
		// Inline keys usually arrive with escaped newlines.
		FCMPrivateKey:     strings.ReplaceAll(getEnv("FCM_PRIVATE_KEY", ""), `\n`, "\n"),
		FCMProjectID:      getEnv("FCM_PROJECT_ID", ""),
		FCMEndpoint:       getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com"),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
		TokenExpirySkew:   getEnvDuration("TOKEN_EXPIRY_SKEW", time.Minute),
		CredentialTimeout: getEnvDuration("CREDENTIAL_TIMEOUT", 10*time.Second),

		SendTimeout:         getEnvDuration("SEND_TIMEOUT", 10*time.Second),
		DispatchBatchSize:   getEnvInt("DISPATCH_BATCH_SIZE", 100),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 100),
		DispatchRatePerSec:  getEnvInt("DISPATCH_RATE_PER_SEC", 500),

		MinCooldown:           getEnvDuration("MIN_COOLDOWN", 2*time.Hour),
		SendWindowStartHour:   getEnvInt("SEND_WINDOW_START_HOUR", 9),
		SendWindowEndHour:     getEnvInt("SEND_WINDOW_END_HOUR", 24),
		ServiceUTCOffsetHours: getEnvInt("SERVICE_UTC_OFFSET_HOURS", 0),

		ReportBucket:  getEnv("REPORT_BUCKET", ""),
		AlertTopicARN: getEnv("ALERT_TOPIC_ARN", ""),
		SNSRegion:     getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),
		TriggerKeyHash:   getEnv("TRIGGER_KEY_HASH", ""),
		SweepCron:        getEnv("SWEEP_CRON", ""),
	}
}

// Validate checks ranges and required values after Load.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location returns the fixed zone used for all calendar arithmetic and the
// daily send window.
func (c *Config) Location() *time.Location {
	return time.FixedZone("service", c.ServiceUTCOffsetHours*3600)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "2h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
