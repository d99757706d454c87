package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
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

	// ArchiveBackend selects where the retention sweep copies old notifications: "table" or "s3".
	ArchiveBackend string
	ArchiveBucket  string

	SNSRegion string
	// SNSPlatformApplicationARN is the SNS platform application device tokens are registered under.
	SNSPlatformApplicationARN string
	PushPerSecond             int
	BreakerMaxFailures        int
	BreakerTimeout            time.Duration
	// PushTokenMode is "multi" (every registered token) or "single" (most recent token only).
	PushTokenMode      string
	LookupByIDFallback bool

	TimeZone string
	RedisURL string // enables strict duplicate suppression when set

	// JWTPublicKeyPath enables bearer auth on the push endpoint when the file exists.
	JWTPublicKeyPath string
	AllowedOrigins   []string // CORS allowed origins
	PushRateLimit    float64  // requests/second per IP on the HTTP push endpoint
	PushRateBurst    int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications         string
	ArchivedNotifications string
	Users                 string
	Courses               string
	Schedules             string
	Tasks                 string
	StudentTasks          string
	Payments              string
	Attendance            string
	Settings              string
}

var defaults = map[string]interface{}{
	"APP_PORT":                            "3000",
	"APP_ENV":                             "development",
	"AWS_REGION":                          "ap-southeast-1",
	"DYNAMO_TABLE_NOTIFICATIONS":          "notifications",
	"DYNAMO_TABLE_ARCHIVED_NOTIFICATIONS": "archived_notifications",
	"DYNAMO_TABLE_USERS":                  "users",
	"DYNAMO_TABLE_COURSES":                "courses",
	"DYNAMO_TABLE_SCHEDULES":              "schedules",
	"DYNAMO_TABLE_TASKS":                  "tasks",
	"DYNAMO_TABLE_STUDENT_TASKS":          "student_tasks",
	"DYNAMO_TABLE_PAYMENTS":               "payments",
	"DYNAMO_TABLE_ATTENDANCE":             "attendance",
	"DYNAMO_TABLE_SETTINGS":               "settings",
	"ARCHIVE_BACKEND":                     "table",
	"ARCHIVE_BUCKET":                      "notification-archive",
	"SNS_REGION":                          "ap-southeast-1",
	"PUSH_PER_SECOND":                     20,
	"BREAKER_MAX_FAILURES":                5,
	"BREAKER_TIMEOUT":                     "30s",
	"PUSH_TOKEN_MODE":                     "multi",
	"LOOKUP_BY_ID_FALLBACK":               true,
	"TIME_ZONE":                           "Asia/Kuala_Lumpur",
	"JWT_PUBLIC_KEY_PATH":                 "./public_key.pem",
	"ALLOWED_ORIGINS":                     "*",
	"PUSH_RATE_LIMIT":                     5.0,
	"PUSH_RATE_BURST":                     10,
}

// Load reads all configuration from environment variables.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	return &Config{
		AppPort:        v.GetString("APP_PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		AWSRegion:      v.GetString("AWS_REGION"),
		AWSEndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		AWSAccessKeyID: v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		DynamoTables: DynamoTables{
			Notifications:         v.GetString("DYNAMO_TABLE_NOTIFICATIONS"),
			ArchivedNotifications: v.GetString("DYNAMO_TABLE_ARCHIVED_NOTIFICATIONS"),
			Users:                 v.GetString("DYNAMO_TABLE_USERS"),
			Courses:               v.GetString("DYNAMO_TABLE_COURSES"),
			Schedules:             v.GetString("DYNAMO_TABLE_SCHEDULES"),
			Tasks:                 v.GetString("DYNAMO_TABLE_TASKS"),
			StudentTasks:          v.GetString("DYNAMO_TABLE_STUDENT_TASKS"),
			Payments:              v.GetString("DYNAMO_TABLE_PAYMENTS"),
			Attendance:            v.GetString("DYNAMO_TABLE_ATTENDANCE"),
			Settings:              v.GetString("DYNAMO_TABLE_SETTINGS"),
		},
		ArchiveBackend:            strings.ToLower(v.GetString("ARCHIVE_BACKEND")),
		ArchiveBucket:             v.GetString("ARCHIVE_BUCKET"),
		SNSRegion:                 v.GetString("SNS_REGION"),
		SNSPlatformApplicationARN: v.GetString("SNS_PLATFORM_APPLICATION_ARN"),
		PushPerSecond:             v.GetInt("PUSH_PER_SECOND"),
		BreakerMaxFailures:        v.GetInt("BREAKER_MAX_FAILURES"),
		BreakerTimeout:            v.GetDuration("BREAKER_TIMEOUT"),
		PushTokenMode:             strings.ToLower(v.GetString("PUSH_TOKEN_MODE")),
		LookupByIDFallback:        v.GetBool("LOOKUP_BY_ID_FALLBACK"),
		TimeZone:                  v.GetString("TIME_ZONE"),
		RedisURL:                  v.GetString("REDIS_URL"),
		JWTPublicKeyPath:          v.GetString("JWT_PUBLIC_KEY_PATH"),
		// viper splits string slices on whitespace, origins are comma separated.
		AllowedOrigins: strings.Split(v.GetString("ALLOWED_ORIGINS"), ","),
		PushRateLimit:  v.GetFloat64("PUSH_RATE_LIMIT"),
		PushRateBurst:  v.GetInt("PUSH_RATE_BURST"),
	}
}

// Location returns the time zone sweeps compute calendar days in, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
