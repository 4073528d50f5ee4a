package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mvallois/rendez/internal/backup"
	"github.com/mvallois/rendez/internal/email"
	"github.com/mvallois/rendez/internal/store"
)

type Config struct {
	HTTPAddr string
	// TrustProxyHeaders makes rate limiting and request logs use
	// X-Forwarded-For. Leave off unless a trusted reverse proxy fronts the
	// server.
	TrustProxyHeaders bool

	DBPath          string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Reminder offset: how long before the appointment the reminder fires.
	// 24h and 2h are both legitimate historical values.
	ReminderOffset  time.Duration
	DispatchTimeout time.Duration

	MailAPIURL      string
	MailServerToken string
	MailFrom        string

	MeetingBaseURL string

	Backup backup.Config
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RENDEZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.trust_proxy_headers", false)
	v.SetDefault("database.path", "rendez.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("shutdown.timeout", "5s")
	v.SetDefault("reminder.offset", "24h")
	v.SetDefault("reminder.dispatch_timeout", "15s")
	v.SetDefault("mail.api_url", email.DefaultAPIURL)
	v.SetDefault("mail.server_token", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("meeting.base_url", store.DefaultMeetingBaseURL)
	v.SetDefault("backup.interval", "24h")
	v.SetDefault("backup.passphrase", "")
	v.SetDefault("backup.s3.endpoint", "")
	v.SetDefault("backup.s3.bucket", "")
	v.SetDefault("backup.s3.region", "auto")
	v.SetDefault("backup.s3.access_key", "")
	v.SetDefault("backup.s3.secret_key", "")

	_ = v.BindEnv("http.addr", "RENDEZ_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("http.trust_proxy_headers", "RENDEZ_HTTP_TRUST_PROXY_HEADERS")
	_ = v.BindEnv("database.path", "RENDEZ_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("log.level", "RENDEZ_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("shutdown.timeout", "RENDEZ_SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("reminder.offset", "RENDEZ_REMINDER_OFFSET")
	_ = v.BindEnv("reminder.dispatch_timeout", "RENDEZ_REMINDER_DISPATCH_TIMEOUT")
	_ = v.BindEnv("mail.api_url", "RENDEZ_MAIL_API_URL")
	_ = v.BindEnv("mail.server_token", "RENDEZ_MAIL_SERVER_TOKEN")
	_ = v.BindEnv("mail.from", "RENDEZ_MAIL_FROM")
	_ = v.BindEnv("meeting.base_url", "RENDEZ_MEETING_BASE_URL")
	_ = v.BindEnv("backup.interval", "RENDEZ_BACKUP_INTERVAL")
	_ = v.BindEnv("backup.passphrase", "RENDEZ_BACKUP_PASSPHRASE")
	_ = v.BindEnv("backup.s3.endpoint", "RENDEZ_BACKUP_S3_ENDPOINT")
	_ = v.BindEnv("backup.s3.bucket", "RENDEZ_BACKUP_S3_BUCKET")
	_ = v.BindEnv("backup.s3.region", "RENDEZ_BACKUP_S3_REGION")
	_ = v.BindEnv("backup.s3.access_key", "RENDEZ_BACKUP_S3_ACCESS_KEY")
	_ = v.BindEnv("backup.s3.secret_key", "RENDEZ_BACKUP_S3_SECRET_KEY")

	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, err
	}
	reminderOffset, err := time.ParseDuration(v.GetString("reminder.offset"))
	if err != nil {
		return Config{}, err
	}
	dispatchTimeout, err := time.ParseDuration(v.GetString("reminder.dispatch_timeout"))
	if err != nil {
		return Config{}, err
	}
	backupInterval, err := time.ParseDuration(v.GetString("backup.interval"))
	if err != nil {
		return Config{}, err
	}

	dbPath := v.GetString("database.path")

	return Config{
		HTTPAddr:          v.GetString("http.addr"),
		TrustProxyHeaders: v.GetBool("http.trust_proxy_headers"),
		DBPath:            dbPath,
		LogLevel:          v.GetString("log.level"),
		ShutdownTimeout:   shutdownTimeout,
		ReminderOffset:    reminderOffset,
		DispatchTimeout:   dispatchTimeout,
		MailAPIURL:        v.GetString("mail.api_url"),
		MailServerToken:   v.GetString("mail.server_token"),
		MailFrom:          v.GetString("mail.from"),
		MeetingBaseURL:    v.GetString("meeting.base_url"),
		Backup: backup.Config{
			DBPath:     dbPath,
			Interval:   backupInterval,
			Passphrase: v.GetString("backup.passphrase"),
			S3: backup.S3Config{
				Endpoint:  v.GetString("backup.s3.endpoint"),
				Bucket:    v.GetString("backup.s3.bucket"),
				Region:    v.GetString("backup.s3.region"),
				AccessKey: v.GetString("backup.s3.access_key"),
				SecretKey: v.GetString("backup.s3.secret_key"),
			},
		},
	}, nil
}
