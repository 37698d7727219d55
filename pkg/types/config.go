package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"4000"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"60"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Auth
	JWTSecret  string `envconfig:"JWT_SECRET"`
	BcryptCost int    `envconfig:"BCRYPT_COST" default:"10"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Mail
	MailTransport string `envconfig:"MAIL_TRANSPORT" default:"log"` // log, ses or smtp
	MailFrom      string `envconfig:"MAIL_FROM" default:"LifeDrop <no-reply@lifedrop.local>"`
	SMTPHost      string `envconfig:"SMTP_HOST"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername  string `envconfig:"SMTP_USERNAME"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`

	// Notification fan-out
	NotifyConcurrency   int    `envconfig:"NOTIFY_CONCURRENCY" default:"8"`
	NotifyTimeoutSec    uint   `envconfig:"NOTIFY_TIMEOUT_SEC" default:"30"`
	NotifyArchiveBucket string `envconfig:"NOTIFY_ARCHIVE_BUCKET"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
