package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (run lock). Empty host disables the lock.
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Mail transport: "smtp", "ses", or "log"
	MailProvider string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	AWSRegion string

	FromEmail string
	FromName  string
	ReplyTo   string

	// Campaign
	StagesFile    string
	LocalTZOffset string // consumed only by the fixed-anchor policy
	DryRun        bool
	MaxBatch      int
	LedgerKeyMode string

	// Storefront links for rendering
	WishlistURL    string
	LogoURL        string
	PlaceholderImg string

	// MetricsAddr serves /metrics and /healthz during the run when set.
	MetricsAddr string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Env:      "development",

		DBHost:    "localhost",
		DBPort:    5432,
		DBUser:    "wishloop",
		DBName:    "wishloop",
		DBSSLMode: "disable",

		RedisPort: 6379,

		MailProvider: "log",
		SMTPPort:     587,
		AWSRegion:    "us-east-1",
		FromEmail:    "no-reply@example.com",
		FromName:     "Wishloop",

		StagesFile:     "configs/stages.yaml",
		LocalTZOffset:  "-06:00",
		MaxBatch:       300,
		LedgerKeyMode:  "per-stage",
		PlaceholderImg: "https://via.placeholder.com/300x300?text=Product",
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	// Mail transport
	if provider := os.Getenv("MAIL_PROVIDER"); provider != "" {
		cfg.MailProvider = provider
	}
	switch cfg.MailProvider {
	case "smtp", "ses", "log":
	default:
		return nil, fmt.Errorf("invalid MAIL_PROVIDER %q: want smtp, ses or log", cfg.MailProvider)
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = p
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.SMTPUsername = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		cfg.SMTPPassword = pass
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("FROM_EMAIL"); from != "" {
		cfg.FromEmail = from
	}
	if name := os.Getenv("FROM_NAME"); name != "" {
		cfg.FromName = name
	}
	if replyTo := os.Getenv("REPLY_TO"); replyTo != "" {
		cfg.ReplyTo = replyTo
	}

	// Campaign config
	if file := os.Getenv("STAGES_FILE"); file != "" {
		cfg.StagesFile = file
	}
	if offset := os.Getenv("LOCAL_TZ_OFFSET"); offset != "" {
		cfg.LocalTZOffset = offset
	}
	if dryRun := os.Getenv("DRY_RUN"); dryRun != "" {
		b, err := strconv.ParseBool(dryRun)
		if err != nil {
			return nil, fmt.Errorf("invalid DRY_RUN: %w", err)
		}
		cfg.DryRun = b
	}
	if batch := os.Getenv("MAX_BATCH"); batch != "" {
		n, err := strconv.Atoi(batch)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_BATCH: %q", batch)
		}
		cfg.MaxBatch = n
	}
	if mode := os.Getenv("LEDGER_KEY_MODE"); mode != "" {
		cfg.LedgerKeyMode = mode
	}

	// Storefront links
	if u := os.Getenv("WISHLIST_URL"); u != "" {
		cfg.WishlistURL = u
	}
	if cfg.WishlistURL == "" {
		return nil, fmt.Errorf("WISHLIST_URL is required (e.g. https://shop.example.com)")
	}
	if u := os.Getenv("LOGO_URL"); u != "" {
		cfg.LogoURL = u
	}
	if u := os.Getenv("PLACEHOLDER_IMG"); u != "" {
		cfg.PlaceholderImg = u
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}

	return cfg, nil
}
