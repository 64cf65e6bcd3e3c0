package config

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/repository"
)

type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBTimeZone  string

	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string
	CORSOrigins    []string

	LLMProvider        string
	EmbeddingProvider  string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiEmbedModel   string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAIEmbedModel   string
	OpenAIAssistantID  string
	CompletionTimeout  time.Duration
	AssistantTimeout   time.Duration
	WizardFeedback     bool
	RetrievalThreshold float64
	RetrievalCount     int

	ActiveCampaignURL string
	ActiveCampaignKey string

	SupabaseURL  string
	SupabaseKey  string
	AvatarBucket string

	RedisURL   string
	SessionTTL time.Duration
}

// Load reads the process environment. Call godotenv first when a .env file is used.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv: envString("APP_ENV", "development"),
		Port:   envString("PORT", "8080"),

		DatabaseURL: envString("DATABASE_URL", ""),
		DBHost:      envString("DB_HOST", "localhost"),
		DBPort:      envString("DB_PORT", "5432"),
		DBUser:      envString("DB_USER", "postgres"),
		DBPassword:  envString("DB_PASSWORD", ""),
		DBName:      envString("DB_NAME", "podbrah"),
		DBTimeZone:  envString("DB_TIMEZONE", "UTC"),

		JWTSecret:      envString("JWT_SECRET", envString("SUPABASE_JWT_SECRET", "")),
		TokenTTL:       envDuration("TOKEN_TTL", 7*24*time.Hour),
		GoogleClientID: envString("GOOGLE_CLIENT_ID", ""),
		CORSOrigins:    envList("CORS_ORIGINS"),

		LLMProvider:        envString("LLM_PROVIDER", "openai"),
		EmbeddingProvider:  envString("EMBEDDING_PROVIDER", "openai"),
		GeminiAPIKey:       envString("GEMINI_API_KEY", ""),
		GeminiModel:        envString("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEmbedModel:   envString("GEMINI_EMBED_MODEL", "text-embedding-004"),
		OpenAIAPIKey:       envString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      envString("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:        envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:   envString("OPENAI_EMBED_MODEL", "text-embedding-ada-002"),
		OpenAIAssistantID:  envString("OPENAI_ASSISTANT_ID", ""),
		CompletionTimeout:  envDuration("COMPLETION_TIMEOUT", 30*time.Second),
		AssistantTimeout:   envDuration("ASSISTANT_TIMEOUT", 60*time.Second),
		WizardFeedback:     envBool("WIZARD_FEEDBACK", false),
		RetrievalThreshold: envFloat("RETRIEVAL_THRESHOLD", 0.78),
		RetrievalCount:     envInt("RETRIEVAL_COUNT", 5),

		ActiveCampaignURL: envString("ACTIVECAMPAIGN_URL", ""),
		ActiveCampaignKey: envString("ACTIVECAMPAIGN_API_KEY", ""),

		SupabaseURL:  envString("SUPABASE_URL", ""),
		SupabaseKey:  envString("SUPABASE_KEY", ""),
		AvatarBucket: envString("SUPABASE_AVATAR_BUCKET", "avatars"),

		RedisURL:   envString("REDIS_URL", ""),
		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.EmbeddingProvider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}
	if c.RetrievalCount <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_COUNT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone,
	)
}

// InitDB opens postgres, tunes the pool and migrates the schema.
func InitDB(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	log.Info("postgres connected and migrated", "host", cfg.DBHost, "db", cfg.DBName)
	return db, nil
}
