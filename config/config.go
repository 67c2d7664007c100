package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every configuration parameter, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort    string `envconfig:"HTTP_PORT" default:"8082"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	JWTSecret    string `envconfig:"JWT_SECRET" default:"default_secret"`
	JWTExpiresIn string `envconfig:"JWT_EXPIRES_IN" default:"1h"`

	EmailHost     string `envconfig:"EMAIL_HOST"`
	EmailPort     int    `envconfig:"EMAIL_PORT" default:"587"`
	EmailUser     string `envconfig:"EMAIL_USER"`
	EmailPassword string `envconfig:"EMAIL_PASSWORD"`
	EmailSecure   bool   `envconfig:"EMAIL_SECURE" default:"false"`

	// Daily reminder to moderators about the pending queue. Empty disables it.
	ReminderSchedule string `envconfig:"REMINDER_CRON_SCHEDULE" default:"0 8 * * *"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminUsername string `envconfig:"SEED_ADMIN_USERNAME" default:"admin"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
