package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`
	EnableCORS    bool   `mapstructure:"ENABLE_CORS"`
	LogPath       string `mapstructure:"LOG_PATH"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// StoreSoftFail makes the store degrade to empty results when redis is
	// unreachable instead of surfacing 503s. Local development only.
	StoreSoftFail bool `mapstructure:"STORE_SOFT_FAIL"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	OperatorEmail     string `mapstructure:"OPERATOR_EMAIL"`
	OperatorPassHash  string `mapstructure:"OPERATOR_PASSWORD_HASH"`
	ConfirmSecret     string `mapstructure:"CONFIRM_TOKEN_SECRET"`
	ConfirmMaxAgeDays int    `mapstructure:"CONFIRM_TOKEN_MAX_AGE_DAYS"`
	WebhookSecret     string `mapstructure:"WEBHOOK_SECRET"`

	SMTPHost  string `mapstructure:"SMTP_HOST"`
	SMTPPort  int    `mapstructure:"SMTP_PORT"`
	SMTPUser  string `mapstructure:"SMTP_USER"`
	SMTPPass  string `mapstructure:"SMTP_PASS"`
	EmailFrom string `mapstructure:"EMAIL_FROM"`

	CalendarBaseURL      string `mapstructure:"CALENDAR_BASE_URL"`
	CalendarTokenURL     string `mapstructure:"CALENDAR_TOKEN_URL"`
	CalendarClientID     string `mapstructure:"CALENDAR_CLIENT_ID"`
	CalendarClientSecret string `mapstructure:"CALENDAR_CLIENT_SECRET"`
	CalendarPropertyID   string `mapstructure:"CALENDAR_PROPERTY_ID"`

	PaymentBaseURL string `mapstructure:"PAYMENT_BASE_URL"`
	PaymentAPIKey  string `mapstructure:"PAYMENT_API_KEY"`
	Currency       string `mapstructure:"CURRENCY"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	BaseRate            float64 `mapstructure:"BASE_RATE"`
	CleaningFee         float64 `mapstructure:"CLEANING_FEE"`
	TouristTaxPerNight  float64 `mapstructure:"TOURIST_TAX_PER_NIGHT"`
	WeeklyDiscountPct   float64 `mapstructure:"WEEKLY_DISCOUNT_PCT"`
	BiweeklyDiscountPct float64 `mapstructure:"BIWEEKLY_DISCOUNT_PCT"`
	MonthlyDiscountPct  float64 `mapstructure:"MONTHLY_DISCOUNT_PCT"`
	DepositPct          float64 `mapstructure:"DEPOSIT_PCT"`
	DepositMin          float64 `mapstructure:"DEPOSIT_MIN"`
	DepositUnit         float64 `mapstructure:"DEPOSIT_UNIT"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("PUBLIC_BASE_URL", "http://127.0.0.1:8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CONFIRM_TOKEN_MAX_AGE_DAYS", 7)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("CURRENCY", "eur")
	viper.SetDefault("BASE_RATE", 120)
	viper.SetDefault("CLEANING_FEE", 50)
	viper.SetDefault("TOURIST_TAX_PER_NIGHT", 2.88)
	viper.SetDefault("WEEKLY_DISCOUNT_PCT", 5)
	viper.SetDefault("BIWEEKLY_DISCOUNT_PCT", 10)
	viper.SetDefault("MONTHLY_DISCOUNT_PCT", 20)
	viper.SetDefault("DEPOSIT_PCT", 0.30)
	viper.SetDefault("DEPOSIT_MIN", 100)
	viper.SetDefault("DEPOSIT_UNIT", 50)

	viper.BindEnv("PUBLIC_BASE_URL")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("LOG_PATH")
	viper.BindEnv("LOG_LEVEL")
	viper.BindEnv("REDIS_ADDR")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("STORE_SOFT_FAIL")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("OPERATOR_EMAIL")
	viper.BindEnv("OPERATOR_PASSWORD_HASH")
	viper.BindEnv("CONFIRM_TOKEN_SECRET")
	viper.BindEnv("WEBHOOK_SECRET")
	viper.BindEnv("SMTP_HOST")
	viper.BindEnv("SMTP_USER")
	viper.BindEnv("SMTP_PASS")
	viper.BindEnv("EMAIL_FROM")
	viper.BindEnv("CALENDAR_BASE_URL")
	viper.BindEnv("CALENDAR_TOKEN_URL")
	viper.BindEnv("CALENDAR_CLIENT_ID")
	viper.BindEnv("CALENDAR_CLIENT_SECRET")
	viper.BindEnv("CALENDAR_PROPERTY_ID")
	viper.BindEnv("PAYMENT_BASE_URL")
	viper.BindEnv("PAYMENT_API_KEY")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}

// ConfirmMaxAge returns the confirmation-token max age in days, never zero.
func (c *Config) ConfirmMaxAge() int {
	if c.ConfirmMaxAgeDays <= 0 {
		return 7
	}
	return c.ConfirmMaxAgeDays
}
