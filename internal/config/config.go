package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port        string `envconfig:"SFB_PORT" default:"8080"`
	DatabaseDSN string `envconfig:"SFB_DATABASE_DSN" default:"host=localhost user=postgres password=postgres dbname=school_fees port=5432 sslmode=disable"`
	TokenSecret string `envconfig:"SFB_TOKEN_SECRET" default:"change-me"`
	LogLevel    string `envconfig:"SFB_LOG_LEVEL" default:"info"`

	Mpesa MpesaConfig
}

type MpesaConfig struct {
	ConsumerKey       string `envconfig:"SFB_MPESA_CONSUMER_KEY"`
	ConsumerSecret    string `envconfig:"SFB_MPESA_CONSUMER_SECRET"`
	BusinessShortCode string `envconfig:"SFB_MPESA_SHORT_CODE"`
	Passkey           string `envconfig:"SFB_MPESA_PASSKEY"`
	Environment       string `envconfig:"SFB_MPESA_ENVIRONMENT" default:"sandbox"`
	CallbackURL       string `envconfig:"SFB_MPESA_CALLBACK_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("sfb", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}

func InitDB(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
