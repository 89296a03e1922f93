package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/workpulse/workpulse/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "workpulse",
	Short: "workpulse is the office attendance and leave service",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, jobCmd)
}

// loadConfig reads .env (if present), then the YAML file and environment
// overrides.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	path := configPath
	if path == "" {
		path = os.Getenv("WORKPULSE_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}
	return config.Load(path)
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
