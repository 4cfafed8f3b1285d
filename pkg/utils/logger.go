package utils

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger from MOVIEHUB_LOG_LEVEL
// and MOVIEHUB_LOG_FORMAT.
func SetupLogger() {
	log.SetOutput(os.Stdout)

	if strings.EqualFold(os.Getenv("MOVIEHUB_LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(getEnv("MOVIEHUB_LOG_LEVEL", "info"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
