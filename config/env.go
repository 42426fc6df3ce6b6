package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// LoadEnv loads the given env files, .env by default. Missing files are skipped
// and variables already set in the process win.
func LoadEnv(files ...string) []string {
	if len(files) == 0 {
		files = []string{".env"}
	}

	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		loaded = append(loaded, file)
	}

	if len(loaded) > 0 {
		log.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
	return loaded
}
