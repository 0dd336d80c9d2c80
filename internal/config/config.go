package config

import (
	"os"
)

type Config struct {
	DatabaseURL string
	Wiki        string // schema name the store operates on
	Environment string
	// Storage feature toggles
	CustomMappings       bool
	ClassTables          bool
	Backlinks            bool
	DocumentVersioning   bool
	AttachmentVersioning bool // false selects the void attachment archive
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		Wiki:                 getEnv("WIKI", defaultWiki(env)),
		Environment:          env,
		CustomMappings:       getEnv("CUSTOM_MAPPINGS", "true") == "true",
		ClassTables:          getEnv("CLASS_TABLES", "true") == "true",
		Backlinks:            getEnv("BACKLINKS", "true") == "true",
		DocumentVersioning:   getEnv("DOCUMENT_VERSIONING", "true") == "true",
		AttachmentVersioning: getEnv("ATTACHMENT_VERSIONING", "true") == "true",
		// Debug defaults to true outside production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// defaultWiki returns the schema to use when WIKI is unset.
func defaultWiki(env string) string {
	switch env {
	case "prod":
		return "wiki_main"
	case "test":
		return "wiki_test"
	default:
		return "wiki_dev"
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
