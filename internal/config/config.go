package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// Client side: where the bar server lives.
	BaseURL string
	WSURL   string
}

func Load() Config {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	cfg := Config{
		Port:    getenv("PORT", "8080"),
		DBDSN:   getenv("DB_DSN", "bargalileo.db"), // sqlite file in project root
		LogFile: getenv("LOG_FILE", ""),
		BaseURL: getenv("BAR_URL", "http://localhost:8080"),
		WSURL:   getenv("BAR_WS_URL", "ws://localhost:8080/ws/stock_updates/"),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s BAR_URL=%s", cfg.Port, cfg.DBDSN, cfg.BaseURL)
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
