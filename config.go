package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings. Every field has a development default
// and can be overridden through the environment (optionally via a .env file).
type Config struct {
	Addr      string
	Database  string
	SecretKey string
	FeedSize  int
}

var cfg = defaultConfig()

func defaultConfig() Config {
	return Config{
		Addr:      ":5000",
		Database:  "/tmp/warbler.db",
		SecretKey: "development-key",
		FeedSize:  100,
	}
}

func loadConfig() Config {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	c := defaultConfig()
	if v := os.Getenv("WARBLER_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("WARBLER_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("WARBLER_SECRET"); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv("WARBLER_FEED_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.FeedSize = n
		}
	}
	return c
}
