package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	HostawayBase      string
	HostawayAccountID string
	HostawayAPIKey    string

	PlacesBase   string
	PlacesAPIKey string
	PlaceIDs     []string

	RedisAddr string
	RedisPass string
	RedisDB   int

	FetchWorkers int
	CacheTTL     time.Duration
}

func Load() Config {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:            env("APP_ENV", "prod"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		HostawayBase:      env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayAPIKey:    env("HOSTAWAY_API_KEY", ""),
		PlacesBase:        env("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api"),
		PlacesAPIKey:      env("GOOGLE_PLACES_API_KEY", ""),
		PlaceIDs:          splitCSV(os.Getenv("GOOGLE_PLACE_IDS")),
		RedisAddr:         env("REDIS_ADDR", ""),
		RedisPass:         env("REDIS_PASSWORD", ""),
		RedisDB:           atoi("REDIS_DB", 0),
		FetchWorkers:      atoi("FETCH_WORKERS", 4),
		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
	}
	if c.HostawayAPIKey == "" || c.HostawayAccountID == "" {
		log.Warn().Msg("hostaway credentials are empty; serving fixture reviews")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
