package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	AppURL            string
	PostgresURI       string
	RedisURI          string
	BlueskyServiceURL string
	GraphAPIBaseURL   string
	TiktokAPIBaseURL  string
	TwitterAPIKey     string
	TwitterAPISecret  string
	R2                R2
	SecretKey         string
	CookieName        string
}

func LoadConfig() *Config {
	return &Config{
		AppURL:            getEnv("APP_URL", "https://app.unipost.cl"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", ""),
		BlueskyServiceURL: getEnv("BLUESKY_SERVICE_URL", "https://bsky.social"),
		GraphAPIBaseURL:   getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v21.0"),
		TiktokAPIBaseURL:  getEnv("TIKTOK_API_BASE_URL", "https://open.tiktokapis.com"),
		TwitterAPIKey:     getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret:  getEnv("TWITTER_API_SECRET", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "unipost_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
