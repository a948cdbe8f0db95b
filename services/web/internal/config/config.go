package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"APP_ENV"`
	Port           string        `mapstructure:"PORT"`
	CatalogSvcURL  string        `mapstructure:"CATALOG_SVC_URL"`
	FunctionsURL   string        `mapstructure:"FUNCTIONS_URL"`
	AnonKey        string        `mapstructure:"ANON_KEY"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	REDIS_ADDR     string        `mapstructure:"REDIS_ADDR"`
	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	CacheIdleTTL   time.Duration `mapstructure:"CACHE_IDLE_TTL"`
	SearchDebounce time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	SSEHeartbeat   time.Duration `mapstructure:"SSE_HEARTBEAT"`
	GenerateLimit  int           `mapstructure:"GENERATE_RATE_LIMIT"`
	GenerateWindow time.Duration `mapstructure:"GENERATE_RATE_WINDOW"`
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", ":8080")
	v.SetDefault("CATALOG_SVC_URL", "localhost:50051")
	v.SetDefault("FUNCTIONS_URL", "http://localhost:8081/functions/v1")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("FETCH_TIMEOUT", 10*time.Second)
	v.SetDefault("CACHE_IDLE_TTL", 30*time.Minute)
	v.SetDefault("SEARCH_DEBOUNCE", 300*time.Millisecond)
	v.SetDefault("SSE_HEARTBEAT", 15*time.Second)
	v.SetDefault("GENERATE_RATE_LIMIT", 5)
	v.SetDefault("GENERATE_RATE_WINDOW", time.Minute)

	_ = v.BindEnv("ANON_KEY")
	_ = v.BindEnv("ALLOWED_ORIGINS")

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}
	err = v.Unmarshal(&config)
	return
}
