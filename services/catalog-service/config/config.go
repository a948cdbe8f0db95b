package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"APP_ENV"`
	DBDriver       string        `mapstructure:"DB_DRIVER"`
	DBHost         string        `mapstructure:"DB_HOST"`
	DBPort         string        `mapstructure:"DB_PORT"`
	DBUser         string        `mapstructure:"DB_USER"`
	DBPassword     string        `mapstructure:"DB_PASSWORD"`
	DBName         string        `mapstructure:"DB_NAME"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	AccessSecret   string        `mapstructure:"ACCESS_SECRET"`
	AccessTTL      time.Duration `mapstructure:"ACCESS_TTL"`
	ServiceRoleKey string        `mapstructure:"SERVICE_ROLE_KEY"`
	BcryptCost     int           `mapstructure:"BCRYPT_COST"`
	QueueDriver    string        `mapstructure:"QUEUE_DRIVER"`
	QueueMaxLen    int64         `mapstructure:"QUEUE_MAX_LEN"`
	GRPCPort       string        `mapstructure:"GRPC_PORT"`
	SeedDemo       bool          `mapstructure:"SEED_DEMO"`
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("SQLITE_PATH", "catalog.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("ACCESS_TTL", time.Hour)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("QUEUE_DRIVER", "redis")
	v.SetDefault("QUEUE_MAX_LEN", 10000)
	v.SetDefault("GRPC_PORT", ":50051")
	v.SetDefault("SEED_DEMO", false)

	// Bind explicitly so the values are seen without an app.env file.
	for _, key := range []string{
		"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"ACCESS_SECRET", "SERVICE_ROLE_KEY",
	} {
		_ = v.BindEnv(key)
	}

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}
