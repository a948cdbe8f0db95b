package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"APP_ENV"`
	Port           string        `mapstructure:"PORT"`
	CatalogSvcURL  string        `mapstructure:"CATALOG_SVC_URL"`
	ServiceRoleKey string        `mapstructure:"SERVICE_ROLE_KEY"`
	QueueName      string        `mapstructure:"QUEUE_NAME"`
	CallTimeout    time.Duration `mapstructure:"CALL_TIMEOUT"`
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", ":8081")
	v.SetDefault("CATALOG_SVC_URL", "localhost:50051")
	v.SetDefault("QUEUE_NAME", "course_generator_queue")
	v.SetDefault("CALL_TIMEOUT", 10*time.Second)

	_ = v.BindEnv("SERVICE_ROLE_KEY")

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}
	err = v.Unmarshal(&config)
	return
}
