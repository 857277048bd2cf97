package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env    string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Debug  bool   `yaml:"debug" env:"DEBUG" env-default:"false"`
	OrgID  string `yaml:"org_id" env:"ORG_ID" env-default:""`
	Listen struct {
		Host string `yaml:"host" env:"HOST" env-default:"0.0.0.0"`
		Port string `yaml:"port" env:"PORT" env-default:"8018"`
	} `yaml:"listen"`
	Loki struct {
		URL string `yaml:"url" env:"LOKI_URL" env-default:""`
	} `yaml:"loki"`
	Mongo struct {
		Host       string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port       string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		Username   string `yaml:"username" env:"MONGO_USERNAME" env-default:""`
		Password   string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		AuthSource string `yaml:"auth_source" env:"MONGO_AUTH_SOURCE" env-default:"admin"`
		Database   string `yaml:"database" env:"MONGO_DATABASE" env-default:"flow_engine"`
	} `yaml:"mongo"`
	Scheduler struct {
		TickSeconds int `yaml:"tick_seconds" env:"DELAY_TICK_SECONDS" env-default:"20"`
	} `yaml:"scheduler"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	} `yaml:"telegram"`
	WhatsApp struct {
		ConnectorURL string `yaml:"connector_url" env:"WHATSAPP_CONNECTOR_URL" env-default:""`
		ApiKey       string `yaml:"api_key" env:"WHATSAPP_API_KEY" env-default:""`
	} `yaml:"whatsapp"`
	Gmail struct {
		CredentialsFile string `yaml:"credentials_file" env:"GMAIL_CREDENTIALS_FILE" env-default:""`
		TokenFile       string `yaml:"token_file" env:"GMAIL_TOKEN_FILE" env-default:""`
		Sender          string `yaml:"sender" env:"GMAIL_SENDER" env-default:""`
	} `yaml:"gmail"`
}

var instance *Config
var once sync.Once

// MustLoad reads the yaml config when the file exists, environment only
// otherwise.
func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if _, statErr := os.Stat(path); statErr == nil {
			err = cleanenv.ReadConfig(path, instance)
		} else {
			err = cleanenv.ReadEnv(instance)
		}
		if err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
