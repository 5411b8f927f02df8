package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	// FieldMapPath points at the generated custom-field mapping table.
	FieldMapPath string `mapstructure:"FIELD_MAP_PATH"`

	// HaloBaseURL is the Halo instance root, e.g. https://acme.halopsa.com.
	HaloBaseURL string `mapstructure:"HALO_BASE_URL"`

	// ZendeskBaseURL overrides the per-subdomain Zendesk URL. Empty means
	// https://<subdomain>.zendesk.com per credential; set it in tests and
	// sandbox deployments.
	ZendeskBaseURL string `mapstructure:"ZENDESK_BASE_URL"`

	// RequireZendeskActive rejects credentials that have switched Zendesk
	// off. Kept on during the migration period.
	RequireZendeskActive bool `mapstructure:"REQUIRE_ZENDESK_ACTIVE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("FIELD_MAP_PATH", "fieldmap.json")
	v.SetDefault("REQUIRE_ZENDESK_ACTIVE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
