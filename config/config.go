package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PlaceholderAPIKey はサンプル設定に書かれているダミーのAPIキーです。
const PlaceholderAPIKey = "your_gemini_api_key_here"

// ErrMissingCredential はGeminiのAPIキーが未設定、またはダミーのままの場合に返されます。
var ErrMissingCredential = errors.New("gemini api key is not set")

// Config はアプリケーションの設定を保持します。
type Config struct {
	Gemini struct {
		APIKey  string        `mapstructure:"api_key"`
		Model   string        `mapstructure:"model"`
		BaseURL string        `mapstructure:"base_url"`
		Backend string        `mapstructure:"backend"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	Web struct {
		Addr          string   `mapstructure:"addr"`
		SessionSecret string   `mapstructure:"session_secret"`
		SecureCookies bool     `mapstructure:"secure_cookies"`
		ClientID      string   `mapstructure:"client_id"`
		ClientSecret  string   `mapstructure:"client_secret"`
		RedirectURI   string   `mapstructure:"redirect_uri"`
		AuthURL       string   `mapstructure:"auth_url"`
		TokenURL      string   `mapstructure:"token_url"`
		UserInfoURL   string   `mapstructure:"userinfo_url"`
		Scopes        []string `mapstructure:"scopes"`
	}
	Storage struct {
		Path          string        `mapstructure:"path"`
		Retention     time.Duration `mapstructure:"retention"`
		PruneSchedule string        `mapstructure:"prune_schedule"`
	}
	Generation struct {
		DailyQuota int `mapstructure:"daily_quota"`
	}
	Preview struct {
		Timeout time.Duration `mapstructure:"timeout"`
	}
	Workspace struct {
		MaxIdle       time.Duration `mapstructure:"max_idle"`
		SweepSchedule string        `mapstructure:"sweep_schedule"`
	}
	Log struct {
		File  string `mapstructure:"file"`
		Level string `mapstructure:"level"`
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.backend", "rest")
	v.SetDefault("gemini.timeout", 30*time.Second)

	v.SetDefault("web.addr", ":8080")
	v.SetDefault("web.secure_cookies", false)
	v.SetDefault("web.scopes", []string{"openid", "profile", "email"})

	v.SetDefault("storage.path", "./sitegen.db")
	v.SetDefault("storage.retention", 30*24*time.Hour)
	v.SetDefault("storage.prune_schedule", "@daily")

	v.SetDefault("generation.daily_quota", 0)
	v.SetDefault("preview.timeout", 5*time.Second)

	v.SetDefault("workspace.max_idle", time.Hour)
	v.SetDefault("workspace.sweep_schedule", "@every 10m")

	v.SetDefault("log.file", "sitegen.log")
	v.SetDefault("log.level", "info")
}

// Load は設定ファイルと環境変数から設定を読み込みます。
// path が空の場合はカレントディレクトリの config.yaml を探し、見つからなくてもデフォルト値で続行します。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("sitegen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// .env.local に書かれていた昔からの変数名も受け付ける
	if err := v.BindEnv("gemini.api_key", "SITEGEN_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("環境変数のバインドに失敗: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	return &cfg, nil
}

// HasCredential はAPIキーが実際の値として設定されているかを返します。
func (c *Config) HasCredential() bool {
	key := strings.TrimSpace(c.Gemini.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// Validate は起動時に必須項目をチェックします。
func (c *Config) Validate() error {
	if !c.HasCredential() {
		return ErrMissingCredential
	}
	switch c.Gemini.Backend {
	case "rest", "sdk":
	default:
		return fmt.Errorf("unknown gemini backend %q", c.Gemini.Backend)
	}
	if c.Gemini.Timeout <= 0 {
		return errors.New("gemini.timeout must be positive")
	}
	if c.Web.SessionSecret == "" {
		return errors.New("web.session_secret is required")
	}
	if c.Generation.DailyQuota < 0 {
		return errors.New("generation.daily_quota must not be negative")
	}
	return nil
}

// OAuthEnabled はOAuth2ログインに必要な項目がすべて揃っているかを返します。
func (c *Config) OAuthEnabled() bool {
	w := c.Web
	return w.ClientID != "" && w.ClientSecret != "" && w.AuthURL != "" && w.TokenURL != "" && w.UserInfoURL != ""
}
