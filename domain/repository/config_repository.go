package repository

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// NewConfigRepository は設定ファイルと環境変数から設定を組み立てる。
// 認証情報の欠落は起動時に検出する。
func NewConfigRepository(path string) (*Config, error) {
	viper.SetConfigFile(path)

	viper.AutomaticEnv()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if _, err := os.Stat(path); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	bindSecrets()
	setDefaults()

	var c Config
	err := viper.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	valid := validator.New()
	if err = valid.Struct(c); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}

	return &c, nil
}

// 秘匿値はファイルに書かせず環境変数からのみ受け取る
func bindSecrets() {
	for k, env := range map[string]string{
		"graph.client_id":     "CLIENT_ID",
		"graph.client_secret": "CLIENT_SECRET",
		"graph.tenant_id":     "TENANT_ID",
		"graph.acts_as":       "MS_APP_ACTS_AS",
		"graph.team_id":       "TEAM_ID",
		"gitlab.url":          "GITLAB_URL",
		"gitlab.token":        "GITLAB_TOKEN",
		"gitlab.project_id":   "PROJECT_ID",
		"slack.token":         "SLACK_BOT_TOKEN",
	} {
		// viperのエラーはキー未指定時のみ発生する
		_ = viper.BindEnv(k, env)
	}
}

func setDefaults() {
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("graph.login_url", "https://login.microsoftonline.com")
	viper.SetDefault("graph.graph_url", "https://graph.microsoft.com/v1.0")
	viper.SetDefault("store.redis_addr", "localhost:6379")
}

type Config struct {
	Graph               GraphConfig  `mapstructure:"graph"`
	GitLab              GitLabConfig `mapstructure:"gitlab"`
	Store               StoreConfig  `mapstructure:"store"`
	Slack               SlackConfig  `mapstructure:"slack"`
	DuplicateDownCreate bool         `mapstructure:"duplicate_down_creates_new"`
}

type GraphConfig struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	TenantID     string `mapstructure:"tenant_id" validate:"required"`
	ActsAs       string `mapstructure:"acts_as" validate:"required"`
	TeamID       string `mapstructure:"team_id" validate:"required"`
	LoginURL     string `mapstructure:"login_url" validate:"required,url"`
	GraphURL     string `mapstructure:"graph_url" validate:"required,url"`
}

type GitLabConfig struct {
	URL       string `mapstructure:"url" validate:"required,url"`
	Token     string `mapstructure:"token" validate:"required"`
	ProjectID string `mapstructure:"project_id" validate:"required"`
}

type StoreConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=memory dynamodb redis"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// Slackは任意。チャンネル未指定ならアナウンスしない。
type SlackConfig struct {
	Token           string `mapstructure:"token"`
	AnnounceChannel string `mapstructure:"announce_channel"`
}

func (c *Config) SlackEnabled() bool {
	return c.Slack.Token != "" && c.Slack.AnnounceChannel != ""
}
