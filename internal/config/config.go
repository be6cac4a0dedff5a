package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StyleText = "text"
	StylePost = "post"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is read once at startup and never changes during a run. Values come
// from the optional YAML file first; environment variables override them and
// env-default fills whatever is still empty.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Push     PushConfig     `yaml:"push"`
	Feishu   FeishuConfig   `yaml:"feishu"`
	State    StateConfig    `yaml:"state"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	Schedule ScheduleConfig `yaml:"schedule"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type SourceConfig struct {
	URL          string        `yaml:"url"           env:"LIST_URL"      env-default:"https://news.aibase.com/zh/news"`
	LinkPattern  string        `yaml:"link_pattern"  env:"LINK_PATTERN"  env-default:"^/zh/news/(\\d+)$"`
	SkipKeywords []string      `yaml:"skip_keywords" env:"SKIP_KEYWORDS" env-default:"AI资讯,最新资讯" env-separator:","`
	UserAgent    string        `yaml:"user_agent"    env:"USER_AGENT"    env-default:"Mozilla/5.0 (compatible; news-pusher/1.0)"`
	Timeout      time.Duration `yaml:"timeout"       env:"FETCH_TIMEOUT" env-default:"20s"`
}

type PushConfig struct {
	TopN int `yaml:"top_n" env:"TOP_N" env-default:"5"`
}

type FeishuConfig struct {
	Webhook     string        `yaml:"webhook"       env:"FEISHU_WEBHOOK"`
	Secret      string        `yaml:"secret"        env:"FEISHU_SECRET"`
	Style       string        `yaml:"style"         env:"FEISHU_MSG_STYLE" env-default:"post"`
	Title       string        `yaml:"title"         env:"MESSAGE_TITLE"    env-default:"AIBase 最新资讯"`
	TitleMaxLen int           `yaml:"title_max_len" env:"TITLE_MAX_LEN"    env-default:"46"`
	Timeout     time.Duration `yaml:"timeout"       env:"PUSH_TIMEOUT"     env-default:"20s"`
}

type StateConfig struct {
	Backend     string `yaml:"backend"      env:"STATE_BACKEND" env-default:"file"`
	File        string `yaml:"file"         env:"STATE_FILE"    env-default:"state.json"`
	MaxSeenIDs  int    `yaml:"max_seen_ids" env:"MAX_SEEN_IDS"  env-default:"5000"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

// AMQPConfig configures the optional mirror publisher. An empty URL disables it.
type AMQPConfig struct {
	URL        string `yaml:"url"         env:"AMQP_URL"`
	Exchange   string `yaml:"exchange"    env:"AMQP_EXCHANGE"    env-default:"news_pusher"`
	RoutingKey string `yaml:"routing_key" env:"AMQP_ROUTING_KEY" env-default:"news.pushed"`
	QueueName  string `yaml:"queue_name"  env:"AMQP_QUEUE"       env-default:"news_pushed"`
}

type ScheduleConfig struct {
	CronSpec   string        `yaml:"cron_spec"   env:"CRON_SPEC"   env-default:"*/30 * * * *"`
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT" env-default:"5m"`
}

// Load builds the configuration. path is optional; when empty only .env and
// the process environment are consulted.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.Feishu.Webhook = strings.TrimSpace(c.Feishu.Webhook)
	if c.Feishu.Webhook == "" {
		return errors.New("FEISHU_WEBHOOK is required")
	}

	// Anything but "text" renders as a post.
	c.Feishu.Style = strings.ToLower(strings.TrimSpace(c.Feishu.Style))
	if c.Feishu.Style != StyleText {
		c.Feishu.Style = StylePost
	}

	if strings.TrimSpace(c.Source.URL) == "" {
		return errors.New("source.url is required")
	}
	if _, err := regexp.Compile(c.Source.LinkPattern); err != nil {
		return fmt.Errorf("source.link_pattern: %w", err)
	}
	if c.State.MaxSeenIDs < 1 {
		return errors.New("state.max_seen_ids must be at least 1")
	}
	if c.Schedule.RunTimeout <= 0 {
		return errors.New("schedule.run_timeout must be positive")
	}

	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	switch c.State.Backend {
	case BackendFile:
		if c.State.File == "" {
			return errors.New("state.file is required for the file backend")
		}
	case BackendPostgres:
		if c.State.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("state.backend: unknown backend %q (want file or postgres)", c.State.Backend)
	}

	return nil
}
