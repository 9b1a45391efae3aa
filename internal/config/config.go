package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	Source SourceConfig `mapstructure:"source"`
	Run    RunConfig    `mapstructure:"run"`

	Pipelines map[string]PipelineConfig `mapstructure:"pipelines"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SourceConfig describes the KAMIS market-price endpoint and its retry policy.
// Retries apply to GET requests only. The site presents a broken TLS chain,
// hence the insecure_skip_verify default.
type SourceConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	PerPage            int           `mapstructure:"per_page"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RetryCount         int           `mapstructure:"retry_count"`
	RetryWaitTime      time.Duration `mapstructure:"retry_wait_time"`
	RetryMaxWaitTime   time.Duration `mapstructure:"retry_max_wait_time"`
	MaxPages           int           `mapstructure:"max_pages"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// RunConfig bounds the load-job wait so a stuck load fails the run instead of
// blocking it forever.
type RunConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout"`
}

// PipelineConfig parametrizes one commodity family.
type PipelineConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Dataset       string `mapstructure:"dataset"`
	Commodities   []int  `mapstructure:"commodities"`
	GradeSex      bool   `mapstructure:"grade_sex"`
	RolloverGuard bool   `mapstructure:"rollover_guard"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.schedule", "0 0 6 * * *")
	v.SetDefault("source.base_url", "https://kamis.kilimo.go.ke/site")
	v.SetDefault("source.per_page", 3000)
	v.SetDefault("source.timeout", "60s")
	v.SetDefault("source.retry_count", 4)
	v.SetDefault("source.retry_wait_time", "2s")
	v.SetDefault("source.retry_max_wait_time", "32s")
	v.SetDefault("source.max_pages", 50)
	v.SetDefault("source.insecure_skip_verify", true)
	v.SetDefault("run.poll_interval", "2s")
	v.SetDefault("run.load_timeout", "10m")

	v.SetDefault("pipelines.fertilizer.enabled", true)
	v.SetDefault("pipelines.fertilizer.dataset", "fertilizer")
	v.SetDefault("pipelines.fertilizer.commodities", []int{217})
	v.SetDefault("pipelines.fertilizer.grade_sex", false)
	v.SetDefault("pipelines.fertilizer.rollover_guard", true)

	v.SetDefault("pipelines.livestock.enabled", true)
	v.SetDefault("pipelines.livestock.dataset", "livestock")
	v.SetDefault("pipelines.livestock.commodities", []int{140, 168, 167, 211, 227})
	v.SetDefault("pipelines.livestock.grade_sex", true)
	v.SetDefault("pipelines.livestock.rollover_guard", false)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
