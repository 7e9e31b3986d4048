package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// EnvSuggestAPIKey 覆盖建议服务密钥的环境变量
const EnvSuggestAPIKey = "SSQ_SUGGEST_API_KEY"

// Config 应用程序配置结构
type Config struct {
	Database Database `yaml:"database"`
	Telegram Telegram `yaml:"telegram"`
	Feed     Feed     `yaml:"feed"`
	Suggest  Suggest  `yaml:"suggest"`
	Engine   Engine   `yaml:"engine"`
	Metrics  Metrics  `yaml:"metrics"`
	App      App      `yaml:"app"`
}

// Database 数据库配置
type Database struct {
	Driver          string        `yaml:"driver" validate:"oneof=mysql sqlite"`
	Path            string        `yaml:"path" validate:"required_if=Driver sqlite"`
	Host            string        `yaml:"host" validate:"required_if=Driver mysql"`
	Port            int           `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username        string        `yaml:"username"`
	Database        string        `yaml:"database" validate:"required_if=Driver mysql"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Telegram Bot配置
type Telegram struct {
	Enabled     bool          `yaml:"enabled"`
	Token       string        `yaml:"token" validate:"required_if=Enabled true"`
	Timeout     time.Duration `yaml:"timeout"`
	PredictRate time.Duration `yaml:"predict_rate"` // 两次机器人触发预测的最小间隔
}

// Feed 开奖数据源配置
type Feed struct {
	URL        string        `yaml:"url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	RetryCount int           `yaml:"retry_count" validate:"min=0,max=10"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Suggest 外部建议服务配置（OpenAI 兼容接口）
type Suggest struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string        `yaml:"api_key" validate:"required_if=Enabled true"`
	Model       string        `yaml:"model" validate:"required_if=Enabled true"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"min=0"`
}

// Engine 预测引擎参数
type Engine struct {
	MinHistory    int      `yaml:"min_history" validate:"min=50"`
	TargetCount   int      `yaml:"target_count" validate:"min=1,max=50"`
	TopUpAttempts int      `yaml:"top_up_attempts" validate:"min=0"`
	StrategyPlan  []string `yaml:"strategy_plan" validate:"dive,oneof=consensus balanced trend exploratory"`
	Seed          int64    `yaml:"seed"` // 0 表示不固定种子
}

// Metrics 指标导出配置
type Metrics struct {
	Listen string `yaml:"listen"` // 为空时不启动 /metrics
}

// App 应用程序配置
type App struct {
	PollingInterval time.Duration `yaml:"polling_interval" validate:"gt=0"`
	RunRetention    time.Duration `yaml:"run_retention"` // 0 表示永久保留
	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat       string        `yaml:"log_format" validate:"omitempty,oneof=text json"`
	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"gt=0"`
}

var validate = validator.New()

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Database: Database{
			Driver:          "sqlite",
			Path:            "data/ssq.db",
			Port:            3306,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Telegram: Telegram{
			Timeout:     60 * time.Second,
			PredictRate: 30 * time.Second,
		},
		Feed: Feed{
			URL:        "http://data.17500.cn/ssq_asc.txt",
			Timeout:    30 * time.Second,
			RetryCount: 3,
			RetryDelay: 2 * time.Second,
		},
		Suggest: Suggest{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Timeout:     60 * time.Second,
			Temperature: 0.8,
			MaxTokens:   2000,
		},
		Engine: Engine{
			MinHistory:    50,
			TargetCount:   10,
			TopUpAttempts: 50,
			StrategyPlan: []string{
				"consensus", "consensus", "consensus",
				"balanced", "balanced", "balanced",
				"trend", "trend",
				"exploratory", "exploratory",
			},
		},
		App: App{
			PollingInterval: 10 * time.Minute,
			RunRetention:    90 * 24 * time.Hour,
			LogLevel:        "info",
			LogFormat:       "text",
			CacheTTL:        5 * time.Minute,
		},
	}
}

// LoadConfig 加载配置文件，缺省字段使用默认值
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse 解析 YAML 配置内容并校验
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if key := os.Getenv(EnvSuggestAPIKey); key != "" {
		config.Suggest.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Engine.StrategyPlan) == 0 {
		return fmt.Errorf("invalid config: engine.strategy_plan must not be empty")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns && c.Database.MaxOpenConns > 0 {
		return fmt.Errorf("invalid config: max_idle_conns (%d) exceeds max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (d *Database) GetDSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
