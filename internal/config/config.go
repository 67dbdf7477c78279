package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
}

// RateLimitConfig 定义联系表单的固定窗口限流参数
type RateLimitConfig struct {
	Limit         int           // 每个窗口允许的请求数，默认 5
	Window        time.Duration // 窗口长度，默认 60s
	Backend       string        // "memory" 或 "redis"
	SweepInterval time.Duration // 内存存储清理过期条目的间隔，0 表示不清理
}

// RedisConfig 定义 Redis 服务配置（仅在 ratelimit.backend=redis 时使用）
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// MailConfig 定义邮件投递配置
type MailConfig struct {
	Provider      string  // "resend"、"smtp" 或 "log"
	To            string  // 站长接收通知的地址
	From          string  // 发件人身份，如 "Name <contact@example.com>"
	Acknowledge   bool    // 是否给提交者发送确认邮件
	ResendAPIKey  string  // Resend API 密钥
	ResendBaseURL string  // Resend API 地址
	SendRate      float64 // 每秒最多投递次数，0 表示不限制
	SendBurst     int
	Timeout       time.Duration
}

// SMTPConfig 定义 SMTP 投递配置（mail.provider=smtp 时使用）
type SMTPConfig struct {
	Addr     string // "host:port"
	Username string
	Password string
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Mail      MailConfig
	SMTP      SMTPConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: CONTACT_
// 例如: CONTACT_SERVER_PORT, CONTACT_MAIL_TO
//
// 兼容旧部署的变量名：RESEND_API_KEY、CONTACT_TO_EMAIL、CONTACT_FROM_EMAIL。
//
// mail.to 与 mail.from 缺失不会导致加载失败，由每次请求报告配置缺失。
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("contact")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("mail.to", "CONTACT_MAIL_TO", "CONTACT_TO_EMAIL")
	_ = v.BindEnv("mail.from", "CONTACT_MAIL_FROM", "CONTACT_FROM_EMAIL")
	_ = v.BindEnv("mail.resend_api_key", "CONTACT_MAIL_RESEND_API_KEY", "RESEND_API_KEY")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("ratelimit.limit", 5)
	v.SetDefault("ratelimit.window", "60s")
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.sweep_interval", "10m")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mail.provider", "resend")
	v.SetDefault("mail.acknowledge", true)
	v.SetDefault("mail.resend_base_url", "https://api.resend.com")
	v.SetDefault("mail.send_rate", 2)
	v.SetDefault("mail.send_burst", 2)
	v.SetDefault("mail.timeout", "10s")
	v.SetDefault("smtp.addr", "")

	window, err := time.ParseDuration(v.GetString("ratelimit.window"))
	if err != nil {
		return nil, fmt.Errorf("invalid ratelimit.window: %w", err)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit.window must be positive")
	}

	limit := v.GetInt("ratelimit.limit")
	if limit <= 0 {
		limit = 5
	}

	sweepInterval, err := time.ParseDuration(v.GetString("ratelimit.sweep_interval"))
	if err != nil {
		sweepInterval = 10 * time.Minute
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("ratelimit.backend")))
	if backend != "memory" && backend != "redis" {
		return nil, fmt.Errorf("unsupported ratelimit.backend %q", backend)
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("mail.provider")))
	switch provider {
	case "resend", "smtp", "log":
	default:
		return nil, fmt.Errorf("unsupported mail.provider %q", provider)
	}

	mailTimeout, err := time.ParseDuration(v.GetString("mail.timeout"))
	if err != nil {
		mailTimeout = 10 * time.Second
	}

	corsOrigins := parseList(v.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
		RateLimit: RateLimitConfig{
			Limit:         limit,
			Window:        window,
			Backend:       backend,
			SweepInterval: sweepInterval,
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Mail: MailConfig{
			Provider:      provider,
			To:            strings.TrimSpace(v.GetString("mail.to")),
			From:          strings.TrimSpace(v.GetString("mail.from")),
			Acknowledge:   v.GetBool("mail.acknowledge"),
			ResendAPIKey:  v.GetString("mail.resend_api_key"),
			ResendBaseURL: strings.TrimRight(v.GetString("mail.resend_base_url"), "/"),
			SendRate:      v.GetFloat64("mail.send_rate"),
			SendBurst:     v.GetInt("mail.send_burst"),
			Timeout:       mailTimeout,
		},
		SMTP: SMTPConfig{
			Addr:     v.GetString("smtp.addr"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
