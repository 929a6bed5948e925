package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	CORSAllowOrigins   string        `mapstructure:"cors_allow_origins"`
	MaxConcurrency     int64         `mapstructure:"max_concurrency"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 存储配置
	StorageType           string `mapstructure:"storage_type"`
	StorageLocalPath      string `mapstructure:"storage_local_path"`
	StorageMinioEndpoint  string `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKey string `mapstructure:"storage_minio_access_key"`
	StorageMinioSecretKey string `mapstructure:"storage_minio_secret_key"`
	StorageMinioBucket    string `mapstructure:"storage_minio_bucket"`
	StorageMinioUseSSL    bool   `mapstructure:"storage_minio_use_ssl"`
	StorageWebDAVURL      string `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername string `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword string `mapstructure:"storage_webdav_password"`
	StorageWebDAVRootPath string `mapstructure:"storage_webdav_root_path"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheAITTL         time.Duration `mapstructure:"cache_ai_ttl"`

	// 投票配置
	VoteQuota int `mapstructure:"vote_quota"`

	// 图片配置
	UploadMaxSizeMB    int           `mapstructure:"upload_max_size_mb"`
	ImageRetention     time.Duration `mapstructure:"image_retention"`
	ImageSweepInterval time.Duration `mapstructure:"image_sweep_interval"`

	// 人机验证配置，secret 为空时不校验
	VerificationSecret  string        `mapstructure:"verification_secret"`
	VerificationURL     string        `mapstructure:"verification_url"`
	VerificationTimeout time.Duration `mapstructure:"verification_timeout"`

	// AI 配置
	AIEndpoint        string        `mapstructure:"ai_endpoint"`
	AIModel           string        `mapstructure:"ai_model"`
	AITimeout         time.Duration `mapstructure:"ai_timeout"`
	AIHealthTimeout   time.Duration `mapstructure:"ai_health_timeout"`
	AIMaxTokens       int           `mapstructure:"ai_max_tokens"`
	AITemperature     float64       `mapstructure:"ai_temperature"`
	AIFallbackEnabled bool          `mapstructure:"ai_fallback_enabled"`

	// 限流配置
	RateLimitApiRPS       float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst     int           `mapstructure:"rate_limit_api_burst"`
	RateLimitVotePerHour  int           `mapstructure:"rate_limit_vote_per_hour"`
	RateLimitAIPerHour    int           `mapstructure:"rate_limit_ai_per_hour"`
	RateLimitImagePerHour int           `mapstructure:"rate_limit_image_per_hour"`
	RateLimitExpireTime   time.Duration `mapstructure:"rate_limit_expire_time"`

	// 管理接口，为空时不注册
	AdminToken string `mapstructure:"admin_token"`

	// 日志配置
	LogLevel string `mapstructure:"log_level"`
	LogDebug bool   `mapstructure:"log_debug"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		cfg, err := Load(viper.GetViper())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
			os.Exit(1)
		}
		globalConfig = *cfg
	})
}

func Get() *Config {
	return &globalConfig
}

// Load 从 viper 实例加载配置，config_file_path 为空时读取 ./.env
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	path := v.GetString("config_file_path")
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: %s not found, using defaults and environment variables\n", path)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", path)
	}

	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.VoteQuota <= 0 {
		return fmt.Errorf("vote_quota must be positive, got %d", c.VoteQuota)
	}
	if c.UploadMaxSizeMB <= 0 {
		return fmt.Errorf("upload_max_size_mb must be positive, got %d", c.UploadMaxSizeMB)
	}
	if c.ImageRetention <= 0 {
		return fmt.Errorf("image_retention must be positive, got %s", c.ImageRetention)
	}
	switch c.StorageType {
	case "local", "minio", "webdav":
	default:
		return fmt.Errorf("unsupported storage_type: %s", c.StorageType)
	}
	switch c.CacheType {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache_type: %s", c.CacheType)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器配置默认值
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_domain", "")
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "90s") // 需覆盖 AI 流式响应
	v.SetDefault("server_idle_timeout", "120s")
	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("max_concurrency", 100)

	// 数据库配置默认值
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "eatinator")
	v.SetDefault("db_file_path", "./data/eatinator.db")
	v.SetDefault("db_max_open_conns", 100)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", 3600)

	// 存储配置默认值
	v.SetDefault("storage_type", "local")
	v.SetDefault("storage_local_path", "./data/images")
	v.SetDefault("storage_minio_endpoint", "")
	v.SetDefault("storage_minio_access_key", "")
	v.SetDefault("storage_minio_secret_key", "")
	v.SetDefault("storage_minio_bucket", "eatinator")
	v.SetDefault("storage_minio_use_ssl", false)
	v.SetDefault("storage_webdav_url", "")
	v.SetDefault("storage_webdav_username", "")
	v.SetDefault("storage_webdav_password", "")
	v.SetDefault("storage_webdav_root_path", "/eatinator")

	// 缓存提供者配置默认值
	v.SetDefault("cache_type", "memory")
	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)
	v.SetDefault("cache_ai_ttl", "5m")

	v.SetDefault("vote_quota", 10)

	v.SetDefault("upload_max_size_mb", 15)
	v.SetDefault("image_retention", "24h")
	v.SetDefault("image_sweep_interval", "1h")

	v.SetDefault("verification_secret", "")
	v.SetDefault("verification_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("verification_timeout", "10s")

	v.SetDefault("ai_endpoint", "http://127.0.0.1:11434/api/generate")
	v.SetDefault("ai_model", "llama3.1:8b")
	v.SetDefault("ai_timeout", "60s")
	v.SetDefault("ai_health_timeout", "5s")
	v.SetDefault("ai_max_tokens", 300)
	v.SetDefault("ai_temperature", 0.7)
	v.SetDefault("ai_fallback_enabled", true)

	// 限流配置默认值
	v.SetDefault("rate_limit_api_rps", 30.0)
	v.SetDefault("rate_limit_api_burst", 60)
	v.SetDefault("rate_limit_vote_per_hour", 20)
	v.SetDefault("rate_limit_ai_per_hour", 30)
	v.SetDefault("rate_limit_image_per_hour", 20)
	v.SetDefault("rate_limit_expire_time", "1h")

	v.SetDefault("admin_token", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_debug", false)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return strings.TrimRight(c.ServerDomain, "/")
	}
	host := c.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// AllowOrigins 解析 CORS 来源列表
func (c *Config) AllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// UploadMaxBytes 单张图片上限（字节）
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxSizeMB) << 20
}

// VerificationEnabled 是否启用人机验证
func (c *Config) VerificationEnabled() bool {
	return c.VerificationSecret != ""
}
