// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Budget        BudgetConfig        `yaml:"budget" mapstructure:"budget"`
	Admission     AdmissionConfig     `yaml:"admission" mapstructure:"admission"`
	Workflow      WorkflowConfig      `yaml:"workflow" mapstructure:"workflow"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis    RedisConfig         `yaml:"redis" mapstructure:"redis"`
	Local    LocalCacheConfig    `yaml:"local" mapstructure:"local"`
	Semantic SemanticCacheConfig `yaml:"semantic" mapstructure:"semantic"`
	Warming  WarmingConfig       `yaml:"warming" mapstructure:"warming"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	TTL          time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LocalCacheConfig 本地缓存层配置
type LocalCacheConfig struct {
	MaxEntries    int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// SemanticCacheConfig 语义缓存配置
type SemanticCacheConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	TopK      int     `yaml:"top_k" mapstructure:"top_k"`
}

// WarmingConfig 缓存预热配置
type WarmingConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	QueueSize int           `yaml:"queue_size" mapstructure:"queue_size"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
}

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	CollectionPrefix   string `yaml:"collection_prefix" mapstructure:"collection_prefix"`
	IndexType          string `yaml:"index_type" mapstructure:"index_type"`
	MetricType         string `yaml:"metric_type" mapstructure:"metric_type"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// LLMConfig LLM 配置
// Tiers 以模型档位（economy/standard/premium）为键
type LLMConfig struct {
	DefaultTier string                `yaml:"default_tier" mapstructure:"default_tier"`
	Tiers       map[string]TierConfig `yaml:"tiers" mapstructure:"tiers"`
}

// TierConfig 模型档位配置
type TierConfig struct {
	APIKey               string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL              string        `yaml:"base_url" mapstructure:"base_url"`
	Model                string        `yaml:"model" mapstructure:"model"`
	MaxTokens            int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature          float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout              time.Duration `yaml:"timeout" mapstructure:"timeout"`
	InputCostPer1KTokens float64       `yaml:"input_cost_per_1k_tokens" mapstructure:"input_cost_per_1k_tokens"`
	OutputCostPer1KToken float64       `yaml:"output_cost_per_1k_tokens" mapstructure:"output_cost_per_1k_tokens"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Model     string `yaml:"model" mapstructure:"model"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
}

// BudgetConfig 预算配置
type BudgetConfig struct {
	DailyLimit        float64 `yaml:"daily_limit" mapstructure:"daily_limit"`
	MonthlyLimit      float64 `yaml:"monthly_limit" mapstructure:"monthly_limit"`
	PerRequestCeiling float64 `yaml:"per_request_ceiling" mapstructure:"per_request_ceiling"`
	StandardTierFloor float64 `yaml:"standard_tier_floor" mapstructure:"standard_tier_floor"`
	EconomyHardFloor  float64 `yaml:"economy_hard_floor" mapstructure:"economy_hard_floor"`
}

// AdmissionConfig 准入控制配置
type AdmissionConfig struct {
	MaxConnections   int            `yaml:"max_connections" mapstructure:"max_connections"`
	CPUThreshold     float64        `yaml:"cpu_threshold" mapstructure:"cpu_threshold"`
	MemoryThreshold  float64        `yaml:"memory_threshold" mapstructure:"memory_threshold"`
	QueueSize        int            `yaml:"queue_size" mapstructure:"queue_size"`
	SampleInterval   time.Duration  `yaml:"sample_interval" mapstructure:"sample_interval"`
	Breaker          BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	EvalInterval     time.Duration `yaml:"eval_interval" mapstructure:"eval_interval"`
	HealthyErrorRate float64       `yaml:"healthy_error_rate" mapstructure:"healthy_error_rate"`
}

// WorkflowConfig 工作流配置
type WorkflowConfig struct {
	DefaultTemplate  string        `yaml:"default_template" mapstructure:"default_template"`
	OvershootFactor  float64       `yaml:"overshoot_factor" mapstructure:"overshoot_factor"`
	StageMaxRetries  int           `yaml:"stage_max_retries" mapstructure:"stage_max_retries"`
	StageRetryDelay  time.Duration `yaml:"stage_retry_delay" mapstructure:"stage_retry_delay"`
	ExecutionLogTail int           `yaml:"execution_log_tail" mapstructure:"execution_log_tail"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
// Streaming 与 Enhanced 分别对应流式和高级功能端点的独立窗口
type RateLimitConfig struct {
	Enabled           bool                  `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int                   `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Streaming         RateLimitWindowConfig `yaml:"streaming" mapstructure:"streaming"`
	Enhanced          RateLimitWindowConfig `yaml:"enhanced" mapstructure:"enhanced"`
}

// RateLimitWindowConfig 滑动窗口限流配置
type RateLimitWindowConfig struct {
	Limit  int           `yaml:"limit" mapstructure:"limit"`
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
