package appconf

import (
	"time"

	"github.com/omeyang/xsnow/pkg/config/xconf"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// 环境变量覆盖
const (
	EnvDataCenterID = "XSNOW_DATACENTER_ID"
	EnvWorkerID     = "XSNOW_WORKER_ID"
	EnvEngine       = "XSNOW_ENGINE"
	EnvRedisAddr    = "XSNOW_REDIS_ADDR"
)

// defaultsYAML 内置默认配置，配置文件中缺省的键取这里的值。
const defaultsYAML = `
generator:
  engine: snowflake
  epoch_millis: 1546272000000
  datacenter_bits: 5
  worker_bits: 5
  sequence_bits: 12
  datacenter_id: 0
  worker_id: 0
  max_spin: 0s
retry:
  max_wait: 500ms
  interval: 1ms
breaker:
  enabled: false
  consecutive_failures: 5
  open_timeout: 5s
server:
  addr: ":8080"
  max_batch: 10000
  shutdown_timeout: 10s
  read_header_timeout: 5s
  stats_interval: 0s
limit:
  enabled: false
  backend: local
  redis_addr: ""
  redis_password: ""
  redis_db: 0
  limit: 100000
  burst: 0
  window: 1s
  fallback: local
log:
  level: info
  format: text
  file: ""
  max_size_mb: 100
  max_backups: 7
  max_age_days: 30
  compress: true
`

// Config 顶层配置。
type Config struct {
	Generator GeneratorConfig `koanf:"generator" json:"generator"`
	Retry     RetryConfig     `koanf:"retry" json:"retry"`
	Breaker   BreakerConfig   `koanf:"breaker" json:"breaker"`
	Server    ServerConfig    `koanf:"server" json:"server"`
	Limit     LimitConfig     `koanf:"limit" json:"limit"`
	Log       LogConfig       `koanf:"log" json:"log"`
}

// GeneratorConfig ID 生成器配置。
type GeneratorConfig struct {
	// Engine snowflake 或 sonyflake
	Engine         string        `koanf:"engine" json:"engine"`
	EpochMillis    int64         `koanf:"epoch_millis" json:"epoch_millis"`
	DataCenterBits int           `koanf:"datacenter_bits" json:"datacenter_bits"`
	WorkerBits     int           `koanf:"worker_bits" json:"worker_bits"`
	SequenceBits   int           `koanf:"sequence_bits" json:"sequence_bits"`
	DataCenterID   int64         `koanf:"datacenter_id" json:"datacenter_id"`
	WorkerID       int64         `koanf:"worker_id" json:"worker_id"`
	// MaxSpin 序列耗尽后等待下一毫秒的上限，0 表示不限
	MaxSpin time.Duration `koanf:"max_spin" json:"max_spin"`
}

// RetryConfig 时钟异常重试窗口。
type RetryConfig struct {
	MaxWait  time.Duration `koanf:"max_wait" json:"max_wait"`
	Interval time.Duration `koanf:"interval" json:"interval"`
}

// BreakerConfig 时钟异常熔断。
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled" json:"enabled"`
	ConsecutiveFailures int           `koanf:"consecutive_failures" json:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout" json:"open_timeout"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr              string        `koanf:"addr" json:"addr"`
	MaxBatch          int           `koanf:"max_batch" json:"max_batch"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout"`
	// StatsInterval 周期输出生成器统计的间隔，0 表示关闭
	StatsInterval time.Duration `koanf:"stats_interval" json:"stats_interval"`
}

// LimitConfig 按客户端的 ID 配额。令牌以 ID 个数计，一次批量请求消耗 count 个令牌。
type LimitConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled"`
	// Backend local 或 redis
	Backend       string `koanf:"backend" json:"backend"`
	RedisAddr     string `koanf:"redis_addr" json:"redis_addr"`
	RedisPassword string `koanf:"redis_password" json:"-"`
	RedisDB       int    `koanf:"redis_db" json:"redis_db"`
	Limit         int    `koanf:"limit" json:"limit"`
	// Burst 桶容量，0 表示与 Limit 相同
	Burst  int           `koanf:"burst" json:"burst"`
	Window time.Duration `koanf:"window" json:"window"`
	// Fallback Redis 不可用时的策略：local、open 或 close
	Fallback string `koanf:"fallback" json:"fallback"`
}

// LogConfig 日志配置。File 为空时输出到 stderr。
type LogConfig struct {
	Level      string `koanf:"level" json:"level"`
	Format     string `koanf:"format" json:"format"`
	File       string `koanf:"file" json:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress" json:"compress"`
}

// Options 返回 xconf 加载选项：内置默认值和环境变量覆盖。
// lookupEnv 为 nil 时读取进程环境变量。
func Options(lookupEnv func(string) (string, bool)) []xconf.Option {
	return []xconf.Option{
		xconf.WithDefaults([]byte(defaultsYAML), xconf.FormatYAML),
		xconf.WithEnvOverrides(map[string]string{
			EnvDataCenterID: "generator.datacenter_id",
			EnvWorkerID:     "generator.worker_id",
			EnvEngine:       "generator.engine",
			EnvRedisAddr:    "limit.redis_addr",
		}),
		xconf.WithLookupEnv(lookupEnv),
	}
}

// Load 加载配置。path 为空时只使用默认值和环境变量。
// 返回的 xconf.Config 可交给 xconf.Watch 做热重载。
func Load(path string, lookupEnv func(string) (string, bool)) (xconf.Config, *Config, error) {
	var (
		src xconf.Config
		err error
	)
	if path == "" {
		src, err = xconf.NewFromBytes(nil, xconf.FormatYAML, Options(lookupEnv)...)
	} else {
		src, err = xconf.New(path, Options(lookupEnv)...)
	}
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Decode(src)
	if err != nil {
		return nil, nil, err
	}
	return src, cfg, nil
}

// Decode 从已加载的配置源解出 Config 并校验。
func Decode(src xconf.Config) (*Config, error) {
	var cfg Config
	if err := src.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SnowflakeConfig 转换为 xsnowflake.Config。调用前应已通过 Validate。
func (g GeneratorConfig) SnowflakeConfig() xsnowflake.Config {
	return xsnowflake.Config{
		EpochMillis:    g.EpochMillis,
		DataCenterBits: uint8(g.DataCenterBits), //nolint:gosec // Validate 已限定范围
		WorkerBits:     uint8(g.WorkerBits),     //nolint:gosec // Validate 已限定范围
		SequenceBits:   uint8(g.SequenceBits),   //nolint:gosec // Validate 已限定范围
		DataCenterID:   g.DataCenterID,
		WorkerID:       g.WorkerID,
	}
}

// MachineID 返回 sonyflake 使用的 16 位机器号：datacenter_id<<worker_bits | worker_id。
func (g GeneratorConfig) MachineID() int64 {
	return g.DataCenterID<<g.WorkerBits | g.WorkerID
}
