package xconf

import "os"

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string

	// Defaults 最先加载的默认配置，之后加载的数据覆盖同名键。
	Defaults []byte

	// DefaultsFormat Defaults 的格式，默认为 FormatYAML。
	DefaultsFormat Format

	// EnvOverrides 环境变量名 → 配置键，在文件之后应用。
	// 未设置或为空字符串的环境变量被忽略。
	EnvOverrides map[string]string

	// LookupEnv 读取环境变量，默认为 os.LookupEnv。
	LookupEnv func(string) (string, bool)
}

// Option 定义配置选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置选项。
func defaultOptions() *Options {
	return &Options{
		Delim:          ".",
		Tag:            "koanf",
		DefaultsFormat: FormatYAML,
		LookupEnv:      os.LookupEnv,
	}
}

// WithDelim 设置配置键分隔符。
// 默认为 "."，例如 "generator.worker_id"。
func WithDelim(delim string) Option {
	return func(o *Options) {
		o.Delim = delim
	}
}

// WithTag 设置结构体标签名。
// 默认为 "koanf"，用于 Unmarshal 时的字段映射。
func WithTag(tag string) Option {
	return func(o *Options) {
		o.Tag = tag
	}
}

// WithDefaults 设置默认配置，配置文件中缺省的键取这里的值。
func WithDefaults(data []byte, format Format) Option {
	return func(o *Options) {
		o.Defaults = data
		o.DefaultsFormat = format
	}
}

// WithEnvOverrides 设置环境变量覆盖，键为环境变量名，值为配置键。
//
//	xconf.WithEnvOverrides(map[string]string{
//	    "XSNOW_WORKER_ID": "generator.worker_id",
//	})
func WithEnvOverrides(m map[string]string) Option {
	return func(o *Options) {
		o.EnvOverrides = m
	}
}

// WithLookupEnv 替换环境变量读取函数，主要用于测试。nil 被忽略。
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *Options) {
		if fn != nil {
			o.LookupEnv = fn
		}
	}
}
