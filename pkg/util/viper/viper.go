package viper

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	spfviper "github.com/spf13/viper"
)

// EnvPrefix 是配置项对应环境变量的前缀，例如 typewire.strict 对应 TYPEWIRE_TYPEWIRE_STRICT。
const EnvPrefix = "TYPEWIRE"

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
// 环境变量覆盖文件中的同名配置，键中的 '.' 与 '-' 替换为 '_'。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config，已绑定环境变量。
func New() *Config {
	v := spfviper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Config{v: v}
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// 交给 viper 推断，无法识别时由 ReadInConfig 报错。
	}

	return errors.Wrapf(c.v.ReadInConfig(), "read config %s", path)
}

// SetDefault 设置 key 的默认值。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// Set 覆盖 key 的值，优先级高于文件与环境变量。
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// IsSet 判断 key 是否在任一来源中设置。
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetStringSlice 读取字符串列表。来自环境变量时按逗号或空白分隔。
func (c *Config) GetStringSlice(key string) []string {
	if raw, ok := c.v.Get(key).(string); ok {
		return strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
	}
	return c.v.GetStringSlice(key)
}

// Unmarshal 将完整配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}
