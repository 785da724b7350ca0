package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 讓 yaml 能以 "15s"、"1m" 這類字串表示時間
type Duration time.Duration

// UnmarshalYAML 實作 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("無效的時間格式 %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config 服務配置
type Config struct {
	Server struct {
		Port         int      `yaml:"port"`
		ReadTimeout  Duration `yaml:"read_timeout"`
		WriteTimeout Duration `yaml:"write_timeout"`
		IdleTimeout  Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // text, json
	} `yaml:"log"`

	Room struct {
		// IdleTimeout > 0 時，閒置超過該時間的 waiting 房間會被回收；
		// 0（預設）表示 waiting 房間存活到玩家斷線為止
		IdleTimeout  Duration `yaml:"idle_timeout"`
		ReapInterval Duration `yaml:"reap_interval"`
	} `yaml:"room"`
}

// DefaultConfig 預設配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = Duration(15 * time.Second)
	cfg.Server.WriteTimeout = Duration(15 * time.Second)
	cfg.Server.IdleTimeout = Duration(60 * time.Second)
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Room.IdleTimeout = 0
	cfg.Room.ReapInterval = Duration(time.Minute)
	return cfg
}

// LoadConfig 載入配置
//
// path 為空時直接使用預設值；檔案裡未出現的欄位保留預設值。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置檔失敗: %w", err)
	}
	return cfg, nil
}
