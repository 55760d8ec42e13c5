package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "KOKORO_TTS_CONFIG"

// 合成后端名称。
const (
	EngineKokoro = "kokoro" // sherpa-onnx 进程内推理，需要 sherpa 导出的模型目录
	EngineKoko   = "koko"   // koko CLI 子进程，只需要 onnx 模型和音色文件
)

// Config 是 kokoro-tts 的顶层配置结构。
// 所有字段都有默认值，没有配置文件时也能直接运行。
type Config struct {
	Engine string       `yaml:"engine"`
	Kokoro KokoroConfig `yaml:"kokoro"`
	Koko   KokoConfig   `yaml:"koko"`
	Audio  AudioConfig  `yaml:"audio"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// KokoroConfig sherpa-onnx Kokoro 模型配置。
// 相对路径按 model_dir 解析。
type KokoroConfig struct {
	Tokens     string `yaml:"tokens"`
	DataDir    string `yaml:"data_dir"`
	Lexicon    string `yaml:"lexicon"`
	DictDir    string `yaml:"dict_dir"`
	NumThreads int    `yaml:"num_threads"`
	Provider   string `yaml:"provider"`
	Debug      bool   `yaml:"debug"`
}

// KokoConfig koko CLI 配置。
type KokoConfig struct {
	Binary        string `yaml:"binary"`
	EspeakDataDir string `yaml:"espeak_data_dir"`
}

// AudioConfig 输出 PCM 配置。
type AudioConfig struct {
	// Clamp 为 true 时先把样本钳位到 [-1, 1]，默认按原样缩放（越界回绕）。
	Clamp bool `yaml:"clamp"`
}

// CacheConfig 合成结果缓存配置。
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("配置文件 %s 无效: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault 按 $KOKORO_TTS_CONFIG、$XDG_CONFIG_HOME、~/.config 的顺序查找配置文件。
// 显式指定的文件必须存在；默认位置不存在时返回全默认配置。
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}

	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath 返回默认配置文件路径，无法确定主目录时返回空字符串。
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kokoro-tts", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "kokoro-tts", "config.yaml")
}

// Default 返回全默认配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	// 默认后端只依赖 model_dir 下的两个文件
	if cfg.Engine == "" {
		cfg.Engine = EngineKoko
	}
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))

	if cfg.Kokoro.Tokens == "" {
		cfg.Kokoro.Tokens = "tokens.txt"
	}
	if cfg.Kokoro.DataDir == "" {
		cfg.Kokoro.DataDir = "espeak-ng-data"
	}
	if cfg.Kokoro.NumThreads == 0 {
		cfg.Kokoro.NumThreads = 2
	}
	if cfg.Kokoro.Provider == "" {
		cfg.Kokoro.Provider = "cpu"
	}
	if cfg.Koko.Binary == "" {
		cfg.Koko.Binary = "koko"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	if cfg.Cache.Path == "" {
		dir, _ := os.UserCacheDir()
		if dir != "" {
			cfg.Cache.Path = filepath.Join(dir, "kokoro-tts", "cache.db")
		} else {
			cfg.Cache.Path = filepath.Join(os.TempDir(), "kokoro-tts", "cache.db")
		}
	}

	cfg.Kokoro.Lexicon = expandHome(cfg.Kokoro.Lexicon)
	cfg.Kokoro.DictDir = expandHome(cfg.Kokoro.DictDir)
	cfg.Kokoro.Tokens = expandHome(cfg.Kokoro.Tokens)
	cfg.Kokoro.DataDir = expandHome(cfg.Kokoro.DataDir)
	cfg.Koko.Binary = expandHome(cfg.Koko.Binary)
	cfg.Koko.EspeakDataDir = expandHome(cfg.Koko.EspeakDataDir)
	cfg.Cache.Path = expandHome(cfg.Cache.Path)
	cfg.Log.File = expandHome(cfg.Log.File)
}

func validate(cfg *Config) error {
	switch cfg.Engine {
	case EngineKokoro, EngineKoko:
	default:
		return fmt.Errorf("未知的合成后端: %s", cfg.Engine)
	}
	if cfg.Kokoro.NumThreads < 0 {
		return fmt.Errorf("kokoro.num_threads 不能为负数: %d", cfg.Kokoro.NumThreads)
	}
	return nil
}

// expandHome 展开 ~/ 前缀，Go 不会自动处理。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return home + path[1:]
}
