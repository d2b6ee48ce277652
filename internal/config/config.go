// Package config loads service configuration from an optional YAML
// file, an optional .env file, and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// Config holds all runtime settings. Shared directories are explicit
// here rather than ambient globals so tests can point components at
// temporary directories.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// ModelsDir is the shared model cache; models are added, never
	// evicted. UploadDir holds transient per-request files.
	ModelsDir string `mapstructure:"models_dir"`
	UploadDir string `mapstructure:"upload_dir"`

	// EnginePath is the whisper.cpp binary; a bare name is resolved
	// via PATH. DownloadScript, when set, provisions models; when
	// empty, models are downloaded directly over HTTP.
	EnginePath     string `mapstructure:"engine_path"`
	DownloadScript string `mapstructure:"download_script"`

	DefaultModel string `mapstructure:"default_model"`

	// MaxJobs bounds concurrently running transcription processes;
	// excess requests are rejected with 429.
	MaxJobs int64 `mapstructure:"max_jobs"`

	TranscribeTimeout time.Duration `mapstructure:"transcribe_timeout"`
	ProvisionTimeout  time.Duration `mapstructure:"provision_timeout"`

	// ReadTimeout/WriteTimeout/IdleTimeout are in seconds. Read and
	// write default to 0 (disabled): uploads can be large and
	// transcription runs for minutes, so per-request deadlines are
	// enforced by the job timeouts above instead.
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	IdleTimeout  int `mapstructure:"idle_timeout"`

	Verbose  bool `mapstructure:"verbose"`
	JSONLogs bool `mapstructure:"json_logs"`
}

const envPrefix = "INBOUND_WHISPER"

// Load reads configuration. configFile may be empty, in which case
// config.yml is searched in the working directory and ./config.
func Load(configFile string) (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	applyDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 9000)
	v.SetDefault("models_dir", "./models")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("engine_path", "whisper-cli")
	v.SetDefault("download_script", "")
	v.SetDefault("default_model", whisper.DefaultModel)
	v.SetDefault("max_jobs", 2)
	v.SetDefault("transcribe_timeout", 10*time.Minute)
	v.SetDefault("provision_timeout", 30*time.Minute)
	v.SetDefault("read_timeout", 0)
	v.SetDefault("write_timeout", 0)
	v.SetDefault("idle_timeout", 120)
	v.SetDefault("verbose", false)
	v.SetDefault("json_logs", true)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}
	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload_dir is required")
	}
	if c.EnginePath == "" {
		return fmt.Errorf("engine_path is required")
	}
	if _, ok := whisper.LookupModel(c.DefaultModel); !ok {
		return fmt.Errorf("default_model %q is not a known model", c.DefaultModel)
	}
	if c.MaxJobs <= 0 {
		return fmt.Errorf("max_jobs must be positive, got %d", c.MaxJobs)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
