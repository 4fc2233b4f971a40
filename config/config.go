package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"contract-intel/vars"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Queue     QueueConfig     `yaml:"queue"`
	Cron      CronConfig      `yaml:"cron"`
}

type ServerConfig struct {
	Port          int   `yaml:"port"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite
	DSN    string `yaml:"dsn"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"` // ollama | openai
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RetrievalConfig struct {
	Mode       string `yaml:"mode"` // hybrid | vector | keyword
	MilvusAddr string `yaml:"milvus_addr"`
	Collection string `yaml:"collection"`
	ESAddr     string `yaml:"es_addr"`
	ESIndex    string `yaml:"es_index"`
}

type StorageConfig struct {
	Minio    MinioConfig `yaml:"minio"`
	LocalDir string      `yaml:"local_dir"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled 未配置 endpoint 时使用本地目录
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

type PipelineConfig struct {
	Concurrency   int   `yaml:"concurrency"`
	ReplaceAlerts *bool `yaml:"replace_alerts"`
}

// ShouldReplaceAlerts 默认 true：重跑分析时替换旧提醒
func (p PipelineConfig) ShouldReplaceAlerts() bool {
	return p.ReplaceAlerts == nil || *p.ReplaceAlerts
}

type QueueConfig struct {
	Workers int           `yaml:"workers"`
	Size    int           `yaml:"size"`
	Timeout time.Duration `yaml:"timeout"`
}

type CronConfig struct {
	AlertSweep string `yaml:"alert_sweep"`
}

// Load 读取 yaml 配置；文件不存在时全部使用环境变量默认值
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8081
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = 32 << 20
	}
	setDefault(&c.Log.Level, vars.LOG_LEVEL)
	setDefault(&c.Log.Format, vars.LOG_FORMAT)

	setDefault(&c.Database.Driver, vars.DB_DRIVER)
	if c.Database.DSN == "" {
		if c.Database.Driver == vars.DriverSQLite {
			c.Database.DSN = vars.SQLITE_PATH
		} else {
			c.Database.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				vars.PGHOST, vars.PGUSER, vars.PGPWD, vars.PGDB, vars.PGPORT)
		}
	}

	setDefault(&c.LLM.Provider, vars.LLM_PROVIDER)
	setDefault(&c.LLM.BaseURL, vars.LLM_BASE_URL)
	setDefault(&c.LLM.APIKey, vars.LLM_API_KEY)
	setDefault(&c.LLM.Model, vars.LLM_MODEL)
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}

	setDefault(&c.Embedding.BaseURL, vars.OLLAMA_PATH)
	setDefault(&c.Embedding.Model, vars.EMBED_MODEL)
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 60 * time.Second
	}

	setDefault(&c.Retrieval.Mode, vars.RETRIEVAL_MODE)
	setDefault(&c.Retrieval.MilvusAddr, vars.MILVUSADDR)
	setDefault(&c.Retrieval.Collection, vars.COLLECTION)
	setDefault(&c.Retrieval.ESAddr, vars.ESADDR)
	setDefault(&c.Retrieval.ESIndex, vars.ESINDEX)

	setDefault(&c.Storage.Minio.Endpoint, vars.MINIO_ENDPOINT)
	setDefault(&c.Storage.Minio.AccessKey, vars.MINIO_ACCESS_KEY)
	setDefault(&c.Storage.Minio.SecretKey, vars.MINIO_SECRET_KEY)
	setDefault(&c.Storage.Minio.Bucket, vars.MINIO_BUCKET)
	setDefault(&c.Storage.LocalDir, vars.UPLOAD_DIR)

	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 1
	}

	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 64
	}
	if c.Queue.Timeout == 0 {
		c.Queue.Timeout = 15 * time.Minute
	}

	// 秒级 cron：每天凌晨 2 点
	setDefault(&c.Cron.AlertSweep, "0 0 2 * * *")
}

// Validate 校验枚举类配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case vars.DriverPostgres, vars.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case vars.OLLAMA, vars.OPENAI:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	switch c.Retrieval.Mode {
	case vars.HY, vars.ML, vars.ES:
	default:
		return fmt.Errorf("unsupported retrieval mode %q", c.Retrieval.Mode)
	}
	return nil
}

func setDefault(field *string, fallback string) {
	if *field == "" {
		*field = fallback
	}
}
