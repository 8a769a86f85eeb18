package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	TextGen   TextGenConfig   `yaml:"textgen"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	API       APIConfig       `yaml:"api"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

type QdrantConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	// TimeoutSeconds bounds every request to the similarity index.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// EmbeddingConfig selects and tunes the embedding provider.
// Provider is "gemini" or "openai"; API keys come from the environment
// (GEMINI_API_KEY / OPENAI_API_KEY), never from the config file.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Dimension      int    `yaml:"dimension"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TextGenConfig struct {
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RedisConfig enables the embedding cache when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// KafkaConfig enables ingestion outcome events when Brokers is set.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
}

type PipelineConfig struct {
	// Workers bounds concurrent article ingestions. Sized to the embedding
	// provider's rate limits.
	Workers int `yaml:"workers"`
}

type APIConfig struct {
	Port int `yaml:"port"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	c.applyDefaults()
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func (c *AppConfig) applyDefaults() {
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "hninsight"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "hn_articles"
	}
	if c.Qdrant.TimeoutSeconds <= 0 {
		c.Qdrant.TimeoutSeconds = 15
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = 768
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = 30
	}
	if c.TextGen.TimeoutSeconds <= 0 {
		c.TextGen.TimeoutSeconds = 60
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.API.Port <= 0 {
		c.API.Port = 8080
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
