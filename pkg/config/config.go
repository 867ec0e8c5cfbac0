package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when no Gemini API key is configured.
// AI features cannot silently degrade in the core, so callers treat this
// as a fatal startup condition.
var ErrMissingCredential = errors.New("missing Gemini API key: set GOOGLE_GEMINI_AI_API_KEY or GOOGLE_API_KEY")

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Milvus    MilvusConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Redis     RedisConfig
	Neo4j     Neo4jConfig
	Retrieval RetrievalConfig
	EmbedJob  EmbedJobConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	EmbeddingDim   int
	Models         []string
	TimeoutSec     int
}

type OpenAIConfig struct {
	Enabled bool
	APIKey  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type Neo4jConfig struct {
	Enabled  bool
	URI      string
	Username string
	Password string
	Database string
}

type RetrievalConfig struct {
	AnswerLimit   int
	SearchLimit   int
	AnswerSnippet int
	SearchSnippet int
	ContextBudget int
}

type EmbedJobConfig struct {
	ChunkSize int
	DelayMS   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/spacebio")

	viper.SetEnvPrefix("SPACEBIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Credential comes from the environment, never the config file.
	config.Gemini.APIKey = geminiKeyFromEnv()

	return &config, nil
}

// RequireCredential fails loudly when the Gemini key is absent.
func (c *Config) RequireCredential() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingCredential
	}
	return nil
}

func geminiKeyFromEnv() string {
	if key := os.Getenv("GOOGLE_GEMINI_AI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/spacebio.db")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "publication_chunks")
	viper.SetDefault("milvus.vectorDim", 768)

	viper.SetDefault("gemini.baseURL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("gemini.embeddingModel", "text-embedding-004")
	viper.SetDefault("gemini.embeddingDim", 768)
	viper.SetDefault("gemini.models", []string{
		"gemini/gemini-2.0-flash",
		"gemini/gemini-1.5-flash",
		"gemini/gemini-1.5-pro",
	})
	viper.SetDefault("gemini.timeoutSec", 30)

	viper.SetDefault("openai.enabled", false)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("retrieval.answerLimit", 5)
	viper.SetDefault("retrieval.searchLimit", 10)
	viper.SetDefault("retrieval.answerSnippet", 200)
	viper.SetDefault("retrieval.searchSnippet", 300)
	viper.SetDefault("retrieval.contextBudget", 10000)

	viper.SetDefault("embedjob.chunkSize", 7000)
	viper.SetDefault("embedjob.delayMS", 1000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
