// Package config loads graphbridge settings from the environment, an optional
// .env file and an optional YAML tables file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"graphbridge/internal/schema"
)

// ServingEnvPath is checked before the caller's env file; model serving
// deployments ship their .env next to the code.
const ServingEnvPath = "/model/code/.env"

// Catalog drivers.
const (
	DriverDuckDB     = "duckdb"
	DriverDatabricks = "databricks"
	DriverPostgres   = "postgres"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// GraphConfig holds the graph store connection.
type GraphConfig struct {
	URL       string
	User      string
	Password  string
	Database  string
	BatchSize int // rows per write transaction (default: 1000)
}

// CatalogConfig selects and configures the relational metadata source.
type CatalogConfig struct {
	Driver string // duckdb | databricks | postgres (default: duckdb)
	Name   string // catalog (database) name
	Schema string // schema inside the catalog (default: "default")

	DuckDBPath     string // empty means in-memory
	DuckDBThreads  int    // 0 keeps the DuckDB default
	DuckDBMemoryGB int    // 0 keeps the DuckDB default

	DatabricksHost     string
	DatabricksHTTPPath string
	DatabricksToken    string

	PostgresDSN string
}

// TablesConfig holds the two allow-lists.
type TablesConfig struct {
	Nodes         []string
	Relationships []string
}

// LLMConfig configures the question-answering chain.
type LLMConfig struct {
	Provider     string  // openai | gemini (default: openai)
	OpenAIKey    string  // OPEN_AI_API_KEY
	GeminiKey    string  // GEMINI_API_KEY
	Model        string  // provider specific; empty selects the provider default
	Temperature  float64 // default: 0.2
	SystemPrompt string  // Cypher generation template with {schema} and {question}
	QAPrompt     string  // optional answer template with {context} and {question}
	TopK         int     // rows handed to the answer prompt (default: 10)
}

// Config is the full run configuration. It is built once per run and passed
// explicitly to the components that need it.
type Config struct {
	Graph       GraphConfig
	Catalog     CatalogConfig
	Tables      TablesConfig
	Conventions schema.Conventions
	LLM         LLMConfig
	LogMode     string
}

// Default returns a Config with defaults and no credentials.
func Default() Config {
	return Config{
		Graph:       GraphConfig{User: "neo4j", BatchSize: 1000},
		Catalog:     CatalogConfig{Driver: DriverDuckDB, Schema: "default"},
		Conventions: schema.DefaultConventions(),
		LLM:         LLMConfig{Provider: ProviderOpenAI, Temperature: 0.2, TopK: 10},
		LogMode:     "dev",
	}
}

// Load reads the serving .env (if present), then envFile (if present), then
// the process environment and the optional TABLES_FILE.
func Load(envFile string) (Config, error) {
	for _, path := range []string{ServingEnvPath, envFile} {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a key lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	cfg := Default()

	if path := get("TABLES_FILE"); path != "" {
		tf, err := readTablesFile(path)
		if err != nil {
			return Config{}, err
		}
		tf.apply(&cfg)
	}

	setString(&cfg.Graph.URL, get("NEO4J_URL", "NEO4J_URI"))
	setString(&cfg.Graph.User, get("NEO4J_USER", "NEO4J_USERNAME"))
	setString(&cfg.Graph.Password, get("NEO4J_PASSWORD"))
	setString(&cfg.Graph.Database, get("NEO4J_DATABASE"))
	if err := setInt(&cfg.Graph.BatchSize, "LOAD_BATCH_SIZE", get("LOAD_BATCH_SIZE")); err != nil {
		return Config{}, err
	}

	setString(&cfg.Catalog.Driver, strings.ToLower(get("CATALOG_DRIVER")))
	setString(&cfg.Catalog.Name, get("CATALOG_NAME"))
	setString(&cfg.Catalog.Schema, get("CATALOG_SCHEMA"))
	setString(&cfg.Catalog.DuckDBPath, get("DUCKDB_PATH"))
	if err := setInt(&cfg.Catalog.DuckDBThreads, "DUCKDB_THREADS", get("DUCKDB_THREADS")); err != nil {
		return Config{}, err
	}
	if err := setInt(&cfg.Catalog.DuckDBMemoryGB, "DUCKDB_MEMORY_LIMIT_GB", get("DUCKDB_MEMORY_LIMIT_GB")); err != nil {
		return Config{}, err
	}
	setString(&cfg.Catalog.DatabricksHost, get("DATABRICKS_HOST"))
	setString(&cfg.Catalog.DatabricksHTTPPath, get("DATABRICKS_HTTP_PATH"))
	setString(&cfg.Catalog.DatabricksToken, get("DATABRICKS_TOKEN"))
	setString(&cfg.Catalog.PostgresDSN, get("POSTGRES_DSN"))

	if v := get("NODE_TABLES"); v != "" {
		cfg.Tables.Nodes = SplitList(v)
	}
	if v := get("REL_TABLES"); v != "" {
		cfg.Tables.Relationships = SplitList(v)
	}

	setString(&cfg.Conventions.PrimaryKeySuffix, get("PK_SUFFIX"))
	setString(&cfg.Conventions.ForeignKeySuffix, get("FK_SUFFIX"))
	setString(&cfg.Conventions.SourcePrefix, get("SOURCE_PREFIX"))
	setString(&cfg.Conventions.Separator, get("REL_SEPARATOR"))

	setString(&cfg.LLM.Provider, strings.ToLower(get("LLM_PROVIDER")))
	setString(&cfg.LLM.OpenAIKey, get("OPEN_AI_API_KEY", "OPENAI_API_KEY"))
	setString(&cfg.LLM.GeminiKey, get("GEMINI_API_KEY"))
	setString(&cfg.LLM.Model, get("LLM_MODEL"))
	// SYSTEM_PROMPT is used verbatim, surrounding whitespace included.
	if v, ok := lookup("SYSTEM_PROMPT"); ok && strings.TrimSpace(v) != "" {
		cfg.LLM.SystemPrompt = v
	}
	if v, ok := lookup("QA_PROMPT"); ok && strings.TrimSpace(v) != "" {
		cfg.LLM.QAPrompt = v
	}
	if v := get("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, &ConfigError{Field: "LLM_TEMPERATURE", Message: "must be a number"}
		}
		cfg.LLM.Temperature = f
	}
	if err := setInt(&cfg.LLM.TopK, "QA_TOP_K", get("QA_TOP_K")); err != nil {
		return Config{}, err
	}

	setString(&cfg.LogMode, get("LOG_MODE"))
	return cfg, nil
}

// WithTables returns a copy of the config with the given allow-lists.
func (c Config) WithTables(nodes, rels []string) Config {
	c.Tables = TablesConfig{Nodes: nodes, Relationships: rels}
	return c
}

// WithCatalog returns a copy of the config pointing at another catalog/schema.
func (c Config) WithCatalog(name, schemaName string) Config {
	c.Catalog.Name = name
	c.Catalog.Schema = schemaName
	return c
}

// ValidateGraph checks the graph store connection settings.
func (c Config) ValidateGraph() error {
	if c.Graph.URL == "" {
		return &ConfigError{Field: "NEO4J_URL", Message: "must not be empty"}
	}
	if c.Graph.User == "" {
		return &ConfigError{Field: "NEO4J_USER", Message: "must not be empty"}
	}
	if c.Graph.Password == "" {
		return &ConfigError{Field: "NEO4J_PASSWORD", Message: "must not be empty"}
	}
	return nil
}

// ValidateLoader checks everything the Schema-to-Graph Loader needs. Dry
// runs skip the graph credentials.
func (c Config) ValidateLoader(dryRun bool) error {
	if !dryRun {
		if err := c.ValidateGraph(); err != nil {
			return err
		}
	}
	if c.Graph.BatchSize <= 0 {
		return &ConfigError{Field: "LOAD_BATCH_SIZE", Message: "must be positive"}
	}
	if c.Catalog.Schema == "" {
		return &ConfigError{Field: "CATALOG_SCHEMA", Message: "must not be empty"}
	}
	switch c.Catalog.Driver {
	case DriverDuckDB:
	case DriverDatabricks:
		if c.Catalog.Name == "" {
			return &ConfigError{Field: "CATALOG_NAME", Message: "must not be empty"}
		}
		if c.Catalog.DatabricksHost == "" {
			return &ConfigError{Field: "DATABRICKS_HOST", Message: "must not be empty"}
		}
		if c.Catalog.DatabricksHTTPPath == "" {
			return &ConfigError{Field: "DATABRICKS_HTTP_PATH", Message: "must not be empty"}
		}
		if c.Catalog.DatabricksToken == "" {
			return &ConfigError{Field: "DATABRICKS_TOKEN", Message: "must not be empty"}
		}
	case DriverPostgres:
		if c.Catalog.PostgresDSN == "" {
			return &ConfigError{Field: "POSTGRES_DSN", Message: "must not be empty"}
		}
	default:
		return &ConfigError{Field: "CATALOG_DRIVER", Message: fmt.Sprintf("unknown driver %q", c.Catalog.Driver)}
	}
	if len(c.Tables.Nodes) == 0 && len(c.Tables.Relationships) == 0 {
		return &ConfigError{Field: "NODE_TABLES", Message: "no node or relationship tables configured"}
	}
	return nil
}

// ValidateChain checks everything the graph QA chain needs.
func (c Config) ValidateChain() error {
	if err := c.ValidateGraph(); err != nil {
		return err
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIKey == "" {
			return &ConfigError{Field: "OPEN_AI_API_KEY", Message: "must not be empty"}
		}
	case ProviderGemini:
		if c.LLM.GeminiKey == "" {
			return &ConfigError{Field: "GEMINI_API_KEY", Message: "must not be empty"}
		}
	default:
		return &ConfigError{Field: "LLM_PROVIDER", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}
	if strings.TrimSpace(c.LLM.SystemPrompt) == "" {
		return &ConfigError{Field: "SYSTEM_PROMPT", Message: "must not be empty"}
	}
	if c.LLM.TopK <= 0 {
		return &ConfigError{Field: "QA_TOP_K", Message: "must be positive"}
	}
	return nil
}

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tablesFile is the YAML shape of TABLES_FILE.
type tablesFile struct {
	Catalog            string   `yaml:"catalog"`
	Schema             string   `yaml:"schema"`
	NodeTables         []string `yaml:"node_tables"`
	RelationshipTables []string `yaml:"relationship_tables"`
	Conventions        struct {
		PrimaryKeySuffix string `yaml:"primary_key_suffix"`
		ForeignKeySuffix string `yaml:"foreign_key_suffix"`
		SourcePrefix     string `yaml:"source_prefix"`
		Separator        string `yaml:"separator"`
	} `yaml:"conventions"`
}

// readTablesFile parses a YAML tables file.
func readTablesFile(path string) (*tablesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	var tf tablesFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, &ConfigError{Field: "TABLES_FILE", Message: fmt.Sprintf("invalid YAML in %s: %v", path, err)}
	}
	return &tf, nil
}

func (tf *tablesFile) apply(cfg *Config) {
	setString(&cfg.Catalog.Name, tf.Catalog)
	setString(&cfg.Catalog.Schema, tf.Schema)
	if len(tf.NodeTables) > 0 {
		cfg.Tables.Nodes = tf.NodeTables
	}
	if len(tf.RelationshipTables) > 0 {
		cfg.Tables.Relationships = tf.RelationshipTables
	}
	setString(&cfg.Conventions.PrimaryKeySuffix, tf.Conventions.PrimaryKeySuffix)
	setString(&cfg.Conventions.ForeignKeySuffix, tf.Conventions.ForeignKeySuffix)
	setString(&cfg.Conventions.SourcePrefix, tf.Conventions.SourcePrefix)
	setString(&cfg.Conventions.Separator, tf.Conventions.Separator)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, field, v string) error {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &ConfigError{Field: field, Message: "must be an integer"}
	}
	*dst = n
	return nil
}
