package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	go_ora "github.com/sijms/go-ora/v2"
	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Host     string   `yaml:"host" toml:"host"`
	Port     int      `yaml:"port" toml:"port"`
	Database string   `yaml:"database" toml:"database"`
	Username string   `yaml:"username" toml:"username"`
	Password string   `yaml:"password" toml:"password"`
	Owner    string   `yaml:"owner" toml:"owner"`
	Tables   []string `yaml:"tables,omitempty" toml:"tables"`
}

type TargetConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Database string `yaml:"database" toml:"database"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode"`
}

type OptionsConfig struct {
	CreateSchema bool `yaml:"create_schema" toml:"create_schema"`
	CreateTable  bool `yaml:"create_table" toml:"create_table"`
	TransferRows bool `yaml:"transfer_rows" toml:"transfer_rows"`
}

type TransferConfig struct {
	SampleRows *int   `yaml:"sample_rows,omitempty" toml:"sample_rows"`
	ChunkSize  int    `yaml:"chunk_size" toml:"chunk_size"`
	Threads    int    `yaml:"threads" toml:"threads"`
	NullToken  string `yaml:"null_token" toml:"null_token"`
}

type OutputConfig struct {
	DDLFile string `yaml:"ddl_file" toml:"ddl_file"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

type Config struct {
	Source   SourceConfig   `yaml:"source" toml:"source"`
	Target   TargetConfig   `yaml:"target" toml:"target"`
	Options  OptionsConfig  `yaml:"options" toml:"options"`
	Transfer TransferConfig `yaml:"transfer" toml:"transfer"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
}

const (
	DefaultSampleRows = 200
	DefaultChunkSize  = 2000
	DefaultThreads    = 1
	DefaultNullToken  = "null"
)

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig reads a YAML or TOML file, chosen by extension, expands
// ${VAR} references from the environment, applies defaults and validates.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data = expandEnv(data)

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("failed to parse config: unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references. Any other dollar sign, such as one
// inside a saved password, is kept as written.
func expandEnv(data []byte) []byte {
	return envReference.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// ApplyDefaults fills unset fields and normalizes names.
func (c *Config) ApplyDefaults() {
	setString(&c.Source.Host, "localhost")
	setInt(&c.Source.Port, 1521)
	setString(&c.Source.Database, "orcl")
	setString(&c.Source.Username, "scott")
	c.Source.Owner = strings.TrimSpace(c.Source.Owner)
	if c.Source.Owner == "" {
		c.Source.Owner = strings.ToUpper(c.Source.Username)
	}
	c.Source.Tables = normalizeTables(c.Source.Tables)

	setString(&c.Target.Host, "localhost")
	setInt(&c.Target.Port, 5432)
	setString(&c.Target.Database, "postgres")
	setString(&c.Target.Username, "postgres")
	setString(&c.Target.SSLMode, "disable")

	if c.Options.CreateSchema {
		c.Options.CreateTable = true
	}

	if c.Transfer.SampleRows == nil {
		rows := DefaultSampleRows
		c.Transfer.SampleRows = &rows
	}
	setInt(&c.Transfer.ChunkSize, DefaultChunkSize)
	setInt(&c.Transfer.Threads, DefaultThreads)
	setString(&c.Transfer.NullToken, DefaultNullToken)

	c.Output.DDLFile = strings.TrimSpace(c.Output.DDLFile)
	c.Output.LogFile = strings.TrimSpace(c.Output.LogFile)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Source.Owner == "" {
		problems = append(problems, "source.owner is required")
	}
	if !validPort(c.Source.Port) {
		problems = append(problems, fmt.Sprintf("source.port %d is out of range", c.Source.Port))
	}
	if !validPort(c.Target.Port) {
		problems = append(problems, fmt.Sprintf("target.port %d is out of range", c.Target.Port))
	}
	if c.Transfer.ChunkSize < 1 {
		problems = append(problems, "transfer.chunk_size must be at least 1")
	}
	if c.Transfer.Threads < 1 {
		problems = append(problems, "transfer.threads must be at least 1")
	}
	if c.SampleRows() < 0 {
		problems = append(problems, "transfer.sample_rows cannot be negative")
	}
	if strings.ContainsAny(c.Transfer.NullToken, ",\"\r\n") {
		problems = append(problems, "transfer.null_token cannot contain commas, quotes or newlines")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SampleRows is the per table row cap. Zero transfers every row.
func (c *Config) SampleRows() int {
	if c.Transfer.SampleRows == nil {
		return DefaultSampleRows
	}
	return *c.Transfer.SampleRows
}

// NeedsTarget reports whether the run has to connect to PostgreSQL.
func (c *Config) NeedsTarget() bool {
	return c.Options.CreateTable || c.Options.TransferRows
}

// SourceURL returns the go-ora connection URL.
func (c *Config) SourceURL() string {
	return go_ora.BuildUrl(c.Source.Host, c.Source.Port, c.Source.Database, c.Source.Username, c.Source.Password, nil)
}

// TargetDSN returns a libpq keyword/value connection string.
func (c *Config) TargetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Target.Host),
		c.Target.Port,
		dsnValue(c.Target.Username),
		dsnValue(c.Target.Password),
		dsnValue(c.Target.Database),
		dsnValue(c.Target.SSLMode),
	)
}

// Summary lists the effective parameters with passwords masked.
func (c *Config) Summary() []string {
	tables := "*"
	if len(c.Source.Tables) > 0 {
		tables = strings.Join(c.Source.Tables, ",")
	}
	ddl := c.Output.DDLFile
	if ddl == "" {
		ddl = "stdout"
	}
	logFile := c.Output.LogFile
	if logFile == "" {
		logFile = "stdout"
	}
	return []string{
		fmt.Sprintf("source: %s@%s:%d/%s password=%s", c.Source.Username, c.Source.Host, c.Source.Port, c.Source.Database, mask(c.Source.Password)),
		fmt.Sprintf("target: %s@%s:%d/%s password=%s sslmode=%s", c.Target.Username, c.Target.Host, c.Target.Port, c.Target.Database, mask(c.Target.Password), c.Target.SSLMode),
		fmt.Sprintf("owner: %s tables: %s", c.Source.Owner, tables),
		fmt.Sprintf("create schema: %t create table: %t transfer rows: %t", c.Options.CreateSchema, c.Options.CreateTable, c.Options.TransferRows),
		fmt.Sprintf("sample rows: %d chunk size: %d threads: %d", c.SampleRows(), c.Transfer.ChunkSize, c.Transfer.Threads),
		fmt.Sprintf("ddl file: %s log file: %s", ddl, logFile),
	}
}

func normalizeTables(tables []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, entry := range tables {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == "*" {
				return nil
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func dsnValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

func mask(password string) string {
	if password == "" {
		return "(none)"
	}
	return "********"
}

func validPort(port int) bool {
	return port > 0 && port < 65536
}

func setString(field *string, value string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}
