package config

import (
	"errors"
	"fmt"
	"os"

	"sheetstore/pkg/record"
	"sheetstore/pkg/sheets"
	"sheetstore/pkg/table"

	"github.com/pelletier/go-toml/v2"
)

// Environment overrides.
const (
	EnvSpreadsheetID   = "SPREADSHEET_ID"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvServiceAccount  = "SERVICE_ACCOUNT_JSON"
)

// Field declares one column of a table. Type is one of the record.Type* names.
type Field struct {
	Name     string
	Type     string
	Optional bool
}

// Table maps a name used by the API to a range and its columns.
// An empty Document falls back to SPREADSHEET_ID.
type Table struct {
	Name     string
	Document string
	Range    string
	Fields   []Field
}

type SheetsConfig struct {
	CredentialsFile  string
	TokenCachePath   string
	ValueInputOption string
	// ValueRenderOption defaults to FORMATTED_VALUE; see sheets.Options for
	// its effect on numeric precision.
	ValueRenderOption string
	// MaxRetries defaults to 5; a negative value disables retries.
	MaxRetries int
}

type configStore struct {
	ListenAddress string
	Sheets        SheetsConfig
	Tables        []Table
}

type Config struct {
	Filename string
	Store    configStore
	// CredentialsJSON is taken from SERVICE_ACCOUNT_JSON and never saved.
	CredentialsJSON []byte
}

// Write the current config out to a toml file.
func (c *Config) Save() error {
	b, err := toml.Marshal(c.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Filename, b, 0644)
}

// Load the current config from a toml file.
func (c *Config) Load() error {
	b, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &c.Store)
}

// New loads filename, writing a default config there first if it does not
// exist, then applies environment overrides and validates the result.
func New(filename string) (*Config, error) {
	return newConfig(filename, os.Getenv)
}

func newConfig(filename string, getenv func(string) string) (*Config, error) {
	c := &Config{
		Filename: filename,
	}
	if err := c.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", filename, err)
		}
		c.setDefaults()
		if err := c.Save(); err != nil {
			return nil, err
		}
	}
	c.setDefaults()
	c.applyEnv(getenv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	if c.Store.ListenAddress == "" {
		c.Store.ListenAddress = ":8080"
	}
	if c.Store.Sheets.ValueInputOption == "" {
		c.Store.Sheets.ValueInputOption = string(table.InputUserEntered)
	}
	if c.Store.Sheets.ValueRenderOption == "" {
		c.Store.Sheets.ValueRenderOption = sheets.RenderFormatted
	}
	if c.Store.Sheets.MaxRetries == 0 {
		c.Store.Sheets.MaxRetries = 5
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvCredentialsFile); v != "" {
		c.Store.Sheets.CredentialsFile = v
	}
	if v := getenv(EnvServiceAccount); v != "" {
		c.CredentialsJSON = []byte(v)
	}
	if doc := getenv(EnvSpreadsheetID); doc != "" {
		for i := range c.Store.Tables {
			if c.Store.Tables[i].Document == "" {
				c.Store.Tables[i].Document = doc
			}
		}
	}
}

func (c *Config) Validate() error {
	if !table.InputMode(c.Store.Sheets.ValueInputOption).Valid() {
		return fmt.Errorf("invalid ValueInputOption %q", c.Store.Sheets.ValueInputOption)
	}
	if !sheets.ValidRenderOption(c.Store.Sheets.ValueRenderOption) {
		return fmt.Errorf("invalid ValueRenderOption %q", c.Store.Sheets.ValueRenderOption)
	}
	seen := map[string]bool{}
	for _, t := range c.Store.Tables {
		switch {
		case t.Name == "":
			return fmt.Errorf("table with empty name")
		case seen[t.Name]:
			return fmt.Errorf("table %q declared twice", t.Name)
		case t.Document == "":
			return fmt.Errorf("table %q: no document (set Document or %s)", t.Name, EnvSpreadsheetID)
		case t.Range == "":
			return fmt.Errorf("table %q: no range", t.Name)
		}
		seen[t.Name] = true
		if _, err := record.DynamicSchema(t.Specs()); err != nil {
			return fmt.Errorf("table %q: %w", t.Name, err)
		}
	}
	return nil
}

func (c *Config) ListenAddress() string { return c.Store.ListenAddress }

func (c *Config) Sheets() SheetsConfig { return c.Store.Sheets }

func (c *Config) Tables() []Table { return c.Store.Tables }

// SheetsOptions returns the client options for the Google Sheets store.
func (c *Config) SheetsOptions() sheets.Options {
	retries := c.Store.Sheets.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return sheets.Options{
		CredentialsJSON:   c.CredentialsJSON,
		CredentialsFile:   c.Store.Sheets.CredentialsFile,
		TokenCachePath:    c.Store.Sheets.TokenCachePath,
		ValueRenderOption: c.Store.Sheets.ValueRenderOption,
		MaxRetries:        retries,
	}
}

func (c *Config) InputMode() table.InputMode {
	return table.InputMode(c.Store.Sheets.ValueInputOption)
}

func (t Table) Specs() []record.FieldSpec {
	specs := make([]record.FieldSpec, len(t.Fields))
	for i, f := range t.Fields {
		specs[i] = record.FieldSpec{Name: f.Name, Type: f.Type, Optional: f.Optional}
	}
	return specs
}

func (t Table) Target() table.Range {
	return table.Range{Document: t.Document, Name: t.Range}
}
