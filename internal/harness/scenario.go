package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: fixtures, one query, and
// what planning and execution must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixtures are embedded fixture names (nested, arrays, lookup) or paths
	// to fixture files (.yaml, .jsonl, .jsonl.zst, .parquet). Paths are
	// relative to the scenario file location.
	Fixtures []string `yaml:"fixtures"`

	// Query is an inline query document (see package loader).
	Query map[string]any `yaml:"query,omitempty"`

	// QueryFile points at a query document instead of Query.
	QueryFile string `yaml:"query_file,omitempty"`

	// Config overrides planner configuration.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Expect specifies the expected result or planning error.
	Expect *Expectation `yaml:"expect,omitempty"`

	// Assertions validate the plan and result.
	// Supported types: row_count, contains_row, virtual_columns, binding,
	// explain_contains, column_type
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// QueryID is an optional fixed query id for deterministic output.
	// If empty, defaults to "test-query-default".
	QueryID string `yaml:"query_id,omitempty"`
}

// ScenarioConfig mirrors the planner options a scenario may set.
type ScenarioConfig struct {
	Typing              string `yaml:"typing,omitempty"`
	ApproxCountDistinct bool   `yaml:"approx_count_distinct,omitempty"`
}

// Expectation is either a result (Columns/Rows) or an Error.
type Expectation struct {
	// Columns are the expected output column names, in order.
	Columns []string `yaml:"columns,omitempty"`

	// Types are the expected output column types (STRING, LONG, ...).
	Types []string `yaml:"types,omitempty"`

	// Rows are compared in order. Values are converted with ir.FromGo, so
	// YAML 1 is LONG and 1.0 is DOUBLE.
	Rows [][]any `yaml:"rows,omitempty"`

	// Error expects planning to fail.
	Error *ExpectedError `yaml:"error,omitempty"`
}

// ExpectedError specifies an expected planning failure.
type ExpectedError struct {
	// Code is the planner error code, e.g. INVALID_PATH.
	Code string `yaml:"code"`
	// Message, if set, must equal the error message exactly.
	Message string `yaml:"message,omitempty"`
}

// Assertion validates the plan or the result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": the result has exactly Count rows
	// - "contains_row": Row appears somewhere in the result
	// - "virtual_columns": the plan has exactly Count virtual columns
	// - "binding": clause Clause is served by operator Operator
	// - "explain_contains": Text appears in the plan explanation
	// - "column_type": output column Column has type Type
	Type string `yaml:"type"`

	Count    int    `yaml:"count,omitempty"`
	Row      []any  `yaml:"row,omitempty"`
	Clause   string `yaml:"clause,omitempty"`
	Operator string `yaml:"operator,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Column   string `yaml:"column,omitempty"`
	// ColumnType is the expected type name for column_type.
	ColumnType string `yaml:"column_type,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount        = "row_count"
	AssertContainsRow     = "contains_row"
	AssertVirtualColumns  = "virtual_columns"
	AssertBinding         = "binding"
	AssertExplainContains = "explain_contains"
	AssertColumnType      = "column_type"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Relative fixture and query paths resolve against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving fixture and query paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve paths relative to base path BEFORE validation
	if basePath != "" {
		for i, f := range scenario.Fixtures {
			if isFixturePath(f) && !filepath.IsAbs(f) {
				scenario.Fixtures[i] = filepath.Join(basePath, f)
			}
		}
		if scenario.QueryFile != "" && !filepath.IsAbs(scenario.QueryFile) {
			scenario.QueryFile = filepath.Join(basePath, scenario.QueryFile)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// isFixturePath distinguishes fixture files from embedded fixture names.
func isFixturePath(f string) bool {
	return filepath.Ext(f) != ""
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Fixtures) == 0 {
		return fmt.Errorf("fixtures list is required and must be non-empty")
	}

	switch {
	case s.Query == nil && s.QueryFile == "":
		return fmt.Errorf("one of query or query_file is required")
	case s.Query != nil && s.QueryFile != "":
		return fmt.Errorf("query and query_file are mutually exclusive")
	}

	if s.QueryFile != "" {
		if _, err := os.Stat(s.QueryFile); os.IsNotExist(err) {
			return &ScenarioNotFoundError{Scenario: s.Name, Path: s.QueryFile}
		}
	}

	if s.Expect != nil && s.Expect.Error != nil {
		if s.Expect.Error.Code == "" {
			return fmt.Errorf("expect.error.code is required")
		}
		if len(s.Expect.Rows) > 0 || len(s.Expect.Columns) > 0 {
			return fmt.Errorf("expect.error cannot be combined with rows or columns")
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRowCount, AssertVirtualColumns:
		if a.Count < 0 {
			return fmt.Errorf("%s count must not be negative", a.Type)
		}
	case AssertContainsRow:
		if a.Row == nil {
			return fmt.Errorf("contains_row requires row")
		}
	case AssertBinding:
		if a.Clause == "" {
			return fmt.Errorf("binding requires clause")
		}
	case AssertExplainContains:
		if a.Text == "" {
			return fmt.Errorf("explain_contains requires text")
		}
	case AssertColumnType:
		if a.Column == "" || a.ColumnType == "" {
			return fmt.Errorf("column_type requires column and column_type")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
