package domain

import "time"

// Variable kinds accepted in a report spec.
const (
	VarConstant    = "constant"
	VarDynamic     = "dynamic"
	VarTemplate    = "template"
	VarQuery       = "query"
	VarCalculation = "calculation"
	VarAggregation = "aggregation"
	VarConditional = "conditional"
)

// Query return formats.
const (
	FormatRelations = "relations"
	FormatFrame     = "frame"
	FormatScalar    = "scalar"
)

// QueryDefinition is one named SQL statement template. Loaded once from the
// report spec and read-only afterwards.
type QueryDefinition struct {
	SQL          string   `mapstructure:"sql"`
	Parameters   []string `mapstructure:"parameters"`
	ReturnFormat string   `mapstructure:"return_format"`
	Description  string   `mapstructure:"description"`
}

// Condition is one (condition, value) pair of a conditional variable.
// The first condition that evaluates true wins.
type Condition struct {
	Condition string `mapstructure:"condition"`
	Value     any    `mapstructure:"value"`
}

// VariableDefinition is a declarative recipe for producing one named report
// value. Only the fields matching Type are consulted.
type VariableDefinition struct {
	Type          string      `mapstructure:"type"`
	Value         any         `mapstructure:"value"`
	Format        string      `mapstructure:"format"`
	Template      string      `mapstructure:"template"`
	Query         string      `mapstructure:"query"`
	Field         string      `mapstructure:"field"`
	ExtractSingle bool        `mapstructure:"extract_single"`
	Formula       string      `mapstructure:"formula"`
	Aggregation   string      `mapstructure:"aggregation"`
	Conditions    []Condition `mapstructure:"conditions"`
	Default       any         `mapstructure:"default"`
}

// RepeatingSection describes a template region expanded once per row of a
// list-valued variable. Columns maps a column position ("A", "B", ...) to
// the row field written there.
type RepeatingSection struct {
	Sheet      string            `mapstructure:"sheet"`
	StartRow   int               `mapstructure:"start_row"`
	DataSource string            `mapstructure:"data_source"`
	Columns    map[string]string `mapstructure:"columns"`
}

// DatabaseConfig describes how to reach the external CLI client and the
// database artifact it should open.
type DatabaseConfig struct {
	ClientPath   string        `mapstructure:"client_path"`
	DatabasePath string        `mapstructure:"database_path"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	UseLocalhost bool          `mapstructure:"use_localhost"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TablePrefix  string        `mapstructure:"table_prefix"`
}

// OutputSettings control where the rendered report lands.
type OutputSettings struct {
	Template  string `mapstructure:"template"`
	Directory string `mapstructure:"directory"`
	BaseName  string `mapstructure:"base_name"`
}

// ReportSpec is the complete declarative configuration of one report.
type ReportSpec struct {
	Name              string                        `mapstructure:"name"`
	Database          DatabaseConfig                `mapstructure:"database"`
	Queries           map[string]QueryDefinition    `mapstructure:"queries"`
	Variables         map[string]VariableDefinition `mapstructure:"variables"`
	RepeatingSections map[string]RepeatingSection   `mapstructure:"repeating_sections"`
	Output            OutputSettings                `mapstructure:"output"`
}
