package report

import (
	"fmt"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// LoadSpec reads a report spec file (YAML, JSON or TOML, decided by the file
// extension) and validates its cross-references.
func LoadSpec(path string) (*domain.ReportSpec, error) {
	return LoadSpecFs(afero.NewOsFs(), path)
}

// LoadSpecFs is LoadSpec against an explicit filesystem.
func LoadSpecFs(fs afero.Fs, path string) (*domain.ReportSpec, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read report spec: %w", err)
	}

	var spec domain.ReportSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse report spec: %w", err)
	}

	if err := ValidateSpec(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ValidateSpec checks the structural rules a spec must satisfy before a run:
// every query carries SQL, every variable carries a known type with its
// required fields, and every reference points at something declared.
func ValidateSpec(spec *domain.ReportSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("report spec has no name")
	}

	for name, q := range spec.Queries {
		if q.SQL == "" {
			return fmt.Errorf("query %q has no sql", name)
		}
	}

	for name, def := range spec.Variables {
		if err := validateVariable(spec, name, def); err != nil {
			return err
		}
	}

	for name, section := range spec.RepeatingSections {
		if section.DataSource == "" {
			return fmt.Errorf("repeating section %q has no data_source", name)
		}
		if _, ok := spec.Variables[section.DataSource]; !ok {
			return fmt.Errorf("repeating section %q references undeclared variable %q", name, section.DataSource)
		}
		if len(section.Columns) == 0 {
			return fmt.Errorf("repeating section %q has no columns", name)
		}
	}

	return nil
}

func validateVariable(spec *domain.ReportSpec, name string, def domain.VariableDefinition) error {
	switch def.Type {
	case domain.VarConstant, domain.VarDynamic:
	case domain.VarTemplate:
		if def.Template == "" {
			return fmt.Errorf("template variable %q has no template", name)
		}
	case domain.VarCalculation:
		if def.Formula == "" {
			return fmt.Errorf("calculation variable %q has no formula", name)
		}
	case domain.VarQuery, domain.VarAggregation:
		if def.Query == "" {
			return fmt.Errorf("%s variable %q has no query", def.Type, name)
		}
		if _, ok := spec.Queries[def.Query]; !ok {
			return fmt.Errorf("variable %q references undeclared query %q", name, def.Query)
		}
	case domain.VarConditional:
		if len(def.Conditions) == 0 {
			return fmt.Errorf("conditional variable %q has no conditions", name)
		}
	default:
		return fmt.Errorf("variable %q has unknown type %q", name, def.Type)
	}
	return nil
}
