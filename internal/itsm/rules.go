package itsm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Rules bundles the process-wide lookup tables. Build it once at startup and
// share the pointer; nothing mutates it afterwards.
type Rules struct {
	Schema     *Schema
	Escalation *EscalationMatrix
}

// RulesFile is the YAML root structure of a rules override file.
type RulesFile struct {
	WorkTypes  map[domain.WorkType]WorkTypeSchema `yaml:"work_types"`
	Escalation map[domain.Priority]EscalationRule `yaml:"escalation"`
}

// DefaultRules builds the built-in tables.
func DefaultRules() *Rules {
	rules, err := buildRules(RulesFile{})
	if err != nil {
		// built-in tables are static and always valid
		panic(err)
	}
	return rules
}

// LoadRules reads a YAML override file. Sections absent from the file keep
// their built-in values; an empty path yields DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return buildRules(file)
}

func buildRules(file RulesFile) (*Rules, error) {
	workTypes := file.WorkTypes
	if len(workTypes) == 0 {
		workTypes = DefaultSchemaDefinition()
	}
	escalation := file.Escalation
	if len(escalation) == 0 {
		escalation = DefaultEscalationRules()
	}

	schema, err := NewSchema(workTypes)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	matrix, err := NewEscalationMatrix(escalation)
	if err != nil {
		return nil, fmt.Errorf("escalation matrix: %w", err)
	}
	return &Rules{Schema: schema, Escalation: matrix}, nil
}
