package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/juanmicrosoft/calor"
)

// Suite is a YAML file listing functions whose contract clauses should be
// verified.
type Suite struct {
	Functions []*SuiteFunction `yaml:"functions"`
}

// SuiteFunction describes one function's signature and contract.
type SuiteFunction struct {
	Name     string        `yaml:"name"`
	Params   []*SuiteParam `yaml:"params"`
	Returns  string        `yaml:"returns"`
	Requires []string      `yaml:"requires"`
	Ensures  string        `yaml:"ensures"`
}

// SuiteParam describes one typed parameter.
type SuiteParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var suite Suite
	if err := yaml.Unmarshal(buf, &suite); err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}

	for _, fn := range suite.Functions {
		if fn.Name == "" {
			return nil, fmt.Errorf("%s: function with empty name", path)
		}
		if fn.Ensures != "" && fn.Returns == "" {
			return nil, fmt.Errorf("%s: %s: ensures clause requires a return type", path, fn.Name)
		}
	}
	return &suite, nil
}

// ParamList resolves the declared parameter types.
func (fn *SuiteFunction) ParamList() ([]calor.Param, error) {
	params := make([]calor.Param, 0, len(fn.Params))
	for _, p := range fn.Params {
		typ, ok := calor.TypeByName(p.Type)
		if !ok {
			return nil, fmt.Errorf("%s: parameter %s: unknown type %q", fn.Name, p.Name, p.Type)
		}
		params = append(params, calor.Param{Name: p.Name, Type: typ})
	}
	return params, nil
}

// ReturnType resolves the declared return type.
func (fn *SuiteFunction) ReturnType() (calor.IntType, error) {
	typ, ok := calor.TypeByName(fn.Returns)
	if !ok {
		return calor.IntType{}, fmt.Errorf("%s: unknown return type %q", fn.Name, fn.Returns)
	}
	return typ, nil
}
