package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ScalarOrVector accepts either a single number or a list of numbers in
// YAML. A single number means one value broadcast to every compartment.
type ScalarOrVector []float64

func (v *ScalarOrVector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var x float64
		if err := node.Decode(&x); err != nil {
			return err
		}
		*v = ScalarOrVector{x}
		return nil
	case yaml.SequenceNode:
		var xs []float64
		if err := node.Decode(&xs); err != nil {
			return err
		}
		*v = ScalarOrVector(xs)
		return nil
	default:
		return fmt.Errorf("config: line %d: expected a number or a list of numbers", node.Line)
	}
}

func (v ScalarOrVector) MarshalYAML() (interface{}, error) {
	if len(v) == 1 {
		return v[0], nil
	}
	return []float64(v), nil
}

// StringList accepts either a single string or a list of strings in YAML.
type StringList []string

func (v *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*v = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*v = StringList(ss)
		return nil
	default:
		return fmt.Errorf("config: line %d: expected a string or a list of strings", node.Line)
	}
}

func (v StringList) MarshalYAML() (interface{}, error) {
	if len(v) == 1 {
		return v[0], nil
	}
	return []string(v), nil
}
