// Package transform turns extracted records into target records by applying
// an ordered list of field mappings, each with an optional named
// transformation.
//
// Mappings are validated once, before any record is touched:
//
//	p, err := transform.Compile([]transform.Mapping{
//	    {SourceField: "name", TargetField: "NAME", Transformation: "upper"},
//	})
//	if err != nil {
//	    return err // unsupported_transformation
//	}
//	out := p.Apply(records)
//
// Apply never fails and always returns one output record per input record.
package transform

import (
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
)

// Mapping copies SourceField into TargetField, optionally through the named
// transformation. The same source field may feed several mappings.
type Mapping struct {
	SourceField    string `json:"source_field" yaml:"source_field"`
	TargetField    string `json:"target_field" yaml:"target_field"`
	Transformation string `json:"transformation,omitempty" yaml:"transformation,omitempty"`
}

// FromConfig converts job file mappings
func FromConfig(cfgs []config.MappingConfig) []Mapping {
	if len(cfgs) == 0 {
		return nil
	}
	out := make([]Mapping, len(cfgs))
	for i, c := range cfgs {
		out[i] = Mapping{
			SourceField:    c.SourceField,
			TargetField:    c.TargetField,
			Transformation: c.Transformation,
		}
	}
	return out
}

// ValidateMappings checks field names and resolves every transformation.
// Unknown transformation names are ErrorTypeUnsupportedTransformation.
func ValidateMappings(mappings []Mapping) error {
	_, err := Compile(mappings)
	return err
}

type step struct {
	source string
	target string
	fn     Func
}

// Pipeline is a validated mapping list ready to apply
type Pipeline struct {
	steps []step
}

// Compile validates mappings and resolves their transformations
func Compile(mappings []Mapping) (*Pipeline, error) {
	steps := make([]step, 0, len(mappings))
	for i, m := range mappings {
		if m.SourceField == "" || m.TargetField == "" {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"mapping %d: source_field and target_field are required", i)
		}

		s := step{source: m.SourceField, target: m.TargetField}
		if m.Transformation != "" {
			fn, ok := Lookup(m.Transformation)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeUnsupportedTransformation,
					"unsupported transformation %q", m.Transformation).
					WithDetail("source_field", m.SourceField)
			}
			s.fn = fn
		}
		steps = append(steps, s)
	}
	return &Pipeline{steps: steps}, nil
}

// Len returns the number of mappings in the pipeline
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Apply maps every record. A mapping whose source field is absent from a
// record leaves its target field absent in the output.
func (p *Pipeline) Apply(records []models.Record) []models.Record {
	if records == nil {
		return nil
	}

	out := make([]models.Record, len(records))
	for i, rec := range records {
		target := make(models.Record, len(p.steps))
		for _, s := range p.steps {
			value, ok := rec[s.source]
			if !ok {
				continue
			}
			if s.fn != nil {
				value = s.fn(value)
			}
			target[s.target] = value
		}
		out[i] = target
	}
	return out
}

// Apply validates mappings and applies them to records in one step
func Apply(records []models.Record, mappings []Mapping) ([]models.Record, error) {
	p, err := Compile(mappings)
	if err != nil {
		return nil, err
	}
	return p.Apply(records), nil
}
