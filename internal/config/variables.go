package config

import (
	"errors"
	"io"
	"sort"

	"gopkg.in/yaml.v2"

	"svindex/internal/catalog"
	"svindex/internal/errs"
)

// VariableSet is a configured indicator catalog for one index run: which
// composite indicators participate and which of them are inverted. It is
// persisted as a two-document YAML file, first document the inverse-name
// list, second the indicator dictionary, so configurations written by older
// tooling load unchanged.
type VariableSet struct {
	order   []string
	specs   map[string]catalog.Indicator
	inverse map[string]bool
}

// DefaultVariableSet builds a variable set from the built-in catalog with the
// default inverse list.
func DefaultVariableSet() *VariableSet {
	s := &VariableSet{
		specs:   make(map[string]catalog.Indicator),
		inverse: make(map[string]bool),
	}
	for _, ind := range catalog.Indicators() {
		s.order = append(s.order, ind.Name)
		s.specs[ind.Name] = ind
	}
	for _, name := range catalog.DefaultInverse() {
		s.inverse[name] = true
	}
	return s
}

// Names returns the configured indicator names in order.
func (s *VariableSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Indicators returns the configured indicators with their inverse flags
// resolved against the inverse list.
func (s *VariableSet) Indicators() []catalog.Indicator {
	out := make([]catalog.Indicator, 0, len(s.order))
	for _, name := range s.order {
		ind := s.specs[name]
		ind.Inverse = s.inverse[name]
		out = append(out, ind)
	}
	return out
}

// Variables returns the de-duplicated raw registry codes behind the set.
func (s *VariableSet) Variables() []string {
	return catalog.Variables(s.Indicators())
}

// Configure narrows the set with an include or exclude list. Passing both is
// a configuration error, as is naming an indicator the set does not have.
func (s *VariableSet) Configure(include, exclude []string) error {
	if len(include) > 0 && len(exclude) > 0 {
		return errs.Configuration("config.Configure", "both exclude and include arguments cannot be passed")
	}
	for _, name := range append(append([]string{}, include...), exclude...) {
		if _, ok := s.specs[name]; !ok {
			return errs.Configuration("config.Configure", "unknown indicator %q", name)
		}
	}

	if len(exclude) > 0 {
		drop := make(map[string]bool, len(exclude))
		for _, name := range exclude {
			drop[name] = true
		}
		s.filter(func(name string) bool { return !drop[name] })
	}
	if len(include) > 0 {
		keep := make(map[string]bool, len(include))
		for _, name := range include {
			keep[name] = true
		}
		s.filter(func(name string) bool { return keep[name] })
	}
	return nil
}

func (s *VariableSet) filter(keep func(string) bool) {
	var order []string
	for _, name := range s.order {
		if keep(name) {
			order = append(order, name)
		} else {
			delete(s.specs, name)
			delete(s.inverse, name)
		}
	}
	s.order = order
}

// Add registers a custom indicator. den may be nil for "use the numerator
// directly". Redefining an existing name is a configuration error.
func (s *VariableSet) Add(name string, num, den []string, description string) error {
	if _, ok := s.specs[name]; ok {
		return errs.Configuration("config.Add", "variable %q already exists", name)
	}
	if len(num) == 0 {
		return errs.Configuration("config.Add", "variable %q has no numerator", name)
	}
	s.order = append(s.order, name)
	s.specs[name] = catalog.Indicator{
		Name:        name,
		Numerator:   num,
		Denominator: den,
		Description: description,
	}
	return nil
}

// SetInverse replaces the inverse-name list.
func (s *VariableSet) SetInverse(names []string) error {
	for _, name := range names {
		if _, ok := s.specs[name]; !ok {
			return errs.Configuration("config.SetInverse", "unknown indicator %q", name)
		}
	}
	s.inverse = make(map[string]bool, len(names))
	for _, name := range names {
		s.inverse[name] = true
	}
	return nil
}

// Inverse returns the inverse indicator names in configured order.
func (s *VariableSet) Inverse() []string {
	var out []string
	for _, name := range s.order {
		if s.inverse[name] {
			out = append(out, name)
		}
	}
	return out
}

// variableSpec is the YAML wire form of one indicator. The denominator list
// holds either variable codes or the bare constant 1.
type variableSpec struct {
	Num         []string      `yaml:"num"`
	Den         []interface{} `yaml:"den"`
	Description string        `yaml:"description"`
}

// Save writes the set as the two-document YAML layout: inverse list, then
// the indicator dictionary.
func (s *VariableSet) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	if err := enc.Encode(s.Inverse()); err != nil {
		return err
	}

	dict := make(map[string]variableSpec, len(s.order))
	for _, name := range s.order {
		ind := s.specs[name]
		spec := variableSpec{Num: ind.Numerator, Description: ind.Description}
		if len(ind.Denominator) == 0 {
			spec.Den = []interface{}{1}
		} else {
			for _, code := range ind.Denominator {
				spec.Den = append(spec.Den, code)
			}
		}
		dict[name] = spec
	}
	return enc.Encode(dict)
}

// LoadVariableSet reads a two-document variable configuration.
func LoadVariableSet(r io.Reader) (*VariableSet, error) {
	dec := yaml.NewDecoder(r)

	var inverse []string
	if err := dec.Decode(&inverse); err != nil {
		return nil, errs.Configuration("config.LoadVariableSet", "parse inverse list: %v", err)
	}
	var dict map[string]variableSpec
	if err := dec.Decode(&dict); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.Configuration("config.LoadVariableSet", "missing indicator dictionary document")
		}
		return nil, errs.Configuration("config.LoadVariableSet", "parse indicator dictionary: %v", err)
	}

	s := &VariableSet{
		specs:   make(map[string]catalog.Indicator, len(dict)),
		inverse: make(map[string]bool),
	}
	// yaml maps are unordered; keep catalog order for known names and sort
	// custom names after them.
	for _, ind := range catalog.Indicators() {
		if _, ok := dict[ind.Name]; ok {
			s.order = append(s.order, ind.Name)
		}
	}
	var custom []string
	for name := range dict {
		if !contains(s.order, name) {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	s.order = append(s.order, custom...)
	for name, spec := range dict {
		var den []string
		for _, d := range spec.Den {
			if code, ok := d.(string); ok {
				den = append(den, code)
			}
		}
		s.specs[name] = catalog.Indicator{
			Name:        name,
			Numerator:   spec.Num,
			Denominator: den,
			Description: spec.Description,
		}
	}
	for _, name := range inverse {
		s.inverse[name] = true
	}
	return s, nil
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
