package workflow

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// maxCombinations caps how many instantiations a single matrix may
// expand to.
const maxCombinations = 256

// Matrix is a job's axis declaration plus include/exclude adjustments.
// Axes keep their manifest order so expansion is reproducible.
type Matrix struct {
	Axes    []Axis        `json:"axes,omitempty"`
	Include []Combination `json:"include,omitempty"`
	Exclude []Combination `json:"exclude,omitempty"`
}

// Axis is one matrix dimension with its values in declared order.
type Axis struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// AxisValue is one axis assignment within a combination.
type AxisValue struct {
	Axis  string `json:"axis"`
	Value string `json:"value"`
}

// Combination is an ordered list of axis assignments describing one job
// instantiation.
type Combination []AxisValue

func (m *Matrix) UnmarshalYAML(b []byte) error {
	var ms yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(b, &ms, yaml.UseOrderedMap()); err != nil {
		return fmt.Errorf("matrix: expected a mapping: %w", err)
	}
	for _, item := range ms {
		key, err := scalarString(item.Key)
		if err != nil {
			return fmt.Errorf("matrix: %w", err)
		}
		switch key {
		case "include":
			combos, err := decodeCombinations(item.Value)
			if err != nil {
				return fmt.Errorf("matrix: include: %w", err)
			}
			m.Include = combos
		case "exclude":
			combos, err := decodeCombinations(item.Value)
			if err != nil {
				return fmt.Errorf("matrix: exclude: %w", err)
			}
			m.Exclude = combos
		default:
			if m.hasAxis(key) {
				return fmt.Errorf("matrix: axis %q declared twice", key)
			}
			values, err := decodeAxisValues(item.Value)
			if err != nil {
				return fmt.Errorf("matrix: axis %q: %w", key, err)
			}
			m.Axes = append(m.Axes, Axis{Name: key, Values: values})
		}
	}
	return nil
}

func decodeAxisValues(v any) ([]string, error) {
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a sequence of scalars, got %T", v)
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("expected at least one value")
	}
	values := make([]string, len(seq))
	for i, item := range seq {
		s, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		values[i] = s
	}
	return values, nil
}

func decodeCombinations(v any) ([]Combination, error) {
	seq, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a sequence of mappings, got %T", v)
	}
	combos := make([]Combination, 0, len(seq))
	for _, item := range seq {
		entry, ok := item.(yaml.MapSlice)
		if !ok {
			return nil, fmt.Errorf("expected a mapping, got %T", item)
		}
		combo := make(Combination, 0, len(entry))
		for _, pair := range entry {
			axis, err := scalarString(pair.Key)
			if err != nil {
				return nil, err
			}
			value, err := scalarString(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", axis, err)
			}
			combo = append(combo, AxisValue{Axis: axis, Value: value})
		}
		combos = append(combos, combo)
	}
	return combos, nil
}

func (m *Matrix) hasAxis(name string) bool {
	return slices.ContainsFunc(m.Axes, func(a Axis) bool { return a.Name == name })
}

// axisNames is the set of declared axes plus any keys introduced by
// include entries.
func (m *Matrix) axisNames() map[string]bool {
	names := make(map[string]bool)
	if m == nil {
		return names
	}
	for _, axis := range m.Axes {
		names[axis.Name] = true
	}
	for _, combo := range m.Include {
		for _, av := range combo {
			names[av.Axis] = true
		}
	}
	return names
}

// Expand produces every combination of the matrix: the cartesian product
// of the axes in declared order, minus exclusions, plus includes. A nil
// matrix expands to a single empty combination. Expansion fails when
// combinations collide or nothing remains.
func (m *Matrix) Expand() ([]Combination, error) {
	if m == nil {
		return []Combination{nil}, nil
	}
	combos, err := m.applyExcludes(m.product())
	if err != nil {
		return nil, err
	}
	combos, err = m.applyIncludes(combos)
	if err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, fmt.Errorf("matrix: no combinations remain after exclude")
	}
	if len(combos) > maxCombinations {
		return nil, fmt.Errorf("matrix: expands to %d combinations, limit is %d", len(combos), maxCombinations)
	}
	if err := distinct(combos); err != nil {
		return nil, err
	}
	return combos, nil
}

func (m *Matrix) product() []Combination {
	if len(m.Axes) == 0 {
		return nil
	}
	combos := []Combination{{}}
	for _, axis := range m.Axes {
		next := make([]Combination, 0, len(combos)*len(axis.Values))
		for _, combo := range combos {
			for _, value := range axis.Values {
				grown := make(Combination, len(combo), len(combo)+1)
				copy(grown, combo)
				next = append(next, append(grown, AxisValue{Axis: axis.Name, Value: value}))
			}
		}
		combos = next
	}
	return combos
}

// applyExcludes drops every product combination an exclude entry matches
// as a subset. Exclude keys must name declared axes.
func (m *Matrix) applyExcludes(combos []Combination) ([]Combination, error) {
	for _, ex := range m.Exclude {
		for _, av := range ex {
			if !m.hasAxis(av.Axis) {
				return nil, fmt.Errorf("matrix: exclude references unknown axis %q", av.Axis)
			}
		}
	}
	if len(m.Exclude) == 0 {
		return combos, nil
	}
	kept := combos[:0]
	for _, combo := range combos {
		excluded := slices.ContainsFunc(m.Exclude, func(ex Combination) bool {
			return ex.subsetOf(combo)
		})
		if !excluded {
			kept = append(kept, combo)
		}
	}
	return kept, nil
}

// applyIncludes widens the product. An entry whose axis keys match
// existing combinations extends those with its extra keys; an entry with
// no axis keys extends every combination; anything else becomes a
// standalone combination.
func (m *Matrix) applyIncludes(combos []Combination) ([]Combination, error) {
	var standalone []Combination
	for _, inc := range m.Include {
		if len(inc) == 0 {
			return nil, fmt.Errorf("matrix: include entry is empty")
		}
		var onAxes, extras Combination
		for _, av := range inc {
			if m.hasAxis(av.Axis) {
				onAxes = append(onAxes, av)
			} else {
				extras = append(extras, av)
			}
		}
		if len(onAxes) == 0 && len(combos) > 0 {
			for i := range combos {
				combos[i] = combos[i].merge(extras)
			}
			continue
		}
		matched := false
		for i := range combos {
			if onAxes.subsetOf(combos[i]) {
				combos[i] = combos[i].merge(extras)
				matched = true
			}
		}
		if !matched {
			standalone = append(standalone, inc)
		}
	}
	return append(combos, standalone...), nil
}

func distinct(combos []Combination) error {
	seen := make(map[string]bool, len(combos))
	for _, combo := range combos {
		key := combo.Key()
		if seen[key] {
			return fmt.Errorf("matrix: duplicate combination (%s)", combo)
		}
		seen[key] = true
	}
	return nil
}

// Get returns the value assigned to an axis.
func (c Combination) Get(axis string) (string, bool) {
	for _, av := range c {
		if av.Axis == axis {
			return av.Value, true
		}
	}
	return "", false
}

// Key is a canonical identity for duplicate detection, independent of
// pair order.
func (c Combination) Key() string {
	pairs := make([]string, len(c))
	for i, av := range c {
		pairs[i] = av.Axis + "=" + av.Value
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ",")
}

// String joins the values in declared order, as shown in instantiation
// names.
func (c Combination) String() string {
	values := make([]string, len(c))
	for i, av := range c {
		values[i] = av.Value
	}
	return strings.Join(values, ", ")
}

func (c Combination) subsetOf(other Combination) bool {
	for _, av := range c {
		value, ok := other.Get(av.Axis)
		if !ok || value != av.Value {
			return false
		}
	}
	return true
}

// merge appends assignments for axes the combination does not have yet.
func (c Combination) merge(extra Combination) Combination {
	out := c
	for _, av := range extra {
		if _, ok := out.Get(av.Axis); !ok {
			out = append(out, av)
		}
	}
	return out
}

var matrixRef = regexp.MustCompile(`\$\{\{\s*matrix\.([A-Za-z_][A-Za-z0-9_-]*)\s*\}\}`)

// Render substitutes ${{ matrix.* }} references with the combination's
// values. Unknown axes render empty.
func (c Combination) Render(s string) string {
	if !strings.Contains(s, "${{") {
		return s
	}
	return matrixRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := matrixRef.FindStringSubmatch(ref)[1]
		value, _ := c.Get(name)
		return value
	})
}

func matrixRefs(s string) []string {
	var names []string
	for _, m := range matrixRef.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}
