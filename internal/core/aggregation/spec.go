package aggregation

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// stringList decodes either a scalar or a sequence of scalars into a list so
// quantity, function and name may be written either way in plan files.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		ss := []string{}
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// groupIntervals decodes a mapping of group → windows, keeping document order.
type groupIntervals []GroupWindows

func (g *groupIntervals) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: group_intervals must be a mapping of group to windows", node.Line)
	}
	out := make(groupIntervals, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var group string
		if err := node.Content[i].Decode(&group); err != nil {
			return err
		}
		var windows stringList
		if err := node.Content[i+1].Decode(&windows); err != nil {
			return fmt.Errorf("group %q: %w", group, err)
		}
		out = append(out, GroupWindows{Group: group, Windows: windows})
	}
	*g = out
	return nil
}

// rawAggregate is the on-disk shape of one aggregate.
type rawAggregate struct {
	Quantity stringList `yaml:"quantity"`
	Function stringList `yaml:"function"`
	Name     stringList `yaml:"name"`
}

// rawPlan is the on-disk YAML shape of a plan.
type rawPlan struct {
	Name           string         `yaml:"name"`
	Source         string         `yaml:"source"`
	Prefix         string         `yaml:"prefix"`
	Suffix         string         `yaml:"suffix"`
	DateColumn     string         `yaml:"date_column"`
	GroupIntervals groupIntervals `yaml:"group_intervals"`
	Dates          []string       `yaml:"dates"`
	Aggregates     []rawAggregate `yaml:"aggregates"`
}

// compile validates the raw plan and builds its Plan.
func (r rawPlan) compile() (*Plan, error) {
	if r.Source == "" {
		return nil, fmt.Errorf("source must not be empty")
	}
	if len(r.GroupIntervals) == 0 {
		return nil, fmt.Errorf("group_intervals must not be empty")
	}
	if len(r.Dates) == 0 {
		return nil, fmt.Errorf("dates must not be empty")
	}
	if len(r.Aggregates) == 0 {
		return nil, fmt.Errorf("aggregates must not be empty")
	}

	seenGroups := make(map[string]struct{}, len(r.GroupIntervals))
	groups := make([]GroupWindows, 0, len(r.GroupIntervals))
	for _, g := range r.GroupIntervals {
		if g.Group == "" {
			return nil, fmt.Errorf("group key must not be empty")
		}
		if _, dup := seenGroups[g.Group]; dup {
			return nil, fmt.Errorf("duplicate group %q", g.Group)
		}
		seenGroups[g.Group] = struct{}{}
		if len(g.Windows) == 0 {
			return nil, fmt.Errorf("group %q: windows must not be empty", g.Group)
		}

		windows := make([]string, len(g.Windows))
		for i, w := range g.Windows {
			parsed, err := ParseWindow(w)
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", g.Group, err)
			}
			windows[i] = parsed
		}
		groups = append(groups, GroupWindows{Group: g.Group, Windows: windows})
	}

	dates := make([]string, len(r.Dates))
	for i, d := range r.Dates {
		if _, err := ParseReferenceDate(d); err != nil {
			return nil, err
		}
		dates[i] = strings.TrimSpace(d)
	}

	aggregates := make([]*Aggregate, len(r.Aggregates))
	for i, ra := range r.Aggregates {
		if len(ra.Quantity) == 0 || len(ra.Function) == 0 {
			return nil, fmt.Errorf("aggregate %d: quantity and function are required", i)
		}
		// an explicit name list, even an empty one, must pair with the quantities
		agg, err := NewAggregate(ra.Quantity, ra.Function, ra.Name)
		if err != nil {
			return nil, fmt.Errorf("aggregate %d: %w", i, err)
		}
		aggregates[i] = agg
	}

	return NewPlan(PlanParams{
		Aggregates: aggregates,
		Source:     r.Source,
		Groups:     groups,
		Dates:      dates,
		Prefix:     r.Prefix,
		Suffix:     r.Suffix,
		DateColumn: r.DateColumn,
	}), nil
}
