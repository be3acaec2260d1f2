package policy

import (
	"fmt"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Evaluate resolves every capture definition against state's interfaces, in
// an order that respects cross-capture references (spec.md §4.5). Each
// capture's result is a list of interface projections (as generic maps) a
// template can index with `{{ capture.name.N.field }}`.
func Evaluate(defs []*CaptureDef, state *nmstate.NetworkState) (map[string][]map[string]any, error) {
	ordered, err := orderCaptures(defs)
	if err != nil {
		return nil, err
	}

	universe := projectInterfaces(state)
	results := make(map[string][]map[string]any, len(defs))

	for _, def := range ordered {
		candidates := universe
		for _, f := range def.Filters {
			value, err := resolveFilterValue(f, results)
			if err != nil {
				return nil, fmt.Errorf("policy: capture %q: %w", def.Name, err)
			}
			candidates = applyFilter(candidates, f, value)
		}
		results[def.Name] = candidates
	}
	return results, nil
}

func resolveFilterValue(f Filter, results map[string][]map[string]any) (string, error) {
	if f.ValuePath == nil {
		return f.Literal, nil
	}
	if len(f.ValuePath) < 2 || f.ValuePath[0] != "capture" {
		return "", fmt.Errorf("cross-reference path must start with capture.<name>, got %v", f.ValuePath)
	}
	name := f.ValuePath[1]
	rest := f.ValuePath[2:]
	rows, ok := results[name]
	if !ok {
		return "", fmt.Errorf("reference to undefined capture %q", name)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("capture %q produced no rows to reference", name)
	}
	return lookupDotted(rows[0], rest)
}

// applyFilter narrows candidates to those whose field (the path's last
// segment, following the "interfaces" collection name) equals value.
func applyFilter(candidates []map[string]any, f Filter, value string) []map[string]any {
	if len(f.Path) < 2 || f.Path[0] != "interfaces" {
		return candidates
	}
	field := f.Path[1]
	var out []map[string]any
	for _, c := range candidates {
		if s, ok := c[field].(string); ok && s == value {
			out = append(out, c)
		}
	}
	return out
}

func lookupDotted(row map[string]any, path []string) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("empty reference path")
	}
	v, ok := row[path[0]]
	if !ok {
		return "", fmt.Errorf("field %q not found", path[0])
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}

func projectInterfaces(state *nmstate.NetworkState) []map[string]any {
	out := make([]map[string]any, 0, len(state.Interfaces))
	for _, iface := range state.Interfaces {
		row := map[string]any{
			"name":  iface.Base.Name,
			"type":  string(iface.Base.Kind),
			"state": string(iface.Base.State),
		}
		if iface.Base.MacAddress != nil {
			row["mac-address"] = *iface.Base.MacAddress
		}
		if iface.Base.Controller != nil {
			row["controller"] = *iface.Base.Controller
		}
		out = append(out, row)
	}
	return out
}

// orderCaptures sorts defs so every capture a filter references is
// evaluated first, via Kahn's algorithm; a reference cycle is an error.
func orderCaptures(defs []*CaptureDef) ([]*CaptureDef, error) {
	byName := make(map[string]*CaptureDef, len(defs))
	inDegree := make(map[string]int, len(defs))
	dependents := make(map[string][]string)

	for _, d := range defs {
		byName[d.Name] = d
		inDegree[d.Name] = 0
	}
	for _, d := range defs {
		for _, dep := range d.Dependencies() {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("policy: capture %q references undefined capture %q", d.Name, dep)
			}
			dependents[dep] = append(dependents[dep], d.Name)
			inDegree[d.Name]++
		}
	}

	var queue []string
	for _, d := range defs {
		if inDegree[d.Name] == 0 {
			queue = append(queue, d.Name)
		}
	}

	var sorted []*CaptureDef
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, byName[name])
		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(defs) {
		return nil, fmt.Errorf("policy: reference cycle detected among captures")
	}
	return sorted, nil
}
