package policy

// Filter is one stage of a capture's pipe chain: a path compared against
// either a string literal (`==`) or another path, typically a
// cross-capture reference (`:=`).
type Filter struct {
	Path      []string
	Op        TokenKind // TokenEq or TokenAssign
	Literal   string
	ValuePath []string
}

// pathRefersToCapture reports whether the filter's value path names another
// capture's output (value paths beginning with "capture"), and which one.
func (f Filter) pathRefersToCapture() (name string, ok bool) {
	if len(f.ValuePath) >= 2 && f.ValuePath[0] == "capture" {
		return f.ValuePath[1], true
	}
	return "", false
}

// CaptureDef is one parsed `name := filter (| filter)*` definition.
type CaptureDef struct {
	Name    string
	Filters []Filter
}

// Dependencies returns the names of other captures this definition's
// filters reference, for the topological evaluation order spec.md §4.5
// requires.
func (c *CaptureDef) Dependencies() []string {
	var deps []string
	for _, f := range c.Filters {
		if name, ok := f.pathRefersToCapture(); ok {
			deps = append(deps, name)
		}
	}
	return deps
}
