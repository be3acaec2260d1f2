package policy

import (
	"fmt"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Resolve renders doc's capture/template section against current state and
// returns the fully concrete NetworkState, per spec.md §4.5: captures are
// evaluated against current, then every `{{ capture.name.path }}`
// placeholder in doc is substituted before the document is parsed for
// real. If doc has no top-level "capture" key this is equivalent to
// nmstate.Parse(doc). An error from that first parse of doc is returned as
// nmstate.Parse reports it; every later failure is reported as
// nmerr.PolicyFailed, per spec.md §7's taxonomy.
func Resolve(doc []byte, current *nmstate.NetworkState) (*nmstate.NetworkState, error) {
	draft, err := nmstate.Parse(doc)
	if err != nil {
		return nil, err
	}
	if !draft.Present.Has(nmstate.FieldCapture) || len(draft.Capture) == 0 {
		return draft, nil
	}

	defs := make([]*CaptureDef, 0, len(draft.Capture))
	for name, expr := range draft.Capture {
		def, err := ParseCapture(fmt.Sprintf("%s := %s", name, expr))
		if err != nil {
			return nil, nmerr.Wrap(nmerr.PolicyFailed, "capture."+name, err)
		}
		defs = append(defs, def)
	}

	results, err := Evaluate(defs, current)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.PolicyFailed, "capture", err)
	}

	rendered, err := Render(string(doc), results)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.PolicyFailed, "capture", err)
	}

	final, err := nmstate.Parse([]byte(rendered))
	if err != nil {
		return nil, nmerr.Wrap(nmerr.PolicyFailed, "capture", err)
	}
	return final, nil
}
