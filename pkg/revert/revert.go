// Package revert implements C4: given a merge result, produce a
// NetworkState that, applied to the post-change system, restores the
// pre-change current state.
package revert

import (
	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Generate builds the revert document for merged, per spec.md §4.4's
// per-entity rules. current is the NetworkState the merge was computed
// against (pre-apply).
func Generate(merged *merge.MergedNetworkState, current *nmstate.NetworkState) *nmstate.NetworkState {
	revert := nmstate.NewNetworkState()

	if len(merged.Interfaces) > 0 {
		revert.Present[nmstate.FieldInterfaces] = true
		for key, change := range merged.Interfaces {
			switch change.Kind {
			case merge.Added:
				revert.Interfaces[key] = &nmstate.Interface{
					Base: nmstate.BaseInterface{Name: key.Name, Kind: change.Iface.Base.Kind, State: nmstate.StateAbsent},
				}
			case merge.Removed:
				revert.Interfaces[key] = change.Iface
			case merge.Changed:
				revert.Interfaces[key] = revertChanged(change, current)
			}
		}
	}

	if routes := revertRoutes(merged.Routes, current.Routes); routes != nil {
		revert.Present[nmstate.FieldRoutes] = true
		revert.Routes = routes
	}
	if rules := revertRouteRules(merged.RouteRules, current.RouteRules); rules != nil {
		revert.Present[nmstate.FieldRouteRules] = true
		revert.RouteRules = rules
	}
	if merged.DNSChanged {
		revert.Present[nmstate.FieldDNS] = true
		revert.DNS.Desired = current.DNS.Running
	}
	if merged.OvsDBChanged {
		revert.Present[nmstate.FieldOvsDB] = true
		revert.OvsDB = current.OvsDB
	}
	if merged.OvnChanged {
		revert.Present[nmstate.FieldOvn] = true
		revert.Ovn = current.Ovn
	}
	if merged.HostnameChanged {
		revert.Present[nmstate.FieldHostname] = true
		revert.Hostname.Config = current.Hostname.Running
	}

	return revert
}

// revertChanged restores the pre-change shape of a Changed interface,
// special-casing the static→auto IP switch and a freshly-enabled SR-IOV
// block per spec.md §4.4.
func revertChanged(change merge.InterfaceChange, current *nmstate.NetworkState) *nmstate.Interface {
	have, ok := current.Interfaces[change.Key]
	if !ok {
		return change.Iface
	}
	reverted := *have

	if change.Iface.Base.IPv4 != nil && change.Iface.Base.IPv4.IsDynamic() && have.Base.IPv4 != nil && !have.Base.IPv4.IsDynamic() {
		reverted.Base.IPv4 = have.Base.IPv4
	}
	if change.Iface.Base.IPv6 != nil && change.Iface.Base.IPv6.IsDynamic() && have.Base.IPv6 != nil && !have.Base.IPv6.IsDynamic() {
		reverted.Base.IPv6 = have.Base.IPv6
	}
	if change.Iface.Base.IPv4 != nil && change.Iface.Base.IPv4.IsDisabled() && have.Base.IPv4 != nil {
		reverted.Base.IPv4 = have.Base.IPv4
	}
	if change.Iface.Base.IPv6 != nil && change.Iface.Base.IPv6.IsDisabled() && have.Base.IPv6 != nil {
		reverted.Base.IPv6 = have.Base.IPv6
	}

	if change.Iface.Ethernet != nil && change.Iface.Ethernet.SrIov != nil &&
		(have.Ethernet == nil || have.Ethernet.SrIov == nil || have.Ethernet.SrIov.TotalVfs == nil || *have.Ethernet.SrIov.TotalVfs == 0) {
		wasEnabled := change.Iface.Ethernet.SrIov.TotalVfs != nil && *change.Iface.Ethernet.SrIov.TotalVfs > 0
		hadNone := have.Ethernet == nil || have.Ethernet.SrIov == nil || have.Ethernet.SrIov.TotalVfs == nil || *have.Ethernet.SrIov.TotalVfs == 0
		if wasEnabled && hadNone {
			zero := 0
			ethernet := nmstate.EthernetConfig{}
			if have.Ethernet != nil {
				ethernet = *have.Ethernet
			}
			ethernet.SrIov = &nmstate.SrIovConfig{TotalVfs: &zero}
			reverted.Ethernet = &ethernet
		}
	}

	return &reverted
}

func revertRoutes(changes []merge.RouteChange, current []nmstate.Route) []nmstate.Route {
	var out []nmstate.Route
	for _, c := range changes {
		switch c.Kind {
		case merge.Added:
			absent := c.Route
			absent.State = nmstate.StateAbsent
			out = append(out, absent)
		case merge.Removed:
			out = append(out, c.Route)
		case merge.Changed:
			out = append(out, c.Previous)
		}
	}
	return out
}

func revertRouteRules(changes []merge.RouteRuleChange, current []nmstate.RouteRule) []nmstate.RouteRule {
	var out []nmstate.RouteRule
	for _, c := range changes {
		switch c.Kind {
		case merge.Added:
			absent := c.Rule
			absent.State = nmstate.StateAbsent
			out = append(out, absent)
		case merge.Removed:
			out = append(out, c.Rule)
		case merge.Changed:
			out = append(out, c.Previous)
		}
	}
	return out
}
