// Package merge implements C3: planning — merging desired state onto
// current state to produce a concrete, ordered set of changes, classifying
// each entity as added, changed, removed, or unchanged.
package merge

import (
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// ChangeKind classifies how an entity's desired state compares to current.
type ChangeKind string

const (
	Unchanged ChangeKind = "unchanged"
	Added     ChangeKind = "added"
	Changed   ChangeKind = "changed"
	Removed   ChangeKind = "removed"
)

// InterfaceChange is one interface's merge result: the fully resolved
// interface to apply (nil when Removed) plus its classification.
type InterfaceChange struct {
	Key   nmstate.IfaceKey
	Kind  ChangeKind
	Iface *nmstate.Interface
}

// RouteChange is one route's merge result. Previous holds the pre-change
// route for Changed/Removed (needed by pkg/revert); it is the zero value
// for Added.
type RouteChange struct {
	Kind     ChangeKind
	Route    nmstate.Route
	Previous nmstate.Route
}

// RouteRuleChange is one route-rule's merge result. Previous mirrors
// RouteChange.Previous.
type RouteRuleChange struct {
	Kind     ChangeKind
	Rule     nmstate.RouteRule
	Previous nmstate.RouteRule
}

// MergedNetworkState is the full merge result: every entity the desired
// document touched, classified, ready for pkg/transaction to apply in
// Plan's order.
type MergedNetworkState struct {
	Interfaces map[nmstate.IfaceKey]InterfaceChange
	Routes     []RouteChange
	RouteRules []RouteRuleChange

	DNSChanged  bool
	DNS         *nmstate.DNSConfig
	OvsDBChanged bool
	OvsDB       nmstate.OvsDBGlobalConfig
	OvnChanged  bool
	Ovn         nmstate.OvnConfig
	HostnameChanged bool
	Hostname    *string

	// Plan is the topologically-sorted interface apply order (ports before
	// the controller enslaving them, parents before the children that
	// reference them; see order.go).
	Plan []nmstate.IfaceKey
}

// IsEmpty reports whether merging produced no actionable changes at all.
func (m *MergedNetworkState) IsEmpty() bool {
	for _, c := range m.Interfaces {
		if c.Kind != Unchanged {
			return false
		}
	}
	for _, c := range m.Routes {
		if c.Kind != Unchanged {
			return false
		}
	}
	for _, c := range m.RouteRules {
		if c.Kind != Unchanged {
			return false
		}
	}
	return !m.DNSChanged && !m.OvsDBChanged && !m.OvnChanged && !m.HostnameChanged
}

// Merge resolves desired state against current state, per spec.md §4.3:
//  1. resolve each interface's absent/add/change classification
//  2. resolve auto-kind interfaces by looking up the current state
//  3. reconcile controller/port references both directions
//  4. reconcile parent/child references for kinds that carry one
//  5. diff routes/route-rules by identity, honoring the narrowed route
//     identity (destination, table) Open Question resolution
//  6. diff DNS/OvsDB/Ovn/Hostname as whole-value replace-if-present
//  7. compute the topological apply order
func Merge(desired, current *nmstate.NetworkState) (*MergedNetworkState, error) {
	merged := &MergedNetworkState{
		Interfaces: make(map[nmstate.IfaceKey]InterfaceChange),
	}

	if desired.Present.Has(nmstate.FieldInterfaces) {
		if err := mergeInterfaces(desired, current, merged); err != nil {
			return nil, err
		}
	}
	if desired.Present.Has(nmstate.FieldRoutes) {
		merged.Routes = mergeRoutes(desired.Routes, current.Routes)
	}
	if desired.Present.Has(nmstate.FieldRouteRules) {
		merged.RouteRules = mergeRouteRules(desired.RouteRules, current.RouteRules)
	}
	if desired.Present.Has(nmstate.FieldDNS) && desired.DNS.Desired != nil {
		if !dnsConfigEqual(desired.DNS.Desired, current.DNS.Running) {
			merged.DNSChanged = true
			merged.DNS = desired.DNS.Desired
		}
	}
	if desired.Present.Has(nmstate.FieldOvsDB) {
		if !stringMapEqual(desired.OvsDB.ExternalIDs, current.OvsDB.ExternalIDs) ||
			!stringMapEqual(desired.OvsDB.OtherConfig, current.OvsDB.OtherConfig) {
			merged.OvsDBChanged = true
			merged.OvsDB = desired.OvsDB
		}
	}
	if desired.Present.Has(nmstate.FieldOvn) {
		merged.OvnChanged = true
		merged.Ovn = desired.Ovn
	}
	if desired.Present.Has(nmstate.FieldHostname) && desired.Hostname.Config != nil {
		if current.Hostname.Running == nil || *current.Hostname.Running != *desired.Hostname.Config {
			merged.HostnameChanged = true
			merged.Hostname = desired.Hostname.Config
		}
	}

	plan, err := order(merged)
	if err != nil {
		return nil, err
	}
	merged.Plan = plan

	return merged, nil
}

func mergeInterfaces(desired, current *nmstate.NetworkState, merged *MergedNetworkState) error {
	for key, want := range desired.Interfaces {
		have, exists := current.Interfaces[key]

		if want.Base.State == nmstate.StateAbsent {
			if exists {
				merged.Interfaces[key] = InterfaceChange{Key: key, Kind: Removed, Iface: have}
			}
			continue
		}

		if want.Base.Kind == "" || want.Base.Kind == nmstate.KindUnknown {
			if exists {
				want.Base.Kind = have.Base.Kind
			} else {
				return nmerr.New(nmerr.InvalidArgument, key.Name, "interface kind could not be resolved for a new interface")
			}
		}

		if !exists {
			merged.Interfaces[key] = InterfaceChange{Key: key, Kind: Added, Iface: want}
			continue
		}

		resolved := resolveAgainstCurrent(want, have)
		if interfaceEqual(resolved, have) {
			merged.Interfaces[key] = InterfaceChange{Key: key, Kind: Unchanged, Iface: have}
		} else {
			merged.Interfaces[key] = InterfaceChange{Key: key, Kind: Changed, Iface: resolved}
		}
	}

	cascadeRemovals(desired, current, merged)

	reconcileControllers(current, merged)
	if err := reconcileParents(desired, current, merged); err != nil {
		return err
	}
	return nil
}

// cascadeRemovals implements spec.md §3's "an interface marked absent
// implies removal of all its subordinates unless those subordinates are
// independently redefined": for every current interface that is not
// mentioned in desired and whose controller or parent was just marked
// Removed, mark it Removed too. Runs to a fixed point so removing a
// container cascades through however many subordinate levels exist (a
// removed bridge's port that is itself a vlan's parent, etc.).
func cascadeRemovals(desired, current *nmstate.NetworkState, merged *MergedNetworkState) {
	for {
		changed := false
		for key, iface := range current.Interfaces {
			if _, already := merged.Interfaces[key]; already {
				continue
			}
			if _, redefined := desired.Interfaces[key]; redefined {
				continue
			}
			if !subordinateOfRemoved(iface, merged) {
				continue
			}
			merged.Interfaces[key] = InterfaceChange{Key: key, Kind: Removed, Iface: iface}
			changed = true
		}
		if !changed {
			return
		}
	}
}

// subordinateOfRemoved reports whether iface's controller or parent
// reference names an interface merged already classified Removed.
func subordinateOfRemoved(iface *nmstate.Interface, merged *MergedNetworkState) bool {
	if controller := iface.Base.Controller; controller != nil {
		if _, change, ok := lookupByName(merged.Interfaces, *controller); ok && change.Kind == Removed {
			return true
		}
	}
	if parent, ok := iface.ParentName(); ok {
		if _, change, ok := lookupByName(merged.Interfaces, parent); ok && change.Kind == Removed {
			return true
		}
	}
	return false
}

// resolveAgainstCurrent fills fields the desired document left unset with
// the current value, so a partial edit (e.g. only "mtu") doesn't read as a
// request to clear every other field.
func resolveAgainstCurrent(want, have *nmstate.Interface) *nmstate.Interface {
	resolved := *want
	if resolved.Base.Description == nil {
		resolved.Base.Description = have.Base.Description
	}
	if resolved.Base.MTU == nil {
		resolved.Base.MTU = have.Base.MTU
	}
	if resolved.Base.MacAddress == nil {
		resolved.Base.MacAddress = have.Base.MacAddress
	}
	if resolved.Base.IPv4 == nil {
		resolved.Base.IPv4 = have.Base.IPv4
	}
	if resolved.Base.IPv6 == nil {
		resolved.Base.IPv6 = have.Base.IPv6
	}
	if resolved.Base.Ports == nil {
		resolved.Base.Ports = have.Base.Ports
	}
	if resolved.Base.State == "" {
		resolved.Base.State = have.Base.State
	}
	return &resolved
}

// reconcileControllers stamps Base.Controller on every interface listed in
// a container's ports, and clears it on interfaces the container used to
// list (per current state) but no longer does, matching spec.md §4.3 step
// 3 (reconciliation is bidirectional).
func reconcileControllers(current *nmstate.NetworkState, merged *MergedNetworkState) {
	for key, change := range merged.Interfaces {
		if change.Kind == Removed || change.Iface == nil {
			continue
		}
		ports, ok := change.Iface.Ports()
		if !ok {
			continue
		}

		wanted := make(map[string]bool, len(ports))
		for _, portName := range ports {
			wanted[portName] = true
			portKey, portChange, exists := lookupByName(merged.Interfaces, portName)
			name := key.Name
			if !exists {
				curIface, curExists := current.InterfaceByName(portName)
				if !curExists {
					continue
				}
				stamped := *curIface
				stamped.Base.Controller = &name
				kind := Changed
				if curIface.Base.Controller != nil && *curIface.Base.Controller == name {
					kind = Unchanged
				}
				merged.Interfaces[curIface.Key()] = InterfaceChange{Key: curIface.Key(), Kind: kind, Iface: &stamped}
				continue
			}
			if portChange.Iface == nil {
				continue
			}
			portChange.Iface.Base.Controller = &name
			if portChange.Kind == Unchanged {
				portChange.Kind = Changed
			}
			merged.Interfaces[portKey] = portChange
		}

		have, existed := current.Interfaces[key]
		if !existed {
			continue
		}
		previousPorts, _ := have.Ports()
		for _, portName := range previousPorts {
			if wanted[portName] {
				continue
			}
			portKey, portChange, exists := lookupByName(merged.Interfaces, portName)
			if !exists {
				curIface, curExists := current.InterfaceByName(portName)
				if !curExists || curIface.Base.Controller == nil {
					continue
				}
				cleared := *curIface
				cleared.Base.Controller = nil
				merged.Interfaces[curIface.Key()] = InterfaceChange{Key: curIface.Key(), Kind: Changed, Iface: &cleared}
				continue
			}
			if portChange.Iface == nil || portChange.Kind == Removed {
				continue
			}
			portChange.Iface.Base.Controller = nil
			if portChange.Kind == Unchanged {
				portChange.Kind = Changed
			}
			merged.Interfaces[portKey] = portChange
		}
	}
}

// reconcileParents verifies every parent-carrying kind (vlan, vxlan,
// macvlan, macvtap, macsec, ipvlan) references a parent that exists either
// in the desired document or the current state.
func reconcileParents(desired, current *nmstate.NetworkState, merged *MergedNetworkState) error {
	for key, change := range merged.Interfaces {
		if change.Kind == Removed || change.Iface == nil {
			continue
		}
		parent, hasParent := change.Iface.ParentName()
		if !hasParent {
			continue
		}
		if _, _, ok := lookupByName(merged.Interfaces, parent); ok {
			continue
		}
		if _, ok := current.InterfaceByName(parent); ok {
			continue
		}
		return nmerr.New(nmerr.DependencyError, key.Name, "parent interface %q does not exist", parent)
	}
	return nil
}

// lookupByName finds an interface change by name, preferring the kernel
// namespace, matching nmstate.NetworkState.InterfaceByName — a port or
// parent reference in a document is an unqualified name that may resolve
// to either namespace (e.g. an ovs-interface port lives in "user").
func lookupByName(m map[nmstate.IfaceKey]InterfaceChange, name string) (nmstate.IfaceKey, InterfaceChange, bool) {
	key := nmstate.IfaceKey{Namespace: nmstate.NamespaceKernel, Name: name}
	if c, ok := m[key]; ok {
		return key, c, true
	}
	key = nmstate.IfaceKey{Namespace: nmstate.NamespaceUser, Name: name}
	c, ok := m[key]
	return key, c, ok
}

func mergeRoutes(desired, current []nmstate.Route) []RouteChange {
	currentByID := make(map[nmstate.RouteIdentity]nmstate.Route, len(current))
	for _, r := range current {
		currentByID[narrowedRouteIdentity(r.Identity())] = r
	}
	seen := make(map[nmstate.RouteIdentity]bool)
	var out []RouteChange
	for _, r := range desired {
		id := narrowedRouteIdentity(r.Identity())
		seen[id] = true
		have, exists := currentByID[id]
		switch {
		case r.State == nmstate.StateAbsent:
			if exists {
				out = append(out, RouteChange{Kind: Removed, Route: have})
			}
		case !exists:
			out = append(out, RouteChange{Kind: Added, Route: r})
		case have != r:
			out = append(out, RouteChange{Kind: Changed, Route: r, Previous: have})
		default:
			out = append(out, RouteChange{Kind: Unchanged, Route: r})
		}
	}
	return out
}

// narrowedRouteIdentity implements the Open Question resolution in
// SPEC_FULL.md §9: identity for change detection is (destination, table),
// so a metric-only edit is a Changed route rather than a remove+add pair.
func narrowedRouteIdentity(id nmstate.RouteIdentity) nmstate.RouteIdentity {
	return nmstate.RouteIdentity{Destination: id.Destination, TableID: id.TableID}
}

func mergeRouteRules(desired, current []nmstate.RouteRule) []RouteRuleChange {
	currentByID := make(map[nmstate.RouteIdentity]nmstate.RouteRule, len(current))
	for _, r := range current {
		currentByID[r.Identity()] = r
	}
	var out []RouteRuleChange
	for _, r := range desired {
		id := r.Identity()
		have, exists := currentByID[id]
		switch {
		case r.State == nmstate.StateAbsent:
			if exists {
				out = append(out, RouteRuleChange{Kind: Removed, Rule: have})
			}
		case !exists:
			out = append(out, RouteRuleChange{Kind: Added, Rule: r})
		case have != r:
			out = append(out, RouteRuleChange{Kind: Changed, Rule: r, Previous: have})
		default:
			out = append(out, RouteRuleChange{Kind: Unchanged, Rule: r})
		}
	}
	return out
}

func dnsConfigEqual(a, b *nmstate.DNSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return stringSliceEqual(a.Server, b.Server) && stringSliceEqual(a.Search, b.Search)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
