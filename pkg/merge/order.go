package merge

import (
	"sort"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// order computes the interface apply sequence via Kahn's algorithm. Per
// spec.md §8 scenario S2, a controller is applied only after the ports it
// references (the port must exist before it can be enslaved), and a
// parent-carrying kind (vlan/vxlan/macvlan/macvtap/macsec/ipvlan) is
// applied only after the parent it references. Ties break by name for a
// deterministic plan.
func order(merged *MergedNetworkState) ([]nmstate.IfaceKey, error) {
	inDegree := make(map[nmstate.IfaceKey]int, len(merged.Interfaces))
	dependents := make(map[nmstate.IfaceKey][]nmstate.IfaceKey)

	for key := range merged.Interfaces {
		inDegree[key] = 0
	}

	addEdge := func(before, after nmstate.IfaceKey) {
		if _, ok := merged.Interfaces[before]; !ok {
			return
		}
		if _, ok := merged.Interfaces[after]; !ok {
			return
		}
		dependents[before] = append(dependents[before], after)
		inDegree[after]++
	}

	for key, change := range merged.Interfaces {
		if change.Iface == nil {
			continue
		}
		if controller := change.Iface.Base.Controller; controller != nil {
			if controllerKey, _, ok := lookupByName(merged.Interfaces, *controller); ok {
				addEdge(key, controllerKey)
			}
		}
		if parent, ok := change.Iface.ParentName(); ok {
			if parentKey, _, ok := lookupByName(merged.Interfaces, parent); ok {
				addEdge(parentKey, key)
			}
		}
	}

	var queue []nmstate.IfaceKey
	for key, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, key)
		}
	}
	sortKeys(queue)

	var sorted []nmstate.IfaceKey
	for len(queue) > 0 {
		sort.SliceStable(queue, func(i, j int) bool { return queue[i].Name < queue[j].Name })
		key := queue[0]
		queue = queue[1:]
		sorted = append(sorted, key)

		next := dependents[key]
		sortKeys(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(merged.Interfaces) {
		var inCycle []string
		for key, deg := range inDegree {
			if deg > 0 {
				inCycle = append(inCycle, key.Name)
			}
		}
		return nil, nmerr.New(nmerr.Bug, "interfaces", "dependency cycle detected among: %v", inCycle)
	}

	// Removed interfaces are applied last, in reverse dependency order
	// (a controller is torn down before its ports, a child before its
	// parent), so nothing is removed while something else still depends
	// on it.
	var removals []nmstate.IfaceKey
	for i := len(sorted) - 1; i >= 0; i-- {
		if merged.Interfaces[sorted[i]].Kind == Removed {
			removals = append(removals, sorted[i])
		}
	}
	var active []nmstate.IfaceKey
	for _, key := range sorted {
		if merged.Interfaces[key].Kind != Removed {
			active = append(active, key)
		}
	}

	return append(active, removals...), nil
}

func sortKeys(keys []nmstate.IfaceKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
}
