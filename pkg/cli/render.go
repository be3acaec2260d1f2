package cli

import (
	"fmt"
	"sort"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// RenderInterfaces prints a NetworkState's interfaces as a table, the
// `show` command's output.
func RenderInterfaces(state *nmstate.NetworkState) {
	t := NewTable("NAME", "TYPE", "STATE", "MTU", "MAC", "CONTROLLER")
	keys := sortedKeys(state.Interfaces)
	for _, key := range keys {
		iface := state.Interfaces[key]
		t.Row(
			iface.Base.Name,
			string(iface.Base.Kind),
			colorState(iface.Base.State),
			mtuString(iface.Base.MTU),
			ptrString(iface.Base.MacAddress),
			ptrString(iface.Base.Controller),
		)
	}
	t.Flush()
}

// RenderStatistic prints a merge result's per-interface classification, the
// `statistic` command's output: how many interfaces were added, changed,
// removed, or left unchanged, plus the changed-entity totals for
// routes/route-rules/DNS/OvsDB/OVN/hostname.
func RenderStatistic(merged *merge.MergedNetworkState) {
	counts := map[merge.ChangeKind]int{}
	t := NewTable("NAME", "CHANGE")
	keys := sortedChangeKeys(merged.Interfaces)
	for _, key := range keys {
		change := merged.Interfaces[key]
		counts[change.Kind]++
		t.Row(key.Name, colorChangeKind(change.Kind))
	}
	t.Flush()

	fmt.Printf("\n%s: %d added, %d changed, %d removed, %d unchanged\n",
		Bold("interfaces"),
		counts[merge.Added], counts[merge.Changed], counts[merge.Removed], counts[merge.Unchanged])

	routeChanges := 0
	for _, c := range merged.Routes {
		if c.Kind != merge.Unchanged {
			routeChanges++
		}
	}
	ruleChanges := 0
	for _, c := range merged.RouteRules {
		if c.Kind != merge.Unchanged {
			ruleChanges++
		}
	}
	fmt.Printf("%s: %d changed\n", Bold("routes"), routeChanges)
	fmt.Printf("%s: %d changed\n", Bold("route rules"), ruleChanges)
	fmt.Printf("%s: dns=%v ovsdb=%v ovn=%v hostname=%v\n", Bold("global"),
		merged.DNSChanged, merged.OvsDBChanged, merged.OvnChanged, merged.HostnameChanged)
}

func sortedKeys(ifaces map[nmstate.IfaceKey]*nmstate.Interface) []nmstate.IfaceKey {
	keys := make([]nmstate.IfaceKey, 0, len(ifaces))
	for k := range ifaces {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Namespace != keys[j].Namespace {
			return keys[i].Namespace < keys[j].Namespace
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

func sortedChangeKeys(ifaces map[nmstate.IfaceKey]merge.InterfaceChange) []nmstate.IfaceKey {
	keys := make([]nmstate.IfaceKey, 0, len(ifaces))
	for k := range ifaces {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Namespace != keys[j].Namespace {
			return keys[i].Namespace < keys[j].Namespace
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

func colorState(state nmstate.AdminState) string {
	switch state {
	case nmstate.StateUp:
		return Green(string(state))
	case nmstate.StateDown:
		return Yellow(string(state))
	case nmstate.StateAbsent:
		return Red(string(state))
	default:
		return string(state)
	}
}

func colorChangeKind(kind merge.ChangeKind) string {
	switch kind {
	case merge.Added:
		return Green(string(kind))
	case merge.Changed:
		return Yellow(string(kind))
	case merge.Removed:
		return Red(string(kind))
	default:
		return Dim(string(kind))
	}
}

func mtuString(mtu *int) string {
	if mtu == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *mtu)
}

func ptrString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
