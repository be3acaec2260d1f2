// Package query implements C2: building the current network state by
// querying the kernel (via netlink) and, for interfaces the kernel doesn't
// own directly, the configuration backend (NetworkManager/OVS), then
// reconciling the two views into a single nmstate.NetworkState snapshot.
package query

import (
	"context"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/util"
)

// KernelQuerier reports what the kernel currently knows about links,
// addresses, and routes. The real implementation is backed by netlink
// (kernel_netlink.go); tests use a fake.
type KernelQuerier interface {
	ListInterfaces(ctx context.Context) ([]*nmstate.Interface, error)
	ListRoutes(ctx context.Context) ([]nmstate.Route, error)
	ListRouteRules(ctx context.Context) ([]nmstate.RouteRule, error)
}

// BackendQuerier reports what the configuration backend (NetworkManager
// profiles, OVS database) knows beyond what netlink exposes: persisted
// profile settings, OVS bridge/port metadata, DNS, hostname.
type BackendQuerier interface {
	ListProfiles(ctx context.Context) ([]*nmstate.Interface, error)
	DNS(ctx context.Context) (*nmstate.DNSConfig, error)
	Hostname(ctx context.Context) (string, error)
	OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error)
}

// Querier combines a kernel and a backend collaborator into the single
// entry point Show/gen_revert/apply-verify all use to obtain current state.
type Querier struct {
	Kernel  KernelQuerier
	Backend BackendQuerier
}

// New constructs a Querier from its two collaborators.
func New(kernel KernelQuerier, backend BackendQuerier) *Querier {
	return &Querier{Kernel: kernel, Backend: backend}
}

// CurrentState builds the full current NetworkState, merging kernel-observed
// interfaces with backend-observed profile data. The kernel view is kept
// for everything it reports (admin state, MTU, MAC, IP addressing). A
// backend profile's controller and its bond, linux-bridge or ethernet block
// are used only where the kernel view has none; the two are not merged
// field by field, so a kernel-reported bond or bridge block keeps no bond
// options or STP settings from the profile. Backend-only entries
// (interfaces with a saved profile but no live link) are still reported so
// Show/verify can see them.
func (q *Querier) CurrentState(ctx context.Context) (*nmstate.NetworkState, error) {
	kernelIfaces, err := q.Kernel.ListInterfaces(ctx)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
	}
	var backendIfaces []*nmstate.Interface
	if q.Backend != nil {
		backendIfaces, err = q.Backend.ListProfiles(ctx)
		if err != nil {
			return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
		}
	}

	state := nmstate.NewNetworkState()
	state.Present[nmstate.FieldInterfaces] = true

	byName := make(map[string]*nmstate.Interface, len(kernelIfaces))
	for _, iface := range kernelIfaces {
		byName[iface.Base.Name] = iface
		state.Interfaces[iface.Key()] = iface
	}
	for _, profile := range backendIfaces {
		existing, ok := byName[profile.Base.Name]
		if !ok {
			state.Interfaces[profile.Key()] = profile
			util.WithInterface(profile.Base.Name).Debug("backend-only profile with no live link")
			continue
		}
		mergeBackendOnto(existing, profile)
	}

	routes, err := q.Kernel.ListRoutes(ctx)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
	}
	state.Routes = routes
	state.Present[nmstate.FieldRoutes] = true

	rules, err := q.Kernel.ListRouteRules(ctx)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
	}
	state.RouteRules = rules
	state.Present[nmstate.FieldRouteRules] = true

	if q.Backend != nil {
		if dns, err := q.Backend.DNS(ctx); err != nil {
			return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
		} else {
			state.DNS.Running = dns
			state.Present[nmstate.FieldDNS] = true
		}
		if hostname, err := q.Backend.Hostname(ctx); err != nil {
			return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
		} else {
			state.Hostname.Running = &hostname
			state.Present[nmstate.FieldHostname] = true
		}
		if ovsdb, err := q.Backend.OvsDBGlobal(ctx); err != nil {
			return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
		} else {
			state.OvsDB = ovsdb
			state.Present[nmstate.FieldOvsDB] = true
		}
	}

	return state, nil
}

// mergeBackendOnto layers backend-only config (not observable via netlink)
// onto a kernel-observed interface, without overwriting live kernel data.
func mergeBackendOnto(live, profile *nmstate.Interface) {
	if live.Base.Controller == nil && profile.Base.Controller != nil {
		live.Base.Controller = profile.Base.Controller
	}
	switch profile.Base.Kind {
	case nmstate.KindBond:
		if live.Bond == nil {
			live.Bond = profile.Bond
		}
	case nmstate.KindLinuxBridge:
		if live.LinuxBridge == nil {
			live.LinuxBridge = profile.LinuxBridge
		}
	case nmstate.KindEthernet:
		if live.Ethernet == nil {
			live.Ethernet = profile.Ethernet
		}
	}
}
