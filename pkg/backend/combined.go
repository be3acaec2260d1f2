package backend

import (
	"context"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// CombinedApplier satisfies transaction.Applier in full by routing each
// interface operation to NMApplier or OvsDBApplier depending on which
// namespace owns the interface key (IfaceKey.Namespace, set by Interface.Key
// from InterfaceKind.IsUserSpace), and by fanning the non-interface
// operations (routes, DNS, hostname, OvsDB, OVN) out to whichever
// collaborator actually owns them.
type CombinedApplier struct {
	NM  *NMApplier
	Ovs *OvsDBApplier
}

// NewCombinedApplier wires the two backend collaborators together.
func NewCombinedApplier(nm *NMApplier, ovs *OvsDBApplier) *CombinedApplier {
	return &CombinedApplier{NM: nm, Ovs: ovs}
}

func (a *CombinedApplier) isUserSpace(key nmstate.IfaceKey) bool {
	return key.Namespace == nmstate.NamespaceUser
}

func (a *CombinedApplier) SaveProfile(ctx context.Context, iface *nmstate.Interface) error {
	if iface.Base.Kind.IsUserSpace() {
		if iface.Base.Kind == nmstate.KindOvsBridge {
			return a.Ovs.SaveBridge(ctx, iface)
		}
		return nil // ovs-interface rows are created as part of SaveBridge
	}
	return a.NM.SaveProfile(ctx, iface)
}

func (a *CombinedApplier) Activate(ctx context.Context, key nmstate.IfaceKey) error {
	if a.isUserSpace(key) {
		return nil // OVS bridges/ports are live as soon as their rows exist
	}
	return a.NM.Activate(ctx, key)
}

func (a *CombinedApplier) Reactivate(ctx context.Context, key nmstate.IfaceKey) error {
	if a.isUserSpace(key) {
		return nil
	}
	return a.NM.Reactivate(ctx, key)
}

func (a *CombinedApplier) Deactivate(ctx context.Context, key nmstate.IfaceKey) error {
	if a.isUserSpace(key) {
		return nil
	}
	return a.NM.Deactivate(ctx, key)
}

func (a *CombinedApplier) Remove(ctx context.Context, key nmstate.IfaceKey) error {
	if a.isUserSpace(key) {
		return a.Ovs.RemoveBridge(ctx, key.Name)
	}
	return a.NM.Remove(ctx, key)
}

func (a *CombinedApplier) ApplyRoutes(ctx context.Context, changes []merge.RouteChange) error {
	return a.NM.ApplyRoutes(ctx, changes)
}

func (a *CombinedApplier) ApplyRouteRules(ctx context.Context, changes []merge.RouteRuleChange) error {
	return a.NM.ApplyRouteRules(ctx, changes)
}

func (a *CombinedApplier) ApplyDNS(ctx context.Context, dns *nmstate.DNSConfig) error {
	return a.NM.ApplyDNS(ctx, dns)
}

func (a *CombinedApplier) ApplyHostname(ctx context.Context, hostname *string) error {
	return a.NM.ApplyHostname(ctx, hostname)
}

func (a *CombinedApplier) ApplyOvsDB(ctx context.Context, cfg nmstate.OvsDBGlobalConfig) error {
	if a.Ovs == nil {
		return nmerr.New(nmerr.NotSupported, "ovsdb", "no ovsdb backend configured")
	}
	return a.Ovs.ApplyOvsDB(ctx, cfg)
}

func (a *CombinedApplier) ApplyOvn(ctx context.Context, cfg nmstate.OvnConfig) error {
	if a.Ovs == nil {
		return nmerr.New(nmerr.NotSupported, "ovn", "no ovsdb backend configured")
	}
	return a.Ovs.ApplyOvn(ctx, cfg)
}

// DeleteProfile implements backend.ProfileDeleter, routing to NM the same
// way ListProfiles does: OVS bridge/port rows have no NM connection profile
// and are removed as part of Remove instead.
func (a *CombinedApplier) DeleteProfile(ctx context.Context, name string) error {
	if a.NM == nil {
		return nil
	}
	return a.NM.DeleteProfile(ctx, name)
}

// CombinedQuerier satisfies query.BackendQuerier the same way CombinedApplier
// satisfies transaction.Applier: NM owns connection profiles/DNS/hostname,
// Ovs owns the Open_vSwitch database. Either collaborator may be nil, in
// which case that slice of the query is simply omitted.
type CombinedQuerier struct {
	NM  *NMApplier
	Ovs *OvsDBApplier
}

// NewCombinedQuerier wires the two backend query collaborators together.
func NewCombinedQuerier(nm *NMApplier, ovs *OvsDBApplier) *CombinedQuerier {
	return &CombinedQuerier{NM: nm, Ovs: ovs}
}

func (q *CombinedQuerier) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) {
	if q.NM == nil {
		return nil, nil
	}
	return q.NM.ListProfiles(ctx)
}

func (q *CombinedQuerier) DNS(ctx context.Context) (*nmstate.DNSConfig, error) {
	if q.NM == nil {
		return nil, nil
	}
	return q.NM.DNS(ctx)
}

func (q *CombinedQuerier) Hostname(ctx context.Context) (string, error) {
	if q.NM == nil {
		return "", nil
	}
	return q.NM.Hostname(ctx)
}

func (q *CombinedQuerier) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	if q.Ovs == nil {
		return nmstate.OvsDBGlobalConfig{}, nil
	}
	return q.Ovs.OvsDBGlobal(ctx)
}
