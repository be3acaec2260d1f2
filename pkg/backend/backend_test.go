package backend

import (
	"context"
	"testing"

	"github.com/ovn-org/libovsdb/ovsdb"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

func TestToFromProfileEthernetRoundTrip(t *testing.T) {
	mtu := 1500
	mac := "aa:bb:cc:dd:ee:ff"
	enabled := true
	dhcp := false
	addrs := []nmstate.IPAddress{{Text: "192.0.2.1/24", IP: []byte{192, 0, 2, 1}, PrefixLen: 24}}

	iface := &nmstate.Interface{Base: nmstate.BaseInterface{
		Name:       "eth0",
		Kind:       nmstate.KindEthernet,
		MTU:        &mtu,
		MacAddress: &mac,
		IPv4: &nmstate.IPStack{
			Enabled:   &enabled,
			Dhcp:      &dhcp,
			Addresses: &addrs,
		},
	}}

	profile, err := ToProfile(iface)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if got, _ := profile.get("connection", "type"); got != "802-3-ethernet" {
		t.Fatalf("connection.type = %q", got)
	}
	if got, _ := profile.get("ipv4", "addresses"); got != "192.0.2.1/24" {
		t.Fatalf("ipv4.addresses = %q", got)
	}

	back, err := FromProfile(profile)
	if err != nil {
		t.Fatalf("FromProfile: %v", err)
	}
	if back.Base.Name != "eth0" || back.Base.Kind != nmstate.KindEthernet {
		t.Fatalf("round-trip name/kind mismatch: %+v", back.Base)
	}
	if back.Base.MTU == nil || *back.Base.MTU != mtu {
		t.Fatalf("round-trip mtu mismatch: %+v", back.Base.MTU)
	}
	if back.Base.IPv4 == nil || back.Base.IPv4.Addresses == nil || len(*back.Base.IPv4.Addresses) != 1 {
		t.Fatalf("round-trip ipv4 addresses mismatch: %+v", back.Base.IPv4)
	}
}

func TestToProfileLinuxBridge(t *testing.T) {
	stp := true
	iface := &nmstate.Interface{Base: nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge},
		LinuxBridge: &nmstate.LinuxBridgeConfig{
			StpEnabled:  &stp,
			PortConfigs: []nmstate.LinuxBridgePort{{Name: "eth0"}, {Name: "eth1"}},
		}}

	profile, err := ToProfile(iface)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if got, _ := profile.get("bridge", "ports"); got != "eth0,eth1" {
		t.Fatalf("bridge.ports = %q", got)
	}

	back, err := FromProfile(profile)
	if err != nil {
		t.Fatalf("FromProfile: %v", err)
	}
	if back.LinuxBridge == nil || len(back.LinuxBridge.PortConfigs) != 2 {
		t.Fatalf("round-trip bridge ports mismatch: %+v", back.LinuxBridge)
	}
}

func TestGenConfSkipsRemovedRendersDeterministic(t *testing.T) {
	mtu := 1400
	merged := &merge.MergedNetworkState{Interfaces: map[nmstate.IfaceKey]merge.InterfaceChange{
		{Namespace: nmstate.NamespaceKernel, Name: "eth0"}: {
			Kind:  merge.Added,
			Iface: &nmstate.Interface{Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, MTU: &mtu}},
		},
		{Namespace: nmstate.NamespaceKernel, Name: "eth1"}: {
			Kind: merge.Removed,
		},
	}}

	files, err := GenConf(merged)
	if err != nil {
		t.Fatalf("GenConf: %v", err)
	}
	if _, ok := files["eth0.nmconnection"]; !ok {
		t.Fatalf("expected eth0.nmconnection in output, got %v", files)
	}
	if _, ok := files["eth1.nmconnection"]; ok {
		t.Fatalf("removed interface should not be rendered: %v", files)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly 1 rendered file, got %d", len(files))
	}
}

type fakeBackendQuerier struct {
	profiles []*nmstate.Interface
}

func (f *fakeBackendQuerier) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) {
	return f.profiles, nil
}
func (f *fakeBackendQuerier) DNS(ctx context.Context) (*nmstate.DNSConfig, error) { return nil, nil }
func (f *fakeBackendQuerier) Hostname(ctx context.Context) (string, error)        { return "", nil }
func (f *fakeBackendQuerier) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	return nmstate.OvsDBGlobalConfig{}, nil
}

type fakeDeleter struct {
	deleted []string
}

func (f *fakeDeleter) DeleteProfile(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func TestDeleteOrphanRemovesPortOfRemovedBridge(t *testing.T) {
	controller := "br0"
	merged := &merge.MergedNetworkState{Interfaces: map[nmstate.IfaceKey]merge.InterfaceChange{
		{Namespace: nmstate.NamespaceKernel, Name: "br0"}: {Kind: merge.Removed},
	}}
	querier := &fakeBackendQuerier{profiles: []*nmstate.Interface{
		{Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, Controller: &controller}},
	}}
	deleter := &fakeDeleter{}

	if err := DeleteOrphan(context.Background(), merged, querier, deleter); err != nil {
		t.Fatalf("DeleteOrphan: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "eth0" {
		t.Fatalf("expected eth0 deleted, got %v", deleter.deleted)
	}
}

func TestDeleteOrphanSkipsNamedInterfaces(t *testing.T) {
	merged := &merge.MergedNetworkState{Interfaces: map[nmstate.IfaceKey]merge.InterfaceChange{
		{Namespace: nmstate.NamespaceKernel, Name: "br0"}: {Kind: merge.Removed},
		{Namespace: nmstate.NamespaceKernel, Name: "eth0"}: {
			Kind:  merge.Unchanged,
			Iface: &nmstate.Interface{Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet}},
		},
	}}
	controller := "br0"
	querier := &fakeBackendQuerier{profiles: []*nmstate.Interface{
		{Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, Controller: &controller}},
	}}
	deleter := &fakeDeleter{}

	if err := DeleteOrphan(context.Background(), merged, querier, deleter); err != nil {
		t.Fatalf("DeleteOrphan: %v", err)
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("interface named in merged result should not be deleted, got %v", deleter.deleted)
	}
}

type fakeOvsdbClient struct {
	ops []ovsdb.Operation
}

func (c *fakeOvsdbClient) Transact(ctx context.Context, operations ...ovsdb.Operation) ([]ovsdb.OperationResult, error) {
	c.ops = append(c.ops, operations...)
	results := make([]ovsdb.OperationResult, len(operations))
	return results, nil
}

func TestCombinedApplierRoutesByNamespace(t *testing.T) {
	ovsClient := &fakeOvsdbClient{}
	ovsApplier := NewOvsDBApplier(ovsClient)
	combined := NewCombinedApplier(nil, ovsApplier)

	bridge := &nmstate.Interface{
		Base:      nmstate.BaseInterface{Name: "ovsbr0", Kind: nmstate.KindOvsBridge},
		OvsBridge: &nmstate.OvsBridgeConfig{PortConfigs: []nmstate.OvsBridgePort{{Name: "eth0"}}},
	}
	if err := combined.SaveProfile(context.Background(), bridge); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if len(ovsClient.ops) == 0 {
		t.Fatalf("expected ovsdb transaction for ovs-bridge SaveProfile")
	}

	key := bridge.Key()
	if key.Namespace != nmstate.NamespaceUser {
		t.Fatalf("expected ovs-bridge key to be in the user namespace, got %v", key.Namespace)
	}
	if err := combined.Remove(context.Background(), key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestCombinedApplierRejectsOvsOpsWithoutBackend(t *testing.T) {
	combined := NewCombinedApplier(nil, nil)
	if err := combined.ApplyOvsDB(context.Background(), nmstate.OvsDBGlobalConfig{}); err == nil {
		t.Fatalf("expected error when no ovsdb backend is configured")
	}
}
