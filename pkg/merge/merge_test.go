package merge

import (
	"testing"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

func kernelKey(name string) nmstate.IfaceKey {
	return nmstate.IfaceKey{Namespace: nmstate.NamespaceKernel, Name: name}
}

func newState() *nmstate.NetworkState {
	return nmstate.NewNetworkState()
}

func boolPtr(b bool) *bool { return &b }

// TestScenarioS1 mirrors spec.md §8 S1: disabling ipv4 on an interface that
// currently has a static address clears the address block and is reported
// Changed.
func TestScenarioS1(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	addrs := []nmstate.IPAddress{{Text: "192.0.2.1/24", PrefixLen: 24}}
	current.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{
			Name: "eth0", Kind: nmstate.KindEthernet, State: nmstate.StateUp,
			IPv4: &nmstate.IPStack{Enabled: boolPtr(true), Addresses: &addrs},
		},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{
			Name: "eth0",
			IPv4: &nmstate.IPStack{Enabled: boolPtr(false)},
		},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	change := merged.Interfaces[kernelKey("eth0")]
	if change.Kind != Changed {
		t.Fatalf("expected eth0 to be Changed, got %v", change.Kind)
	}
	if change.Iface.Base.IPv4.Addresses != nil {
		t.Fatalf("expected addresses to be cleared, got %+v", change.Iface.Base.IPv4.Addresses)
	}
}

// TestScenarioS2 mirrors spec.md §8 S2: a bridge referencing a fresh port
// applies in order [eth1, br0], and eth1 ends up controlled by br0.
func TestScenarioS2(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base:        nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
		LinuxBridge: &nmstate.LinuxBridgeConfig{PortConfigs: []nmstate.LinuxBridgePort{{Name: "eth1"}}},
	}
	desired.Interfaces[kernelKey("eth1")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, State: nmstate.StateUp},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Plan) != 2 || merged.Plan[0].Name != "eth1" || merged.Plan[1].Name != "br0" {
		t.Fatalf("expected plan [eth1, br0], got %v", merged.Plan)
	}
	eth1 := merged.Interfaces[kernelKey("eth1")]
	if eth1.Iface.Base.Controller == nil || *eth1.Iface.Base.Controller != "br0" {
		t.Fatalf("expected eth1.controller == br0, got %v", eth1.Iface.Base.Controller)
	}
}

// TestScenarioS4 mirrors spec.md §8 S4: a vlan referencing a base-iface
// absent from both current and desired state fails with DependencyError.
func TestScenarioS4(t *testing.T) {
	current := newState()
	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("vlan101")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "vlan101", Kind: nmstate.KindVlan, State: nmstate.StateUp},
		Vlan: &nmstate.VlanConfig{ID: 101, BaseIface: "eth1", Protocol: "802.1q"},
	}

	_, err := Merge(desired, current)
	if err == nil {
		t.Fatal("expected a DependencyError for a missing base-iface")
	}
	if kind, ok := nmerr.KindOf(err); !ok || kind != nmerr.DependencyError {
		t.Fatalf("expected DependencyError, got %v (ok=%v)", kind, ok)
	}
}

// TestIdempotence covers spec.md §8 invariant 1: merging a document against
// the state it already produced yields an all-Unchanged plan.
func TestIdempotence(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	mtu := 1500
	current.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, State: nmstate.StateUp, MTU: &mtu},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, State: nmstate.StateUp, MTU: &mtu},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !merged.IsEmpty() {
		t.Fatalf("expected an idempotent merge to produce no changes, got %+v", merged.Interfaces)
	}
}

// TestMergeMonotonicity covers spec.md §8 invariant 3: a field omitted from
// the document never changes the current value.
func TestMergeMonotonicity(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	mtu := 1500
	mac := "02:00:00:00:00:01"
	current.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth0", Kind: nmstate.KindEthernet, State: nmstate.StateUp, MTU: &mtu, MacAddress: &mac},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	newMTU := 9000
	desired.Interfaces[kernelKey("eth0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth0", MTU: &newMTU},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	change := merged.Interfaces[kernelKey("eth0")]
	if change.Iface.Base.MacAddress == nil || *change.Iface.Base.MacAddress != mac {
		t.Fatalf("expected mac-address to be preserved from current, got %v", change.Iface.Base.MacAddress)
	}
	if change.Iface.Base.MTU == nil || *change.Iface.Base.MTU != 9000 {
		t.Fatalf("expected mtu to take the desired value, got %v", change.Iface.Base.MTU)
	}
}

// TestRouteMetricOnlyChangeIsModifyNotReplace exercises the Open Question
// resolution: a metric-only edit on an otherwise identical route is a
// Changed route, not a remove+add pair.
func TestRouteMetricOnlyChangeIsModifyNotReplace(t *testing.T) {
	current := []nmstate.Route{
		{Destination: "0.0.0.0/0", NextHopInterface: "eth0", TableID: 254, Metric: 100, Family: "ipv4"},
	}
	desired := []nmstate.Route{
		{Destination: "0.0.0.0/0", NextHopInterface: "eth0", TableID: 254, Metric: 600, Family: "ipv4"},
	}
	changes := mergeRoutes(desired, current)
	if len(changes) != 1 || changes[0].Kind != Changed {
		t.Fatalf("expected a single Changed route, got %+v", changes)
	}
}

// TestAbsentContainerCascadesToSubordinates exercises spec.md §3's
// invariant: marking a container absent removes its ports too, even when
// they aren't independently mentioned in the desired document.
func TestAbsentContainerCascadesToSubordinates(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	controller := "br0"
	current.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base:        nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
		LinuxBridge: &nmstate.LinuxBridgeConfig{PortConfigs: []nmstate.LinuxBridgePort{{Name: "eth1"}}},
	}
	current.Interfaces[kernelKey("eth1")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, State: nmstate.StateUp, Controller: &controller},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "br0", State: nmstate.StateAbsent},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eth1 := merged.Interfaces[kernelKey("eth1")]
	if eth1.Kind != Removed {
		t.Fatalf("expected eth1 to cascade to Removed, got %v", eth1.Kind)
	}
}

// TestAbsentContainerDoesNotCascadeToRedefinedSubordinate checks the
// "unless independently redefined" half of the same invariant.
func TestAbsentContainerDoesNotCascadeToRedefinedSubordinate(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	controller := "br0"
	current.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base:        nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
		LinuxBridge: &nmstate.LinuxBridgeConfig{PortConfigs: []nmstate.LinuxBridgePort{{Name: "eth1"}}},
	}
	current.Interfaces[kernelKey("eth1")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, State: nmstate.StateUp, Controller: &controller},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "br0", State: nmstate.StateAbsent},
	}
	desired.Interfaces[kernelKey("eth1")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, State: nmstate.StateUp},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eth1 := merged.Interfaces[kernelKey("eth1")]
	if eth1.Kind == Removed {
		t.Fatal("expected independently redefined eth1 to survive, got Removed")
	}
}

// TestPortDroppedFromBridgeGetsControllerCleared exercises the other half
// of spec.md §4.3 step 3: a port/controller relation is bidirectional, so
// dropping a port from a still-present container's list must clear that
// port's Controller, not just leave the forward direction stamped.
func TestPortDroppedFromBridgeGetsControllerCleared(t *testing.T) {
	current := newState()
	current.Present[nmstate.FieldInterfaces] = true
	controller := "br0"
	current.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
		LinuxBridge: &nmstate.LinuxBridgeConfig{PortConfigs: []nmstate.LinuxBridgePort{
			{Name: "eth1"}, {Name: "eth2"},
		}},
	}
	current.Interfaces[kernelKey("eth1")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, State: nmstate.StateUp, Controller: &controller},
	}
	current.Interfaces[kernelKey("eth2")] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "eth2", Kind: nmstate.KindEthernet, State: nmstate.StateUp, Controller: &controller},
	}

	desired := newState()
	desired.Present[nmstate.FieldInterfaces] = true
	desired.Interfaces[kernelKey("br0")] = &nmstate.Interface{
		Base:        nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
		LinuxBridge: &nmstate.LinuxBridgeConfig{PortConfigs: []nmstate.LinuxBridgePort{{Name: "eth1"}}},
	}

	merged, err := Merge(desired, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eth2 := merged.Interfaces[kernelKey("eth2")]
	if eth2.Kind != Changed {
		t.Fatalf("expected eth2 to be Changed after being dropped, got %v", eth2.Kind)
	}
	if eth2.Iface.Base.Controller != nil {
		t.Fatalf("expected eth2.controller to be cleared, got %v", *eth2.Iface.Base.Controller)
	}
	eth1 := merged.Interfaces[kernelKey("eth1")]
	if eth1.Iface.Base.Controller == nil || *eth1.Iface.Base.Controller != "br0" {
		t.Fatalf("expected eth1 to remain controlled by br0, got %v", eth1.Iface.Base.Controller)
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	merged := &MergedNetworkState{Interfaces: map[nmstate.IfaceKey]InterfaceChange{}}
	a := kernelKey("a")
	b := kernelKey("b")
	controllerB := "b"
	controllerA := "a"
	merged.Interfaces[a] = InterfaceChange{Key: a, Kind: Added, Iface: &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "a", Kind: nmstate.KindLinuxBridge, Controller: &controllerB},
	}}
	merged.Interfaces[b] = InterfaceChange{Key: b, Kind: Added, Iface: &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "b", Kind: nmstate.KindLinuxBridge, Controller: &controllerA},
	}}
	if _, err := order(merged); err == nil {
		t.Fatal("expected a cycle error")
	}
}
