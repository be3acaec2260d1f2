package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/query"
)

// mutableKernel is a KernelQuerier backed by a map the test mutates through
// fakeApplier, so Apply's settle-poll loop observes the effect of its own
// writes -- the same "fake collaborator with in-memory state" shape as
// pkg/query's FakeKernelQuerier, extended to be write-observable.
type mutableKernel struct {
	ifaces map[string]*nmstate.Interface
}

func newMutableKernel() *mutableKernel {
	return &mutableKernel{ifaces: make(map[string]*nmstate.Interface)}
}

func (k *mutableKernel) ListInterfaces(ctx context.Context) ([]*nmstate.Interface, error) {
	var out []*nmstate.Interface
	for _, iface := range k.ifaces {
		cp := *iface
		out = append(out, &cp)
	}
	return out, nil
}

func (k *mutableKernel) ListRoutes(ctx context.Context) ([]nmstate.Route, error) { return nil, nil }
func (k *mutableKernel) ListRouteRules(ctx context.Context) ([]nmstate.RouteRule, error) {
	return nil, nil
}

type emptyBackend struct{}

func (emptyBackend) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) { return nil, nil }
func (emptyBackend) DNS(ctx context.Context) (*nmstate.DNSConfig, error)             { return nil, nil }
func (emptyBackend) Hostname(ctx context.Context) (string, error)                   { return "", nil }
func (emptyBackend) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	return nmstate.OvsDBGlobalConfig{}, nil
}

// fakeApplier applies profile writes directly onto a mutableKernel, as if
// it were the live kernel, and optionally corrupts a field post-apply to
// simulate a backend that silently rounds or drops a setting (scenario S6).
type fakeApplier struct {
	kernel      *mutableKernel
	corruptMTU  *int
	removeCalls []nmstate.IfaceKey
	deleteCalls []string
}

func (a *fakeApplier) SaveProfile(ctx context.Context, iface *nmstate.Interface) error {
	cp := *iface
	if a.corruptMTU != nil && cp.Base.MTU != nil {
		corrupted := *a.corruptMTU
		cp.Base.MTU = &corrupted
	}
	a.kernel.ifaces[iface.Base.Name] = &cp
	return nil
}

func (a *fakeApplier) Activate(ctx context.Context, key nmstate.IfaceKey) error {
	if iface, ok := a.kernel.ifaces[key.Name]; ok {
		iface.Base.State = nmstate.StateUp
	}
	return nil
}

func (a *fakeApplier) Reactivate(ctx context.Context, key nmstate.IfaceKey) error {
	return a.Activate(ctx, key)
}

func (a *fakeApplier) Deactivate(ctx context.Context, key nmstate.IfaceKey) error {
	if iface, ok := a.kernel.ifaces[key.Name]; ok {
		iface.Base.State = nmstate.StateDown
	}
	return nil
}

func (a *fakeApplier) Remove(ctx context.Context, key nmstate.IfaceKey) error {
	a.removeCalls = append(a.removeCalls, key)
	delete(a.kernel.ifaces, key.Name)
	return nil
}

func (a *fakeApplier) ApplyRoutes(ctx context.Context, changes []merge.RouteChange) error { return nil }
func (a *fakeApplier) ApplyRouteRules(ctx context.Context, changes []merge.RouteRuleChange) error {
	return nil
}
func (a *fakeApplier) ApplyDNS(ctx context.Context, dns *nmstate.DNSConfig) error          { return nil }
func (a *fakeApplier) ApplyHostname(ctx context.Context, hostname *string) error           { return nil }
func (a *fakeApplier) ApplyOvsDB(ctx context.Context, cfg nmstate.OvsDBGlobalConfig) error { return nil }
func (a *fakeApplier) ApplyOvn(ctx context.Context, cfg nmstate.OvnConfig) error           { return nil }

func (a *fakeApplier) DeleteProfile(ctx context.Context, name string) error {
	a.deleteCalls = append(a.deleteCalls, name)
	return nil
}

func intPtr(n int) *int { return &n }

func newTestDriver(kernel *mutableKernel, applier *fakeApplier) *Driver {
	q := query.New(kernel, emptyBackend{})
	d := NewDriver(applier, q)
	d.Opts = Options{
		CheckpointTimeout: 60 * time.Second,
		SettleTimeout:     100 * time.Millisecond,
		SettlePoll:        5 * time.Millisecond,
	}
	return d
}

func ethernetDesired(name string, mtu int) *nmstate.NetworkState {
	s := nmstate.NewNetworkState()
	s.Present[nmstate.FieldInterfaces] = true
	s.Interfaces[nmstate.IfaceKey{Namespace: nmstate.NamespaceKernel, Name: name}] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: name, Kind: nmstate.KindEthernet, State: nmstate.StateUp, MTU: intPtr(mtu)},
	}
	return s
}

func TestApplyCommitsOnSuccess(t *testing.T) {
	kernel := newMutableKernel()
	applier := &fakeApplier{kernel: kernel}
	d := newTestDriver(kernel, applier)

	cp, err := d.Apply(context.Background(), ethernetDesired("eth0", 1500))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cp.Status != StatusCommitted {
		t.Fatalf("Status = %v, want committed", cp.Status)
	}
	if iface, ok := kernel.ifaces["eth0"]; !ok || *iface.Base.MTU != 1500 {
		t.Fatalf("eth0 not applied with mtu 1500: %+v", kernel.ifaces["eth0"])
	}
}

// TestScenarioS6VerificationFailureRollsBack mirrors spec.md §8 S6: the
// backend silently applies mtu=1400 instead of the desired 1500; Apply must
// surface a VerificationError and leave the interface exactly as it was
// before the attempt (absent, here).
func TestScenarioS6VerificationFailureRollsBack(t *testing.T) {
	kernel := newMutableKernel()
	applier := &fakeApplier{kernel: kernel, corruptMTU: intPtr(1400)}
	d := newTestDriver(kernel, applier)

	cp, err := d.Apply(context.Background(), ethernetDesired("eth0", 1500))
	if err == nil {
		t.Fatal("expected a verification error")
	}
	if kind, ok := nmerr.KindOf(err); !ok || kind != nmerr.VerificationError {
		t.Fatalf("KindOf(err) = %v, %v, want VerificationError", kind, ok)
	}
	if cp.Status != StatusRolledBack {
		t.Fatalf("Status = %v, want rolled_back", cp.Status)
	}
	if _, ok := kernel.ifaces["eth0"]; ok {
		t.Fatalf("eth0 should have been removed by rollback, found: %+v", kernel.ifaces["eth0"])
	}
}

// fakeProfileBackend is a query.BackendQuerier whose ListProfiles returns a
// fixed set, used to exercise the delete_orphan sweep through Driver.
type fakeProfileBackend struct {
	profiles []*nmstate.Interface
}

func (f *fakeProfileBackend) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) {
	return f.profiles, nil
}
func (f *fakeProfileBackend) DNS(ctx context.Context) (*nmstate.DNSConfig, error) { return nil, nil }
func (f *fakeProfileBackend) Hostname(ctx context.Context) (string, error)        { return "", nil }
func (f *fakeProfileBackend) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	return nmstate.OvsDBGlobalConfig{}, nil
}

// TestApplyMergedSweepsOrphanedProfiles covers the review finding that
// DeleteOrphan was wired only to its own package's tests: a bridge being
// Removed from this apply must trigger a delete_orphan sweep that removes a
// still-saved port profile no longer named in the merged plan.
func TestApplyMergedSweepsOrphanedProfiles(t *testing.T) {
	kernel := newMutableKernel()
	kernel.ifaces["br0"] = &nmstate.Interface{
		Base: nmstate.BaseInterface{Name: "br0", Kind: nmstate.KindLinuxBridge, State: nmstate.StateUp},
	}
	applier := &fakeApplier{kernel: kernel}

	controller := "br0"
	backend := &fakeProfileBackend{profiles: []*nmstate.Interface{
		{Base: nmstate.BaseInterface{Name: "eth1", Kind: nmstate.KindEthernet, Controller: &controller}},
	}}
	q := query.New(kernel, backend)
	d := NewDriver(applier, q)

	br0Key := nmstate.IfaceKey{Namespace: nmstate.NamespaceKernel, Name: "br0"}
	merged := &merge.MergedNetworkState{
		Interfaces: map[nmstate.IfaceKey]merge.InterfaceChange{
			br0Key: {Key: br0Key, Kind: merge.Removed},
		},
		Plan: []nmstate.IfaceKey{br0Key},
	}

	if err := d.applyMerged(context.Background(), merged); err != nil {
		t.Fatalf("applyMerged: %v", err)
	}
	if len(applier.deleteCalls) != 1 || applier.deleteCalls[0] != "eth1" {
		t.Fatalf("deleteCalls = %v, want [eth1]", applier.deleteCalls)
	}
}

func TestCheckpointRollbackIsIdempotent(t *testing.T) {
	kernel := newMutableKernel()
	applier := &fakeApplier{kernel: kernel}
	d := newTestDriver(kernel, applier)

	current, err := d.Querier.CurrentState(context.Background())
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	emptyRevert := nmstate.NewNetworkState()
	cp := newCheckpoint(nil, current, emptyRevert, d.Opts.CheckpointTimeout)
	d.store.put(cp)

	if err := d.CheckpointRollback(context.Background(), cp.ID); err != nil {
		t.Fatalf("first rollback: %v", err)
	}
	if err := d.CheckpointRollback(context.Background(), cp.ID); err != nil {
		t.Fatalf("second rollback should be a no-op, got: %v", err)
	}
}

func TestCheckpointCommitUnknownIDErrors(t *testing.T) {
	kernel := newMutableKernel()
	applier := &fakeApplier{kernel: kernel}
	d := newTestDriver(kernel, applier)

	err := d.CheckpointCommit("does-not-exist")
	if err == nil {
		t.Fatal("expected an error for an unknown checkpoint id")
	}
	if kind, ok := nmerr.KindOf(err); !ok || kind != nmerr.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, %v, want InvalidArgument", kind, ok)
	}
}
