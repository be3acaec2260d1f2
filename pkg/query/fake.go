package query

import (
	"context"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// FakeKernelQuerier is a canned KernelQuerier for tests, grounded on the
// teacher's newtest-style fake-collaborator pattern (inject canned results
// instead of touching real infrastructure).
type FakeKernelQuerier struct {
	Interfaces []*nmstate.Interface
	Routes     []nmstate.Route
	RouteRules []nmstate.RouteRule
	Err        error
}

func (f *FakeKernelQuerier) ListInterfaces(ctx context.Context) ([]*nmstate.Interface, error) {
	return f.Interfaces, f.Err
}

func (f *FakeKernelQuerier) ListRoutes(ctx context.Context) ([]nmstate.Route, error) {
	return f.Routes, f.Err
}

func (f *FakeKernelQuerier) ListRouteRules(ctx context.Context) ([]nmstate.RouteRule, error) {
	return f.RouteRules, f.Err
}

// FakeBackendQuerier is a canned BackendQuerier for tests.
type FakeBackendQuerier struct {
	Profiles       []*nmstate.Interface
	DNSConfig      *nmstate.DNSConfig
	HostnameValue  string
	OvsDBGlobalCfg nmstate.OvsDBGlobalConfig
	Err            error
}

func (f *FakeBackendQuerier) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) {
	return f.Profiles, f.Err
}

func (f *FakeBackendQuerier) DNS(ctx context.Context) (*nmstate.DNSConfig, error) {
	return f.DNSConfig, f.Err
}

func (f *FakeBackendQuerier) Hostname(ctx context.Context) (string, error) {
	return f.HostnameValue, f.Err
}

func (f *FakeBackendQuerier) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	return f.OvsDBGlobalCfg, f.Err
}
