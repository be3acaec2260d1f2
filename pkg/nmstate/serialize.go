package nmstate

import (
	"net"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Serialize renders a NetworkState back to YAML, emitting only the
// top-level sections recorded as Present, so a parse→serialize round trip
// never introduces fields the original document lacked (spec.md §9).
func Serialize(s *NetworkState) ([]byte, error) {
	return yaml.Marshal(toDocument(s))
}

func toDocument(s *NetworkState) map[string]any {
	doc := map[string]any{}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if s.Present.Has(FieldInterfaces) {
		ifaces := make([]any, 0, len(s.Interfaces))
		keys := make([]IfaceKey, 0, len(s.Interfaces))
		for k := range s.Interfaces {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
		for _, k := range keys {
			ifaces = append(ifaces, interfaceToDocument(s.Interfaces[k]))
		}
		doc["interfaces"] = ifaces
	}
	if s.Present.Has(FieldRoutes) {
		routes := make([]any, 0, len(s.Routes))
		for _, r := range s.Routes {
			routes = append(routes, routeToDocument(r))
		}
		doc["routes"] = map[string]any{"config": routes}
	}
	if s.Present.Has(FieldRouteRules) {
		rules := make([]any, 0, len(s.RouteRules))
		for _, r := range s.RouteRules {
			rules = append(rules, routeRuleToDocument(r))
		}
		doc["route-rules"] = map[string]any{"config": rules}
	}
	if s.Present.Has(FieldDNS) && s.DNS.Desired != nil {
		doc["dns-resolver"] = map[string]any{"config": map[string]any{
			"server": s.DNS.Desired.Server,
			"search": s.DNS.Desired.Search,
		}}
	}
	if s.Present.Has(FieldOvsDB) {
		doc["ovs-db"] = map[string]any{
			"external_ids": s.OvsDB.ExternalIDs,
			"other_config": s.OvsDB.OtherConfig,
		}
	}
	if s.Present.Has(FieldOvn) {
		mappings := make([]any, 0, len(s.Ovn.BridgeMappings))
		for _, bm := range s.Ovn.BridgeMappings {
			mappings = append(mappings, map[string]any{
				"localnet": bm.Localnet,
				"bridge":   bm.Bridge,
				"state":    string(bm.State),
			})
		}
		doc["ovn"] = map[string]any{"bridge-mappings": mappings}
	}
	if s.Present.Has(FieldCapture) {
		capture := make(map[string]any, len(s.Capture))
		for k, v := range s.Capture {
			capture[k] = v
		}
		doc["capture"] = capture
	}
	if s.Present.Has(FieldHostname) {
		hn := map[string]any{}
		if s.Hostname.Config != nil {
			hn["config"] = *s.Hostname.Config
		}
		doc["hostname"] = hn
	}
	return doc
}

func routeToDocument(r Route) map[string]any {
	m := map[string]any{
		"destination":        r.Destination,
		"next-hop-interface": r.NextHopInterface,
		"table-id":           r.TableID,
		"metric":             r.Metric,
	}
	if r.NextHopAddress != "" {
		m["next-hop-address"] = r.NextHopAddress
	}
	if r.State != "" {
		m["state"] = string(r.State)
	}
	return m
}

func routeRuleToDocument(r RouteRule) map[string]any {
	m := map[string]any{
		"priority":    r.Priority,
		"route-table": r.TableID,
	}
	if r.IPFrom != "" {
		m["ip-from"] = r.IPFrom
	}
	if r.IPTo != "" {
		m["ip-to"] = r.IPTo
	}
	if r.State != "" {
		m["state"] = string(r.State)
	}
	return m
}

func interfaceToDocument(i *Interface) map[string]any {
	m := map[string]any{
		"name":  i.Base.Name,
		"type":  string(i.Base.Kind),
		"state": string(i.Base.State),
	}
	if i.Base.Description != nil {
		m["description"] = *i.Base.Description
	}
	if i.Base.MTU != nil {
		m["mtu"] = *i.Base.MTU
	}
	if i.Base.MacAddress != nil {
		m["mac-address"] = *i.Base.MacAddress
	}
	if i.Base.Controller != nil {
		m["controller"] = *i.Base.Controller
	}
	if i.Base.Ports != nil {
		m["ports"] = *i.Base.Ports
	}
	if i.Base.CopyMacFrom != nil {
		m["copy-mac-from"] = *i.Base.CopyMacFrom
	}
	if i.Base.AcceptAllMacAddresses != nil {
		m["accept-all-mac-addresses"] = *i.Base.AcceptAllMacAddresses
	}
	if i.Base.WaitIP != WaitIPAny {
		m["wait-ip"] = string(i.Base.WaitIP)
	}
	if i.Base.IPv4 != nil {
		m["ipv4"] = ipStackToDocument(i.Base.IPv4)
	}
	if i.Base.IPv6 != nil {
		m["ipv6"] = ipStackToDocument(i.Base.IPv6)
	}
	kindConfigToDocument(i, m)
	for k, v := range i.Unknown {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}

func ipStackToDocument(s *IPStack) map[string]any {
	m := map[string]any{}
	if s.Enabled != nil {
		m["enabled"] = *s.Enabled
	}
	if s.Dhcp != nil {
		m["dhcp"] = *s.Dhcp
	}
	if s.Autoconf != nil {
		m["autoconf"] = *s.Autoconf
	}
	if s.Auto != nil {
		m["auto"] = *s.Auto
	}
	if s.AllowExtraAddressSearch != nil {
		m["allow-extra-address-search"] = *s.AllowExtraAddressSearch
	}
	if s.Addresses != nil {
		addrs := make([]any, 0, len(*s.Addresses))
		for _, a := range *s.Addresses {
			am := map[string]any{
				"ip":            net.IP(a.IP).String(),
				"prefix-length": a.PrefixLen,
			}
			addrs = append(addrs, am)
		}
		m["address"] = addrs
	}
	return m
}

func kindConfigToDocument(i *Interface, m map[string]any) {
	switch i.Base.Kind {
	case KindVlan:
		if i.Vlan != nil {
			m["vlan"] = map[string]any{
				"id":         i.Vlan.ID,
				"base-iface": i.Vlan.BaseIface,
				"protocol":   i.Vlan.Protocol,
			}
		}
	case KindVxLan:
		if i.VxLan != nil {
			vm := map[string]any{
				"id":         i.VxLan.ID,
				"base-iface": i.VxLan.BaseIface,
			}
			if i.VxLan.Remote != nil {
				vm["remote"] = *i.VxLan.Remote
			}
			if i.VxLan.DestinationPort != nil {
				vm["destination-port"] = *i.VxLan.DestinationPort
			}
			m["vxlan"] = vm
		}
	case KindLinuxBridge, KindOvsBridge:
		if ports, ok := i.Ports(); ok {
			portDocs := make([]any, 0, len(ports))
			for _, p := range ports {
				portDocs = append(portDocs, map[string]any{"name": p})
			}
			m["bridge"] = map[string]any{"port": portDocs}
		}
	case KindBond:
		if i.Bond != nil {
			m["link-aggregation"] = map[string]any{
				"mode":    i.Bond.Mode,
				"port":    i.Bond.Port,
				"options": i.Bond.Options,
			}
		}
	case KindVrf:
		if i.Vrf != nil {
			m["vrf"] = map[string]any{
				"port":           i.Vrf.Port,
				"route-table-id": i.Vrf.RouteTableID,
			}
		}
	case KindMacVlan:
		if i.MacVlan != nil {
			m["mac-vlan"] = map[string]any{
				"base-iface": i.MacVlan.BaseIface,
				"mode":       i.MacVlan.Mode,
			}
		}
	case KindMacVtap:
		if i.MacVtap != nil {
			m["mac-vtap"] = map[string]any{
				"base-iface": i.MacVtap.BaseIface,
				"mode":       i.MacVtap.Mode,
			}
		}
	case KindXfrm:
		if i.Xfrm != nil {
			m["xfrm"] = map[string]any{
				"base-iface": i.Xfrm.BaseIface,
				"if-id":      strconv.Itoa(i.Xfrm.IfID),
			}
		}
	}
}
