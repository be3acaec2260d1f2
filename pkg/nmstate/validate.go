package nmstate

import (
	"github.com/nmstate-go/nmstate/pkg/nmerr"
)

// Validate checks the structural invariants spec.md §3/§4.2 require before a
// state is handed to query/merge: VLAN id range, MTU range, and that
// container/parent references at least look well-formed at parse time (full
// existence checks happen during merge, once current state is known).
func Validate(s *NetworkState) error {
	for key, iface := range s.Interfaces {
		path := "interfaces." + key.Name
		if iface.Base.Name == "" {
			return nmerr.New(nmerr.InvalidArgument, path, "interface name must not be empty")
		}
		if iface.Base.MTU != nil {
			if *iface.Base.MTU < minMTU || *iface.Base.MTU > maxMTU {
				return nmerr.New(nmerr.InvalidArgument, path+".mtu", "mtu %d out of range [%d,%d]", *iface.Base.MTU, minMTU, maxMTU)
			}
		}
		if iface.Vlan != nil {
			if iface.Vlan.ID < minVlanID || iface.Vlan.ID > maxVlanID {
				return nmerr.New(nmerr.InvalidArgument, path+".vlan.id", "vlan id %d out of range [%d,%d]", iface.Vlan.ID, minVlanID, maxVlanID)
			}
			if iface.Vlan.BaseIface == "" {
				return nmerr.New(nmerr.InvalidArgument, path+".vlan.base-iface", "vlan requires a base-iface")
			}
		}
		if iface.VxLan != nil && iface.VxLan.ID < 0 {
			return nmerr.New(nmerr.InvalidArgument, path+".vxlan.id", "vxlan id must not be negative")
		}
		if iface.Base.IPv4 != nil {
			if err := validateIPStack(iface.Base.IPv4, path+".ipv4"); err != nil {
				return err
			}
		}
		if iface.Base.IPv6 != nil {
			if err := validateIPStack(iface.Base.IPv6, path+".ipv6"); err != nil {
				return err
			}
		}
		if iface.MacSec != nil && iface.MacSec.BaseIface == "" {
			return nmerr.New(nmerr.InvalidArgument, path+".macsec.base-iface", "macsec requires a base-iface")
		}
	}

	for idx, route := range s.Routes {
		if route.Destination == "" && route.State != StateAbsent {
			return nmerr.New(nmerr.InvalidArgument, "routes.config", "route[%d] missing destination", idx)
		}
	}

	for idx, rule := range s.RouteRules {
		if rule.IPFrom == "" && rule.IPTo == "" {
			return nmerr.New(nmerr.InvalidArgument, "route-rules.config", "rule[%d] requires ip-from or ip-to", idx)
		}
	}

	return nil
}

// validateIPStack enforces the mutual-exclusivity rules between a disabled
// stack, a dynamic stack, and static addresses (spec.md §3).
func validateIPStack(s *IPStack, path string) error {
	if s.IsDisabled() && s.Addresses != nil && len(*s.Addresses) > 0 {
		return nmerr.New(nmerr.InvalidArgument, path, "addresses set on a disabled stack")
	}
	if s.IsDynamic() && s.Addresses != nil && len(*s.Addresses) > 0 {
		allow := s.AllowExtraAddressSearch != nil && *s.AllowExtraAddressSearch
		if !allow {
			return nmerr.New(nmerr.InvalidArgument, path, "static addresses require allow-extra-address-search on a dynamic stack")
		}
	}
	for idx, addr := range orEmpty(s.Addresses) {
		if addr.PrefixLen < 0 {
			return nmerr.New(nmerr.InvalidArgument, path, "address[%d] has a negative prefix length", idx)
		}
	}
	return nil
}

func orEmpty(s *[]IPAddress) []IPAddress {
	if s == nil {
		return nil
	}
	return *s
}
