package merge

import (
	"reflect"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Sanitize clears fields that are observed-only (kernel-reported, never a
// valid apply-time input) so comparisons and re-serialization don't treat
// them as a changed value the user must supply, per spec.md §4.1.
func Sanitize(iface *nmstate.Interface) *nmstate.Interface {
	if iface == nil {
		return nil
	}
	out := *iface
	out.Base.MinMTU = nil
	out.Base.MaxMTU = nil
	if out.Base.LLDP != nil {
		lldp := *out.Base.LLDP
		lldp.Neighbors = nil
		out.Base.LLDP = &lldp
	}
	if out.Base.IPv4 != nil {
		v4 := *out.Base.IPv4
		v4.DHCPObservedAddresses = nil
		out.Base.IPv4 = &v4
	}
	if out.Base.IPv6 != nil {
		v6 := *out.Base.IPv6
		v6.DHCPObservedAddresses = nil
		out.Base.IPv6 = &v6
	}
	if out.Hsr != nil {
		hsr := *out.Hsr
		hsr.SupervisionAddress = nil
		out.Hsr = &hsr
	}
	if out.Ethernet != nil && out.Ethernet.SrIov != nil {
		sriov := *out.Ethernet.SrIov
		ethernet := *out.Ethernet
		ethernet.SrIov = &sriov
		out.Ethernet = &ethernet
	}
	return &out
}

// interfaceEqual reports whether two interfaces are identical once
// observed-only fields are sanitized away.
func interfaceEqual(a, b *nmstate.Interface) bool {
	return reflect.DeepEqual(Sanitize(a), Sanitize(b))
}
