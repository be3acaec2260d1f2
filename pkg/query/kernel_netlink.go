package query

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// NetlinkKernelQuerier is the real KernelQuerier, backed by
// github.com/vishvananda/netlink — the same library
// openshift-ovs-cni's CNI plugin uses for link/address/route inspection.
type NetlinkKernelQuerier struct{}

// NewNetlinkKernelQuerier returns a KernelQuerier that talks to the host's
// network namespace via netlink.
func NewNetlinkKernelQuerier() *NetlinkKernelQuerier {
	return &NetlinkKernelQuerier{}
}

// ListInterfaces enumerates every kernel link and converts it into the
// typed Interface model, including observed IPv4/IPv6 addresses.
func (k *NetlinkKernelQuerier) ListInterfaces(ctx context.Context) ([]*nmstate.Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", fmt.Errorf("listing links: %w", err))
	}

	ifaces := make([]*nmstate.Interface, 0, len(links))
	for _, link := range links {
		iface, err := linkToInterface(link)
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

func linkToInterface(link netlink.Link) (*nmstate.Interface, error) {
	attrs := link.Attrs()
	iface := &nmstate.Interface{
		Base: nmstate.BaseInterface{
			Name: attrs.Name,
			Kind: kindOfLink(link),
		},
	}
	if attrs.OperState == netlink.OperUp || attrs.Flags&net.FlagUp != 0 {
		iface.Base.State = nmstate.StateUp
	} else {
		iface.Base.State = nmstate.StateDown
	}
	mtu := attrs.MTU
	iface.Base.MTU = &mtu
	if attrs.HardwareAddr != nil {
		mac := attrs.HardwareAddr.String()
		iface.Base.MacAddress = &mac
	}
	if attrs.MasterIndex > 0 {
		if master, err := netlink.LinkByIndex(attrs.MasterIndex); err == nil {
			name := master.Attrs().Name
			iface.Base.Controller = &name
		}
	}

	v4, err := addressesForFamily(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}
	v6, err := addressesForFamily(link, netlink.FAMILY_V6)
	if err != nil {
		return nil, err
	}
	iface.Base.IPv4 = &nmstate.IPStack{Addresses: &v4}
	iface.Base.IPv6 = &nmstate.IPStack{Addresses: &v6}

	switch t := link.(type) {
	case *netlink.Vlan:
		if parent, err := netlink.LinkByIndex(t.ParentIndex); err == nil {
			iface.Vlan = &nmstate.VlanConfig{ID: t.VlanId, BaseIface: parent.Attrs().Name, Protocol: "802.1q"}
		}
	case *netlink.Vxlan:
		remote := ""
		if t.Group != nil {
			remote = t.Group.String()
		}
		iface.VxLan = &nmstate.VxLanConfig{ID: t.VxlanId, Remote: &remote, DestinationPort: &t.Port}
	case *netlink.Bridge:
		ports, err := portsOfBridge(attrs.Index)
		if err != nil {
			return nil, err
		}
		iface.LinuxBridge = &nmstate.LinuxBridgeConfig{}
		for _, p := range ports {
			iface.LinuxBridge.PortConfigs = append(iface.LinuxBridge.PortConfigs, nmstate.LinuxBridgePort{Name: p})
		}
	case *netlink.Bond:
		ports, err := portsOfBridge(attrs.Index)
		if err != nil {
			return nil, err
		}
		iface.Bond = &nmstate.BondConfig{Mode: t.Mode.String(), Port: ports}
	case *netlink.Vrf:
		ports, err := portsOfBridge(attrs.Index)
		if err != nil {
			return nil, err
		}
		iface.Vrf = &nmstate.VrfConfig{Port: ports, RouteTableID: int(t.Table)}
	case *netlink.Veth:
		iface.Veth = &nmstate.VethConfig{}
	case *netlink.Dummy:
		iface.Dummy = &nmstate.DummyConfig{}
	}
	if attrs.Name == "lo" {
		iface.Loopback = &nmstate.LoopbackConfig{}
		iface.Base.Kind = nmstate.KindLoopback
	}

	return iface, nil
}

func kindOfLink(link netlink.Link) nmstate.InterfaceKind {
	switch link.(type) {
	case *netlink.Vlan:
		return nmstate.KindVlan
	case *netlink.Vxlan:
		return nmstate.KindVxLan
	case *netlink.Bridge:
		return nmstate.KindLinuxBridge
	case *netlink.Bond:
		return nmstate.KindBond
	case *netlink.Vrf:
		return nmstate.KindVrf
	case *netlink.Veth:
		return nmstate.KindVeth
	case *netlink.Dummy:
		return nmstate.KindDummy
	case *netlink.IPVlan:
		return nmstate.KindIpVlan
	case *netlink.Macvlan:
		return nmstate.KindMacVlan
	case *netlink.Macvtap:
		return nmstate.KindMacVtap
	case *netlink.Xfrmi:
		return nmstate.KindXfrm
	default:
		return nmstate.KindEthernet
	}
}

func portsOfBridge(masterIdx int) ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", err)
	}
	var ports []string
	for _, l := range links {
		if l.Attrs().MasterIndex == masterIdx {
			ports = append(ports, l.Attrs().Name)
		}
	}
	return ports, nil
}

func addressesForFamily(link netlink.Link, family int) ([]nmstate.IPAddress, error) {
	addrs, err := netlink.AddrList(link, family)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", fmt.Errorf("listing addresses for %s: %w", link.Attrs().Name, err))
	}
	out := make([]nmstate.IPAddress, 0, len(addrs))
	for _, a := range addrs {
		prefix, _ := a.Mask.Size()
		out = append(out, nmstate.IPAddress{
			Text:      a.IPNet.String(),
			IP:        a.IP,
			PrefixLen: prefix,
		})
	}
	return out, nil
}

// ListRoutes enumerates kernel routes across both address families.
func (k *NetlinkKernelQuerier) ListRoutes(ctx context.Context) ([]nmstate.Route, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", fmt.Errorf("listing routes: %w", err))
	}
	out := make([]nmstate.Route, 0, len(routes))
	for _, r := range routes {
		var dest string
		family := "ipv4"
		if r.Dst != nil {
			dest = r.Dst.String()
			if r.Dst.IP.To4() == nil {
				family = "ipv6"
			}
		} else {
			dest = "0.0.0.0/0"
		}
		nextHopIface := ""
		if r.LinkIndex > 0 {
			if link, err := netlink.LinkByIndex(r.LinkIndex); err == nil {
				nextHopIface = link.Attrs().Name
			}
		}
		nextHopAddr := ""
		if r.Gw != nil {
			nextHopAddr = r.Gw.String()
		}
		out = append(out, nmstate.Route{
			Destination:      dest,
			NextHopInterface: nextHopIface,
			NextHopAddress:   nextHopAddr,
			TableID:          r.Table,
			Metric:           r.Priority,
			State:            nmstate.StateUp,
			Family:           family,
		})
	}
	return out, nil
}

// ListRouteRules enumerates kernel policy-routing rules.
func (k *NetlinkKernelQuerier) ListRouteRules(ctx context.Context) ([]nmstate.RouteRule, error) {
	rules, err := netlink.RuleList(netlink.FAMILY_ALL)
	if err != nil {
		return nil, nmerr.Wrap(nmerr.DependencyError, "", fmt.Errorf("listing route rules: %w", err))
	}
	out := make([]nmstate.RouteRule, 0, len(rules))
	for _, r := range rules {
		ipFrom, ipTo := "", ""
		if r.Src != nil {
			ipFrom = r.Src.String()
		}
		if r.Dst != nil {
			ipTo = r.Dst.String()
		}
		out = append(out, nmstate.RouteRule{
			IPFrom:   ipFrom,
			IPTo:     ipTo,
			Priority: r.Priority,
			TableID:  r.Table,
			State:    nmstate.StateUp,
		})
	}
	return out, nil
}
