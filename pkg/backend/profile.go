// Package backend implements C7: translating a merged nmstate plan into
// connection-manager profile operations and OVS database operations, plus
// the offline gen_conf/delete_orphan helpers.
package backend

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/nmstate-go/nmstate/pkg/nmstate"
)

// Profile is a connection-manager profile in the same section/key/value
// shape NetworkManager keyfile profiles use, mirroring the table/key/field
// shape the teacher's CONFIG_DB code works with but one level shallower
// (section -> key -> value rather than table -> key -> fields).
type Profile struct {
	Name     string
	Sections map[string]map[string]string
}

func newProfile(name string) *Profile {
	return &Profile{Name: name, Sections: make(map[string]map[string]string)}
}

func (p *Profile) set(section, key, value string) {
	if p.Sections[section] == nil {
		p.Sections[section] = make(map[string]string)
	}
	p.Sections[section][key] = value
}

func (p *Profile) get(section, key string) (string, bool) {
	s, ok := p.Sections[section]
	if !ok {
		return "", false
	}
	v, ok := s[key]
	return v, ok
}

// ToProfile renders iface into its connection-manager profile form. Field
// renames and enum translations are mechanical, per spec.md §4.7.
func ToProfile(iface *nmstate.Interface) (*Profile, error) {
	p := newProfile(iface.Base.Name)
	p.set("connection", "id", iface.Base.Name)
	p.set("connection", "interface-name", iface.Base.Name)
	p.set("connection", "type", connectionType(iface.Base.Kind))

	if iface.Base.MTU != nil {
		p.set("ethernet", "mtu", strconv.Itoa(*iface.Base.MTU))
	}
	if iface.Base.MacAddress != nil {
		p.set("ethernet", "cloned-mac-address", *iface.Base.MacAddress)
	}
	if iface.Base.Controller != nil {
		p.set("connection", "master", *iface.Base.Controller)
		p.set("connection", "slave-type", "bridge")
	}

	ipStackToProfile(p, "ipv4", iface.Base.IPv4)
	ipStackToProfile(p, "ipv6", iface.Base.IPv6)

	switch iface.Base.Kind {
	case nmstate.KindVlan:
		if iface.Vlan == nil {
			return nil, fmt.Errorf("backend: vlan interface %q missing vlan config", iface.Base.Name)
		}
		p.set("vlan", "id", strconv.Itoa(iface.Vlan.ID))
		p.set("vlan", "parent", iface.Vlan.BaseIface)
	case nmstate.KindVxLan:
		if iface.VxLan == nil {
			return nil, fmt.Errorf("backend: vxlan interface %q missing vxlan config", iface.Base.Name)
		}
		p.set("vxlan", "id", strconv.Itoa(iface.VxLan.ID))
		p.set("vxlan", "parent", iface.VxLan.BaseIface)
		if iface.VxLan.Remote != nil {
			p.set("vxlan", "remote", *iface.VxLan.Remote)
		}
		if iface.VxLan.DestinationPort != nil {
			p.set("vxlan", "destination-port", strconv.Itoa(*iface.VxLan.DestinationPort))
		}
	case nmstate.KindLinuxBridge:
		if iface.LinuxBridge != nil {
			if iface.LinuxBridge.StpEnabled != nil {
				p.set("bridge", "stp", strconv.FormatBool(*iface.LinuxBridge.StpEnabled))
			}
			p.set("bridge", "ports", strings.Join(iface.LinuxBridge.PortNames(), ","))
		}
	case nmstate.KindBond:
		if iface.Bond != nil {
			p.set("bond", "mode", iface.Bond.Mode)
			ports := strings.Join(iface.Bond.Port, ",")
			p.set("bond", "ports", ports)
			for k, v := range iface.Bond.Options {
				p.set("bond", "option."+k, v)
			}
		}
	}

	return p, nil
}

// FromProfile reconstructs the nmstate interface a backend profile
// describes, the inverse of ToProfile, per spec.md §4.7.
func FromProfile(p *Profile) (*nmstate.Interface, error) {
	kind, err := kindFromConnectionType(mustGet(p, "connection", "type"))
	if err != nil {
		return nil, err
	}

	iface := &nmstate.Interface{Base: nmstate.BaseInterface{
		Name: p.Name,
		Kind: kind,
	}}

	if mtu, ok := p.get("ethernet", "mtu"); ok {
		n, err := strconv.Atoi(mtu)
		if err != nil {
			return nil, fmt.Errorf("backend: profile %q has non-numeric mtu %q: %w", p.Name, mtu, err)
		}
		iface.Base.MTU = &n
	}
	if mac, ok := p.get("ethernet", "cloned-mac-address"); ok {
		iface.Base.MacAddress = &mac
	}
	if master, ok := p.get("connection", "master"); ok {
		iface.Base.Controller = &master
	}

	iface.Base.IPv4 = ipStackFromProfile(p, "ipv4")
	iface.Base.IPv6 = ipStackFromProfile(p, "ipv6")

	switch kind {
	case nmstate.KindVlan:
		id, _ := strconv.Atoi(mustGet(p, "vlan", "id"))
		iface.Vlan = &nmstate.VlanConfig{ID: id, BaseIface: mustGet(p, "vlan", "parent")}
	case nmstate.KindVxLan:
		id, _ := strconv.Atoi(mustGet(p, "vxlan", "id"))
		vx := &nmstate.VxLanConfig{ID: id, BaseIface: mustGet(p, "vxlan", "parent")}
		if remote, ok := p.get("vxlan", "remote"); ok {
			vx.Remote = &remote
		}
		if port, ok := p.get("vxlan", "destination-port"); ok {
			n, _ := strconv.Atoi(port)
			vx.DestinationPort = &n
		}
		iface.VxLan = vx
	case nmstate.KindLinuxBridge:
		br := &nmstate.LinuxBridgeConfig{}
		if stp, ok := p.get("bridge", "stp"); ok {
			b := stp == "true"
			br.StpEnabled = &b
		}
		if ports, ok := p.get("bridge", "ports"); ok && ports != "" {
			for _, name := range strings.Split(ports, ",") {
				br.PortConfigs = append(br.PortConfigs, nmstate.LinuxBridgePort{Name: name})
			}
		}
		iface.LinuxBridge = br
	case nmstate.KindBond:
		bond := &nmstate.BondConfig{Mode: mustGet(p, "bond", "mode")}
		if ports, ok := p.get("bond", "ports"); ok && ports != "" {
			bond.Port = strings.Split(ports, ",")
		}
		bond.Options = make(map[string]string)
		for section, kv := range p.Sections {
			if section != "bond" {
				continue
			}
			for k, v := range kv {
				if strings.HasPrefix(k, "option.") {
					bond.Options[strings.TrimPrefix(k, "option.")] = v
				}
			}
		}
		iface.Bond = bond
	}

	return iface, nil
}

func ipStackToProfile(p *Profile, section string, stack *nmstate.IPStack) {
	if stack == nil {
		return
	}
	if stack.Enabled != nil {
		p.set(section, "enabled", strconv.FormatBool(*stack.Enabled))
	}
	if stack.Dhcp != nil {
		p.set(section, "method", methodName(*stack.Dhcp))
	}
	if stack.Addresses != nil {
		var addrs []string
		for _, a := range *stack.Addresses {
			addrs = append(addrs, fmt.Sprintf("%s/%d", net.IP(a.IP).String(), a.PrefixLen))
		}
		if len(addrs) > 0 {
			p.set(section, "addresses", strings.Join(addrs, ","))
		}
	}
}

func ipStackFromProfile(p *Profile, section string) *nmstate.IPStack {
	s, ok := p.Sections[section]
	if !ok {
		return nil
	}
	stack := &nmstate.IPStack{}
	if v, ok := s["enabled"]; ok {
		b := v == "true"
		stack.Enabled = &b
	}
	if v, ok := s["method"]; ok {
		b := v == "auto"
		stack.Dhcp = &b
	}
	if v, ok := s["addresses"]; ok && v != "" {
		var addrs []nmstate.IPAddress
		for _, text := range strings.Split(v, ",") {
			ip, prefix, err := net.ParseCIDR(text)
			if err != nil {
				continue
			}
			addrs = append(addrs, nmstate.IPAddress{Text: text, IP: ip.To16(), PrefixLen: prefixLen(prefix)})
		}
		stack.Addresses = &addrs
	}
	return stack
}

func prefixLen(n *net.IPNet) int {
	ones, _ := n.Mask.Size()
	return ones
}

func methodName(dhcp bool) string {
	if dhcp {
		return "auto"
	}
	return "manual"
}

func connectionType(kind nmstate.InterfaceKind) string {
	switch kind {
	case nmstate.KindEthernet:
		return "802-3-ethernet"
	case nmstate.KindVeth:
		return "veth"
	case nmstate.KindVlan:
		return "vlan"
	case nmstate.KindVxLan:
		return "vxlan"
	case nmstate.KindLinuxBridge:
		return "bridge"
	case nmstate.KindBond:
		return "bond"
	case nmstate.KindDummy:
		return "dummy"
	case nmstate.KindLoopback:
		return "loopback"
	case nmstate.KindMacVlan:
		return "macvlan"
	case nmstate.KindMacVtap:
		return "macvtap"
	case nmstate.KindVrf:
		return "vrf"
	case nmstate.KindInfiniband:
		return "infiniband"
	case nmstate.KindOvsBridge:
		return "ovs-bridge"
	case nmstate.KindOvsInterface:
		return "ovs-interface"
	default:
		return string(kind)
	}
}

func kindFromConnectionType(t string) (nmstate.InterfaceKind, error) {
	switch t {
	case "802-3-ethernet":
		return nmstate.KindEthernet, nil
	case "veth":
		return nmstate.KindVeth, nil
	case "vlan":
		return nmstate.KindVlan, nil
	case "vxlan":
		return nmstate.KindVxLan, nil
	case "bridge":
		return nmstate.KindLinuxBridge, nil
	case "bond":
		return nmstate.KindBond, nil
	case "dummy":
		return nmstate.KindDummy, nil
	case "loopback":
		return nmstate.KindLoopback, nil
	case "macvlan":
		return nmstate.KindMacVlan, nil
	case "macvtap":
		return nmstate.KindMacVtap, nil
	case "vrf":
		return nmstate.KindVrf, nil
	case "infiniband":
		return nmstate.KindInfiniband, nil
	case "ovs-bridge":
		return nmstate.KindOvsBridge, nil
	case "ovs-interface":
		return nmstate.KindOvsInterface, nil
	default:
		return "", fmt.Errorf("backend: unknown connection type %q", t)
	}
}

func mustGet(p *Profile, section, key string) string {
	v, _ := p.get(section, key)
	return v
}
