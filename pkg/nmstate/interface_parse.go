package nmstate

import (
	"fmt"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
)

// parseInterface converts one "interfaces" list entry into a typed
// Interface, dispatching the kind-specific block named by the "type" key.
func parseInterface(m map[string]any, path string) (*Interface, error) {
	iface := &Interface{}

	name, err := get(m, "name").String(path + ".name")
	if err != nil {
		return nil, err
	}
	if name == nil || *name == "" {
		return nil, nmerr.New(nmerr.InvalidArgument, path, "interface missing name")
	}
	iface.Base.Name = *name

	kind, err := get(m, "type").String(path + ".type")
	if err != nil {
		return nil, err
	}
	if kind != nil {
		iface.Base.Kind = InterfaceKind(*kind)
	} else {
		iface.Base.Kind = KindUnknown
	}

	state, err := get(m, "state").String(path + ".state")
	if err != nil {
		return nil, err
	}
	if state != nil {
		iface.Base.State = AdminState(*state)
	}

	if v, err := get(m, "description").String(path + ".description"); err != nil {
		return nil, err
	} else {
		iface.Base.Description = v
	}
	if v, err := get(m, "mtu").Int(path + ".mtu"); err != nil {
		return nil, err
	} else {
		iface.Base.MTU = v
	}
	if v, err := get(m, "mac-address").String(path + ".mac-address"); err != nil {
		return nil, err
	} else if v != nil {
		if normalized, ok := normalizeMac(*v); ok {
			iface.Base.MacAddress = &normalized
		} else {
			iface.Base.MacAddress = v
		}
	}
	if v, err := get(m, "copy-mac-from").String(path + ".copy-mac-from"); err != nil {
		return nil, err
	} else {
		iface.Base.CopyMacFrom = v
	}
	if v, err := get(m, "accept-all-mac-addresses").Bool(path + ".accept-all-mac-addresses"); err != nil {
		return nil, err
	} else {
		iface.Base.AcceptAllMacAddresses = v
	}
	if v, err := get(m, "controller").String(path + ".controller"); err != nil {
		return nil, err
	} else {
		iface.Base.Controller = v
	}
	if ports, err := get(m, "ports").StringSlice(path + ".ports"); err != nil {
		return nil, err
	} else {
		iface.Base.Ports = ports
	}
	if v, err := get(m, "wait-ip").String(path + ".wait-ip"); err != nil {
		return nil, err
	} else if v != nil {
		iface.Base.WaitIP = WaitIPPolicy(*v)
	}

	if v4, present, err := get(m, "ipv4").Map(path + ".ipv4"); err != nil {
		return nil, err
	} else if present {
		stack, err := parseIPStack(v4, path+".ipv4")
		if err != nil {
			return nil, err
		}
		iface.Base.IPv4 = stack
	}
	if v6, present, err := get(m, "ipv6").Map(path + ".ipv6"); err != nil {
		return nil, err
	} else if present {
		stack, err := parseIPStack(v6, path+".ipv6")
		if err != nil {
			return nil, err
		}
		iface.Base.IPv6 = stack
	}

	if err := parseKindConfig(iface, m, path); err != nil {
		return nil, err
	}

	return iface, nil
}

func parseIPStack(m map[string]any, path string) (*IPStack, error) {
	s := &IPStack{}
	if v, err := get(m, "enabled").Bool(path + ".enabled"); err != nil {
		return nil, err
	} else {
		s.Enabled = v
	}
	if v, err := get(m, "dhcp").Bool(path + ".dhcp"); err != nil {
		return nil, err
	} else {
		s.Dhcp = v
	}
	if v, err := get(m, "autoconf").Bool(path + ".autoconf"); err != nil {
		return nil, err
	} else {
		s.Autoconf = v
	}
	if v, err := get(m, "auto").Bool(path + ".auto"); err != nil {
		return nil, err
	} else {
		s.Auto = v
	}
	if v, err := get(m, "allow-extra-address-search").Bool(path + ".allow-extra-address-search"); err != nil {
		return nil, err
	} else {
		s.AllowExtraAddressSearch = v
	}
	if list, present, err := get(m, "address").Slice(path + ".address"); err != nil {
		return nil, err
	} else if present {
		addrs := make([]IPAddress, 0, len(list))
		for idx, raw := range list {
			am, ok := asMap(raw)
			if !ok {
				return nil, nmerr.New(nmerr.InvalidArgument, fmt.Sprintf("%s.address[%d]", path, idx), "expected a mapping")
			}
			addr, err := parseIPAddress(am, fmt.Sprintf("%s.address[%d]", path, idx))
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, addr)
		}
		s.Addresses = &addrs
	}
	return s, nil
}

// parseKindConfig dispatches to the kind-specific parser named by
// iface.Base.Kind, falling back to storing the raw block in Unknown for
// kinds this engine does not model, so re-serialization keeps the data.
func parseKindConfig(iface *Interface, m map[string]any, path string) error {
	switch iface.Base.Kind {
	case KindEthernet:
		cfg, err := parseEthernetConfig(m, path)
		if err != nil {
			return err
		}
		iface.Ethernet = cfg
	case KindVeth:
		if v, present, err := get(m, "veth").Map(path + ".veth"); err != nil {
			return err
		} else if present {
			peer, _ := coerceString(v["peer"])
			iface.Veth = &VethConfig{Peer: peer}
		}
	case KindVlan:
		cfg, err := parseVlanConfig(m, path)
		if err != nil {
			return err
		}
		iface.Vlan = cfg
	case KindVxLan:
		cfg, err := parseVxLanConfig(m, path)
		if err != nil {
			return err
		}
		iface.VxLan = cfg
	case KindLinuxBridge:
		cfg, err := parseLinuxBridgeConfig(m, path)
		if err != nil {
			return err
		}
		iface.LinuxBridge = cfg
	case KindOvsBridge:
		cfg, err := parseOvsBridgeConfig(m, path)
		if err != nil {
			return err
		}
		iface.OvsBridge = cfg
	case KindOvsInterface:
		if v, present, err := get(m, "patch").Map(path + ".patch"); err != nil {
			return err
		} else if present {
			peer, _ := get(v, "peer").String(path + ".patch.peer")
			iface.OvsInterface = &OvsInterfaceConfig{PatchPeer: peer}
		}
	case KindBond:
		cfg, err := parseBondConfig(m, path)
		if err != nil {
			return err
		}
		iface.Bond = cfg
	case KindDummy:
		iface.Dummy = &DummyConfig{}
	case KindLoopback:
		iface.Loopback = &LoopbackConfig{}
	case KindMacVlan:
		cfg, err := parseMacVlanConfig(m, path, "mac-vlan")
		if err != nil {
			return err
		}
		iface.MacVlan = (*MacVlanConfig)(cfg)
	case KindMacVtap:
		cfg, err := parseMacVlanConfig(m, path, "mac-vtap")
		if err != nil {
			return err
		}
		iface.MacVtap = (*MacVtapConfig)(cfg)
	case KindVrf:
		cfg, err := parseVrfConfig(m, path)
		if err != nil {
			return err
		}
		iface.Vrf = cfg
	case KindInfiniband:
		cfg, err := parseInfinibandConfig(m, path)
		if err != nil {
			return err
		}
		iface.Infiniband = cfg
	case KindMacSec:
		cfg, err := parseMacSecConfig(m, path)
		if err != nil {
			return err
		}
		iface.MacSec = cfg
	case KindHsr:
		cfg, err := parseHsrConfig(m, path)
		if err != nil {
			return err
		}
		iface.Hsr = cfg
	case KindIpVlan:
		cfg, err := parseIpVlanConfig(m, path)
		if err != nil {
			return err
		}
		iface.IpVlan = cfg
	case KindIpsec:
		cfg, err := parseIpsecConfig(m, path)
		if err != nil {
			return err
		}
		iface.Ipsec = cfg
	case KindXfrm:
		cfg, err := parseXfrmConfig(m, path)
		if err != nil {
			return err
		}
		iface.Xfrm = cfg
	case KindDispatch:
		cfg, err := parseDispatchConfig(m, path)
		if err != nil {
			return err
		}
		iface.Dispatch = cfg
	}
	return nil
}

func parseEthernetConfig(m map[string]any, path string) (*EthernetConfig, error) {
	block, present, err := get(m, "ethernet").Map(path + ".ethernet")
	if err != nil || !present {
		return nil, err
	}
	sriovBlock, present, err := get(block, "sr-iov").Map(path + ".ethernet.sr-iov")
	if err != nil || !present {
		return &EthernetConfig{}, err
	}
	sriov := &SrIovConfig{}
	if v, err := get(sriovBlock, "total-vfs").Int(path + ".ethernet.sr-iov.total-vfs"); err != nil {
		return nil, err
	} else {
		sriov.TotalVfs = v
	}
	if list, present, err := get(sriovBlock, "vfs").Slice(path + ".ethernet.sr-iov.vfs"); err != nil {
		return nil, err
	} else if present {
		for idx, raw := range list {
			vm, ok := asMap(raw)
			if !ok {
				continue
			}
			var vf SrIovVF
			if id, ok := coerceInt(vm["id"]); ok {
				vf.ID = id
			}
			if v, err := get(vm, "mac-address").String(fmt.Sprintf("%s.ethernet.sr-iov.vfs[%d]", path, idx)); err != nil {
				return nil, err
			} else {
				vf.MacAddress = v
			}
			if v, err := get(vm, "spoof-check").Bool(fmt.Sprintf("%s.ethernet.sr-iov.vfs[%d]", path, idx)); err != nil {
				return nil, err
			} else {
				vf.SpoofCheck = v
			}
			if v, err := get(vm, "trust").Bool(fmt.Sprintf("%s.ethernet.sr-iov.vfs[%d]", path, idx)); err != nil {
				return nil, err
			} else {
				vf.Trust = v
			}
			sriov.VFs = append(sriov.VFs, vf)
		}
	}
	return &EthernetConfig{SrIov: sriov}, nil
}

func parseVlanConfig(m map[string]any, path string) (*VlanConfig, error) {
	block, present, err := get(m, "vlan").Map(path + ".vlan")
	if err != nil || !present {
		return nil, err
	}
	cfg := &VlanConfig{}
	if id, ok := coerceInt(block["id"]); ok {
		cfg.ID = id
	}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	if proto, ok := coerceString(block["protocol"]); ok {
		cfg.Protocol = proto
	} else {
		cfg.Protocol = "802.1q"
	}
	return cfg, nil
}

func parseVxLanConfig(m map[string]any, path string) (*VxLanConfig, error) {
	block, present, err := get(m, "vxlan").Map(path + ".vxlan")
	if err != nil || !present {
		return nil, err
	}
	cfg := &VxLanConfig{}
	if id, ok := coerceInt(block["id"]); ok {
		cfg.ID = id
	}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	if remote, err := get(block, "remote").String(path + ".vxlan.remote"); err != nil {
		return nil, err
	} else {
		cfg.Remote = remote
	}
	if port, err := get(block, "destination-port").Int(path + ".vxlan.destination-port"); err != nil {
		return nil, err
	} else {
		cfg.DestinationPort = port
	}
	if learning, err := get(block, "learning").Bool(path + ".vxlan.learning"); err != nil {
		return nil, err
	} else {
		cfg.Learning = learning
	}
	return cfg, nil
}

func parseLinuxBridgeConfig(m map[string]any, path string) (*LinuxBridgeConfig, error) {
	block, present, err := get(m, "bridge").Map(path + ".bridge")
	if err != nil || !present {
		return &LinuxBridgeConfig{}, err
	}
	cfg := &LinuxBridgeConfig{}
	if opts, present, err := get(block, "options").Map(path + ".bridge.options"); err != nil {
		return nil, err
	} else if present {
		if stp, present, err := get(opts, "stp").Map(path + ".bridge.options.stp"); err != nil {
			return nil, err
		} else if present {
			if v, err := get(stp, "enabled").Bool(path + ".bridge.options.stp.enabled"); err != nil {
				return nil, err
			} else {
				cfg.StpEnabled = v
			}
		}
		if v, err := get(opts, "vlan-filtering").Bool(path + ".bridge.options.vlan-filtering"); err != nil {
			return nil, err
		} else {
			cfg.VlanFiltering = v
		}
	}
	if ports, present, err := get(block, "port").Slice(path + ".bridge.port"); err != nil {
		return nil, err
	} else if present {
		for _, raw := range ports {
			pm, ok := asMap(raw)
			if !ok {
				continue
			}
			name, _ := coerceString(pm["name"])
			port := LinuxBridgePort{Name: name}
			if v, ok := coerceBool(pm["stp-hairpin-mode"]); ok {
				port.StpHairpin = &v
			}
			if v, ok := coerceInt(pm["stp-path-cost"]); ok {
				port.StpPathCost = &v
			}
			if v, ok := coerceInt(pm["stp-priority"]); ok {
				port.StpPriority = &v
			}
			cfg.PortConfigs = append(cfg.PortConfigs, port)
		}
	}
	return cfg, nil
}

func parseOvsBridgeConfig(m map[string]any, path string) (*OvsBridgeConfig, error) {
	block, present, err := get(m, "bridge").Map(path + ".bridge")
	if err != nil || !present {
		return &OvsBridgeConfig{}, err
	}
	cfg := &OvsBridgeConfig{}
	if opts, present, err := get(block, "options").Map(path + ".bridge.options"); err != nil {
		return nil, err
	} else if present {
		cfg.FailMode, _ = coerceString(opts["fail-mode"])
		if v, ok := coerceBool(opts["rstp"]); ok {
			cfg.RstpEnabled = &v
		}
	}
	if ports, present, err := get(block, "port").Slice(path + ".bridge.port"); err != nil {
		return nil, err
	} else if present {
		for _, raw := range ports {
			pm, ok := asMap(raw)
			if !ok {
				continue
			}
			name, _ := coerceString(pm["name"])
			cfg.PortConfigs = append(cfg.PortConfigs, OvsBridgePort{Name: name})
		}
	}
	return cfg, nil
}

func parseBondConfig(m map[string]any, path string) (*BondConfig, error) {
	block, present, err := get(m, "link-aggregation").Map(path + ".link-aggregation")
	if err != nil || !present {
		return &BondConfig{}, err
	}
	cfg := &BondConfig{}
	cfg.Mode, _ = coerceString(block["mode"])
	if ports, err := get(block, "port").StringSlice(path + ".link-aggregation.port"); err != nil {
		return nil, err
	} else if ports != nil {
		cfg.Port = *ports
	}
	if opts, present, err := get(block, "options").Map(path + ".link-aggregation.options"); err != nil {
		return nil, err
	} else if present {
		cfg.Options = toStringMap(opts)
	}
	return cfg, nil
}

// macVlanLike is the shared shape of mac-vlan/mac-vtap blocks; parseMacVlanConfig
// reuses it for both since the document schema is identical.
type macVlanLike struct {
	BaseIface       string
	Mode            string
	PromiscuousMode *bool
}

func parseMacVlanConfig(m map[string]any, path, key string) (*macVlanLike, error) {
	block, present, err := get(m, key).Map(path + "." + key)
	if err != nil || !present {
		return &macVlanLike{}, err
	}
	cfg := &macVlanLike{}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	cfg.Mode, _ = coerceString(block["mode"])
	if v, ok := coerceBool(block["promiscuous"]); ok {
		cfg.PromiscuousMode = &v
	}
	return cfg, nil
}

func parseVrfConfig(m map[string]any, path string) (*VrfConfig, error) {
	block, present, err := get(m, "vrf").Map(path + ".vrf")
	if err != nil || !present {
		return &VrfConfig{}, err
	}
	cfg := &VrfConfig{}
	if ports, err := get(block, "port").StringSlice(path + ".vrf.port"); err != nil {
		return nil, err
	} else if ports != nil {
		cfg.Port = *ports
	}
	if id, ok := coerceInt(block["route-table-id"]); ok {
		cfg.RouteTableID = id
	}
	return cfg, nil
}

func parseInfinibandConfig(m map[string]any, path string) (*InfinibandConfig, error) {
	block, present, err := get(m, "infiniband").Map(path + ".infiniband")
	if err != nil || !present {
		return &InfinibandConfig{}, err
	}
	cfg := &InfinibandConfig{}
	cfg.Mode, _ = coerceString(block["mode"])
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	if pkey, err := get(block, "pkey").Int(path + ".infiniband.pkey"); err != nil {
		return nil, err
	} else {
		cfg.Pkey = pkey
	}
	return cfg, nil
}

func parseMacSecConfig(m map[string]any, path string) (*MacSecConfig, error) {
	block, present, err := get(m, "macsec").Map(path + ".macsec")
	if err != nil || !present {
		return &MacSecConfig{}, err
	}
	cfg := &MacSecConfig{}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	cfg.Validation, _ = coerceString(block["validation"])
	cfg.MkaCak, _ = get(block, "mka-cak").String(path + ".macsec.mka-cak")
	cfg.MkaCkn, _ = get(block, "mka-ckn").String(path + ".macsec.mka-ckn")
	cfg.Encrypt, _ = get(block, "encrypt").Bool(path + ".macsec.encrypt")
	cfg.Port, _ = get(block, "port").Int(path + ".macsec.port")
	cfg.SendSci, _ = get(block, "send-sci").Bool(path + ".macsec.send-sci")
	return cfg, nil
}

func parseHsrConfig(m map[string]any, path string) (*HsrConfig, error) {
	block, present, err := get(m, "hsr").Map(path + ".hsr")
	if err != nil || !present {
		return &HsrConfig{}, err
	}
	cfg := &HsrConfig{}
	cfg.Port1, _ = coerceString(block["port1"])
	cfg.Port2, _ = coerceString(block["port2"])
	cfg.Protocol, _ = coerceString(block["protocol"])
	return cfg, nil
}

func parseIpVlanConfig(m map[string]any, path string) (*IpVlanConfig, error) {
	block, present, err := get(m, "ipvlan").Map(path + ".ipvlan")
	if err != nil || !present {
		return &IpVlanConfig{}, err
	}
	cfg := &IpVlanConfig{}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	cfg.Mode, _ = coerceString(block["mode"])
	cfg.Private, _ = get(block, "private").Bool(path + ".ipvlan.private")
	return cfg, nil
}

func parseIpsecConfig(m map[string]any, path string) (*IpsecConfig, error) {
	block, present, err := get(m, "libreswan").Map(path + ".libreswan")
	if err != nil || !present {
		return &IpsecConfig{}, err
	}
	cfg := &IpsecConfig{}
	cfg.Left, _ = coerceString(block["left"])
	cfg.Right, _ = coerceString(block["right"])
	cfg.Ikev2, _ = coerceString(block["ikev2"])
	cfg.Psk, _ = get(block, "psk").String(path + ".libreswan.psk")
	return cfg, nil
}

func parseXfrmConfig(m map[string]any, path string) (*XfrmConfig, error) {
	block, present, err := get(m, "xfrm").Map(path + ".xfrm")
	if err != nil || !present {
		return &XfrmConfig{}, err
	}
	cfg := &XfrmConfig{}
	cfg.BaseIface, _ = coerceString(block["base-iface"])
	if id, ok := coerceInt(block["if-id"]); ok {
		cfg.IfID = id
	}
	return cfg, nil
}

func parseDispatchConfig(m map[string]any, path string) (*DispatchConfig, error) {
	cfg := &DispatchConfig{}
	var err error
	cfg.PostActivation, err = get(m, "post-activation").String(path + ".post-activation")
	if err != nil {
		return nil, err
	}
	cfg.PostDeactivation, err = get(m, "post-deactivation").String(path + ".post-deactivation")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
