// Package nmstate defines the typed state model for declarative host-network
// configuration: interfaces, IP stacks, routes, route rules, DNS, hostname,
// and the OVS/OVN database fragments nmstate manages. It also implements
// parsing, normalization, validation, and serialization for that model (C1).
package nmstate

// Namespace distinguishes the kernel interface namespace from the
// backend-only ("user") namespace, so an OVS bridge and its kernel
// representative may share a name without colliding.
type Namespace string

const (
	NamespaceKernel Namespace = "kernel"
	NamespaceUser   Namespace = "user"
)

// IfaceKey identifies an interface uniquely across both namespaces.
type IfaceKey struct {
	Namespace Namespace
	Name      string
}

// InterfaceKind tags which variant of Interface.Config is populated.
type InterfaceKind string

const (
	KindEthernet    InterfaceKind = "ethernet"
	KindVeth        InterfaceKind = "veth"
	KindVlan        InterfaceKind = "vlan"
	KindVxLan       InterfaceKind = "vxlan"
	KindLinuxBridge InterfaceKind = "linux-bridge"
	KindOvsBridge   InterfaceKind = "ovs-bridge"
	KindOvsInterface InterfaceKind = "ovs-interface"
	KindBond        InterfaceKind = "bond"
	KindDummy       InterfaceKind = "dummy"
	KindLoopback    InterfaceKind = "loopback"
	KindMacVlan     InterfaceKind = "mac-vlan"
	KindMacVtap     InterfaceKind = "mac-vtap"
	KindVrf         InterfaceKind = "vrf"
	KindInfiniband  InterfaceKind = "infiniband"
	KindMacSec      InterfaceKind = "macsec"
	KindHsr         InterfaceKind = "hsr"
	KindIpVlan      InterfaceKind = "ipvlan"
	KindIpsec       InterfaceKind = "ipsec"
	KindXfrm        InterfaceKind = "xfrm"
	KindDispatch    InterfaceKind = "dispatch"
	KindUnknown     InterfaceKind = "unknown"
)

// AdminState is the administrative state requested or observed for an
// interface.
type AdminState string

const (
	StateUp     AdminState = "up"
	StateDown   AdminState = "down"
	StateAbsent AdminState = "absent"
	StateIgnore AdminState = "ignore"
)

// kindsWithParent are the interface kinds whose config carries a parent
// reference that must exist after merge (invariant from spec.md §3).
var kindsWithParent = map[InterfaceKind]bool{
	KindVlan: true, KindVxLan: true, KindMacVlan: true,
	KindMacVtap: true, KindMacSec: true, KindIpVlan: true,
}

// HasParent reports whether kind carries a parent-interface reference.
func (k InterfaceKind) HasParent() bool {
	return kindsWithParent[k]
}

// IsContainer reports whether kind can own a ports list (bridge/bond/vrf-like).
func (k InterfaceKind) IsContainer() bool {
	switch k {
	case KindLinuxBridge, KindOvsBridge, KindBond, KindVrf:
		return true
	}
	return false
}

// IsUserSpace reports whether kind lives in the "user" namespace rather than
// the kernel's netlink namespace.
func (k InterfaceKind) IsUserSpace() bool {
	switch k {
	case KindOvsBridge, KindOvsInterface:
		return true
	}
	return false
}

// BaseInterface holds the fields common to every interface kind. Optional
// scalar fields are pointers so the zero value (nil) means "absent from the
// document" rather than "explicitly set to the type's zero value" — the
// distinction spec.md §9 calls out as load-bearing for merge semantics.
type BaseInterface struct {
	Name        string
	Kind        InterfaceKind
	State       AdminState
	Description *string
	MTU         *int
	MacAddress  *string

	IPv4 *IPStack
	IPv6 *IPStack

	LLDP    *LLDPConfig
	MPTCP   *MPTCPConfig
	Ethtool *EthtoolConfig
	Ieee8021X *Ieee8021XConfig

	// Ports is present (non-nil) only for container kinds whose document
	// supplied a ports list; merge replaces the whole list when present.
	Ports *[]string
	// Controller is stamped during merge (§4.3 step 4), not normally
	// supplied directly by the user for most kinds.
	Controller *string

	WaitIP WaitIPPolicy

	// CopyMacFrom names another interface whose MAC should be copied onto
	// this one at apply time (veth/bridge convenience, preserved verbatim).
	CopyMacFrom *string

	// AcceptAllMacAddresses mirrors the promiscuous-mode toggle used in the
	// boolean-coercion test scenarios (S3 in spec.md §8).
	AcceptAllMacAddresses *bool

	// MinMTU/MaxMTU report kernel-imposed bounds; observed-only, cleared by
	// Sanitize.
	MinMTU *int
	MaxMTU *int
}

// WaitIPPolicy controls how long apply waits for IP configuration to settle
// on an interface before considering it up.
type WaitIPPolicy string

const (
	WaitIPAny     WaitIPPolicy = ""
	WaitIPv4      WaitIPPolicy = "ipv4"
	WaitIPv6      WaitIPPolicy = "ipv6"
	WaitIPAny4or6 WaitIPPolicy = "any"
)

// IPStack models one address family's configuration block.
type IPStack struct {
	Enabled *bool
	// Dhcp/Autoconf/Auto mirror nmstate's stack variants: "disabled"
	// forbids Addresses; "dhcp"/"autoconf" forbid static Addresses unless
	// AllowExtraAddressSearch is set; "auto" implies Dhcp||Autoconf.
	Dhcp     *bool
	Autoconf *bool
	Auto     *bool

	Addresses *[]IPAddress

	// AllowExtraAddressSearch permits mixing static addresses into a dhcp
	// stack per spec.md §3's explicit-mix carve-out.
	AllowExtraAddressSearch *bool

	// DHCPObservedAddresses is runtime-only (populated by the querier),
	// cleared by Sanitize before verification.
	DHCPObservedAddresses []IPAddress
}

// IsDisabled reports whether the stack forbids addresses entirely.
func (s *IPStack) IsDisabled() bool {
	return s != nil && s.Enabled != nil && !*s.Enabled
}

// IsDynamic reports whether the stack is dhcp/autoconf/auto (vs static).
func (s *IPStack) IsDynamic() bool {
	if s == nil {
		return false
	}
	if s.Auto != nil && *s.Auto {
		return true
	}
	return (s.Dhcp != nil && *s.Dhcp) || (s.Autoconf != nil && *s.Autoconf)
}

// IPAddress is a single address carrying both the textual and parsed forms.
// The engine canonicalizes on IP/PrefixLen for comparisons (spec.md §4.1).
type IPAddress struct {
	// Text is the address exactly as written in the document, e.g.
	// "192.0.2.1/24".
	Text string
	// IP is the canonical, parsed address (16-byte form for v4-in-v6
	// consistency).
	IP []byte
	// PrefixLen is the parsed prefix length.
	PrefixLen int
	// ValidLifetime/PreferredLifetime are observed-only for dynamic
	// addresses.
	ValidLifetime     string
	PreferredLifetime string
}

// LLDPConfig mirrors the LLDP neighbor-discovery toggle. Neighbors is
// runtime-observed and cleared by Sanitize.
type LLDPConfig struct {
	Enabled   *bool
	Neighbors []map[string]string
}

// MPTCPConfig configures Multipath TCP flags for an interface's addresses.
type MPTCPConfig struct {
	AddressFlags []string
}

// EthtoolConfig groups the ethtool-controlled knobs nmstate exposes.
type EthtoolConfig struct {
	Pause   map[string]bool
	Feature map[string]bool
	Ring    map[string]int
	// RingRounded records fields the kernel silently clamped, surfaced as
	// KernelIntegerRoundedError rather than silently dropped.
	RingRounded map[string]int
}

// Ieee8021XConfig configures 802.1X authentication for the interface.
type Ieee8021XConfig struct {
	Identity   *string
	EapMethods []string
	PrivateKey *string
}

// Interface is a tagged variant over kind, matching spec.md §9's guidance:
// a shared BaseInterface plus exactly one non-nil kind-specific config.
type Interface struct {
	Base BaseInterface

	Ethernet     *EthernetConfig
	Veth         *VethConfig
	Vlan         *VlanConfig
	VxLan        *VxLanConfig
	LinuxBridge  *LinuxBridgeConfig
	OvsBridge    *OvsBridgeConfig
	OvsInterface *OvsInterfaceConfig
	Bond         *BondConfig
	Dummy        *DummyConfig
	Loopback     *LoopbackConfig
	MacVlan      *MacVlanConfig
	MacVtap      *MacVtapConfig
	Vrf          *VrfConfig
	Infiniband   *InfinibandConfig
	MacSec       *MacSecConfig
	Hsr          *HsrConfig
	IpVlan       *IpVlanConfig
	Ipsec        *IpsecConfig
	Xfrm         *XfrmConfig
	Dispatch     *DispatchConfig
	// Unknown preserves raw fields verbatim for kinds this engine does not
	// model, so parse→serialize round-trips without data loss.
	Unknown map[string]any
}

// Key returns the (namespace, name) identity used for map lookups and the
// topological sort.
func (i *Interface) Key() IfaceKey {
	ns := NamespaceKernel
	if i.Base.Kind.IsUserSpace() {
		ns = NamespaceUser
	}
	return IfaceKey{Namespace: ns, Name: i.Base.Name}
}

// ParentName returns the parent interface this config references, if any.
func (i *Interface) ParentName() (string, bool) {
	switch i.Base.Kind {
	case KindVlan:
		if i.Vlan != nil {
			return i.Vlan.BaseIface, i.Vlan.BaseIface != ""
		}
	case KindVxLan:
		if i.VxLan != nil {
			return i.VxLan.BaseIface, i.VxLan.BaseIface != ""
		}
	case KindMacVlan:
		if i.MacVlan != nil {
			return i.MacVlan.BaseIface, i.MacVlan.BaseIface != ""
		}
	case KindMacVtap:
		if i.MacVtap != nil {
			return i.MacVtap.BaseIface, i.MacVtap.BaseIface != ""
		}
	case KindMacSec:
		if i.MacSec != nil {
			return i.MacSec.BaseIface, i.MacSec.BaseIface != ""
		}
	case KindIpVlan:
		if i.IpVlan != nil {
			return i.IpVlan.BaseIface, i.IpVlan.BaseIface != ""
		}
	}
	return "", false
}

// Ports returns the container's port list, if this kind/config has one.
func (i *Interface) Ports() ([]string, bool) {
	switch i.Base.Kind {
	case KindLinuxBridge:
		if i.LinuxBridge != nil {
			return i.LinuxBridge.PortNames(), true
		}
	case KindOvsBridge:
		if i.OvsBridge != nil {
			return i.OvsBridge.PortNames(), true
		}
	case KindBond:
		if i.Bond != nil {
			return i.Bond.Port, true
		}
	case KindVrf:
		if i.Vrf != nil {
			return i.Vrf.Port, true
		}
	}
	if i.Base.Ports != nil {
		return *i.Base.Ports, true
	}
	return nil, false
}

// EthernetConfig configures a physical/virtual-function ethernet device.
type EthernetConfig struct {
	SrIov *SrIovConfig
}

// SrIovConfig configures SR-IOV virtual functions on an ethernet device.
type SrIovConfig struct {
	TotalVfs *int
	VFs      []SrIovVF
}

// SrIovVF configures one virtual function.
type SrIovVF struct {
	ID        int
	MacAddress *string
	SpoofCheck *bool
	Trust      *bool
}

// VethConfig configures the peer side of a veth pair.
type VethConfig struct {
	Peer string
}

// VlanConfig configures an 802.1Q VLAN sub-interface.
type VlanConfig struct {
	ID        int
	BaseIface string
	Protocol  string // "802.1q" or "802.1ad"
}

// VxLanConfig configures a VXLAN tunnel endpoint.
type VxLanConfig struct {
	ID             int
	BaseIface      string
	Remote         *string
	DestinationPort *int
	Learning       *bool
}

// LinuxBridgePort is one bridge port with its STP/vlan-filtering options.
type LinuxBridgePort struct {
	Name       string
	StpHairpin *bool
	StpPathCost *int
	StpPriority *int
}

// LinuxBridgeConfig configures a kernel bridge and its STP options.
type LinuxBridgeConfig struct {
	PortConfigs []LinuxBridgePort
	StpEnabled  *bool
	VlanFiltering *bool
}

// PortNames extracts just the names from PortConfigs.
func (c *LinuxBridgeConfig) PortNames() []string {
	names := make([]string, len(c.PortConfigs))
	for idx, p := range c.PortConfigs {
		names[idx] = p.Name
	}
	return names
}

// OvsBridgePort is one OVS bridge port.
type OvsBridgePort struct {
	Name string
}

// OvsBridgeConfig configures an Open vSwitch bridge, owned in the "user"
// namespace.
type OvsBridgeConfig struct {
	PortConfigs []OvsBridgePort
	FailMode    string
	RstpEnabled *bool
}

// PortNames extracts just the names from PortConfigs.
func (c *OvsBridgeConfig) PortNames() []string {
	names := make([]string, len(c.PortConfigs))
	for idx, p := range c.PortConfigs {
		names[idx] = p.Name
	}
	return names
}

// OvsInterfaceConfig configures an OVS internal/patch interface.
type OvsInterfaceConfig struct {
	PatchPeer *string
}

// BondConfig configures a bonded (LACP or active-backup) interface.
type BondConfig struct {
	Mode    string
	Port    []string
	Options map[string]string
}

// DummyConfig marks a dummy interface; it carries no fields of its own.
type DummyConfig struct{}

// LoopbackConfig marks the loopback interface; it carries no fields of its
// own beyond BaseInterface.
type LoopbackConfig struct{}

// MacVlanConfig configures a macvlan sub-interface.
type MacVlanConfig struct {
	BaseIface       string
	Mode            string
	PromiscuousMode *bool
}

// MacVtapConfig configures a macvtap sub-interface.
type MacVtapConfig struct {
	BaseIface       string
	Mode            string
	PromiscuousMode *bool
}

// VrfConfig configures a VRF (route-domain) interface and its bound ports.
type VrfConfig struct {
	Port         []string
	RouteTableID int
}

// InfinibandConfig configures an InfiniBand interface or pkey subinterface.
type InfinibandConfig struct {
	Mode      string // "datagram" or "connected"
	BaseIface string
	Pkey      *int
}

// MacSecConfig configures IEEE 802.1AE MACsec on a parent interface.
type MacSecConfig struct {
	BaseIface   string
	Encrypt     *bool
	MkaCak      *string
	MkaCkn      *string
	Port        *int
	Validation  string
	SendSci     *bool
}

// HsrConfig configures High-availability Seamless Redundancy across two
// ports. SupervisionAddress is runtime-observed and cleared by Sanitize.
type HsrConfig struct {
	Port1               string
	Port2               string
	SupervisionAddress  *string
	Protocol            string // "hsrv0" or "prp"
}

// IpVlanConfig configures an ipvlan sub-interface.
type IpVlanConfig struct {
	BaseIface string
	Mode      string // "l2", "l3", "l3s"
	Private   *bool
}

// IpsecConfig configures a libreswan-managed IPsec connection.
type IpsecConfig struct {
	Left       string
	Right      string
	Psk        *string
	Ikev2      string
}

// XfrmConfig configures an xfrm interface bound to an IPsec SA by if-id.
type XfrmConfig struct {
	BaseIface string
	IfID      int
}

// DispatchConfig carries the post-activation/post-deactivation dispatch
// scripts run for an interface.
type DispatchConfig struct {
	PostActivation   *string
	PostDeactivation *string
}

// Route is one static route entry.
type Route struct {
	Destination      string
	NextHopInterface string
	NextHopAddress   string
	TableID          int
	Metric           int
	State            AdminState // StateAbsent marks removal
	Family           string     // "ipv4" or "ipv6", derived from Destination if empty
}

// Identity returns the tuple that identifies a route for merge purposes,
// per spec.md §4.3: (destination, next-hop, table, metric, family). The
// Open Question resolution in SPEC_FULL.md §9 narrows this for change
// detection to (destination, table) — see pkg/merge.
type RouteIdentity struct {
	Destination      string
	NextHopInterface string
	TableID          int
	Metric           int
	Family           string
}

func (r Route) Identity() RouteIdentity {
	return RouteIdentity{
		Destination:      r.Destination,
		NextHopInterface: r.NextHopInterface,
		TableID:          r.TableID,
		Metric:           r.Metric,
		Family:           r.Family,
	}
}

// RouteRule is one policy-routing rule.
type RouteRule struct {
	IPFrom   string
	IPTo     string
	Priority int
	TableID  int
	State    AdminState
	Family   string
}

func (r RouteRule) Identity() RouteIdentity {
	return RouteIdentity{
		Destination: r.IPFrom + ">" + r.IPTo,
		TableID:     r.TableID,
		Metric:      r.Priority,
		Family:      r.Family,
	}
}

// DNSState models the three DNS sub-states spec.md §3 describes: the
// desired config the document sets, the running config the kernel
// resolver currently uses, and the persistent config a backend profile
// stores. Merge compares the desired document's Desired against the
// current state's Running, which the querier populates.
type DNSState struct {
	Desired *DNSConfig
	Running *DNSConfig
	Config  *DNSConfig
}

// DNSConfig is a concrete set of resolver settings.
type DNSConfig struct {
	Server []string
	Search []string
}

// OvsDBGlobalConfig models the OVS database's global "external_ids"/
// "other_config" columns nmstate manages outside of any one bridge.
type OvsDBGlobalConfig struct {
	ExternalIDs map[string]string
	OtherConfig map[string]string
}

// OvnConfig models OVN northbound-bridge-mapping configuration.
type OvnConfig struct {
	BridgeMappings []OvnBridgeMapping
}

// OvnBridgeMapping maps a logical network name to a physical OVS bridge.
type OvnBridgeMapping struct {
	Localnet string
	Bridge   string
	State    AdminState
}

// HostnameState models the desired and running hostname.
type HostnameState struct {
	Running *string
	Config  *string
}

// FieldSet tracks which top-level NetworkState fields were present in the
// source document, distinct from present-but-empty (spec.md §3).
type FieldSet map[string]bool

func (f FieldSet) Has(name string) bool { return f[name] }

// Field name constants for FieldSet, also used as Statistic "topology"
// labels.
const (
	FieldInterfaces = "interfaces"
	FieldRoutes     = "routes"
	FieldRouteRules = "route-rules"
	FieldDNS        = "dns-resolver"
	FieldOvsDB      = "ovs-db"
	FieldOvn        = "ovn"
	FieldHostname   = "hostname"
	FieldCapture    = "capture"
)

// NetworkState is the root aggregate described in spec.md §3.
type NetworkState struct {
	Interfaces map[IfaceKey]*Interface
	Routes     []Route
	RouteRules []RouteRule
	DNS        DNSState
	OvsDB      OvsDBGlobalConfig
	Ovn        OvnConfig
	Hostname   HostnameState

	// Capture holds the raw name->expression pairs of a present "capture"
	// top-level key (spec.md §4.5/§6), unevaluated: evaluating a capture
	// expression needs live current state, which Parse does not have.
	// pkg/policy.Resolve is the collaborator that parses and evaluates
	// these against current state and renders any {{ capture.* }}
	// placeholders elsewhere in the document.
	Capture map[string]string

	// Description is free-form, carried through verbatim.
	Description string

	Present FieldSet
}

// NewNetworkState returns an empty, ready-to-populate state.
func NewNetworkState() *NetworkState {
	return &NetworkState{
		Interfaces: make(map[IfaceKey]*Interface),
		Present:    make(FieldSet),
	}
}

// InterfaceByName looks up an interface by name, preferring the kernel
// namespace, matching how most of the document's interface references are
// unqualified names.
func (s *NetworkState) InterfaceByName(name string) (*Interface, bool) {
	if iface, ok := s.Interfaces[IfaceKey{Namespace: NamespaceKernel, Name: name}]; ok {
		return iface, true
	}
	iface, ok := s.Interfaces[IfaceKey{Namespace: NamespaceUser, Name: name}]
	return iface, ok
}
