package nmstate

import (
	"strings"
	"testing"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
)

func TestParseEmptyDocument(t *testing.T) {
	s, err := Parse([]byte(``))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Interfaces) != 0 {
		t.Fatalf("expected no interfaces, got %d", len(s.Interfaces))
	}
}

func TestParseRejectsUnknownTopLevelKey(t *testing.T) {
	_, err := Parse([]byte("unknown-section:\n  foo: bar\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown top-level key")
	}
	if kind, ok := nmerr.KindOf(err); !ok || kind != nmerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v (ok=%v)", kind, ok)
	}
}

func TestParseInterfaceBasics(t *testing.T) {
	doc := `
interfaces:
  - name: eth0
    type: ethernet
    state: up
    mtu: 1500
    ipv4:
      enabled: true
      dhcp: false
      address:
        - ip: 192.0.2.10
          prefix-length: 24
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	iface, ok := s.InterfaceByName("eth0")
	if !ok {
		t.Fatal("expected eth0 to be present")
	}
	if iface.Base.Kind != KindEthernet {
		t.Fatalf("expected ethernet kind, got %v", iface.Base.Kind)
	}
	if iface.Base.MTU == nil || *iface.Base.MTU != 1500 {
		t.Fatalf("expected mtu 1500, got %v", iface.Base.MTU)
	}
	if iface.Base.IPv4 == nil || iface.Base.IPv4.Addresses == nil || len(*iface.Base.IPv4.Addresses) != 1 {
		t.Fatalf("expected one ipv4 address, got %+v", iface.Base.IPv4)
	}
}

// TestBooleanCoercion exercises spec.md §8 scenario S3: string-ized booleans
// and numbers in the document must coerce the same as native YAML types.
func TestBooleanCoercion(t *testing.T) {
	doc := `
interfaces:
  - name: eth1
    type: ethernet
    state: up
    mtu: "1500"
    ipv4:
      enabled: "true"
      dhcp: "no"
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	iface, _ := s.InterfaceByName("eth1")
	if iface.Base.MTU == nil || *iface.Base.MTU != 1500 {
		t.Fatalf("expected string-ized mtu to coerce to 1500, got %v", iface.Base.MTU)
	}
	if iface.Base.IPv4.Enabled == nil || !*iface.Base.IPv4.Enabled {
		t.Fatal("expected \"true\" to coerce to boolean true")
	}
	if iface.Base.IPv4.Dhcp == nil || *iface.Base.IPv4.Dhcp {
		t.Fatal("expected \"no\" to coerce to boolean false")
	}
}

func TestParseNonBreakingSpaceNormalization(t *testing.T) {
	doc := "description: \"has nbsp\"\n"
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(s.Description, " ") {
		t.Fatal("expected non-breaking space to be normalized to ASCII space")
	}
	if s.Description != "has nbsp" {
		t.Fatalf("got %q", s.Description)
	}
}

func TestParseVlanRequiresBaseIface(t *testing.T) {
	doc := `
interfaces:
  - name: eth0.100
    type: vlan
    state: up
    vlan:
      id: 100
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected an error for a vlan without a base-iface")
	}
}

func TestParseVlanIDOutOfRange(t *testing.T) {
	doc := `
interfaces:
  - name: eth0.9999
    type: vlan
    state: up
    vlan:
      id: 9999
      base-iface: eth0
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected an error for an out-of-range vlan id")
	}
}
