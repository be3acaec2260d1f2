package nmstate

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
)

// parseCIDRLoose parses "addr/prefix" or a bare address, returning the
// canonical IP. It tolerates a missing prefix since some document fields
// (next-hop-address) carry bare addresses.
func parseCIDRLoose(s string) (net.IP, int) {
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		ip := net.ParseIP(s[:idx])
		prefix, err := strconv.Atoi(s[idx+1:])
		if err != nil {
			return ip, -1
		}
		return ip, prefix
	}
	return net.ParseIP(s), -1
}

// parseIPAddress converts one "addresses" list entry into an IPAddress,
// canonicalizing the parsed IP per spec.md §4.1.
func parseIPAddress(m map[string]any, path string) (IPAddress, error) {
	var a IPAddress
	ipField, err := get(m, "ip").String(path + ".ip")
	if err != nil {
		return a, err
	}
	prefixField, err := get(m, "prefix-length").Int(path + ".prefix-length")
	if err != nil {
		return a, err
	}
	if ipField == nil {
		return a, nmerr.New(nmerr.InvalidArgument, path, "address entry missing ip")
	}
	ip := net.ParseIP(*ipField)
	if ip == nil {
		return a, nmerr.New(nmerr.InvalidArgument, path+".ip", "invalid IP address %q", *ipField)
	}
	prefix := 0
	if prefixField != nil {
		prefix = *prefixField
	}
	a.Text = *ipField
	if prefixField != nil {
		a.Text = *ipField + "/" + strconv.Itoa(prefix)
	}
	a.IP = ip
	a.PrefixLen = prefix
	if vl, err := get(m, "valid-life-time").String(path + ".valid-life-time"); err != nil {
		return a, err
	} else if vl != nil {
		a.ValidLifetime = *vl
	}
	if pl, err := get(m, "preferred-life-time").String(path + ".preferred-life-time"); err != nil {
		return a, err
	} else if pl != nil {
		a.PreferredLifetime = *pl
	}
	return a, nil
}

var macAddressRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// normalizeMac upper-cases and colon-separates a MAC address, matching the
// canonical form the kernel reports back from netlink.
func normalizeMac(s string) (string, bool) {
	if !macAddressRe.MatchString(s) {
		return "", false
	}
	s = strings.ReplaceAll(s, "-", ":")
	return strings.ToUpper(s), true
}

const (
	minVlanID = 0
	maxVlanID = 4094
	minMTU    = 68
	maxMTU    = 65535
)
