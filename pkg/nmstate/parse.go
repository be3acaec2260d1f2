package nmstate

import (
	"fmt"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"gopkg.in/yaml.v3"
)

// allowedTopLevelKeys are the only keys spec.md §6 permits at the document
// root; anything else is rejected per §4.1.
var allowedTopLevelKeys = map[string]bool{
	"interfaces":   true,
	"routes":       true,
	"route-rules":  true,
	"dns-resolver": true,
	"ovs-db":       true,
	"ovn":          true,
	"hostname":     true,
	"capture":      true,
	"description":  true,
}

// Parse decodes a YAML or JSON document (both are valid YAML) into a
// NetworkState, applying normalization and validation. It is the collaborator
// entry point spec.md §6 describes as "format(document)"'s first half.
func Parse(doc []byte) (*NetworkState, error) {
	var raw any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, nmerr.Wrap(nmerr.InvalidArgument, "", fmt.Errorf("parsing document: %w", err))
	}
	if raw == nil {
		return NewNetworkState(), nil
	}

	m, ok := asMap(normalizeTree(raw))
	if !ok {
		return nil, nmerr.New(nmerr.InvalidArgument, "", "document root must be a mapping")
	}

	for key := range m {
		if !allowedTopLevelKeys[key] {
			return nil, nmerr.New(nmerr.InvalidArgument, key, "unknown top-level key %q", key)
		}
	}

	state := NewNetworkState()

	if desc, err := get(m, "description").String("description"); err != nil {
		return nil, err
	} else if desc != nil {
		state.Description = *desc
	}

	if ifaces, present, err := get(m, "interfaces").Slice("interfaces"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldInterfaces] = true
		for idx, raw := range ifaces {
			im, ok := asMap(raw)
			if !ok {
				return nil, nmerr.New(nmerr.InvalidArgument, fmt.Sprintf("interfaces[%d]", idx), "expected a mapping")
			}
			iface, err := parseInterface(im, fmt.Sprintf("interfaces[%d]", idx))
			if err != nil {
				return nil, err
			}
			state.Interfaces[iface.Key()] = iface
		}
	}

	if routes, present, err := get(m, "routes").Map("routes"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldRoutes] = true
		list, _, err := get(routes, "config").Slice("routes.config")
		if err != nil {
			return nil, err
		}
		for idx, raw := range list {
			rm, ok := asMap(raw)
			if !ok {
				return nil, nmerr.New(nmerr.InvalidArgument, fmt.Sprintf("routes.config[%d]", idx), "expected a mapping")
			}
			route, err := parseRoute(rm, fmt.Sprintf("routes.config[%d]", idx))
			if err != nil {
				return nil, err
			}
			state.Routes = append(state.Routes, route)
		}
	}

	if rules, present, err := get(m, "route-rules").Map("route-rules"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldRouteRules] = true
		list, _, err := get(rules, "config").Slice("route-rules.config")
		if err != nil {
			return nil, err
		}
		for idx, raw := range list {
			rm, ok := asMap(raw)
			if !ok {
				return nil, nmerr.New(nmerr.InvalidArgument, fmt.Sprintf("route-rules.config[%d]", idx), "expected a mapping")
			}
			rule, err := parseRouteRule(rm, fmt.Sprintf("route-rules.config[%d]", idx))
			if err != nil {
				return nil, err
			}
			state.RouteRules = append(state.RouteRules, rule)
		}
	}

	if dns, present, err := get(m, "dns-resolver").Map("dns-resolver"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldDNS] = true
		if cfg, present, err := get(dns, "config").Map("dns-resolver.config"); err != nil {
			return nil, err
		} else if present {
			c, err := parseDNSConfig(cfg, "dns-resolver.config")
			if err != nil {
				return nil, err
			}
			state.DNS.Desired = c
		}
	}

	if ovsdb, present, err := get(m, "ovs-db").Map("ovs-db"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldOvsDB] = true
		if eids, present, err := get(ovsdb, "external_ids").Map("ovs-db.external_ids"); err != nil {
			return nil, err
		} else if present {
			state.OvsDB.ExternalIDs = toStringMap(eids)
		}
		if oc, present, err := get(ovsdb, "other_config").Map("ovs-db.other_config"); err != nil {
			return nil, err
		} else if present {
			state.OvsDB.OtherConfig = toStringMap(oc)
		}
	}

	if ovn, present, err := get(m, "ovn").Map("ovn"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldOvn] = true
		mappings, _, err := get(ovn, "bridge-mappings").Slice("ovn.bridge-mappings")
		if err != nil {
			return nil, err
		}
		for idx, raw := range mappings {
			bm, ok := asMap(raw)
			if !ok {
				return nil, nmerr.New(nmerr.InvalidArgument, fmt.Sprintf("ovn.bridge-mappings[%d]", idx), "expected a mapping")
			}
			localnet, _ := coerceString(bm["localnet"])
			bridge, _ := coerceString(bm["bridge"])
			st := StateUp
			if s, ok := coerceString(bm["state"]); ok && s != "" {
				st = AdminState(s)
			}
			state.Ovn.BridgeMappings = append(state.Ovn.BridgeMappings, OvnBridgeMapping{
				Localnet: localnet, Bridge: bridge, State: st,
			})
		}
	}

	if capture, present, err := get(m, "capture").Map("capture"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldCapture] = true
		state.Capture = toStringMap(capture)
	}

	if hn, present, err := get(m, "hostname").Map("hostname"); err != nil {
		return nil, err
	} else if present {
		state.Present[FieldHostname] = true
		if cfg, err := get(hn, "config").String("hostname.config"); err != nil {
			return nil, err
		} else {
			state.Hostname.Config = cfg
		}
	}

	if err := Validate(state); err != nil {
		return nil, err
	}

	return state, nil
}

func toStringMap(m map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, _ := coerceString(v)
		out[k] = s
	}
	return out
}

func parseDNSConfig(m map[string]any, path string) (*DNSConfig, error) {
	cfg := &DNSConfig{}
	if s, err := get(m, "server").StringSlice(path + ".server"); err != nil {
		return nil, err
	} else if s != nil {
		cfg.Server = *s
	}
	if s, err := get(m, "search").StringSlice(path + ".search"); err != nil {
		return nil, err
	} else if s != nil {
		cfg.Search = *s
	}
	return cfg, nil
}

func parseRoute(m map[string]any, path string) (Route, error) {
	var r Route
	if v, err := get(m, "destination").String(path + ".destination"); err != nil {
		return r, err
	} else if v != nil {
		r.Destination = *v
	}
	if v, err := get(m, "next-hop-interface").String(path + ".next-hop-interface"); err != nil {
		return r, err
	} else if v != nil {
		r.NextHopInterface = *v
	}
	if v, err := get(m, "next-hop-address").String(path + ".next-hop-address"); err != nil {
		return r, err
	} else if v != nil {
		r.NextHopAddress = *v
	}
	if v, err := get(m, "table-id").Int(path + ".table-id"); err != nil {
		return r, err
	} else if v != nil {
		r.TableID = *v
	}
	if v, err := get(m, "metric").Int(path + ".metric"); err != nil {
		return r, err
	} else if v != nil {
		r.Metric = *v
	}
	if v, err := get(m, "state").String(path + ".state"); err != nil {
		return r, err
	} else if v != nil {
		r.State = AdminState(*v)
	}
	r.Family = familyOf(r.Destination)
	return r, nil
}

func parseRouteRule(m map[string]any, path string) (RouteRule, error) {
	var r RouteRule
	if v, err := get(m, "ip-from").String(path + ".ip-from"); err != nil {
		return r, err
	} else if v != nil {
		r.IPFrom = *v
	}
	if v, err := get(m, "ip-to").String(path + ".ip-to"); err != nil {
		return r, err
	} else if v != nil {
		r.IPTo = *v
	}
	if v, err := get(m, "priority").Int(path + ".priority"); err != nil {
		return r, err
	} else if v != nil {
		r.Priority = *v
	}
	if v, err := get(m, "route-table").Int(path + ".route-table"); err != nil {
		return r, err
	} else if v != nil {
		r.TableID = *v
	}
	if v, err := get(m, "state").String(path + ".state"); err != nil {
		return r, err
	} else if v != nil {
		r.State = AdminState(*v)
	}
	r.Family = familyOf(r.IPFrom)
	if r.Family == "" {
		r.Family = familyOf(r.IPTo)
	}
	return r, nil
}

func familyOf(cidr string) string {
	if cidr == "" {
		return ""
	}
	ip, _ := parseCIDRLoose(cidr)
	if ip == nil {
		return ""
	}
	if ip.To4() != nil {
		return "ipv4"
	}
	return "ipv6"
}
