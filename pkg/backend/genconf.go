package backend

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/ini.v1"

	"github.com/nmstate-go/nmstate/pkg/merge"
)

// GenConf renders a merged plan's interface profiles into backend-native
// keyfile text without applying anything, the gen_conf mode spec.md §4.7
// and SPEC_FULL.md §9's supplemented-features list both call for
// (`rust/src/cli/gen_conf.rs`). C6 is skipped entirely: this only touches
// the in-memory plan, never a live system or checkpoint.
func GenConf(merged *merge.MergedNetworkState) (map[string]string, error) {
	out := make(map[string]string, len(merged.Interfaces))

	for key, change := range merged.Interfaces {
		if change.Kind == merge.Removed || change.Iface == nil {
			continue
		}
		profile, err := ToProfile(change.Iface)
		if err != nil {
			return nil, fmt.Errorf("gen_conf: %s: %w", key.Name, err)
		}
		text, err := renderKeyfile(profile)
		if err != nil {
			return nil, fmt.Errorf("gen_conf: %s: %w", key.Name, err)
		}
		out[key.Name+".nmconnection"] = text
	}
	return out, nil
}

// renderKeyfile writes a Profile out in NetworkManager keyfile form:
// `[section]` headers followed by `key=value` lines, sections and keys in
// a fixed order for deterministic output.
func renderKeyfile(p *Profile) (string, error) {
	file := ini.Empty()

	sections := make([]string, 0, len(p.Sections))
	for name := range p.Sections {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	for _, name := range sections {
		section, err := file.NewSection(name)
		if err != nil {
			return "", err
		}
		keys := make([]string, 0, len(p.Sections[name]))
		for k := range p.Sections[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := section.NewKey(k, p.Sections[name][k]); err != nil {
				return "", err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
