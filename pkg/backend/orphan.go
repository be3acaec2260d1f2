package backend

import (
	"context"

	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/query"
)

// ProfileDeleter removes a persisted profile by name, the delete_orphan half
// of Applier real backends (nmdbus.go) implement alongside SaveProfile.
type ProfileDeleter interface {
	DeleteProfile(ctx context.Context, name string) error
}

// DeleteOrphan removes backend profiles that reference a just-removed
// controller/parent and are themselves not named anywhere in merged,
// spec.md §4.7's delete_orphan. A profile counts as orphaned only if its
// controller or base interface was Removed by this merge and the profile
// itself has no explicit classification of its own (it was never named in
// the desired document, so nothing else will clean it up).
func DeleteOrphan(ctx context.Context, merged *merge.MergedNetworkState, lister query.BackendQuerier, deleter ProfileDeleter) error {
	removedNames := make(map[string]bool)
	for key, change := range merged.Interfaces {
		if change.Kind == merge.Removed {
			removedNames[key.Name] = true
		}
	}
	if len(removedNames) == 0 {
		return nil
	}

	profiles, err := lister.ListProfiles(ctx)
	if err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "delete_orphan", err)
	}

	for _, profile := range profiles {
		if _, named := merged.Interfaces[profile.Key()]; named {
			continue
		}
		orphaned := profile.Base.Controller != nil && removedNames[*profile.Base.Controller]
		if !orphaned {
			if parent, ok := profile.ParentName(); ok {
				orphaned = removedNames[parent]
			}
		}
		if !orphaned {
			continue
		}
		if err := deleter.DeleteProfile(ctx, profile.Base.Name); err != nil {
			return nmerr.Wrap(nmerr.DependencyError, "delete_orphan: "+profile.Base.Name, err)
		}
	}
	return nil
}
