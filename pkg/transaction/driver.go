// Package transaction implements C6: the checkpoint-guarded apply/verify/
// rollback protocol that sits between planning (pkg/merge) and the backend
// adapters (pkg/backend).
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nmstate-go/nmstate/pkg/backend"
	"github.com/nmstate-go/nmstate/pkg/merge"
	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/query"
	"github.com/nmstate-go/nmstate/pkg/revert"
	"github.com/nmstate-go/nmstate/pkg/util"
)

// Applier is C7's contract: the backend operations spec.md §4.6 step 2
// names (remove, deactivate, reactivate, save-profile, activate) plus the
// non-interface pieces of a NetworkState a transaction also has to push.
type Applier interface {
	SaveProfile(ctx context.Context, iface *nmstate.Interface) error
	Activate(ctx context.Context, key nmstate.IfaceKey) error
	Reactivate(ctx context.Context, key nmstate.IfaceKey) error
	Deactivate(ctx context.Context, key nmstate.IfaceKey) error
	Remove(ctx context.Context, key nmstate.IfaceKey) error

	ApplyRoutes(ctx context.Context, changes []merge.RouteChange) error
	ApplyRouteRules(ctx context.Context, changes []merge.RouteRuleChange) error
	ApplyDNS(ctx context.Context, dns *nmstate.DNSConfig) error
	ApplyHostname(ctx context.Context, hostname *string) error
	ApplyOvsDB(ctx context.Context, cfg nmstate.OvsDBGlobalConfig) error
	ApplyOvn(ctx context.Context, cfg nmstate.OvnConfig) error

	// DeleteProfile backs pkg/backend.DeleteOrphan's delete_orphan sweep.
	DeleteProfile(ctx context.Context, name string) error
}

// Driver runs the Checkpoint -> Apply -> Verify -> Commit/Rollback protocol
// of spec.md §4.6 against a single Applier/Querier pair.
type Driver struct {
	Applier Applier
	Querier *query.Querier
	Opts    Options

	store *store
}

// NewDriver wires a Driver with the spec-mandated default timings.
func NewDriver(applier Applier, querier *query.Querier) *Driver {
	return &Driver{
		Applier: applier,
		Querier: querier,
		Opts:    DefaultOptions(),
		store:   newStore(),
	}
}

// Apply merges desired onto current state, opens a checkpoint, applies the
// plan, verifies it settled, and commits or rolls back.
func (d *Driver) Apply(ctx context.Context, desired *nmstate.NetworkState) (*Checkpoint, error) {
	opts := d.Opts.withDefaults()
	log := util.WithOperation("apply")

	current, err := d.Querier.CurrentState(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying current state: %w", err)
	}

	merged, err := merge.Merge(desired, current)
	if err != nil {
		return nil, err
	}

	revertDoc := revert.Generate(merged, current)
	cp := newCheckpoint(merged.Plan, current, revertDoc, opts.CheckpointTimeout)
	d.store.put(cp)
	log.WithField("checkpoint", cp.ID).Info("checkpoint opened")

	if err := d.applyMerged(ctx, merged); err != nil {
		log.WithField("checkpoint", cp.ID).WithError(err).Warn("apply failed, rolling back")
		rbErr := d.rollback(ctx, cp)
		return cp, nmerr.Wrap(nmerr.Bug, "apply", errors.Join(err, rbErr))
	}

	if err := d.verify(ctx, desired, opts); err != nil {
		log.WithField("checkpoint", cp.ID).WithError(err).Warn("verification failed, rolling back")
		rbErr := d.rollback(ctx, cp)
		return cp, nmerr.Wrap(nmerr.VerificationError, "apply", errors.Join(err, rbErr))
	}

	if err := d.CheckpointCommit(cp.ID); err != nil {
		return cp, err
	}
	return cp, nil
}

// applyMerged runs every change in merged in Plan order, plus the
// non-interface sections, stopping at the first interface-level failure.
func (d *Driver) applyMerged(ctx context.Context, merged *merge.MergedNetworkState) error {
	for _, key := range merged.Plan {
		change, ok := merged.Interfaces[key]
		if !ok {
			continue
		}
		if err := d.applyInterfaceChange(ctx, change); err != nil {
			return fmt.Errorf("applying %s: %w", key.Name, err)
		}
	}

	if d.Querier.Backend != nil {
		if err := backend.DeleteOrphan(ctx, merged, d.Querier.Backend, d.Applier); err != nil {
			return fmt.Errorf("delete_orphan: %w", err)
		}
	}

	if len(merged.Routes) > 0 {
		if err := d.Applier.ApplyRoutes(ctx, merged.Routes); err != nil {
			return fmt.Errorf("applying routes: %w", err)
		}
	}
	if len(merged.RouteRules) > 0 {
		if err := d.Applier.ApplyRouteRules(ctx, merged.RouteRules); err != nil {
			return fmt.Errorf("applying route rules: %w", err)
		}
	}
	if merged.DNSChanged {
		if err := d.Applier.ApplyDNS(ctx, merged.DNS); err != nil {
			return fmt.Errorf("applying dns-resolver: %w", err)
		}
	}
	if merged.HostnameChanged {
		if err := d.Applier.ApplyHostname(ctx, merged.Hostname); err != nil {
			return fmt.Errorf("applying hostname: %w", err)
		}
	}
	if merged.OvsDBChanged {
		if err := d.Applier.ApplyOvsDB(ctx, merged.OvsDB); err != nil {
			return fmt.Errorf("applying ovs-db: %w", err)
		}
	}
	if merged.OvnChanged {
		if err := d.Applier.ApplyOvn(ctx, merged.Ovn); err != nil {
			return fmt.Errorf("applying ovn: %w", err)
		}
	}
	return nil
}

func (d *Driver) applyInterfaceChange(ctx context.Context, change merge.InterfaceChange) error {
	switch change.Kind {
	case merge.Unchanged:
		return nil
	case merge.Removed:
		if err := d.Applier.Deactivate(ctx, change.Key); err != nil {
			return err
		}
		return d.Applier.Remove(ctx, change.Key)
	case merge.Added:
		if err := d.Applier.SaveProfile(ctx, change.Iface); err != nil {
			return err
		}
		if change.Iface.Base.State == nmstate.StateDown {
			return nil
		}
		return d.Applier.Activate(ctx, change.Key)
	case merge.Changed:
		if err := d.Applier.SaveProfile(ctx, change.Iface); err != nil {
			return err
		}
		if change.Iface.Base.State == nmstate.StateDown {
			return d.Applier.Deactivate(ctx, change.Key)
		}
		return d.Applier.Reactivate(ctx, change.Key)
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

// verify re-queries current state until it matches desired (sanitized) or
// opts.SettleTimeout elapses, per spec.md §4.6 step 3.
func (d *Driver) verify(ctx context.Context, desired *nmstate.NetworkState, opts Options) error {
	deadline := time.Now().Add(opts.SettleTimeout)
	var lastErr error

	for {
		current, err := d.Querier.CurrentState(ctx)
		if err != nil {
			lastErr = err
		} else if settled, err := isSettled(desired, current); err != nil {
			lastErr = err
		} else if settled {
			return nil
		} else {
			lastErr = fmt.Errorf("state has not settled to desired")
		}

		if time.Now().After(deadline) {
			return nmerr.Wrap(nmerr.VerificationError, "apply", lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.SettlePoll):
		}
	}
}

// isSettled reports whether merging desired against current classifies
// every interface and global section as Unchanged.
func isSettled(desired, current *nmstate.NetworkState) (bool, error) {
	merged, err := merge.Merge(desired, current)
	if err != nil {
		return false, err
	}
	return merged.IsEmpty(), nil
}

// rollback applies cp.RevertState by merging it against whatever the backend
// is in right now and applying that plan, best-effort: it attempts every
// operation and joins failures rather than stopping at the first one, the
// same shape as the teacher's ChangeSet.Rollback.
func (d *Driver) rollback(ctx context.Context, cp *Checkpoint) error {
	current, err := d.Querier.CurrentState(ctx)
	if err != nil {
		cp.Status = StatusRolledBack
		return fmt.Errorf("rollback: re-querying current state: %w", err)
	}

	merged, err := merge.Merge(cp.RevertState, current)
	if err != nil {
		cp.Status = StatusRolledBack
		return fmt.Errorf("rollback: merging revert document: %w", err)
	}

	var errs []error
	for _, key := range merged.Plan {
		change, ok := merged.Interfaces[key]
		if !ok {
			continue
		}
		if err := d.applyInterfaceChange(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", key.Name, err))
		}
	}
	if d.Querier.Backend != nil {
		if err := backend.DeleteOrphan(ctx, merged, d.Querier.Backend, d.Applier); err != nil {
			errs = append(errs, fmt.Errorf("rollback delete_orphan: %w", err))
		}
	}
	if merged.DNSChanged {
		if err := d.Applier.ApplyDNS(ctx, merged.DNS); err != nil {
			errs = append(errs, fmt.Errorf("rollback dns-resolver: %w", err))
		}
	}
	if merged.HostnameChanged {
		if err := d.Applier.ApplyHostname(ctx, merged.Hostname); err != nil {
			errs = append(errs, fmt.Errorf("rollback hostname: %w", err))
		}
	}
	if merged.OvsDBChanged {
		if err := d.Applier.ApplyOvsDB(ctx, merged.OvsDB); err != nil {
			errs = append(errs, fmt.Errorf("rollback ovs-db: %w", err))
		}
	}
	if merged.OvnChanged {
		if err := d.Applier.ApplyOvn(ctx, merged.Ovn); err != nil {
			errs = append(errs, fmt.Errorf("rollback ovn: %w", err))
		}
	}
	if len(merged.Routes) > 0 {
		if err := d.Applier.ApplyRoutes(ctx, merged.Routes); err != nil {
			errs = append(errs, fmt.Errorf("rollback routes: %w", err))
		}
	}
	if len(merged.RouteRules) > 0 {
		if err := d.Applier.ApplyRouteRules(ctx, merged.RouteRules); err != nil {
			errs = append(errs, fmt.Errorf("rollback route rules: %w", err))
		}
	}

	cp.Status = StatusRolledBack
	return errors.Join(errs...)
}

// CheckpointCommit destroys an open checkpoint, making its applied changes
// permanent. Committing an already-committed or rolled-back checkpoint is a
// no-op, matching spec.md §4.6's idempotence requirement.
func (d *Driver) CheckpointCommit(id string) error {
	cp, ok := d.store.get(id)
	if !ok {
		return nmerr.New(nmerr.InvalidArgument, "checkpoint", "no such checkpoint %q", id)
	}
	if cp.Status != StatusOpen {
		return nil
	}
	cp.Status = StatusCommitted
	return nil
}

// CheckpointRollback reverts an open checkpoint independently of any
// just-completed Apply call, letting a supervisory process cancel a
// still-open checkpoint (spec.md §5). Idempotent and safe under repeated
// invocation.
func (d *Driver) CheckpointRollback(ctx context.Context, id string) error {
	cp, ok := d.store.get(id)
	if !ok {
		return nmerr.New(nmerr.InvalidArgument, "checkpoint", "no such checkpoint %q", id)
	}
	if cp.Status != StatusOpen {
		return nil
	}
	return d.rollback(ctx, cp)
}
