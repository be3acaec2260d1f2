package backend

import (
	"context"
	"fmt"

	"github.com/ovn-org/libovsdb/model"
	"github.com/ovn-org/libovsdb/ovsdb"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
	"github.com/nmstate-go/nmstate/pkg/nmstate"
	"github.com/nmstate-go/nmstate/pkg/util"
)

// Open vSwitch database models, the same `ovsdb:"..."` struct-tag binding
// libovsdb's model package uses to decode/encode table rows.

// OvsBridgeRow is the Open vSwitch "Bridge" table.
type OvsBridgeRow struct {
	UUID        string            `ovsdb:"_uuid"`
	Name        string            `ovsdb:"name"`
	Ports       []string          `ovsdb:"ports"`
	FailMode    *string           `ovsdb:"fail_mode"`
	OtherConfig map[string]string `ovsdb:"other_config"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	RstpEnable  bool              `ovsdb:"rstp_enable"`
}

// OvsPortRow is the Open vSwitch "Port" table.
type OvsPortRow struct {
	UUID       string   `ovsdb:"_uuid"`
	Name       string   `ovsdb:"name"`
	Interfaces []string `ovsdb:"interfaces"`
	Tag        *int     `ovsdb:"tag"`
	BondMode   *string  `ovsdb:"bond_mode"`
}

// OvsInterfaceRow is the Open vSwitch "Interface" table.
type OvsInterfaceRow struct {
	UUID      string            `ovsdb:"_uuid"`
	Name      string            `ovsdb:"name"`
	Type      string            `ovsdb:"type"`
	Options   map[string]string `ovsdb:"options"`
	MTURequest *int             `ovsdb:"mtu_request"`
}

// OvsDBRow is the Open vSwitch root "Open_vSwitch" table, holding the
// database-wide external_ids/other_config columns spec.md §4.5's
// ovsdb module maps onto.
type OvsDBRow struct {
	UUID        string            `ovsdb:"_uuid"`
	Bridges     []string          `ovsdb:"bridges"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	OtherConfig map[string]string `ovsdb:"other_config"`
}

const (
	bridgeTable = "Bridge"
	portTable   = "Port"
	ifaceTable  = "Interface"
	ovsTable    = "Open_vSwitch"
)

// DBModel returns the libovsdb client model for the subset of the
// Open_vSwitch schema nmstate manages.
func DBModel() (model.ClientDBModel, error) {
	return model.NewClientDBModel("Open_vSwitch", map[string]model.Model{
		bridgeTable: &OvsBridgeRow{},
		portTable:   &OvsPortRow{},
		ifaceTable:  &OvsInterfaceRow{},
		ovsTable:    &OvsDBRow{},
	})
}

// ovsdbClient is the subset of github.com/ovn-org/libovsdb/client.Client
// OvsDBApplier needs, narrow enough to fake in tests.
type ovsdbClient interface {
	Transact(ctx context.Context, operations ...ovsdb.Operation) ([]ovsdb.OperationResult, error)
}

// OvsDBApplier implements the OVS-bridge/OVS-interface slice of
// transaction.Applier plus ApplyOvsDB, grounded on libovsdb's row-model
// binding pattern (`ovsdb:"..."` tags, model.NewClientDBModel) seen in
// ovn-kubernetes's northbound/southbound database code, applied here to
// OVS's own Open_vSwitch schema instead of OVN's.
type OvsDBApplier struct {
	Client ovsdbClient
}

// NewOvsDBApplier wraps a connected libovsdb client.
func NewOvsDBApplier(client ovsdbClient) *OvsDBApplier {
	return &OvsDBApplier{Client: client}
}

// SaveBridge creates or updates a bridge row and its port/interface rows in
// a single OVSDB transaction, so a partial apply can never leave orphaned
// rows behind.
func (a *OvsDBApplier) SaveBridge(ctx context.Context, iface *nmstate.Interface) error {
	if iface.OvsBridge == nil {
		return nmerr.New(nmerr.InvalidArgument, "ovs-bridge."+iface.Base.Name, "missing ovs-bridge config")
	}

	ifaceRow := &OvsInterfaceRow{Name: iface.Base.Name, Type: "internal"}

	ops := []ovsdb.Operation{
		{
			Op:    ovsdb.OperationInsert,
			Table: ifaceTable,
			Row:   rowToMap(ifaceRow),
		},
	}
	for _, port := range iface.OvsBridge.PortConfigs {
		ops = append(ops, ovsdb.Operation{
			Op:    ovsdb.OperationInsert,
			Table: portTable,
			Row:   map[string]interface{}{"name": port.Name},
		})
	}

	failMode := iface.OvsBridge.FailMode
	bridgeRow := &OvsBridgeRow{Name: iface.Base.Name}
	if failMode != "" {
		bridgeRow.FailMode = &failMode
	}
	ops = append(ops, ovsdb.Operation{
		Op:    ovsdb.OperationInsert,
		Table: bridgeTable,
		Row:   rowToMap(bridgeRow),
	})

	if _, err := a.Client.Transact(ctx, ops...); err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "ovs-bridge."+iface.Base.Name, err)
	}
	util.WithInterface(iface.Base.Name).Debug("ovs bridge profile saved")
	return nil
}

// RemoveBridge deletes a bridge row by name. It issues no delete for the
// bridge's Port/Interface rows, and DeleteOrphan, which removes backend
// profiles through DeleteProfile, does not delete them either.
func (a *OvsDBApplier) RemoveBridge(ctx context.Context, name string) error {
	ops := []ovsdb.Operation{{
		Op:    ovsdb.OperationDelete,
		Table: bridgeTable,
		Where: []ovsdb.Condition{{Column: "name", Function: ovsdb.ConditionEqual, Value: name}},
	}}
	if _, err := a.Client.Transact(ctx, ops...); err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "ovs-bridge."+name, err)
	}
	return nil
}

// ApplyOvsDB pushes the database-wide external_ids/other_config columns,
// spec.md §4.5's ovsdb module.
func (a *OvsDBApplier) ApplyOvsDB(ctx context.Context, cfg nmstate.OvsDBGlobalConfig) error {
	ops := []ovsdb.Operation{{
		Op:    ovsdb.OperationUpdate,
		Table: ovsTable,
		Row: map[string]interface{}{
			"external_ids": cfg.ExternalIDs,
			"other_config": cfg.OtherConfig,
		},
	}}
	if _, err := a.Client.Transact(ctx, ops...); err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "ovsdb", err)
	}
	return nil
}

// ApplyOvn pushes OVN bridge-mapping entries into the Open_vSwitch root
// row's external_ids ("ovn-bridge-mappings"), the same way ovn-controller reads
// bridge-to-network mapping off the OVS database rather than its own.
func (a *OvsDBApplier) ApplyOvn(ctx context.Context, cfg nmstate.OvnConfig) error {
	mappings := ""
	for i, m := range cfg.BridgeMappings {
		if m.State == nmstate.StateAbsent {
			continue
		}
		if i > 0 {
			mappings += ","
		}
		mappings += fmt.Sprintf("%s:%s", m.Localnet, m.Bridge)
	}

	ops := []ovsdb.Operation{{
		Op:    ovsdb.OperationUpdate,
		Table: ovsTable,
		Row:   map[string]interface{}{"external_ids": map[string]string{"ovn-bridge-mappings": mappings}},
	}}
	if _, err := a.Client.Transact(ctx, ops...); err != nil {
		return nmerr.Wrap(nmerr.DependencyError, "ovn", err)
	}
	return nil
}

// OvsDBGlobal implements query.BackendQuerier, reading back the
// Open_vSwitch root row's external_ids/other_config columns ApplyOvsDB
// writes.
func (a *OvsDBApplier) OvsDBGlobal(ctx context.Context) (nmstate.OvsDBGlobalConfig, error) {
	ops := []ovsdb.Operation{{
		Op:      ovsdb.OperationSelect,
		Table:   ovsTable,
		Columns: []string{"external_ids", "other_config"},
	}}
	results, err := a.Client.Transact(ctx, ops...)
	if err != nil {
		return nmstate.OvsDBGlobalConfig{}, nmerr.Wrap(nmerr.DependencyError, "ovsdb", err)
	}
	cfg := nmstate.OvsDBGlobalConfig{}
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return cfg, nil
	}
	row := results[0].Rows[0]
	if v, ok := row["external_ids"].(map[string]string); ok {
		cfg.ExternalIDs = v
	}
	if v, ok := row["other_config"].(map[string]string); ok {
		cfg.OtherConfig = v
	}
	return cfg, nil
}

func rowToMap(row interface{}) map[string]interface{} {
	switch r := row.(type) {
	case *OvsBridgeRow:
		m := map[string]interface{}{"name": r.Name}
		if r.FailMode != nil {
			m["fail_mode"] = *r.FailMode
		}
		if r.OtherConfig != nil {
			m["other_config"] = r.OtherConfig
		}
		return m
	case *OvsInterfaceRow:
		return map[string]interface{}{"name": r.Name, "type": r.Type}
	default:
		return nil
	}
}
