package retention

import (
	"fmt"
	"sort"
)

// Table names of the purged schema.
const (
	TableOrderCycles          = "order_cycles"
	TableOrders               = "spree_orders"
	TableLineItems            = "spree_line_items"
	TablePayments             = "spree_payments"
	TableShipments            = "spree_shipments"
	TableReturnAuthorizations = "spree_return_authorizations"
	TableInventoryUnits       = "spree_inventory_units"
	TableAdjustments          = "spree_adjustments"
	TableOrderCycleSchedules  = "order_cycle_schedules"
	TableProxyOrders          = "proxy_orders"
	TableCoordinatorFees      = "coordinator_fees"
	TableExchanges            = "exchanges"
	TableExchangeVariants     = "exchange_variants"
	TableExchangeFees         = "exchange_fees"
	TableTokenizedPermissions = "spree_tokenized_permissions"
	TableStateChanges         = "spree_state_changes"
	TableLogEntries           = "spree_log_entries"
	TableSessions             = "sessions"
)

// OnDelete describes what the database does to a referencing row when the
// referenced row is deleted.
type OnDelete int

const (
	// Restrict means the referencing row blocks deletion of the referenced row.
	Restrict OnDelete = iota

	// Nullify means the database clears the referencing column.
	Nullify
)

// String returns the SQL spelling of the action.
func (o OnDelete) String() string {
	if o == Nullify {
		return "SET NULL"
	}
	return "RESTRICT"
}

// Relation is a foreign key (or one variant of a polymorphic key) from
// Table.Column to the primary key of References.
type Relation struct {
	Table      string
	Column     string
	References string
	OnDelete   OnDelete
}

// blocks reports whether the relation forces Table to be purged before References.
func (r Relation) blocks() bool {
	return r.OnDelete == Restrict
}

// Graph is a declarative description of the table dependencies that a
// purge must respect.
type Graph struct {
	tables    []string
	relations []Relation
}

// NewGraph creates a graph from a set of tables and the relations between them.
// Tables mentioned only in relations are added automatically.
func NewGraph(tables []string, relations []Relation) *Graph {
	g := &Graph{}
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.tables = append(g.tables, name)
		}
	}
	for _, t := range tables {
		add(t)
	}
	for _, r := range relations {
		add(r.Table)
		add(r.References)
	}
	g.relations = append(g.relations, relations...)
	return g
}

// DefaultGraph returns the dependency graph of the order cycle schema.
func DefaultGraph() *Graph {
	relations := []Relation{
		{TableOrders, "order_cycle_id", TableOrderCycles, Restrict},
		{TableLineItems, "order_id", TableOrders, Restrict},
		{TablePayments, "order_id", TableOrders, Restrict},
		{TableShipments, "order_id", TableOrders, Restrict},
		{TableReturnAuthorizations, "order_id", TableOrders, Restrict},
		{TableInventoryUnits, "order_id", TableOrders, Restrict},
		{TableInventoryUnits, "shipment_id", TableShipments, Restrict},
		{TableOrderCycleSchedules, "order_cycle_id", TableOrderCycles, Restrict},
		{TableProxyOrders, "order_cycle_id", TableOrderCycles, Restrict},
		// Proxy orders outlive their placed order; the reference is cleared.
		{TableProxyOrders, "order_id", TableOrders, Nullify},
		{TableCoordinatorFees, "order_cycle_id", TableOrderCycles, Restrict},
		{TableExchanges, "order_cycle_id", TableOrderCycles, Restrict},
		{TableExchangeVariants, "exchange_id", TableExchanges, Restrict},
		{TableExchangeFees, "exchange_id", TableExchanges, Restrict},
	}
	for _, src := range AdjustmentSources() {
		relations = append(relations, Relation{TableAdjustments, "source_id", src.Table(), Restrict})
	}

	independent := []string{
		TableTokenizedPermissions,
		TableStateChanges,
		TableLogEntries,
		TableSessions,
	}

	return NewGraph(independent, relations)
}

// Tables returns every table in the graph in declaration order.
func (g *Graph) Tables() []string {
	out := make([]string, len(g.tables))
	copy(out, g.tables)
	return out
}

// Relations returns every relation in the graph.
func (g *Graph) Relations() []Relation {
	out := make([]Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// Dependents returns the tables holding a blocking reference to table.
func (g *Graph) Dependents(table string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range g.relations {
		if r.References == table && r.blocks() && !seen[r.Table] {
			seen[r.Table] = true
			out = append(out, r.Table)
		}
	}
	sort.Strings(out)
	return out
}

// Levels assigns every table a deletion level. Level 0 holds the leaves
// (tables nothing references); a table's level is one more than the highest
// level among its dependents, so purging level by level in ascending order
// never violates a blocking relation.
//
// Returns an error if blocking relations form a cycle.
func (g *Graph) Levels() (map[string]int, error) {
	levels := make(map[string]int, len(g.tables))
	remaining := make(map[string]bool, len(g.tables))
	for _, t := range g.tables {
		remaining[t] = true
	}

	for len(remaining) > 0 {
		var ready []string
		for t := range remaining {
			level, ok := g.levelFor(t, levels)
			if ok {
				ready = append(ready, t)
				levels[t] = level
			}
		}

		if len(ready) == 0 {
			stuck := make([]string, 0, len(remaining))
			for t := range remaining {
				stuck = append(stuck, t)
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("dependency cycle between tables %v", stuck)
		}

		for _, t := range ready {
			delete(remaining, t)
		}
	}

	return levels, nil
}

// levelFor computes the level of table if all its dependents are already leveled.
func (g *Graph) levelFor(table string, levels map[string]int) (int, bool) {
	level := 0
	for _, dep := range g.Dependents(table) {
		if dep == table {
			// Self references (tree tables) are handled by a single statement.
			continue
		}
		l, ok := levels[dep]
		if !ok {
			return 0, false
		}
		if l+1 > level {
			level = l + 1
		}
	}
	return level, true
}
