package retention

import (
	"fmt"
	"strings"
)

// Window selects which cutoff a step compares against.
type Window int

const (
	// WindowOrderCycle compares order_cycles.orders_close_at with the order cycle cutoff.
	WindowOrderCycle Window = iota

	// WindowPermission compares the table's own created_at with the order cycle cutoff.
	WindowPermission

	// WindowTransient compares created_at with the transient log cutoff.
	WindowTransient

	// WindowSession compares created_at with the session cutoff.
	WindowSession
)

// String returns the window name used in logs and plan output.
func (w Window) String() string {
	switch w {
	case WindowOrderCycle:
		return "order_cycle"
	case WindowPermission:
		return "permission"
	case WindowTransient:
		return "transient"
	case WindowSession:
		return "session"
	default:
		return fmt.Sprintf("Window(%d)", int(w))
	}
}

// Eligibility subqueries. Each one carries a single cutoff placeholder at
// its innermost level, so eligibility is always derived from orders_close_at.
const (
	eligibleCycleIDs    = "SELECT id FROM " + TableOrderCycles + " WHERE orders_close_at < ?"
	eligibleOrderIDs    = "SELECT id FROM " + TableOrders + " WHERE order_cycle_id IN (" + eligibleCycleIDs + ")"
	eligibleExchangeIDs = "SELECT id FROM " + TableExchanges + " WHERE order_cycle_id IN (" + eligibleCycleIDs + ")"
)

func ownedByEligibleOrder(table string) string {
	return "SELECT id FROM " + table + " WHERE order_id IN (" + eligibleOrderIDs + ")"
}

func deleteIn(table, column, subquery string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", table, column, subquery)
}

func deleteCreatedBefore(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", table)
}

// Step is a single bulk delete statement.
type Step struct {
	// Name identifies the step in logs, metrics and reports.
	Name string

	// Table is the table the statement deletes from.
	Table string

	// Window selects the cutoff bound to the statement.
	Window Window

	// SQL is the statement with '?' placeholders.
	SQL string

	// Params are bound to the leading placeholders; every remaining
	// placeholder receives the window's cutoff.
	Params []any
}

// Args returns the bind arguments for the statement under the given cutoffs.
func (s Step) Args(c Cutoffs) []any {
	args := make([]any, 0, strings.Count(s.SQL, "?"))
	args = append(args, s.Params...)

	cutoff := c.For(s.Window)
	for i := len(s.Params); i < strings.Count(s.SQL, "?"); i++ {
		args = append(args, cutoff)
	}
	return args
}

// Plan is an ordered list of delete statements.
type Plan []Step

// DefaultPlan returns the deletion order for the order cycle schema,
// leaves first and order cycles last among cycle-rooted tables.
func DefaultPlan() Plan {
	var plan Plan

	// Inventory units reference both orders and shipments.
	plan = append(plan,
		Step{
			Name:   "inventory_units_by_order",
			Table:  TableInventoryUnits,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableInventoryUnits, "order_id", eligibleOrderIDs),
		},
		Step{
			Name:   "inventory_units_by_shipment",
			Table:  TableInventoryUnits,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableInventoryUnits, "shipment_id", ownedByEligibleOrder(TableShipments)),
		},
	)

	for _, src := range AdjustmentSources() {
		plan = append(plan, Step{
			Name:   "adjustments_on_" + src.String(),
			Table:  TableAdjustments,
			Window: WindowOrderCycle,
			SQL: fmt.Sprintf("DELETE FROM %s WHERE source_type = ? AND source_id IN (%s)",
				TableAdjustments, src.eligibleIDs()),
			Params: []any{src.SourceType()},
		})
	}

	for _, table := range []string{TableLineItems, TablePayments, TableShipments, TableReturnAuthorizations} {
		plan = append(plan, Step{
			Name:   strings.TrimPrefix(table, "spree_"),
			Table:  table,
			Window: WindowOrderCycle,
			SQL:    deleteIn(table, "order_id", eligibleOrderIDs),
		})
	}

	plan = append(plan,
		Step{
			Name:   "orders",
			Table:  TableOrders,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableOrders, "order_cycle_id", eligibleCycleIDs),
		},
		Step{
			Name:   "order_cycle_schedules",
			Table:  TableOrderCycleSchedules,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableOrderCycleSchedules, "order_cycle_id", eligibleCycleIDs),
		},
		Step{
			Name:   "proxy_orders",
			Table:  TableProxyOrders,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableProxyOrders, "order_cycle_id", eligibleCycleIDs),
		},
		Step{
			Name:   "coordinator_fees",
			Table:  TableCoordinatorFees,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableCoordinatorFees, "order_cycle_id", eligibleCycleIDs),
		},
		Step{
			Name:   "exchange_variants",
			Table:  TableExchangeVariants,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableExchangeVariants, "exchange_id", eligibleExchangeIDs),
		},
		Step{
			Name:   "exchange_fees",
			Table:  TableExchangeFees,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableExchangeFees, "exchange_id", eligibleExchangeIDs),
		},
		Step{
			Name:   "exchanges",
			Table:  TableExchanges,
			Window: WindowOrderCycle,
			SQL:    deleteIn(TableExchanges, "order_cycle_id", eligibleCycleIDs),
		},
		Step{
			Name:   "order_cycles",
			Table:  TableOrderCycles,
			Window: WindowOrderCycle,
			SQL:    fmt.Sprintf("DELETE FROM %s WHERE orders_close_at < ?", TableOrderCycles),
		},
		Step{
			Name:   "tokenized_permissions",
			Table:  TableTokenizedPermissions,
			Window: WindowPermission,
			SQL:    deleteCreatedBefore(TableTokenizedPermissions),
		},
		Step{
			Name:   "state_changes",
			Table:  TableStateChanges,
			Window: WindowTransient,
			SQL:    deleteCreatedBefore(TableStateChanges),
		},
		Step{
			Name:   "log_entries",
			Table:  TableLogEntries,
			Window: WindowTransient,
			SQL:    deleteCreatedBefore(TableLogEntries),
		},
		Step{
			Name:   "sessions",
			Table:  TableSessions,
			Window: WindowSession,
			SQL:    deleteCreatedBefore(TableSessions),
		},
	)

	return plan
}

// Verify checks that the plan never deletes a table while a table holding a
// blocking reference to it still has steps left to run.
func (p Plan) Verify(g *Graph) error {
	known := make(map[string]bool)
	for _, t := range g.Tables() {
		known[t] = true
	}

	first := make(map[string]int)
	last := make(map[string]int)
	for i, step := range p {
		if !known[step.Table] {
			return &PlanError{Step: step.Name, Table: step.Table, Reason: "table is not part of the dependency graph"}
		}
		if _, ok := first[step.Table]; !ok {
			first[step.Table] = i
		}
		last[step.Table] = i
	}

	for _, r := range g.Relations() {
		if !r.blocks() || r.Table == r.References {
			continue
		}
		firstRef, ok := first[r.References]
		if !ok {
			continue
		}
		lastDep, ok := last[r.Table]
		if !ok {
			return &PlanError{
				Step:      p[firstRef].Name,
				Table:     r.References,
				Dependent: r.Table,
				Reason:    "dependent table is never purged",
			}
		}
		if lastDep > firstRef {
			return &PlanError{
				Step:      p[firstRef].Name,
				Table:     r.References,
				Dependent: r.Table,
				Reason:    fmt.Sprintf("dependent table is purged later by step %q", p[lastDep].Name),
			}
		}
	}

	return nil
}

// StepInfo describes a step for display.
type StepInfo struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Table    string `json:"table"`
	Level    int    `json:"level"`
	Window   string `json:"window"`
	SQL      string `json:"sql"`
}

// Describe returns the plan annotated with the graph level of each table.
func (p Plan) Describe(g *Graph) ([]StepInfo, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	infos := make([]StepInfo, 0, len(p))
	for i, step := range p {
		infos = append(infos, StepInfo{
			Position: i + 1,
			Name:     step.Name,
			Table:    step.Table,
			Level:    levels[step.Table],
			Window:   step.Window.String(),
			SQL:      step.SQL,
		})
	}
	return infos, nil
}
