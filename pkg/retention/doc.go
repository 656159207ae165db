// Package retention purges historical trading data once it ages past a
// configurable cutoff.
//
// # Data Model
//
// The purged tables form a dependency graph rooted at order cycles:
//
//	order_cycles
//	├── spree_orders
//	│   ├── spree_line_items, spree_payments, spree_shipments, spree_return_authorizations
//	│   ├── spree_inventory_units (order_id and shipment_id)
//	│   └── spree_adjustments (polymorphic source_type/source_id)
//	├── order_cycle_schedules, proxy_orders
//	├── coordinator_fees
//	└── exchanges
//	    └── exchange_variants, exchange_fees
//
// An order cycle is eligible when its orders_close_at is strictly before the
// cutoff. Every other cycle-rooted row is eligible when its owning cycle is,
// and eligibility is re-derived for each statement through nested subqueries
// rather than materialised.
//
// Tokenized permissions, state changes, log entries and sessions are aged by
// their own created_at column and have no dependents.
//
// # Deletion Order
//
// DefaultPlan deletes bottom-up from the leaves of the graph to the root:
//
//  1. inventory units (by order, then by shipment)
//  2. adjustments, one statement per source type
//  3. line items, payments, shipments, return authorizations
//  4. orders
//  5. order cycle schedules, proxy orders
//  6. coordinator fees, exchange variants, exchange fees, exchanges
//  7. order cycles
//  8. tokenized permissions
//  9. state changes, log entries, sessions
//
// Plan.Verify checks a plan against a Graph so that a custom plan can never
// delete a row that a retained row still references.
//
// # Timestamps
//
// On postgres the cutoff is compared with timestamp columns directly. SQLite
// stores timestamps as text in whichever format the writing application
// used, so on the sqlite drivers every cutoff comparison is rewritten to
// compare julianday() values and the cutoff is bound as UTC text. SQLite's
// date functions resolve to the millisecond, which is also the resolution of
// the boundary there.
//
// # Basic Usage
//
//	purger, err := retention.NewPurger(db, retention.DefaultConfig(),
//	    retention.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	report, err := purger.Purge(ctx, retention.PurgeOptions{})
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("deleted %d rows older than %s\n", report.TotalDeleted, report.Cutoffs.OrderCycle)
//
// # Transactions
//
// By default the whole run executes inside one transaction so a failing
// statement leaves the database untouched. Setting Config.Transactional to
// false restores best-effort behaviour where each statement commits on its own.
// Dry runs always use a transaction and always roll back.
package retention
