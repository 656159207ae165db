package retention

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ofn-hq/truncator/pkg/store"
)

// testNow is the fixed clock of every purge test.
var testNow = time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture is a SQLite database loaded with testdata/schema.sql.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(context.Background(), &store.Config{
		Driver: store.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "truncate.db"),
	})
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	schema, err := os.ReadFile(filepath.Join("testdata", "schema.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("failed to apply schema statement %q: %v", stmt, err)
		}
	}

	return &fixture{t: t, ctx: context.Background(), store: s}
}

func (f *fixture) purger(cfg *Config, opts ...Option) *Purger {
	f.t.Helper()

	opts = append([]Option{WithClock(fixedClock), WithLogger(discardLogger())}, opts...)
	p, err := NewPurger(f.store, cfg, opts...)
	if err != nil {
		f.t.Fatalf("NewPurger() failed: %v", err)
	}
	return p
}

func (f *fixture) insert(query string, args ...any) int64 {
	f.t.Helper()

	res, err := f.store.ExecContext(f.ctx, f.store.Rebind(query), args...)
	if err != nil {
		f.t.Fatalf("insert %q failed: %v", query, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("LastInsertId() failed: %v", err)
	}
	return id
}

func (f *fixture) count(table string) int64 {
	f.t.Helper()

	var n int64
	if err := f.store.DB().GetContext(f.ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		f.t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

func (f *fixture) exists(table string, id int64) bool {
	f.t.Helper()

	var n int
	if err := f.store.DB().GetContext(f.ctx, &n, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id); err != nil {
		f.t.Fatalf("lookup %s/%d failed: %v", table, id, err)
	}
	return n == 1
}

func (f *fixture) cycle(closesAt time.Time) int64 {
	return f.insert("INSERT INTO order_cycles (name, orders_close_at) VALUES (?, ?)", "cycle", closesAt.UTC())
}

func (f *fixture) order(cycleID int64) int64 {
	return f.insert("INSERT INTO spree_orders (number, order_cycle_id) VALUES (?, ?)", "R123", cycleID)
}

func (f *fixture) lineItem(orderID int64) int64 {
	return f.insert("INSERT INTO spree_line_items (order_id) VALUES (?)", orderID)
}

func (f *fixture) payment(orderID int64) int64 {
	return f.insert("INSERT INTO spree_payments (order_id, amount) VALUES (?, ?)", orderID, 10)
}

func (f *fixture) shipment(orderID int64) int64 {
	return f.insert("INSERT INTO spree_shipments (order_id) VALUES (?)", orderID)
}

func (f *fixture) returnAuthorization(orderID int64) int64 {
	return f.insert("INSERT INTO spree_return_authorizations (order_id) VALUES (?)", orderID)
}

func (f *fixture) inventoryUnit(orderID, shipmentID any) int64 {
	return f.insert("INSERT INTO spree_inventory_units (order_id, shipment_id) VALUES (?, ?)", orderID, shipmentID)
}

func (f *fixture) adjustment(src AdjustmentSource, sourceID int64) int64 {
	return f.insert("INSERT INTO spree_adjustments (source_type, source_id, amount) VALUES (?, ?, ?)",
		src.SourceType(), sourceID, 1)
}

func (f *fixture) schedule(cycleID int64) int64 {
	return f.insert("INSERT INTO order_cycle_schedules (order_cycle_id, schedule_id) VALUES (?, ?)", cycleID, 1)
}

func (f *fixture) proxyOrder(cycleID int64, orderID any) int64 {
	return f.insert("INSERT INTO proxy_orders (order_cycle_id, order_id) VALUES (?, ?)", cycleID, orderID)
}

func (f *fixture) coordinatorFee(cycleID int64) int64 {
	return f.insert("INSERT INTO coordinator_fees (order_cycle_id, enterprise_fee_id) VALUES (?, ?)", cycleID, 1)
}

func (f *fixture) exchange(cycleID int64) int64 {
	return f.insert("INSERT INTO exchanges (order_cycle_id) VALUES (?)", cycleID)
}

func (f *fixture) exchangeVariant(exchangeID int64) int64 {
	return f.insert("INSERT INTO exchange_variants (exchange_id, variant_id) VALUES (?, ?)", exchangeID, 1)
}

func (f *fixture) exchangeFee(exchangeID int64) int64 {
	return f.insert("INSERT INTO exchange_fees (exchange_id, enterprise_fee_id) VALUES (?, ?)", exchangeID, 1)
}

func (f *fixture) createdAt(table string, at time.Time) int64 {
	column := map[string]string{
		TableTokenizedPermissions: "token",
		TableStateChanges:         "name",
		TableLogEntries:           "details",
		TableSessions:             "session_id",
	}[table]
	return f.insert("INSERT INTO "+table+" ("+column+", created_at) VALUES (?, ?)", "x", at.UTC())
}

// fullCycle populates every cycle-rooted table for one order cycle and
// returns the number of rows it created per table.
func (f *fixture) fullCycle(closesAt time.Time) map[string]int64 {
	cycleID := f.cycle(closesAt)
	orderID := f.order(cycleID)

	lineItemID := f.lineItem(orderID)
	paymentID := f.payment(orderID)
	shipmentID := f.shipment(orderID)
	f.returnAuthorization(orderID)

	f.inventoryUnit(orderID, shipmentID)
	f.inventoryUnit(nil, shipmentID)

	f.adjustment(AdjustmentOnOrder, orderID)
	f.adjustment(AdjustmentOnShipment, shipmentID)
	f.adjustment(AdjustmentOnPayment, paymentID)
	f.adjustment(AdjustmentOnLineItem, lineItemID)

	f.schedule(cycleID)
	f.proxyOrder(cycleID, orderID)
	f.coordinatorFee(cycleID)

	exchangeID := f.exchange(cycleID)
	f.exchangeVariant(exchangeID)
	f.exchangeFee(exchangeID)

	return map[string]int64{
		TableOrderCycles:          1,
		TableOrders:               1,
		TableLineItems:            1,
		TablePayments:             1,
		TableShipments:            1,
		TableReturnAuthorizations: 1,
		TableInventoryUnits:       2,
		TableAdjustments:          4,
		TableOrderCycleSchedules:  1,
		TableProxyOrders:          1,
		TableCoordinatorFees:      1,
		TableExchanges:            1,
		TableExchangeVariants:     1,
		TableExchangeFees:         1,
	}
}

// fakeRecorder captures metrics calls.
type fakeRecorder struct {
	mu      sync.Mutex
	runs    map[string]int
	deleted map[string]int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{runs: make(map[string]int), deleted: make(map[string]int64)}
}

func (r *fakeRecorder) ObserveRun(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[status]++
}

func (r *fakeRecorder) AddDeleted(table string, rows int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[table] += rows
}
