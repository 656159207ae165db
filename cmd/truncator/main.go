// Truncator deletes old order cycle data from an Open Food Network database.
//
// Order cycles whose orders closed more than the retention window ago are
// removed together with their orders, line items, payments, shipments,
// adjustments, exchanges and fees. Old tokenized permissions, state
// changes, log entries and sessions are removed on their own windows.
//
// Usage:
//
//	# Keep the last 3 months (the default)
//	truncator purge --config truncator.yaml
//
//	# Keep 6 months and show what would be deleted
//	truncator purge --months 6 --dry-run
//
//	# Print the deletion order
//	truncator plan
//
//	# Run nightly according to retention.schedule
//	truncator schedule --config truncator.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
