package retention

import "fmt"

// AdjustmentSource is the target of an adjustment's polymorphic
// (source_type, source_id) reference.
type AdjustmentSource int

const (
	AdjustmentOnOrder AdjustmentSource = iota
	AdjustmentOnShipment
	AdjustmentOnPayment
	AdjustmentOnLineItem
)

// AdjustmentSources returns every source variant in deletion order.
func AdjustmentSources() []AdjustmentSource {
	return []AdjustmentSource{
		AdjustmentOnOrder,
		AdjustmentOnShipment,
		AdjustmentOnPayment,
		AdjustmentOnLineItem,
	}
}

// SourceType returns the discriminator stored in spree_adjustments.source_type.
func (s AdjustmentSource) SourceType() string {
	switch s {
	case AdjustmentOnOrder:
		return "Spree::Order"
	case AdjustmentOnShipment:
		return "Spree::Shipment"
	case AdjustmentOnPayment:
		return "Spree::Payment"
	case AdjustmentOnLineItem:
		return "Spree::LineItem"
	default:
		return ""
	}
}

// Table returns the table the source_id column points into.
func (s AdjustmentSource) Table() string {
	switch s {
	case AdjustmentOnOrder:
		return TableOrders
	case AdjustmentOnShipment:
		return TableShipments
	case AdjustmentOnPayment:
		return TablePayments
	case AdjustmentOnLineItem:
		return TableLineItems
	default:
		return ""
	}
}

// String returns a short name for logs and step names.
func (s AdjustmentSource) String() string {
	switch s {
	case AdjustmentOnOrder:
		return "order"
	case AdjustmentOnShipment:
		return "shipment"
	case AdjustmentOnPayment:
		return "payment"
	case AdjustmentOnLineItem:
		return "line_item"
	default:
		return fmt.Sprintf("AdjustmentSource(%d)", int(s))
	}
}

// eligibleIDs returns the subquery selecting eligible rows of the source table.
func (s AdjustmentSource) eligibleIDs() string {
	switch s {
	case AdjustmentOnOrder:
		return eligibleOrderIDs
	case AdjustmentOnShipment:
		return ownedByEligibleOrder(TableShipments)
	case AdjustmentOnPayment:
		return ownedByEligibleOrder(TablePayments)
	case AdjustmentOnLineItem:
		return ownedByEligibleOrder(TableLineItems)
	default:
		return ""
	}
}
