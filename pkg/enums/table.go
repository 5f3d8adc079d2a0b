package enums

import "fmt"

// Table names the relation a domain event or action refers to.
type Table string

const (
	TableOrders          Table = "orders"
	TableOrderItems      Table = "order_items"
	TableTicketInstances Table = "ticket_instances"
	TablePayments        Table = "payments"
	TableUsers           Table = "users"
)

var validTables = []Table{
	TableOrders,
	TableOrderItems,
	TableTicketInstances,
	TablePayments,
	TableUsers,
}

// String implements fmt.Stringer.
func (v Table) String() string {
	return string(v)
}

// IsValid reports whether the value is a known Table.
func (v Table) IsValid() bool {
	for _, candidate := range validTables {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTable converts raw input into a Table.
func ParseTable(value string) (Table, error) {
	for _, candidate := range validTables {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table %q", value)
}
