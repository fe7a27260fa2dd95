package saga

// Route maps one (source, status) pair to the topic that receives the next
// message of the saga.
type Route struct {
	Source Source
	Status Status
	Topic  string
}

// Table is the ordered routing decision list. It encodes the full saga graph:
// forward edges (SUCCESS -> next step's forward topic), self-rollback edges
// (ROLLBACK_PENDING -> own rollback topic), and backward edges (FAIL ->
// previous step's rollback topic). Built once at startup, never mutated.
type Table struct {
	routes []Route
}

// NewTable creates a routing table from an ordered rule list. Resolution is
// a linear scan with first match winning, so a fallback entry may be placed
// last.
func NewTable(routes []Route) *Table {
	owned := make([]Route, len(routes))
	copy(owned, routes)
	return &Table{routes: owned}
}

// DefaultTable returns the routing table of the order-fulfillment saga:
// product validation, then payment, then inventory, with compensations
// cascading in reverse.
func DefaultTable() *Table {
	return NewTable([]Route{
		{SourceOrchestrator, StatusSuccess, TopicProductValidationStart},
		{SourceOrchestrator, StatusFail, TopicFinishFail},

		{SourceProductValidation, StatusRollbackPending, TopicProductValidationRollback},
		{SourceProductValidation, StatusFail, TopicFinishFail},
		{SourceProductValidation, StatusSuccess, TopicPaymentStart},

		{SourcePayment, StatusRollbackPending, TopicPaymentRollback},
		{SourcePayment, StatusFail, TopicProductValidationRollback},
		{SourcePayment, StatusSuccess, TopicInventoryStart},

		{SourceInventory, StatusRollbackPending, TopicInventoryRollback},
		{SourceInventory, StatusFail, TopicPaymentRollback},
		{SourceInventory, StatusSuccess, TopicFinishSuccess},
	})
}

// Resolve returns the topic for the envelope's (source, status) pair.
// ErrInvalidEvent when either field is missing, ErrNoRoute when the table
// has no matching entry.
func (t *Table) Resolve(event Event) (string, error) {
	if !event.Routable() {
		return "", ErrInvalidEvent
	}
	for _, route := range t.routes {
		if route.Source == event.Source && route.Status == event.Status {
			return route.Topic, nil
		}
	}
	return "", ErrNoRoute
}
