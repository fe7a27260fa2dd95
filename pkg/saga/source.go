package saga

// Source identifies which participant produced the current envelope version.
type Source string

const (
	SourceOrchestrator      Source = "ORCHESTRATOR"
	SourceProductValidation Source = "PRODUCT_VALIDATION_SERVICE"
	SourcePayment           Source = "PAYMENT_SERVICE"
	SourceInventory         Source = "INVENTORY_SERVICE"
)
