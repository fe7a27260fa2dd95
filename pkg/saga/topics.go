package saga

// Canonical topics of the order-fulfillment saga. Each participant owns two
// subscriptions (forward, rollback) and publishes back to TopicOrchestrator;
// the orchestrator owns TopicStart and TopicOrchestrator and publishes to
// every other topic via the routing table.
const (
	TopicStart        = "orderflow.v1.saga.start"
	TopicOrchestrator = "orderflow.v1.saga.orchestrator"

	TopicProductValidationStart    = "orderflow.v1.saga.product-validation.start"
	TopicProductValidationRollback = "orderflow.v1.saga.product-validation.rollback"

	TopicPaymentStart    = "orderflow.v1.saga.payment.start"
	TopicPaymentRollback = "orderflow.v1.saga.payment.rollback"

	TopicInventoryStart    = "orderflow.v1.saga.inventory.start"
	TopicInventoryRollback = "orderflow.v1.saga.inventory.rollback"

	TopicFinishSuccess = "orderflow.v1.saga.finish.success"
	TopicFinishFail    = "orderflow.v1.saga.finish.fail"

	// TopicNotifyEnding delivers terminal envelopes back to the originator.
	TopicNotifyEnding = "orderflow.v1.saga.notify-ending"
)
