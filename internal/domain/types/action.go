package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionFindCandidates  = "find_candidates"
	ActionCreateRide      = "create_ride"
	ActionRequestRide     = "request_ride"
	ActionRespondRequest  = "respond_request"
	ActionCancelRequest   = "cancel_request"
	ActionRequestTimeout  = "request_timeout"
	ActionRestorePending  = "restore_pending_requests"
	ActionMarkPickup      = "mark_pickup"
	ActionCompleteRide    = "complete_ride"
	ActionRateRide        = "rate_ride"
	ActionSettleRide      = "settle_ride"
	ActionTopUp           = "wallet_topup"
	ActionConfirmTopUp    = "wallet_topup_confirm"
	ActionFailTopUp       = "wallet_topup_failed"
	ActionRefund          = "refund_payment"
	ActionReconcile       = "wallet_reconcile"
	ActionQuote           = "fare_quote"
	ActionNotify          = "notify"
	ActionLocationUpdate  = "driver_location_update"
	ActionDriverOnline    = "driver_online"
	ActionDriverOffline   = "driver_offline"
	ActionStatement       = "wallet_statement"
	ActionConsumeLocation = "consume_driver_location"
	ActionStripeWebhook   = "stripe_webhook"
)
