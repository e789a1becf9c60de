package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Utterance parsing and validation.
	ReasonValidation ReasonCode = "validation"
	ReasonNoIntent   ReasonCode = "no_intent"

	// Gateway failures classified from the HTTP status the payment
	// gateway returned.
	ReasonGatewayAuth                 ReasonCode = "gateway_auth"
	ReasonGatewayNotFound             ReasonCode = "gateway_not_found"
	ReasonGatewayRateLimit            ReasonCode = "gateway_rate_limit"
	ReasonGatewayInsufficientBalance  ReasonCode = "gateway_insufficient_balance"
	ReasonGatewayDuplicateTransaction ReasonCode = "gateway_duplicate_transaction"
	ReasonGatewayInvalidParams        ReasonCode = "gateway_invalid_params"
	ReasonGatewayUnavailable          ReasonCode = "gateway_unavailable"
	ReasonStatusCheck                 ReasonCode = "status_check"

	// Tool protocol failures reject only the affected call.
	ReasonProtocolTimeout      ReasonCode = "protocol_timeout"
	ReasonProtocolDisconnected ReasonCode = "protocol_disconnected"

	ReasonSessionExpired ReasonCode = "session_expired"
	ReasonUnknownTool    ReasonCode = "unknown_tool"
)
