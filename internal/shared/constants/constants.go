package constants

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// gin context keys set by the auth middleware
const (
	ContextKeyUserID  = "user_id"
	ContextKeyEmail   = "email"
	ContextKeyIsAdmin = "is_admin"
	ContextKeyRole    = "role"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	HeaderStripeSignature = "Stripe-Signature"
	// Stripe sets no size cap; this only guards against runaway bodies
	MaxWebhookBodyBytes = int64(2 << 20)
)
