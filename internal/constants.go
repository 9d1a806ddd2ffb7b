package internal

const (
	DotEnvPath    = "./.env"
	MigrationsDir = "migrations"
	// Layout sqlite's current_timestamp produces, used for every
	// timestamp bound as text.
	DBTimestampLayout     = "2006-01-02 15:04:05"
	SessionCookie         = "session"
	WebhookKeyHeader      = "X-MatrixCI-Webhook-Key"
	WebhookDeliveryHeader = "X-MatrixCI-Delivery"
)
