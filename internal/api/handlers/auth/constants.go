package auth

const (
	sessionCookie   = "boxview_session"
	sessionKeyField = "session_key"

	// SessionMaxAge bounds the browser cookie, not the tokens behind it;
	// those expire on the provider's schedule.
	SessionMaxAge = 7 * 24 * 60 * 60 // 7 days in seconds

	// MinCookieSecretLength is the minimum signing secret size in bytes.
	MinCookieSecretLength = 32
)
