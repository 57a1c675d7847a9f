// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// SessionCookieName carries the session token for browser clients
	SessionCookieName = "session"
	// TokenQueryParam carries the session token for EventSource clients, which cannot set headers
	TokenQueryParam = "token"
	// ProducerKeyHeader authorises producers to target other recipients or the global list
	ProducerKeyHeader = "X-Producer-Key"
	// RecipientKey is the context key for storing the resolved recipient identity
	RecipientKey = "recipient"
)
