package middleware

import (
	"net/url"

	"notification_hub/internal/common"
)

// redactToken hides the session token that stream clients pass in the query string.
func redactToken(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil || !values.Has(common.TokenQueryParam) {
		return rawQuery
	}
	values.Set(common.TokenQueryParam, "REDACTED")
	return values.Encode()
}
