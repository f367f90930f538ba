package tour

import (
	"errors"

	"github.com/aws/smithy-go"
)

// apiErrorCode returns the provider error code carried by err, or "".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isAPIError reports whether err carries one of the given provider codes.
func isAPIError(err error, codes ...string) bool {
	code := apiErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
