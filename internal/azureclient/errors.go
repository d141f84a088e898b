package azureclient

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// IsNotFoundError checks if the error is an error from azure SDK and 404 NotFound error.
// Throttling, permission and server errors are not absence and must be surfaced.
func IsNotFoundError(err error) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.StatusCode == http.StatusNotFound
}

// ErrorCode returns the ARM error code of an SDK response error, if any.
func ErrorCode(err error) string {
	var azErr *azcore.ResponseError
	if errors.As(err, &azErr) {
		return azErr.ErrorCode
	}
	return ""
}
