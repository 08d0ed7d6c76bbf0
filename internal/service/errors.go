package service

import (
	"errors"

	"ytai/internal/domain"
)

const (
	msgInvalidInput = "The input is not valid. Please check the video URL and try again."
	msgNotFound     = "Unfortunately, no transcript was found for this video, or it has not been processed yet."
	msgAuth         = "The model provider rejected the API key. Please check your credentials."
	msgPartial      = "The video could not be fully processed. Please try processing it again."
	msgProvider     = "An external service failed to respond properly. Please try again later."
	msgUnexpected   = "An unexpected error occurred. If you run the app locally, you can view the logs to see details about the error."
)

// UserMessage converts err into a short message for the end user.
// Context window errors are shown as they are since they list remediation options.
func UserMessage(err error) string {
	var capErr *domain.CapacityError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &capErr):
		return capErr.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return msgInvalidInput
	case errors.Is(err, domain.ErrAuth):
		return msgAuth
	case errors.Is(err, domain.ErrPartialIndexing):
		return msgPartial
	case errors.Is(err, domain.ErrNotFound):
		return msgNotFound
	case errors.Is(err, domain.ErrProvider):
		return msgProvider
	default:
		return msgUnexpected
	}
}
