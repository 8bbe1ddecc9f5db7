package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/rocketshoes/pkg/errors"
)

// maxErrorBody caps how much of a failed response body is read.
const maxErrorBody = 1 << 20

// downstreamError matches the {"error":{"code","message"}} envelope written
// by httputil.WriteJSON, so structured errors survive a hop.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError drains and closes a non-2xx response and translates it
// into an error. 404 becomes a NotFound AppError for resource/id; 5xx wraps
// ErrBadGateway; other 4xx keep their status.
func ParseResponseError(resp *http.Response, resource, id string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s %s: status %d (read body: %w)", resource, id, resp.StatusCode, err)
	}

	message := string(body)
	code := ""
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		message = downstream.Error.Message
		code = downstream.Error.Code
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s lookup unavailable: %s", resource, message))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: upstream status %d %s: %s: %w", resource, id, resp.StatusCode, code, message, apperrors.ErrBadGateway)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(fmt.Sprintf("%s %s: %s", resource, id, message))
	default:
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		return &apperrors.AppError{
			Code:    code,
			Message: fmt.Sprintf("%s %s: %s", resource, id, message),
			Status:  resp.StatusCode,
		}
	}
}
