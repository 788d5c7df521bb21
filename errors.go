package mosyle

import "fmt"

// AuthError reports a failed attempt to obtain a bearer credential from the
// login endpoint. StatusCode is 0 when the failure happened before an HTTP
// status was received (e.g. the transport itself failed).
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mosyle: no bearer token available: %s (HTTP %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("mosyle: no bearer token available: %s", e.Reason)
}

// UnsupportedMethodError reports an HTTP verb the client does not dispatch.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("mosyle: unsupported request method: %s", e.Method)
}

// StatusError reports a non-200 HTTP status from the API.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mosyle: did not receive success, instead HTTP %d", e.StatusCode)
}

// DecodeError reports a response body that could not be decoded as JSON.
type DecodeError struct {
	Err  error
	Body []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mosyle: received non-JSON response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError reports an envelope that decoded as JSON but did not carry
// status "OK". Status holds the value the server reported, empty when the
// status field was missing entirely.
type APIError struct {
	Status string
}

func (e *APIError) Error() string {
	if e.Status == "" {
		return "mosyle: response envelope is missing a status field"
	}
	return fmt.Sprintf("mosyle: received status %q instead of OK", e.Status)
}

// EmptyResponseError reports an endpoint that was expected to return at
// least one element but returned none.
type EmptyResponseError struct {
	Path string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("mosyle: %s returned an empty result list", e.Path)
}
