package classify

import "fmt"

// InvalidURLError is returned when a URL is malformed, not absolute, uses a
// scheme other than http/https, or fails IDNA conversion.
type InvalidURLError struct {
	URL string
	Err error
}

// Error implements the error interface for *InvalidURLError.
func (err *InvalidURLError) Error() (msg string) {
	return fmt.Sprintf("invalid url %q: %s", err.URL, err.Err)
}

// Unwrap returns the underlying error.
func (err *InvalidURLError) Unwrap() (unwrapped error) {
	return err.Err
}

// TooManyRedirectsError is returned when a probe follows more redirect hops
// than the configured limit without reaching a final response.
type TooManyRedirectsError struct {
	Count int
}

// Error implements the error interface for *TooManyRedirectsError.
func (err *TooManyRedirectsError) Error() (msg string) {
	return fmt.Sprintf("too many redirects (%d)", err.Count)
}

// ServerDisconnectedError is returned when the peer closes the connection
// before sending a complete HTTP response.
type ServerDisconnectedError struct {
	Err error
}

// Error implements the error interface for *ServerDisconnectedError.
func (err *ServerDisconnectedError) Error() (msg string) {
	return fmt.Sprintf("server disconnected: %s", err.Err)
}

// Unwrap returns the underlying error.
func (err *ServerDisconnectedError) Unwrap() (unwrapped error) {
	return err.Err
}

// BadHTTPError is returned when the peer sends a response that does not
// parse as a well-formed HTTP message.
type BadHTTPError struct {
	Err error
}

// Error implements the error interface for *BadHTTPError.
func (err *BadHTTPError) Error() (msg string) {
	return fmt.Sprintf("malformed http response: %s", err.Err)
}

// Unwrap returns the underlying error.
func (err *BadHTTPError) Unwrap() (unwrapped error) {
	return err.Err
}
