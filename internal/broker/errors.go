package broker

import (
	"errors"
	"fmt"
)

// ErrUnknownBroker is returned by the registry for names with no adapter.
var ErrUnknownBroker = errors.New("unknown broker")

// ValidationError reports a query with no usable filter for the chosen
// broker. It is raised before any remote call is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid broker query: " + e.Reason
}

// RemoteError reports a failed remote broker call: a non-2xx status, a
// transport failure, or a response body that is not valid JSON. Status
// is zero when the request never produced a response.
type RemoteError struct {
	Broker string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote call failed with status %d: %v", e.Broker, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: remote call failed: %v", e.Broker, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NormalizeError reports a raw broker record that matches none of the
// known response shapes for that broker. One bad record inside a batch
// surfaces as a NormalizeError without aborting the rest of the batch.
type NormalizeError struct {
	Broker string
	Err    error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("%s: cannot normalize record: %v", e.Broker, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }
