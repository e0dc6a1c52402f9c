package ups

import "fmt"

// ValidationError means the inbound shipment request failed the
// pre-flight structure check. No network call was made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid shipment request: %v", e.Fields)
}

// AuthError means the OAuth token exchange with the carrier failed.
// Status is 0 when the request never completed.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("carrier authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("carrier authentication failed: status %d: %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CarrierError covers both transport failures reaching the carrier and
// carrier-declared application errors (faults, embedded error
// descriptions). Status is the upstream HTTP status, 0 when the request
// never completed.
type CarrierError struct {
	Status  int
	Message string
	Body    string
	Err     error
}

func (e *CarrierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("carrier error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("carrier error: %s", e.Message)
}

func (e *CarrierError) Unwrap() error { return e.Err }

// Connectivity reports whether the error came from failing to reach the
// carrier at all, as opposed to an application-level rejection.
func (e *CarrierError) Connectivity() bool { return e.Status == 0 }

// IncompleteSuccessError means the carrier claimed success but the
// payload was missing a required field. This is an integration error,
// not a crash.
type IncompleteSuccessError struct {
	Missing string
}

func (e *IncompleteSuccessError) Error() string {
	return fmt.Sprintf("carrier reported success but response is missing %s", e.Missing)
}

// UnrecognizedShapeError means the carrier response matched none of the
// known shapes. Raw keeps the payload for offline diagnosis.
type UnrecognizedShapeError struct {
	Raw []byte
}

func (e *UnrecognizedShapeError) Error() string {
	return fmt.Sprintf("unrecognized carrier response shape: %s", e.Raw)
}
