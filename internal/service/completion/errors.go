package completion

import "fmt"

// Kind classifies a completion failure.
type Kind string

const (
	KindAuth        Kind = "auth_error"
	KindRateLimited Kind = "rate_limited"
	KindAPI         Kind = "api_error"
	KindTimeout     Kind = "timeout"
	KindTransport   Kind = "transport_error"
)

// Error is the single error type the client returns. API failures carry
// the HTTP status; transport failures carry a detail string.
type Error struct {
	Kind   Kind
	Status int
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return fmt.Sprintf("completion: api error (status %d)", e.Status)
	case KindTransport:
		return fmt.Sprintf("completion: transport error: %s", e.Detail)
	default:
		return fmt.Sprintf("completion: %s", e.Kind)
	}
}
