package metadata

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKeys     = errors.New("no TMDB API keys configured")
	ErrKeysExhausted = errors.New("all TMDB API keys were rejected")
)

// FetchError describes a failed TMDB request. Status is zero for transport failures.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("tmdb %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("tmdb %s: status %d: %v", e.Endpoint, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// rotatable reports whether the failure should move on to the next API key.
func rotatable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Status == http.StatusUnauthorized || fe.Status == http.StatusTooManyRequests
}
