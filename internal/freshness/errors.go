package freshness

import (
	"errors"
	"fmt"
	"time"
)

// ErrThrottled is matched by errors.Is for every *ThrottledError.
var ErrThrottled = errors.New("refresh throttled")

// FetchError is a data source failure for one location.
type FetchError struct {
	LocationID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch weather for %q: %v", e.LocationID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ThrottledError is returned by a manual refresh that came too soon.
type ThrottledError struct {
	LocationID string
	Remaining  time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("refresh for %q throttled, retry in %s", e.LocationID, e.Remaining.Round(time.Second))
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}
