package connectors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrServerStatus помечает ответы 5xx для предохранителя.
// До клиента API такой ответ доходит как обычный HTTP-ответ.
var ErrServerStatus = errors.New("server returned 5xx")

type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }

// ThrottleFromResponse строит ThrottleError для 429, читая Retry-After в секундах.
func ThrottleFromResponse(resp *http.Response) *ThrottleError {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	wait := time.Second
	if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
		wait = time.Duration(s) * time.Second
	}
	return &ThrottleError{RetryAfter: wait, Cause: errors.New(resp.Status)}
}
