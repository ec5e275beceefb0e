// Package gwerrors contains all common errors used by the gateway.
package gwerrors

import (
	"fmt"
	"net/http"
)

var ErrMissingCredentials = fmt.Errorf("the required credentials cannot be found")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")
var ErrStoreUnavailable = fmt.Errorf("the credential store is unavailable")
var ErrNetwork = fmt.Errorf("the remote api cannot be reached")
var ErrHTTP = fmt.Errorf("the remote api responded with an error")
var ErrRefreshFailed = fmt.Errorf("the session expired and the credentials could not be refreshed")

// NetworkError is a transport level failure or a timeout when calling the remote API.
type NetworkError struct {
	Method string
	Path   string
	Cause  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, ErrNetwork, e.Cause)
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// HTTPError is a non-2xx response from the remote API.
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

func (e *HTTPError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// RefreshError is returned to every request of a refresh episode that could not be recovered.
type RefreshError struct {
	Key   string
	Cause error
}

func (e *RefreshError) Error() string {
	if e.Cause == nil {
		return ErrRefreshFailed.Error()
	}
	return fmt.Sprintf("%v: %v", ErrRefreshFailed, e.Cause)
}

func (e *RefreshError) Is(target error) bool {
	return target == ErrRefreshFailed
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// StoreError indicates that the credential storage medium failed.
type StoreError struct {
	Operation string
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credentials"
	if e.Key != "" {
		msg += " for " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
