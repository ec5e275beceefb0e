package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/gwerrors"
)

// Result is the outcome of a typed API call. Exactly one of Data and Err is meaningful.
type Result[T any] struct {
	Data    T
	Status  int
	Message string
	Err     error
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Fetch sends the request and decodes the JSON response into T. It always returns a result,
// failures are reported in Err together with the status and message of the API when known.
func Fetch[T any](ctx context.Context, c *Client, store credentials.Store, req Request) (result Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = Result[T]{Err: fmt.Errorf("%s %s: unexpected failure: %v", req.Method, req.Path, r)}
			result.Message = result.Err.Error()
		}
	}()
	res, err := c.Do(ctx, store, req)
	if err != nil {
		result.Err = err
		result.Message = err.Error()
		var httpErr *gwerrors.HTTPError
		if errors.As(err, &httpErr) {
			result.Status = httpErr.Status
			result.Message = httpErr.Message
		}
		return result
	}
	result.Status = res.Status
	err = res.Decode(&result.Data)
	if err != nil {
		result.Err = fmt.Errorf("%s %s: cannot decode the response: %w", req.Method, req.Path, err)
		result.Message = result.Err.Error()
	}
	return result
}

// Call is Fetch for callers that prefer the usual value and error pair.
func Call[T any](ctx context.Context, c *Client, store credentials.Store, req Request) (T, error) {
	result := Fetch[T](ctx, c, store, req)
	return result.Data, result.Err
}
