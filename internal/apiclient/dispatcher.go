package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/playarena/arena-gateway/internal/credentials"
	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/utils"
)

const defaultRequestTimeout time.Duration = 20 * time.Second

// Dispatcher performs single calls to the remote API and attaches the stored access token.
// It never retries.
type Dispatcher struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
}

func NewDispatcher(baseURL *url.URL, httpClient *http.Client, timeout time.Duration) (*Dispatcher, error) {
	if baseURL == nil {
		return nil, fmt.Errorf("the dispatcher requires the base url of the api")
	}
	if httpClient == nil {
		httpClient = newHTTPClient(false)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Dispatcher{baseURL: baseURL, httpClient: httpClient, timeout: timeout}, nil
}

func newHTTPClient(insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 development only
	}
	return &http.Client{Transport: transport}
}

// Do sends the request once. The store may be nil for unauthenticated calls.
func (d *Dispatcher) Do(ctx context.Context, store credentials.Store, req Request) (*Response, error) {
	res, _, err := d.send(ctx, store, req)
	return res, err
}

// send returns the access token that was attached so that callers can tell whether the
// credentials changed while the request was in flight.
func (d *Dispatcher) send(ctx context.Context, store credentials.Store, req Request) (*Response, string, error) {
	token := req.Token
	if token == "" && store != nil {
		pair, err := store.Get(ctx)
		if err != nil {
			slog.Warn(
				"API DISPATCHER",
				"message",
				"credential store unavailable, sending the request without credentials",
				"key",
				store.Key(),
				"error",
				err,
			)
		} else if pair != nil {
			token = pair.AccessToken
		}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	httpReq, err := d.newHTTPRequest(ctx, req, token)
	if err != nil {
		return nil, token, err
	}
	httpRes, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, token, &gwerrors.NetworkError{Method: req.Method, Path: req.Path, Cause: err}
	}
	defer httpRes.Body.Close()
	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return nil, token, &gwerrors.NetworkError{Method: req.Method, Path: req.Path, Cause: err}
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return nil, token, &gwerrors.HTTPError{
			Method:  req.Method,
			Path:    req.Path,
			Status:  httpRes.StatusCode,
			Message: errorMessage(httpRes.StatusCode, body),
			Body:    body,
		}
	}
	return &Response{Status: httpRes.StatusCode, Header: httpRes.Header, Body: body}, token, nil
}

func (d *Dispatcher) newHTTPRequest(ctx context.Context, req Request, token string) (*http.Request, error) {
	target := d.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	if httpReq.Header.Get(echo.HeaderXRequestID) == "" {
		requestID := utils.RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		httpReq.Header.Set(echo.HeaderXRequestID, requestID)
	}
	httpReq.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if len(req.Body) > 0 && httpReq.Header.Get(echo.HeaderContentType) == "" {
		httpReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		httpReq.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return httpReq, nil
}

// errorMessage reads the message of an API error response, falling back to the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(status)
}
