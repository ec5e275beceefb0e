package apiclient

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one call to the remote API. It is a plain value so that it can be
// replayed verbatim after a token refresh, only the Token changes.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
	// Token overrides the access token from the credential store when set
	Token string
}

func NewRequest(method, path string) Request {
	return Request{Method: method, Path: path}
}

// NewJSONRequest marshals the body once so that retries send the same bytes.
func NewJSONRequest(method, path string, body any) (Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Request{}, err
	}
	return Request{Method: method, Path: path, Body: raw}, nil
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into out, an empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}
