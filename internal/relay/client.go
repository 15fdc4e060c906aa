package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cipherline/internal/domain"
)

// ErrNotFound is returned when the relay has no bundle for a user.
var ErrNotFound = errors.New("relay: not found")

// HTTP is a RelayClient speaking JSON over HTTP.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base.
func NewHTTP(base string) *HTTP { return &HTTP{Base: base, HTTP: http.DefaultClient} }

func (c *HTTP) RegisterPreKeys(ctx context.Context, reg domain.PreKeyRegistration) error {
	return c.post(ctx, "/register", reg, nil)
}

func (c *HTTP) FetchPreKeyBundle(ctx context.Context, username domain.Username) (domain.PreKeyBundle, error) {
	var out domain.PreKeyBundle
	if err := c.getJSON(ctx, "/prekey/"+url.PathEscape(string(username)), &out); err != nil {
		return domain.PreKeyBundle{}, err
	}
	return out, nil
}

func (c *HTTP) SendMessage(ctx context.Context, env domain.Envelope) error {
	// env.PreKey is serialised if non-nil
	return c.post(ctx, "/msg/"+url.PathEscape(string(env.To)), env, nil)
}

func (c *HTTP) FetchMessages(ctx context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(string(username))
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *HTTP) AckMessages(ctx context.Context, username domain.Username, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(string(username))+"/ack", ackRequest{Count: count}, nil)
}

type ackRequest struct {
	Count int `json:"count"`
}

func (c *HTTP) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTP) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("relay %s %s: %w", req.Method, req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.RelayClient = (*HTTP)(nil)
