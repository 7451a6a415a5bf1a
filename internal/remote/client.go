// Package remote implements the node fetch transport for tree pulls.
//
// The server authorizes one anchor per tree root; every node below it is
// addressed by a "~"-delimited child-index navigation path, so the
// transport re-derives authorization from the root alone instead of
// checking every node.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultAttempts = 3
)

// Client talks to a casfa tree endpoint.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	log      *logrus.Logger
	attempts uint
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger substitutes the logger.
func WithLogger(log *logrus.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithAttempts sets how often a transient fetch failure is retried.
func WithAttempts(n uint) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// NewClient creates a client for the endpoint at baseURL. token is sent as
// a bearer credential on every request.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      logrus.StandardLogger(),
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TreeFetcher binds the client to one authorized tree root.
func (c *Client) TreeFetcher(rootKey string) *TreeFetcher {
	return &TreeFetcher{client: c, rootKey: rootKey}
}

// TreeFetcher fetches nodes below a single authorized root. It satisfies
// the engine's NodeFetcher contract: a missing node returns (nil, nil) and
// the puller abandons that branch.
type TreeFetcher struct {
	client  *Client
	rootKey string
}

// FetchNode retrieves the node at navPath under the fetcher's root.
func (f *TreeFetcher) FetchNode(ctx context.Context, navPath string) ([]byte, error) {
	c := f.client
	endpoint := fmt.Sprintf("%s/v1/trees/%s/nodes?nav=%s", c.baseURL, f.rootKey, url.QueryEscape(navPath))

	var body []byte
	var notFound bool
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				notFound = true
				return nil
			case resp.StatusCode >= http.StatusInternalServerError:
				return fmt.Errorf("server error: %s", resp.Status)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("unexpected status %s", resp.Status))
			}

			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(c.attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithFields(logrus.Fields{
				"root":    f.rootKey,
				"navPath": navPath,
				"attempt": n + 1,
			}).WithError(err).Warn("retrying node fetch")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch node %q: %w", navPath, err)
	}
	if notFound {
		c.log.WithFields(logrus.Fields{"root": f.rootKey, "navPath": navPath}).Debug("remote node not found")
		return nil, nil
	}

	c.log.WithFields(logrus.Fields{"root": f.rootKey, "navPath": navPath, "bytes": len(body)}).Debug("fetched node")
	return body, nil
}
