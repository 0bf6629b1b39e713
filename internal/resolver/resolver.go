package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/manifest"
)

const (
	// SubjectNode resolves runtime versions.
	SubjectNode = "node"
	// SubjectNpm resolves package-manager versions.
	SubjectNpm = "npm"

	// maxResponseBytes caps the resolver answer; a version is a few dozen bytes.
	maxResponseBytes = 1 << 10
)

var (
	errBadHTTPStatus  = errors.New("unexpected http status")
	errInvalidVersion = errors.New("resolver returned an invalid version")
)

// Client talks to the resolution service.
type Client struct {
	// baseURL is the service root; subjects are appended as path segments.
	baseURL string
	// httpClient performs the requests.
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every request. Zero keeps requests unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Resolve asks the service for the version of subject that satisfies rng.
// An empty range asks for the latest stable version.
func (c *Client) Resolve(ctx context.Context, subject, rng string) (string, error) {
	resolveURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	resolveURL.Path = path.Join("/", resolveURL.Path, subject, "resolve")

	query := resolveURL.Query()
	query.Set("range", rng)
	resolveURL.RawQuery = query.Encode()

	finalURL := resolveURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return "", err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", subject, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", subject, err)
	}

	version := strings.TrimPrefix(strings.TrimSpace(string(body)), "v")
	if !semver.IsValid("v" + version) {
		return "", fmt.Errorf("%s %q: %w", subject, version, errInvalidVersion)
	}

	return version, nil
}

// ResolveVersions resolves the runtime and, when requested, the npm version of m.
func (c *Client) ResolveVersions(ctx context.Context, m *manifest.Manifest) (build.Versions, error) {
	var versions build.Versions

	nodeRange := m.NodeRange()

	logger.Status(ctx, "Requested node range: %s", nodeRange)
	Advise(nodeRange).Log(ctx)

	node, err := c.Resolve(ctx, SubjectNode, nodeRange)
	if err != nil {
		return versions, err
	}

	versions.Node = node
	logger.Status(ctx, "Resolved node version: %s", node)

	npmRange := m.NpmRange()
	if npmRange == "" {
		logger.Debug(ctx, "engines.npm is unset, keeping the bundled npm")
		return versions, nil
	}

	logger.Status(ctx, "Requested npm range: %s", npmRange)

	npm, err := c.Resolve(ctx, SubjectNpm, npmRange)
	if err != nil {
		return versions, err
	}

	versions.Npm = npm
	logger.Status(ctx, "Resolved npm version: %s", npm)

	return versions, nil
}
