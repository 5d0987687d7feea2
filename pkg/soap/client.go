package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Admin services exposed under /services.
const (
	ServiceApplicationManagement = "IdentityApplicationManagementService"
	ServiceUserStore             = "RemoteUserStoreManagerService"
	ServiceOAuthAdmin            = "OAuthAdminService"
)

const (
	contentType = "text/xml;charset=UTF-8"
	// The admin services fail with a 500 when asked for JSON.
	accept = "application/xml"
)

// Response is a successful SOAP answer.
type Response struct {
	Status int
	Body   []byte
}

// Client posts SOAP envelopes to the admin services of one server.
type Client struct {
	baseURL  string
	username string
	password string

	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a SOAP client for host (https://host:port) authenticated
// with basic auth. A nil httpClient gets a 30s timeout default.
func New(host, username, password string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(host, "/") + "/services",
		username:   username,
		password:   password,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "soap_client")),
	}
}

// URL returns the endpoint of a service.
func (c *Client) URL(service string) string {
	return c.baseURL + "/" + service
}

// Call posts envelope to service with SOAPAction urn:<action>. Non-2xx answers
// are returned as *errors.RemoteError carrying the parsed fault string.
func (c *Client) Call(ctx context.Context, service, action string, envelope []byte) (*Response, error) {
	url := c.URL(service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to build SOAP request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", accept)
	req.Header.Set("SOAPAction", "urn:"+action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeTransport, "%s %s", action, url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeTransport, "read %s response", action)
	}

	c.logger.Debug("SOAP call", "service", service, "action", action, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &errors.RemoteError{
			Method: http.MethodPost,
			URL:    url,
			Status: resp.StatusCode,
			Body:   string(body),
		}
		if f, ok := ParseFault(body); ok {
			remote.Fault = f.String
		}
		return nil, errors.Wrapf(remote, errors.ErrCodeRemoteFault, "%s failed", action)
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// RoundTrip renders tmpl with data and calls action on service.
func (c *Client) RoundTrip(ctx context.Context, service, action string, tmpl Template, data any) (*Response, error) {
	envelope, err := tmpl.Render(data)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, service, action, envelope)
}

// Describe is used in log lines for requests and responses.
func (r *Response) Describe() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("status=%d bytes=%d", r.Status, len(r.Body))
}
