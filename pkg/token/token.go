package token

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Token is the response of the token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// Expiry converts ExpiresIn to an absolute time relative to issued.
func (t Token) Expiry(issued time.Time) time.Time {
	return issued.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Client requests tokens from <host>/oauth2/token as one OAuth client.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a token client. A nil httpClient gets a 30s timeout default.
func New(host, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:     strings.TrimRight(host, "/") + "/oauth2/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "token_client")),
	}
}

// PasswordGrant exchanges user credentials for a token.
func (c *Client) PasswordGrant(ctx context.Context, username, password, scope string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	if scope != "" {
		form.Set("scope", scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to build token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeTransport, "POST %s", c.endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransport, "read token response")
	}

	if resp.StatusCode != http.StatusOK {
		remote := &errors.RemoteError{Method: http.MethodPost, URL: c.endpoint, Status: resp.StatusCode, Body: string(body)}
		var oauthErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil {
			remote.Fault = strings.TrimSpace(oauthErr.Error + " " + oauthErr.Description)
		}
		return nil, errors.Wrapf(remote, errors.ErrCodeRemoteFault, "password grant for %s", username)
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnexpectedResponse, "decode token response")
	}
	if tok.AccessToken == "" {
		return nil, errors.New(errors.ErrCodeUnexpectedResponse, "token response has no access_token")
	}

	c.logger.Info("token issued", "user", username, "token_type", tok.TokenType, "expires_in", tok.ExpiresIn, "scope", tok.Scope)
	return &tok, nil
}
