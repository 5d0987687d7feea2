// Package token requests OAuth2 tokens from the Identity Server and inspects
// the access tokens it returns.
package token
