// Package scim is a small SCIM2 client for the Identity Server /scim2 API,
// covering the Users and Groups collections.
//
// A POST that the server rejects with 409 Conflict is reported as a nil entity
// and a nil error so that re-running an import is harmless.
package scim
