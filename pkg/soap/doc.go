// Package soap is the transport for the Identity Server admin services
// (/services/<Service>, one SOAPAction per operation).
//
// Envelopes are text templates owned by the packages that call each service;
// this package only renders them with XML escaping, posts them, and turns
// error answers into *errors.RemoteError with the fault string extracted.
// Response parsing is done with FindElementText because the server's namespace
// prefixes change between versions and responses.
package soap
