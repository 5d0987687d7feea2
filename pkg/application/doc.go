// Package application reconciles the OAuth2 service provider on the Identity
// Server.
//
// Reconciliation is a fixed sequence of SOAP calls run by Reconciler:
//
//	delete -> register -> create -> fetch_id -> update
//
// Each call is a Step and the remote calls sit behind the API interface, so
// steps can be replaced or tested in isolation. If register succeeds and
// create then fails, the server is left with an OAuth registration that can be
// neither recreated nor deleted; Reconcile reports that as
// ErrOrphanedRegistration and does not try to recover.
package application
