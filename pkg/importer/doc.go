// Package importer creates the imported users and their roles.
//
// Users go through the SOAP user store service because the SCIM API cannot
// assign internal roles such as Application/<name> at creation time. Roles go
// through SCIM. Both are created concurrently with a bounded number of
// requests in flight; a failure is recorded for that entity and reported
// after the whole batch finished.
package importer
