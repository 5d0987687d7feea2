// Package users loads the import file listing the users to create.
//
// The file is a YAML (or, with a .json extension, JSON) list of records with
// name, password and roles keys, all required. Roles may be an empty list.
// Duplicate names are rejected before anything is sent to the server.
package users
