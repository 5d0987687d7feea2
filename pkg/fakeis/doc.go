// Package fakeis is an in-memory stand-in for the Identity Server, used by
// tests of the populate flow.
//
// It serves /scim2 Users and Groups, the IdentityApplicationManagementService,
// OAuthAdminService and RemoteUserStoreManagerService SOAP operations, and the
// password grant of /oauth2/token. Error answers use the real services' status
// codes and fault texts. Deleting a service provider only removes the OAuth
// registration it is linked to, so a registration left without a service
// provider blocks later registrations with the same name or key.
//
//	srv := httptest.NewTLSServer(fakeis.New())
//	defer srv.Close()
package fakeis
