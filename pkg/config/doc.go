// Package config loads and validates the configuration of a populate run.
//
// Values come from the process environment and, optionally, a .env file, read
// with cleanenv struct tags. Defaults match a stock local Identity Server:
//
//	WSO2_HOST                            https://localhost:9443
//	AUTHENTICATION_CREDENTIALS_USERNAME  admin
//	AUTHENTICATION_CREDENTIALS_PASSWORD  admin
//	APPLICATION_NAME                     portaloauth
//	AUTH_SERVER_CLIENTKEY                random, 30 chars of [A-Za-z0-9_]
//	AUTH_SERVER_CLIENTSECRET             random, 30 chars
//	USERS_FILE                           imports/users.yaml
//	INSECURE_SKIP_VERIFY                 true
//	HTTP_TIMEOUT                         30s
//	IMPORT_CONCURRENCY                   8
//	TOKEN_CHECK_USERNAME                 portaladmin
//	TOKEN_SCOPE                          openid
//	LOG_LEVEL                            info
//
// # Validation
//
// Load returns ValidationErrors when the host is not an https URL, the client key
// does not match ClientKeyPattern, or a required value is empty. Validation runs
// before any client is constructed.
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		var verrs config.ValidationErrors
//		if errors.As(err, &verrs) {
//			for _, v := range verrs {
//				slog.Error("invalid setting", "field", v.Field, "reason", v.Message)
//			}
//		}
//		os.Exit(1)
//	}
//
// The helpers in validation.go (RequireNonEmpty, RequireHTTPSURL, RequireMatch,
// CollectErrors, ...) compose into a Validate method for any config struct.
package config
