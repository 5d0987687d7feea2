// Package populate runs the complete provisioning of an Identity Server.
//
// A run reconciles the OAuth2 application first and stops if that fails.
// It then creates the roles named in the users file, creates the users with
// their roles plus Application/<name>, resolves role member ids from the
// directory and finally requests a token as the configured check user.
//
//	result, err := populate.Run(ctx, cfg, list, logger)
//	populate.PrintResult(os.Stdout, result)
package populate
