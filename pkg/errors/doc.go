// Package errors provides structured error handling with error codes for wso2is-populate.
//
// Every failure that leaves a package boundary is an *Error carrying an ErrorCode,
// so the orchestrator can tell the error classes apart without string matching:
//
//   - ErrCodeAlreadyExists / ErrCodeNotFound: expected outcomes that callers usually swallow
//   - ErrCodeValidationFailed / ErrCodeInvalidInput: bad config or import records, raised before any request
//   - ErrCodeRemoteFault / ErrCodeTransport / ErrCodeUnexpectedResponse: remote call failures
//   - ErrCodeOrphanedRegistration: the application reconciler hit the unrecoverable state
//
// # Basic Usage
//
//	err := errors.Wrap(httpErr, errors.ErrCodeTransport, "POST /scim2/Users")
//
//	if errors.IsCode(err, errors.ErrCodeAlreadyExists) {
//		// treat as success
//	}
//
// IsCode walks the whole chain, so a transport error wrapped by a step error still
// matches ErrCodeTransport.
package errors
