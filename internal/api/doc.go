// Package api wraps the Ring REST endpoints used alongside the token
// lifecycle: session registration, device and location listings, and the
// tickets that authorise event channel connections.
//
// Every call takes the token snapshot to authenticate with. Obtaining a
// fresh snapshot is the caller's job (see pkg/auth.Manager.CurrentTokens);
// this package never refreshes tokens itself.
//
// Errors are reported as *RequestError when the request could not be
// completed or returned a non-2xx status, and as *DecodeError when the
// response body did not have the expected shape.
package api
