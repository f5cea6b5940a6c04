// Package api is the service layer behind the HTTP surface: request and
// response types, converters from registry state, and the job operations
// the handlers call.
package api
