// Package tracker is a typed client for the issue tracker REST API.
//
// Every call returns one of three error kinds:
//   - [*TransportError]: the request never produced a response
//   - [*HTTPStatusError]: the server answered with a non-2xx status
//   - [*DecodeError]: the body did not match the expected schema
//
// Paginated listings ([Client.Issues], [Client.Projects]) return a
// runner.Page so they plug straight into runner.Crawl.
package tracker
