// Package client provides a Go client library for the fedsearch HTTP API.
//
// The client wraps the node's REST surface with a small, typed interface
// used by the CLI query commands. Data operations return the federated
// envelope exactly as the node produced it, including the status block,
// so callers can inspect how many peers answered.
package client
