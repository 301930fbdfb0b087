// Package transport implements the HTTP/JSON client for the workflow API.
// It translates each pipeline operation into exactly one request/response
// exchange and normalizes failures into typed errors; retrying is a caller
// decision, never automatic.
package transport
