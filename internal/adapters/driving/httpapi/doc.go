// Package httpapi serves the permission and connector operations over HTTP
// using Echo. Domain errors are translated to status codes: invalid input
// and invalid permission values answer 400, unknown connectors 404, and
// store or remote failures 500.
package httpapi
