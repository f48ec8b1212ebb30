// Package connectors holds the remote provider clients. Each subpackage
// implements driven.RemoteProvider for one SaaS provider and is the only
// code that calls that provider's API.
//
// Clients never hold credentials. They ask the connection broker for an
// access token on every call through a TokenSource built with
// NewTokenSource.
package connectors
