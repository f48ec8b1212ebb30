// Package google provides shared infrastructure for the Google Drive provider.
//
// This package contains:
//   - Service factories for creating Drive API clients from a broker token source
//   - Error mapping from googleapi errors to domain.HTTPError
//   - Rate limiting to respect Drive API quotas
//
// # Usage
//
//	ts := connectors.NewTokenSource(ctx, tokens, domain.ProviderGoogleDrive, connectionID)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// The broker integration must grant:
//   - https://www.googleapis.com/auth/drive.readonly (restricted)
//   - https://www.googleapis.com/auth/drive.metadata.readonly (restricted)
package google
