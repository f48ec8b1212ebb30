// Package drive implements the remote provider and webhook registrar for
// Google Drive.
package drive

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/permsync/internal/connectors"
	"github.com/custodia-labs/permsync/internal/connectors/google"
	"github.com/custodia-labs/permsync/internal/core/domain"
	"github.com/custodia-labs/permsync/internal/core/ports/driven"
	"github.com/custodia-labs/permsync/internal/logger"
	"github.com/custodia-labs/permsync/internal/metrics"
)

// Ensure Provider implements the RemoteProvider interface.
var _ driven.RemoteProvider = (*Provider)(nil)

const (
	fileFields = "id,name,mimeType,parents,webViewLink,driveId"
	listFields = "nextPageToken,files(" + fileFields + ")"
	pageSize   = 1000
)

// Provider reads the Drive folder tree of a connection.
type Provider struct {
	tokens  driven.ConnectionManager
	limiter *google.RateLimiter
	opts    []option.ClientOption

	mu      sync.Mutex
	rootIDs map[string]string
}

// NewProvider creates a Drive provider. opts are passed to every Drive
// service, e.g. option.WithEndpoint.
func NewProvider(tokens driven.ConnectionManager, opts ...option.ClientOption) *Provider {
	return &Provider{
		tokens:  tokens,
		limiter: google.NewRateLimiter(google.DriveLimit),
		opts:    opts,
		rootIDs: make(map[string]string),
	}
}

// Provider returns domain.ProviderGoogleDrive.
func (p *Provider) Provider() domain.ProviderType {
	return domain.ProviderGoogleDrive
}

// FetchWorkspace returns the Google account behind a connection.
func (p *Provider) FetchWorkspace(ctx context.Context, connectionID string) (*driven.RemoteWorkspace, error) {
	svc, err := p.service(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	var about *drive.About
	err = p.call(ctx, "get_about", func() (err error) {
		about, err = svc.About.Get().Fields("user(permissionId,emailAddress,displayName)").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if about.User == nil || about.User.PermissionId == "" {
		return nil, fmt.Errorf("drive: connection %s has no user", connectionID)
	}

	name := about.User.EmailAddress
	if name == "" {
		name = about.User.DisplayName
	}
	return &driven.RemoteWorkspace{ID: about.User.PermissionId, Name: name}, nil
}

// FetchObject fetches one Drive file or folder.
func (p *Provider) FetchObject(ctx context.Context, connector *domain.Connector, kind domain.ObjectKind, externalID string) (*domain.ExternalObject, error) {
	if kind != domain.KindDriveFile {
		return nil, fmt.Errorf("%w: drive kind %q", domain.ErrUnsupportedType, kind)
	}

	svc, err := p.service(ctx, connector.ConnectionID)
	if err != nil {
		return nil, err
	}
	rootID, err := p.rootFolderID(ctx, svc, connector.ConnectionID)
	if err != nil {
		return nil, err
	}

	var file *drive.File
	err = p.call(ctx, "get_file", func() (err error) {
		file, err = svc.Files.Get(externalID).Fields(fileFields).SupportsAllDrives(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return fileObject(file, rootID), nil
}

// ListObjects lists the children of a folder. Without a parent it lists the
// folders at the top of My Drive and every shared drive.
func (p *Provider) ListObjects(ctx context.Context, connector *domain.Connector, kind, parentKind domain.ObjectKind, parentID string) ([]domain.ExternalObject, error) {
	if kind != domain.KindDriveFile || (parentID != "" && parentKind != domain.KindDriveFile) {
		return nil, fmt.Errorf("%w: drive listing of %s under %s", domain.ErrUnsupportedType, kind, parentKind)
	}

	svc, err := p.service(ctx, connector.ConnectionID)
	if err != nil {
		return nil, err
	}
	rootID, err := p.rootFolderID(ctx, svc, connector.ConnectionID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(parentID))
	if parentID == "" {
		query = fmt.Sprintf("'root' in parents and mimeType = '%s' and trashed = false", domain.DriveFolderMimeType)
	}

	var objs []domain.ExternalObject
	err = p.call(ctx, "list_files", func() error {
		return svc.Files.List().
			Q(query).
			Fields(listFields).
			PageSize(pageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Pages(ctx, func(page *drive.FileList) error {
				for _, f := range page.Files {
					objs = append(objs, *fileObject(f, rootID))
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}

	if parentID == "" {
		err = p.call(ctx, "list_drives", func() error {
			return svc.Drives.List().PageSize(100).Pages(ctx, func(page *drive.DriveList) error {
				for _, d := range page.Drives {
					objs = append(objs, domain.ExternalObject{
						ExternalID: d.Id,
						Name:       d.Name,
						URL:        ResolveWebURL(d.Id, domain.DriveFolderMimeType, ""),
						Metadata:   map[string]string{domain.MetaMimeType: domain.DriveFolderMimeType},
					})
				}
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}
	return objs, nil
}

func (p *Provider) service(ctx context.Context, connectionID string) (*drive.Service, error) {
	ts := connectors.NewTokenSource(ctx, p.tokens, domain.ProviderGoogleDrive, connectionID)
	svc, err := google.NewDriveService(ctx, ts, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// rootFolderID returns the id of the My Drive root of a connection.
// Children of the root are reported as top-level objects.
func (p *Provider) rootFolderID(ctx context.Context, svc *drive.Service, connectionID string) (string, error) {
	p.mu.Lock()
	id, ok := p.rootIDs[connectionID]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	var root *drive.File
	err := p.call(ctx, "get_root", func() (err error) {
		root, err = svc.Files.Get("root").Fields("id").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.rootIDs[connectionID] = root.Id
	p.mu.Unlock()
	return root.Id, nil
}

// call waits for the rate limiter, runs fn and maps its error.
func (p *Provider) call(ctx context.Context, operation string, fn func() error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	logger.Debug("drive: %s", operation)
	err := fn()
	p.limiter.Observe(err)
	metrics.RemoteRequestsTotal.WithLabelValues(string(domain.ProviderGoogleDrive), operation, metrics.Outcome(err)).Inc()
	return google.WrapError(err)
}

func fileObject(f *drive.File, rootID string) *domain.ExternalObject {
	obj := &domain.ExternalObject{
		ExternalID: f.Id,
		Name:       f.Name,
		URL:        ResolveWebURL(f.Id, f.MimeType, f.WebViewLink),
		Metadata:   map[string]string{domain.MetaMimeType: f.MimeType},
	}
	if len(f.Parents) > 0 && f.Parents[0] != rootID {
		obj.ParentID = f.Parents[0]
		obj.ParentKind = domain.KindDriveFile
	}
	return obj
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
