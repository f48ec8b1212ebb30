package drive

import "github.com/custodia-labs/permsync/internal/core/domain"

// ResolveWebURL returns the browser URL of a Drive file. The webViewLink
// reported by the API wins; otherwise the URL is built from the id.
func ResolveWebURL(fileID, mimeType, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	if fileID == "" {
		return ""
	}
	if mimeType == domain.DriveFolderMimeType {
		return "https://drive.google.com/drive/folders/" + fileID
	}
	return "https://drive.google.com/file/d/" + fileID + "/view"
}
