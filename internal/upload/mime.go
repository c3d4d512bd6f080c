package upload

import (
	"mime"
	"path"
	"strings"
)

// DefaultContentType is used when the extension has no known mapping.
const DefaultContentType = "application/octet-stream"

// Media types the standard table does not always carry. System mime files
// vary by image, and Lambda runtimes ship almost none.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".heic": "image/heic",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

func init() {
	for ext, typ := range mediaTypes {
		// Only fails on a malformed extension
		_ = mime.AddExtensionType(ext, typ)
	}
}

// ContentTypeFor infers the content type from the file name's extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return DefaultContentType
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return DefaultContentType
}
