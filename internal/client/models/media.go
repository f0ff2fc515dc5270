package models

import (
	"path/filepath"
	"strings"
)

// mediaExtensions lists the file extensions the backend accepts per media
// type, with their MIME types.
var mediaExtensions = map[MediaType]map[string]string{
	MediaImage: {
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
	},
	MediaVideo: {
		".mp4":  "video/mp4",
		".webm": "video/webm",
		".ogg":  "video/ogg",
		".ogv":  "video/ogg",
	},
}

// ContentType returns the MIME type of a file of media type t, judged by
// its extension. ok is false when the backend would reject the file.
func (t MediaType) ContentType(path string) (ct string, ok bool) {
	ct, ok = mediaExtensions[t][strings.ToLower(filepath.Ext(path))]
	return ct, ok
}
