package service

import (
	"path"
	"strings"

	"mediahub/internal/store"
)

// Content types are derived from the locator extension, never stored.
var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// extByMIME maps each allowed declared content type to the canonical extension
// used for the generated file name.
var extByMIME = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

var videoExt = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
}

// AssetFileName returns the physical file name behind the locator, whichever
// storage mode is active.
func AssetFileName(a store.MediaAsset) string {
	if a.FileName != nil {
		return *a.FileName
	}
	if a.ObjectKey != nil {
		return path.Base(*a.ObjectKey)
	}
	return ""
}

func AssetContentType(a store.MediaAsset) string {
	ext := strings.ToLower(path.Ext(AssetFileName(a)))
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func AssetIsVideo(a store.MediaAsset) bool {
	return videoExt[strings.ToLower(path.Ext(AssetFileName(a)))]
}
