package lobby

import (
	"path/filepath"
	"strings"
)

// FileType is an informational classification of a shared file.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeText  FileType = "text"
	FileTypeOther FileType = "other"
)

var extensionTypes = map[string]FileType{
	".jpg":  FileTypeImage,
	".jpeg": FileTypeImage,
	".png":  FileTypeImage,
	".bmp":  FileTypeImage,
	".gif":  FileTypeImage,
	".txt":  FileTypeText,
}

// ClassifyFile derives the FileType from the extension of name.
func ClassifyFile(name string) FileType {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return FileTypeOther
}
