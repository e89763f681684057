package documents

import "errors"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyUpload      = errors.New("upload body is empty")
	ErrUploadTooLarge   = errors.New("upload exceeds the size limit")
	ErrNotUploaded      = errors.New("document has not been uploaded yet")
	ErrStorageDisabled  = errors.New("document storage is not configured")
)
