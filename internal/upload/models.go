package upload

// InitRequest starts a multipart upload for Name under the S3Key prefix.
type InitRequest struct {
	Name  string `json:"name"`
	S3Key string `json:"s3Key"`
}

// InitResponse carries the session identity the caller echoes back later.
type InitResponse struct {
	FileID  string `json:"fileId"`
	FileKey string `json:"fileKey"`
}

// GetURLsRequest asks for Parts signed part-upload URLs.
type GetURLsRequest struct {
	FileID  string `json:"fileId"`
	FileKey string `json:"fileKey"`
	Parts   int    `json:"parts"`
}

// PartURL is the signed upload URL for one part number.
type PartURL struct {
	SignedURL  string `json:"signedUrl"`
	PartNumber int    `json:"PartNumber"`
}

// GetURLsResponse lists part URLs in ascending part number order.
type GetURLsResponse struct {
	Parts []PartURL `json:"parts"`
}

// CompletedPart is an uploaded part with the ETag the backend returned for it.
type CompletedPart struct {
	PartNumber int    `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// FinalizeRequest commits the uploaded parts.
type FinalizeRequest struct {
	FileID  string          `json:"fileId"`
	FileKey string          `json:"fileKey"`
	Parts   []CompletedPart `json:"parts"`
}

// FinalizeResponse contains a read URL for the finished object.
type FinalizeResponse struct {
	PresignedURL string `json:"presigned_url"`
	Message      string `json:"message"`
}

// AbortRequest discards an in-progress upload.
type AbortRequest struct {
	FileID  string `json:"fileId"`
	FileKey string `json:"fileKey"`
}

// AbortResponse confirms the abort.
type AbortResponse struct {
	Message string `json:"message"`
}

// CompletionNotice is the body published after a successful finalize.
type CompletionNotice struct {
	NoticeID     string `json:"notice_id"`
	FileKey      string `json:"file_key"`
	PresignedURL string `json:"presigned_url"`
	Message      string `json:"message"`
}
