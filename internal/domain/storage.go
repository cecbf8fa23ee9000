package domain

// CopyStats summarizes a blob storage copy.
type CopyStats struct {
	Files int   `json:"files" yaml:"files"`
	Bytes int64 `json:"bytes" yaml:"bytes"`
}
