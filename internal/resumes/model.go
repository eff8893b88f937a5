package resumes

import "time"

// Resume is an uploaded resume owned by a user. The original bytes live
// in the object store under StorageKey; Sections is an optional
// structured breakdown supplied by the client at upload time.
type Resume struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	FileName       string    `json:"fileName"`
	FileType       string    `json:"fileType"`
	SizeBytes      int64     `json:"sizeBytes"`
	StorageKey     string    `json:"-"`
	ProfileSummary string    `json:"profileSummary,omitempty"`
	Sections       []Section `json:"sections,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Section is one titled block of resume content.
type Section struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	OrderIndex int    `json:"orderIndex"`
}
