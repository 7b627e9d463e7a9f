package models

// FileMeta is the metadata stored alongside a cached attachment's bytes.
// Attachments are content-addressed by ID and immutable once fetched.
type FileMeta struct {
	ID       string `json:"id"`
	Created  int64  `json:"created,omitempty"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}
