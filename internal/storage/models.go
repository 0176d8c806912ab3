package storage

// PageRecord is a row of pagetable: one markdown document found in a vault.
type PageRecord struct {
	ID           int64
	Vault        string
	Path         string // Physical path, unique
	VirtualPath  string // Path after the indicator segment, optionally prefixed by frontmatter folder
	Metadata     string // Frontmatter serialized as JSON, empty when the document has none
	LastModified string // RFC 3339
	Created      string // RFC 3339
}

// AttachmentRecord is a row of the attachments table.
type AttachmentRecord struct {
	ID          int64
	Path        string
	VirtualPath string
	Type        string
}

// AttachmentTypeImage tags image attachments.
const AttachmentTypeImage = "image"

// pageColumns lists the pagetable columns that QueryByFields accepts.
var pageColumns = map[string]bool{
	"id":            true,
	"vault":         true,
	"path":          true,
	"virtualPath":   true,
	"metadata":      true,
	"last_modified": true,
	"created":       true,
}
