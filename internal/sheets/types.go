package sheets

import "time"

// Spreadsheet is the normalized metadata for one spreadsheet document.
type Spreadsheet struct {
	ID    string
	Title string
	URL   string
	Tabs  []Tab
}

// Tab is one sheet (grid) inside a spreadsheet.
type Tab struct {
	ID     int64
	Title  string
	Hidden bool
}

// File is the normalized metadata for a Drive file or folder.
type File struct {
	ID          string
	Name        string
	MimeType    string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	OwnedByMe   bool
	CanEdit     bool
	CanComment  bool
	Shared      bool
	SharedBy    string
	WebViewLink string
}

// Permission is the derived access level of the current identity on a file.
type Permission string

const (
	PermissionOwner     Permission = "owner"
	PermissionEditor    Permission = "editor"
	PermissionCommenter Permission = "commenter"
	PermissionViewer    Permission = "viewer"
)

// Permission maps ownership and capability flags onto the access enum.
// Ownership wins over capability flags.
func (f *File) Permission() Permission {
	switch {
	case f.OwnedByMe:
		return PermissionOwner
	case f.CanEdit:
		return PermissionEditor
	case f.CanComment:
		return PermissionCommenter
	default:
		return PermissionViewer
	}
}

// Editable reports whether the identity may modify the file's content.
func (f *File) Editable() bool {
	return f.OwnedByMe || f.CanEdit
}
