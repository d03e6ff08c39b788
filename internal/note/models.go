package note

import "time"

// Note is the persistent document model. Content is an opaque structured
// value (the rich-text editor's node tree); the server never interprets it
// beyond storing and echoing it.
type Note struct {
	ID            string      `json:"id" bson:"_id,omitempty"`
	Title         string      `json:"title" bson:"title"`
	Content       interface{} `json:"content" bson:"content"`
	CreatedBy     string      `json:"createdBy" bson:"createdBy"`
	Collaborators []string    `json:"collaborators" bson:"collaborators"`
	Versions      []Version   `json:"-" bson:"versions"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Version is one append-only history entry: a full content snapshot, never a
// diff. Entries are immutable once written and ordered by timestamp ascending
// in storage; ListVersions returns them newest first.
type Version struct {
	ID        string      `json:"id" bson:"id"`
	Content   interface{} `json:"content" bson:"content"`
	EditedBy  string      `json:"editedBy" bson:"editedBy"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// DefaultTitle is applied when a note is created without one.
const DefaultTitle = "Untitled Note"

// EmptyContent is the well-formed zero value for note content; content is
// never null once a note exists.
func EmptyContent() interface{} { return map[string]interface{}{} }

// HasCollaborator reports whether userID is in the collaborator set.
func (n *Note) HasCollaborator(userID string) bool {
	for _, c := range n.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}
