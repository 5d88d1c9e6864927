// Package models defines the domain types for memosync.
package models

import (
	"path"
	"strings"
	"time"
)

// NoteSuffix is the file suffix of every note item on the remote.
const NoteSuffix = ".md"

const slugLayout = "20060102-150405"

// Note is the unit of synchronization.
type Note struct {
	Slug         string    `json:"slug"`
	Body         string    `json:"body"`
	LastModified time.Time `json:"lastModified"`
	// RemotePath is empty until the note is discovered at, or pushed to, a remote path.
	RemotePath string `json:"remotePath,omitempty"`
	// VersionToken is empty when the note was never confirmed to exist remotely.
	VersionToken string `json:"versionToken,omitempty"`
}

// Path returns the remote location of the note.
func (n Note) Path() string {
	if n.RemotePath != "" {
		return n.RemotePath
	}
	return DefaultPath(n.Slug)
}

// LocalOnly reports whether the note was never confirmed to exist remotely.
func (n Note) LocalOnly() bool {
	return n.VersionToken == ""
}

// NewSlug derives a slug from the creation time with second resolution.
func NewSlug(now time.Time) string {
	return "memo-" + now.Format(slugLayout)
}

// DefaultPath is where a note lives on the remote when no path was recorded.
func DefaultPath(slug string) string {
	return slug + NoteSuffix
}

// SlugFromPath derives a slug from the final segment of a remote path.
func SlugFromPath(p string) string {
	return strings.TrimSuffix(path.Base(p), NoteSuffix)
}

// IsNotePath reports whether a remote path names a note item.
func IsNotePath(p string) bool {
	return strings.HasSuffix(p, NoteSuffix)
}

// Find returns the index of the note with slug, or -1.
func Find(notes []Note, slug string) int {
	for i := range notes {
		if notes[i].Slug == slug {
			return i
		}
	}
	return -1
}

// RemoteItem is one entry of a remote listing.
type RemoteItem struct {
	Slug  string `json:"slug"`
	Path  string `json:"path"`
	Token string `json:"token"`
}

// RemoteContent is the body and version token of one remote item.
type RemoteContent struct {
	Body  string `json:"body"`
	Token string `json:"token"`
}
