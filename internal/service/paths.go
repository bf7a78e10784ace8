package service

import (
	"fmt"
	"strings"
)

const (
	usersCollection       = "users"
	tasksCollection       = "tasks"
	credentialsCollection = "credentials"
)

// UserPath returns the profile document path for a user.
func UserPath(userID string) string {
	return usersCollection + "/" + userID
}

// TasksPath returns the task collection path for a user.
func TasksPath(userID string) string {
	return UserPath(userID) + "/" + tasksCollection
}

// TaskPath returns the document path of one task.
func TaskPath(userID, taskID string) string {
	return TasksPath(userID) + "/" + taskID
}

// CredentialPath returns the credential document path for a local account.
func CredentialPath(email string) string {
	return credentialsCollection + "/" + NormalizeEmail(email)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitPath validates a slash-separated path and returns its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// IsDocumentPath reports whether path names a document (even segment count).
func IsDocumentPath(path string) bool {
	segs, err := SplitPath(path)
	return err == nil && len(segs)%2 == 0
}

// IsCollectionPath reports whether path names a collection (odd segment count).
func IsCollectionPath(path string) bool {
	segs, err := SplitPath(path)
	return err == nil && len(segs)%2 == 1
}

// ParentCollection splits a document path into its collection path and ID.
func ParentCollection(docPath string) (collection, id string, err error) {
	if !IsDocumentPath(docPath) {
		return "", "", fmt.Errorf("%w: not a document path: %q", ErrInvalidPath, docPath)
	}
	i := strings.LastIndex(docPath, "/")
	return docPath[:i], docPath[i+1:], nil
}

// ValidSegment reports whether s can be used as a single path segment.
func ValidSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/")
}
