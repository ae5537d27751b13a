// Package backup moves the entity collections in and out of plain JSON
// files.
//
// An export writes users.json, posts.json and chats.json, each an indented
// array in ascending id order, into a fresh backup-<timestamp> directory.
// An import reads whichever of those files are present, validates them
// against an embedded CUE schema, and replaces the matching collection
// wholesale. Collections without a file are left untouched.
package backup
