// Package persistence stores the user-facing settings (enabled flag,
// feedback intensity, selected pattern) in a versioned JSON file.
//
// Settings are read once at startup and written on change. The store is
// deliberately dumb: the engine treats it as an external collaborator and
// keeps working when the file is missing or unreadable.
package persistence
