// Package history persists the viewer's record of opened links in SQLite.
package history
