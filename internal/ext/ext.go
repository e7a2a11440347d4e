/*
Package ext is "language extensions", functionality that in a perfect world would be part of the golang standard library
*/
package ext

import (
	"os"
	"strings"
)

// DefaultValue returns fallback when value is the zero value of its type.
func DefaultValue[T comparable](value T, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

// ReplaceHomeDirWithTilde replaces the home directory in an absolute path with ~
func ReplaceHomeDirWithTilde(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return replacePrefixWithTilde(path, homeDir)
}

func replacePrefixWithTilde(path, homeDir string) string {
	if homeDir == "" || homeDir == "/" {
		return path
	}
	if path == homeDir {
		return "~"
	}
	if strings.HasPrefix(path, homeDir+"/") {
		return "~" + strings.TrimPrefix(path, homeDir)
	}
	return path
}
