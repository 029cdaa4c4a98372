package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// ToFilePathFunc maps a base folder and a storage key to the file holding the key's value.
type ToFilePathFunc func(basePath string, key string) string

// DefaultToFilePath names the file after the SHA-256 of the key, under a 4-level folder hierarchy
// taken from the hash's first hex digits. Storage keys may hold any character, the hash is always
// a valid file name and spreads files evenly across folders.
func DefaultToFilePath(basePath string, key string) string {
	name := HashKey(key)
	if len(basePath) > 0 && basePath[len(basePath)-1] == os.PathSeparator {
		return fmt.Sprintf("%s%s%c%s", basePath, Apply4LevelHierarchy(name), os.PathSeparator, name)
	}
	return fmt.Sprintf("%s%c%s%c%s", basePath, os.PathSeparator, Apply4LevelHierarchy(name), os.PathSeparator, name)
}

// HashKey returns the hex SHA-256 of a storage key.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// Apply4LevelHierarchy maps a hex name to a 4-level folder structure using its first four digits.
// Example: abcd... -> a/b/c/d.
func Apply4LevelHierarchy(name string) string {
	ps := os.PathSeparator
	return fmt.Sprintf("%c%c%c%c%c%c%c", name[0], ps, name[1], ps, name[2], ps, name[3])
}
