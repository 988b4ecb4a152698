package discovery

import (
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher/ignorefile"
)

// IgnoreFileName is the per-project ignore file, read from the project root.
const IgnoreFileName = ".twlintignore"

// alwaysIgnored are excluded regardless of configuration.
var alwaysIgnored = []string{
	"**/node_modules",
	"**/.git",
	"dist",
	"build",
}

// LoadIgnoreFile reads patterns from root/.twlintignore. Returns nil if the
// file does not exist. An existing empty file is valid and means "ignore
// nothing extra".
func LoadIgnoreFile(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return ignorefile.ReadAll(f)
}
