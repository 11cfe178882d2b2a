package panel

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
)

// Asset file names inside the resource root.
const (
	IndexFile  = "index.html"
	BundleFile = "bundle.js"
)

// ErrAssetNotFound marks a missing asset directory or file.
var ErrAssetNotFound = errors.New("asset not found")

// AssetError describes which asset could not be loaded.
type AssetError struct {
	Path string
	What string // shown to the user, e.g. "index.html not found"
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s: %s", e.What, e.Path)
}

func (e *AssetError) Is(target error) bool {
	return target == ErrAssetNotFound
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// LoadContent reads index.html from root and points its bundle script at
// bundleURI. On failure it still returns a small error page to show in
// place of the panel, together with the error.
func LoadContent(root, bundleURI string) (string, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return failPage(&AssetError{Path: root, What: "Webview dist directory not found", Err: err})
	}

	htmlPath := filepath.Join(root, IndexFile)
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return failPage(&AssetError{Path: htmlPath, What: IndexFile + " not found", Err: err})
		}
		return ErrorPage("Error loading webview content: " + err.Error()), err
	}

	bundlePath := filepath.Join(root, BundleFile)
	if _, err := os.Stat(bundlePath); err != nil {
		return failPage(&AssetError{Path: bundlePath, What: BundleFile + " not found", Err: err})
	}

	return strings.Replace(string(data), `src="`+BundleFile+`"`, `src="`+bundleURI+`"`, 1), nil
}

// ErrorPage renders msg as a standalone HTML page.
func ErrorPage(msg string) string {
	return "<html><body><h1>" + html.EscapeString(msg) + "</h1></body></html>"
}

func failPage(err *AssetError) (string, error) {
	return ErrorPage("Error: " + err.What), err
}
