package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var imageExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension we can decode
func IsImageFile(filename string) bool {
	ext := GetFileExtension(filename)
	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LocalPath strips a file:// scheme from source
func LocalPath(source string) string {
	if strings.HasPrefix(source, "file://") {
		if u, err := url.Parse(source); err == nil {
			return u.Path
		}
		return strings.TrimPrefix(source, "file://")
	}
	return source
}

// BaseName returns the file name of source without extension; URLs use their path
func BaseName(source string) string {
	var base string
	if IsRemote(source) {
		if u, err := url.Parse(source); err == nil {
			base = path.Base(u.Path)
		}
	} else {
		base = filepath.Base(LocalPath(source))
	}
	if base == "/" || base == "." {
		return "image"
	}
	base = SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	if base == "" {
		return "image"
	}
	return base
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(source, outputDir, prefix, suffix, format string) string {
	if format == "" {
		format = GetFileExtension(LocalPath(source))
		if format == "" {
			format = "jpg"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, BaseName(source), suffix, format)
	return filepath.Join(outputDir, outputName)
}

// UniquePath returns p, or p with a -N counter before the extension when p exists
func UniquePath(p string) string {
	if !FileExists(p) {
		return p
	}
	ext := filepath.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !FileExists(candidate) {
			return candidate
		}
	}
}

// ListImageFiles recursively lists all image files in a directory
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	return strings.Trim(result, " .")
}
