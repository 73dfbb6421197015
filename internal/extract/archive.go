package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// isZip sniffs the file magic; the portal serves some years as bare CSV.
func isZip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, nil // too short to be an archive
	}
	return string(head) == string(zipMagic), nil
}

// unzip extracts archive into destDir and returns the extracted file paths.
// Entry names are constrained to destDir.
func unzip(archive, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %w", archive, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(entry.Name))
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("extract: archive entry %q escapes %s", entry.Name, destDir)
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(dest, rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("extract: archive %s has no files", archive)
	}
	return paths, nil
}

// pickCSV selects the dataset CSV among extracted files: the largest file
// with a .csv extension. Archives occasionally ship documentation alongside.
func pickCSV(paths []string) (string, error) {
	var best string
	var bestSize int64
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".csv") {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		if info.Size() > bestSize {
			best, bestSize = p, info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("extract: no CSV among %d extracted files", len(paths))
	}
	return best, nil
}
