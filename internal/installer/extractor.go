package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/xi2/xz"
)

// archiveExts are the packaged-dotfile formats that get unpacked before the copy.
var archiveExts = []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar", ".zip", ".7z"}

// isArchive reports whether path names a supported archive.
func isArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExtractArchive unpacks src into dest and returns the path to copy from:
// the single top-level directory when the archive has one, dest otherwise.
func ExtractArchive(src, dest string) (string, error) {
	lower := strings.ToLower(src)
	var (
		names []string
		err   error
	)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		names, err = extractZip(src, dest)
	case strings.HasSuffix(lower, ".7z"):
		names, err = extract7z(src, dest)
	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"),
		strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tar.xz"):
		names, err = extractTarArchive(src, dest)
	default:
		return "", fmt.Errorf("unsupported archive format: %s", src)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", src, err)
	}
	return filepath.Join(dest, singleTopLevel(names)), nil
}

// singleTopLevel returns the one directory every entry lives under, or "".
func singleTopLevel(names []string) string {
	top := ""
	for _, name := range names {
		name = strings.TrimPrefix(filepath.ToSlash(name), "./")
		first, _, nested := strings.Cut(name, "/")
		if first == "" {
			continue
		}
		if !nested {
			// a file at the top level
			return ""
		}
		if top != "" && top != first {
			return ""
		}
		top = first
	}
	return top
}

// entryPath joins an archive entry name onto dest, refusing names that would
// land outside it.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return target, nil
}

// writeFile streams r into path, creating parent directories.
func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// extractTarArchive handles tar and compressed tar variants
func extractTarArchive(src, dest string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Pick the decompressor from the extension; plain .tar reads the file as is
	var reader io.Reader = f
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(lower, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(lower, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	var names []string // entry names, used to find a single top-level directory
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break // end of archive
		}
		if err != nil {
			return nil, err
		}

		// Refuse entries that would land outside dest
		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return nil, err
		}
		// Other entry types (devices, fifos, hard links) are skipped
		switch hdr.Typeflag {
		case tar.TypeDir:
			names = append(names, strings.TrimSuffix(hdr.Name, "/")+"/")
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			names = append(names, hdr.Name)
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return nil, err
			}
		case tar.TypeSymlink:
			names = append(names, hdr.Name)
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return nil, err
			}
		}
	}
	return names, nil
}

// extractZip extracts a .zip archive
func extractZip(src, dest string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		path, err := entryPath(dest, f.Name)
		if err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			names = append(names, strings.TrimSuffix(f.Name, "/")+"/")
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			continue
		}
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

// extract7z handles .7z extraction using the sevenzip library
func extract7z(src, dest string) ([]string, error) {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		path, err := entryPath(dest, f.Name)
		if err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			names = append(names, strings.TrimSuffix(f.Name, "/")+"/")
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			continue
		}
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}
