package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

func openArchive(data []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	return r, nil
}

// matchMember reports whether the base name of a member matches the glob,
// case-insensitively.
func matchMember(pattern, name string) bool {
	ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(path.Base(name)))
	return err == nil && ok
}

// ZIPMember returns the contents of the first file in the archive, in
// archive order, whose base name matches pattern, along with its name.
func ZIPMember(data []byte, pattern string) ([]byte, string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, "", eris.Wrapf(err, "zip: bad member pattern %q", pattern)
	}
	r, err := openArchive(data)
	if err != nil {
		return nil, "", err
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matchMember(pattern, f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, "", eris.Wrapf(err, "zip: open member %s", f.Name)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, "", eris.Wrapf(err, "zip: read member %s", f.Name)
		}
		return body, f.Name, nil
	}
	return nil, "", eris.Errorf("zip: no member matches %q", pattern)
}

// ExtractZIP writes every file of the archive under destDir and returns the
// extracted paths.
func ExtractZIP(data []byte, destDir string) ([]string, error) {
	r, err := openArchive(data)
	if err != nil {
		return nil, err
	}

	var extracted []string
	for _, f := range r.File {
		p, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if p != "" {
			extracted = append(extracted, p)
		}
	}
	return extracted, nil
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	dest := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", f.Name)
	}
	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}
	return dest, nil
}
