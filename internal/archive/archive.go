package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrPackaging is the category for failures while building or extracting
// a package archive.
var ErrPackaging = errors.New("packaging failed")

// Suffix is the file extension carried by every package archive.
const Suffix = ".tar.gz"

// dirPermissions is used for directories created during extraction when the
// archive carries no entry for them.
const dirPermissions os.FileMode = 0o755

// FileName returns the canonical archive filename for an application version.
func FileName(app, version string) string {
	return app + "-" + version + Suffix
}

// ParseFileName splits a canonical archive filename back into application
// name and version. The version is everything after the last dash, so
// application names may themselves contain dashes.
func ParseFileName(name string) (app, version string, err error) {
	base := filepath.Base(name)

	stem, found := strings.CutSuffix(base, Suffix)
	if !found {
		return "", "", fmt.Errorf("%w: %q does not end in %s", ErrPackaging, base, Suffix)
	}

	idx := strings.LastIndex(stem, "-")
	if idx <= 0 || idx == len(stem)-1 {
		return "", "", fmt.Errorf("%w: %q is not of the form <app>-<version>%s", ErrPackaging, base, Suffix)
	}

	return stem[:idx], stem[idx+1:], nil
}

// Build packages the contents of sourceDir (not the directory itself) into a
// gzip-compressed tar archive at outFile. File modes are preserved so hook
// scripts stay executable after extraction.
func Build(sourceDir, outFile string) error {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("%w: source %s: %v", ErrPackaging, sourceDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: source %s is not a directory", ErrPackaging, sourceDir)
	}

	out, err := os.Create(filepath.Clean(outFile))
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPackaging, outFile, err)
	}

	gzw := gzip.NewWriter(out)
	tw := tar.NewWriter(gzw)

	walkErr := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == sourceDir {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		return writeEntry(tw, path, filepath.ToSlash(rel), entry)
	})

	if walkErr == nil {
		walkErr = tw.Close()
	} else {
		_ = tw.Close()
	}

	if err := gzw.Close(); walkErr == nil {
		walkErr = err
	}

	if err := out.Close(); walkErr == nil {
		walkErr = err
	}

	if walkErr != nil {
		_ = os.Remove(outFile)

		return fmt.Errorf("%w: write %s: %v", ErrPackaging, outFile, walkErr)
	}

	return nil
}

// writeEntry appends a single filesystem entry to the tar stream.
func writeEntry(tw *tar.Writer, path, rel string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}

	header.Name = rel
	if entry.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}

	return err
}

// Extract unpacks a gzip-compressed tar archive into destDir, preserving
// file modes. Entries escaping destDir are rejected.
func Extract(archiveFile, destDir string) error {
	in, err := os.Open(filepath.Clean(archiveFile))
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPackaging, archiveFile, err)
	}

	defer func() {
		_ = in.Close()
	}()

	gzr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPackaging, archiveFile, err)
	}

	defer func() {
		_ = gzr.Close()
	}()

	if err := os.MkdirAll(destDir, dirPermissions); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPackaging, destDir, err)
	}

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: read %s: %v", ErrPackaging, archiveFile, err)
		}

		if err := extractEntry(tr, header, destDir); err != nil {
			return fmt.Errorf("%w: extract %s: %v", ErrPackaging, header.Name, err)
		}
	}
}

var errUnsafePath = errors.New("entry escapes destination directory")

// extractEntry materializes one tar entry under destDir.
func extractEntry(tr *tar.Reader, header *tar.Header, destDir string) error {
	path, err := safeJoin(destDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(path, header.FileInfo().Mode().Perm())
	case tar.TypeSymlink:
		return os.Symlink(header.Linkname, path)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return err
		}

		file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, header.FileInfo().Mode().Perm())
		if err != nil {
			return err
		}

		//nolint:gosec // Package archives come from the operator's own create step.
		_, err = io.Copy(file, tr)
		if cerr := file.Close(); err == nil {
			err = cerr
		}

		return err
	default:
		// Hard links, devices and the like have no business in a package.
		return fmt.Errorf("unsupported entry type %d", header.Typeflag)
	}
}

// safeJoin joins name under dir, rejecting absolute and traversal paths.
func safeJoin(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errUnsafePath
	}

	path := filepath.Join(dir, name)
	if path != dir && !strings.HasPrefix(path, dir+string(os.PathSeparator)) {
		return "", errUnsafePath
	}

	return path, nil
}
