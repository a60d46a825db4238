// Package archive packs a file or directory tree into a single zip artifact
// for transport and extracts received artifacts.
package archive

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when an archive entry would extract outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Result describes a produced artifact.
type Result struct {
	Path       string
	TotalBytes int64
}

// ProgressFunc receives the cumulative number of compressed bytes written.
type ProgressFunc func(written int64)

type countingWriter struct {
	w          io.Writer
	n          int64
	onProgress ProgressFunc
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	if cw.onProgress != nil && n > 0 {
		cw.onProgress(cw.n)
	}

	return n, err
}

// Zip archives src into a temporary artifact. A directory is archived with
// its own base name as the top-level entry so extraction recreates the same
// nesting. Entries are written with maximum compression.
func Zip(src string, onProgress ProgressFunc) (*Result, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}

	out, err := os.CreateTemp("", "lanlink-*.zip")
	if err != nil {
		return nil, err
	}

	cw := &countingWriter{w: out, onProgress: onProgress}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	if info.IsDir() {
		err = zipDir(zw, src)
	} else {
		err = zipFile(zw, src, filepath.Base(src))
	}

	if err == nil {
		err = zw.Close()
	} else {
		zw.Close()
	}

	if cerr := out.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(out.Name())
		return nil, err
	}

	return &Result{Path: out.Name(), TotalBytes: cw.n}, nil
}

func zipDir(zw *zip.Writer, dir string) error {
	base := filepath.Base(dir)

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(filepath.Join(base, rel))

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			_, err = zw.Create(name + "/")
			return err
		}

		return zipFile(zw, path, name)
	})
}

func zipFile(zw *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, file)
	return err
}

// Unzip extracts the artifact into destDir. Entries that would resolve
// outside destDir fail the whole extraction.
func Unzip(artifactPath, destDir string) error {
	zr, err := zip.OpenReader(artifactPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := extractEntry(f, destDir); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	target, err := safeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0200)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}

	return err
}

func safeJoin(destDir, name string) (string, error) {
	cleanDest := filepath.Clean(destDir)
	target := filepath.Join(cleanDest, filepath.FromSlash(name))

	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}
