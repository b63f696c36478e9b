// Package feed validates a whole feed: it opens the input, loads every
// declared table in parallel and runs the cross-table validators.
package feed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Input is a set of named table files. Only files at the feed root count.
type Input interface {
	// Name identifies the input in logs and reports.
	Name() string
	// Names lists the files at the root, sorted.
	Names() []string
	// Open returns the content of a file. It returns an error wrapping
	// os.ErrNotExist when the file is absent.
	Open(name string) (io.ReadCloser, error)
	Close() error
}

// Open opens a directory or a zip archive.
func Open(path string) (Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	if info.IsDir() {
		return OpenDir(path)
	}
	return OpenZip(path)
}

type dirInput struct {
	root  string
	names []string
}

// OpenDir reads the regular files of a directory.
func OpenDir(root string) (Input, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read feed directory: %w", err)
	}
	in := &dirInput{root: root}
	for _, e := range entries {
		if e.Type().IsRegular() {
			in.names = append(in.names, e.Name())
		}
	}
	sort.Strings(in.names)
	return in, nil
}

func (d *dirInput) Name() string    { return d.root }
func (d *dirInput) Names() []string { return d.names }
func (d *dirInput) Close() error    { return nil }

func (d *dirInput) Open(name string) (io.ReadCloser, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

type zipInput struct {
	name   string
	closer io.Closer
	files  map[string]*zip.File
	names  []string
}

// OpenZip opens a zip archive from disk.
func OpenZip(path string) (Input, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open feed archive: %w", err)
	}
	return newZipInput(filepath.Base(path), &rc.Reader, rc), nil
}

// NewZipReader reads a zip archive held by r, e.g. an uploaded file.
func NewZipReader(name string, r io.ReaderAt, size int64) (Input, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read feed archive: %w", err)
	}
	return newZipInput(name, zr, nil), nil
}

// newZipInput keeps root entries only; nested folders are ignored.
func newZipInput(name string, zr *zip.Reader, closer io.Closer) *zipInput {
	in := &zipInput{name: name, closer: closer, files: make(map[string]*zip.File)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.Contains(f.Name, "/") {
			continue
		}
		if _, dup := in.files[f.Name]; dup {
			continue
		}
		in.files[f.Name] = f
		in.names = append(in.names, f.Name)
	}
	sort.Strings(in.names)
	return in
}

func (z *zipInput) Name() string    { return z.name }
func (z *zipInput) Names() []string { return z.names }

func (z *zipInput) Open(name string) (io.ReadCloser, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

func (z *zipInput) Close() error {
	if z.closer == nil {
		return nil
	}
	return z.closer.Close()
}
