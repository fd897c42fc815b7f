package profiling

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
)

// DumpZIP takes a snapshot, renders it as JSON, and writes it to path inside
// a deflate-compressed ZIP archive. The archive carries the full document
// plus one sub-document per scope when scoped records exist. Like DumpJSON,
// the write is atomic.
func (r *Recorder) DumpZIP(path string) error {
	snapshot := r.Snapshot()

	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".benchtools-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	err = writeArchive(f, path, snapshot)
	if err != nil {
		f.Close()
		os.Remove(f.Name())

		return err
	}

	err = f.Close()
	if err != nil {
		os.Remove(f.Name())

		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = os.Rename(f.Name(), path)
	if err != nil {
		os.Remove(f.Name())

		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

func writeArchive(w io.Writer, path string, snapshot []TaskRecord) error {
	base := strings.TrimSuffix(filepath.Base(path), ".zip")

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate,
		func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.DefaultCompression)
		})

	err := addArchiveDocument(zw, base+".json", snapshot)
	if err != nil {
		return err
	}

	for _, scope := range scopesOf(snapshot) {
		scoped := []TaskRecord{}
		for _, rec := range snapshot {
			if rec.Scope == scope {
				scoped = append(scoped, rec)
			}
		}

		name := base + "-" + sanitizeArchiveName(scope) + ".json"

		err = addArchiveDocument(zw, name, scoped)
		if err != nil {
			return err
		}
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}

	return nil
}

func addArchiveDocument(
	zw *zip.Writer,
	name string,
	snapshot []TaskRecord,
) error {
	data, err := RenderJSON(snapshot)
	if err != nil {
		return err
	}

	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating archive entry %s: %w", name, err)
	}

	_, err = entry.Write(data)
	if err != nil {
		return fmt.Errorf("writing archive entry %s: %w", name, err)
	}

	return nil
}

// scopesOf returns the non-default scopes present in the snapshot, sorted
// for a deterministic archive layout.
func scopesOf(snapshot []TaskRecord) []string {
	seen := map[string]bool{}
	scopes := []string{}

	for _, rec := range snapshot {
		if rec.Scope == Unscoped || seen[rec.Scope] {
			continue
		}

		seen[rec.Scope] = true
		scopes = append(scopes, rec.Scope)
	}

	sort.Strings(scopes)

	return scopes
}

func sanitizeArchiveName(scope string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', ' ':
			return '_'
		}

		return c
	}, scope)
}
