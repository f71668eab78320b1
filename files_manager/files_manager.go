package files_manager

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"ddsconv/contracts"

	"github.com/google/uuid"
)

type Ext = contracts.Ext

// readBatch is how many directory entries ScanDir reads per syscall round.
const readBatch = 64

// CheckSourceDir fails with a not_found error when dir is missing or is not
// a directory.
func CheckSourceDir(dir string) error {
	stat, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &contracts.Error{Kind: contracts.KindNotFound, Op: "check source", Message: "source directory does not exist:", Path: dir, Cause: contracts.ErrDirectoryNotFound}
		}
		return contracts.WrapPath(contracts.KindIO, "check source", dir, err)
	}
	if !stat.IsDir() {
		return &contracts.Error{Kind: contracts.KindNotFound, Op: "check source", Message: "source path is not a directory:", Path: dir, Cause: contracts.ErrDirectoryNotFound}
	}
	return nil
}

// EnsureOutputDir creates dir and its parents when absent.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return contracts.WrapPath(contracts.KindIO, "create output", dir, err)
	}
	return nil
}

// ScanDir yields the paths of regular entries in dir whose name ends with ext.
// Entries come in directory order and are read lazily in batches, so the
// sequence can only be ranged over once. A read failure is yielded as the
// final element.
func ScanDir(dir string, ext Ext) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = &contracts.Error{Kind: contracts.KindNotFound, Op: "scan", Message: "source directory does not exist:", Path: dir, Cause: contracts.ErrDirectoryNotFound}
			} else {
				err = contracts.WrapPath(contracts.KindIO, "scan", dir, err)
			}
			yield("", err)
			return
		}
		defer f.Close()

		for {
			entries, err := f.ReadDir(readBatch)
			for _, entry := range entries {
				if entry.IsDir() || strings.HasPrefix(entry.Name(), "._") {
					continue
				}
				if !ext.Matches(entry.Name()) {
					continue
				}
				if !yield(filepath.Join(dir, entry.Name()), nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", contracts.WrapPath(contracts.KindIO, "scan", dir, err))
				return
			}
		}
	}
}

// CollectPaths drains ScanDir into a slice.
func CollectPaths(dir string, ext Ext) ([]string, error) {
	var paths []string
	for path, err := range ScanDir(dir, ext) {
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func BaseName(filePath string) string {
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}

// OutputPath maps /src/name.<any> to outputDir/name<ext>.
func OutputPath(outputDir, srcPath string, ext Ext) string {
	return filepath.Join(outputDir, BaseName(srcPath)+string(ext))
}

// WriteFileAtomic streams write into a temp file next to path and renames it
// into place. The temp file is removed when write or the rename fails.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmpPath := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.%s.tmp", BaseName(path), uuid.NewString()))
	f, err := os.Create(tmpPath)
	if err != nil {
		return contracts.WrapPath(contracts.KindIO, "create temp", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = write(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return contracts.WrapPath(contracts.KindIO, "close temp", tmpPath, err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		return contracts.WrapPath(contracts.KindIO, "stat temp", tmpPath, err)
	}
	if info.Size() == 0 {
		err = contracts.New(contracts.KindIO, "write", fmt.Sprintf("file is empty: %s", tmpPath))
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return contracts.WrapPath(contracts.KindIO, "rename", path, err)
	}
	return nil
}
