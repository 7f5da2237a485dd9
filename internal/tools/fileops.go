// Package tools holds the bounded request/response tools that surround the
// shell session: each call performs a single operation and carries no state
// between calls.
package tools

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// File operation names, mirroring the tool's wire-level contract.
const (
	OpListDirectory     = "list_directory"
	OpCreateDirectory   = "create_directory"
	OpCopyFile          = "copy_file"
	OpCopyDirectory     = "copy_directory"
	OpMoveFile          = "move_file"
	OpMoveDirectory     = "move_directory"
	OpDeleteFile        = "delete_file"
	OpDeleteDirectory   = "delete_directory"
	OpGetFileInfo       = "get_file_info"
	OpChangePermissions = "change_permissions"
	OpFindFiles         = "find_files"
	OpGetFileSize       = "get_file_size"
	OpGetDirectorySize  = "get_directory_size"
)

// FileRequest is one file-operation invocation.
type FileRequest struct {
	Operation   string `json:"operation"`
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Recursive   bool   `json:"recursive,omitempty"`
	Permissions string `json:"permissions,omitempty"`
	ShowHidden  bool   `json:"showHidden,omitempty"`
}

// FileOps performs file and directory operations on behalf of the client.
type FileOps struct {
	logger *zap.Logger
}

// NewFileOps creates the file-operations tool.
func NewFileOps(logger *zap.Logger) *FileOps {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileOps{logger: logger}
}

// Execute dispatches a single file operation and returns its human-readable
// output.
func (f *FileOps) Execute(req FileRequest) (string, error) {
	if req.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	f.logger.Debug("file operation",
		zap.String("operation", req.Operation),
		zap.String("path", req.Path),
	)

	switch req.Operation {
	case OpListDirectory:
		return f.listDirectory(req.Path, req.ShowHidden, req.Recursive)
	case OpCreateDirectory:
		return f.createDirectory(req.Path, req.Recursive)
	case OpCopyFile:
		if req.Destination == "" {
			return "", fmt.Errorf("destination path required for %s", req.Operation)
		}
		return f.copyFile(req.Path, req.Destination)
	case OpCopyDirectory:
		if req.Destination == "" {
			return "", fmt.Errorf("destination path required for %s", req.Operation)
		}
		return f.copyDirectory(req.Path, req.Destination)
	case OpMoveFile, OpMoveDirectory:
		if req.Destination == "" {
			return "", fmt.Errorf("destination path required for %s", req.Operation)
		}
		return f.move(req.Path, req.Destination)
	case OpDeleteFile:
		return f.deleteFile(req.Path)
	case OpDeleteDirectory:
		return f.deleteDirectory(req.Path, req.Recursive)
	case OpGetFileInfo:
		return f.fileInfo(req.Path)
	case OpChangePermissions:
		if req.Permissions == "" {
			return "", fmt.Errorf("permissions parameter required for %s", req.Operation)
		}
		return f.changePermissions(req.Path, req.Permissions)
	case OpFindFiles:
		if req.Pattern == "" {
			return "", fmt.Errorf("pattern parameter required for %s", req.Operation)
		}
		return f.findFiles(req.Path, req.Pattern, req.Recursive)
	case OpGetFileSize:
		return f.fileSize(req.Path)
	case OpGetDirectorySize:
		return f.directorySize(req.Path)
	default:
		return "", fmt.Errorf("unknown operation: %s", req.Operation)
	}
}

func (f *FileOps) listDirectory(path string, showHidden, recursive bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}

	var items []string
	appendEntry := func(name string, d fs.DirEntry) {
		kind := "file"
		size := "-"
		if d.IsDir() {
			kind = "directory"
		} else if fi, err := d.Info(); err == nil {
			size = strconv.FormatInt(fi.Size(), 10)
		}
		items = append(items, fmt.Sprintf("%-10s %10s %s", kind, size, name))
	}

	if recursive {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || p == path {
				return nil
			}
			name := d.Name()
			if !showHidden && strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(path, p)
			appendEntry(rel, d)
			return nil
		})
		if err != nil {
			return "", err
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", fmt.Errorf("permission denied accessing directory: %s", path)
		}
		for _, d := range entries {
			if !showHidden && strings.HasPrefix(d.Name(), ".") {
				continue
			}
			appendEntry(d.Name(), d)
		}
	}

	sort.Strings(items)

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n", path)
	fmt.Fprintf(&b, "%-10s %10s Name\n", "Type", "Size")
	b.WriteString(strings.Repeat("-", 50) + "\n")
	b.WriteString(strings.Join(items, "\n"))
	return b.String(), nil
}

func (f *FileOps) createDirectory(path string, recursive bool) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("directory already exists: %s", path)
	}
	var err error
	if recursive {
		err = os.MkdirAll(path, 0755)
	} else {
		err = os.Mkdir(path, 0755)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return fmt.Sprintf("Directory created: %s", path), nil
}

func (f *FileOps) copyFile(source, destination string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("source file does not exist: %s", source)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source is not a file: %s", source)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := os.WriteFile(destination, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	return fmt.Sprintf("File copied from %s to %s", source, destination), nil
}

func (f *FileOps) copyDirectory(source, destination string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("source directory does not exist: %s", source)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source is not a directory: %s", source)
	}
	if _, err := os.Stat(destination); err == nil {
		return "", fmt.Errorf("destination already exists: %s", destination)
	}

	if err := os.CopyFS(destination, os.DirFS(source)); err != nil {
		return "", fmt.Errorf("failed to copy directory: %w", err)
	}
	return fmt.Sprintf("Directory copied from %s to %s", source, destination), nil
}

func (f *FileOps) move(source, destination string) (string, error) {
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("source does not exist: %s", source)
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return "", fmt.Errorf("failed to move: %w", err)
	}
	if err := os.Rename(source, destination); err != nil {
		return "", fmt.Errorf("failed to move: %w", err)
	}
	return fmt.Sprintf("Moved from %s to %s", source, destination), nil
}

func (f *FileOps) deleteFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file does not exist: %s", path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to delete file: %w", err)
	}
	return fmt.Sprintf("File deleted: %s", path), nil
}

func (f *FileOps) deleteDirectory(path string, recursive bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}

	if recursive {
		if err := os.RemoveAll(path); err != nil {
			return "", fmt.Errorf("failed to delete directory: %w", err)
		}
		return fmt.Sprintf("Directory and contents deleted: %s", path), nil
	}

	// Only works if the directory is empty.
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to delete directory: %w", err)
	}
	return fmt.Sprintf("Empty directory deleted: %s", path), nil
}

func (f *FileOps) fileInfo(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", path)
	}

	kind := "File"
	if info.IsDir() {
		kind = "Directory"
	}

	lines := []string{
		fmt.Sprintf("Path: %s", path),
		fmt.Sprintf("Type: %s", kind),
		fmt.Sprintf("Size: %d bytes", info.Size()),
		fmt.Sprintf("Modified: %s", info.ModTime().UTC().Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Permissions: %o", info.Mode().Perm()),
	}
	return strings.Join(lines, "\n"), nil
}

func (f *FileOps) changePermissions(path, permissions string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("path does not exist: %s", path)
	}

	perm, err := strconv.ParseUint(permissions, 8, 32)
	if err != nil {
		return "", fmt.Errorf("invalid permissions format: %s (use octal format like '755')", permissions)
	}
	if err := os.Chmod(path, os.FileMode(perm)); err != nil {
		return "", fmt.Errorf("failed to change permissions: %w", err)
	}
	return fmt.Sprintf("Permissions changed to %s for %s", permissions, path), nil
}

func (f *FileOps) findFiles(path, pattern string, recursive bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}

	glob := pattern
	if recursive {
		glob = "**/" + pattern
	}
	matches, err := doublestar.Glob(os.DirFS(path), glob)
	if err != nil {
		return "", fmt.Errorf("failed to find files: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No files found matching pattern '%s' in %s", pattern, path), nil
	}
	sort.Strings(matches)

	var b strings.Builder
	fmt.Fprintf(&b, "Files matching '%s' in %s:\n", pattern, path)
	for _, m := range matches {
		kind := "file"
		if fi, err := os.Stat(filepath.Join(path, m)); err == nil && fi.IsDir() {
			kind = "directory"
		}
		fmt.Fprintf(&b, "%-10s %s\n", kind, m)
	}
	return b.String(), nil
}

func (f *FileOps) fileSize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file does not exist: %s", path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", path)
	}
	return fmt.Sprintf("File size: %s", humanSize(info.Size())), nil
}

func (f *FileOps) directorySize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}

	var total int64
	var fileCount, dirCount int
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == path {
			return nil
		}
		if d.IsDir() {
			dirCount++
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
			fileCount++
		}
		return nil
	})

	lines := []string{
		fmt.Sprintf("Directory: %s", path),
		fmt.Sprintf("Total size: %s (%d bytes)", humanSize(total), total),
		fmt.Sprintf("Files: %d", fileCount),
		fmt.Sprintf("Subdirectories: %d", dirCount),
	}
	return strings.Join(lines, "\n"), nil
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d bytes", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %s", float64(size)/float64(div), []string{"KB", "MB", "GB", "TB"}[exp])
}
