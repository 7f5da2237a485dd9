package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileOps_MissingPath(t *testing.T) {
	f := NewFileOps(nil)
	if _, err := f.Execute(FileRequest{Operation: OpListDirectory}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestFileOps_UnknownOperation(t *testing.T) {
	f := NewFileOps(nil)
	if _, err := f.Execute(FileRequest{Operation: "teleport", Path: "/tmp"}); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestFileOps_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)

	f := NewFileOps(nil)
	out, err := f.Execute(FileRequest{Operation: OpListDirectory, Path: dir})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "visible.txt") || !strings.Contains(out, "sub") {
		t.Errorf("entries missing from listing:\n%s", out)
	}
	if strings.Contains(out, ".hidden") {
		t.Errorf("hidden file listed without showHidden:\n%s", out)
	}

	out, err = f.Execute(FileRequest{Operation: OpListDirectory, Path: dir, ShowHidden: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, ".hidden") {
		t.Errorf("hidden file missing with showHidden:\n%s", out)
	}
}

func TestFileOps_CreateDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "made")

	f := NewFileOps(nil)
	if _, err := f.Execute(FileRequest{Operation: OpCreateDirectory, Path: target}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		t.Fatal("directory not created")
	}

	// Creating it again fails.
	if _, err := f.Execute(FileRequest{Operation: OpCreateDirectory, Path: target}); err == nil {
		t.Fatal("expected error for existing directory")
	}

	// Nested creation needs recursive.
	nested := filepath.Join(dir, "a", "b", "c")
	if _, err := f.Execute(FileRequest{Operation: OpCreateDirectory, Path: nested}); err == nil {
		t.Fatal("expected error for nested create without recursive")
	}
	if _, err := f.Execute(FileRequest{Operation: OpCreateDirectory, Path: nested, Recursive: true}); err != nil {
		t.Fatalf("recursive create failed: %v", err)
	}
}

func TestFileOps_CopyAndMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	os.WriteFile(src, []byte("payload"), 0644)

	f := NewFileOps(nil)

	dst := filepath.Join(dir, "deep", "dst.txt")
	if _, err := f.Execute(FileRequest{Operation: OpCopyFile, Path: src, Destination: dst}); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("copied content wrong: %q %v", data, err)
	}

	moved := filepath.Join(dir, "moved.txt")
	if _, err := f.Execute(FileRequest{Operation: OpMoveFile, Path: dst, Destination: moved}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("source survived move")
	}
	if _, err := os.Stat(moved); err != nil {
		t.Error("destination missing after move")
	}

	// Copy requires a destination.
	if _, err := f.Execute(FileRequest{Operation: OpCopyFile, Path: moved}); err == nil {
		t.Fatal("expected error for missing destination")
	}
}

func TestFileOps_CopyDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	os.MkdirAll(filepath.Join(src, "nested"), 0755)
	os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("n"), 0644)

	f := NewFileOps(nil)
	dst := filepath.Join(dir, "dstdir")
	if _, err := f.Execute(FileRequest{Operation: OpCopyDirectory, Path: src, Destination: dst}); err != nil {
		t.Fatalf("copy dir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "nested", "f.txt")); err != nil {
		t.Error("nested file missing in copy")
	}

	// Existing destination is rejected.
	if _, err := f.Execute(FileRequest{Operation: OpCopyDirectory, Path: src, Destination: dst}); err == nil {
		t.Fatal("expected error for existing destination")
	}
}

func TestFileOps_Delete(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gone.txt")
	os.WriteFile(file, []byte("x"), 0644)

	f := NewFileOps(nil)
	if _, err := f.Execute(FileRequest{Operation: OpDeleteFile, Path: file}); err != nil {
		t.Fatalf("delete file failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("file survived delete")
	}

	full := filepath.Join(dir, "full")
	os.Mkdir(full, 0755)
	os.WriteFile(filepath.Join(full, "inner.txt"), []byte("x"), 0644)

	// Non-recursive delete of a non-empty directory fails.
	if _, err := f.Execute(FileRequest{Operation: OpDeleteDirectory, Path: full}); err == nil {
		t.Fatal("expected error deleting non-empty directory")
	}
	if _, err := f.Execute(FileRequest{Operation: OpDeleteDirectory, Path: full, Recursive: true}); err != nil {
		t.Fatalf("recursive delete failed: %v", err)
	}
}

func TestFileOps_FileInfoAndSizes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "info.txt")
	os.WriteFile(file, []byte("12345"), 0644)

	f := NewFileOps(nil)

	out, err := f.Execute(FileRequest{Operation: OpGetFileInfo, Path: file})
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if !strings.Contains(out, "Type: File") || !strings.Contains(out, "Size: 5 bytes") {
		t.Errorf("unexpected info output:\n%s", out)
	}

	out, err = f.Execute(FileRequest{Operation: OpGetFileSize, Path: file})
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if !strings.Contains(out, "5 bytes") {
		t.Errorf("unexpected size output: %s", out)
	}

	out, err = f.Execute(FileRequest{Operation: OpGetDirectorySize, Path: dir})
	if err != nil {
		t.Fatalf("dir size failed: %v", err)
	}
	if !strings.Contains(out, "Files: 1") {
		t.Errorf("unexpected dir size output:\n%s", out)
	}
}

func TestFileOps_ChangePermissions(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "perm.txt")
	os.WriteFile(file, []byte("x"), 0644)

	f := NewFileOps(nil)
	if _, err := f.Execute(FileRequest{Operation: OpChangePermissions, Path: file, Permissions: "600"}); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	info, _ := os.Stat(file)
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 600, got %o", info.Mode().Perm())
	}

	if _, err := f.Execute(FileRequest{Operation: OpChangePermissions, Path: file, Permissions: "bogus"}); err == nil {
		t.Fatal("expected error for bogus permissions")
	}
}

func TestFileOps_FindFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "top.go"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(dir, "pkg"), 0755)
	os.WriteFile(filepath.Join(dir, "pkg", "deep.go"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0644)

	f := NewFileOps(nil)

	out, err := f.Execute(FileRequest{Operation: OpFindFiles, Path: dir, Pattern: "*.go"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !strings.Contains(out, "top.go") {
		t.Errorf("top-level match missing:\n%s", out)
	}
	if strings.Contains(out, "deep.go") {
		t.Errorf("nested match returned without recursive:\n%s", out)
	}

	out, err = f.Execute(FileRequest{Operation: OpFindFiles, Path: dir, Pattern: "*.go", Recursive: true})
	if err != nil {
		t.Fatalf("recursive find failed: %v", err)
	}
	if !strings.Contains(out, "deep.go") {
		t.Errorf("nested match missing with recursive:\n%s", out)
	}

	out, err = f.Execute(FileRequest{Operation: OpFindFiles, Path: dir, Pattern: "*.rs"})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !strings.Contains(out, "No files found") {
		t.Errorf("expected no-match message, got:\n%s", out)
	}
}
