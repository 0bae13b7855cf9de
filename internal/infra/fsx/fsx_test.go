package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_ReplaceAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "a.json")

	if err := WriteFileAtomic(p, []byte("old")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomic(p, []byte("new")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "new" {
		t.Fatalf("期望覆盖为 new，实际 %q", string(b))
	}
	assertNoTemp(t, filepath.Dir(p), "a.json")
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(filepath.Join(dir, "a.json"), []byte("x")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	assertNoTemp(t, dir, "a.json")
	if _, err := os.Stat(filepath.Join(dir, "a.json")); !os.IsNotExist(err) {
		t.Fatalf("rename 失败时不应出现目标文件")
	}
}

func TestWriteFileAtomic_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.json"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	err := WriteFileAtomic(filepath.Join(dir, "a.json"), []byte("x"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际 %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.json")

	var v map[string]int
	exists, err := ReadJSON(p, &v)
	if err != nil || exists {
		t.Fatalf("文件不存在时应 exists=false 且无错误：exists=%v err=%v", exists, err)
	}

	if err := WriteJSONAtomic(p, map[string]int{"a": 1}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	exists, err = ReadJSON(p, &v)
	if err != nil || !exists || v["a"] != 1 {
		t.Fatalf("读回不符合预期：exists=%v err=%v v=%v", exists, err, v)
	}

	if err := os.WriteFile(p, []byte("{"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if _, err := ReadJSON(p, &v); err == nil {
		t.Fatalf("期望解析错误，但得到 nil")
	}
}

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}
