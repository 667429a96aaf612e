package buildhost

import (
	"path/filepath"
	"testing"
)

func TestDirSet_ZeroValue(t *testing.T) {
	var d DirSet

	if d.Len() != 0 {
		t.Errorf("Expected empty set, got %d dirs", d.Len())
	}
	if d.Contains("/tmp") {
		t.Error("Expected zero value to contain nothing")
	}
	if dirs := d.Dirs(); len(dirs) != 0 {
		t.Errorf("Expected no dirs, got %v", dirs)
	}
}

func TestDirSet_Add(t *testing.T) {
	tests := []struct {
		name    string
		add     []string
		want    int
		wantErr bool
	}{
		{name: "single", add: []string{"/a"}, want: 1},
		{name: "distinct", add: []string{"/a", "/b"}, want: 2},
		{name: "duplicate ignored", add: []string{"/a", "/a"}, want: 1},
		{name: "unclean duplicate ignored", add: []string{"/a/b", "/a/./b/"}, want: 1},
		{name: "empty path", add: []string{"  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d DirSet
			var err error
			for _, dir := range tt.add {
				if err = d.Add(dir); err != nil {
					break
				}
			}

			if (err != nil) != tt.wantErr {
				t.Fatalf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.Len() != tt.want {
				t.Errorf("Expected %d dirs, got %d", tt.want, d.Len())
			}
		})
	}
}

func TestDirSet_RelativePathResolved(t *testing.T) {
	var d DirSet
	if err := d.Add("relative/dir"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	dirs := d.Dirs()
	if !filepath.IsAbs(dirs[0]) {
		t.Errorf("Expected absolute path, got %s", dirs[0])
	}
	if !d.Contains("relative/dir") {
		t.Error("Expected set to contain the relative dir")
	}
}

func TestDirSet_DirsIsCopy(t *testing.T) {
	var d DirSet
	_ = d.Add("/a")

	dirs := d.Dirs()
	dirs[0] = "/mutated"

	if !d.Contains("/a") || d.Dirs()[0] != "/a" {
		t.Error("Expected Dirs() to return a copy")
	}
}
