package manifest

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/resgen/pkg/engine"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	return path
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr *engine.GenerationError
	}{
		{
			name:    "package attribute",
			content: `<?xml version="1.0" encoding="utf-8"?><manifest package="com.example.app"/>`,
			want:    "com.example.app",
		},
		{
			name:    "latin-1 declaration",
			content: `<?xml version="1.0" encoding="ISO-8859-1"?><manifest package="com.example.app"/>`,
			want:    "com.example.app",
		},
		{
			name:    "latin-1 content",
			content: "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<manifest package=\"com.example.caf\xe9\"/>",
			want:    "com.example.café",
		},
		{
			name:    "unknown encoding",
			content: `<?xml version="1.0" encoding="x-unknown"?><manifest package="com.example.app"/>`,
			wantErr: engine.ErrMissingManifest,
		},
		{
			name: "android namespace declared",
			content: `<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="com.example.lib" android:versionCode="1">
  <application/>
</manifest>`,
			want: "com.example.lib",
		},
		{
			name:    "first manifest element wins",
			content: `<root><manifest package="first"/><manifest package="second"/></root>`,
			want:    "first",
		},
		{
			name:    "missing package attribute",
			content: `<manifest xmlns:android="http://schemas.android.com/apk/res/android"/>`,
			wantErr: engine.ErrMissingPackageIdentity,
		},
		{
			name:    "empty package attribute",
			content: `<manifest package=""/>`,
			wantErr: engine.ErrMissingPackageIdentity,
		},
		{
			name:    "namespaced package only",
			content: `<manifest xmlns:android="http://schemas.android.com/apk/res/android" android:package="x"/>`,
			wantErr: engine.ErrMissingPackageIdentity,
		},
		{
			name:    "malformed xml",
			content: `<manifest package="com.example.app">`,
			wantErr: engine.ErrMissingManifest,
		},
		{
			name:    "malformed after manifest",
			content: `<manifest package="com.example.app"></manifest><`,
			wantErr: engine.ErrMissingManifest,
		},
		{
			name:    "no manifest element",
			content: `<application/>`,
			wantErr: engine.ErrMissingManifest,
		},
		{
			name:    "empty document",
			content: ``,
			wantErr: engine.ErrMissingManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver().Resolve(writeManifest(t, tt.content))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %s, got %v", tt.wantErr.Code, err)
				}
				if !engine.IsManifestError(err) {
					t.Errorf("Expected manifest error class, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolver_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.xml")

	_, err := NewResolver().Resolve(path)
	if !errors.Is(err, engine.ErrMissingManifest) {
		t.Fatalf("Expected missing manifest error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected the underlying not-exist error to be kept, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("Expected error to name the file, got %v", err)
	}
}

func TestResolver_WithOpener(t *testing.T) {
	var opened []string
	r := NewResolver(WithOpener(func(path string) (io.ReadCloser, error) {
		opened = append(opened, path)
		return io.NopCloser(strings.NewReader(`<manifest package="com.example.app"/>`)), nil
	}))

	got, err := r.Resolve("virtual/AndroidManifest.xml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "com.example.app" {
		t.Errorf("Expected com.example.app, got %s", got)
	}
	if len(opened) != 1 || opened[0] != "virtual/AndroidManifest.xml" {
		t.Errorf("Expected one open of the manifest, got %v", opened)
	}
}
