package imagestore_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/septivank/utility-metering-api/internal/imagestore"
)

func TestSave_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	store := imagestore.NewStore(dir, "/files")

	if err := store.Save("u-1.jpg", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "u-1.jpg"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}

	if !bytes.Equal(data, []byte("jpeg-bytes")) {
		t.Errorf("Saved content mismatch, got %q", data)
	}
}

func TestURLFor(t *testing.T) {
	store := imagestore.NewStore(t.TempDir(), "/files")

	url := store.URLFor("http", "localhost:8080", "u-1.jpg")

	expected := "http://localhost:8080/files/u-1.jpg"
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}

func TestURLFor_NormalizesPrefix(t *testing.T) {
	store := imagestore.NewStore(t.TempDir(), "files/")

	url := store.URLFor("https", "meters.example.com", "u-2.jpg")

	expected := "https://meters.example.com/files/u-2.jpg"
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}
