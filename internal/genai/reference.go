package genai

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadReference reads few-shot material from a directory laid out as:
//
//	source.txt   extracted text of a known-good source document
//	test.xml     the expected root test file for it
//	items/*.xml  the expected item files
//	notes.txt    optional free-form guidance
//
// Only source.txt is required; everything else is picked up when present.
func LoadReference(dir string) (Reference, error) {
	src, err := os.ReadFile(filepath.Join(dir, "source.txt"))
	if err != nil {
		return Reference{}, fmt.Errorf("genai: reference %s: %w", dir, err)
	}
	ref := Reference{SourceText: string(src)}

	if b, err := os.ReadFile(filepath.Join(dir, "test.xml")); err == nil {
		ref.Test = string(b)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "notes.txt")); err == nil {
		ref.Notes = string(b)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "items", "*.xml"))
	if err != nil {
		return ref, nil
	}
	sort.Strings(paths)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		ref.Items = append(ref.Items, string(b))
	}
	return ref, nil
}
