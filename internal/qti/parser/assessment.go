// Package parser turns loosely-validated QTI 3.0 documents into the typed
// assessment model. It tolerates schema variance at the data level, skips
// broken items, and fails whole documents only for genuine I/O, encoding
// or well-formedness problems.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/openassess/qtibridge/internal/qti/model"
)

// EncodingUTF8 and EncodingUTF16 are the two encodings the builder will
// attempt. Whichever the caller names first, the other is the fallback.
const (
	EncodingUTF8  = "utf-8"
	EncodingUTF16 = "utf-16"
)

// ErrBadEncoding reports that the document decoded under neither encoding.
var ErrBadEncoding = errors.New("document not decodable as utf-8 or utf-16")

const rootTag = "assessment-test"

// ParseFile reads the root document at path and builds the assessment
// definition. Referenced item files resolve relative to the document's
// directory. All failures here are document-level: no partial result.
func ParseFile(path, encoding string) (*model.AssessmentDefinition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("qti: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("qti: %s is empty", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qti: %w", err)
	}
	text, err := decodeWithFallback(raw, encoding)
	if err != nil {
		return nil, err
	}
	root, err := decodeTree(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("qti: malformed document %s: %w", path, err)
	}
	return buildDefinition(root, filepath.Dir(path))
}

// decodeWithFallback transcodes raw to UTF-8, retrying once with the
// alternate of {utf-8, utf-16}. Both failing is fatal for the document.
func decodeWithFallback(raw []byte, encoding string) (string, error) {
	order := []string{EncodingUTF8, EncodingUTF16}
	if strings.EqualFold(encoding, EncodingUTF16) {
		order = []string{EncodingUTF16, EncodingUTF8}
	}
	for _, enc := range order {
		text, err := decodeAs(raw, enc)
		if err == nil {
			return text, nil
		}
		log.Printf("qti: decode as %s failed: %v", enc, err)
	}
	return "", ErrBadEncoding
}

func decodeAs(raw []byte, enc string) (string, error) {
	if enc == EncodingUTF16 {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out := bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(out) {
		return "", fmt.Errorf("invalid utf-8 byte sequence")
	}
	// NUL bytes mean a BOM-less utf-16 file, not real utf-8 text.
	if bytes.IndexByte(out, 0x00) >= 0 {
		return "", fmt.Errorf("embedded NUL bytes, likely utf-16")
	}
	return string(out), nil
}

// buildDefinition descends root -> test-part -> assessment-section -> item.
// An unexpected root tag is logged but not fatal: the walk proceeds with
// whatever parts it finds, matching the looseness of real-world documents.
func buildDefinition(root *element, baseDir string) (*model.AssessmentDefinition, error) {
	if root.tag != rootTag {
		log.Printf("qti: unexpected root element %q, proceeding", root.tag)
	}

	var parts []model.TestPart
	for _, child := range root.children() {
		if child.tag != "test-part" {
			continue
		}
		part, err := buildPart(child, baseDir)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	def, err := model.NewAssessmentDefinition(
		root.attr("identifier", model.Undefined),
		root.attr("title", model.Undefined),
		parts,
	)
	if err != nil {
		return nil, err
	}
	def.ToolName = root.attr("tool-name", "")
	def.ToolVersion = root.attr("tool-version", "")
	return def, nil
}

func buildPart(partEl *element, baseDir string) (model.TestPart, error) {
	var sections []model.TestSection
	for _, child := range partEl.children() {
		if child.tag == "assessment-section" {
			sections = append(sections, buildSection(child, baseDir))
		}
	}
	return model.NewTestPart(
		partEl.attr("identifier", model.Undefined),
		partEl.attr("title", model.Undefined),
		navigationMode(partEl.attr("navigation-mode", "")),
		submissionMode(partEl.attr("submission-mode", "")),
		sections,
	)
}

// buildSection gathers the section's items and recurses into nested
// sub-sections. Items that fail to load are logged and dropped; the
// aggregate covers whatever parsed.
func buildSection(sectionEl *element, baseDir string) model.TestSection {
	section := model.TestSection{
		Identifier:   sectionEl.attr("identifier", model.Undefined),
		Title:        sectionEl.attr("title", model.Undefined),
		Visible:      sectionEl.attr("visible", "true") == "true",
		Required:     sectionEl.attr("required", "") == "true",
		Fixed:        sectionEl.attr("fixed", "") == "true",
		KeepTogether: sectionEl.attr("keep-together", "true") == "true",
	}
	for _, child := range sectionEl.children() {
		switch child.tag {
		case "assessment-item-ref", "assessment-item":
			q, err := buildQuestion(child, baseDir)
			if err != nil {
				log.Printf("qti: skipping item: %v", err)
				continue
			}
			section.Questions = append(section.Questions, q)
		case "assessment-section":
			section.SubSections = append(section.SubSections, buildSection(child, baseDir))
		}
	}
	return section
}

func navigationMode(v string) model.NavigationMode {
	if strings.EqualFold(v, "nonlinear") {
		return model.NavigationNonlinear
	}
	return model.NavigationLinear
}

func submissionMode(v string) model.SubmissionMode {
	if strings.EqualFold(v, "simultaneous") {
		return model.SubmissionSimultaneous
	}
	return model.SubmissionIndividual
}
