// Package convert orchestrates the two pipeline flows: QTI document to
// Moodle XML, and source PDF through the generation service to Moodle XML.
// Conversion records are kept behind a Store so independent invocations
// share nothing but the database.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openassess/qtibridge/internal/genai"
	"github.com/openassess/qtibridge/internal/moodle"
	"github.com/openassess/qtibridge/internal/pdfext"
	"github.com/openassess/qtibridge/internal/qti/parser"
	"github.com/openassess/qtibridge/internal/storage"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"

	KindQTI = "qti"
	KindPDF = "pdf"
)

// Conversion is one pipeline run, successful or not.
type Conversion struct {
	ID         string `json:"id"`
	SourceName string `json:"source_name"`
	SourceKind string `json:"source_kind"`
	Status     string `json:"status"`
	MoodleXML  string `json:"moodle_xml,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

type ListOpts struct {
	Limit  int
	Offset int
}

type Store interface {
	PutConversion(c Conversion) error
	GetConversion(id string) (Conversion, error)
	ListConversions(ctx context.Context, opts ListOpts) ([]Conversion, error)
}

// Service wires the parser, the renderer and the generation boundary.
// gen may be nil when only QTI input is served.
type Service struct {
	store     Store
	gen       *genai.Client
	ref       genai.Reference
	artifacts storage.BlobStore
	encoding  string
}

func NewService(store Store, gen *genai.Client, encoding string) *Service {
	return &Service{store: store, gen: gen, encoding: encoding}
}

// SetReference installs the few-shot material forwarded to the generation
// service for PDF conversions.
func (s *Service) SetReference(ref genai.Reference) { s.ref = ref }

// SetArtifacts enables retention of rendered output files alongside the
// database record.
func (s *Service) SetArtifacts(bs storage.BlobStore) { s.artifacts = bs }

// ConvertQTIFile parses the root document at path and renders it to Moodle
// XML. Every run is recorded; a document-level failure records the error
// and returns it, with no partial output.
func (s *Service) ConvertQTIFile(ctx context.Context, path, sourceName string) (Conversion, error) {
	return s.record(sourceName, KindQTI, func() (string, error) {
		def, err := parser.ParseFile(path, s.encoding)
		if err != nil {
			return "", err
		}
		rendered, err := moodle.Render(def)
		if err != nil {
			return "", err
		}
		return moodle.FixText(rendered), nil
	})
}

// ConvertPDF extracts the PDF's text, asks the generation service to draft
// a QTI document, and feeds that document through the QTI flow. A failed
// generation is terminal: nothing is drafted, nothing is rendered.
func (s *Service) ConvertPDF(ctx context.Context, pdfPath, sourceName string) (Conversion, error) {
	if s.gen == nil {
		return Conversion{}, errors.New("convert: no generation client configured")
	}
	return s.record(sourceName, KindPDF, func() (string, error) {
		text, err := pdfext.ExtractText(pdfPath)
		if err != nil {
			return "", err
		}
		xmlText, err := s.gen.GenerateQTI(ctx, text, s.ref)
		if err != nil {
			return "", err
		}
		dir, err := os.MkdirTemp("", "qtibridge-gen-*")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(dir)
		qtiPath := filepath.Join(dir, "qti_output.xml")
		if err := os.WriteFile(qtiPath, []byte(xmlText), 0o644); err != nil {
			return "", err
		}
		def, err := parser.ParseFile(qtiPath, parser.EncodingUTF8)
		if err != nil {
			return "", err
		}
		rendered, err := moodle.Render(def)
		if err != nil {
			return "", err
		}
		return moodle.FixText(rendered), nil
	})
}

func (s *Service) record(sourceName, kind string, run func() (string, error)) (Conversion, error) {
	c := Conversion{
		ID:         randID(),
		SourceName: sourceName,
		SourceKind: kind,
		CreatedAt:  time.Now().Unix(),
	}
	out, err := run()
	if err != nil {
		c.Status = StatusFailed
		c.Error = err.Error()
		if putErr := s.store.PutConversion(c); putErr != nil {
			return c, fmt.Errorf("%v (store: %v)", err, putErr)
		}
		return c, err
	}
	c.Status = StatusSucceeded
	c.MoodleXML = out
	if err := s.store.PutConversion(c); err != nil {
		return c, err
	}
	if s.artifacts != nil {
		key := "conversions/" + c.ID + "/moodle.xml"
		if _, err := s.artifacts.Put(key, strings.NewReader(out)); err != nil {
			log.Printf("convert: keep artifact %s: %v", key, err)
		}
	}
	return c, nil
}

func (s *Service) Get(id string) (Conversion, error) { return s.store.GetConversion(id) }

func (s *Service) List(ctx context.Context, opts ListOpts) ([]Conversion, error) {
	return s.store.ListConversions(ctx, opts)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randID() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return "cnv-" + string(b)
}

// memoryStore is the dependency-free Store used by the CLI and tests.
type memoryStore struct {
	mu          sync.RWMutex
	conversions map[string]Conversion
}

func NewInMemoryStore() Store {
	return &memoryStore{conversions: map[string]Conversion{}}
}

func (m *memoryStore) PutConversion(c Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversions[c.ID] = c
	return nil
}

func (m *memoryStore) GetConversion(id string) (Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversions[id]
	if !ok {
		return Conversion{}, errors.New("conversion not found")
	}
	return c, nil
}

func (m *memoryStore) ListConversions(_ context.Context, opts ListOpts) ([]Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conversion, 0, len(m.conversions))
	for _, c := range m.conversions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}
