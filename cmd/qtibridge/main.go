package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openassess/qtibridge/internal/eval"
	"github.com/openassess/qtibridge/internal/genai"
	"github.com/openassess/qtibridge/internal/moodle"
	"github.com/openassess/qtibridge/internal/pdfext"
	"github.com/openassess/qtibridge/internal/qti/parser"
)

// qtibridge converts a QTI 3.0 assessment (or a PDF exam source) into a
// Moodle XML quiz in a single run. PDF inputs are first turned into QTI
// via an OpenAI-compatible endpoint; OPENAI_API_KEY must be set for that
// path.
func main() {
	var (
		in       = flag.String("in", "", "input file (.xml QTI assessment or .pdf exam)")
		out      = flag.String("out", ".", "output directory")
		name     = flag.String("name", "moodle.xml", "output file name")
		encoding = flag.String("encoding", "utf-8", "source encoding for QTI files (utf-8 or utf-16)")
		model    = flag.String("model", envOr("OPENAI_MODEL", "gpt-4o"), "model for PDF conversion")
		refDir   = flag.String("ref", "", "few-shot reference directory for PDF conversion")
		compare  = flag.String("compare", "", "reference QTI file; prints a JSON accuracy report instead of rendering")
		keepQTI  = flag.Bool("keep-qti", false, "for PDF inputs, also write the intermediate QTI next to the output")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall deadline for PDF conversion")
	)
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	qtiPath := *in
	if strings.EqualFold(filepath.Ext(*in), ".pdf") {
		p, err := generateQTI(ctx, *in, *out, *model, *refDir, *keepQTI)
		if err != nil {
			log.Fatalf("pdf conversion failed: %v", err)
		}
		qtiPath = p
	}

	def, err := parser.ParseFile(qtiPath, *encoding)
	if err != nil {
		log.Fatalf("parse %s: %v", qtiPath, err)
	}

	if *compare != "" {
		want, err := parser.ParseFile(*compare, *encoding)
		if err != nil {
			log.Fatalf("parse reference %s: %v", *compare, err)
		}
		rep := eval.Compare(def.Questions(), want.Questions())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Fatal(err)
		}
		return
	}

	gen := moodle.Generator{OutputDir: *out, FileName: *name}
	path, err := gen.Generate(def)
	if err != nil {
		log.Fatalf("write moodle xml: %v", err)
	}
	log.Printf("wrote %s (%d question(s))", path, len(def.Questions()))
}

func generateQTI(ctx context.Context, pdfPath, outDir, model, refDir string, keep bool) (string, error) {
	text, err := pdfext.ExtractText(pdfPath)
	if err != nil {
		return "", err
	}

	var ref genai.Reference
	if refDir != "" {
		if ref, err = genai.LoadReference(refDir); err != nil {
			return "", err
		}
	}

	client := genai.NewClient(
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENAI_API_KEY"),
		model,
		genai.DefaultRetryPolicy(),
	)
	doc, err := client.GenerateQTI(ctx, text, ref)
	if err != nil {
		return "", err
	}

	dir := outDir
	if keep {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	} else {
		tmp, err := os.MkdirTemp("", "qtibridge-*")
		if err != nil {
			return "", err
		}
		dir = tmp
	}
	path := filepath.Join(dir, "qti_output.xml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
