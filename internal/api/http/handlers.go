// Package http exposes the conversion pipeline over a small authenticated
// API: upload a QTI document (or package) or a source PDF, get Moodle XML
// back, and browse past conversions.
package http

import (
	"archive/zip"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openassess/qtibridge/internal/convert"
)

// POST /convert/qti (multipart: file=test.xml or package.zip)
// A zip upload carries the root document plus any href-referenced item
// files; references resolve inside the extracted directory.
func ConvertQTIHandler(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", 400)
			return
		}
		defer f.Close()

		dir, err := os.MkdirTemp("", "qti-upload-*")
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		defer os.RemoveAll(dir)

		var rootPath string
		if strings.HasSuffix(strings.ToLower(hdr.Filename), ".zip") {
			rootPath, err = unpackPackage(f, hdr.Size, dir)
			if err != nil {
				http.Error(w, "unzip: "+err.Error(), 400)
				return
			}
		} else {
			rootPath = filepath.Join(dir, filepath.Base(hdr.Filename))
			out, err := os.Create(rootPath)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			if _, err := io.Copy(out, f); err != nil {
				out.Close()
				http.Error(w, err.Error(), 500)
				return
			}
			out.Close()
		}

		c, err := svc.ConvertQTIFile(r.Context(), rootPath, hdr.Filename)
		if err != nil {
			http.Error(w, "convert: "+err.Error(), 422)
			return
		}
		respondConversion(w, c)
	}
}

// POST /convert/pdf (multipart: file=source.pdf)
func ConvertPDFHandler(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", 400)
			return
		}
		defer f.Close()

		tmp, err := os.CreateTemp("", "pdf-upload-*.pdf")
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, f); err != nil {
			tmp.Close()
			http.Error(w, err.Error(), 500)
			return
		}
		tmp.Close()

		c, err := svc.ConvertPDF(r.Context(), tmp.Name(), hdr.Filename)
		if err != nil {
			http.Error(w, "convert: "+err.Error(), 422)
			return
		}
		respondConversion(w, c)
	}
}

// GET /conversions?limit=&offset=
func ListConversionsHandler(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		list, err := svc.List(r.Context(), convert.ListOpts{Limit: limit, Offset: offset})
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		// listings stay light: the rendered XML is fetched per conversion
		for i := range list {
			list[i].MoodleXML = ""
		}
		_ = json.NewEncoder(w).Encode(list)
	}
}

// GET /conversions/{id}
func GetConversionHandler(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	}
}

// GET /conversions/{id}/download
func DownloadConversionHandler(svc *convert.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		if c.Status != convert.StatusSucceeded {
			http.Error(w, "conversion did not succeed", 409)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="moodle.xml"`)
		_, _ = io.WriteString(w, c.MoodleXML)
	}
}

func respondConversion(w http.ResponseWriter, c convert.Conversion) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c)
}

// unpackPackage extracts an uploaded zip into dir and locates the root
// test document: the entry whose content carries an assessment-test root,
// else the first XML entry.
func unpackPackage(f io.Reader, size int64, dir string) (string, error) {
	tmp, err := os.CreateTemp("", "qti-pkg-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		return "", err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return "", err
	}
	defer tmp.Close()

	zr, err := zip.NewReader(tmp, info.Size())
	if err != nil {
		return "", err
	}
	var firstXML, rootPath string
	for _, zf := range zr.File {
		dst := filepath.Join(dir, filepath.Clean(zf.Name))
		if !strings.HasPrefix(dst, filepath.Clean(dir)+string(os.PathSeparator)) {
			continue // entry escaping the extraction dir
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", err
		}
		rc, err := zf.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return "", err
		}
		if strings.HasSuffix(strings.ToLower(zf.Name), ".xml") {
			if firstXML == "" {
				firstXML = dst
			}
			if rootPath == "" && strings.Contains(string(data), "assessment-test") {
				rootPath = dst
			}
		}
	}
	if rootPath != "" {
		return rootPath, nil
	}
	if firstXML != "" {
		return firstXML, nil
	}
	return "", os.ErrNotExist
}

// Routes mounts the conversion API on r. Auth is applied by the caller.
func Routes(r chi.Router, svc *convert.Service) {
	r.Post("/convert/qti", ConvertQTIHandler(svc))
	r.Post("/convert/pdf", ConvertPDFHandler(svc))
	r.Get("/conversions", ListConversionsHandler(svc))
	r.Get("/conversions/{id}", GetConversionHandler(svc))
	r.Get("/conversions/{id}/download", DownloadConversionHandler(svc))
}
