package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/openassess/qtibridge/internal/api/http"
	"github.com/openassess/qtibridge/internal/auth"
	"github.com/openassess/qtibridge/internal/config"
	"github.com/openassess/qtibridge/internal/convert"
	"github.com/openassess/qtibridge/internal/db"
	"github.com/openassess/qtibridge/internal/genai"
	"github.com/openassess/qtibridge/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := convert.NewSQLStore(dbh)

	// --- Blob store (kept artifacts) ---
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	gen := genai.NewClient(cfg.GenBaseURL, cfg.GenAPIKey, cfg.GenModel, genai.RetryPolicy{
		MaxAttempts: cfg.GenMaxAttempts,
		Backoff:     cfg.GenBackoff,
	})
	svc := convert.NewService(store, gen, cfg.SourceEncoding)
	svc.SetArtifacts(bs)
	if cfg.GenRefDir != "" {
		ref, err := genai.LoadReference(cfg.GenRefDir)
		if err != nil {
			log.Fatalf("reference material: %v", err)
		}
		svc.SetReference(ref)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, cfg.AdminUser, cfg.AdminPassHash))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.Routes(pr, svc)
	})

	log.Printf("convertd listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}
