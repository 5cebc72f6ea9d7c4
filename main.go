package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"text2sql/internal/llm"
	"text2sql/internal/schema"
)

const (
	defaultAddr     = ":8080"
	defaultRowLimit = 100
	maxRowLimit     = 1000
	llmTimeout      = 60 * time.Second
	ingestTimeout   = 30 * time.Second
)

type app struct {
	store    *schema.Store
	llm      llm.Provider
	rowLimit int
}

func main() {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	addr := env("ADDR", defaultAddr)
	rowLimit := envInt("DEFAULT_ROW_LIMIT", defaultRowLimit)

	var provider llm.Provider
	if os.Getenv("LLM_API_KEY") != "" {
		p, err := llm.NewProviderFromEnv()
		if err != nil {
			log.Printf("warning: failed to initialize LLM: %v", err)
		} else {
			provider = p
			log.Printf("LLM provider initialized: %s", p.Name())
		}
	} else {
		log.Printf("LLM not configured (set LLM_API_KEY to enable)")
	}

	app := &app{
		store:    schema.NewStore(),
		llm:      provider,
		rowLimit: rowLimit,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", app.handleHealthz)
	r.Post("/upload-schema", app.handleUploadSchema)
	r.Post("/ingest-schema", app.handleIngestSchema)
	r.Get("/schema/{dbKey}", app.handleGetSchema)
	r.Post("/generate-sql", app.handleGenerateSQL)
	r.Post("/fix-sql", app.handleFixSQL)
	r.Post("/explain-sql", app.handleExplainSQL)
	r.Post("/optimize-sql", app.handleOptimizeSQL)
	r.Post("/suggest-next", app.handleSuggestNext)
	r.Post("/suggest-joins", app.handleSuggestJoins)

	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("warning: ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxRowLimit {
		return maxRowLimit
	}
	return limit
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
