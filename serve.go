package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sama/proxy"
	"sama/rag"
	"sama/shutdown"
	"sama/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runServe starts the custom-LLM proxy that the voice platform calls
// back into: Ollama completions with conversation memory and
// knowledge-base retrieval.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":5000", "Listen address for the proxy")
	ollamaURL := fs.String("ollama", envOr("OLLAMA_BASE_URL", "http://localhost:11434"), "Ollama base URL")
	model := fs.String("model", envOr("OLLAMA_MODEL", "mistral:7b"), "Chat model served by Ollama")
	embedModel := fs.String("embed-model", envOr("EMBED_MODEL", rag.DefaultEmbedModel), "Embedding model for knowledge-base search")
	dataDir := fs.String("data", "data", "Directory for the conversation db and knowledge base")
	fs.Parse(args)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Fatal().Err(err).Msg("create data directory")
	}

	dbPath := filepath.Join(*dataDir, "conversations.db")
	conv, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open conversation store")
	}
	defer conv.Close()

	embedder := rag.NewEmbedder(strings.TrimSuffix(*ollamaURL, "/")+"/v1", "", *embedModel)
	kb, err := rag.OpenStore(filepath.Join(*dataDir, "kb"), embedder)
	if err != nil {
		logger.Warn().Err(err).Msg("knowledge base unavailable, serving without retrieval")
		kb = nil
	} else {
		defer kb.Close()
	}

	llm := proxy.NewOllamaCompleter(*ollamaURL, *model)
	srv := proxy.NewServer(llm, conv, kb, logger, *model)
	httpSrv := &http.Server{Addr: *addr, Handler: srv.Router()}

	ragMode := "OFF (no knowledge base)"
	if kb != nil {
		ragMode = fmt.Sprintf("ON (%d chunks)", kb.Len())
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("  Sama Wellness - Custom LLM Proxy")
	fmt.Printf("  Ollama URL  : %s\n", *ollamaURL)
	fmt.Printf("  Model       : %s\n", *model)
	fmt.Printf("  RAG         : %s\n", ragMode)
	fmt.Printf("  Memory      : SQLite (%s)\n", dbPath)
	fmt.Printf("  Endpoint    : http://localhost%s/chat/completions\n", *addr)
	fmt.Println(strings.Repeat("=", 60))

	shutdown.Handle(func() {
		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	})

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("proxy server")
	}
}
