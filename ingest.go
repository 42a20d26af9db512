package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sama/rag"
)

// runIngest chunks and embeds documents into the knowledge base that
// the serve proxy searches. Supported formats: .txt, .md.
func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := fs.String("file", "", "Ingest a single file")
	dir := fs.String("dir", "documents", "Directory containing documents")
	dataDir := fs.String("data", "data", "Directory holding the knowledge base")
	ollamaURL := fs.String("ollama", envOr("OLLAMA_BASE_URL", "http://localhost:11434"), "Ollama base URL")
	embedModel := fs.String("embed-model", envOr("EMBED_MODEL", rag.DefaultEmbedModel), "Embedding model")
	recreate := fs.Bool("recreate", false, "Drop the existing knowledge base first")
	fs.Parse(args)

	embedder := rag.NewEmbedder(strings.TrimSuffix(*ollamaURL, "/")+"/v1", "", *embedModel)
	kb, err := rag.OpenStore(filepath.Join(*dataDir, "kb"), embedder)
	if err != nil {
		fmt.Printf("Error: cannot open knowledge base: %v\n", err)
		os.Exit(1)
	}
	defer kb.Close()

	if *recreate {
		fmt.Println("Dropping existing knowledge base...")
		if err := kb.Drop(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	if *file != "" {
		if err := ingestFile(ctx, kb, *file); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		entries, err := os.ReadDir(*dir)
		if err != nil {
			fmt.Printf("Directory %q not found.\n", *dir)
			fmt.Println("Create a 'documents/' folder and add .txt or .md files.")
			os.Exit(1)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".txt", ".md":
				files = append(files, filepath.Join(*dir, e.Name()))
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			fmt.Printf("No supported files in %s/ (expected: .txt, .md)\n", *dir)
			os.Exit(1)
		}
		fmt.Printf("Found %d file(s) to ingest\n", len(files))
		for _, f := range files {
			if err := ingestFile(ctx, kb, f); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Printf("\nIngestion complete! Knowledge base holds %d chunks.\n", kb.Len())
}

func ingestFile(ctx context.Context, kb *rag.Store, path string) error {
	fmt.Printf("\nIngesting: %s\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunks := rag.ChunkText(string(data), rag.DefaultChunkSize, rag.DefaultChunkOverlap)
	fmt.Printf("  %d chunk(s)\n", len(chunks))

	n, err := kb.AddChunks(ctx, filepath.Base(path), chunks)
	if err != nil {
		return err
	}
	fmt.Printf("  Stored %d vectors\n", n)
	return nil
}
