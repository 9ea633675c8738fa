package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fabfab/policy-qa/api"
	"github.com/fabfab/policy-qa/chat"
	"github.com/fabfab/policy-qa/config"
	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/extract"
	"github.com/fabfab/policy-qa/llm"
	"github.com/fabfab/policy-qa/store"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("load .env: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(logger, os.Args[2:])
	case "ask":
		askCmd(logger, os.Args[2:])
	case "upload":
		uploadCmd(logger, os.Args[2:])
	case "list":
		listCmd(logger, os.Args[2:])
	case "clear":
		clearCmd(logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(logger *log.Logger, path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	return cfg
}

func openStore(ctx context.Context, logger *log.Logger, cfg config.Config) (*store.Store, func()) {
	pool, err := store.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		logger.Fatalf("ensure schema: %v", err)
	}
	return st, pool.Close
}

func newChatService(logger *log.Logger, cfg config.Config, source chat.SectionSource) *chat.Service {
	llmClient, err := llm.NewClient(llm.Options{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		OllamaHost:    cfg.LLM.OllamaHost,
		OpenAIAPIKey:  cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
	})
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	return chat.NewService(source, llmClient, chat.Config{
		MaxContextChars: cfg.Retrieval.MaxContextChars,
		MaxPromptChars:  cfg.Retrieval.MaxPromptChars,
		LLMTimeout:      cfg.Retrieval.LLMTimeout(),
	}, logger)
}

func serveCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}
	cfg := loadConfig(logger, *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore := openStore(ctx, logger, cfg)
	defer closeStore()

	cache := extract.NewCache()
	loader := store.NewCorpusLoader(st, cache, cfg.Retrieval.MaxDocuments, logger)
	svc := newChatService(logger, cfg, loader)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(svc, st, cache, logger, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Println("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}
}

func askCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	question := flags.String("question", "", "question to ask")
	dir := flags.String("dir", "", "answer from documents in this directory instead of the store")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}
	cfg := loadConfig(logger, *configPath)

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var source chat.SectionSource
	if *dir != "" {
		sections, err := sectionsFromDir(*dir, logger)
		if err != nil {
			logger.Fatalf("load documents from %s: %v", *dir, err)
		}
		source = chat.SectionList(sections)
	} else {
		st, closeStore := openStore(ctx, logger, cfg)
		defer closeStore()
		source = store.NewCorpusLoader(st, extract.NewCache(), cfg.Retrieval.MaxDocuments, logger)
	}

	svc := newChatService(logger, cfg, source)

	resp, err := svc.Ask(ctx, *question)
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range resp.Sources {
			line := fmt.Sprintf("%d. %s", idx+1, source.Title)
			if source.FileName != "" {
				line += fmt.Sprintf(" (%s", source.FileName)
				if source.Page > 0 {
					line += fmt.Sprintf(", page %d", source.Page)
				}
				line += ")"
			}
			fmt.Println(line)
		}
	}
}

// sectionsFromDir extracts sections from every readable file in a local
// directory, skipping files that yield no text.
func sectionsFromDir(dir string, logger *log.Logger) ([]doc.Section, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var sections []doc.Section
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		extracted, err := extract.Sections(doc.Document{
			ID:       entry.Name(),
			FileName: entry.Name(),
			Data:     data,
		})
		if err != nil {
			logger.Printf("skipping %s: %v", entry.Name(), err)
			continue
		}
		sections = append(sections, extracted...)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no extractable documents in %s", dir)
	}
	return sections, nil
}

func uploadCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse upload flags: %v", err)
	}
	paths := flags.Args()
	if len(paths) == 0 {
		logger.Fatal("upload requires at least one file path")
	}
	cfg := loadConfig(logger, *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore := openStore(ctx, logger, cfg)
	defer closeStore()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatalf("read %s: %v", path, err)
		}
		if int64(len(data)) > cfg.MaxUploadBytes {
			logger.Fatalf("%s is %d bytes, above the %d byte limit", path, len(data), cfg.MaxUploadBytes)
		}

		saved, err := st.Save(ctx, doc.Document{
			FileName:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
		if err != nil {
			logger.Fatalf("store %s: %v", path, err)
		}
		logger.Printf("uploaded %s as %s (%d bytes)", saved.FileName, saved.ID, saved.SizeBytes)
	}
}

func listCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse list flags: %v", err)
	}
	cfg := loadConfig(logger, *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore := openStore(ctx, logger, cfg)
	defer closeStore()

	documents, err := st.List(ctx)
	if err != nil {
		logger.Fatalf("list documents: %v", err)
	}
	if len(documents) == 0 {
		fmt.Println("No documents uploaded.")
		return
	}
	for _, d := range documents {
		fmt.Printf("%s  %s  %d bytes  %s\n", d.ID, d.FileName, d.SizeBytes, d.UploadedAt.Format(time.RFC3339))
	}
}

func clearCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete all uploaded policy documents. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	cfg := loadConfig(logger, *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore := openStore(ctx, logger, cfg)
	defer closeStore()

	if err := st.Clear(ctx); err != nil {
		logger.Fatalf("clear documents: %v", err)
	}
	logger.Println("all documents removed")
}

func printUsage() {
	fmt.Println("Usage: policy-qa <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API server")
	fmt.Println("  ask      Answer a question from the uploaded documents (or --dir for local files)")
	fmt.Println("  upload   Upload one or more policy documents to the store")
	fmt.Println("  list     List uploaded documents")
	fmt.Println("  clear    Remove all uploaded documents")
}
