package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/bill-extractor/internal/bill"
	"github.com/zombor/bill-extractor/internal/layout"
	"github.com/zombor/bill-extractor/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
		os.Exit(1)
	}

	defaults := layout.DefaultConfig()

	fs := ff.NewFlagSet("bill-extractor")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		dbPath      = fs.StringLong("db", "bill-extractor.db", "Database file path")
		storagePath = fs.StringLong("storage", "./bills", "Storage directory path for source documents")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")

		fetchTimeout = fs.DurationLong("fetch-timeout", 15*time.Second, "Timeout for downloading a document")
		maxSize      = fs.IntLong("max-document-size", 50, "Maximum document size in MB")
		pageWorkers  = fs.IntLong("page-workers", bill.DefaultPageWorkers, "Pages extracted in parallel per document")

		scannerType    = fs.StringLong("scanner", "tesseract", "Scanner type: tesseract, gemini, ollama, azure or documentai")
		enhance        = fs.BoolLong("enhance", "Grayscale, contrast and sharpen pages before OCR (tesseract, azure)")
		tesseractBin   = fs.StringLong("tesseract-bin", "tesseract", "Path to the tesseract binary")
		tesseractLang  = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
		tesseractPSM   = fs.IntLong("tesseract-psm", 6, "Tesseract page segmentation mode (0 for tesseract's default)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		azureEndpoint  = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey       = fs.StringLong("azure-key", "", "Azure Computer Vision key")
		docAIProject   = fs.StringLong("documentai-project", "", "Google Cloud project ID for Document AI")
		docAILocation  = fs.StringLong("documentai-location", "us", "Document AI processor location")
		docAIProcessor = fs.StringLong("documentai-processor", "", "Document AI OCR processor ID")

		keywordsPath      = fs.StringLong("keywords", "", "YAML file overriding layout keywords and tuning (optional)")
		rowTolerance      = fs.Float64Long("row-tolerance", defaults.RowTolerance, "Row band widening as a fraction of median word height")
		minOverlap        = fs.Float64Long("min-overlap", defaults.MinOverlap, "Fraction of a word's width that must overlap its column")
		minHeaderGroups   = fs.IntLong("min-header-groups", defaults.MinHeaderGroups, "Distinct keyword groups needed to accept a header row")
		mismatchTolerance = fs.Float64Long("mismatch-tolerance", defaults.MismatchTolerance, "Relative tolerance of the quantity x rate check")
		minConfidence     = fs.Float64Long("min-confidence", defaults.MinConfidence, "Drop OCR words below this confidence (0..1)")

		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILL_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	setupLogging(*logLevel)

	// Layout configuration: YAML file first, explicit flags on top
	cfg := defaults
	if *keywordsPath != "" {
		var err error
		cfg, err = layout.LoadConfig(*keywordsPath)
		if err != nil {
			slog.Error("Failed to load layout config", "path", *keywordsPath, "error", err)
			os.Exit(1)
		}
	}
	fs.WalkFlags(func(f ff.Flag) error {
		if !f.IsSet() {
			return nil
		}
		name, _ := f.GetLongName()
		switch name {
		case "row-tolerance":
			cfg.RowTolerance = *rowTolerance
		case "min-overlap":
			cfg.MinOverlap = *minOverlap
		case "min-header-groups":
			cfg.MinHeaderGroups = *minHeaderGroups
		case "mismatch-tolerance":
			cfg.MismatchTolerance = *mismatchTolerance
		case "min-confidence":
			cfg.MinConfidence = *minConfidence
		}
		return nil
	})
	extractor, err := layout.New(cfg)
	if err != nil {
		slog.Error("Invalid layout config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := bill.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "tesseract":
		slog.Info("Initializing Tesseract scanner...", "binary", *tesseractBin, "lang", *tesseractLang, "psm", *tesseractPSM)
		scanner, err = scanning.NewTesseract(*tesseractBin, *tesseractLang, *tesseractPSM, *enhance)
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(ctx, apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
	case "azure":
		slog.Info("Initializing Azure scanner...", "endpoint", *azureEndpoint)
		scanner, err = scanning.NewAzure(*azureEndpoint, *azureKey, *enhance)
	case "documentai":
		slog.Info("Initializing Document AI scanner...", "project", *docAIProject, "location", *docAILocation)
		scanner, err = scanning.NewDocumentAI(ctx, scanning.DocumentAIConfig{
			ProjectID:   *docAIProject,
			Location:    *docAILocation,
			ProcessorID: *docAIProcessor,
		})
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "tesseract, gemini, ollama, azure or documentai")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := bill.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	fetcher := bill.NewHTTPFetcher(*fetchTimeout, int64(*maxSize)<<20)
	billService := bill.NewService(db, scanner, store, fetcher, extractor, *pageWorkers)

	basicAuth := bill.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := bill.NewServer(billService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

func setupLogging(level string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch strings.ToUpper(level) {
	case "DEBUG":
		opts.Level = slog.LevelDebug
	case "WARN":
		opts.Level = slog.LevelWarn
	case "ERROR":
		opts.Level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}
