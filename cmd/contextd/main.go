// Package main is the contextd CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/contextd/internal/cli"
	"github.com/hyperjump/contextd/internal/config"
	"github.com/hyperjump/contextd/internal/embedding"
	"github.com/hyperjump/contextd/internal/extract"
	"github.com/hyperjump/contextd/internal/ingest"
	"github.com/hyperjump/contextd/internal/keyword"
	"github.com/hyperjump/contextd/internal/models"
	"github.com/hyperjump/contextd/internal/search"
	"github.com/hyperjump/contextd/internal/server"
	"github.com/hyperjump/contextd/internal/store"
	"github.com/hyperjump/contextd/internal/watcher"
	"github.com/hyperjump/contextd/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/contextd/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "contextd server" from the project dir picks up the
// project's config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "add":
		runAdd()
	case "get":
		runGet()
	case "list":
		runList()
	case "update":
		runUpdate()
	case "delete":
		runDelete()
	case "search":
		runSearch()
	case "refs":
		runRefs()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("contextd version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingestion, watch events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	serverOpts := []server.ServerOption{
		server.WithKeywordIndex(components.KeywordIndex),
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if components.Watcher != nil {
		if err := components.Watcher.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		components.Watcher.SyncExistingFiles()
		serverOpts = append(serverOpts, server.WithWatchService(components.Watcher))
	}

	srv := server.NewServer(components.Store, components.Engine, cfg, logger, serverOpts...)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// splitTags splits a comma-separated tag flag into trimmed non-empty tags.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// readContent resolves the content for add/update: --file wins, then
// positional args joined by spaces, then stdin when piped.
func readContent(fs *flag.FlagSet, filePath string) (string, error) {
	if filePath != "" {
		b, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(b), nil
	}
	if fs.NArg() > 0 {
		return strings.Join(fs.Args(), " "), nil
	}
	info, err := os.Stdin.Stat()
	if err == nil && (info.Mode()&os.ModeCharDevice) == 0 {
		b, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return "", fmt.Errorf("read stdin: %w", readErr)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("no content given; pass text, --file, or pipe stdin")
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	tagsFlag := fs.String("tags", "", "comma-separated tags")
	filePath := fs.String("file", "", "read content from file instead of arguments")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	content, err := readContent(fs, *filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
		os.Exit(1)
	}
	input := &models.ContextInput{Content: content, Tags: splitTags(*tagsFlag)}
	record, err := createViaHTTP(*serverURL, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		_ = cli.WriteContext(os.Stdout, record, format)
		return
	}
	fmt.Printf("Context created: %s\n", record.ID)
}

func runGet() {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contextd get [flags] <context-id>")
		os.Exit(1)
	}
	record, err := getViaHTTP(*serverURL, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Get failed: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.WriteContext(os.Stdout, record, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	contexts, err := listViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.WriteContexts(os.Stdout, contexts, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputText {
		fmt.Printf("%d context(s)\n", len(contexts))
	}
}

func runUpdate() {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	tagsFlag := fs.String("tags", "", "comma-separated tags (replaces existing tags)")
	filePath := fs.String("file", "", "read new content from file instead of arguments")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contextd update [flags] <context-id> [new content]")
		os.Exit(1)
	}
	id := fs.Arg(0)

	update := &models.ContextUpdate{}
	if *tagsFlag != "" {
		tags := splitTags(*tagsFlag)
		update.Tags = &tags
	}
	rest := fs.Args()[1:]
	if *filePath != "" {
		b, err := os.ReadFile(*filePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
			os.Exit(1)
		}
		content := string(b)
		update.Content = &content
	} else if len(rest) > 0 {
		content := strings.Join(rest, " ")
		update.Content = &content
	}
	if update.Content == nil && update.Tags == nil {
		fmt.Println("Nothing to update; pass new content, --file, or --tags")
		os.Exit(1)
	}

	record, err := updateViaHTTP(*serverURL, id, update)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Context updated: %s\n", record.ID)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contextd delete [flags] <context-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	if err := deleteViaHTTP(*serverURL, id); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Context deleted: %s\n", id)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: contextd search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  contextd search model context protocol
  contextd search "model context protocol"          # same as above
  contextd search --tags api,docs rate limiting     # restrict to tagged contexts
  contextd search --min-score 0.3 --limit 5 query
  contextd search --keyword full text query         # keyword index instead of embeddings
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so
// "contextd search \"query\" -min-score 0.5" would otherwise leave -min-score
// unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	minScore := fs.Float64("min-score", 0, "minimum cosine similarity in [0,1] (0 = no filtering)")
	tagsFlag := fs.String("tags", "", "comma-separated tag filter; a context matches when it carries any of them")
	keywordMode := fs.Bool("keyword", false, "use the keyword index instead of embedding similarity")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:    queryStr,
		Tags:     splitTags(*tagsFlag),
		Limit:    *limit,
		MinScore: *minScore,
	}

	path := "/search"
	if *keywordMode {
		path = "/search/keyword"
	}
	response, err := searchViaHTTP(*serverURL, path, searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRefs() {
	fs := flag.NewFlagSet("refs", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contextd refs [flags] <context-id> [<context-id>...]")
		os.Exit(1)
	}
	contexts, err := refsViaHTTP(*serverURL, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Refs failed: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.WriteContexts(os.Stdout, contexts, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Contexts         int64                  `json:"contexts"`
	Chunks           int64                  `json:"chunks"`
	KeywordIndexSize *uint64                `json:"keyword_index_size,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("contexts:            %d   # count of stored context records\n", status.Contexts)
		fmt.Printf("chunks:              %d   # count of embedded chunks\n", status.Chunks)
		if status.KeywordIndexSize != nil {
			fmt.Printf("keyword_index_size:  %d   # documents in keyword index\n", *status.KeywordIndexSize)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"max_chunk_size", "chunk_overlap", "embedding_dimension", "default_limit", "max_limit"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-21s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: contextd watch <add|remove|list> [path]")
		fmt.Println("  contextd watch add <path>     Add directory to watch")
		fmt.Println("  contextd watch remove <path>  Remove directory from watch")
		fmt.Println("  contextd watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: contextd watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: contextd watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func decodeOrError(resp *http.Response, wantStatus int, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func createViaHTTP(serverURL string, input *models.ContextInput) (*models.Context, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/contexts", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var record models.Context
	if err := decodeOrError(resp, http.StatusCreated, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func getViaHTTP(serverURL, id string) (*models.Context, error) {
	resp, err := http.Get(serverURL + "/contexts/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var record models.Context
	if err := decodeOrError(resp, http.StatusOK, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func listViaHTTP(serverURL string) ([]*models.Context, error) {
	resp, err := http.Get(serverURL + "/contexts")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out struct {
		Contexts []*models.Context `json:"contexts"`
		Total    int               `json:"total"`
	}
	if err := decodeOrError(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Contexts, nil
}

func updateViaHTTP(serverURL, id string, update *models.ContextUpdate) (*models.Context, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPut, serverURL+"/contexts/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var record models.Context
	if err := decodeOrError(resp, http.StatusOK, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func deleteViaHTTP(serverURL, id string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+"/contexts/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeOrError(resp, http.StatusOK, nil)
}

func searchViaHTTP(serverURL, path string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var response models.SearchResponse
	if err := decodeOrError(resp, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func refsViaHTTP(serverURL string, ids []string) ([]*models.Context, error) {
	body, err := json.Marshal(&models.ReferenceQuery{IDs: ids})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/references", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out struct {
		Contexts []*models.Context `json:"contexts"`
	}
	if err := decodeOrError(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Contexts, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var s statusResponse
	if err := decodeOrError(resp, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Components holds initialized services for the server process.
type Components struct {
	Store        store.ContextStore
	Embedder     embedding.Embedder
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Ingestor     *ingest.Ingestor
	Watcher      *watcher.Watcher
}

func (c *Components) Close() {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var embedder embedding.Embedder = embedding.NewSimpleEmbedder(cfg.Embedding.Dimension)
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	contextStore, err := store.NewMemoryStore(embedder, cfg.Context.MaxChunkSize, cfg.Context.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engine := search.NewEngine(contextStore, embedder, &cfg.Search).WithKeywordIndex(keywordIndex)

	ingestOpts := []ingest.Option{ingest.WithKeywordIndex(keywordIndex)}
	if debug && logger != nil {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}
	ingestor := ingest.NewIngestor(contextStore, extract.NewExtractor(), ingestOpts...)

	components := &Components{
		Store:        contextStore,
		Embedder:     embedder,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Ingestor:     ingestor,
	}

	// The watcher only runs when watch directories are configured; add and
	// remove via the HTTP API still work once it is running.
	if len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debug && logger != nil {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		components.Watcher = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if err := ingestor.IngestFile(context.Background(), path); err != nil && logger != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := ingestor.RemoveFile(context.Background(), path); err != nil && logger != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
	}

	return components, nil
}

func printUsage() {
	fmt.Println(`contextd - In-memory context record store with semantic search

Usage:
  contextd server [flags]            Start the HTTP server
  contextd add [flags] <content>     Store a context record
  contextd get [flags] <id>          Fetch a context record
  contextd list [flags]              List stored context records
  contextd update [flags] <id> ...   Update content and/or tags
  contextd delete [flags] <id>       Delete a context record
  contextd search [flags] <query>    Search stored contexts
  contextd refs [flags] <id>...      Resolve context records by reference
  contextd status [flags]            Show store/index status
  contextd watch <add|remove|list>   Manage watched directories
  contextd version                   Show version
  contextd help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/contextd/config.yaml)
  --debug            Enable debug logging (ingestion, watch events, etc.)

Add/Update Flags:
  --server string    Server URL (default: http://localhost:8080)
  --tags string      Comma-separated tags
  --file string      Read content from a file instead of arguments

Search Flags:
  --server string    Server URL (default: http://localhost:8080)
  --limit int        Number of results (default: server default)
  --min-score float  Minimum cosine similarity in [0,1] (default: 0, no filtering)
  --tags string      Comma-separated tag filter
  --keyword          Use the keyword index instead of embedding similarity
  --output string    Output format: text or json (default: text)

Examples:
  contextd server
  contextd add --tags api,docs "Rate limits are enforced per token."
  contextd add --file notes.md
  contextd search "model context protocol"
  contextd search --tags api --limit 5 rate limiting
  contextd refs 4f7c... 91d2...
  contextd status --output json
  contextd watch add /path/to/notes`)
}
