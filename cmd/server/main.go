package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/cachestorage/internal/config"
	"github.com/leonardcser/cachestorage/internal/expiry"
	"github.com/leonardcser/cachestorage/internal/hook"
	"github.com/leonardcser/cachestorage/internal/logger"
	"github.com/leonardcser/cachestorage/internal/storage"
	"github.com/leonardcser/cachestorage/internal/timedstore"
	"github.com/leonardcser/cachestorage/internal/tools"
	"github.com/leonardcser/cachestorage/internal/web"
)

const daemonBinary = "cachestorage-daemon"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting cachestorage MCP server")

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	local, err := connectDaemon(cfg.SocketPath)
	if err != nil {
		logger.Errorf("Failed to connect to storage daemon: %v", err)
		os.Exit(1)
	}
	logger.Infof("Connected to storage daemon at %s", cfg.SocketPath)

	session := storage.NewMemory()
	defer session.Close()

	reg := storage.NewRegistry()
	reg.Register(storage.Local, local)
	reg.Register(storage.Session, session)

	inst := hook.NewInstance(reg.Lookup)
	defer inst.Dispose()

	fetcher := web.NewFetcher(timedstore.New[web.PageSummary](local), cfg.FetchTTLMinutes)
	searcher := web.NewSearcher(timedstore.New[[]web.SearchResult](local), cfg.SearchTTLMinutes)
	cache := tools.NewCache(inst)

	s := server.NewMCPServer(
		"cachestorage",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	namespace := mcp.WithString("namespace",
		mcp.Enum(string(storage.Local), string(storage.Session)),
		mcp.Description("local (durable, shared through the daemon) or session (this process only); defaults to local"),
	)
	key := mcp.WithString("key", mcp.Required(), mcp.Description("Cache key"))

	s.AddTool(mcp.NewTool("cache-get",
		mcp.WithDescription(multiline(
			"Reads a value from the expiring cache",
			"- Returns the stored JSON value while it is unexpired",
			"- An expired entry is deleted on read and reported as missing",
		)),
		key, namespace,
	), cache.GetHandler())

	s.AddTool(mcp.NewTool("cache-set",
		mcp.WithDescription(multiline(
			"Stores a value in the expiring cache, replacing any existing entry",
			"- value is stored as JSON; text that is not valid JSON is stored as a string",
			"- The entry expires after `units` of `interval` (default 5 minutes)",
			"- Year, quarter and month follow the calendar; an unknown interval means 5 minutes",
		)),
		key,
		mcp.WithString("value", mcp.Required(), mcp.Description("Value to store")),
		mcp.WithString("interval",
			mcp.Enum(string(expiry.Year), string(expiry.Quarter), string(expiry.Month), string(expiry.Week),
				string(expiry.Day), string(expiry.Hour), string(expiry.Minute), string(expiry.Second)),
			mcp.Description("Unit of the time-to-live; defaults to minute"),
		),
		mcp.WithNumber("units", mcp.Description("Number of intervals; defaults to 5")),
		namespace,
	), cache.SetHandler())

	s.AddTool(mcp.NewTool("cache-delete",
		mcp.WithDescription("Removes a key from the cache; removing a missing key succeeds"),
		key, namespace,
	), cache.DeleteHandler())

	s.AddTool(mcp.NewTool("cache-clear-expired",
		mcp.WithDescription(multiline(
			"Removes every expired entry from a namespace",
			"- Entries that are not cache envelopes are left untouched",
		)),
		namespace,
	), cache.ClearExpiredHandler())

	s.AddTool(mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches content from a specified URL and returns the parsed content",
			"- Returns title, description, links and the page body as markdown",
			"- The URL must be a fully-formed http:// or https:// URL",
			"- Results are kept in the expiring cache for "+cfg.FetchTTL().String(),
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
	), tools.WebFetchHandler(fetcher))

	s.AddTool(mcp.NewTool("web-search",
		mcp.WithDescription(multiline(
			"Searches the web and returns result blocks",
			"- Results are kept in the expiring cache for "+cfg.SearchTTL().String(),
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
	), tools.WebSearchHandler(searcher))

	sweepOnStart(local)

	logger.Infof("Serving MCP on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// sweepOnStart clears expired entries left in the durable namespace by
// earlier runs.
func sweepOnStart(local storage.Storage) {
	removed, err := timedstore.New[json.RawMessage](local).ClearExpired()
	if err != nil {
		logger.Warnf("Startup sweep failed: %v", err)
		return
	}
	logger.Infof("Startup sweep removed %d expired entries", removed)
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// connectDaemon dials the socket, starting the daemon and waiting for it when
// nothing is listening yet.
func connectDaemon(sock string) (*storage.Client, error) {
	client := storage.NewClient(sock)
	err := client.Probe()
	if err == nil {
		return client, nil
	}
	logger.Warnf("Storage daemon not reachable at %s: %v, attempting to start it", sock, err)
	if startErr := startDaemon(); startErr != nil {
		logger.Errorf("Failed to start storage daemon: %v", startErr)
		return nil, startErr
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err = client.Probe(); err == nil {
			return client, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, err
}

// startDaemon looks for the daemon binary next to this executable, then on
// PATH, then in the working directory.
func startDaemon() error {
	var candidates []string
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), daemonBinary))
	}
	if path, err := exec.LookPath(daemonBinary); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, "./"+daemonBinary)

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cmd := exec.Command(path)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
