// ABOUTME: Entry point for the hearth group-collaboration server
// ABOUTME: Subcommands: serve, init, bootstrap

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/hearth-dev/hearth/internal/api"
	"github.com/hearth-dev/hearth/internal/config"
	"github.com/hearth-dev/hearth/internal/guard"
	"github.com/hearth-dev/hearth/internal/logging"
	"github.com/hearth-dev/hearth/internal/metrics"
	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
	"github.com/hearth-dev/hearth/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _                     _   _
 | |__   ___  __ _ _ __| |_| |__
 | '_ \ / _ \/ _' | '__| __| '_ \
 | | | |  __/ (_| | |  | |_| | | |
 |_| |_|\___|\__,_|_|   \__|_| |_|
`

// getConfigPath returns the path to the hearth config file.
// Priority: HEARTH_CONFIG env var > XDG_CONFIG_HOME/hearth/hearth.yaml > ~/.config/hearth/hearth.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HEARTH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "hearth.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "hearth", "hearth.yaml")
}

// getDataPath returns the path to the hearth data directory.
// Priority: XDG_DATA_HOME/hearth > ~/.local/share/hearth
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "hearth")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: hearth <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                   Start the hearth server")
		fmt.Println("  init                    Create a new config file interactively")
		fmt.Println("  bootstrap --group NAME  Create the first group and an invite code")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:  %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting hearth",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	codec := session.NewCodec([]byte(cfg.Session.Secret), cfg.Session.TTL)

	g, err := guard.New(cfg.Server.BaseURL, cfg.Guard.RatePerSecond, cfg.Guard.RateBurst)
	if err != nil {
		return fmt.Errorf("configuring guard: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var viewCache *views.Cache
	if m != nil {
		viewCache = views.NewCache(logger, m.ViewInvalidations)
	} else {
		viewCache = views.NewCache(logger, nil)
	}

	mux := http.NewServeMux()
	api.New(st, codec, g, viewCache, m, logger).RegisterRoutes(mux)
	web.New(st, codec, viewCache, logger).RegisterRoutes(mux)
	if m != nil {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runBootstrap performs first-time setup:
// 1. Creates a config file with a random session secret (if not exists)
// 2. Creates the database, the first group, and an initial invite code
func runBootstrap(ctx context.Context) error {
	var groupName string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--group" || arg == "-g":
			if i+1 >= len(args) {
				return fmt.Errorf("--group requires a value")
			}
			groupName = args[i+1]
			i++
		case strings.HasPrefix(arg, "--group="):
			groupName = strings.TrimPrefix(arg, "--group=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return fmt.Errorf("--group flag is required")
	}
	if len(groupName) > 100 {
		return fmt.Errorf("group name exceeds maximum length of 100 characters")
	}

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "hearth.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		secret := base64.StdEncoding.EncodeToString(secretBytes)

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		configContent := fmt.Sprintf(`# hearth configuration
# Generated by hearth bootstrap

server:
  http_addr: "localhost:8080"
  base_url: "http://localhost:8080"

database:
  path: "%s"

session:
  secret: "%s"
  ttl: "720h"

logging:
  level: "info"
  format: "text"
`, dbPath, secret)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		green.Printf("  ✓ Created config: %s\n", configPath)

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	// Refuse to bootstrap twice
	if _, err := st.FirstGroup(ctx); err == nil {
		return fmt.Errorf("bootstrap already complete: a group exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("checking groups: %w", err)
	}

	group := &store.Group{
		ID:        uuid.NewString(),
		Name:      groupName,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateGroup(ctx, group); err != nil {
		return fmt.Errorf("creating group: %w", err)
	}
	green.Printf("  ✓ Created group: %s\n", groupName)

	code := newInviteCode()
	invite := &store.InviteCode{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateInvite(ctx, invite); err != nil {
		return fmt.Errorf("creating invite: %w", err)
	}

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  First Group")
	cyan.Println("  -----------")
	fmt.Printf("  ID:          %s\n", group.ID)
	fmt.Printf("  Name:        %s\n", group.Name)
	fmt.Printf("  Invite code: %s\n", code)
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    hearth serve    # start the server")
	fmt.Printf("    curl -X POST %s/api/join -d '{\"code\":\"%s\",\"displayName\":\"Your Name\"}'\n", cfg.Server.BaseURL, code)
	fmt.Println()

	return nil
}

// newInviteCode generates an 8-character uppercase code.
func newInviteCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:8]
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("hearth configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDbPath := filepath.Join(getDataPath(), "hearth.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")
	baseURL := prompt(reader, "Base URL", "http://"+httpAddr)

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Session Configuration ---")
	secret := prompt(reader, "Session secret (leave empty to generate)", "")
	if secret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		secret = base64.StdEncoding.EncodeToString(secretBytes)
		fmt.Println("Generated a random session secret.")
	}
	ttl := prompt(reader, "Session TTL", "720h")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	fmt.Println("\n--- Metrics Configuration ---")
	metricsEnabled := strings.ToLower(prompt(reader, "Enable metrics endpoint?", "no"))

	content := fmt.Sprintf(`# hearth configuration

server:
  http_addr: "%s"
  base_url: "%s"

database:
  path: "%s"

session:
  secret: "%s"
  ttl: "%s"

logging:
  level: "%s"
  format: "%s"

metrics:
  enabled: %t
  path: "/metrics"
`, httpAddr, baseURL, dbPath, secret, ttl,
		logLevel, logFormat, metricsEnabled == "yes" || metricsEnabled == "y")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo get started:")
	fmt.Println("  hearth bootstrap --group \"Your Group\"")
	fmt.Println("  hearth serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
