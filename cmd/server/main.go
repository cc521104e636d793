package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/qubitmask/backend/internal/api"
	"github.com/qubitmask/backend/internal/batch"
	"github.com/qubitmask/backend/internal/catalog"
	"github.com/qubitmask/backend/internal/config"
	"github.com/qubitmask/backend/internal/storage"
	"github.com/qubitmask/backend/internal/svg"
	"github.com/qubitmask/backend/internal/web"
	"github.com/qubitmask/backend/internal/workspace"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// jobRetention is how long finished export jobs stay queryable.
const jobRetention = 24 * time.Hour

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "QubitMaskStudio.config.xml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (viewer built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Open the design catalog
	cat, err := catalog.Open(cfg.GetCatalogPath(), catalog.Options{
		Threads:     cfg.Catalog.DuckDBThreads,
		MemoryLimit: cfg.Catalog.DuckDBMemoryLimit,
	})
	if err != nil {
		fmt.Printf("Failed to open design catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	// Initialize artifact storage
	store, err := storage.NewLocalStore(cfg.GetExportDir())
	if err != nil {
		fmt.Printf("Failed to initialize artifact storage: %v\n", err)
		os.Exit(1)
	}

	// Workspace of drawn layouts
	ws := workspace.NewManagerWithCapacity(cfg.Processing.WorkspaceCapacity)
	ws.SetCircleTolerance(cfg.Drawing.CircleTolerance)

	// Layer styles: a file beside the config wins, built-in palette otherwise
	styles := svg.DefaultStyles()
	if parsed, err := svg.ParseStyles(cfg.Storage.StylesFile); err == nil {
		styles = parsed
		fmt.Printf("Loaded layer styles from %s\n", cfg.Storage.StylesFile)
	} else if !os.IsNotExist(err) {
		fmt.Printf("Warning: ignoring unreadable styles file %s: %v\n", cfg.Storage.StylesFile, err)
	}
	styleStore := svg.NewStyleStore(styles)

	// Batch export job manager
	jobs := batch.NewManager(cat, ws, store, styleStore, cfg.Processing.MaxConcurrentExports)

	// Background cleanup of aged layouts and finished jobs
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ws.CleanupAged(time.Duration(cfg.Processing.WorkspaceTimeoutMinutes) * time.Minute)
			jobs.CleanupOldJobs(jobRetention)
		}
	}()

	handlers := api.NewHandlers(&api.Dependencies{
		Catalog:       cat,
		Workspace:     ws,
		Jobs:          jobs,
		Store:         store,
		Styles:        styleStore,
		StylesPath:    cfg.Storage.StylesFile,
		AllowDeletion: cfg.Security.AllowFileDeletion,
		Version:       Version,
	})

	e := echo.New()

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			// Job polling and health checks are too chatty to log
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/health" ||
				strings.HasPrefix(path, "/api/batch/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/ws/") ||
				strings.Contains(path, "/download")
		},
		ErrorMessage: "Request timeout - drawing took too long",
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// Optional bearer token auth for the API surface
	if cfg.Security.RequireAuth && cfg.Security.AuthToken != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool {
				// The viewer shell and health probe stay open
				path := c.Request().URL.Path
				return !strings.HasPrefix(path, "/api/") || path == "/api/health"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.Security.AuthToken, nil
			},
		}))
	}

	// CORS configuration
	if cfg.Server.EnableCORS {
		if embeddedMode {
			// In embedded mode, use config settings
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			}))
		} else {
			// Development mode - only allow localhost dev servers
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:5174", "http://127.0.0.1:5174",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	// API routes
	api.SetupMiddleware(e)
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Register embedded viewer if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded viewer from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "Development"
	if embeddedMode {
		mode = "Air-Gapped (Embedded)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Qubit Mask Studio Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Catalog:   %-46s║\n", cfg.GetCatalogPath())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
