package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/tartampluch/go-noor/internal/audio"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tartampluch/go-noor/internal/geo"
	"github.com/tartampluch/go-noor/internal/scripture"
	"github.com/tartampluch/go-noor/internal/server"
	"github.com/tartampluch/go-noor/internal/store"
	"github.com/tartampluch/go-noor/internal/ui"
	"github.com/zalando/go-keyring"
)

// options holds the parsed command line.
type options struct {
	debug   bool
	dbPath  string
	geocode string
	player  string

	downloadSurah int
	removeSurah   int
	downloadVoice string
	removeVoice   string

	overrides ui.Overrides
}

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	opts := parseFlags()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(opts.debug)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// parseFlags reads the command line. Only flags that were actually set
// become preference overrides.
func parseFlags() *options {
	opts := &options{}

	flag.BoolVar(&opts.debug, config.FlagDebug, false, config.FlagDescDebug)
	flag.StringVar(&opts.dbPath, config.FlagDB, "", config.FlagDescDB)
	flag.StringVar(&opts.geocode, config.FlagGeocode, "", config.FlagDescGeocode)
	flag.StringVar(&opts.player, config.FlagPlayer, strings.Join(config.DefaultPlayerCommand, " "), config.FlagDescPlayer)
	lat := flag.Float64(config.FlagLat, 0, config.FlagDescLat)
	lng := flag.Float64(config.FlagLng, 0, config.FlagDescLng)
	city := flag.String(config.FlagCity, "", config.FlagDescCity)
	method := flag.Int(config.FlagMethod, config.DefaultMethod, config.FlagDescMethod)
	school := flag.Int(config.FlagSchool, config.DefaultSchool, config.FlagDescSchool)
	flag.StringVar(&opts.overrides.VoiceID, config.FlagVoice, "", config.FlagDescVoice)

	flag.IntVar(&opts.downloadSurah, config.FlagDownloadSurah, 0, config.FlagDescDownloadSurah)
	flag.IntVar(&opts.removeSurah, config.FlagRemoveSurah, 0, config.FlagDescRemoveSurah)
	flag.StringVar(&opts.downloadVoice, config.FlagDownloadVoice, "", config.FlagDescDownloadVoice)
	flag.StringVar(&opts.removeVoice, config.FlagRemoveVoice, "", config.FlagDescRemoveVoice)
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set[config.FlagLat] && set[config.FlagLng] {
		opts.overrides.Location = &engine.Location{Lat: *lat, Lng: *lng, Name: *city}
	}
	if set[config.FlagMethod] {
		opts.overrides.Method = method
	}
	if set[config.FlagSchool] {
		opts.overrides.School = school
	}
	return opts
}

// run initializes the Fyne application, wires dependencies, and starts the UI loop.
func run(ctx context.Context, opts *options) error {
	// Initialize Fyne App.
	a := app.NewWithID(config.AppID)

	// Record the version for potential migration logic in future updates.
	a.Preferences().SetString(config.PrefLastRun, config.Version)

	// Offline store: a failure leaves the in-memory backend in place.
	st := store.New()
	defer func() { _ = st.Close() }()

	dbPath := opts.dbPath
	if dbPath == "" {
		p, err := defaultDBPath()
		if err != nil {
			slog.Warn(config.MsgStoreDegraded, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
		}
		dbPath = p
	}
	if dbPath != "" {
		if err := st.Open(ctx, dbPath); err != nil {
			slog.Warn(config.MsgStoreDegraded, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
		}
	}

	// Dependency Injection.
	httpFetcher := fetcher.NewHTTPFetcher()
	clock := engine.RealClock{}

	player := audio.ExecPlayer{Command: strings.Fields(opts.player)}
	mgr := audio.NewManager(st, player, httpFetcher)
	library := scripture.NewLibrary(scripture.NewClient(config.QuranBaseURL, httpFetcher), st)

	if handled, err := runMaintenance(ctx, opts, mgr, library); handled {
		return err
	}

	provider := engine.NewAladhanProvider(config.AladhanBaseURL, httpFetcher)
	src := engine.NewTimeSource(provider, st, clock)
	dispatcher := engine.NewDispatcher(src, clock, ui.FyneNotifier{App: a}, engine.NopVibrator{}, mgr)
	svc := engine.NewService(st, src, dispatcher, mgr, clock)
	defer svc.Close()
	svc.LoadSettings(ctx)

	geocoder := geo.NewGeocoder(config.NominatimBaseURL, geocoderKey(), httpFetcher)
	if opts.geocode != "" {
		place, err := geocoder.Resolve(ctx, opts.geocode)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrGeocodeNoResult, err)
		}
		loc := place.Location()
		opts.overrides.Location = &loc
		slog.Info(config.MsgGeocoded,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyLocation, loc.DisplayName())
	}
	ui.ApplyOverrides(a.Preferences(), opts.overrides)

	port := a.Preferences().StringWithFallback(config.PrefServerPort, config.DefaultPort)
	srv := server.NewFeedServer(port)

	// Initialize the UI Controller (MVC pattern).
	gui := ui.NewNoorApp(a, ctx, svc, srv)
	gui.Geocoder = geocoder

	// Lifecycle Bridge:
	// Watch for context cancellation to quit the UI gracefully.
	go func() {
		<-ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)
		a.Quit()
	}()

	// Start the Application (blocks until main window closes).
	gui.Run()

	return nil
}

// runMaintenance performs the one-shot offline content commands. It reports
// whether one was requested.
func runMaintenance(ctx context.Context, opts *options, mgr *audio.Manager, lib *scripture.Library) (bool, error) {
	var errs []error
	handled := false

	if opts.downloadSurah != 0 {
		handled = true
		errs = append(errs, lib.Download(ctx, opts.downloadSurah))
	}
	if opts.removeSurah != 0 {
		handled = true
		errs = append(errs, lib.Remove(ctx, opts.removeSurah))
	}
	if opts.downloadVoice != "" {
		handled = true
		errs = append(errs, mgr.Download(ctx, opts.downloadVoice))
	}
	if opts.removeVoice != "" {
		handled = true
		errs = append(errs, mgr.Remove(ctx, opts.removeVoice))
	}
	return handled, errors.Join(errs...)
}

// geocoderKey reads the optional geocoding API key from the OS keyring.
func geocoderKey() string {
	key, err := keyring.Get(config.KeyringService, config.KeyringGeocoderUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug(config.ErrKeyringLookup, config.LogKeyComponent, config.CompMain, config.LogKeyError, err)
		}
		return ""
	}
	return key
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}
	return appFile(cacheDir, config.LogFileName)
}

// defaultDBPath places the offline database in the user config directory.
func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrConfigDir, err)
	}
	return appFile(configDir, config.DBFileName)
}

// appFile returns name inside base/AppID, creating the directory (700).
func appFile(base, name string) (string, error) {
	appDir := filepath.Join(base, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(appDir, name), nil
}
