package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/viewfinder/internal/app"
	"github.com/ayusman/viewfinder/internal/plugin"
	"github.com/ayusman/viewfinder/internal/server"
	"github.com/ayusman/viewfinder/internal/snapshot"
	"github.com/ayusman/viewfinder/internal/store"
	"github.com/ayusman/viewfinder/internal/telemetry"
	"github.com/ayusman/viewfinder/internal/tray"
	"github.com/ayusman/viewfinder/plugins/autoexposure"
	"github.com/ayusman/viewfinder/plugins/histogram"
	"github.com/ayusman/viewfinder/plugins/motiondetect"
)

var (
	port     string
	dbPath   string
	cameraID int
	fps      int
	headless bool
)

func main() {
	// Optional .env for MQTT and object-store credentials.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "viewfinder",
		Short: "Viewfinder - camera capture with a plugin pipeline",
		Long: `Viewfinder captures camera frames and runs them through a plugin
pipeline: frame observers, hardware controllers and overlay renderers.

The bundled plugins adjust exposure automatically, flag motion between
frames and accumulate a luminance histogram. A web dashboard exposes
plugin administration, overlay views, telemetry and an MJPEG preview.`,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the capture pipeline and web dashboard",
		Long: `Start the capture pipeline, the web dashboard and (unless --headless)
the system tray controller.

Environment Variables:
  VIEWFINDER_PORT     Dashboard port (default: 8080)
  MQTT_HOST           Enable MQTT telemetry forwarding
  MINIO_ACCESS_KEY    Enable motion snapshot uploads`,
		RunE: runPipeline,
	}
	runCmd.Flags().StringVarP(&port, "port", "p", getEnv("VIEWFINDER_PORT", "8080"), "Dashboard port")
	runCmd.Flags().StringVarP(&dbPath, "db", "d", defaultDBPath(), "Database path")
	runCmd.Flags().IntVarP(&cameraID, "camera", "c", 0, "Camera device ID")
	runCmd.Flags().IntVarP(&fps, "fps", "f", 0, "Capture frame rate (0 = default)")
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without the system tray")

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// Telemetry fans out to the store and the dashboard's live stream, with
	// an optional MQTT forwarder, behind a non-blocking buffer.
	hub := server.NewEventHub()
	sinks := telemetry.Fanout{telemetry.NewStoreSink(st.Telemetry()), hub}

	if cfg, ok := telemetry.MQTTConfigFromEnv("viewfinder"); ok {
		mq, err := telemetry.NewMQTTSink(cfg)
		if err != nil {
			log.Printf("MQTT telemetry disabled: %v", err)
		} else {
			defer mq.Close()
			sinks = append(sinks, mq)
		}
	}

	buffered := telemetry.NewBuffered(sinks, 256)
	defer buffered.Close()

	engine := plugin.NewEngine(st.Settings(), buffered)

	var snapStore snapshot.Store
	if ms, err := snapshot.FromEnv(); err == nil {
		snapStore = ms
	} else if !errors.Is(err, snapshot.ErrNotConfigured) {
		log.Printf("Snapshot uploads disabled: %v", err)
	}

	for _, p := range []plugin.Plugin{
		autoexposure.New(),
		motiondetect.New(snapStore),
		histogram.New(),
	} {
		if err := engine.Register(p); err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", p.Name(), err)
		}
	}

	engine.InitializeAll(context.Background())

	a := app.New(app.Config{Engine: engine, CameraID: cameraID, FPS: fps})
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer a.Close()

	srv := server.New(server.Config{
		Engine:    engine,
		Camera:    a.Camera(),
		Telemetry: st.Telemetry(),
		Settings:  st.Settings(),
		StaticDir: findWebDir(),
		Hub:       hub,
	})

	addr := ":" + port
	go func() {
		log.Printf("Dashboard listening on %s", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if headless {
		waitForSignal()
		return nil
	}

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() {
		log.Printf("Dashboard: http://localhost:%s/", port)
	})
	t.OnQuit(func() {
		log.Println("Shutting down")
	})
	t.Run()
	return nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down")
}

// defaultDBPath places the database under ~/.viewfinder, falling back to the
// working directory when no home directory is available.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "viewfinder.db"
	}

	dbDir := filepath.Join(homeDir, ".viewfinder")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "viewfinder.db"
	}
	return filepath.Join(dbDir, "viewfinder.db")
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".viewfinder", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
