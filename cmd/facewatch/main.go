package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrCodeEU/facewatch/pkg/camera"
	"github.com/MrCodeEU/facewatch/pkg/config"
	"github.com/MrCodeEU/facewatch/pkg/display"
	"github.com/MrCodeEU/facewatch/pkg/eventlog"
	"github.com/MrCodeEU/facewatch/pkg/facedb"
	"github.com/MrCodeEU/facewatch/pkg/logging"
	"github.com/MrCodeEU/facewatch/pkg/recognition"
	"github.com/MrCodeEU/facewatch/pkg/session"
	"github.com/MrCodeEU/facewatch/pkg/storage"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

func init() {
	commands = map[string]*Command{
		"run": {
			Name:        "run",
			Description: "Watch the camera and log recognized faces",
			Usage:       "facewatch run [--camera-index N] [--threshold T] [--faces-dir DIR]",
			Run:         cmdRun,
		},
		"build": {
			Name:        "build",
			Description: "Build the face database and print a summary",
			Usage:       "facewatch build [--faces-dir DIR] [-save]",
			Run:         cmdBuild,
		},
		"download-models": {
			Name:        "download-models",
			Description: "Download the dlib model files",
			Usage:       "facewatch download-models [target-dir]",
			Run:         cmdDownloadModels,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "facewatch config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "facewatch version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "facewatch help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("FaceWatch v%s starting", version)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.Run(args[1:]); err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FaceWatch - Webcam Face Recognition Logger")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: facewatch [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range []string{"run", "build", "download-models", "config", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-16s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  facewatch run                      # Watch camera 0 with config defaults")
	fmt.Println("  facewatch run --camera-index 2     # Use a different camera")
	fmt.Println("  facewatch build --faces-dir faces  # Check the photo database")
	fmt.Println("\nRun 'facewatch help <command>' for more information on a command.")
}

// newEncoder loads the dlib engine from the configured model path.
func newEncoder() (*recognition.DlibEncoder, error) {
	return recognition.NewDlibEncoder(cfg.Recognition.ModelPath)
}

// buildDatabase builds the face database from disk, consulting the
// snapshot cache when enabled.
func buildDatabase(enc recognition.Encoder) (*facedb.Database, error) {
	var store *storage.FileStore
	if cfg.Cache.Enabled {
		var err error
		store, err = storage.NewFileStore(cfg.Cache.Dir, cfg.Cache.EncryptionEnabled)
		if err != nil {
			return nil, err
		}
		if snap, err := store.Load(); err == nil && snap.FacesDir == cfg.Faces.Dir {
			logging.Infof("using cached database from %s (%d records)", snap.BuiltAt.Format("2006-01-02 15:04:05"), len(snap.Records))
			return facedb.FromRecords(snap.FacesDir, snap.Records), nil
		}
	}

	db, err := facedb.Build(facedb.Config{
		Root:       cfg.Faces.Dir,
		Extensions: cfg.Faces.Extensions,
	}, enc)
	if err != nil {
		return nil, err
	}

	if store != nil && db.Len() > 0 {
		if err := store.Save(snapshotOf(db)); err != nil {
			logging.WithError(err).Warn("could not save database snapshot")
		}
	}

	return db, nil
}

func snapshotOf(db *facedb.Database) storage.Snapshot {
	return storage.Snapshot{
		FacesDir: db.FacesDir(),
		BuiltAt:  time.Now(),
		Records:  db.Records(),
	}
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cameraIndex := fs.Int("camera-index", cfg.Camera.Index, "Camera device index")
	threshold := fs.Float64("threshold", cfg.Recognition.Tolerance, "Match distance threshold")
	facesDir := fs.String("faces-dir", cfg.Faces.Dir, "Labeled faces directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Camera.Index = *cameraIndex
	cfg.Recognition.Tolerance = *threshold
	cfg.Faces.Dir = *facesDir

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	enc, err := newEncoder()
	if err != nil {
		return err
	}
	defer func() { _ = enc.Close() }()

	db, err := buildDatabase(enc)
	if err != nil {
		return err
	}
	if cfg.Recognition.AveragePerPerson {
		db = db.AveragePerPerson()
	}

	events, err := eventlog.New(cfg.Log.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Logging recognitions to: %s\n", events.Path())

	src := camera.NewDevice(cfg.Camera.Index, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	screen := display.NewWindow("FaceWatch")

	sess, err := session.New(db, enc, src, screen, events, cfg.Recognition.Tolerance)
	if err != nil {
		_ = screen.Close()
		_ = events.Close()
		return err
	}

	fmt.Println("Watching... press 'q' or Esc in the video window to quit.")
	return sess.Run()
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	facesDir := fs.String("faces-dir", cfg.Faces.Dir, "Labeled faces directory")
	save := fs.Bool("save", false, "Save the built database as a snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Faces.Dir = *facesDir

	enc, err := newEncoder()
	if err != nil {
		return err
	}
	defer func() { _ = enc.Close() }()

	db, err := facedb.Build(facedb.Config{
		Root:       cfg.Faces.Dir,
		Extensions: cfg.Faces.Extensions,
	}, enc)
	if err != nil {
		return err
	}

	summary := db.Summary()
	fmt.Println("Face Database Summary")
	fmt.Println("=====================")
	fmt.Printf("  Faces dir:  %s\n", summary.FacesDir)
	fmt.Printf("  People:     %d\n", summary.People)
	fmt.Printf("  Images:     %d\n", summary.ImagesUsed)
	fmt.Printf("  Encodings:  %d\n", summary.Encodings)
	for name, count := range summary.PerPerson {
		fmt.Printf("    - %-20s %d\n", name, count)
	}

	if db.Len() == 0 {
		return facedb.ErrEmptyDatabase
	}

	if *save {
		store, err := storage.NewFileStore(cfg.Cache.Dir, cfg.Cache.EncryptionEnabled)
		if err != nil {
			return err
		}
		if err := store.Save(snapshotOf(db)); err != nil {
			return err
		}
		fmt.Printf("\nSnapshot saved to %s\n", cfg.Cache.Dir)
	}

	return nil
}

func cmdConfig(args []string) error {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Camera]")
	fmt.Printf("  Index:       %d\n", cfg.Camera.Index)
	fmt.Printf("  Resolution:  %dx%d @ %d FPS\n", cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)
	fmt.Println()
	fmt.Println("[Recognition]")
	fmt.Printf("  Tolerance:   %.2f\n", cfg.Recognition.Tolerance)
	fmt.Printf("  Model Path:  %s\n", cfg.Recognition.ModelPath)
	fmt.Printf("  Averaging:   %t\n", cfg.Recognition.AveragePerPerson)
	fmt.Println()
	fmt.Println("[Faces]")
	fmt.Printf("  Dir:         %s\n", cfg.Faces.Dir)
	fmt.Printf("  Extensions:  %v\n", cfg.Faces.Extensions)
	fmt.Println()
	fmt.Println("[Log]")
	fmt.Printf("  Dir:         %s\n", cfg.Log.Dir)
	fmt.Println()
	fmt.Println("[Cache]")
	fmt.Printf("  Enabled:     %t\n", cfg.Cache.Enabled)
	fmt.Printf("  Dir:         %s\n", cfg.Cache.Dir)
	fmt.Printf("  Encryption:  %t\n", cfg.Cache.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:       %s\n", cfg.Logging.Level)
	fmt.Printf("  File:        %s\n", cfg.Logging.File)

	return nil
}

func cmdVersion(args []string) error {
	fmt.Printf("FaceWatch v%s\n", version)
	fmt.Println("Webcam Face Recognition Logger")
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	switch cmdName {
	case "run":
		fmt.Println("\nThe faces directory must contain one subdirectory per person,")
		fmt.Println("named after them, holding photos with exactly that person's face:")
		fmt.Println("  data/faces/alice/front.jpg")
		fmt.Println("  data/faces/bob/holiday.png")
		fmt.Println("\nRecognition events are appended to logs/face_log_<timestamp>.txt.")
	case "build":
		fmt.Println("\nBuilds the database without opening the camera, reporting how")
		fmt.Println("many photos produced usable encodings per person.")
	case "download-models":
		fmt.Println("\nFetches the dlib model files from dlib.net into the configured")
		fmt.Println("model path (or the given target directory).")
	}

	return nil
}
