package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/tandem/config"
	"node.town/tandem/langs"
	"node.town/tandem/pipeline"
	"node.town/tandem/session"
	"node.town/tandem/setup"
	"node.town/tandem/snd"
	"node.town/tandem/stt"
	"node.town/tandem/translate"
	"node.town/tandem/tts"
	"node.town/tandem/ui"
	"node.town/tandem/web"
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(langsCmd)
	rootCmd.AddCommand(setupCmd)

	rootCmd.PersistentFlags().Bool("verbose", false, "Log at debug level")
	rootCmd.PersistentFlags().String("log-file", "tandem.log", "Log file")
	rootCmd.PersistentFlags().String("device", "", "Capture device ID (see `tandem devices`)")
	rootCmd.PersistentFlags().String("recognizer", "deepgram", "Speech recognizer: deepgram or whisper")
	rootCmd.PersistentFlags().String("translator", "google", "Translator: google, openai or gemini")
	rootCmd.PersistentFlags().String("synthesizer", "elevenlabs", "Speech synthesizer: elevenlabs or openai")
	rootCmd.PersistentFlags().Bool("disable-capture", false, "Run without the microphone")
	rootCmd.PersistentFlags().Bool("disable-synthesis", false, "Run without speaking translations")
	rootCmd.PersistentFlags().Int("http-port", 8080, "HTTP server port")

	runCmd.Flags().Bool("web", false, "Also serve the web view")
	serveCmd.Flags().Bool("start", false, "Start a session right away")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("device_id", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("recognizer", rootCmd.PersistentFlags().Lookup("recognizer"))
	viper.BindPFlag("translator", rootCmd.PersistentFlags().Lookup("translator"))
	viper.BindPFlag("synthesizer", rootCmd.PersistentFlags().Lookup("synthesizer"))
	viper.BindPFlag(
		"debug.disable_capture",
		rootCmd.PersistentFlags().Lookup("disable-capture"),
	)
	viper.BindPFlag(
		"debug.disable_synthesis",
		rootCmd.PersistentFlags().Lookup("disable-synthesis"),
	)
	viper.BindPFlag("http_port", rootCmd.PersistentFlags().Lookup("http-port"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Tandem translates a conversation between two people as they speak",
	Long: `Tandem listens to whoever holds the active station, shows a live caption
and its translation, and speaks each finished utterance in the other
station's language.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the terminal interface",
	RunE:  runTerminal,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless with the web view",
	RunE:  runServe,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	RunE:  runDevices,
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List ElevenLabs voices and the language each one serves",
	RunE:  runVoices,
}

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List supported languages and their accents",
	RunE:  runLangs,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose providers and enter API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(os.Stderr)
		path := viper.ConfigFileUsed()
		if path == "" {
			path = "config.yaml"
		}
		return setup.Run(viper.GetViper(), path, logger)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := createLoggers(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controller, cleanup, err := buildController(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer cleanup()
	defer controller.Close()

	if withWeb, _ := cmd.Flags().GetBool("web"); withWeb {
		server := newServer(controller, logger)
		go func() {
			if err := server.ListenAndServe(cfg.HTTPPort); err != nil {
				logger.Error("http server stopped", "error", err)
			}
		}()
	}

	return ui.Run(controller.State(), controller, os.Stdout)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := createLoggers(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controller, cleanup, err := buildController(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer cleanup()
	defer controller.Close()

	if start, _ := cmd.Flags().GetBool("start"); start {
		controller.Start()
	}

	server := newServer(controller, logger)
	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe(cfg.HTTPPort)
	}()

	select {
	case <-ctx.Done():
		logger.With().WithPrefix("main").Info("shutting down")
		return nil
	case err := <-errc:
		return fmt.Errorf("failed to serve: %w", err)
	}
}

func newServer(c *pipeline.Controller, logger *log.Logger) *web.Server {
	return web.NewServer(c.State(), c, logger.With().WithPrefix("http"))
}

// buildController wires the configured providers into a pipeline. The
// returned cleanup releases provider clients.
func buildController(
	ctx context.Context,
	cfg *config.Config,
	logger *log.Logger,
) (*pipeline.Controller, func(), error) {
	mainLogger := logger.With().WithPrefix("main")
	hearLogger := logger.With().WithPrefix("hear")
	talkLogger := logger.With().WithPrefix("talk")
	cleanup := func() {}

	var deps pipeline.Deps
	if !cfg.Debug.DisableCapture {
		deps.Microphone = snd.NewMicrophone(logger.With().WithPrefix("mic"))
	}

	recognizer, err := stt.New(stt.Options{
		Provider:       cfg.Recognizer,
		DeepgramAPIKey: cfg.DeepgramAPIKey,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
	}, hearLogger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	deps.Recognizer = recognizer

	translator, err := translate.New(ctx, translate.Options{
		Provider:      cfg.Translator,
		GoogleAPIKey:  cfg.GoogleAPIKey,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
	}, hearLogger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to create translator: %w", err)
	}
	if c, ok := translator.(io.Closer); ok {
		cleanup = func() { c.Close() }
	}
	deps.Translator = translate.Identity{Translator: translator}

	if !cfg.Debug.DisableSynthesis {
		synth, voices, err := tts.New(tts.Options{
			Provider:         cfg.Synthesizer,
			ElevenLabsAPIKey: cfg.ElevenLabsAPIKey,
			OpenAIAPIKey:     cfg.OpenAIAPIKey,
			OpenAIBaseURL:    cfg.OpenAIBaseURL,
			Voices:           cfg.Voices,
			DefaultVoice:     cfg.DefaultVoice,
		}, talkLogger)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("failed to create speech synthesizer: %w", err)
		}
		if el, ok := synth.(*tts.ElevenLabs); ok {
			found, err := el.Voices(ctx)
			if err != nil {
				mainLogger.Warn("using default voice only", "error", err)
			} else {
				voices.Learn(tts.ByLanguage(found))
				mainLogger.Info("voices", "count", len(found))
			}
		}
		deps.Voices = voices
		deps.Synthesizer = synth
		deps.Output = snd.NewSpeaker(talkLogger)
	}

	mainLogger.Info("pipeline",
		"recognizer", cfg.Recognizer,
		"translator", cfg.Translator,
		"synthesizer", cfg.Synthesizer,
		"capture", !cfg.Debug.DisableCapture,
		"synthesis", !cfg.Debug.DisableSynthesis,
	)

	state := session.New(cfg.Settings())
	controller := pipeline.NewController(state, deps, pipeline.Options{
		Timings:          cfg.Timings,
		DisableCapture:   cfg.Debug.DisableCapture,
		DisableSynthesis: cfg.Debug.DisableSynthesis,
		Corrections:      cfg.Corrections,
		Logger:           logger,
	})
	return controller, cleanup, nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := snd.Devices()
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, []string{"ID", "Name", "Default"})
	table.AppendBulk(deviceRows(devices))
	table.Render()
	return nil
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ElevenLabsAPIKey == "" {
		return fmt.Errorf("elevenlabs_api_key is not set")
	}
	el := tts.NewElevenLabs(cfg.ElevenLabsAPIKey, "", log.New(os.Stderr))
	voices, err := el.Voices(cmd.Context())
	if err != nil {
		return err
	}
	table := newTable(os.Stdout, []string{"ID", "Name", "Language", "Accent"})
	for _, v := range voices {
		table.Append([]string{v.ID, v.Name, v.Language, v.Accent})
	}
	table.Render()
	return nil
}

func runLangs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(os.Stderr)

	lister := langs.NewLister(nil)
	if cfg.GoogleAPIKey != "" {
		g, err := translate.NewGoogle(cmd.Context(), cfg.GoogleAPIKey, logger)
		if err != nil {
			return err
		}
		lister = langs.NewLister(g.Service())
	}

	languages, err := lister.Languages(cmd.Context())
	if err != nil {
		logger.Warn("showing built-in languages", "error", err)
	}
	table := newTable(os.Stdout, []string{"Code", "Name", "Accents"})
	table.AppendBulk(languageRows(languages))
	table.Render()
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func deviceRows(devices []snd.DeviceInfo) [][]string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		def := ""
		if d.IsDefault {
			def = "*"
		}
		rows = append(rows, []string{d.ID, d.Name, def})
	}
	return rows
}

func languageRows(languages []langs.Language) [][]string {
	rows := make([][]string, 0, len(languages))
	for _, l := range languages {
		rows = append(rows, []string{l.Code, l.Name, strings.Join(langs.Accents[l.Code], ", ")})
	}
	return rows
}

// createLoggers opens the log file and returns the root logger. The
// terminal UI owns stdout, so console output is opt-in.
func createLoggers(cfg *config.Config, console io.Writer) (*log.Logger, func(), error) {
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(f, console)
	}

	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	logger.SetReportCaller(true)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))
	logger.SetStyles(styles)

	return logger, func() { f.Close() }, nil
}
