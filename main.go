package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/parley/config"
	"node.town/parley/db"
	"node.town/parley/etc"
	"node.town/parley/lang"
	"node.town/parley/pipeline"
	"node.town/parley/setup"
	"node.town/parley/transcript"
	"node.town/parley/ui"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	listenCmd.Flags().String("out", "", "Save the translation to this file")
	translateCmd.Flags().String("out", "", "Save the translation to this file")
	archiveCmd.Flags().Int("limit", 20, "Number of rows to show")
	setupCmd.Flags().String("path", "config.yaml", "Where to write the configuration")

	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(setupCmd)

	rootCmd.PersistentFlags().String("language", "", "Target language name")
	rootCmd.PersistentFlags().Float64("sensitivity", 0, "Seconds of ambient noise calibration")
	rootCmd.PersistentFlags().String("recognizer", "", "deepgram or whisper")
	rootCmd.PersistentFlags().String("translator", "", "google, openai or gemini")
	rootCmd.PersistentFlags().String("speaker", "", "espeak or elevenlabs")
	rootCmd.PersistentFlags().String("deepgram-api-key", "", "Deepgram API key")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("google-api-key", "", "Google Cloud API key")
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("elevenlabs-api-key", "", "ElevenLabs API key")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL for the translation archive")

	for key, flag := range map[string]string{
		"language":           "language",
		"sensitivity":        "sensitivity",
		"recognizer":         "recognizer",
		"translator":         "translator",
		"speaker":            "speaker",
		"deepgram_api_key":   "deepgram-api-key",
		"openai_api_key":     "openai-api-key",
		"google_api_key":     "google-api-key",
		"gemini_api_key":     "gemini-api-key",
		"elevenlabs_api_key": "elevenlabs-api-key",
		"database_url":       "database-url",
	} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	logger = log.New(os.Stderr)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Warn("read config file", "error", err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley translates speech and text and speaks the result",
	Long: `Parley listens to one utterance, recognizes it, translates it into the
selected language and reads the translation aloud.`,
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the interactive translator",
	Run:   runUI,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Capture one utterance and translate it",
	Run:   runListen,
}

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate typed text and speak it",
	Run:   runTranslate,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the supported target languages",
	Run:   runLanguages,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List archived translations in a table",
	Run:   runArchive,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose providers and enter API keys",
	Run:   runSetup,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(l *log.Logger) *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		l.Fatal("load configuration", "error", err)
	}
	return cfg
}

func runUI(cmd *cobra.Command, args []string) {
	cfg := loadConfig(logger)

	fileLogger, closeLog, err := ui.OpenFileLogger(cfg.LogFile, log.DebugLevel)
	if err != nil {
		logger.Fatal("open log file", "error", err)
	}
	defer closeLog()
	logger = fileLogger
	loggers := createLoggers()

	ctx, stop := signalContext()
	defer stop()

	controller, release, err := newController(ctx, cfg, loggers)
	if err != nil {
		loggers.Main.Fatal("configure pipeline", "error", err)
	}
	defer release()

	if err := ui.Run(ctx, controller, loggers.Main); err != nil {
		loggers.Main.Error("ui", "error", err)
	}
}

func runListen(cmd *cobra.Command, args []string) {
	loggers := createLoggers()
	cfg := loadConfig(loggers.Main)

	ctx, stop := signalContext()
	defer stop()

	controller, release, err := newController(ctx, cfg, loggers)
	if err != nil {
		loggers.Main.Fatal("configure pipeline", "error", err)
	}
	defer release()

	controller.Subscribe(printStatus)

	pair, err := controller.CaptureAndTranslate(ctx)
	if err != nil {
		release()
		os.Exit(1)
	}
	printPair(pair)
	saveIfRequested(cmd, controller, loggers.Main)
}

func runTranslate(cmd *cobra.Command, args []string) {
	loggers := createLoggers()
	cfg := loadConfig(loggers.Main)

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		err := huh.NewText().
			Title(fmt.Sprintf("Text to translate into %s", cfg.Language.Name)).
			Value(&text).
			Run()
		if err != nil {
			loggers.Main.Fatal("read text", "error", err)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	controller, release, err := newController(ctx, cfg, loggers)
	if err != nil {
		loggers.Main.Fatal("configure pipeline", "error", err)
	}
	defer release()

	controller.Subscribe(printStatus)

	pair, err := controller.TranslateText(ctx, text)
	if err != nil {
		release()
		os.Exit(1)
	}
	printPair(pair)
	saveIfRequested(cmd, controller, loggers.Main)
}

// printStatus echoes every status change to stderr.
func printStatus(e pipeline.Event) {
	if e.Kind != pipeline.EventState || e.State.Status == "" {
		return
	}
	fmt.Fprintln(os.Stderr, e.State.Status)
}

func printPair(pair transcript.Pair) {
	for _, line := range pair.Lines() {
		fmt.Println(line)
	}
}

func saveIfRequested(cmd *cobra.Command, c *pipeline.Controller, l *log.Logger) {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return
	}
	if err := c.Save(out); err != nil {
		l.Error("save translation", "path", out, "error", err)
	}
}

func runLanguages(cmd *cobra.Command, args []string) {
	table := newTable([]string{"#", "Language", "Code"})
	for i, l := range lang.All() {
		table.Append([]string{fmt.Sprintf("%d", i+1), l.Name, l.Code})
	}
	table.Render()
}

func runArchive(cmd *cobra.Command, args []string) {
	loggers := createLoggers()
	cfg := loadConfig(loggers.Main)
	if cfg.DatabaseURL == "" {
		loggers.Main.Fatal("database_url is not configured")
	}

	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signalContext()
	defer stop()

	archive, err := db.Open(ctx, cfg.DatabaseURL, loggers.Data)
	if err != nil {
		loggers.Main.Fatal("open archive", "error", err)
	}
	defer archive.Close()

	rows, err := archive.Recent(ctx, limit)
	if err != nil {
		loggers.Main.Fatal("fetch translations", "error", err)
	}

	if len(rows) == 0 {
		fmt.Println("No translations found.")
		return
	}

	table := newTable([]string{"ID", "Created At", "Via", "Target", "Original", "Translated"})
	for _, row := range rows {
		table.Append([]string{
			row.ID,
			row.CreatedAt.Format("2006-01-02 15:04:05"),
			row.SourceKind,
			row.Target,
			etc.Ellipsize(row.Recognized, 40),
			etc.Ellipsize(row.Translated, 40),
		})
	}
	table.Render()
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func runSetup(cmd *cobra.Command, args []string) {
	loggers := createLoggers()
	path, _ := cmd.Flags().GetString("path")

	if err := setup.RunSetup(viper.GetViper(), path, loggers.Main); err != nil {
		loggers.Main.Fatal("setup", "error", err)
	}
}

func createLoggers() Loggers {
	logLevel := log.DebugLevel

	logger.SetLevel(logLevel)
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
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
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

	return Loggers{
		Main: logger.With().WithPrefix("main"),
		Hear: logger.With().WithPrefix("hear"),
		Talk: logger.With().WithPrefix("talk"),
		Data: logger.With().WithPrefix("data"),
	}
}
