package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/studyroom/internal/aggregate"
	"github.com/pavelanni/studyroom/internal/authoring"
	"github.com/pavelanni/studyroom/internal/handler"
	appI18n "github.com/pavelanni/studyroom/internal/i18n"
	"github.com/pavelanni/studyroom/internal/llm"
	"github.com/pavelanni/studyroom/internal/llm/prompts"
	"github.com/pavelanni/studyroom/internal/materials"
	"github.com/pavelanni/studyroom/internal/metrics"
	"github.com/pavelanni/studyroom/internal/model"
	"github.com/pavelanni/studyroom/internal/quiz"
	"github.com/pavelanni/studyroom/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studyroom",
		Short: "Study materials, quizzes and flashcards for a classroom",
	}

	serve := serveCmd()
	root.AddCommand(serve, aggregateCmd(), reportCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studyroom --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
}

func addMaterialsFlags(f *pflag.FlagSet) {
	f.String("materials-root", "materials", "Directory holding one folder per subject")
	f.StringToString("subject-aliases", nil, "Subject name aliases, e.g. Mathematics=Math (default built-in table)")
	f.Int("max-chars", aggregate.DefaultMaxChars, "Character budget for aggregated material")
	f.Int("extract-workers", 4, "Files extracted concurrently during aggregation")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "studyroom.db", "SQLite database path")
	addMaterialsFlags(f)
	f.StringSlice("resources", nil, "Resource JSON files to import at startup (repeatable)")
	f.String("llm-provider", llm.ProviderOpenAI, "Text generation provider (openai, anthropic, none)")
	f.String("llm-url", "http://localhost:11434/v1", "Provider API base URL")
	f.String("llm-key", "ollama", "API key for the provider")
	f.String("llm-model", "llama3.2", "Model name")
	f.StringP("lang", "l", "en", "Default language for messages (en, ru)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (empty disables CORS)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set STUDYROOM_ADMIN_PASSWORD)")
	addLogFlags(f)
	return cmd
}

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate [paths...]",
		Short: "Print the aggregated text of a subject or of selected files",
		RunE:  runAggregate,
	}
	f := cmd.Flags()
	f.StringP("subject", "s", "", "Subject folder or alias")
	f.Bool("strict", false, "Fail on the first file that cannot be extracted")
	addMaterialsFlags(f)
	addLogFlags(f)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the attempt summary of a quiz",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "studyroom.db", "SQLite database path")
	f.Int64("quiz-id", 0, "Quiz resource ID (required)")
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("quiz-id")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "studyroom.db", "SQLite database path")
	f.Int64("quiz-id", 0, "Quiz resource ID (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("quiz-id")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if path := v.GetString("log-file"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studyroom")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studyroom")
	v.AddConfigPath("/etc/studyroom")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newResolver builds the materials resolver. The alias table is fixed here
// for the lifetime of the process.
func newResolver(v *viper.Viper) (*materials.Resolver, error) {
	aliases := v.GetStringMapString("subject-aliases")
	if len(aliases) == 0 {
		aliases = materials.DefaultAliases
	}
	return materials.NewResolver(v.GetString("materials-root"), materials.NewAliasTable(aliases))
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	adminID, err := seedAdmin(db, v.GetString("admin-password"))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := loadResources(db, adminID, v.GetStringSlice("resources")); err != nil {
		return fmt.Errorf("load resources: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	slog.Info("messages loaded", "default", lang, "languages", appI18n.Languages())
	if err := prompts.Load(prompts.Templates); err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	completer, err := llm.NewCompleter(
		v.GetString("llm-provider"),
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if p, ok := completer.(llm.Pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	resolver, err := newResolver(v)
	if err != nil {
		return fmt.Errorf("materials: %w", err)
	}

	h := handler.New(db, resolver, aggregate.New(resolver, v.GetInt("extract-workers")), llm.NewGenerator(completer), handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
		MaxChars:      v.GetInt("max-chars"),
	})

	metrics.Init()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(appI18n.Middleware)
	r.Handle("/metrics", metrics.Handler())
	h.Routes(r)

	var root http.Handler = r
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		root = cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
			AllowCredentials: true,
		}).Handler(r)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupSessions(ctx, db)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: root, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", addr,
		"materials_root", resolver.Root(),
		"llm_provider", v.GetString("llm-provider"),
		"model", v.GetString("llm-model"),
		"lang", lang,
		"max_chars", v.GetInt("max-chars"),
		"extract_workers", v.GetInt("extract-workers"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupSessions(ctx context.Context, db *store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

func runAggregate(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	resolver, err := newResolver(v)
	if err != nil {
		return fmt.Errorf("materials: %w", err)
	}
	agg := aggregate.New(resolver, v.GetInt("extract-workers"))
	opts := aggregate.Options{MaxChars: v.GetInt("max-chars")}
	if v.GetBool("strict") {
		opts.Policy = aggregate.Abort
	}

	var res *aggregate.Result
	switch subject := v.GetString("subject"); {
	case len(args) > 0:
		res, err = agg.Files(cmd.Context(), args, opts)
	case subject != "":
		res, err = agg.Subject(cmd.Context(), subject, opts)
	default:
		return errors.New("give --subject or a list of paths")
	}
	if err != nil {
		return err
	}

	for _, s := range res.Skipped {
		slog.Warn("file left out", "path", s.Path, "reason", s.Reason)
	}
	slog.Info("aggregated", "files", len(res.Included), "skipped", len(res.Skipped), "truncated", res.Truncated)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return err
}

func runReport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	text, err := quiz.NewService(db).SummaryText(v.GetInt64("quiz-id"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id := v.GetInt64("quiz-id")
	export, err := db.ExportQuizAttempts(id)
	if err != nil {
		return fmt.Errorf("export attempts: %w", err)
	}
	if export == nil {
		return fmt.Errorf("quiz %d: %w", id, model.ErrNotFound)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func loadResources(db *store.Store, ownerID int64, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := authoring.Import(db, ownerID, path, data); err != nil {
			return err
		}
	}
	return nil
}

// seedAdmin creates the admin account on an empty database and returns the
// ID of the user that owns seeded resources.
func seedAdmin(db *store.Store, password string) (int64, error) {
	existing, err := db.GetUserByUsername("admin")
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	count, err := db.UserCount()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, errors.New("no admin user to own seeded resources")
	}

	if password == "" {
		return 0, fmt.Errorf("admin password is required: set --admin-password flag or STUDYROOM_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash admin password: %w", err)
	}

	id, err := db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return 0, fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return id, nil
}
