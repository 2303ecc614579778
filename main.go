package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giygas/medigraph/config"
	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/handlers"
	"github.com/giygas/medigraph/health"
	"github.com/giygas/medigraph/importer"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/scheduler"
	"github.com/giygas/medigraph/server"
)

var (
	cfg    *config.Config
	dryRun bool

	rootCmd = &cobra.Command{
		Use:               "medigraph",
		Short:             "Build a medicine knowledge graph from records and package photographs",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbox scanner",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	importCmd = &cobra.Command{
		Use:   "import <record.json|->",
		Short: "Import one medicine record into the graph",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	scanCmd = &cobra.Command{
		Use:   "scan <image>",
		Short: "Extract a medicine record from a package photograph and import it",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}

	askCmd = &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the graph contents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Create the uniqueness constraints and print them",
		Args:  cobra.NoArgs,
		RunE:  runSchema,
	}
)

func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned upserts without writing")
	rootCmd.AddCommand(serveCmd, importCmd, scanCmd, askCmd, schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads .env, the configuration and the logger before any command
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if err := logging.Init(logging.OptionsFromConfig(cfg)); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	jobs := scheduler.NewScheduler(a.pipeline, a.store, cfg.InboxDir, cfg.InboxInterval)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	h := handlers.NewHTTPHandler(a.importer, a.pipeline, a.answerer, health.NewHealthChecker(a.store, cfg.StoreBackend))
	srv := server.NewServer(cfg, h)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s is not a JSON object: %w", args[0], err)
	}

	if dryRun {
		plan, err := importer.New(graph.NewMemoryStore()).PlanDocument(doc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), handlers.PlanResponse{
			Nodes:         plan.CountNodes(),
			Relationships: plan.CountRelationships(),
			Operations:    plan.Operations,
		})
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.importer.ImportDocument(cmd.Context(), doc)
	if err != nil {
		if importer.IsRetryable(err) {
			return fmt.Errorf("%w (retryable)", err)
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

func runScan(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requirePipeline(); err != nil {
		return err
	}

	result, err := a.pipeline.Run(cmd.Context(), image)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireAnswerer(); err != nil {
		return err
	}

	answer, err := a.answerer.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
	logging.Debug("Answer query", "query", answer.Query, "rows", len(answer.Rows))
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	for _, c := range importer.Constraints() {
		fmt.Fprintln(cmd.OutOrStdout(), graph.ConstraintStatement(c).Query)
	}
	return nil
}

// readInput reads path, or stdin when path is "-"
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
