package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"triagekit/internal/classifier"
	"triagekit/internal/config"
	"triagekit/internal/convert"
	"triagekit/internal/domain"
	"triagekit/internal/enrich"
	"triagekit/internal/logging"
	"triagekit/internal/predict"
	"triagekit/internal/server"
	"triagekit/internal/similar"
	"triagekit/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "tk",
	Short: "TriageKit CLI",
	Long: `TriageKit enriches raw incident records into fully-routed ones.
Core concepts:
- Incidents: partially-populated records converted from tabular exports.
- Enrichment: fills only the missing fields (priority, status, category,
  team, confidence, context); values that arrive are kept as-is.
- Routing: a linear model when one is configured, keyword decision tables
  otherwise, and a fixed default team as the last resort.
- Runs: each enrichment batch is recorded with its accept/reject counters.
- Store: a .triagekit workspace database for browsing, search, and stats.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logging.Init(os.Stderr, level)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("TRIAGEKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default triagekit.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func convertCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert <input.csv>",
		Short: "Convert a CSV incident export to raw incident JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := convert.New().ReadFile(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return printJSON(incidents)
			}
			if err := writeJSONFile(out, incidents); err != nil {
				return err
			}
			fmt.Printf("Converted %d incidents to %s\n", len(incidents), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func enrichCmd() *cobra.Command {
	var out, source string
	var persist bool
	cmd := &cobra.Command{
		Use:   "enrich <input.json>",
		Short: "Enrich a batch of raw incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var incidents []domain.Incident
			if err := readJSONFile(args[0], &incidents); err != nil {
				return err
			}
			eng, err := buildEnricher(cfg)
			if err != nil {
				return err
			}
			enriched, summary := eng.EnrichBatch(incidents)

			var runID string
			if persist {
				if source == "" {
					source = args[0]
				}
				run := store.NewRun(source, summary)
				err := withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
					return st.SaveRun(ctx, run, enriched)
				})
				if err != nil {
					return err
				}
				runID = run.ID
			}

			if out != "" {
				if err := writeJSONFile(out, enriched); err != nil {
					return err
				}
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"incidents": enriched,
					"summary":   summary,
					"runId":     runID,
				})
			}
			if out == "" {
				if err := printJSON(enriched); err != nil {
					return err
				}
			}
			fmt.Printf("Enriched %d, rejected %d\n", summary.Enriched, summary.Rejected)
			renderCounts("Status", summary.Statuses)
			renderCounts("Priority", summary.Priorities)
			renderCounts("Category", summary.Categories)
			if runID != "" {
				fmt.Printf("Run: %s\n", runID)
			}
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write enriched incidents to file")
	cmd.Flags().BoolVar(&persist, "store", false, "persist the batch to the workspace store")
	cmd.Flags().StringVar(&source, "source", "", "source label for the run (default input path)")
	return cmd
}

func predictCmd() *cobra.Command {
	var title, description, workload, monitor string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the owning team for incident text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && description == "" && workload == "" {
				return fmt.Errorf("at least one of --title, --description, --workload is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cls, err := buildClassifier(cfg)
			if err != nil {
				return err
			}
			svc := predict.New(cls)
			if cfg.Engine.DefaultTeam != "" {
				svc.DefaultTeam = cfg.Engine.DefaultTeam
			}
			text := strings.TrimSpace(title + " " + description)
			p := svc.Predict(text, workload, monitor)
			if viper.GetBool("json") {
				return printJSON(p)
			}
			fmt.Printf("Team: %s\nConfidence: %.2f\nMethod: %s\n", p.Team, p.Confidence, p.Method)
			for _, alt := range p.Alternatives {
				fmt.Printf("Alternative: %s (%.2f)\n", alt.Team, alt.Probability)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "incident title")
	cmd.Flags().StringVar(&description, "description", "", "incident description")
	cmd.Flags().StringVar(&workload, "workload", "", "affected workload")
	cmd.Flags().StringVar(&monitor, "monitor", "", "triggering monitor")
	return cmd
}

func listCmd() *cobra.Command {
	var f store.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				incidents, err := st.List(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(incidents)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Category", "Team", "Confidence"})
				for _, inc := range incidents {
					confidence := ""
					if inc.RoutingReasoning != nil && inc.RoutingReasoning.Confidence != nil {
						confidence = fmt.Sprintf("%.2f", *inc.RoutingReasoning.Confidence)
					}
					tw.AppendRow(table.Row{inc.ID, truncate(inc.Title, 48), inc.Status, inc.Priority, inc.Category, inc.AssignedTo, confidence})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&f.Team, "team", "", "assigned team filter")
	cmd.Flags().StringVar(&f.Search, "search", "", "substring search over id, title, description")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows (0 for all)")
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stored incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				inc, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(inc)
			})
		},
	}
	return cmd
}

func similarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "Find stored incidents similar to the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				target, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				corpus, err := st.List(ctx, store.Filters{})
				if err != nil {
					return err
				}
				matches := similar.Find(target, corpus)
				if viper.GetBool("json") {
					return printJSON(matches)
				}
				if len(matches) == 0 {
					fmt.Println("No similar incidents found")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Score"})
				for _, m := range matches {
					tw.AppendRow(table.Row{m.Incident.ID, truncate(m.Incident.Title, 48), fmt.Sprintf("%.3f", m.Score)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate stats over the stored corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				stats, err := st.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				fmt.Printf("Total incidents: %d\n", stats.Total)
				fmt.Printf("Average confidence: %.2f\n", stats.AvgConfidence)
				fmt.Printf("At SLA risk: %d\n", stats.AtRisk)
				renderCounts("Status", stats.ByStatus)
				renderCounts("Priority", stats.ByPriority)
				renderCounts("Category", stats.ByCategory)
				renderCounts("Team", stats.ByTeam)
				return nil
			})
		},
	}
	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List enrichment runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				runs, err := st.ListRuns(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Source", "Enriched", "Rejected", "Created"})
				for _, r := range runs {
					tw.AppendRow(table.Row{r.ID, r.Source, r.Enriched, r.Rejected, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate triagekit.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			workspace := viper.GetString("workspace")
			conn, err := store.Open(store.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := store.Migrate(conn); err != nil {
				return err
			}
			eng, err := buildEnricher(cfg)
			if err != nil {
				return err
			}
			cls, err := buildClassifier(cfg)
			if err != nil {
				return err
			}
			svc := predict.New(cls)
			if cfg.Engine.DefaultTeam != "" {
				svc.DefaultTeam = cfg.Engine.DefaultTeam
			}
			secret := cfg.Server.JWTSecret
			if env := os.Getenv("TRIAGEKIT_JWT_SECRET"); env != "" {
				secret = env
			}
			handler, err := server.New(server.Config{
				Store:     store.Store{DB: conn},
				Enricher:  eng,
				Predictor: svc,
				BasePath:  basePath,
				Auth:      server.AuthConfig{JWTSecret: secret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving TriageKit API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func buildClassifier(cfg *config.Config) (classifier.Classifier, error) {
	if cfg.Classifier.ModelPath == "" {
		return nil, nil
	}
	model, err := classifier.LoadLinear(cfg.Classifier.ModelPath)
	if err != nil {
		return nil, err
	}
	return model, nil
}

func buildEnricher(cfg *config.Config) (*enrich.Enricher, error) {
	cls, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if cfg.Engine.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Engine.Seed))
	}
	eng := enrich.New(cls, rng)
	if cfg.Engine.DefaultTeam != "" {
		eng.DefaultTeam = cfg.Engine.DefaultTeam
	}
	if cfg.Engine.Customer != "" {
		eng.Customer = cfg.Engine.Customer
	}
	return eng, nil
}

func withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	workspace := viper.GetString("workspace")
	conn, err := store.Open(store.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := store.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, store.Store{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// renderCounts prints a label→count distribution as a table, largest
// buckets first.
func renderCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	type bucket struct {
		key   string
		count int
	}
	rows := make([]bucket, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, bucket{k, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{label, "Count"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.key, r.count})
	}
	tw.Render()
}
