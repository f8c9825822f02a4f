package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"iniciativas/internal/bot"
	"iniciativas/internal/cache"
	"iniciativas/internal/config"
	"iniciativas/internal/domain"
	"iniciativas/internal/llm"
	"iniciativas/internal/nocodb"
	"iniciativas/internal/server"
	"iniciativas/internal/session"
	"iniciativas/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "ini",
	Short: "Iniciativas portfolio assistant",
	Long: `Iniciativas runs the chat assistant that manages a portfolio of product
initiatives with RICE prioritization (Reach x Impact x Confidence / Effort).
The serve command exposes the Telegram webhook plus an operator API; the rest
of the commands query the same remote table from the terminal.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.BindEnv(viper.GetViper())
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to ini.yml")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store := newStore(cfg)
			tg := telegram.New(cfg.Telegram.Token)
			tg.HTTPClient = &http.Client{Timeout: cfg.Telegram.Timeout.Duration()}
			analyzer := newLLM(cfg)
			engine := bot.New(store, session.NewManager(), tg, analyzer)

			handler := server.New(server.Config{
				Bot:      engine,
				Store:    store,
				Telegram: tg,
				LLMOn:    cfg.LLMEnabled(),
				BasePath: basePath,
				MaxLimit: cfg.Page.MaxLimit,
				OpsToken: cfg.Server.OpsToken,
			})

			if cfg.Telegram.WebhookURL != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				err := tg.SetWebhook(ctx, strings.TrimRight(cfg.Telegram.WebhookURL, "/")+"/webhook")
				cancel()
				if err != nil {
					return fmt.Errorf("set webhook: %w", err)
				}
			}

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving on http://%s (webhook at /webhook, ops API at %s, docs at /docs)\n",
				cfg.Server.Addr, pathOrDefault(basePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "ops API base path")
	return cmd
}

func listCmd() *cobra.Command {
	var status string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List initiatives ranked by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *cache.Store) error {
				q := cache.Query{Limit: limit, Offset: offset}
				if status != "" {
					canon, err := domain.CanonicalStatus(status)
					if err != nil {
						return err
					}
					q.Statuses = []string{canon}
				}
				res, err := store.List(ctx, q)
				if err != nil {
					return err
				}
				return printInitiatives(domain.Rank(res.Items))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (alias accepted)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func searchCmd() *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search initiatives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			selector, ok := domain.ParseSearchField(field)
			if !ok {
				return fmt.Errorf("unknown field %q; valid: all, name, owner, team, kpi, portal, description", field)
			}
			return withStore(func(ctx context.Context, store *cache.Store) error {
				res, err := store.List(ctx, cache.Query{})
				if err != nil {
					return err
				}
				return printInitiatives(domain.Search(res.Items, query, selector))
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", "all", "field selector")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Portfolio aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *cache.Store) error {
				res, err := store.List(ctx, cache.Query{})
				if err != nil {
					return err
				}
				summary := domain.Summarize(res.Items)
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Printf("Total: %d  Avg score: %.2f  Avg reach: %.1f%%\n\n",
					summary.Total, summary.AvgScore, summary.AvgReachPct)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Name", "Score", "Team", "Status"})
				for i, top := range summary.Top {
					tw.AppendRow(table.Row{i + 1, top.Name, fmt.Sprintf("%.2f", top.Score), top.Team, top.Status})
				}
				tw.Render()
				fmt.Println()
				tw = table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Count", "%"})
				for _, sc := range summary.TopStatuses {
					tw.AppendRow(table.Row{sc.Status, sc.Count, fmt.Sprintf("%.1f", summary.StatusPct[sc.Status])})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Register the webhook URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTelegram(func(ctx context.Context, tg *telegram.Client) error {
				return tg.SetWebhook(ctx, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Unregister the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTelegram(func(ctx context.Context, tg *telegram.Client) error {
				return tg.DeleteWebhook(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTelegram(func(ctx context.Context, tg *telegram.Client) error {
				info, err := tg.GetWebhookInfo(ctx)
				if err != nil {
					return err
				}
				return printJSON(info)
			})
		},
	})
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration and print resolved values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			dataErr := cfg.ValidateData()
			botErr := cfg.ValidateBot()
			fmt.Printf("nocodb:   base_url=%s table=%s token=%s timeout=%s\n",
				cfg.NocoDB.BaseURL, cfg.NocoDB.TableID, mask(cfg.NocoDB.Token), cfg.NocoDB.Timeout)
			fmt.Printf("telegram: token=%s webhook_url=%s\n", mask(cfg.Telegram.Token), cfg.Telegram.WebhookURL)
			fmt.Printf("llm:      enabled=%v model=%s\n", cfg.LLMEnabled(), cfg.LLM.Model)
			fmt.Printf("server:   addr=%s ops_token=%s\n", cfg.Server.Addr, mask(cfg.Server.OpsToken))
			fmt.Printf("cache:    ttl=%s  page: default=%d max=%d\n",
				cfg.Cache.TTL, cfg.Page.DefaultLimit, cfg.Page.MaxLimit)
			if dataErr != nil {
				return dataErr
			}
			if botErr != nil {
				fmt.Println("note: serve would fail:", botErr)
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cmd
}

// --- helpers ---

func newStore(cfg *config.Config) *cache.Store {
	client := nocodb.New(cfg.NocoDB.BaseURL, cfg.NocoDB.TableID, cfg.NocoDB.Token)
	client.HTTPClient = &http.Client{Timeout: cfg.NocoDB.Timeout.Duration()}
	store := cache.New(client, cfg.Cache.TTL.Duration())
	store.SetPageSize(cfg.Page.DefaultLimit)
	return store
}

func newLLM(cfg *config.Config) *llm.Client {
	client := llm.New(cfg.LLM.APIKey)
	client.Model = cfg.LLM.Model
	client.BaseURL = cfg.LLM.BaseURL
	client.MaxTokens = cfg.LLM.MaxTokens
	client.HTTPClient = &http.Client{Timeout: cfg.LLM.Timeout.Duration()}
	return client
}

func withStore(fn func(context.Context, *cache.Store) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.ValidateData(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.NocoDB.Timeout.Duration()+5*time.Second)
	defer cancel()
	return fn(ctx, newStore(cfg))
}

func withTelegram(fn func(context.Context, *telegram.Client) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (INI_TELEGRAM_TOKEN)")
	}
	tg := telegram.New(cfg.Telegram.Token)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx, tg)
}

func printInitiatives(items []domain.Initiative) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no initiatives")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Score", "Priority", "Team", "Portal", "Owner", "Status"})
	for _, ini := range items {
		tw.AppendRow(table.Row{
			ini.ID, ini.Name, fmt.Sprintf("%.2f", ini.Score),
			string(domain.PriorityFor(ini.Score)), ini.Team, ini.Portal, ini.Owner, ini.Status,
		})
	}
	tw.Render()
	return nil
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pathOrDefault(basePath string) string {
	if basePath == "" {
		return "/v0"
	}
	return basePath
}
