package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"focusline/internal/app"
	"focusline/internal/assistant"
	"focusline/internal/config"
	"focusline/internal/db"
	"focusline/internal/domain"
	"focusline/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "fl",
	Short: "Focusline CLI",
	Long: `Focusline is a chat-driven planner for goals and daily tasks.
Core concepts:
- Goal: something you work toward for a few months with a daily time target.
- Task: a dated to-do, optionally linked to a goal; completing it credits the goal's daily progress.
- Chat: plain messages like "create goal Learn Kotlin in 6 months" or "add task Review notes tomorrow".
  Messages the fixed phrasings don't cover go to the configured inference backend.
- Focus sessions and phone usage: logged by hand and folded into the daily progress summary.
- Event log: every change is recorded, view with 'fl log tail'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FOCUSLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("backend", "", "inference backend override (none, heuristic, llamacpp, gemini)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sayCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(focusCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func goalCmd() *cobra.Command {
	g := &cobra.Command{Use: "goal", Short: "Manage goals"}
	g.AddCommand(goalListCmd())
	g.AddCommand(goalCreateCmd())
	g.AddCommand(goalDeleteCmd())
	return g
}

func goalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				goals, err := e.ActiveGoals(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(goals)
				}
				now := e.Now()
				tw := newTable("ID", "Title", "Daily", "Ends", "Days left")
				for _, g := range goals {
					tw.AppendRow(table.Row{g.ID, g.Title, fmt.Sprintf("%d min", g.DailyMinutes), g.EndAt.Local().Format("Jan 2, 2006"), g.DaysLeft(now)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func goalCreateCmd() *cobra.Command {
	var title, category string
	var months, daily int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if months <= 0 {
				return fmt.Errorf("--months must be positive")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				now := e.Now()
				g, err := e.InsertGoal(ctx, domain.Goal{
					Title:        title,
					Category:     category,
					StartAt:      now,
					EndAt:        now.AddDate(0, 0, months*30),
					DailyMinutes: daily,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "goal title")
	cmd.Flags().StringVar(&category, "category", "", "category (default General)")
	cmd.Flags().IntVar(&months, "months", assistant.DefaultDurationMonths, "duration in 30-day months")
	cmd.Flags().IntVar(&daily, "daily", assistant.DefaultDailyMinutes, "daily target in minutes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete goal; its tasks are kept without the link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteGoal(ctx, args[0]); err != nil {
					return err
				}
				return printOK(map[string]any{"deleted": args[0]})
			})
		},
	}
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskDoneCmd())
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks due on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := parseDue(date, e.Now())
				if err != nil {
					return err
				}
				tasks, err := e.TasksByDate(ctx, day, day.AddDate(0, 0, 1))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := newTable("ID", "Title", "Minutes", "Priority", "Done", "Goal")
				for _, t := range tasks {
					goal := ""
					if t.GoalID != nil {
						goal = *t.GoalID
					}
					done := "☐"
					if t.Completed {
						done = "☑"
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Minutes, t.Priority, done, goal})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "today, tomorrow, next-week or YYYY-MM-DD")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var title, due, goalID, description string
	var minutes, priority int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := parseDue(due, e.Now())
				if err != nil {
					return err
				}
				t := domain.Task{
					Title:       title,
					Description: description,
					DueAt:       day,
					Minutes:     minutes,
					Priority:    priority,
				}
				if goalID != "" {
					t.GoalID = &goalID
				}
				created, err := e.InsertTask(ctx, t)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&due, "due", "today", "today, tomorrow, next-week or YYYY-MM-DD")
	cmd.Flags().StringVar(&goalID, "goal", "", "goal id to link")
	cmd.Flags().IntVar(&minutes, "minutes", assistant.DefaultTaskMinutes, "estimated minutes")
	cmd.Flags().IntVar(&priority, "priority", 2, "priority 1 (high) to 3 (low)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CompleteTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				return printOK(map[string]any{"deleted": args[0]})
			})
		},
	}
}

func progressCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the daily progress summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := parseDue(date, e.Now())
				if err != nil {
					return err
				}
				s, err := e.DailySummary(ctx, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Day: %s\n", s.Day)
				fmt.Printf("Tasks: %d/%d completed (%d%%)\n", s.TasksCompleted, s.TasksTotal, s.Percent)
				fmt.Printf("Focus: %d min  Screen: %d min  Unlocks: %d\n", s.FocusMinutes, s.ScreenMinutes, s.Unlocks)
				if len(s.Goals) == 0 {
					return nil
				}
				tw := newTable("Goal", "Done", "Target", "Met", "Days left")
				for _, g := range s.Goals {
					tw.AppendRow(table.Row{g.Goal.Title, g.MinutesDone, g.Goal.DailyMinutes, g.TargetMet, g.DaysLeft})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "today or YYYY-MM-DD")
	return cmd
}

func focusCmd() *cobra.Command {
	f := &cobra.Command{Use: "focus", Short: "Log and list focus timer sessions"}
	f.AddCommand(focusLogCmd())
	f.AddCommand(focusListCmd())
	return f
}

func focusLogCmd() *cobra.Command {
	var goalID, kind string
	var minutes int
	var interrupted bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a finished timer session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.LogFocus(ctx, engine.FocusOptions{
					GoalID:      goalID,
					Kind:        domain.TimerKind(kind),
					Minutes:     minutes,
					Interrupted: interrupted,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&goalID, "goal", "", "goal id to credit")
	cmd.Flags().StringVar(&kind, "kind", string(domain.TimerFocus), "focus, short_break or long_break")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "length in minutes (default per kind)")
	cmd.Flags().BoolVar(&interrupted, "interrupted", false, "session was cut short")
	return cmd
}

func focusListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timer sessions for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := parseDue(date, e.Now())
				if err != nil {
					return err
				}
				items, err := e.FocusSessions(ctx, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Started", "Kind", "Minutes", "Completed", "Goal")
				for _, s := range items {
					goal := ""
					if s.GoalID != nil {
						goal = *s.GoalID
					}
					tw.AppendRow(table.Row{s.StartedAt.Local().Format("15:04"), s.Kind, s.Minutes, s.Completed, goal})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "today or YYYY-MM-DD")
	return cmd
}

func usageCmd() *cobra.Command {
	u := &cobra.Command{Use: "usage", Short: "Record and show phone usage"}
	u.AddCommand(usageAddCmd())
	u.AddCommand(usageTodayCmd())
	return u
}

func usageAddCmd() *cobra.Command {
	var appName string
	var minutes, unlocks int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add screen time for an app to today's totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RecordUsage(ctx, appName, minutes, unlocks)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&appName, "app", "", "app name")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "screen minutes")
	cmd.Flags().IntVar(&unlocks, "unlocks", 0, "unlock count")
	_ = cmd.MarkFlagRequired("app")
	return cmd
}

func usageTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's phone usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Usage(ctx, e.Now())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("App", "Minutes", "Unlocks")
				total := 0
				for _, u := range items {
					tw.AppendRow(table.Row{u.App, u.Minutes, u.Unlocks})
					total += u.Minutes
				}
				tw.AppendFooter(table.Row{"Total", total, ""})
				tw.Render()
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable("ID", "Time", "Type", "Entity", "Payload")
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in focusline.yml in the workspace: assistant options, the inference backend, server and logging settings. Missing keys take built-in defaults.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default focusline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			return printOK(map[string]any{"written": path})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// --- helpers ---

// loadConfig reads the workspace config and applies flag/env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if b := viper.GetString("backend"); b != "" {
		cfg.Inference.Backend = b
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, app.Options{Workspace: viper.GetString("workspace"), Config: cfg})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a.Engine)
	})
}

// parseDue turns today, tomorrow, next-week or a YYYY-MM-DD date into that
// day's midnight.
func parseDue(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return assistant.DueDate{Kind: assistant.DueToday}.Resolve(now), nil
	case "tomorrow":
		return assistant.DueDate{Kind: assistant.DueTomorrow}.Resolve(now), nil
	case "next-week", "next_week":
		return assistant.DueDate{Kind: assistant.DueNextWeek}.Resolve(now), nil
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want today, tomorrow, next-week or YYYY-MM-DD", s)
	}
	return t, nil
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOK(v map[string]any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	fmt.Println("ok")
	return nil
}
