package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"routineTracker/internal/app"
	"routineTracker/internal/config"
	"routineTracker/internal/logger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli держит собственный экземпляр viper, чтобы команды можно было собирать заново в тестах
type cli struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "routinectl",
		Short: "Операторский инструмент трекера регулярных задач",
		Long: `routinectl работает с тем же хранилищем, что и API:
- migrate применяет схему;
- status показывает статус назначения в текущем периоде;
- complete записывает выполнение от имени исполнителя;
- report строит отчёты по исполнителям и по периодам;
- user и settings правят справочник пользователей и настройки.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			if c.v.GetBool("verbose") {
				return logger.Init(true)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	c.v.SetEnvPrefix("ROUTINE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.PersistentFlags().StringP("config", "c", "config.yml", "путь к config.yml")
	root.PersistentFlags().Bool("json", false, "вывод в JSON")
	root.PersistentFlags().BoolP("verbose", "v", false, "писать журнал в stderr")
	_ = c.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = c.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.assignCmd())
	root.AddCommand(c.statusCmd())
	root.AddCommand(c.completeCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.userCmd())
	root.AddCommand(c.settingsCmd())
	return root
}

func (c *cli) loadConfig() (*config.Config, error) {
	return config.Load(c.v.GetString("config"))
}

// withStore открывает хранилище из конфига на время одной команды
func (c *cli) withStore(ctx context.Context, fn func(context.Context, *config.Config, app.Storage) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, cfg, store)
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.SetStyle(table.StyleLight)
	return tw
}

// parseDate принимает YYYY-MM-DD или RFC3339; для верхней границы дата означает конец дня
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("ожидается YYYY-MM-DD или RFC3339, получено %q", raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}
