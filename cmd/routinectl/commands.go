package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"routineTracker/internal/app"
	"routineTracker/internal/config"
	"routineTracker/internal/models/assignment"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// оператор действует с правами администратора
var operator = assignment.Actor{ID: uuid.Nil, Role: assignment.RoleAdmin}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции к настроенному хранилищу",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "migrations applied (%s)\n", cfg.Repository.Type)
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <assignment-id>",
		Short: "Статус назначения в текущем периоде",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("неверный id назначения: %w", err)
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				services := app.NewServices(store, cfg)
				item, err := services.Assignments.GetAssignment(ctx, operator, id, time.Now())
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(item)
				}

				tw := c.newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Schedule", "Status", "Period", "Due", "Completed", "On time"})
				onTime := "-"
				if item.Status.IsOnTime != nil {
					onTime = fmt.Sprintf("%t", *item.Status.IsOnTime)
				}
				tw.AppendRow(table.Row{
					item.Assignment.UUID,
					item.Assignment.Title,
					item.Assignment.ScheduleKind,
					item.Status.Status,
					formatTime(item.Status.PeriodStart) + " .. " + formatTime(item.Status.PeriodEnd),
					formatTime(item.Status.DueDate),
					formatTime(item.Status.CompletedAt),
					onTime,
				})
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) completeCmd() *cobra.Command {
	var as, note string
	cmd := &cobra.Command{
		Use:   "complete <assignment-id>",
		Short: "Записать выполнение за текущий период",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("неверный id назначения: %w", err)
			}
			submitter, err := uuid.Parse(as)
			if err != nil {
				return fmt.Errorf("неверный --as: %w", err)
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				services := app.NewServices(store, cfg)
				completion, err := services.Completions.Complete(ctx, id, submitter, note, time.Now())
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(completion)
				}

				tw := c.newTable()
				tw.AppendHeader(table.Row{"Completion", "Assignment", "Period start", "Period end", "On time"})
				tw.AppendRow(table.Row{
					completion.UUID,
					completion.AssignmentTitle,
					completion.PeriodStart.Format(time.DateTime),
					completion.PeriodEnd.Format(time.DateTime),
					completion.IsOnTime,
				})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "id исполнителя")
	cmd.Flags().StringVar(&note, "note", "", "комментарий к выполнению")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Отчёты по выполнениям",
	}
	report.AddCommand(c.reportPerformanceCmd())
	report.AddCommand(c.reportSummaryCmd())
	return report
}

func (c *cli) reportPerformanceCmd() *cobra.Command {
	var fromRaw, toRaw string
	var users []string
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Доля выполнений в срок по исполнителям",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := assignment.ReportFilter{}
			var err error
			if filter.From, err = parseDate(fromRaw, false); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filter.To, err = parseDate(toRaw, true); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			for _, raw := range users {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("--user %q: %w", raw, err)
				}
				filter.UserIDs = append(filter.UserIDs, id)
			}

			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				services := app.NewServices(store, cfg)
				report, err := services.Reports.Report(ctx, filter)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(report)
				}

				tw := c.newTable()
				tw.AppendHeader(table.Row{"User", "Assignments", "Completions", "On time", "Late", "Rate %"})
				for _, u := range report.Users {
					name := u.UserName
					if name == "" {
						name = u.UserID.String()
					}
					tw.AppendRow(table.Row{name, u.TotalAssignments, u.TotalCompletions, u.OnTime, u.Late, u.OnTimeRate})
				}
				o := report.Overall
				tw.AppendFooter(table.Row{
					fmt.Sprintf("%d users", o.TotalUsers),
					o.TotalAssignments, o.TotalCompletions, o.OnTime, o.Late, o.AverageOnTimeRate,
				})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fromRaw, "from", "", "начало диапазона (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toRaw, "to", "", "конец диапазона (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&users, "user", []string{}, "id пользователя (можно повторять)")
	return cmd
}

func (c *cli) reportSummaryCmd() *cobra.Command {
	var fromRaw, toRaw, period string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Сводка выполнений по неделям или месяцам",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(fromRaw, false)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseDate(toRaw, true)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				services := app.NewServices(store, cfg)
				buckets, err := services.Reports.SummaryByPeriod(ctx, assignment.BucketKind(period), from, to)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(buckets)
				}

				tw := c.newTable()
				tw.AppendHeader(table.Row{"Period", "Completions", "On time", "Late", "Users", "Rate %"})
				for _, b := range buckets {
					tw.AppendRow(table.Row{b.Key, b.TotalCompletions, b.OnTimeCompletions, b.LateCompletions, b.ActiveUsers, b.OnTimeRate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(assignment.BucketWeekly), "weekly или monthly")
	cmd.Flags().StringVar(&fromRaw, "from", "", "начало диапазона (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toRaw, "to", "", "конец диапазона (YYYY-MM-DD)")
	return cmd
}

func (c *cli) userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Справочник пользователей",
	}
	user.AddCommand(c.userAddCmd())
	user.AddCommand(c.userListCmd())
	return user
}

func (c *cli) userAddCmd() *cobra.Command {
	var idRaw, name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Добавить или обновить пользователя",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := &assignment.User{Name: name, Role: assignment.Role(role), IsActive: true}
			if u.Role != assignment.RoleAdmin && u.Role != assignment.RoleUser {
				return fmt.Errorf("неизвестная роль %q", role)
			}
			if idRaw == "" {
				u.UUID = uuid.New()
			} else {
				id, err := uuid.Parse(idRaw)
				if err != nil {
					return fmt.Errorf("--id: %w", err)
				}
				u.UUID = id
			}

			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				if err := store.SaveUser(ctx, u); err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(u)
				}
				fmt.Fprintln(c.out, u.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&idRaw, "id", "", "id пользователя (по умолчанию новый)")
	cmd.Flags().StringVar(&name, "name", "", "имя")
	cmd.Flags().StringVar(&role, "role", string(assignment.RoleUser), "admin или user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Активные пользователи",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				users, err := store.ListUsers(ctx)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(users)
				}
				sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })

				tw := c.newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Role"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.UUID, u.Name, u.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) settingsCmd() *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Настройки, которые сервис читает во время работы",
	}
	settings.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Записать настройку (например TASK_COMPLETION_MIN_CHARS)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				if err := store.Set(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s=%s\n", args[0], args[1])
				return nil
			})
		},
	})
	settings.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Прочитать настройку",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				value, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, value)
				return nil
			})
		},
	})
	return settings
}

func (c *cli) assignCmd() *cobra.Command {
	var title, schedule, assigneeRaw, byRaw, startRaw, endRaw string
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Создать назначение от имени администратора",
		RunE: func(cmd *cobra.Command, args []string) error {
			assignee, err := uuid.Parse(assigneeRaw)
			if err != nil {
				return fmt.Errorf("--assignee: %w", err)
			}
			actor := operator
			if byRaw != "" {
				if actor.ID, err = uuid.Parse(byRaw); err != nil {
					return fmt.Errorf("--by: %w", err)
				}
			}
			in := assignment.Input{
				Title:        title,
				ScheduleKind: assignment.ScheduleKind(schedule),
				AssigneeID:   assignee,
			}
			if startRaw != "" {
				start, err := parseDate(startRaw, false)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				in.StartDate = &start
			}
			if endRaw != "" {
				end, err := parseDate(endRaw, false)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				in.EndDate = &end
			}

			return c.withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, store app.Storage) error {
				services := app.NewServices(store, cfg)
				created, err := services.Assignments.CreateAssignment(ctx, actor, in, time.Now())
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(created)
				}
				fmt.Fprintln(c.out, created.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "название")
	cmd.Flags().StringVar(&schedule, "schedule", string(assignment.ScheduleDaily), "DAILY, WEEKLY, MONTHLY, DATE_RANGE, SPECIFIC_DATE или AS_PER_REQUIREMENT")
	cmd.Flags().StringVar(&assigneeRaw, "assignee", "", "id исполнителя")
	cmd.Flags().StringVar(&byRaw, "by", "", "id администратора, от чьего имени создаётся назначение")
	cmd.Flags().StringVar(&startRaw, "start", "", "дата начала (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endRaw, "end", "", "дата окончания (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("assignee")
	return cmd
}
