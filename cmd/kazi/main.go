package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kaziflow/internal/advisor"
	"kaziflow/internal/billing"
	"kaziflow/internal/catalog"
	"kaziflow/internal/config"
	"kaziflow/internal/db"
	"kaziflow/internal/domain"
	"kaziflow/internal/engine"
	"kaziflow/internal/migrate"
	"kaziflow/internal/server"
	"kaziflow/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "kazi",
	Short: "KaziFlow CLI",
	Long: `KaziFlow tracks one interior design project through a fixed nine-stage workflow.
Core concepts:
- Workspace: your .kaziflow directory holding the database; kaziflow.yml holds config.
- Workflow: nine ordered stages from Client Onboarding to Handover. Designers see
  all nine; clients see a curated subset.
- Live project: details, completed stages, gallery and suppliers for the project
  currently on the desk. Resets when the process restarts.
- Stage notes: private designer notes per stage, kept across restarts (paid tiers).
- Portfolio: archived snapshots of finished projects, loadable back onto the desk.
- Subscription: FREE, PRO or STUDIO; paid tiers unlock private notes, unlimited
  archives and unrestricted AI proposals. Checkout is simulated.
- Advisor: AI consultant for stage advice and full project proposals.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := loadWorkspaceEnv(workspace); err != nil {
			return err
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
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("KAZIFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("email", "", "acting user email (defaults to stored login)")
	rootCmd.PersistentFlags().String("name", "", "acting user name")
	rootCmd.PersistentFlags().String("role", "", "acting role (DESIGNER or CLIENT)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("email", rootCmd.PersistentFlags().Lookup("email"))
	_ = viper.BindPFlag("name", rootCmd.PersistentFlags().Lookup("name"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(photoCmd())
	rootCmd.AddCommand(supplierCmd())
	rootCmd.AddCommand(materialsCmd())
	rootCmd.AddCommand(portfolioCmd())
	rootCmd.AddCommand(subscriptionCmd())
	rootCmd.AddCommand(adviseCmd())
	rootCmd.AddCommand(proposeCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default kaziflow.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func loginCmd() *cobra.Command {
	var email, name, role string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the acting identity for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			r := domain.UserRole(strings.ToUpper(strings.TrimSpace(role)))
			if _, err := buildActor(cfg, email, name, r); err != nil {
				return err
			}
			envPath := filepath.Join(workspace, ".env")
			if err := setEnvValue(envPath, "KAZIFLOW_EMAIL", email); err != nil {
				return err
			}
			if err := setEnvValue(envPath, "KAZIFLOW_NAME", name); err != nil {
				return err
			}
			if err := setEnvValue(envPath, "KAZIFLOW_ROLE", string(r)); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s) in %s\n", name, r, envPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "DESIGNER", "DESIGNER or CLIENT")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			envPath := filepath.Join(viper.GetString("workspace"), ".env")
			for _, key := range []string{"KAZIFLOW_EMAIL", "KAZIFLOW_NAME", "KAZIFLOW_ROLE"} {
				if err := setEnvValue(envPath, key, ""); err != nil {
					return err
				}
			}
			fmt.Println("Logged out")
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the live project at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				state := e.State()
				sub := e.Subscription()
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"project":      state.Details,
						"progress":     state.Progress,
						"active_stage": state.ActiveStage,
						"subscription": sub,
					})
				}
				fmt.Printf("Project: %s for %s (%s)\n", state.Details.Name, state.Details.Client, state.Details.Status)
				fmt.Printf("Location: %s\n", state.Details.Location)
				fmt.Printf("Progress: %d%% (%d of %d stages)\n", state.Progress, len(state.Completed), catalog.Len())
				fmt.Printf("Active stage: %s\n", state.ActiveStage)
				fmt.Printf("Subscription: %s\n", sub.Tier)
				return nil
			})
		},
	}
	return cmd
}

func stageCmd() *cobra.Command {
	stage := &cobra.Command{
		Use:   "stage",
		Short: "Work the nine-stage workflow",
		Long:  "Stages run from Client Onboarding to Handover & Aftercare. Designers can toggle completion in any order; clients only see the curated subset.",
	}
	stage.AddCommand(stageListCmd())
	stage.AddCommand(stageShowCmd())
	stage.AddCommand(stageCompleteCmd())
	stage.AddCommand(stageFocusCmd())
	stage.AddCommand(noteCmd())
	return stage
}

func stageListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stages for the acting role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				stages := catalog.VisibleStages(actor.Role)
				if viper.GetBool("json") {
					return printJSON(stages)
				}
				active := e.ActiveStage()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "ID", "Title", "Done", "Active"})
				for i, s := range stages {
					done := ""
					if e.IsStageComplete(s.ID) {
						done = "x"
					}
					focus := ""
					if s.ID == active {
						focus = "*"
					}
					tw.AppendRow(table.Row{i + 1, s.ID, s.Title, done, focus})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func stageShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				s, ok := catalog.Get(id)
				if !ok {
					return engine.ErrUnknownStage
				}
				if actor.Role == domain.RoleClient && !catalog.ClientVisible(id) {
					return engine.RoleError{Role: actor.Role, Action: "view stage " + id}
				}
				number, total := e.StageNumber(actor.Role, id)
				out := map[string]any{
					"stage":    s,
					"number":   number,
					"total":    total,
					"complete": e.IsStageComplete(id),
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Stage %d/%d: %s\n", number, total, s.Title)
				fmt.Printf("%s\n\n", s.Description)
				fmt.Println("Tasks:")
				for _, t := range s.Tasks {
					fmt.Printf("  - %s\n", t)
				}
				fmt.Println("Deliverables:")
				for _, d := range s.Deliverables {
					fmt.Printf("  - %s: %s\n", d.Title, d.Description)
				}
				if e.IsStageComplete(id) {
					fmt.Println("Status: complete")
				}
				return nil
			})
		},
	}
	return cmd
}

func stageCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Toggle stage completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				complete, err := e.ToggleStageComplete(ctx, actor, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"stage_id": id, "complete": complete, "progress": e.Progress()})
				}
				state := "reopened"
				if complete {
					state = "complete"
				}
				fmt.Printf("Stage %s %s. Progress %d%%\n", id, state, e.Progress())
				return nil
			})
		},
	}
	return cmd
}

func stageFocusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus <id>",
		Short: "Move focus to a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				if err := e.SetActiveStage(actor.Role, id); err != nil {
					return err
				}
				fmt.Printf("Focused on %s\n", id)
				return nil
			})
		},
	}
	return cmd
}

func noteCmd() *cobra.Command {
	note := &cobra.Command{
		Use:   "note",
		Short: "Private stage notes (paid tiers)",
	}
	note.AddCommand(noteGetCmd())
	note.AddCommand(noteSetCmd())
	return note
}

func noteGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <stage-id>",
		Short: "Read the note for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				if actor.Role != domain.RoleDesigner {
					return engine.RoleError{Role: actor.Role, Action: "read stage notes"}
				}
				if catalog.Index(id) < 0 {
					return engine.ErrUnknownStage
				}
				if !e.Gate().CanUsePrivateNotes() {
					return fmt.Errorf("private notes require a PRO or STUDIO subscription (current: %s)", e.Subscription().Tier)
				}
				body, _ := e.Note(id)
				if viper.GetBool("json") {
					return printJSON(map[string]string{"stage_id": id, "body": body})
				}
				fmt.Println(body)
				return nil
			})
		},
	}
	return cmd
}

func noteSetCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "set <stage-id>",
		Short: "Save the note for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				if !e.Gate().CanUsePrivateNotes() {
					return fmt.Errorf("private notes require a PRO or STUDIO subscription (current: %s)", e.Subscription().Tier)
				}
				if err := e.SetStageNote(ctx, actor, id, body); err != nil {
					return err
				}
				fmt.Printf("Saved note for %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "note body (HTML allowed)")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{
		Use:   "project",
		Short: "Manage the live project",
	}
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectSetCmd())
	prj.AddCommand(projectNewCmd())
	return prj
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the live project state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return printJSONOrTable(e.State())
			})
		},
	}
	return cmd
}

func projectSetCmd() *cobra.Command {
	var name, client, location, status string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update project details",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				d := e.State().Details
				if cmd.Flags().Changed("name") {
					d.Name = name
				}
				if cmd.Flags().Changed("client") {
					d.Client = client
				}
				if cmd.Flags().Changed("location") {
					d.Location = location
				}
				if cmd.Flags().Changed("status") {
					d.Status = domain.ProjectStatus(status)
				}
				if err := e.SaveProjectDetails(ctx, actor, d); err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&status, "status", "", "Planning, In Progress, On Hold or Completed")
	return cmd
}

func projectNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Reset the desk to a blank project",
		Long:  "Clears completed stages, gallery and notes, reseeds the supplier directory and moves focus back to onboarding. Archives are untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				state, err := e.StartNewProject(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(state)
			})
		},
	}
	return cmd
}

func photoCmd() *cobra.Command {
	photo := &cobra.Command{
		Use:   "photo",
		Short: "Project gallery",
	}
	photo.AddCommand(photoListCmd())
	photo.AddCommand(photoAddCmd())
	return photo
}

func photoListCmd() *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gallery photos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				photos := e.State().Photos
				if tag != "" && tag != "All" {
					var filtered []domain.ProjectPhoto
					for _, p := range photos {
						if p.Tag == tag {
							filtered = append(filtered, p)
						}
					}
					photos = filtered
				}
				if viper.GetBool("json") {
					return printJSON(photos)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Tag", "Description"})
				for _, p := range photos {
					tw.AppendRow(table.Row{p.Date, p.Tag, p.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	return cmd
}

func photoAddCmd() *cobra.Command {
	var url, description, tag string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a photo to the gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				p, err := e.AddPhoto(ctx, actor, url, description, tag)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "image URL")
	cmd.Flags().StringVar(&description, "description", "", "caption")
	cmd.Flags().StringVar(&tag, "tag", "", "tag (defaults to General)")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func supplierCmd() *cobra.Command {
	sup := &cobra.Command{
		Use:   "supplier",
		Short: "Supplier directory",
	}
	sup.AddCommand(supplierListCmd())
	sup.AddCommand(supplierAddCmd())
	return sup
}

func supplierListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suppliers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				suppliers := e.State().Suppliers
				if viper.GetBool("json") {
					return printJSON(suppliers)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Name", "Contact", "Products", "Rating", "Location"})
				for _, s := range suppliers {
					tw.AppendRow(table.Row{s.Name, s.Contact, strings.Join(s.Products, ", "), s.Rating, s.Location})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func supplierAddCmd() *cobra.Command {
	var s domain.Supplier
	var products []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a supplier",
		RunE: func(cmd *cobra.Command, args []string) error {
			s.Products = products
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				res, err := e.AddSupplier(ctx, actor, s)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&s.Name, "name", "", "supplier name")
	cmd.Flags().StringVar(&s.Contact, "contact", "", "phone or website")
	cmd.Flags().StringArrayVar(&products, "product", []string{}, "product category (repeatable): "+strings.Join(catalog.ProductCategories(), ", "))
	cmd.Flags().IntVar(&s.Rating, "rating", 3, "rating 1-5")
	cmd.Flags().StringVar(&s.Location, "location", "", "location, e.g. "+strings.Join(catalog.Locations(), ", "))
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("contact")
	return cmd
}

func materialsCmd() *cobra.Command {
	var search, category string
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "Browse the materials & finishes guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := catalog.Materials(search, category)
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Name", "Category", "Price", "Unit", "Application"})
			for _, m := range items {
				tw.AppendRow(table.Row{m.Name, m.Category, m.Price, m.Unit, m.Application})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "name substring")
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	return cmd
}

func portfolioCmd() *cobra.Command {
	pf := &cobra.Command{
		Use:   "portfolio",
		Short: "Archived project snapshots",
	}
	pf.AddCommand(portfolioListCmd())
	pf.AddCommand(portfolioArchiveCmd())
	pf.AddCommand(portfolioShowCmd())
	pf.AddCommand(portfolioLoadCmd())
	pf.AddCommand(portfolioDeleteCmd())
	return pf
}

func portfolioListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Archives(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Client", "Archived"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Details.Name, a.Details.Client, a.ArchivedDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func portfolioArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Snapshot the live project into the portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				a, err := e.ArchiveProject(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Archived %q as %s\n", a.Details.Name, a.ID)
				return nil
			})
		},
	}
	return cmd
}

func portfolioShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.Repo.GetArchive(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func portfolioLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Load an archive onto the desk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				state, err := e.LoadProject(ctx, actor, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(state)
			})
		},
	}
	return cmd
}

func portfolioDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				if err := e.DeleteArchive(ctx, actor, id); err != nil {
					return err
				}
				fmt.Printf("Deleted archive %s\n", id)
				return nil
			})
		},
	}
	return cmd
}

func subscriptionCmd() *cobra.Command {
	sub := &cobra.Command{
		Use:   "subscription",
		Short: "Subscription and billing",
	}
	sub.AddCommand(subscriptionShowCmd())
	sub.AddCommand(subscriptionPlansCmd())
	sub.AddCommand(subscriptionUpgradeCmd())
	sub.AddCommand(subscriptionAutoRenewCmd())
	return sub
}

func subscriptionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return printJSONOrTable(e.Subscription())
			})
		},
	}
	return cmd
}

func subscriptionPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List available plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg.Billing.Plans)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Tier", "Name", "KES/mo", "Features"})
			for _, p := range cfg.Billing.Plans {
				name := p.Name
				if p.Recommended {
					name += " (recommended)"
				}
				tw.AppendRow(table.Row{p.Tier, name, p.PriceKES, strings.Join(p.Features, "; ")})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func subscriptionUpgradeCmd() *cobra.Command {
	var tier, method, phone string
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade through the simulated checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				t := domain.SubscriptionTier(strings.ToUpper(tier))
				plan, ok := e.Config.Plan(string(t))
				if !ok {
					return fmt.Errorf("unknown plan tier %s", tier)
				}
				proc := billing.NewSimulated(e.Config.Billing.ProcessingDelay, zerolog.Nop())
				ref, err := proc.Initiate(ctx, billing.Request{
					Tier:   t,
					Method: method,
					Phone:  phone,
					Amount: plan.PriceKES,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Processing %s payment of KES %s...\n", method, plan.PriceKES)
				receipt, err := proc.Await(ctx, ref)
				if err != nil {
					return err
				}
				sub, err := e.UpgradeSubscription(ctx, actor, t)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"subscription": sub, "receipt": receipt})
				}
				fmt.Printf("Upgraded to %s until %s (receipt %s)\n", sub.Tier, sub.ExpiresAt, receipt.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "PRO or STUDIO")
	cmd.Flags().StringVar(&method, "method", billing.MethodMpesa, "mpesa or card")
	cmd.Flags().StringVar(&phone, "phone", "", "M-Pesa phone number")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

func subscriptionAutoRenewCmd() *cobra.Command {
	var on bool
	cmd := &cobra.Command{
		Use:   "auto-renew",
		Short: "Set the auto-renew flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				sub, err := e.SetAutoRenew(ctx, actor, on)
				if err != nil {
					return err
				}
				return printJSONOrTable(sub)
			})
		},
	}
	cmd.Flags().BoolVar(&on, "on", true, "enable auto-renew")
	return cmd
}

func adviseCmd() *cobra.Command {
	var stageID, question string
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Ask the AI consultant about a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if stageID == "" {
					stageID = e.ActiveStage()
				}
				s, ok := catalog.Get(stageID)
				if !ok {
					return engine.ErrUnknownStage
				}
				adv := newAdvisor(e.Config)
				fmt.Println(adv.Advice(ctx, s.Title, question))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stageID, "stage", "", "stage id (defaults to the focused stage)")
	cmd.Flags().StringVar(&question, "question", "", "your question")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func proposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Draft a full project proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActorEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, actor domain.User) error {
				if actor.Role != domain.RoleDesigner {
					return engine.RoleError{Role: actor.Role, Action: "generate proposals"}
				}
				if err := e.Gate().CheckProposal(e.CompletedCount()); err != nil {
					return err
				}
				adv := newAdvisor(e.Config)
				fmt.Println(adv.Proposal(ctx, e.State().Details))
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			secret := os.Getenv("KAZIFLOW_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("KAZIFLOW_JWT_SECRET is required for bearer auth")
			}
			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

			e := engine.New(conn, cfg)
			if err := e.Hydrate(cmd.Context()); err != nil {
				return err
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				Sessions: session.New(conn, cfg, secret),
				Billing:  billing.NewSimulated(cfg.Billing.ProcessingDelay, logger),
				Advisor:  newAdvisor(cfg),
				BasePath: basePath,
				Logger:   logger,
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
			fmt.Printf("Serving KaziFlow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// --- helpers ---

func newAdvisor(cfg *config.Config) advisor.Advisor {
	timeout := cfg.Advisor.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return advisor.New(cfg.Advisor.BaseURL, os.Getenv(cfg.Advisor.APIKeyEnv),
		advisor.WithModels(cfg.Advisor.AdviceModel, cfg.Advisor.ProposalModel),
		advisor.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func buildActor(cfg *config.Config, email, name string, role domain.UserRole) (domain.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return domain.User{}, fmt.Errorf("email and name are required; run kazi login or pass --email/--name")
	}
	switch role {
	case domain.RoleDesigner, domain.RoleClient:
	default:
		return domain.User{}, fmt.Errorf("role must be DESIGNER or CLIENT")
	}
	if !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("malformed email %q", email)
	}
	if role == domain.RoleDesigner && !cfg.DesignerEmailAllowed(email) {
		return domain.User{}, fmt.Errorf("designer accounts require a company email (%s)", strings.Join(cfg.Company.DesignerDomains, ", "))
	}
	return domain.User{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(email))).String(),
		Email: email,
		Name:  name,
		Role:  role,
	}, nil
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	if err := e.Hydrate(ctx); err != nil {
		return err
	}
	return fn(ctx, e)
}

func withActorEngine(ctx context.Context, fn func(context.Context, *engine.Engine, domain.User) error) error {
	return withEngine(ctx, func(ctx context.Context, e *engine.Engine) error {
		role := domain.UserRole(strings.ToUpper(strings.TrimSpace(viper.GetString("role"))))
		if role == "" {
			role = domain.RoleDesigner
		}
		actor, err := buildActor(e.Config, viper.GetString("email"), viper.GetString("name"), role)
		if err != nil {
			return err
		}
		return fn(ctx, e, actor)
	})
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

// loadWorkspaceEnv feeds the workspace .env (written by kazi login) into
// viper as defaults, so process env and flags still take precedence.
func loadWorkspaceEnv(workspace string) error {
	f, err := os.Open(filepath.Join(workspace, ".env"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.HasPrefix(key, "KAZIFLOW_") || value == "" {
			continue
		}
		viper.SetDefault(strings.ToLower(strings.TrimPrefix(key, "KAZIFLOW_")), value)
	}
	return scanner.Err()
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
