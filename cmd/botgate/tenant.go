package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/botgate/internal/config"
	"github.com/flemzord/botgate/internal/directory"
)

// openStore loads config and opens the tenant database for CLI commands.
func openStore(cmd *cobra.Command) (*directory.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := directory.Open(cfg.Directory.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random value: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Register a new tenant interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var name, token, unit string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Tenant name").
						Description("Unique identifier for this bot, e.g. support-bot").
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("name is required")
							}
							return nil
						}).
						Value(&name),
					huh.NewInput().
						Title("Bot token").
						Description("From @BotFather, e.g. 123456:ABC-DEF...").
						EchoMode(huh.EchoModePassword).
						Validate(func(s string) error {
							if !strings.Contains(s, ":") {
								return fmt.Errorf("token must look like <bot_id>:<secret>")
							}
							return nil
						}).
						Value(&token),
					huh.NewSelect[string]().
						Title("Processing unit").
						Options(huh.NewOption("echo", "echo")).
						Value(&unit),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			webhookKey, err := randomHex(16)
			if err != nil {
				return err
			}
			webhookSecret, err := randomHex(24)
			if err != nil {
				return err
			}

			tenant := &directory.Tenant{
				Name:          strings.TrimSpace(name),
				Token:         strings.TrimSpace(token),
				WebhookKey:    webhookKey,
				WebhookSecret: webhookSecret,
				Unit:          unit,
				Enabled:       true,
			}
			if err := store.Create(cmd.Context(), tenant); err != nil {
				return err
			}

			fmt.Printf("Tenant %q created.\n", tenant.Name)
			fmt.Printf("  Webhook path:   /webhook/%s\n", tenant.WebhookKey)
			fmt.Printf("  Webhook secret: %s\n", tenant.WebhookSecret)

			var register bool
			var baseURL string
			if err := huh.NewConfirm().
				Title("Register the webhook with Telegram now?").
				Value(&register).
				Run(); err != nil {
				return err
			}
			if !register {
				fmt.Println("Run 'botgate webhook set' later to register the webhook.")
				return nil
			}
			if err := huh.NewInput().
				Title("Public HTTPS base URL of this gateway").
				Description("e.g. https://bots.example.com").
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("telegram requires an https:// URL")
					}
					return nil
				}).
				Value(&baseURL).
				Run(); err != nil {
				return err
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			url := strings.TrimSuffix(baseURL, "/") + "/webhook/" + tenant.WebhookKey
			if err := client.Bot(tenant.Token).SetWebhook(cmd.Context(), url, tenant.WebhookSecret, nil); err != nil {
				return err
			}
			fmt.Printf("Webhook registered: %s\n", url)
			return nil
		},
	}
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant management",
	}
	cmd.AddCommand(
		tenantListCmd(),
		tenantEnableCmd("enable", "Enable a tenant", true),
		tenantEnableCmd("disable", "Disable a tenant (deliveries silently dropped)", false),
		tenantDeleteCmd(),
	)
	return cmd
}

func tenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			tenants, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(tenants) == 0 {
				fmt.Println("No tenants registered. Run 'botgate setup' to add one.")
				return nil
			}

			fmt.Printf("%-20s %-10s %-8s %s\n", "NAME", "UNIT", "ENABLED", "WEBHOOK KEY")
			for _, t := range tenants {
				fmt.Printf("%-20s %-10s %-8v %s\n", t.Name, t.Unit, t.Enabled, t.WebhookKey)
			}
			return nil
		},
	}
}

func tenantEnableCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetEnabled(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			fmt.Printf("Tenant %q %s.\n", args[0], map[bool]string{true: "enabled", false: "disabled"}[enabled])
			return nil
		},
	}
}

func tenantDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var confirmed bool
			confirm := huh.NewConfirm().
				Title(fmt.Sprintf("Delete tenant %q?", args[0])).
				Description("Telegram will keep sending updates until the webhook is deleted.").
				Value(&confirmed)
			if err := confirm.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Tenant %q deleted.\n", args[0])
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the tenant database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			// Open already migrates; run once more explicitly so the command
			// reports errors even when nothing else touches the store.
			if err := store.Migrate(context.Background()); err != nil {
				return err
			}
			fmt.Printf("Database %s is up to date.\n", cfg.Directory.Path)
			return nil
		},
	}
}
