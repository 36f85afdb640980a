package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/config"
	"github.com/flemzord/botgate/internal/logging"
)

// newAPIClient builds an outbound client for CLI one-shots.
func newAPIClient(cfg *config.Config) (*botapi.Client, error) {
	logger, _, err := logging.New(cfg.Log, nil)
	if err != nil {
		return nil, err
	}
	return botapi.NewClient(cfg.API, logger, nil), nil
}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Webhook registration with Telegram",
	}
	cmd.AddCommand(webhookSetCmd(), webhookDeleteCmd(), webhookInfoCmd())
	return cmd
}

func webhookSetCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "set <tenant>",
		Short: "Register the tenant's webhook with Telegram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			tenant, err := store.FindByName(cmd.Context(), args[0])
			if err != nil {
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
			fmt.Printf("Webhook for %q set to %s\n", tenant.Name, url)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "Public HTTPS base URL of this gateway (required)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func webhookDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tenant>",
		Short: "Delete the tenant's webhook from Telegram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			tenant, err := store.FindByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			if err := client.Bot(tenant.Token).DeleteWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Webhook for %q deleted.\n", tenant.Name)
			return nil
		},
	}
}

func webhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <tenant>",
		Short: "Show the tenant's webhook state as reported by Telegram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			tenant, err := store.FindByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			info, err := client.Bot(tenant.Token).GetWebhookInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("URL:             %s\n", info.URL)
			fmt.Printf("Pending updates: %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Printf("Last error:      %s (%s)\n",
					info.LastErrorMessage,
					time.Unix(info.LastErrorDate, 0).Format(time.RFC3339))
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check every enabled tenant's bot credential with getMe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			tenants, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			failures := 0
			for _, tenant := range tenants {
				if !tenant.Enabled {
					fmt.Printf("%-20s disabled\n", tenant.Name)
					continue
				}
				user, err := client.Bot(tenant.Token).GetMe(cmd.Context())
				if err != nil {
					failures++
					fmt.Printf("%-20s FAIL: %v\n", tenant.Name, err)
					continue
				}
				fmt.Printf("%-20s ok (@%s)\n", tenant.Name, user.Username)
			}
			if failures > 0 {
				return fmt.Errorf("%d tenant(s) failing", failures)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show counters from a running gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, addr+"/status", nil)
			if err != nil {
				return err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gateway returned %s", resp.Status)
			}

			var status struct {
				Uptime  float64 `json:"uptime_seconds"`
				Tenants int     `json:"tenants"`
				Metrics struct {
					Deliveries       int64 `json:"deliveries"`
					Duplicates       int64 `json:"duplicates"`
					DispatchFailures int64 `json:"dispatch_failures"`
					AuthFailures     int64 `json:"auth_failures"`
					OutboundCalls    int64 `json:"outbound_calls"`
				} `json:"metrics"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return err
			}

			fmt.Printf("Uptime:            %s\n", time.Duration(status.Uptime*float64(time.Second)).Truncate(time.Second))
			fmt.Printf("Tenants:           %d\n", status.Tenants)
			fmt.Printf("Deliveries:        %d\n", status.Metrics.Deliveries)
			fmt.Printf("Duplicates:        %d\n", status.Metrics.Duplicates)
			fmt.Printf("Dispatch failures: %d\n", status.Metrics.DispatchFailures)
			fmt.Printf("Auth failures:     %d\n", status.Metrics.AuthFailures)
			fmt.Printf("Outbound calls:    %d\n", status.Metrics.OutboundCalls)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "Gateway base address")
	cmd.Flags().StringVar(&token, "token", "", "Admin bearer token")
	return cmd
}
