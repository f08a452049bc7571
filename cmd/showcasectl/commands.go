package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	natsclient "github.com/devghori1264/aerophoenix/showcase/internal/nats"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, c.base+"/ping", nil)
			if err != nil {
				return err
			}
			status, body, err := c.do(req)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("ping: unexpected status %d", status)
			}
			return c.printJSON(body)
		},
	}
}

func (c *cli) serverInfoCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "server-info",
		Short: "Fetch /api/server-info",
		Long: "Fetch /api/server-info and print each envelope. With --count greater than one,\n" +
			"report whether the server id stayed the same and every request id was new.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			var servers []string
			requests := make(map[string]bool, count)
			for i := 0; i < count; i++ {
				req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, c.base+"/api/server-info", nil)
				if err != nil {
					return err
				}
				status, body, err := c.do(req)
				if err != nil {
					return err
				}
				if err := c.printJSON(body); err != nil {
					return err
				}
				if status != http.StatusOK {
					return fmt.Errorf("server-info: status %d", status)
				}
				var env models.ServerInfoResponse
				if err := json.Unmarshal(body, &env); err != nil {
					return fmt.Errorf("decode: %w", err)
				}
				servers = append(servers, env.Data.ServerID)
				requests[env.Data.RequestID] = true
			}
			if count == 1 {
				return nil
			}
			stable := true
			for _, id := range servers[1:] {
				if id != servers[0] {
					stable = false
				}
			}
			fmt.Fprintf(c.out, "serverId stable: %t\n", stable)
			fmt.Fprintf(c.out, "requestId unique: %t\n", len(requests) == count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of requests")
	return cmd
}

func (c *cli) revalidateCmd() *cobra.Command {
	var path, token string
	var purge bool
	cmd := &cobra.Command{
		Use:   "revalidate",
		Short: "Regenerate a cached page now, or drop it with --purge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := c.base + "/api/revalidate?path=" + url.QueryEscape(path)
			method := http.MethodPost
			if purge {
				method = http.MethodDelete
			}
			req, err := http.NewRequestWithContext(cmd.Context(), method, u, nil)
			if err != nil {
				return err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			status, body, err := c.do(req)
			if err != nil {
				return err
			}
			if err := c.printJSON(body); err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("revalidate %s: status %d", path, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "page path, e.g. /isr-demo/1")
	cmd.Flags().StringVar(&token, "token", os.Getenv("REVALIDATE_TOKEN"), "bearer token")
	cmd.Flags().BoolVar(&purge, "purge", false, "drop the stored snapshot instead of regenerating it")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print page regeneration events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := nats.Connect(c.natsURL, nats.Name("showcasectl"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Drain()

			msgs := make(chan *nats.Msg, 64)
			sub, err := nc.ChanSubscribe(natsclient.SubjectRevalidated, msgs)
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer sub.Unsubscribe()
			c.logger.Info("watching", zap.String("subject", natsclient.SubjectRevalidated))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.printEvents(ctx, msgs, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after this many events (0 = forever)")
	return cmd
}

func (c *cli) printEvents(ctx context.Context, msgs <-chan *nats.Msg, limit int) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-msgs:
			var ev models.RevalidationEvent
			if err := json.Unmarshal(m.Data, &ev); err != nil {
				c.logger.Warn("bad event", zap.Error(err))
				continue
			}
			fmt.Fprintf(c.out, "%s %-16s %-10s %4dms server=%s\n",
				ev.GeneratedAt.Format("15:04:05.000"), ev.Key, ev.Reason, ev.DurationMs, ev.ServerID)
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		}
	}
}
