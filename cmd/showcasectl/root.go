package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type cli struct {
	base    string
	natsURL string
	verbose bool

	out    io.Writer
	pretty bool
	logger *zap.Logger
	client *http.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, client: &http.Client{Timeout: 10 * time.Second}}

	root := &cobra.Command{
		Use:          "showcasectl",
		Short:        "Talk to a running showcase server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&c.base, "base", envOr("SHOWCASE_URL", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&c.natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS URL for watch")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		c.pingCmd(),
		c.serverInfoCmd(),
		c.revalidateCmd(),
		c.watchCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *cli) setup() error {
	level := zapcore.WarnLevel
	if c.verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	c.logger = logger

	if f, ok := c.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.pretty = true
	}
	return nil
}

// printJSON writes raw JSON indented on a terminal and compacted otherwise.
func (c *cli) printJSON(raw []byte) error {
	var buf bytes.Buffer
	var err error
	if c.pretty {
		err = json.Indent(&buf, raw, "", "  ")
	} else {
		err = json.Compact(&buf, raw)
	}
	if err != nil {
		// not JSON, print as is
		_, werr := fmt.Fprintln(c.out, string(bytes.TrimSpace(raw)))
		return werr
	}
	buf.WriteByte('\n')
	_, err = c.out.Write(buf.Bytes())
	return err
}

func (c *cli) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	return resp.StatusCode, body, nil
}
