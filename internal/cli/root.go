// Package cli implements auditctl, the terminal client of the audit dashboard.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// envDefaults seeds flag defaults from AUDITCTL_* variables.
type envDefaults struct {
	BaseURL     string        `envconfig:"BASE_URL"`
	ConfigURL   string        `envconfig:"CONFIG_URL"`
	Credentials string        `envconfig:"CREDENTIALS"`
	FetchSize   int           `envconfig:"FETCH_SIZE" default:"30"`
	Timezone    string        `envconfig:"TIMEZONE" default:"Asia/Jakarta"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

type options struct {
	baseURL     string
	configURL   string
	credentials string
	fetchSize   int
	timezone    string
	timeout     time.Duration
	jsonOutput  bool
	verbose     bool
}

// NewRootCommand builds the auditctl command tree.
func NewRootCommand() *cobra.Command {
	var env envDefaults
	if err := envconfig.Process("auditctl", &env); err != nil {
		env = envDefaults{FetchSize: 30, Timezone: "Asia/Jakarta", Timeout: 30 * time.Second}
	}
	opts := &options{}

	root := &cobra.Command{
		Use:   "auditctl",
		Short: "auditctl - browse and download inspection audit documents",
		Long: `auditctl signs in to the inspection API, aggregates every audit record
and lets you search, page through and download the generated documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", env.BaseURL, "inspection API base URL")
	flags.StringVar(&opts.configURL, "config-url", env.ConfigURL, "URL serving {\"baseUrl\": ...}; used when --base-url is empty")
	flags.StringVar(&opts.credentials, "credentials", env.Credentials, "credential file (default: user config dir)")
	flags.IntVar(&opts.fetchSize, "fetch-size", env.FetchSize, "records requested per API page")
	flags.StringVar(&opts.timezone, "timezone", env.Timezone, "timezone used to display dates")
	flags.DurationVar(&opts.timeout, "timeout", env.Timeout, "timeout for each API request")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log API activity to stderr")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newListCommand(opts),
		newDownloadCommand(opts),
		newBrowseCommand(opts),
	)
	return root
}

// Execute runs the root command until it finishes or the user interrupts it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (o *options) logger(w io.Writer) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
