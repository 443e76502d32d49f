// Package cli implements the httpstack command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/cookie"
	"github.com/wumo-util/http-stack/internal/config"
)

var errMalformedHeader = errors.New(`header must look like "Name: value"`)

// app is the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile    string
	headers       []string
	stackRecorder bool

	cfg    *config.Config
	logger *slog.Logger
}

// New returns the root command writing results to stdout and logs,
// progress and errors to stderr.
func New(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "httpstack",
		Short: "Issue HTTP requests with persistent cookies and streaming downloads.",
		Long: `httpstack sends HTTP requests through a cancellable client.

Cookies received from servers are kept in a JSON document (cookie.json by
default) and sent back on later runs. Settings come from .httpstack.yaml,
HTTPSTACK_* environment variables and flags, in increasing priority.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "",
		fmt.Sprintf("path to the configuration file (default is '%s.yaml' if present)", config.DefaultConfigName))
	flags.StringArrayVarP(&a.headers, "header", "H", nil, `extra request header, e.g. "Accept: text/plain"`)
	flags.BoolVar(&a.stackRecorder, "stack-recorder", false, "attach the caller stack to transport failures")
	config.RegisterFlags(flags)

	root.AddCommand(
		a.getCmd(),
		a.headCmd(),
		a.postCmd(),
		a.deleteCmd(),
		a.downloadCmd(),
		a.cookiesCmd(),
		a.configCmd(),
	)

	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.ParsedLogLevel}))

	return nil
}

func (a *app) openCookies() (*cookie.Store, error) {
	return cookie.Open(a.cfg.Cookies, cookie.WithLogger(a.logger))
}

// withClient builds a client over the cookie document, runs fn and saves
// the cookies whatever fn returned.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) (err error) {
	store, err := a.openCookies()
	if err != nil {
		return err
	}

	opts := a.cfg.ClientOptions(a.logger, store)
	if cmd.Flags().Changed("stack-recorder") {
		opts = append(opts, client.WithStackRecorder(a.stackRecorder))
	}

	c, err := client.Build(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	defer func() {
		if saveErr := store.Save(); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}()

	return fn(cmd.Context(), c)
}

// header parses the -H flags.
func (a *app) header() (http.Header, error) {
	kv := make([]string, 0, 2*len(a.headers))
	for _, h := range a.headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errMalformedHeader, h)
		}
		kv = append(kv, name, strings.TrimSpace(value))
	}

	return client.Headers(kv...), nil
}
