package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pistachio-backend/pkg/client"
)

const (
	envAPIURL = "PISTACHIO_API_URL"
	envToken  = "PISTACHIO_TOKEN"
)

// app carries what the flags resolve to for one invocation.
type app struct {
	apiURL   string
	token    string
	timeout  time.Duration
	logLevel string

	log    zerolog.Logger
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate customer accounts, orders and payments from the command line",
		Long: `ledgerctl talks to the pistachio back office API.

The API address and access token come from --api-url/--token, or from
PISTACHIO_API_URL and PISTACHIO_TOKEN (a .env file in the working directory
is read first). Obtain a token with "ledgerctl login".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (env "+envAPIURL+")")
	root.PersistentFlags().StringVar(&a.token, "token", "", "Access token (env "+envToken+")")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 15*time.Second, "Per-request timeout")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(a),
		newAccountCmd(a),
		newOpeningCmd(a),
		newOrderCmd(a),
		newUrgentCmd(a),
		newTxCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	// A missing .env file is fine
	_ = godotenv.Load()

	log, err := newLogger(cmd.ErrOrStderr(), a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}
	a.log = log

	if a.apiURL == "" {
		a.apiURL = os.Getenv(envAPIURL)
	}
	if a.token == "" {
		a.token = os.Getenv(envToken)
	}
	if a.apiURL == "" {
		return errors.New("API URL is required: pass --api-url or set " + envAPIURL)
	}

	a.client = client.New(client.Session{BaseURL: a.apiURL, Token: a.token}, client.WithTimeout(a.timeout))
	a.log.Debug().Str("api_url", a.apiURL).Bool("has_token", a.token != "").Msg("Session ready")
	return nil
}

// fail logs a failed call and returns the error shown to the user.
func (a *app) fail(op string, err error) error {
	var se *client.ServerError
	if errors.As(err, &se) {
		a.log.Warn().Str("op", op).Int("status", se.Status).Msg(se.Message)
		return fmt.Errorf("%s: %s", op, se.Message)
	}
	a.log.Error().Err(err).Str("op", op).Msg("Request failed")
	return fmt.Errorf("%s: %w", op, err)
}
