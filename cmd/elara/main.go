package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/elara-app/go-elara/accounts"
	"github.com/elara-app/go-elara/alerts"
	"github.com/elara-app/go-elara/client"
	"github.com/elara-app/go-elara/internal/apperrors"
	"github.com/elara-app/go-elara/internal/config"
	"github.com/elara-app/go-elara/session"
	"github.com/elara-app/go-elara/stream"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const usage = `usage: elara <command> [flags]

commands:
  login    -email <email> -password <password>
  logout
  whoami
  alerts
  tail
`

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	cfg := config.New()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		return errors.New("missing command")
	}

	store, err := session.NewFileStore(filepath.Join(cfg.GetDataFolder(), "session.json"))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	sess := session.NewManager(store)

	api, err := client.New(cfg.GetAPIBaseURL(), sess,
		client.WithHTTPClient(&http.Client{Timeout: cfg.GetHTTPTimeout()}),
		client.WithUserAgent("elara-cli"),
		client.WithLogger(logger),
		client.WithAuthExpiredHook(func() {
			logger.Warn().Msg("session expired, run `elara login` again")
		}),
	)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	accountManager, err := accounts.NewManager(api, sess, accounts.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create account manager: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "login":
		return runLogin(ctx, accountManager, os.Args[2:])
	case "logout":
		return accountManager.Logout()
	case "whoami":
		return runWhoami(ctx, accountManager, sess)
	case "alerts":
		return runAlerts(ctx, api, sess)
	case "tail":
		return runTail(ctx, cfg, api, sess, logger)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func runLogin(ctx context.Context, accountManager *accounts.Manager, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	user, err := accountManager.Login(ctx, *email, *password)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func runWhoami(ctx context.Context, accountManager *accounts.Manager, sess *session.Manager) error {
	if !sess.IsAuthenticated() {
		return errors.New("not logged in")
	}
	user, err := accountManager.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	return printJSON(user)
}

func runAlerts(ctx context.Context, api *client.Client, sess *session.Manager) error {
	if !sess.IsAuthenticated() {
		return errors.New("not logged in")
	}
	items, err := alerts.NewManager(api).List(ctx, alerts.Filter{})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	return printJSON(items)
}

func runTail(ctx context.Context, cfg config.Config, api *client.Client, sess *session.Manager, logger zerolog.Logger) error {
	if !sess.IsAuthenticated() {
		return errors.New("not logged in")
	}

	displayAppname(cfg.GetAppName())

	alertManager := alerts.NewManager(api)
	list := stream.NewList(stream.DefaultMaxEntries)

	// Bulk fetch first so the list starts from current server state.
	if existing, err := alertManager.List(ctx, alerts.Filter{}); err == nil {
		list.Replace(existing)
	} else {
		logger.Warn().Err(err).Msg("initial alert fetch failed")
	}
	for _, alert := range list.Items() {
		printAlert(alert)
	}

	tailer, err := stream.NewTailer(stream.TailerConfig{
		StreamURL: func() (string, error) {
			token := sess.AccessToken()
			if token == "" {
				return "", errors.New("not logged in")
			}
			return alerts.StreamURL(cfg.GetAPIBaseURL(), token), nil
		},
		List:     list,
		OnEvent:  printAlert,
		Logger:   logger,
		Attempts: cfg.GetStreamAttempts(),
	})
	if err != nil {
		return fmt.Errorf("create tailer: %w", err)
	}

	logger.Info().Msg("tailing live alerts, Ctrl-C to stop")
	return tailer.Run(ctx)
}

func printAlert(alert alerts.Alert) {
	marker := " "
	if !alert.IsRead {
		marker = "*"
	}
	fmt.Printf("%s [%s] #%d %s: %s\n", marker, alert.Type, alert.ID, alert.Title, alert.Message)
}

func printJSON(value interface{}) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
