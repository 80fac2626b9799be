package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/assignpro/assignpro-web/config"
	"github.com/assignpro/assignpro-web/internal/bootstrap"
	"github.com/assignpro/assignpro-web/internal/data"
	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	"github.com/assignpro/assignpro-web/internal/ports"
	"github.com/assignpro/assignpro-web/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const defaultCommandTimeout = 30 * time.Second

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger, Config: cfg, Out: os.Stdout}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply the session slot schema (SLOT_BACKEND=postgres)",
			run:         runMigrations,
		},
		"slot-show": {
			name:        "slot-show",
			description: "Print the identity remembered in the session slot",
			run:         runSlotShow,
		},
		"slot-clear": {
			name:        "slot-clear",
			description: "Forget the remembered identity",
			run:         runSlotClear,
		},
		"login": {
			name:        "login",
			description: "Log in through the configured backend and remember the identity",
			run:         runLogin,
		},
		"policy": {
			name:        "policy",
			description: "Print the role policy table",
			run:         runPolicy,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: assignpro-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := writef(w, "  %-12s %s\n", name, all[name].description); err != nil {
			return err
		}
	}
	return nil
}

type timeoutOptions struct {
	Timeout time.Duration
}

func parseTimeoutFlags(name string, args []string) (timeoutOptions, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var opts timeoutOptions
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "maximum time to wait for the backend")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.Timeout <= 0 {
		return opts, nil, errors.New("timeout must be positive")
	}
	return opts, fs.Args(), nil
}

// withSlot opens the configured slot for the duration of fn.
func withSlot(cmdCtx *commandContext, timeout time.Duration, fn func(ctx context.Context, slot ports.SlotStore) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, timeout)
	defer cancel()

	cfg := cmdCtx.Config
	slot, err := bootstrap.OpenSlot(ctx, &cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := slot.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("slot close failed", "error", closeErr)
		}
	}()
	if slot.Backend == config.SlotBackendMemory {
		cmdCtx.Logger.Warn("SLOT_BACKEND=memory is process-local; this command cannot see the server's slot")
	}
	return fn(ctx, slot.Store)
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, _, err := parseTimeoutFlags("migrate", args)
	if err != nil {
		return err
	}
	if cmdCtx.Config.Slot.Backend != config.SlotBackendPostgres {
		return fmt.Errorf("migrate requires SLOT_BACKEND=postgres (got %q)", cmdCtx.Config.Slot.Backend)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runSlotShow(cmdCtx *commandContext, args []string) error {
	opts, _, err := parseTimeoutFlags("slot-show", args)
	if err != nil {
		return err
	}
	return withSlot(cmdCtx, opts.Timeout, func(ctx context.Context, slot ports.SlotStore) error {
		sess := hydrateOnce(ctx, cmdCtx, slot)
		return printSession(cmdCtx.Out, sess, slotUpdatedAt(ctx, cmdCtx, slot, sess))
	})
}

func runSlotClear(cmdCtx *commandContext, args []string) error {
	opts, _, err := parseTimeoutFlags("slot-clear", args)
	if err != nil {
		return err
	}
	return withSlot(cmdCtx, opts.Timeout, func(ctx context.Context, slot ports.SlotStore) error {
		if clearErr := slot.Clear(ctx); clearErr != nil {
			return fmt.Errorf("clear slot: %w", clearErr)
		}
		return writeln(cmdCtx.Out, "slot cleared")
	})
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, rest, err := parseTimeoutFlags("login", args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return errors.New("usage: assignpro-admin login [-timeout 30s] <email> <password>")
	}

	return withSlot(cmdCtx, opts.Timeout, func(ctx context.Context, slot ports.SlotStore) error {
		creds, credErr := bootstrap.BuildCredentials(ctx, cmdCtx.Config.Auth, cmdCtx.Logger)
		if credErr != nil {
			return credErr
		}
		svc := service.NewSessionService(service.SessionServiceOptions{
			Slot:      slot,
			Verifier:  creds.Verifier,
			Registrar: creds.Registrar,
			Logger:    cmdCtx.Logger,
		})
		svc.Initialize(ctx)
		if _, loginErr := svc.Login(ctx, rest[0], rest[1]); loginErr != nil {
			return fmt.Errorf("login: %w", loginErr)
		}
		return printSession(cmdCtx.Out, svc.Snapshot(), time.Time{})
	})
}

func runPolicy(cmdCtx *commandContext, _ []string) error {
	return printPolicy(cmdCtx.Out, access.DefaultPolicy())
}

func hydrateOnce(ctx context.Context, cmdCtx *commandContext, slot ports.SlotStore) domainauth.Session {
	svc := service.NewSessionService(service.SessionServiceOptions{Slot: slot, Logger: cmdCtx.Logger})
	return svc.Initialize(ctx)
}

// updatedAtReporter is implemented by slot backends that track when the record was written.
type updatedAtReporter interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}

var _ updatedAtReporter = (*data.SlotRepo)(nil)

// slotUpdatedAt returns the write time of the remembered record, or the zero time when the
// backend does not track it or nothing is remembered.
func slotUpdatedAt(ctx context.Context, cmdCtx *commandContext, slot ports.SlotStore, s domainauth.Session) time.Time {
	r, ok := slot.(updatedAtReporter)
	if !ok || s.Current == nil {
		return time.Time{}
	}
	at, err := r.UpdatedAt(ctx)
	if err != nil {
		cmdCtx.Logger.Warn("read slot update time failed", "error", err)
		return time.Time{}
	}
	return at
}

func printSession(w io.Writer, s domainauth.Session, updated time.Time) error {
	if s.Current == nil {
		return writeln(w, "no identity remembered")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	ident := s.Current
	rows := [][2]string{
		{"id", ident.ID},
		{"name", ident.DisplayName},
		{"email", ident.Email},
		{"role", string(ident.Role)},
		{"home", access.DefaultPolicy().RoleHome(ident.Role)},
	}
	if !updated.IsZero() {
		rows = append(rows, [2]string{"updated", updated.UTC().Format(time.RFC3339)})
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printPolicy(w io.Writer, p *access.Policy) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ROLE\tHOME\tALLOWED\n"); err != nil {
		return err
	}
	for _, row := range p.Rows() {
		paths := make([]string, 0, len(row.Allowed))
		for _, item := range row.Allowed {
			paths = append(paths, item.Path)
		}
		if err := writef(tw, "%s\t%s\t%s\n", row.Role, row.Home, strings.Join(paths, ", ")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
