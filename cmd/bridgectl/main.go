// Command bridgectl manages the bridge's settings file and local library:
// which lists, calendars and albums are exposed, access tokens, remote
// access and the listening port. A running server picks changes up on its
// next reload.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/icloudbridge/bridge/internal/config"
	"github.com/icloudbridge/bridge/internal/logging"
	"github.com/icloudbridge/bridge/internal/repository"
	"github.com/icloudbridge/bridge/internal/settings"
	"github.com/icloudbridge/bridge/internal/store"
)

const usage = `usage: bridgectl <command> [args]

commands:
  lists | calendars | albums     list library entities, * marks exposed ones
  select <kind> <id>...          expose entities (kind: lists, calendars, albums)
  unselect <kind> <id>...        hide entities
  token create -name <name>      create an access token and print it once
  token list                     list tokens
  token revoke <id>              revoke a token
  remote enable | disable        allow or refuse non-loopback callers
  port <n>                       set the listening port (applies on restart)
  import <manifest.json>         load library metadata from a manifest
`

var errUsage = errors.New("invalid arguments")

func main() {
	godotenv.Load()
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintln(os.Stderr, "bridgectl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "lists", "calendars", "albums":
		return withSettings(cfg, func(mgr *settings.Manager) error {
			return withDB(cfg, func(db *sqlx.DB) error {
				return listEntities(ctx, db, mgr, store.Kind(cmd), out)
			})
		})
	case "select", "unselect":
		if len(rest) < 2 {
			return errUsage
		}
		kind := store.Kind(rest[0])
		return withSettings(cfg, func(mgr *settings.Manager) error {
			if cmd == "select" {
				return mgr.Select(kind, rest[1:]...)
			}
			return mgr.Unselect(kind, rest[1:]...)
		})
	case "token":
		return withSettings(cfg, func(mgr *settings.Manager) error {
			return tokenCommand(mgr, rest, out)
		})
	case "remote":
		if len(rest) != 1 || (rest[0] != "enable" && rest[0] != "disable") {
			return errUsage
		}
		return withSettings(cfg, func(mgr *settings.Manager) error {
			return mgr.SetRemoteAccess(rest[0] == "enable")
		})
	case "port":
		if len(rest) != 1 {
			return errUsage
		}
		port, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("%w: port %q", errUsage, rest[0])
		}
		return withSettings(cfg, func(mgr *settings.Manager) error {
			return mgr.SetPort(port)
		})
	case "import":
		if len(rest) != 1 {
			return errUsage
		}
		return withDB(cfg, func(db *sqlx.DB) error {
			return importManifest(ctx, db, rest[0], out)
		})
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func withSettings(cfg config.Config, fn func(*settings.Manager) error) error {
	mgr, err := settings.NewManager(cfg.SettingsPath)
	if err != nil {
		return err
	}
	return fn(mgr)
}

func withDB(cfg config.Config, fn func(*sqlx.DB) error) error {
	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

type entityRow struct {
	id    string
	title string
	count int
}

func listEntities(ctx context.Context, db *sqlx.DB, mgr *settings.Manager, kind store.Kind, out io.Writer) error {
	var rows []entityRow
	switch kind {
	case store.KindList:
		lists, err := repository.NewReminderRepository(db).ReminderLists(ctx)
		if err != nil {
			return err
		}
		for _, l := range lists {
			rows = append(rows, entityRow{l.ID, l.Title, l.ReminderCount})
		}
	case store.KindCalendar:
		cals, err := repository.NewCalendarRepository(db).Calendars(ctx)
		if err != nil {
			return err
		}
		for _, c := range cals {
			rows = append(rows, entityRow{c.ID, c.Title, c.EventCount})
		}
	case store.KindAlbum:
		albums, err := repository.NewPhotoRepository(db).Albums(ctx)
		if err != nil {
			return err
		}
		for _, a := range albums {
			rows = append(rows, entityRow{a.ID, a.Title, a.PhotoCount + a.VideoCount})
		}
	}

	filter := mgr.Snapshot().Filter
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tITEMS")
	for _, r := range rows {
		mark := " "
		if filter.IsExposed(kind, r.id) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", mark, r.id, r.title, r.count)
	}
	return tw.Flush()
}

func tokenCommand(mgr *settings.Manager, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("token create", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		name := fs.String("name", "", "token name")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		plaintext, tok, err := mgr.CreateToken(*name)
		if err != nil {
			return err
		}
		slog.Info("token created", "id", tok.ID, "name", tok.Name)
		fmt.Fprintf(out, "id:    %s\ntoken: %s\n", tok.ID, plaintext)
		fmt.Fprintln(out, "store the token now, it cannot be shown again")
		return nil
	case "list":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED")
		for _, tok := range mgr.Snapshot().Tokens {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", tok.ID, tok.Name, tok.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
		}
		return tw.Flush()
	case "revoke":
		if len(args) != 2 {
			return errUsage
		}
		return mgr.RevokeToken(args[1])
	}
	return fmt.Errorf("%w: unknown token command %q", errUsage, args[0])
}

func importManifest(ctx context.Context, db *sqlx.DB, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	m, err := repository.DecodeManifest(f)
	if err != nil {
		return err
	}
	stats, err := repository.Import(ctx, db, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %s\n", stats)
	return nil
}
