package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/attendly/hrdesk/internal/config"
	"github.com/attendly/hrdesk/internal/database"
	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/logging"
	"github.com/attendly/hrdesk/internal/service"
	"github.com/attendly/hrdesk/internal/session"
	"github.com/attendly/hrdesk/internal/tui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: hrdesk [init | set-api <base-url> | signout]

  init     write a default config file if none exists
  set-api  point the config file at another HR backend
  signout  forget the stored session token
`

func main() {
	if len(os.Args) > 1 {
		if err := command(os.Args[1], os.Args[2:]); err != nil {
			log.Fatalf("%s: %v", os.Args[1], err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cleanup, err := logging.Init(logging.Options{Path: cfg.Log.Path, Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer cleanup()
	logger := logging.L()

	sess, err := session.New(cfg.Session)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	if env := strings.TrimSpace(cfg.API.TokenEnv); env != "" {
		if tok := strings.TrimSpace(os.Getenv(env)); tok != "" {
			if _, err := sess.SignIn(tok); err != nil {
				logger.Warnw("ignoring token from environment", "env", env, "err", err)
			}
		}
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	api, err := hrapi.New(cfg.API.BaseURL, sess, hrapi.WithTimeout(cfg.API.Timeout),
		hrapi.WithLogger(logger), hrapi.WithUserAgent("hrdesk/"+version))
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	// repositories
	cache := repository.NewListCacheRepo(db)
	actions := repository.NewActionLogRepo(db)

	audit := &service.Audit{Repo: actions, Actor: actor(sess), Now: time.Now}
	svc := tui.Services{
		Organizations: &service.OrganizationService{API: api, Cache: cache, Audit: audit},
		Holidays:      &service.HolidayService{API: api, Cache: cache, Audit: audit},
		Leave:         &service.LeaveService{API: api, Cache: cache, Audit: audit},
		Assignments:   &service.AssignmentService{API: api, Cache: cache, Audit: audit},
		Directory:     &service.DirectoryService{API: api, Cache: cache},
		Audit:         audit,
		Maintenance:   &service.MaintenanceService{DB: db, Actions: actions},
	}

	logger.Infow("starting", "api", cfg.API.BaseURL, "session", cfg.Session.Mode)
	if err := tui.Run(ctx, cfg, sess, svc); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func command(name string, args []string) error {
	switch name {
	case "init":
		path := config.Path()
		wrote, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("wrote %s\n", path)
		} else {
			fmt.Printf("%s already exists\n", path)
		}
		return nil
	case "set-api":
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			return fmt.Errorf("expected one base URL")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cfg.API.BaseURL = strings.TrimSpace(args[0])
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("api.base_url = %s (%s)\n", cfg.API.BaseURL, config.Path())
		return nil
	case "signout":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		sess, err := session.New(cfg.Session)
		if err != nil {
			return err
		}
		return sess.SignOut()
	case "-h", "--help", "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}

// actor names the signed-in admin in the action log.
func actor(sess *session.Session) func() string {
	return func() string {
		c, ok := sess.Claims()
		if !ok {
			return ""
		}
		if c.Subject != "" {
			return c.Subject
		}
		return c.Name
	}
}
