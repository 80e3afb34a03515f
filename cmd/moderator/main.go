package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/roomguard/chatwork-moderator/internal/api"
	"github.com/roomguard/chatwork-moderator/internal/biz"
	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
	"github.com/roomguard/chatwork-moderator/internal/conf"
	"github.com/roomguard/chatwork-moderator/internal/data"
	"github.com/roomguard/chatwork-moderator/internal/service"
)

func main() {
	app := cli.App{
		Name:  "moderator",
		Usage: "Chatwork room moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment",
				Value: ".env",
			},
		},
		Before: setup,
		Action: runModerator,
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "poll the monitored rooms and moderate them (default)",
			Action: runModerator,
		},
		{
			Name:  "rooms",
			Usage: "inspect or change the set of enabled rooms",
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "list enabled rooms",
					Action: runRoomsList,
				},
				{
					Name:      "enable",
					Usage:     "enable moderation in a room",
					ArgsUsage: "<room-id>",
					Action:    runRoomsEnable,
				},
				{
					Name:      "disable",
					Usage:     "disable moderation in a room",
					ArgsUsage: "<room-id>",
					Action:    runRoomsDisable,
				},
			},
		},
	}
	app.RunAndExitOnError()
}

// setup loads the dotenv file and installs the logger before any config is parsed
func setup(cctx *cli.Context) error {
	envErr := godotenv.Load(cctx.String("env-file"))
	conf.SetupLogger(os.Stderr)
	if envErr != nil {
		slog.Info("no .env file found, using environment variables")
	}
	return nil
}

func runModerator(cctx *cli.Context) error {
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := data.NewRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	ucs := biz.NewUsecases(repos.Chat, repos.Enablement, cfg.ToModerationConfig(), cfg.ToNotices(), cfg.Polling.MemberMaxAge())
	scheduler := service.NewPollingScheduler(repos.Chat, repos.Enablement, ucs, service.SchedulerConfig{
		Rooms:              cfg.Polling.RoomIDs,
		MonitorJoinedRooms: cfg.Polling.MonitorJoinedRooms,
		Interval:           cfg.Polling.PollingInterval(),
	})

	if len(cfg.Polling.RoomIDs) == 0 && !cfg.Polling.MonitorJoinedRooms {
		slog.Warn("no rooms configured; set MONITORED_ROOM_IDS or MONITOR_JOINED_ROOMS=true")
	}

	if cfg.APIAddr != "" {
		apiServer := api.NewServer(scheduler, cfg.APIAddr)
		go func() {
			if err := apiServer.Start(); err != nil {
				slog.Error("API server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			apiServer.Stop(shutdownCtx)
		}()
	}

	slog.Info("starting chatwork moderator",
		"rooms", len(cfg.Polling.RoomIDs),
		"store", cfg.Store.Backend,
		"permission_mode", cfg.Chatwork.PermissionMode,
		"stamp_threshold", cfg.Moderation.StampThreshold,
		"mention_threshold", cfg.Moderation.MentionThreshold)

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutting down")
	return nil
}

// openStore opens only the enablement backend, for the rooms commands
func openStore(cctx *cli.Context) (repo.EnablementRepo, error) {
	cfg := conf.LoadFromEnv()
	if err := cfg.ValidateStore(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return data.NewEnablementRepo(cctx.Context, &cfg.Store)
}

func runRoomsList(cctx *cli.Context) error {
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rooms, err := store.ListEnabled(cctx.Context)
	if err != nil {
		return err
	}

	ids := make([]domain.RoomID, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runRoomsEnable(cctx *cli.Context) error {
	room, err := roomArg(cctx)
	if err != nil {
		return err
	}
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Enable(cctx.Context, room); err != nil {
		return err
	}
	fmt.Printf("room %d enabled\n", room)
	return nil
}

func runRoomsDisable(cctx *cli.Context) error {
	room, err := roomArg(cctx)
	if err != nil {
		return err
	}
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Disable(cctx.Context, room); err != nil {
		return err
	}
	fmt.Printf("room %d disabled\n", room)
	return nil
}

func roomArg(cctx *cli.Context) (domain.RoomID, error) {
	s := cctx.Args().First()
	if s == "" {
		return 0, fmt.Errorf("need to provide a room id as an argument")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", s)
	}
	return domain.RoomID(id), nil
}
