package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
)

// CommandUsecase handles the /command OK and /command NO admin commands
type CommandUsecase struct {
	chatRepo       repo.ChatRepo
	enablementRepo repo.EnablementRepo
	notices        Notices
	log            *slog.Logger
}

// NewCommandUsecase creates a new command usecase
func NewCommandUsecase(chatRepo repo.ChatRepo, enablementRepo repo.EnablementRepo, notices Notices) *CommandUsecase {
	return &CommandUsecase{
		chatRepo:       chatRepo,
		enablementRepo: enablementRepo,
		notices:        notices.WithDefaults(),
		log:            slog.Default().With("component", "commands"),
	}
}

// Handle runs msg if it is a command. handled is true for every command message,
// whatever the outcome, so the caller must not count it as activity.
// The returned error is for logging only.
func (uc *CommandUsecase) Handle(ctx context.Context, room domain.RoomID, msg *domain.Message, role domain.Role) (handled bool, err error) {
	cmd := msg.ParseCommand()
	if cmd == domain.CommandNone {
		return false, nil
	}

	if role != domain.RoleAdmin {
		uc.log.Info("command rejected", "room", room, "sender", msg.SenderAccountID, "role", role, "command", string(cmd))
		commandsHandled.WithLabelValues(commandLabel(cmd), "denied").Inc()
		return true, uc.post(ctx, room, uc.notices.PermissionDenied)
	}

	switch cmd {
	case domain.CommandEnable:
		return true, uc.enable(ctx, room)
	case domain.CommandDisable:
		return true, uc.disable(ctx, room)
	}
	return true, nil
}

func (uc *CommandUsecase) enable(ctx context.Context, room domain.RoomID) error {
	enabled, err := uc.enablementRepo.IsEnabled(ctx, room)
	if err == nil && enabled {
		commandsHandled.WithLabelValues("enable", "already").Inc()
		return uc.post(ctx, room, uc.notices.AlreadyEnabled)
	}
	if err == nil {
		err = uc.enablementRepo.Enable(ctx, room)
	}
	if err != nil {
		uc.log.Error("enable room failed", "room", room, "err", err)
		commandsHandled.WithLabelValues("enable", "error").Inc()
		return errors.Join(fmt.Errorf("enable room %d: %w", room, err), uc.post(ctx, room, uc.notices.EnableFailed))
	}

	uc.log.Info("room enabled", "room", room)
	commandsHandled.WithLabelValues("enable", "ok").Inc()
	return uc.post(ctx, room, uc.notices.Enabled)
}

func (uc *CommandUsecase) disable(ctx context.Context, room domain.RoomID) error {
	if err := uc.enablementRepo.Disable(ctx, room); err != nil {
		uc.log.Error("disable room failed", "room", room, "err", err)
		commandsHandled.WithLabelValues("disable", "error").Inc()
		return errors.Join(fmt.Errorf("disable room %d: %w", room, err), uc.post(ctx, room, uc.notices.DisableFailed))
	}

	uc.log.Info("room disabled", "room", room)
	commandsHandled.WithLabelValues("disable", "ok").Inc()
	return uc.post(ctx, room, uc.notices.Disabled)
}

func (uc *CommandUsecase) post(ctx context.Context, room domain.RoomID, body string) error {
	if err := uc.chatRepo.PostMessage(ctx, room, body); err != nil {
		return fmt.Errorf("post notice to room %d: %w", room, err)
	}
	return nil
}

func commandLabel(cmd domain.Command) string {
	if cmd == domain.CommandEnable {
		return "enable"
	}
	return "disable"
}
