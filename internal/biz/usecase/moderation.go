package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
)

// ModerationConfig contains threshold configuration
type ModerationConfig struct {
	StampThreshold   int // <= 0 disables the stamp rule
	MentionThreshold int // <= 0 disables the mention rule
	ResetWindow      time.Duration
	Emoticons        []string
}

// DefaultModerationConfig contains default thresholds
var DefaultModerationConfig = ModerationConfig{
	StampThreshold:   30,
	MentionThreshold: 10,
	ResetWindow:      24 * time.Hour,
	Emoticons:        domain.DefaultEmoticons,
}

// DowngradeReason says which rule fired
type DowngradeReason string

const (
	ReasonBroadcast DowngradeReason = "broadcast"
	ReasonStamp     DowngradeReason = "stamp"
	ReasonMention   DowngradeReason = "mention"
)

// Outcome describes what Evaluate did with one message
type Outcome struct {
	Stamps     int
	Mentions   int
	Downgrades []DowngradeReason
}

// ModerationUsecase applies the broadcast and threshold rules
type ModerationUsecase struct {
	chatRepo repo.ChatRepo
	ledger   *Ledger
	config   ModerationConfig
	notices  Notices
	log      *slog.Logger
}

// NewModerationUsecase creates a new moderation usecase
func NewModerationUsecase(chatRepo repo.ChatRepo, ledger *Ledger, config ModerationConfig, notices Notices) *ModerationUsecase {
	if config.Emoticons == nil {
		config.Emoticons = domain.DefaultEmoticons
	}
	return &ModerationUsecase{
		chatRepo: chatRepo,
		ledger:   ledger,
		config:   config,
		notices:  notices.WithDefaults(),
		log:      slog.Default().With("component", "moderation"),
	}
}

// Evaluate counts activity for a non-command message in an enabled room and
// downgrades the sender when a rule fires. Action failures are joined into the
// returned error; every action is still attempted.
func (uc *ModerationUsecase) Evaluate(ctx context.Context, room domain.RoomID, msg *domain.Message, role domain.Role, now time.Time) (Outcome, error) {
	var out Outcome
	sender := msg.SenderAccountID
	counter := uc.ledger.Touch(room, sender, now)

	if msg.HasBroadcast() {
		if role != domain.RoleMember {
			uc.log.Info("broadcast by non-member ignored", "room", room, "sender", sender, "role", role)
			return out, nil
		}
		out.Downgrades = append(out.Downgrades, ReasonBroadcast)
		return out, uc.downgrade(ctx, room, sender, ReasonBroadcast, uc.notices.BroadcastDowngrade)
	}

	var errs []error

	out.Stamps = domain.CountStamps(msg.Body, uc.config.Emoticons)
	activityCounted.WithLabelValues("stamp").Add(float64(out.Stamps))
	if counter.AddStamps(out.Stamps, uc.config.StampThreshold) {
		out.Downgrades = append(out.Downgrades, ReasonStamp)
		errs = append(errs, uc.downgrade(ctx, room, sender, ReasonStamp, uc.notices.StampDowngrade))
	}

	out.Mentions = domain.CountMentions(msg.Body)
	activityCounted.WithLabelValues("mention").Add(float64(out.Mentions))
	if counter.AddMentions(out.Mentions, uc.config.MentionThreshold) {
		out.Downgrades = append(out.Downgrades, ReasonMention)
		errs = append(errs, uc.downgrade(ctx, room, sender, ReasonMention, uc.notices.MentionDowngrade))
	}

	if out.Stamps > 0 || out.Mentions > 0 {
		uc.log.Debug("activity counted", "room", room, "sender", sender,
			"stamps", out.Stamps, "stamp_total", counter.StampCount,
			"mentions", out.Mentions, "mention_total", counter.MentionCount)
	}
	return out, errors.Join(errs...)
}

// downgrade sets the sender to readonly and notifies the room. Both calls are attempted.
func (uc *ModerationUsecase) downgrade(ctx context.Context, room domain.RoomID, account domain.AccountID, reason DowngradeReason, template string) error {
	uc.log.Warn("downgrading member to readonly", "room", room, "account", account, "reason", string(reason))

	var errs []error
	if err := uc.chatRepo.ChangePermission(ctx, room, account, domain.RoleReadonly); err != nil {
		errs = append(errs, fmt.Errorf("change permission of %d in room %d: %w", account, room, err))
	}
	if err := uc.chatRepo.PostMessage(ctx, room, formatDowngrade(template, account)); err != nil {
		errs = append(errs, fmt.Errorf("post %s notice to room %d: %w", reason, room, err))
	}

	result := "ok"
	if len(errs) > 0 {
		result = "error"
	}
	moderationActions.WithLabelValues(string(reason), result).Inc()
	return errors.Join(errs...)
}
