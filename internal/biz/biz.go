package biz

import (
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Membership *usecase.MembershipCache
	Ledger     *usecase.Ledger
	Command    *usecase.CommandUsecase
	Moderation *usecase.ModerationUsecase
}

// NewUsecases wires the usecases over the given repositories
func NewUsecases(
	chatRepo repo.ChatRepo,
	enablementRepo repo.EnablementRepo,
	modCfg usecase.ModerationConfig,
	notices usecase.Notices,
	memberMaxAge time.Duration,
) *Usecases {
	ledger := usecase.NewLedger(modCfg.ResetWindow)
	return &Usecases{
		Membership: usecase.NewMembershipCache(chatRepo, memberMaxAge),
		Ledger:     ledger,
		Command:    usecase.NewCommandUsecase(chatRepo, enablementRepo, notices),
		Moderation: usecase.NewModerationUsecase(chatRepo, ledger, modCfg, notices),
	}
}
