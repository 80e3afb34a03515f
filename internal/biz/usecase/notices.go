package usecase

import (
	"strconv"
	"strings"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

// AccountPlaceholder is replaced with the sender's account id in downgrade notices
const AccountPlaceholder = "{account_id}"

// Notices contains the chat messages the bot posts
type Notices struct {
	Enabled          string
	AlreadyEnabled   string
	Disabled         string
	PermissionDenied string
	EnableFailed     string
	DisableFailed    string

	// Downgrade notices (support {account_id})
	BroadcastDowngrade string
	StampDowngrade     string
	MentionDowngrade   string
}

// DefaultNotices contains the default notice texts
var DefaultNotices = Notices{
	Enabled:          "[info][title]ボット有効化[/title]この部屋でのボットの監視を有効にしました。[/info]",
	AlreadyEnabled:   "[info][title]既に有効[/title]この部屋は既にボットの監視が有効です。[/info]",
	Disabled:         "[info][title]ボット無効化[/title]この部屋でのボットの監視を無効にしました。[/info]",
	PermissionDenied: "[info][title]権限エラー[/title]このコマンドは管理者のみ実行できます。[/info]",
	EnableFailed:     "[error][title]エラー[/title]ボットの有効化に失敗しました。[/error]",
	DisableFailed:    "[error][title]エラー[/title]ボットの無効化に失敗しました。[/error]",

	BroadcastDowngrade: "[info][title]権限変更通知[/title][To:{account_id}] さん、[toall] の多用を確認したため、この部屋でのあなたの権限を『閲覧のみ』に変更しました。[/info]",
	StampDowngrade:     "[info][title]権限変更通知[/title][To:{account_id}] さん、スタンプ・絵文字の多用を確認したため、この部屋でのあなたの権限を『閲覧のみ』に変更しました。[/info]",
	MentionDowngrade:   "[info][title]権限変更通知[/title][To:{account_id}] さん、個人メンションの多用を確認したため、この部屋でのあなたの権限を『閲覧のみ』に変更しました。[/info]",
}

// WithDefaults fills empty fields from DefaultNotices
func (n Notices) WithDefaults() Notices {
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&n.Enabled, DefaultNotices.Enabled)
	fill(&n.AlreadyEnabled, DefaultNotices.AlreadyEnabled)
	fill(&n.Disabled, DefaultNotices.Disabled)
	fill(&n.PermissionDenied, DefaultNotices.PermissionDenied)
	fill(&n.EnableFailed, DefaultNotices.EnableFailed)
	fill(&n.DisableFailed, DefaultNotices.DisableFailed)
	fill(&n.BroadcastDowngrade, DefaultNotices.BroadcastDowngrade)
	fill(&n.StampDowngrade, DefaultNotices.StampDowngrade)
	fill(&n.MentionDowngrade, DefaultNotices.MentionDowngrade)
	return n
}

func formatDowngrade(template string, account domain.AccountID) string {
	return strings.ReplaceAll(template, AccountPlaceholder, strconv.FormatInt(int64(account), 10))
}
