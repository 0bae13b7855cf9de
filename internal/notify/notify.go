package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TemplateScrapeError 是抓取失败告警的模板类型。
const TemplateScrapeError = "scrape-error"

const defaultSendTimeout = 30 * time.Second

// EmailSender 是外部邮件协作方：返回 true 表示确认发送成功。
type EmailSender interface {
	SendTemplatedEmail(ctx context.Context, to, kind string, data map[string]string) (bool, error)
}

// Options 对应配置中的 notify 段（只取告警开关与收件人）。
type Options struct {
	AdminEnabled bool
	AdminEmail   string
	// SendTimeout 限制单次发送耗时，避免告警拖住抓取批次。
	SendTimeout time.Duration
}

// Notifier 在 source 抓取失败时向管理员发送告警邮件。
//
// 约束：
// - 开关关闭或收件人为空：Notify 是 no-op
// - 发送失败（error 或 false）只记日志，不向调用方返回
// - Notify 同步返回：调用方不需要再管理 goroutine
type Notifier struct {
	sender  EmailSender
	enabled bool
	to      string
	timeout time.Duration
	log     *zap.Logger
}

func New(sender EmailSender, opts Options, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Notifier{
		sender:  sender,
		enabled: opts.AdminEnabled,
		to:      strings.TrimSpace(opts.AdminEmail),
		timeout: timeout,
		log:     log,
	}
}

// Enabled 报告 Notify 是否会真正发送。
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled && n.to != "" && n.sender != nil
}

// Notify 报告 provider 的一次失败。cause 可以是 error，也可以是 recover() 得到的任意值。
func (n *Notifier) Notify(ctx context.Context, provider string, cause any) {
	if !n.Enabled() {
		return
	}
	msg := Describe(cause)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	ok, err := n.sender.SendTemplatedEmail(ctx, n.to, TemplateScrapeError, map[string]string{
		"provider": provider,
		"error":    msg,
	})
	switch {
	case err != nil:
		n.log.Error("send admin alert failed", zap.String("provider", provider), zap.Error(err))
	case !ok:
		n.log.Error("admin alert not confirmed", zap.String("provider", provider))
	default:
		n.log.Info("admin alert sent", zap.String("provider", provider), zap.String("to", n.to))
	}
}

// Describe 把失败原因格式化为告警文本：error 取 Error()，其他值取 JSON。
func Describe(cause any) string {
	switch v := cause.(type) {
	case nil:
		return "null"
	case error:
		return v.Error()
	}
	b, err := json.Marshal(cause)
	if err != nil {
		return fmt.Sprintf("%v", cause)
	}
	return string(b)
}
