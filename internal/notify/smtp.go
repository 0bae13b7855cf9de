package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPOptions 对应配置中的 notify.smtp 段。
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]mailTemplate{
	TemplateScrapeError: {
		subject: template.Must(template.New("subject").Parse(`[giftvault] scrape failed: {{.provider}}`)),
		body: template.Must(template.New("body").Parse(`Supplier scrape failed.

Provider: {{.provider}}
Error:    {{.error}}

Other providers were not affected. Check the ingest logs for details.
`)),
	},
}

// DeliverFunc 把构造好的邮件交给 SMTP 服务器，测试中可替换。
type DeliverFunc func(ctx context.Context, m *mail.Msg) error

// SMTPSender 用 go-mail 构造并发送模板邮件。
//
// 约束：
// - 头部按 RFC 2047 编码，正文 UTF-8 + quoted-printable（provider 名可能是希伯来文）
// - 只有配置了用户名才启用 PLAIN 认证；TLS 为机会性
type SMTPSender struct {
	opts    SMTPOptions
	deliver DeliverFunc
	now     func() time.Time
}

func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	s := &SMTPSender{opts: opts, now: time.Now}
	s.deliver = s.dialAndSend
	return s
}

// WithDeliverFunc 替换底层发送（测试用）。
func (s *SMTPSender) WithDeliverFunc(f DeliverFunc) *SMTPSender {
	s.deliver = f
	return s
}

func (s *SMTPSender) SendTemplatedEmail(ctx context.Context, to, kind string, data map[string]string) (bool, error) {
	tpl, ok := templates[kind]
	if !ok {
		return false, fmt.Errorf("未知邮件模板：%q", kind)
	}
	if strings.TrimSpace(to) == "" {
		return false, errors.New("收件人不能为空")
	}
	m, err := s.build(tpl, to, data)
	if err != nil {
		return false, err
	}
	if err := s.deliver(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SMTPSender) build(tpl mailTemplate, to string, data map[string]string) (*mail.Msg, error) {
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return nil, err
	}

	m := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8), mail.WithEncoding(mail.EncodingQP))
	if err := m.From(s.opts.From); err != nil {
		return nil, fmt.Errorf("发件人无效：%w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("收件人无效：%w", err)
	}
	m.Subject(oneLine(subject.String()))
	m.SetDateWithValue(s.now())
	m.SetBodyString(mail.TypeTextPlain, body.String())
	return m, nil
}

// dialAndSend 每次发送新建连接：告警频率低，不值得维持长连接。
func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if s.opts.Port > 0 {
		opts = append(opts, mail.WithPort(s.opts.Port))
	}
	if s.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.opts.Username),
			mail.WithPassword(s.opts.Password),
		)
	}
	c, err := mail.NewClient(s.opts.Host, opts...)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
