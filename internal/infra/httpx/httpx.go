package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultMaxBodyBytes = 16 << 20

	// DefaultUserAgent 在 UA 池为空时兜底使用。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// Kind 是抓取内容类型，用于 Accept 头与错误信息。
type Kind string

const (
	KindJSON Kind = "json"
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
)

func (k Kind) accept() string {
	switch k {
	case KindJSON:
		return "application/json"
	case KindHTML:
		return "text/html,application/xhtml+xml"
	case KindPDF:
		return "application/pdf"
	default:
		return "*/*"
	}
}

// UserAgents 提供每次尝试使用的 UA。返回空串表示池不可用，由调用方兜底。
type UserAgents interface {
	Random() string
}

// Transport 把“UA 轮换 + keep-alive 策略”固化为统一策略；重试不在这一层做（见 Client.fetch）。
type Transport struct {
	Base *http.Transport

	UA        UserAgents
	DefaultUA string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.pickUA())
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

func (t *Transport) pickUA() string {
	if t.UA != nil {
		if ua := strings.TrimSpace(t.UA.Random()); ua != "" {
			return ua
		}
	}
	if t.DefaultUA != "" {
		return t.DefaultUA
	}
	return DefaultUserAgent
}

// Options 是构造 Client 的全部可调项；零值即可用。
type Options struct {
	// Timeout 是单次尝试的超时（含读 body）。
	Timeout  time.Duration
	ProxyURL string

	UserAgents       UserAgents
	DefaultUserAgent string

	MaxBodyBytes int64
	Logger       *zap.Logger
}

// Client 是抓取层：JSON / HTML / PDF 三种内容，统一的有界重试。
//
// 约束：
// - 每次调用最多 retryCount 次顺序尝试（<1 按 1 处理），尝试之间不等待
// - 单次失败（网络错误、非 2xx、超时）只记日志，全部失败后才返回 *FetchExhaustedError
// - ctx 取消后不再重试
type Client struct {
	HTTP *http.Client

	maxBody int64
	log     *zap.Logger
}

// NewClient 构造抓取客户端。
//
// 规则：
// - proxyURL 非空：走代理，且禁用 keep-alive（每请求新连接，便于代理池轮换）
// - 每次尝试随机 UA；池为空时用 DefaultUserAgent
func NewClient(opts Options) (*Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy url 无效：%q", p)
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tr := &Transport{
		Base:              base,
		UA:                opts.UserAgents,
		DefaultUA:         strings.TrimSpace(opts.DefaultUserAgent),
		DisableKeepAlives: disableKeepAlives,
	}
	return &Client{
		HTTP:    &http.Client{Transport: tr, Timeout: timeout},
		maxBody: maxBody,
		log:     log,
	}, nil
}

// FetchJSON 请求 JSON（Accept: application/json），extraHeaders 覆盖默认头。
// 这里不做 JSON 校验：形状不符由各 adapter 自行决定返回空还是报错。
func (c *Client) FetchJSON(ctx context.Context, u string, retryCount int, extraHeaders map[string]string) (json.RawMessage, error) {
	b, err := c.fetch(ctx, KindJSON, u, retryCount, extraHeaders)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (c *Client) FetchHTML(ctx context.Context, u string, retryCount int) (string, error) {
	b, err := c.fetch(ctx, KindHTML, u, retryCount, nil)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) FetchPDF(ctx context.Context, u string, retryCount int) ([]byte, error) {
	return c.fetch(ctx, KindPDF, u, retryCount, nil)
}

func (c *Client) fetch(ctx context.Context, kind Kind, u string, retryCount int, headers map[string]string) ([]byte, error) {
	if retryCount < 1 {
		retryCount = 1
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		attempts = attempt

		b, err := c.once(ctx, kind, u, headers)
		if err == nil {
			return b, nil
		}
		lastErr = err
		c.log.Warn("fetch attempt failed",
			zap.String("kind", string(kind)),
			zap.String("url", u),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retryCount),
			zap.Error(err),
		)
	}
	return nil, &FetchExhaustedError{URL: u, Kind: kind, Attempts: attempts, Err: lastErr}
}

func (c *Client) once(ctx context.Context, kind Kind, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", kind.accept())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32*1024))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	// 截断的页面仍可能“解析成功”，只是少了条目：按失败处理。
	if int64(len(b)) > c.maxBody {
		return nil, &BodyTooLargeError{URL: u, Limit: c.maxBody}
	}
	return b, nil
}

// UAPool 是并发安全的随机 UA 池。
type UAPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

// NewUAPool 用给定列表构造 UA 池；list 为空时使用内置列表。
func NewUAPool(list []string) *UAPool {
	uas := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			uas = append(uas, s)
		}
	}
	if len(list) == 0 {
		uas = append(uas, builtinUAs...)
	}
	return &UAPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}

func (p *UAPool) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.uas) == 0 {
		return ""
	}
	return p.uas[p.rnd.Intn(len(p.uas))]
}

// FixedUA 总是返回同一个 UA（测试里用于固定请求头）。
type FixedUA string

func (f FixedUA) Random() string { return string(f) }

var builtinUAs = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Mobile/15E148 Safari/604.1",
}
