package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/giftvault/ingest/internal/domain"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingRequired 表示某个开关打开后依赖的字段没有给出。
	ErrCodeMissingRequired = "config_missing_required"
)

const (
	DefaultFileName = "config.yaml"

	DefaultRetryCount        = 3
	DefaultCacheTTL          = 10 * time.Minute
	DefaultAttemptTimeout    = 20 * time.Second
	DefaultSourceConcurrency = 1
	MaxSourceConcurrency     = 16

	DefaultStoreDriver = "sqlite3"
	DefaultStoreDSN    = "ingest.db"

	DefaultServerHost = "127.0.0.1"
	DefaultServerPort = 8080

	DefaultSMTPPort = 587
)

const (
	StoreSQLite   = "sqlite3"
	StorePostgres = "postgres"
	StoreJSON     = "json"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CLIArgs 是 CLI 暴露的配置入口。ConfigPath 非空表示用户显式指定（此时文件必须存在）。
type CLIArgs struct {
	ConfigPath string
	EnvFile    string
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Env    string `yaml:"env"`
}

type ScrapeConfig struct {
	RetryCount        int           `yaml:"retry_count"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout"`
	SourceConcurrency int           `yaml:"source_concurrency"`
	UserAgents        []string      `yaml:"user_agents"`
	DefaultUserAgent  string        `yaml:"default_user_agent"`
	ProxyURL          string        `yaml:"proxy_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type NotifyConfig struct {
	AdminEnabled bool       `yaml:"admin_enabled"`
	AdminEmail   string     `yaml:"admin_email"`
	SMTP         SMTPConfig `yaml:"smtp"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ProviderConfig 是单个 provider 的可选覆盖：sources 为空时使用内置默认源。
type ProviderConfig struct {
	Disabled       bool           `yaml:"disabled"`
	Sources        []SourceConfig `yaml:"sources"`
	OrganizationID string         `yaml:"organization_id"`
}

// FileConfig 对应 config.yaml 的解析结构（未知字段报错）。
type FileConfig struct {
	Log       LogConfig                 `yaml:"log"`
	Scrape    ScrapeConfig              `yaml:"scrape"`
	Cache     CacheConfig               `yaml:"cache"`
	Store     StoreConfig               `yaml:"store"`
	Notify    NotifyConfig              `yaml:"notify"`
	Server    ServerConfig              `yaml:"server"`
	Tracing   TracingConfig             `yaml:"tracing"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// EffectiveConfig 是合并默认值与环境变量覆盖后的最终配置（启动时读取一次，运行期只读）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；为空表示未使用配置文件（全部默认 + 环境变量）。
	ConfigPath string

	Log     LogConfig
	Scrape  ScrapeConfig
	Cache   CacheConfig
	Store   StoreConfig
	Notify  NotifyConfig
	Server  ServerConfig
	Tracing TracingConfig

	Providers map[domain.ProviderKind]ProviderConfig
}

// Addr 返回 HTTP 监听地址。
func (c EffectiveConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingRequired:
		return fmt.Sprintf("%s：配置 %q 缺少必填字段：%v", e.Code, e.Path, e.Err)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LookupEnv 与 os.LookupEnv 同签名，测试中可替换。
type LookupEnv func(key string) (string, bool)

// Load 读取 .env、配置文件与环境变量，合并为 EffectiveConfig。
//
// 发现规则：
// 1) CLI 指定了 ConfigPath：文件必须存在
// 2) 否则读取 <cwd>/config.yaml；不存在时全部走默认值
//
// 覆盖优先级：环境变量 > 配置文件 > 内置默认。
// .env 只补充尚未设置的环境变量（不覆盖进程已有的值）。
func Load(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	if err := loadDotEnv(cwd, cli.EnvFile); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cli.EnvFile, Err: err}
	}
	return LoadWith(cwd, cli, os.LookupEnv)
}

// LoadWith 与 Load 相同，但不读 .env，且环境变量来源由调用方提供。
func LoadWith(cwd string, cli CLIArgs, lookup LookupEnv) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	explicit := strings.TrimSpace(cli.ConfigPath) != ""
	if explicit {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if explicit {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	if err := applyEnv(&fc, lookup); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: pathOrEnv(cfgPath), Err: err}
	}
	return merge(fc, cfgPath)
}

func merge(fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	where := pathOrEnv(cfgPath)
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: where, Err: fmt.Errorf(format, args...)}
	}
	missing := func(field string) error {
		return &Error{Code: ErrCodeMissingRequired, Path: where, Err: errors.New(field)}
	}

	eff := EffectiveConfig{
		ConfigPath: cfgPath,
		Log:        fc.Log,
		Scrape:     fc.Scrape,
		Cache:      fc.Cache,
		Store:      fc.Store,
		Notify:     fc.Notify,
		Server:     fc.Server,
		Tracing:    fc.Tracing,
		Providers:  make(map[domain.ProviderKind]ProviderConfig, len(fc.Providers)),
	}

	// log
	eff.Log.Level = strings.ToLower(strings.TrimSpace(eff.Log.Level))
	if eff.Log.Level == "" {
		eff.Log.Level = "info"
	}
	switch eff.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log.level 只能是 debug/info/warn/error，实际是 %q", eff.Log.Level)
	}
	eff.Log.Format = strings.ToLower(strings.TrimSpace(eff.Log.Format))
	if eff.Log.Format == "" {
		eff.Log.Format = "console"
	}
	if eff.Log.Format != "console" && eff.Log.Format != "json" {
		return EffectiveConfig{}, invalid("log.format 只能是 console 或 json，实际是 %q", eff.Log.Format)
	}
	if strings.TrimSpace(eff.Log.Env) == "" {
		eff.Log.Env = "development"
	}

	// scrape
	s := &eff.Scrape
	switch {
	case s.RetryCount == 0:
		s.RetryCount = DefaultRetryCount
	case s.RetryCount < 0:
		return EffectiveConfig{}, invalid("scrape.retry_count 必须 >= 1，实际是 %d", s.RetryCount)
	}
	switch {
	case s.CacheTTL == 0:
		s.CacheTTL = DefaultCacheTTL
	case s.CacheTTL < 0:
		return EffectiveConfig{}, invalid("scrape.cache_ttl 必须 > 0，实际是 %s", s.CacheTTL)
	}
	switch {
	case s.AttemptTimeout == 0:
		s.AttemptTimeout = DefaultAttemptTimeout
	case s.AttemptTimeout < 0:
		return EffectiveConfig{}, invalid("scrape.attempt_timeout 必须 > 0，实际是 %s", s.AttemptTimeout)
	}
	if s.SourceConcurrency < 1 {
		s.SourceConcurrency = DefaultSourceConcurrency
	}
	if s.SourceConcurrency > MaxSourceConcurrency {
		s.SourceConcurrency = MaxSourceConcurrency
	}
	s.UserAgents = append([]string(nil), s.UserAgents...)
	s.ProxyURL = strings.TrimSpace(s.ProxyURL)
	if s.ProxyURL != "" {
		u, err := url.Parse(s.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("scrape.proxy_url 无效：%q", s.ProxyURL)
		}
	}

	// cache
	eff.Cache.Backend = strings.ToLower(strings.TrimSpace(eff.Cache.Backend))
	if eff.Cache.Backend == "" {
		eff.Cache.Backend = CacheMemory
	}
	switch eff.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(eff.Cache.Redis.Addr) == "" {
			return EffectiveConfig{}, missing("cache.redis.addr")
		}
	default:
		return EffectiveConfig{}, invalid("cache.backend 只能是 memory 或 redis，实际是 %q", eff.Cache.Backend)
	}

	// store
	eff.Store.Driver = strings.ToLower(strings.TrimSpace(eff.Store.Driver))
	if eff.Store.Driver == "" {
		eff.Store.Driver = DefaultStoreDriver
	}
	eff.Store.DSN = strings.TrimSpace(eff.Store.DSN)
	switch eff.Store.Driver {
	case StoreSQLite:
		if eff.Store.DSN == "" {
			eff.Store.DSN = DefaultStoreDSN
		}
	case StorePostgres, StoreJSON:
		if eff.Store.DSN == "" {
			return EffectiveConfig{}, missing("store.dsn")
		}
	default:
		return EffectiveConfig{}, invalid("store.driver 只能是 sqlite3/postgres/json，实际是 %q", eff.Store.Driver)
	}

	// notify
	n := &eff.Notify
	n.AdminEmail = strings.TrimSpace(n.AdminEmail)
	if n.SMTP.Port == 0 {
		n.SMTP.Port = DefaultSMTPPort
	}
	if n.AdminEnabled {
		if n.AdminEmail == "" {
			return EffectiveConfig{}, missing("notify.admin_email")
		}
		if strings.TrimSpace(n.SMTP.Host) == "" {
			return EffectiveConfig{}, missing("notify.smtp.host")
		}
		if strings.TrimSpace(n.SMTP.From) == "" {
			n.SMTP.From = n.SMTP.Username
		}
	}

	// server
	if strings.TrimSpace(eff.Server.Host) == "" {
		eff.Server.Host = DefaultServerHost
	}
	if eff.Server.Port == 0 {
		eff.Server.Port = DefaultServerPort
	}
	if eff.Server.Port < 0 || eff.Server.Port > 65535 {
		return EffectiveConfig{}, invalid("server.port 超出范围：%d", eff.Server.Port)
	}
	eff.Server.AllowedOrigins = append([]string(nil), eff.Server.AllowedOrigins...)

	// tracing
	if eff.Tracing.Enabled && strings.TrimSpace(eff.Tracing.Endpoint) == "" {
		return EffectiveConfig{}, missing("tracing.endpoint")
	}
	if strings.TrimSpace(eff.Tracing.ServiceName) == "" {
		eff.Tracing.ServiceName = "giftvault-ingest"
	}

	// providers
	for name, pc := range fc.Providers {
		kind, err := domain.ParseKind(name)
		if err != nil {
			return EffectiveConfig{}, invalid("providers：%v", err)
		}
		for i, src := range pc.Sources {
			if strings.TrimSpace(src.Name) == "" {
				return EffectiveConfig{}, missing(fmt.Sprintf("providers.%s.sources[%d].name", kind, i))
			}
			u, err := url.Parse(strings.TrimSpace(src.URL))
			if err != nil || u.Scheme == "" || u.Host == "" {
				return EffectiveConfig{}, invalid("providers.%s.sources[%d].url 无效：%q", kind, i, src.URL)
			}
		}
		pc.Sources = append([]SourceConfig(nil), pc.Sources...)
		eff.Providers[kind] = pc
	}

	return eff, nil
}

// applyEnv 把 INGEST_* 环境变量覆盖到 fc 上（只覆盖实际设置了的变量）。
func applyEnv(fc *FileConfig, lookup LookupEnv) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s 不是整数：%q", key, v)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s 不是合法时长：%q", key, v)
		}
		*dst = d
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s 不是布尔值：%q", key, v)
		}
		*dst = b
		return nil
	}

	str("INGEST_LOG_LEVEL", &fc.Log.Level)
	str("INGEST_LOG_FORMAT", &fc.Log.Format)
	str("INGEST_ENV", &fc.Log.Env)
	str("INGEST_PROXY_URL", &fc.Scrape.ProxyURL)
	str("INGEST_CACHE_BACKEND", &fc.Cache.Backend)
	str("INGEST_REDIS_ADDR", &fc.Cache.Redis.Addr)
	str("INGEST_REDIS_PASSWORD", &fc.Cache.Redis.Password)
	str("INGEST_DB_DRIVER", &fc.Store.Driver)
	str("INGEST_DB_DSN", &fc.Store.DSN)
	str("INGEST_ADMIN_EMAIL", &fc.Notify.AdminEmail)
	str("INGEST_SMTP_HOST", &fc.Notify.SMTP.Host)
	str("INGEST_SMTP_USERNAME", &fc.Notify.SMTP.Username)
	str("INGEST_SMTP_PASSWORD", &fc.Notify.SMTP.Password)
	str("INGEST_SMTP_FROM", &fc.Notify.SMTP.From)
	str("INGEST_SERVER_HOST", &fc.Server.Host)
	str("INGEST_JWT_SECRET", &fc.Server.JWTSecret)
	str("INGEST_TRACING_ENDPOINT", &fc.Tracing.Endpoint)

	for _, e := range []error{
		num("INGEST_RETRY_COUNT", &fc.Scrape.RetryCount),
		num("INGEST_SOURCE_CONCURRENCY", &fc.Scrape.SourceConcurrency),
		num("INGEST_REDIS_DB", &fc.Cache.Redis.DB),
		num("INGEST_SMTP_PORT", &fc.Notify.SMTP.Port),
		num("INGEST_SERVER_PORT", &fc.Server.Port),
		dur("INGEST_CACHE_TTL", &fc.Scrape.CacheTTL),
		dur("INGEST_ATTEMPT_TIMEOUT", &fc.Scrape.AttemptTimeout),
		flag("INGEST_ADMIN_NOTIFICATIONS", &fc.Notify.AdminEnabled),
		flag("INGEST_TRACING_ENABLED", &fc.Tracing.Enabled),
	} {
		if e != nil {
			return e
		}
	}
	return nil
}

// loadDotEnv 读取 .env（可选）。envFile 为空时尝试 <cwd>/.env。
func loadDotEnv(cwd, envFile string) error {
	explicit := strings.TrimSpace(envFile) != ""
	p := envFile
	if !explicit {
		p = filepath.Join(cwd, ".env")
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return err
	}
	return godotenv.Load(p)
}

func pathOrEnv(p string) string {
	if p == "" {
		return "<env>"
	}
	return p
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件（未知字段报错）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
