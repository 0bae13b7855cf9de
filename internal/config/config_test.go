package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giftvault/ingest/internal/domain"
)

func envMap(m map[string]string) LookupEnv {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadWith_DefaultsWithoutFile(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadWith(cwd, CLIArgs{}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("期望未使用配置文件，实际 %q", eff.ConfigPath)
	}
	if eff.Scrape.RetryCount != DefaultRetryCount || eff.Scrape.CacheTTL != DefaultCacheTTL {
		t.Fatalf("默认值不符合预期：%+v", eff.Scrape)
	}
	if eff.Scrape.AttemptTimeout != DefaultAttemptTimeout || eff.Scrape.SourceConcurrency != 1 {
		t.Fatalf("默认值不符合预期：%+v", eff.Scrape)
	}
	if eff.Cache.Backend != CacheMemory || eff.Store.Driver != StoreSQLite || eff.Store.DSN != DefaultStoreDSN {
		t.Fatalf("默认值不符合预期：cache=%+v store=%+v", eff.Cache, eff.Store)
	}
	if eff.Addr() != "127.0.0.1:8080" {
		t.Fatalf("期望默认监听 127.0.0.1:8080，实际 %q", eff.Addr())
	}
}

func TestLoadWith_ExplicitPathNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadWith(cwd, CLIArgs{ConfigPath: "missing.yaml"}, nil)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadWith_FileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
log:
  level: debug
  format: json
scrape:
  retry_count: 5
  cache_ttl: 30m
  attempt_timeout: 5s
  source_concurrency: 4
  user_agents: ["ua-1", "ua-2"]
store:
  driver: postgres
  dsn: postgres://u:p@localhost/giftvault?sslmode=disable
providers:
  nofshonit:
    organization_id: org-1
  dreamcard:
    disabled: true
  buyme:
    sources:
      - name: BuyMe - Food
        url: https://example.test/buyme/food
`))

	eff, err := LoadWith(cwd, CLIArgs{}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, DefaultFileName) {
		t.Fatalf("期望读取默认配置文件，实际 %q", eff.ConfigPath)
	}
	if eff.Log.Level != "debug" || eff.Log.Format != "json" {
		t.Fatalf("log 不符合预期：%+v", eff.Log)
	}
	if eff.Scrape.RetryCount != 5 || eff.Scrape.CacheTTL != 30*time.Minute || eff.Scrape.AttemptTimeout != 5*time.Second {
		t.Fatalf("scrape 不符合预期：%+v", eff.Scrape)
	}
	if eff.Scrape.SourceConcurrency != 4 || len(eff.Scrape.UserAgents) != 2 {
		t.Fatalf("scrape 不符合预期：%+v", eff.Scrape)
	}
	if eff.Store.Driver != StorePostgres {
		t.Fatalf("store 不符合预期：%+v", eff.Store)
	}
	if eff.Providers[domain.KindNofshonit].OrganizationID != "org-1" {
		t.Fatalf("providers.nofshonit 不符合预期：%+v", eff.Providers)
	}
	if !eff.Providers[domain.KindDreamCard].Disabled {
		t.Fatalf("期望 dreamcard disabled")
	}
	if got := eff.Providers[domain.KindBuyMe].Sources; len(got) != 1 || got[0].Name != "BuyMe - Food" {
		t.Fatalf("providers.buyme.sources 不符合预期：%+v", got)
	}
}

func TestLoadWith_EnvOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("scrape:\n  retry_count: 5\n"))

	eff, err := LoadWith(cwd, CLIArgs{}, envMap(map[string]string{
		"INGEST_RETRY_COUNT":         "2",
		"INGEST_CACHE_TTL":           "1m",
		"INGEST_ADMIN_NOTIFICATIONS": "true",
		"INGEST_ADMIN_EMAIL":         "ops@example.test",
		"INGEST_SMTP_HOST":           "smtp.example.test",
		"INGEST_SMTP_USERNAME":       "bot@example.test",
	}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Scrape.RetryCount != 2 || eff.Scrape.CacheTTL != time.Minute {
		t.Fatalf("环境变量应覆盖配置文件：%+v", eff.Scrape)
	}
	if !eff.Notify.AdminEnabled || eff.Notify.AdminEmail != "ops@example.test" {
		t.Fatalf("notify 不符合预期：%+v", eff.Notify)
	}
	if eff.Notify.SMTP.From != "bot@example.test" || eff.Notify.SMTP.Port != DefaultSMTPPort {
		t.Fatalf("smtp 默认值不符合预期：%+v", eff.Notify.SMTP)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "scrape:\n  retries: 3\n",
		"negative retry":   "scrape:\n  retry_count: -1\n",
		"unknown provider": "providers:\n  amazon: {}\n",
		"bad driver":       "store:\n  driver: mongo\n",
		"bad source url":   "providers:\n  buyme:\n    sources:\n      - name: x\n        url: not-a-url\n",
		"bad yaml":         "scrape: [\n",
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(body))
		_, err := LoadWith(cwd, CLIArgs{}, nil)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadWith_MissingRequired(t *testing.T) {
	cases := map[string]string{
		"admin email": "notify:\n  admin_enabled: true\n  smtp:\n    host: smtp.test\n",
		"smtp host":   "notify:\n  admin_enabled: true\n  admin_email: a@b.c\n",
		"redis addr":  "cache:\n  backend: redis\n",
		"pg dsn":      "store:\n  driver: postgres\n",
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(body))
		_, err := LoadWith(cwd, CLIArgs{}, nil)
		if Code(err) != ErrCodeMissingRequired {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeMissingRequired, err, Code(err))
		}
	}
}

func TestLoadWith_BadEnvValue(t *testing.T) {
	_, err := LoadWith(t.TempDir(), CLIArgs{}, envMap(map[string]string{"INGEST_CACHE_TTL": "ten minutes"}))
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func TestLoad_DotEnvFillsUnsetVars(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("INGEST_TEST_DOTENV_RETRY=7\n"))

	os.Unsetenv("INGEST_TEST_DOTENV_RETRY")
	t.Cleanup(func() { os.Unsetenv("INGEST_TEST_DOTENV_RETRY") })

	if _, err := Load(cwd, CLIArgs{}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if v := os.Getenv("INGEST_TEST_DOTENV_RETRY"); v != "7" {
		t.Fatalf("期望 .env 注入变量，实际 %q", v)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
