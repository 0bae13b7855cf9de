package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/giftvault/ingest/internal/config"
	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/infra/fsx"
	"github.com/giftvault/ingest/internal/ingest"
	"github.com/giftvault/ingest/internal/logger"
	"github.com/giftvault/ingest/internal/server"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	var code int
	switch args[0] {
	case "run":
		code = runCmd(args[1:])
	case "serve":
		code = serveCmd(args[1:])
	case "providers":
		code = providersCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

type cliArgs struct {
	Config   string
	EnvFile  string
	Provider domain.ProviderKind
	Out      string
}

// parseArgs 解析子命令参数。allowRun 为 false 时拒绝 run 专属参数。
func parseArgs(args []string, allowRun bool) (cliArgs, error) {
	var ca cliArgs
	for i := 0; i < len(args); i++ {
		a := args[i]
		name, val, hasVal := strings.Cut(a, "=")
		if !strings.HasPrefix(name, "--") {
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		switch name {
		case "--config", "--env-file", "--provider", "--out":
		default:
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if !allowRun && (name == "--provider" || name == "--out") {
			return cliArgs{}, fmt.Errorf("参数 %s 只适用于 run", name)
		}
		if !hasVal {
			if i+1 >= len(args) {
				return cliArgs{}, fmt.Errorf("%s 需要一个值", name)
			}
			i++
			val = args[i]
		}
		if strings.TrimSpace(val) == "" {
			return cliArgs{}, fmt.Errorf("%s 不能为空", name)
		}

		switch name {
		case "--config":
			ca.Config = val
		case "--env-file":
			ca.EnvFile = val
		case "--provider":
			k, err := domain.ParseKind(val)
			if err != nil {
				return cliArgs{}, err
			}
			ca.Provider = k
		case "--out":
			ca.Out = val
		}
	}
	return ca, nil
}

// setup 读取配置并构造 logger。失败时已向 stderr 输出原因。
func setup(ca cliArgs) (config.EffectiveConfig, *zap.Logger, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return config.EffectiveConfig{}, nil, false
	}
	cfg, err := config.Load(cwd, config.CLIArgs{ConfigPath: ca.Config, EnvFile: ca.EnvFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误（%s）：%v\n", config.Code(err), err)
		return config.EffectiveConfig{}, nil, false
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Env: cfg.Log.Env})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return config.EffectiveConfig{}, nil, false
	}
	return cfg, log, true
}

func runCmd(args []string) int {
	if len(args) > 0 && isHelp(args[0]) {
		printRunUsage(os.Stdout)
		return 0
	}
	ca, err := parseArgs(args, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage(os.Stderr)
		return 2
	}
	cfg, log, ok := setup(ca)
	if !ok {
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter()
	var ui *progressUI
	var obs ingest.Observer
	if interactive {
		ui = newProgressUI(progressW)
		obs = ui
	}

	a, err := buildApp(ctx, cfg, log, obs)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(sctx); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	kinds := a.coord.Kinds()
	if ca.Provider != "" {
		kinds = []domain.ProviderKind{ca.Provider}
	}
	if ui != nil {
		total := 0
		for _, k := range kinds {
			total += len(a.coord.Sources(k))
		}
		ui.Start(cfg, kinds, total)
		defer ui.Stop()
	}

	var rr domain.RunReport
	if ca.Provider != "" {
		_, rr, err = a.coord.ScrapeProvider(ctx, ca.Provider)
		if err != nil {
			log.Error("provider run failed", zap.String("provider", string(ca.Provider)), zap.Error(err))
		}
	} else {
		rr = a.coord.ScrapeAll(ctx)
	}

	if ca.Out != "" {
		if werr := fsx.WriteJSONAtomic(ca.Out, rr); werr != nil {
			fmt.Fprintf(os.Stderr, "写入 %s 失败：%v\n", ca.Out, werr)
			emitReport(os.Stdout, os.Stderr, rr, isTTY(os.Stdout))
			return 1
		}
	}

	emitReport(os.Stdout, os.Stderr, rr, isTTY(os.Stdout))
	if ui != nil && ca.Out != "" {
		fmt.Fprintf(progressW, "report: %s\n", ca.Out)
	}
	if err != nil || rr.Summary.Failed > 0 {
		return 1
	}
	return 0
}

func serveCmd(args []string) int {
	if len(args) > 0 && isHelp(args[0]) {
		printUsage(os.Stdout)
		return 0
	}
	ca, err := parseArgs(args, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}
	cfg, log, ok := setup(ca)
	if !ok {
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log, nil)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.close(sctx); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	if cfg.Server.JWTSecret == "" {
		log.Warn("jwt_secret not set: /admin routes are unauthenticated")
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.NewRouter(a.coord, a.store, server.Options{
			JWTSecret:      cfg.Server.JWTSecret,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api started", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
			return 1
		}
		log.Info("server stopped gracefully")
		return 0
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("server closed")
			return 0
		}
		log.Error("server stopped with error", zap.Error(err))
		return 1
	}
}

// providersCmd 列出启用的 provider 及其 Source（不发起网络请求）。
func providersCmd(args []string) int {
	ca, err := parseArgs(args, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cfg, err := config.Load(cwd, config.CLIArgs{ConfigPath: ca.Config, EnvFile: ca.EnvFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误（%s）：%v\n", config.Code(err), err)
		return 1
	}
	writeProviders(os.Stdout, ingest.ResolveSources(cfg.Providers))
	return 0
}

func writeProviders(w io.Writer, sources map[domain.ProviderKind][]domain.Source) {
	for _, k := range domain.AllKinds {
		srcs, ok := sources[k]
		if !ok {
			fmt.Fprintf(w, "%s (disabled)\n", k)
			continue
		}
		fmt.Fprintf(w, "%s\n", k)
		for _, s := range srcs {
			fmt.Fprintf(w, "  %s  %s\n", s.Name, s.URL)
		}
	}
}

// emitReport：stdout 是 TTY 时输出摘要（失败明细走 stderr）；否则 stdout 只输出一个 RunReport JSON。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, tty bool) {
	summary := fmt.Sprintf("完成：sources=%d ok=%d failed=%d stores=%d upserted=%d\n",
		rr.Summary.Sources, rr.Summary.Succeeded, rr.Summary.Failed, rr.Summary.Stores, rr.Summary.Upserted,
	)
	if tty {
		fmt.Fprint(stdout, summary)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.Provider
			if it.Source != "" {
				key += "/" + it.Source
			}
			fmt.Fprintf(stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	_ = json.NewEncoder(stdout).Encode(rr)
	fmt.Fprint(stderr, summary)
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  ingest run [--provider KIND] [--out FILE] [--config FILE] [--env-file FILE]
  ingest serve [--config FILE] [--env-file FILE]
  ingest providers [--config FILE] [--env-file FILE]

命令：
  run        抓取全部（或单个）provider 并 upsert Supplier
  serve      启动 HTTP 服务（/admin/scrape, /suppliers, /health）
  providers  列出启用的 provider 与 Source

使用 "ingest run --help" 查看详细说明。
`)
}

func printRunUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  ingest run [--provider KIND] [--out FILE] [--config FILE] [--env-file FILE]

参数：
  --provider  只抓取一个 provider：buyme|lovecard|goldcard|nofshonit|dreamcard|maxgiftcard
  --out       额外把 RunReport JSON 原子写入该文件
  --config    配置文件路径（未指定则读取 ./config.yaml，不存在时全部走默认值）
  --env-file  .env 文件路径（默认 ./.env，不存在则忽略）
  -h, --help  显示帮助
`)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
