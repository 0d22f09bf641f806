package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rprusd/thumbhub/internal/browser"
	"github.com/rprusd/thumbhub/internal/config"
	"github.com/rprusd/thumbhub/internal/logging"
	"github.com/rprusd/thumbhub/internal/server"
	"github.com/rprusd/thumbhub/internal/server/routes"
	"github.com/rprusd/thumbhub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	serve       bool
	catalog     string
	limit       int
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["catalogs"] = config.CatalogNames(cfg.Catalogs)
		fields["credentials"] = config.CredentialModes(cfg.Catalogs)
		fields["cache_root"] = cfg.Global.CacheRoot
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	registry, err := server.NewCatalogRegistry(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "构建目录注册表失败: %v\n", err)
		return 1
	}
	if opts.catalog != "" {
		if _, ok := registry.Lookup(opts.catalog); !ok {
			fmt.Fprintf(stdErr, "未配置的目录: %s\n", opts.catalog)
			return 1
		}
	}

	// 启动顺序：配置 → 目录注册表 → 每个目录的缓存与 Browser → 同步或 Fiber server，
	// 保证 CLI 与 HTTP 共享同一套缓存目录与下载参数。
	browsers, err := server.BuildBrowsers(cfg, registry, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缩略图缓存失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["catalogs"] = config.CatalogNames(cfg.Catalogs)
	fields["cache_root"] = cfg.Global.CacheRoot
	fields["credentials"] = config.CredentialModes(cfg.Catalogs)
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if opts.serve {
		if err := startHTTPServer(cfg, registry, browsers, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return syncCatalogs(ctx, registry, browsers, opts, logger)
}

// syncCatalogs 对每个（或指定的）目录执行一次 列表 → 补齐缩略图，并输出汇总。
// 单条缩略图失败只记录日志；目录列表本身失败时返回非零退出码。
func syncCatalogs(ctx context.Context, registry *server.CatalogRegistry, browsers map[string]*browser.Browser, opts cliOptions, logger *logrus.Logger) int {
	code := 0
	for _, route := range registry.List() {
		name := route.Config.Name
		if opts.catalog != "" && opts.catalog != name {
			continue
		}

		view, err := browsers[name].Load(ctx, opts.limit)
		if err != nil {
			logger.WithFields(logging.CatalogFields(name, route.Kind.Key, route.CacheDir)).
				WithError(err).Error("目录同步失败")
			fmt.Fprintf(stdErr, "%s: %v\n", name, err)
			code = 1
			continue
		}

		fmt.Fprintf(stdOut, "%s: total=%d hits=%d fetched=%d failed=%d dir=%s\n",
			name, view.Summary.Total, view.Summary.Hits, view.Summary.Fetched, view.Summary.Failed, route.CacheDir)
	}
	return code
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("thumbhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		serve      bool
		catalog    string
		limit      int
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 THUMBHUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&serve, "serve", false, "启动本地 HTTP 服务，而不是执行一次同步")
	fs.StringVar(&catalog, "catalog", "", "只同步指定名称的目录")
	fs.IntVar(&limit, "limit", 0, "覆盖目录列表的 limit 参数（默认使用配置中的 Limit）")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if limit < 0 {
		return cliOptions{}, fmt.Errorf("limit 不能为负数: %d", limit)
	}

	path := os.Getenv("THUMBHUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		serve:       serve,
		catalog:     catalog,
		limit:       limit,
	}, nil
}

func startHTTPServer(cfg *config.Config, registry *server.CatalogRegistry, browsers map[string]*browser.Browser, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterCatalogRoutes(app, registry, browsers)
	routes.RegisterAssetRoutes(app, registry, browsers, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
