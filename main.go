package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/anydoor/anydoor/internal/config"
	"github.com/anydoor/anydoor/internal/fsys"
	"github.com/anydoor/anydoor/internal/listing"
	"github.com/anydoor/anydoor/internal/logging"
	"github.com/anydoor/anydoor/internal/metrics"
	"github.com/anydoor/anydoor/internal/serve"
	"github.com/anydoor/anydoor/internal/server"
	"github.com/anydoor/anydoor/internal/server/routes"
	"github.com/anydoor/anydoor/internal/version"
)

const (
	defaultConfigFile = "anydoor.toml"
	shutdownTimeout   = 10 * time.Second
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	// overrides 仅包含显式传入的 -root/-host/-port，key 与 TOML 字段同名。
	overrides map[string]any
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

	cfg, err := config.LoadWithOverrides(opts.configPath, opts.overrides)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["config"] = cfg.Summary()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 文件存储 → 模板 → 指标 → 分发器 → Fiber server，
	// 所有请求共享同一组只读实例。
	store, err := fsys.NewStore(cfg.Server.Root)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化根目录失败: %v\n", err)
		return 1
	}

	renderer, err := listing.NewRenderer()
	if err != nil {
		fmt.Fprintf(stdErr, "加载目录模板失败: %v\n", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	handler, err := serve.NewHandler(serve.Options{
		Config:   cfg,
		Store:    store,
		Renderer: renderer,
		Logger:   logger,
		Metrics:  recorder,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建请求分发器失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["config"] = cfg.Summary()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	return startHTTPServer(cfg, handler, recorder, logger)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("anydoor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		root       string
		host       string
		port       int
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./anydoor.toml，可被 ANYDOOR_CONFIG 覆盖）")
	fs.StringVar(&root, "root", "", "服务根目录，覆盖配置文件中的 Root")
	fs.StringVar(&host, "host", "", "监听地址，覆盖配置文件中的 Host")
	fs.IntVar(&port, "port", 0, "监听端口，覆盖配置文件中的 Port")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("解析参数失败: 未知参数 %v", fs.Args())
	}

	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			overrides["Root"] = root
		case "host":
			overrides["Host"] = host
		case "port":
			overrides["Port"] = port
		}
	})

	return cliOptions{
		configPath:  resolveConfigPath(configFlag),
		checkOnly:   checkOnly,
		showVersion: showVer,
		overrides:   overrides,
	}, nil
}

// resolveConfigPath 优先级：-config > ANYDOOR_CONFIG > 当前目录存在的 anydoor.toml > 无配置文件。
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("ANYDOOR_CONFIG"); env != "" {
		return env
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func startHTTPServer(cfg *config.Config, handler *serve.Handler, recorder *metrics.Recorder, logger *logrus.Logger) int {
	resolver, err := server.NewResolver(cfg.Server.Root)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化路径解析失败: %v\n", err)
		return 1
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:   logger,
		Resolver: resolver,
		Files:    handler,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务构建失败: %v\n", err)
		return 1
	}
	routes.RegisterDiagnosticsRoutes(app, cfg, recorder)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   cfg.Server.Addr(),
		"root":   cfg.Server.Root,
	}).Info("Fiber 服务启动")

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.Server.Addr(), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"fiber": func(ctx context.Context) error {
			logger.WithField("action", "shutdown").Info("等待进行中的请求结束")
			return app.ShutdownWithContext(ctx)
		},
	})

	select {
	case err := <-listenErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	case code := <-wait:
		logger.WithFields(logrus.Fields{"action": "shutdown", "exit_code": code}).Info("服务已停止")
		return code
	}
}
