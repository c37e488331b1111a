package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"birdrescue-server-go/src/configs"
	"birdrescue-server-go/src/configs/database"
	cfgserver "birdrescue-server-go/src/configs/server"
	"birdrescue-server-go/src/core/auth"
	"birdrescue-server-go/src/core/image"
	"birdrescue-server-go/src/core/providers/dragoneye"
	"birdrescue-server-go/src/core/providers/lookup"
	"birdrescue-server-go/src/core/utils"
	"birdrescue-server-go/src/intake"
	"birdrescue-server-go/src/predict"
	"birdrescue-server-go/src/site"

	// 导入所有providers以确保init函数被调用
	_ "birdrescue-server-go/src/core/providers/lookup/ollama"
	_ "birdrescue-server-go/src/core/providers/lookup/openai"
	_ "birdrescue-server-go/src/core/providers/lookup/static"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = 10 * time.Minute

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	// 加载配置,默认使用.config.yaml
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))

	return config, logger, nil
}

// sessionSecret 读取会话签名密钥，未配置时生成临时密钥，重启后旧会话失效
func sessionSecret(config *configs.Config, logger *utils.Logger) (string, error) {
	if secret := os.Getenv(config.Server.SessionSecretEnv); secret != "" {
		return secret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	logger.Warn(fmt.Sprintf("未设置 %s，使用临时会话密钥，重启后草稿会话将失效", config.Server.SessionSecretEnv))
	return hex.EncodeToString(buf), nil
}

// databaseDSN 环境变量优先于配置文件
func databaseDSN(config *configs.Config) string {
	if config.Database.DSNEnv != "" {
		if dsn := os.Getenv(config.Database.DSNEnv); dsn != "" {
			return dsn
		}
	}
	return config.Database.DSN
}

// newIdentifier 配置了代理地址时走代理接口，否则服务端直连
func newIdentifier(config *configs.Config, client *dragoneye.Client, logger *utils.Logger) intake.Identifier {
	timeout := configs.ParseTimeout(config.Predict.Timeout, 30*time.Second)
	if config.Predict.ProxyURL != "" {
		logger.Info(fmt.Sprintf("识别流程通过代理接口: %s", config.Predict.ProxyURL))
		return intake.NewProxyIdentifier(config.Predict.ProxyURL, timeout)
	}
	return intake.NewDirectIdentifier(client)
}

// newLookup 创建补充查询提供者，失败时不做补充查询
func newLookup(config *configs.Config, logger *utils.Logger) intake.Lookup {
	cfg := &lookup.Config{
		Type:        config.Lookup.Type,
		ModelName:   config.Lookup.ModelName,
		BaseURL:     config.Lookup.BaseURL,
		Temperature: config.Lookup.Temperature,
		MaxTokens:   config.Lookup.MaxTokens,
		Timeout:     configs.ParseTimeout(config.Lookup.Timeout, 15*time.Second),
	}
	if config.Lookup.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(config.Lookup.APIKeyEnv)
	}

	provider, err := lookup.Create(config.Lookup.Type, cfg, logger)
	if err != nil {
		logger.Warn(fmt.Sprintf("补充查询不可用: %v", err))
		return nil
	}
	logger.Info(fmt.Sprintf("补充查询提供者: %s", config.Lookup.Type))
	return provider
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	// 初始化Gin引擎
	if config.Log.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.SetTrustedProxies([]string{"0.0.0.0"})

	// 初始化数据库连接
	db, dbType, err := database.InitDB(databaseDSN(config))
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info(fmt.Sprintf("数据库连接成功: %s", dbType))

	secret, err := sessionSecret(config, logger)
	if err != nil {
		return nil, err
	}
	authToken, err := auth.NewAuthToken(secret)
	if err != nil {
		return nil, err
	}

	client := dragoneye.NewClient(&dragoneye.Config{
		Endpoint:  config.Predict.Endpoint,
		ModelName: config.Predict.ModelName,
		APIKey:    os.Getenv(config.Predict.APIKeyEnv),
		Timeout:   configs.ParseTimeout(config.Predict.Timeout, 30*time.Second),
	}, logger)
	if !client.HasCredential() {
		logger.Warn(fmt.Sprintf("未设置 %s，识别请求将全部失败", config.Predict.APIKeyEnv))
	}

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")

	// 识别代理和公开配置不需要会话
	predictService := predict.NewDefaultPredictService(client, logger)
	if err := predictService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("识别代理服务启动失败", err)
		return nil, err
	}

	cfgService, err := cfgserver.NewDefaultCfgService(config, logger)
	if err != nil {
		return nil, err
	}
	if err := cfgService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("Cfg 服务启动失败", err)
		return nil, err
	}

	hub := intake.NewStatusHub(logger)
	intakeService := intake.NewService(intake.Options{
		Store:      intake.NewGormDraftStore(db),
		Processor:  image.NewImageProcessor(&config.Upload, logger),
		Identifier: newIdentifier(config, client, logger),
		Lookup:     newLookup(config, logger),
		Notifier:   hub,
		Logger:     logger,
	})
	g.Go(func() error {
		intakeService.RunJanitor(groupCtx, janitorInterval)
		return nil
	})

	// 之后注册的路由都带会话中间件，分组需要在 Use 之后重新创建
	router.Use(auth.SessionMiddleware(authToken, config.Server.SecureCookie))
	sessionAPI := router.Group("/api")

	intakeHTTP := intake.NewDefaultIntakeService(intakeService, hub, logger)
	if err := intakeHTTP.Start(groupCtx, router, sessionAPI); err != nil {
		logger.Error("报告表单服务启动失败", err)
		return nil, err
	}

	siteService, err := site.NewDefaultSiteService(config, intakeService, logger)
	if err != nil {
		return nil, err
	}
	if err := siteService.Start(groupCtx, router, sessionAPI); err != nil {
		logger.Error("站点页面启动失败", err)
		return nil, err
	}

	// HTTP Server（支持优雅关机）
	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s:%d", config.Server.IP, config.Server.Port))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			// 创建关闭超时上下文
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", err)
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) {
	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 等待信号
	sig := <-sigChan
	logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))

	// 取消上下文，通知所有服务开始关闭
	cancel()

	// 等待所有服务关闭，设置超时保护
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", err)
			os.Exit(1)
		}
		logger.Info("所有服务已优雅关闭")
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		os.Exit(1)
	}
}

func main() {
	// 加载 .env 文件，需要在读取配置中的环境变量之前
	envErr := godotenv.Load()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()
	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, g, groupCtx); err != nil {
		logger.Error(fmt.Sprintf("启动 Http 服务失败: %v", err))
		cancel()
		os.Exit(1)
	}

	// 启动优雅关机处理
	GracefulShutdown(cancel, logger, g)

	logger.Info("程序已成功退出")
}
