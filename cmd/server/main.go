package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school-im/config"
	"school-im/internal/broker"
	"school-im/internal/handler"
	"school-im/internal/model"
	"school-im/internal/repository"
	"school-im/internal/service"
	"school-im/pkg/cache"
	dbPkg "school-im/pkg/db"
	"school-im/pkg/jwt"
	"school-im/pkg/logger"
	"school-im/pkg/metrics"
	"school-im/pkg/response"
	"school-im/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== 家校通讯系统启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Guardianship{},
		&model.TeachingAssignment{},
		&model.ChatRoom{},
		&model.ChatRoomMember{},
		&model.ChatMessage{},
	); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 初始化缓存层
	chatCache, err := cache.New(cfg.Redis, cfg.Chat)
	if err != nil {
		log.Fatal("Redis连接失败", zap.Error(err))
	}
	defer func() {
		if err := chatCache.Close(); err != nil {
			log.Error("关闭Redis连接失败", zap.Error(err))
		}
	}()
	log.Info("Redis连接成功")

	// 3.3 注册监控指标
	metrics.Register()

	// 3.4 初始化业务服务
	db := dbPkg.GetDB()
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	eventBroker := broker.New()
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	verifier := service.NewRelationshipVerifier(studentRepo)
	resolver := service.NewRoomResolver(roomRepo, verifier)
	userSvc := service.NewUserService(userRepo, jwtSvc)
	chatSvc := service.NewChatService(messageRepo, roomRepo, userRepo, studentRepo, resolver, chatCache, eventBroker, cfg.Chat.RecentLimit)

	userHandler := handler.NewUserHandler(userSvc, chatSvc)
	chatHandler := handler.NewChatHandler(chatSvc)

	// 3.5 启动WebSocket分发与未读计数对账任务
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	wsManager := websocket.NewManager(eventBroker)
	go wsManager.Run(rootCtx)
	wsHandler := websocket.NewHandler(wsManager, jwtSvc, chatSvc, userRepo, cfg.WebSocket)

	if cfg.Chat.ReconcileEnabled {
		reconciler := service.NewReconciler(chatCache, messageRepo, cfg.Chat.ReconcileCron)
		stop, err := reconciler.Start(rootCtx)
		if err != nil {
			log.Fatal("对账任务启动失败", zap.Error(err))
		}
		defer stop()
	}

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()

	// 使用中间件
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件

	// 6. 设置基础路由
	setupBasicRoutes(router, chatCache)

	// 6.1 绑定业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.GET("/:user_id/presence", userHandler.GetPresence)
			}
		}

		// 聊天路由（需要认证）
		chat := v1.Group("/chat")
		chat.Use(jwtSvc.AuthMiddleware())
		{
			chat.POST("/messages", chatHandler.SendMessage)                    // 发送消息
			chat.PUT("/messages/:message_id/read", chatHandler.MarkMessageRead) // 标记单条消息已读
			chat.DELETE("/messages/:message_id", chatHandler.DeleteMessage)    // 删除消息(hard=true时硬删除)
			chat.GET("/rooms", chatHandler.GetRooms)                           // 聊天室列表
			chat.POST("/rooms/resolve", chatHandler.ResolveRoom)               // 解析/创建聊天室
			chat.GET("/rooms/:room_id/messages", chatHandler.GetHistory)       // 消息历史
			chat.PUT("/rooms/:room_id/read", chatHandler.MarkRoomRead)         // 聊天室全部已读
			chat.GET("/rooms/:room_id/unread", chatHandler.GetRoomUnreadCount) // 聊天室未读数
			chat.GET("/unread/count", chatHandler.GetUnreadCount)              // 全部未读数
			chat.GET("/unread/rooms", chatHandler.GetUnreadRooms)              // 有未读的聊天室
		}

		// 学生名册路由（需要认证）
		students := v1.Group("/students")
		students.Use(jwtSvc.AuthMiddleware())
		{
			students.GET("", chatHandler.GetMyStudents)                        // 家长监护的学生列表
			students.GET("/:student_id/recipients", chatHandler.GetRecipients) // 学生的任课教师
		}
	}

	// WebSocket路由
	router.GET("/ws", wsHandler.Serve)

	// 监控指标
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")
	rootCancel()

	// 设置关闭超时
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 关闭HTTP服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, chatCache *cache.Cache) {
	// 健康检查
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		} else if err := chatCache.HealthCheck(c.Request.Context()); err != nil {
			status = "cache-down"
		}
		response.Success(c, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	// 完整url为：http://localhost:8080/
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "家校通讯系统",
			"version": "1.0.0",
		})
	})
}
