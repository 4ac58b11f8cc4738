package dependency

import (
	"time"

	"konung-miniapp-svc/src/clients"
	"konung-miniapp-svc/src/internal/activity"
	"konung-miniapp-svc/src/internal/auth"
	"konung-miniapp-svc/src/internal/bot"
	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/dialog"
	"konung-miniapp-svc/src/internal/session"
	"konung-miniapp-svc/src/internal/storage"
	"konung-miniapp-svc/src/internal/user"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router        *gin.Engine
	Config        *config.Configuration
	Mongodb       *clients.MongoDB
	Redis         *clients.RedisClient
	RabbitMQ      *clients.RabbitMQ
	Store         storage.Store
	Users         user.Repository
	UserDirectory user.Directory
	UserService   user.Service
	UserHandler   user.Handler
	Sessions      session.Repository
	Issuer        *session.Issuer
	Activity      activity.Cache
	AuthService   auth.Service
	AuthHandler   *auth.Handler
	Engine        *dialog.Engine
	Bot           *bot.Bot
	Publisher     *clients.ActivityPublisher
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	store := storage.NewRedisStore(redisClient.Client)
	users := user.NewUserRepository(store)
	userDirectory := user.NewUserDirectory(mongodb, cfg.Database.UserCollection)
	userService := user.NewUserService(userDirectory, cfg)
	userHandler := user.NewHandler(cfg, userService, store)

	sessions := session.NewRepository(store)
	issuer := session.NewIssuer(sessions, time.Duration(cfg.Session.TTLHours)*time.Hour)
	activityCache := activity.NewCache(store)

	publisher := clients.NewActivityPublisher(cfg, rabbitMQ.Channel)

	authService := auth.NewAuthService(sessions, users)
	authHandler := auth.NewHandler(cfg, authService, publisher)

	engine := dialog.NewEngine(store)
	telegram := clients.NewTelegramClient(cfg)
	chatBot := bot.New(cfg, engine, users, userDirectory, issuer, activityCache, telegram, publisher)

	return &Manager{
		Router:        router,
		Config:        cfg,
		Mongodb:       mongodb,
		Redis:         redisClient,
		RabbitMQ:      rabbitMQ,
		Store:         store,
		Users:         users,
		UserDirectory: userDirectory,
		UserService:   userService,
		UserHandler:   userHandler,
		Sessions:      sessions,
		Issuer:        issuer,
		Activity:      activityCache,
		AuthService:   authService,
		AuthHandler:   authHandler,
		Engine:        engine,
		Bot:           chatBot,
		Publisher:     publisher,
	}
}
