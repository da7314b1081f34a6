package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/config"
	"saga-server/internal/consequence"
	"saga-server/internal/content"
	"saga-server/internal/dialogue"
	"saga-server/internal/logger"
	"saga-server/internal/messaging"
	"saga-server/internal/repository"
	"saga-server/internal/service"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Saga Server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Контент загружаем до любых подключений: без валидных арок сервису
	// нечего обслуживать.
	loader := content.NewLoader(zapLogger)
	arcs, err := loader.LoadDir(os.DirFS(cfg.ContentDir))
	if err != nil {
		zapLogger.Fatal("Не удалось загрузить контент", zap.String("dir", cfg.ContentDir), zap.Error(err))
	}
	manager, issues := arc.NewManager(arcs, zapLogger)
	if len(issues) > 0 {
		zapLogger.Warn("Content validation reported issues", zap.Int("count", len(issues)))
	}

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	if err := repository.ApplyMigrations(dbPool, zapLogger); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	var progressRepo repository.ProgressRepository = repository.NewPgProgressRepository(dbPool, zapLogger)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		progressRepo = repository.NewCachedProgressRepository(progressRepo, redisClient, cfg.CacheTTL, zapLogger)
		zapLogger.Info("Redis progress cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	updatePublisher, err := messaging.NewRabbitMQUpdatePublisher(rabbitConn, cfg.UpdateQueueName, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать UpdatePublisher", zap.Error(err))
	}
	payoffPublisher, err := messaging.NewRabbitMQPayoffPublisher(rabbitConn, cfg.PayoffQueueName, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать PayoffPublisher", zap.Error(err))
	}

	processor := dialogue.NewProcessor(manager, zapLogger)
	engine := consequence.NewEngine(
		consequence.NewFactionGraph(consequence.DefaultFactions()),
		consequence.DefaultPatterns(),
		consequence.DefaultMoments(),
	)
	storyService := service.NewStoryService(progressRepo, processor, engine, manager, updatePublisher, payoffPublisher, zapLogger)

	actionConsumer := messaging.NewActionConsumer(rabbitConn, storyService, cfg.ActionQueueName, zapLogger)
	go func() {
		if err := actionConsumer.StartConsuming(); err != nil {
			zapLogger.Error("Консьюмер действий завершился с ошибкой", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	actionConsumer.Stop()

	log.Println("Saga Server успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
