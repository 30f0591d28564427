package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/appconfig"
	"github.com/UnendingLoop/WatermarkIt/internal/kafka"
	"github.com/UnendingLoop/WatermarkIt/internal/repository"
	"github.com/UnendingLoop/WatermarkIt/internal/service"
	"github.com/UnendingLoop/WatermarkIt/internal/storage"
	"github.com/UnendingLoop/WatermarkIt/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}
	settings := appconfig.Load(appConfig)

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(settings.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// подкллючиться к хранилищу
	strg := storage.NewRenderStorage(ctx, appConfig, 10*time.Second)
	// создаем экземпляр репо
	repo := repository.NewPostgresRenderRepo(dbConn)
	// создаем экземпляр сервиса - сессии воркеру не нужны
	var svc RenderWorkerService = service.NewEditorService(settings, nil, repo, NoopPublisher{}, strg, nil)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, settings.KafkaBroker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is unreachable: %v", err)
	}
	kafka.InitKafkaTopics(ctx, settings.KafkaBroker, 10*time.Second, settings.KafkaTopic)

	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{settings.KafkaBroker}, settings.KafkaTopic, settings.KafkaGroupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	thumbnailer := worker.NewWorkerInstance(strg, svc, queue, cons, settings.ThumbPrefix, settings.ThumbSize)
	go thumbnailer.StartWorker(ctx)
	zlog.Logger.Info().Str("topic", settings.KafkaTopic).Int("thumb_size", settings.ThumbSize).Msg("Thumbnail worker started")

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
