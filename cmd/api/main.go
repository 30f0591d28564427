// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/appconfig"
	"github.com/UnendingLoop/WatermarkIt/internal/kafka"
	"github.com/UnendingLoop/WatermarkIt/internal/metrics"
	"github.com/UnendingLoop/WatermarkIt/internal/mwlogger"
	"github.com/UnendingLoop/WatermarkIt/internal/repository"
	"github.com/UnendingLoop/WatermarkIt/internal/service"
	"github.com/UnendingLoop/WatermarkIt/internal/session"
	"github.com/UnendingLoop/WatermarkIt/internal/storage"
	"github.com/UnendingLoop/WatermarkIt/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
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
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// накатываем миграцию
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	// подключиться к хранилищу
	strg := storage.NewRenderStorage(ctx, appConfig, 10*time.Second)
	// создаем экземпляр репо
	repo := repository.NewPostgresRenderRepo(dbConn)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, settings.KafkaBroker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is unreachable: %v", err)
	}
	// подключиться к кафке как продюсер
	kafka.InitKafkaTopics(ctx, settings.KafkaBroker, 10*time.Second, settings.KafkaTopic)
	pub := wbfkafka.NewProducer([]string{settings.KafkaBroker}, settings.KafkaTopic)

	// метрики и стор живых сессий
	mtrcs := metrics.New()
	sessions := session.NewStore(settings.SessionTTL, settings.SessionLimit, mtrcs)

	// создаем экземпляр сервиса
	var svc EditorAPIService = service.NewEditorService(settings, sessions, repo, pub, strg, mtrcs)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewEditorHandler(svc, mtrcs.Handler(), settings.MaxUploadBytes)
	// сетапим сервер
	engine := ginext.New(settings.GinMode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.GET("/metrics", handlers.Metrics)

	engine.POST("/sessions", handlers.OpenSession)                    // открыть сессию с исходником
	engine.GET("/sessions/:id", handlers.SessionInfo)                 // состояние сессии
	engine.GET("/sessions/:id/image", handlers.Preview)               // текущее изображение
	engine.POST("/sessions/:id/watermark/image", handlers.ApplyImage) // наложить картинку
	engine.POST("/sessions/:id/watermark/text", handlers.ApplyText)   // наложить текст
	engine.POST("/sessions/:id/reset", handlers.Reset)                // откатить к исходнику
	engine.POST("/sessions/:id/save", handlers.Save)                  // сохранить рендер
	engine.DELETE("/sessions/:id", handlers.CloseSession)             // закрыть сессию
	engine.GET("/renders", handlers.GetRenders)                       // список рендеров с пагинацией и сортировкой
	engine.GET("/renders/:id", handlers.LoadRender)                   // скачать рендер
	engine.GET("/renders/:id/thumbnail", handlers.LoadThumbnail)      // скачать превью
	engine.DELETE("/renders/:id", handlers.DeleteRender)              // удаление

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия сервера, бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	log.Println("Exiting api...")
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Stopping HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("Failed to shutdown HTTP server:", err)
	}
	log.Println("HTTP server stopped.")

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
