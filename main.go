package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cityguardian/config"
	"cityguardian/directory"
	"cityguardian/email"
	"cityguardian/gemini"
	"cityguardian/handlers"
	"cityguardian/llm"
	"cityguardian/metrics"
	"cityguardian/middleware"
	"cityguardian/openai"
	"cityguardian/rabbitmq"
	"cityguardian/service"
	"cityguardian/stubllm"
	"cityguardian/workflow"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	metrics.Register()

	dir := loadDirectory(cfg)
	log.Infof("Department directory loaded from %s: %d departments, default %s",
		cfg.DirectorySource, len(dir.Departments()), dir.Default().Email)

	client := newLLMClient(cfg)

	var sinks []workflow.Notifier
	if cfg.WebhookURL != "" {
		sinks = append(sinks, workflow.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
		if err != nil {
			// Continue without the queue sink, the webhook still works
			log.WithError(err).Warn("Failed to initialize RabbitMQ publisher")
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}
	notifier := workflow.NewDispatcher(cfg.WebhookTimeout, sinks...)

	pipeline := service.NewPipeline(client, dir, newSender(cfg), notifier, service.Options{
		FromAddress:      cfg.EmailFromAddress,
		FromName:         cfg.EmailFromName,
		LLMTimeout:       cfg.LLMTimeout,
		EmailTimeout:     cfg.EmailTimeout,
		VerificationMode: cfg.VerificationMode,
		MinConfidence:    cfg.VerificationMinConfidence,
	})

	h := handlers.NewHandlers(pipeline, cfg.MaxImageBytes)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxImageBytes + 1<<20
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	router.GET("/", h.Root)
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/send-report", middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst), h.SendReport)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// In-flight workflow notifications are bounded by WEBHOOK_TIMEOUT.
	notifier.Wait()
	log.Info("Server exited")
}

func newLLMClient(cfg *config.Config) llm.Client {
	var client llm.Client
	model := ""
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, model = gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout), cfg.GeminiModel
	case config.ProviderStub:
		client = stubllm.NewClient()
	default:
		client, model = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout), cfg.OpenAIModel
	}
	log.Infof("LLM provider=%s model=%s", client.SourceName(), model)
	return client
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.EmailProvider == config.EmailSendGrid {
		return email.NewSendGridSender(cfg.SendGridAPIKey)
	}
	return email.NewMailerooSender(cfg.MailerooAPIKey, cfg.MailerooURL, cfg.EmailTimeout)
}

// loadDirectory builds the department directory. A MySQL directory is read once at startup.
func loadDirectory(cfg *config.Config) *directory.Directory {
	defaultEmail := cfg.DefaultDepartmentEmail

	switch cfg.DirectorySource {
	case config.DirectoryYAML:
		dir, err := directory.LoadYAML(cfg.DirectoryFile, defaultEmail)
		if err != nil {
			log.Fatalf("Failed to load department directory: %v", err)
		}
		return dir

	case config.DirectoryMySQL:
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		db, err := directory.Connect(ctx, directory.DBConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer closeDB(db)

		if defaultEmail == "" {
			defaultEmail = directory.DefaultEmail
		}
		dir, err := directory.LoadFromDB(ctx, db, defaultEmail)
		if err != nil {
			log.Fatalf("Failed to load department directory: %v", err)
		}
		return dir
	}

	dir, err := directory.Builtin(defaultEmail)
	if err != nil {
		log.Fatalf("Failed to build department directory: %v", err)
	}
	return dir
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
