package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/config"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/badgerdb"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/http/router"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/memory"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/otpstub"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/postgres"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/rabbitmq"
	redisInfra "github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/redis"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/twilio"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/logging"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/metrics"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/ratelimiter"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/security"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// storage agrupa os handles do backend escolhido em STORAGE_DRIVER.
type storage struct {
	accounts gateway.AccountRepository
	ledger   gateway.LedgerRepository
	uow      gateway.TransactionManager
	health   func(ctx context.Context) error
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuração inválida")
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel, "secure-ledger-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A chave mestra vem de fora (secret do Docker/K8s); sem ela não sobe.
	cipher, err := security.NewEnvelopeCipher(security.EnvKeyProvider{Var: "LEDGER_MASTER_KEY"})
	if err != nil {
		logger.Fatal().Err(err).Msg("Não foi possível inicializar a cifra do ledger")
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Não foi possível abrir o storage")
	}
	defer store.close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer redisClient.Close()

	var (
		challenges  gateway.ChallengeRepository
		idempotency gateway.IdempotencyRepository
	)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis indisponível: desafios OTP e idempotência ficam em memória (instância única)")
		challenges = memory.NewChallengeRepository()
		idempotency = memory.NewIdempotencyRepository()
	} else {
		logger.Info().Msg("✅ Conectado ao Redis!")
		challenges = redisInfra.NewChallengeRepository(redisClient)
		idempotency = redisInfra.NewIdempotencyRepository(redisClient)
	}

	publisher, closePublisher := connectPublisher(cfg, logger)
	defer closePublisher()

	provider, err := otpProvider(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Provedor de OTP não configurado")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	limiter := ratelimiter.New(cfg.OTP.RatePerMinute, cfg.OTP.Burst, 0)
	gate := usecase.NewOTPGate(challenges, provider, limiter, m, logger, usecase.OTPGateConfig{
		TTL:             cfg.OTP.TTL,
		ProviderTimeout: cfg.OTP.ProviderTimeout,
		StorageTimeout:  cfg.Storage.Timeout,
	})
	engine := usecase.NewTransactionEngine(usecase.EngineDeps{
		Accounts:       store.accounts,
		Ledger:         store.ledger,
		TxManager:      store.uow,
		Cipher:         cipher,
		OTP:            gate,
		Publisher:      publisher,
		Metrics:        m,
		Logger:         logger,
		StorageTimeout: cfg.Storage.Timeout,
	})
	accounts := usecase.NewAccountService(store.accounts, cfg.Storage.Timeout, logger)

	if cfg.SeedDemo {
		if err := accounts.Seed(ctx, demoAccounts()); err != nil {
			logger.Fatal().Err(err).Msg("Falha ao criar contas de demonstração")
		}
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Accounts:       accounts,
			OTP:            gate,
			Engine:         engine,
			Idempotency:    idempotency,
			Gatherer:       registry,
			RequestLogging: cfg.IsDevelopment(),
			Health:         store.health,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msgf("🚀 Servidor rodando na porta %s (storage=%s)", cfg.Port, cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Falha ao iniciar servidor HTTP")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Encerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown não terminou a tempo")
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.ConnectDB(ctx, cfg.Postgres.URL())
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("✅ Conectado ao PostgreSQL com sucesso!")
		return &storage{
			accounts: postgres.NewAccountRepository(pool),
			ledger:   postgres.NewLedgerRepository(pool),
			uow:      postgres.NewUow(pool),
			health:   pool.Ping,
			close:    pool.Close,
		}, nil

	case config.DriverMemory:
		logger.Warn().Msg("Storage em memória: nada sobrevive a um restart")
		return &storage{
			accounts: memory.NewAccountRepository(),
			ledger:   memory.NewLedgerRepository(),
			uow:      memory.NewUow(),
			close:    func() {},
		}, nil

	default:
		db, err := badgerdb.Open(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, err
		}
		ledger, err := badgerdb.NewLedgerRepository(db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info().Str("path", cfg.Storage.BadgerPath).Msg("✅ Badger aberto com sucesso!")
		return &storage{
			accounts: badgerdb.NewAccountRepository(db, logger),
			ledger:   ledger,
			uow:      badgerdb.NewUow(db),
			health: func(ctx context.Context) error {
				if db.IsClosed() {
					return errors.New("badger is closed")
				}
				return nil
			},
			close: func() {
				if err := db.Close(); err != nil {
					logger.Error().Err(err).Msg("Erro ao fechar badger")
				}
			},
		}, nil
	}
}

// connectPublisher é opcional: sem RabbitMQ a API funciona, só não emite eventos.
func connectPublisher(cfg *config.Config, logger zerolog.Logger) (gateway.EventPublisher, func()) {
	conn, err := amqp.DialConfig(cfg.RabbitMQ.URL(), amqp.Config{
		Properties: amqp.Table{"connection_name": "SecureLedgerAPI_Publisher"},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Falha ao conectar no RabbitMQ (Eventos não serão enviados)")
		return nil, func() {}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Warn().Err(err).Msg("Falha ao abrir canal RabbitMQ (Eventos não serão enviados)")
		return nil, func() {}
	}
	if err := rabbitmq.DeclareLedgerExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		logger.Warn().Err(err).Msg("Falha ao declarar exchange (Eventos não serão enviados)")
		return nil, func() {}
	}

	logger.Info().Msg("✅ Conectado ao RabbitMQ!")
	return rabbitmq.NewRabbitMQPublisher(ch), func() {
		if err := ch.Close(); err != nil {
			logger.Error().Err(err).Msg("Erro ao fechar canal RabbitMQ")
		}
		if err := conn.Close(); err != nil {
			logger.Error().Err(err).Msg("Erro ao fechar conexão RabbitMQ")
		}
	}
}

func otpProvider(cfg *config.Config, logger zerolog.Logger) (gateway.OTPProvider, error) {
	if cfg.Twilio.Enabled() {
		provider, err := twilio.NewVerifyProvider(twilio.Config{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			VerifySID:  cfg.Twilio.VerifySID,
			Channel:    cfg.Twilio.Channel,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("channel", cfg.Twilio.Channel).Msg("✅ Twilio Verify configurado")
		return provider, nil
	}
	if !cfg.IsDevelopment() {
		return nil, errors.New("TWILIO_ACCOUNT_SID is required outside development")
	}
	if cfg.OTP.StubCode == "" {
		logger.Warn().Msg("OTP_STUB_CODE vazio: nenhum código será aceito")
	}
	return otpstub.New(cfg.OTP.StubCode), nil
}

func demoAccounts() []usecase.SeedAccount {
	return []usecase.SeedAccount{
		{Name: "Demo Um", Mobile: "5511900000001", Pin: "1234", Balance: decimal.RequireFromString("20000.00")},
		{Name: "Demo Dois", Mobile: "5511900000002", Pin: "1234", Balance: decimal.RequireFromString("15000.00")},
	}
}
