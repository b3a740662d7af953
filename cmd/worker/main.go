package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/config"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/infra/rabbitmq"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	auditQueue   = "audit_queue"
	auditBinding = "transaction.#"
)

type auditSaver interface {
	Save(ctx context.Context, log mongodb.AuditLog) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuração inválida")
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel, "secure-ledger-audit-worker")

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI()))
	if err != nil {
		logger.Fatal().Err(err).Msg("Erro ao criar client MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Erro ao desconectar Mongo")
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal().Err(err).Msg("Erro ao pingar MongoDB")
	}
	logger.Info().Msg("✅ Conectado ao MongoDB!")
	auditRepo := mongodb.NewAuditRepository(mongoClient, cfg.Mongo.Database)

	conn, err := amqp.DialConfig(cfg.RabbitMQ.URL(), amqp.Config{
		Properties: amqp.Table{"connection_name": "AuditWorker_Consumer"},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Erro ao conectar no RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error().Err(err).Msg("Erro ao fechar conexão RabbitMQ")
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Erro ao abrir canal")
	}
	defer func() {
		if err := ch.Close(); err != nil {
			logger.Error().Err(err).Msg("Erro ao fechar canal RabbitMQ")
		}
	}()

	// Prefetch 1: o RabbitMQ só manda a próxima mensagem depois do Ack.
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal().Err(err).Msg("Erro ao configurar QoS")
	}
	if err := rabbitmq.DeclareLedgerExchange(ch); err != nil {
		logger.Fatal().Err(err).Msg("Erro ao declarar exchange")
	}

	q, err := ch.QueueDeclare(auditQueue, true, false, false, false, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Erro ao declarar fila")
	}
	// transaction.created e transaction.reconcile caem na mesma fila
	if err := ch.QueueBind(q.Name, auditBinding, gateway.LedgerExchange, false, nil); err != nil {
		logger.Fatal().Err(err).Msg("Erro ao fazer bind da fila")
	}

	msgs, err := ch.Consume(q.Name, "audit_worker", false, false, false, false, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Erro ao registrar consumidor")
	}

	notifyClose := ch.NotifyClose(make(chan *amqp.Error, 1))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", q.Name).Msg("[*] Worker iniciado. Aguardando mensagens...")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Encerrando worker...")
			return
		case err := <-notifyClose:
			// Cai para o orquestrador reiniciar o worker
			logger.Fatal().Err(err).Msg("🔴 Canal RabbitMQ fechado")
		case d, ok := <-msgs:
			if !ok {
				logger.Fatal().Msg("🔴 Canal de mensagens fechado")
			}
			handleDelivery(ctx, logger, auditRepo, d)
		}
	}
}

// handleDelivery grava o evento no Mongo e confirma. JSON inválido vai para
// descarte (Nack sem requeue); falha no Mongo volta para a fila.
func handleDelivery(ctx context.Context, logger zerolog.Logger, repo auditSaver, d amqp.Delivery) {
	var event domain.LedgerEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.TransactionID == "" {
		logger.Error().Err(err).Str("message_id", d.MessageId).Msg("Evento inválido descartado")
		if err := d.Nack(false, false); err != nil {
			logger.Error().Err(err).Msg("Erro ao enviar Nack (JSON inválido)")
		}
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := repo.Save(saveCtx, mongodb.FromEvent(event)); err != nil {
		logger.Error().Err(err).Str("transaction_id", event.TransactionID).Msg("Erro ao salvar no Mongo")
		if err := d.Nack(false, true); err != nil {
			logger.Error().Err(err).Msg("Erro ao enviar Nack (Mongo erro)")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error().Err(err).Msg("Erro ao enviar Ack")
		return
	}
	if event.Status == domain.EventStatusUnrecorded {
		logger.Warn().Str("transaction_id", event.TransactionID).Str("reason", event.Reason).Msg("Transação pendente de reconciliação registrada")
		return
	}
	logger.Info().Str("transaction_id", event.TransactionID).Uint64("seq", event.Seq).Msg("[✅] Salvo no MongoDB e Ack enviado")
}
