package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/keylock"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/logging"
	"github.com/Guilherme-G-Cadilhe/Go-SecureLedger-OTP/internal/platform/metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type DepositInput struct {
	Mobile string
	Amount decimal.Decimal
}

type WithdrawInput struct {
	Mobile string
	Amount decimal.Decimal
	OTP    string
}

type TransferInput struct {
	SenderMobile   string
	ReceiverMobile string
	Amount         decimal.Decimal
	OTP            string
}

// TransactionOutput é o resultado de uma operação gravada: o registro,
// a posição no ledger e o snapshot da conta de quem iniciou.
type TransactionOutput struct {
	Record  *domain.TransactionRecord
	Seq     uint64
	Account *domain.Account
}

// EngineDeps agrupa os handles injetados no engine.
type EngineDeps struct {
	Accounts       gateway.AccountRepository
	Ledger         gateway.LedgerRepository
	TxManager      gateway.TransactionManager
	Cipher         gateway.Cipher
	OTP            OTPValidator
	Publisher      gateway.EventPublisher
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	StorageTimeout time.Duration
}

// TransactionEngine executa depósito, saque e transferência.
// Fluxo de cada operação: Requested -> Authorized -> Applied -> Recorded.
type TransactionEngine struct {
	accounts       gateway.AccountRepository
	ledger         gateway.LedgerRepository
	txManager      gateway.TransactionManager
	cipher         gateway.Cipher
	otp            OTPValidator
	publisher      gateway.EventPublisher
	locks          *keylock.Locker
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	storageTimeout time.Duration
	now            func() time.Time

	// appendMu serializa carimbo + selagem + append: Date acompanha a ordem do Seq.
	appendMu  sync.Mutex
	lastStamp time.Time
}

func NewTransactionEngine(deps EngineDeps) *TransactionEngine {
	return &TransactionEngine{
		accounts:       deps.Accounts,
		ledger:         deps.Ledger,
		txManager:      deps.TxManager,
		cipher:         deps.Cipher,
		otp:            deps.OTP,
		publisher:      deps.Publisher,
		locks:          keylock.New(),
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		storageTimeout: deps.StorageTimeout,
		now:            time.Now,
	}
}

// Deposit não exige OTP.
func (e *TransactionEngine) Deposit(ctx context.Context, input DepositInput) (*TransactionOutput, error) {
	out, err := e.deposit(ctx, input)
	e.finish(domain.KindDeposit, out, err)
	return out, err
}

func (e *TransactionEngine) Withdraw(ctx context.Context, input WithdrawInput) (*TransactionOutput, error) {
	out, err := e.withdraw(ctx, input)
	e.finish(domain.KindWithdraw, out, err)
	return out, err
}

func (e *TransactionEngine) Transfer(ctx context.Context, input TransferInput) (*TransactionOutput, error) {
	out, err := e.transfer(ctx, input)
	e.finish(domain.KindTransfer, out, err)
	return out, err
}

func (e *TransactionEngine) deposit(ctx context.Context, input DepositInput) (*TransactionOutput, error) {
	amount, err := domain.NormalizeAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	// Aqui só validamos; o Date definitivo é carimbado em record, já na ordem do ledger.
	record, err := domain.NewTransactionRecord(domain.KindDeposit, domain.SystemParty, input.Mobile, amount, time.Time{})
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(input.Mobile)
	defer unlock()

	account, err := e.applyDelta(ctx, input.Mobile, amount)
	if err != nil {
		return nil, err
	}
	return e.record(ctx, record, account)
}

func (e *TransactionEngine) withdraw(ctx context.Context, input WithdrawInput) (*TransactionOutput, error) {
	amount, err := domain.NormalizeAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	record, err := domain.NewTransactionRecord(domain.KindWithdraw, input.Mobile, domain.SystemParty, amount, time.Time{})
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ctx, input.Mobile, input.OTP); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(input.Mobile)
	defer unlock()

	account, err := e.applyDelta(ctx, input.Mobile, amount.Neg())
	if err != nil {
		return nil, err
	}
	return e.record(ctx, record, account)
}

func (e *TransactionEngine) transfer(ctx context.Context, input TransferInput) (*TransactionOutput, error) {
	amount, err := domain.NormalizeAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	record, err := domain.NewTransactionRecord(domain.KindTransfer, input.SenderMobile, input.ReceiverMobile, amount, time.Time{})
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ctx, input.SenderMobile, input.OTP); err != nil {
		return nil, err
	}

	// Trava as duas contas em ordem fixa: A->B e B->A concorrentes não se bloqueiam.
	unlock := e.locks.Lock(input.SenderMobile, input.ReceiverMobile)
	defer unlock()

	storageCtx, cancel := withTimeout(ctx, e.storageTimeout)
	defer cancel()

	if _, err := e.accounts.FindByIdentifier(storageCtx, input.ReceiverMobile); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrReceiverNotFound
		}
		return nil, classifyStorage(err)
	}

	var sender *domain.Account
	err = e.txManager.Run(storageCtx, func(txCtx context.Context) error {
		accountsTx := e.accounts.WithTx(gateway.TransactionFromContext(txCtx))

		debited, err := accountsTx.ApplyBalanceDelta(txCtx, input.SenderMobile, amount.Neg())
		if err != nil {
			return fmt.Errorf("falha no débito (origem %s): %w", logging.MaskMobile(input.SenderMobile), err)
		}

		_, err = accountsTx.ApplyBalanceDelta(txCtx, input.ReceiverMobile, amount)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrReceiverNotFound
		}
		if err != nil {
			return fmt.Errorf("falha no crédito (destino %s): %w", logging.MaskMobile(input.ReceiverMobile), err)
		}

		sender = debited
		return nil
	})
	if err != nil {
		return nil, classifyStorage(err)
	}

	return e.record(ctx, record, sender)
}

// authorize consome o desafio OTP; só um código aprovado libera a operação.
func (e *TransactionEngine) authorize(ctx context.Context, mobile, code string) error {
	approved, err := e.otp.Validate(ctx, mobile, code)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("%w: otp code rejected", domain.ErrUnauthorized)
	}
	return nil
}

func (e *TransactionEngine) applyDelta(ctx context.Context, mobile string, delta decimal.Decimal) (*domain.Account, error) {
	storageCtx, cancel := withTimeout(ctx, e.storageTimeout)
	defer cancel()

	account, err := e.accounts.ApplyBalanceDelta(storageCtx, mobile, delta)
	if err != nil {
		return nil, classifyStorage(err)
	}
	return account, nil
}

// record carimba, sela e anexa o registro ao ledger. Chamado com o saldo já
// aplicado: qualquer falha aqui vira PartialFailureError.
func (e *TransactionEngine) record(ctx context.Context, record *domain.TransactionRecord, account *domain.Account) (*TransactionOutput, error) {
	started := time.Now()
	defer e.metrics.ObserveAppend(started)

	e.appendMu.Lock()
	defer e.appendMu.Unlock()
	record.Date = e.stamp()

	plaintext, err := json.Marshal(record)
	if err != nil {
		return nil, e.partialFailure(ctx, record, nil, fmt.Errorf("falha ao serializar registro: %w", err))
	}
	envelope, err := e.cipher.Seal(plaintext)
	if err != nil {
		return nil, e.partialFailure(ctx, record, nil, fmt.Errorf("falha ao selar registro: %w", err))
	}

	// O saldo já foi comitado: um cliente que desconecta não deve impedir o registro.
	storageCtx, cancel := withTimeout(context.WithoutCancel(ctx), e.storageTimeout)
	defer cancel()

	seq, err := e.ledger.Append(storageCtx, envelope)
	if err != nil {
		return nil, e.partialFailure(ctx, record, &envelope, classifyStorage(err))
	}

	e.publish(ctx, gateway.RoutingTransactionStored, domain.LedgerEvent{
		TransactionID: record.ID,
		Type:          record.Type,
		Status:        domain.EventStatusCompleted,
		Seq:           seq,
		Envelope:      &envelope,
		OccurredAt:    record.Date,
	})

	return &TransactionOutput{Record: record, Seq: seq, Account: account}, nil
}

// stamp nunca volta no tempo, mesmo se o relógio de parede for ajustado. Exige appendMu.
func (e *TransactionEngine) stamp() time.Time {
	now := e.now().UTC()
	if now.Before(e.lastStamp) {
		now = e.lastStamp
	}
	e.lastStamp = now
	return now
}

func (e *TransactionEngine) partialFailure(ctx context.Context, record *domain.TransactionRecord, envelope *domain.Envelope, cause error) error {
	e.metrics.PartialFailure()
	e.logger.Error().
		Err(cause).
		Str("transaction_id", record.ID).
		Str("type", string(record.Type)).
		Str("sender", logging.MaskMobile(record.SenderMobile)).
		Str("receiver", logging.MaskMobile(record.ReceiverMobile)).
		Str("amount", record.Amount.StringFixed(domain.MoneyScale)).
		Msg("CRÍTICO: saldo aplicado mas transação não registrada no ledger, reconciliação necessária")

	e.publish(ctx, gateway.RoutingReconcile, domain.LedgerEvent{
		TransactionID: record.ID,
		Type:          record.Type,
		Status:        domain.EventStatusUnrecorded,
		Envelope:      envelope,
		Reason:        cause.Error(),
		OccurredAt:    e.now().UTC(),
	})

	return &domain.PartialFailureError{Record: record, Err: cause}
}

func (e *TransactionEngine) publish(ctx context.Context, routingKey string, event domain.LedgerEvent) {
	if e.publisher == nil {
		return
	}
	// Falha no broker não desfaz a operação: apenas logamos.
	if err := e.publisher.Publish(context.WithoutCancel(ctx), gateway.LedgerExchange, routingKey, event); err != nil {
		e.logger.Error().Err(err).Str("transaction_id", event.TransactionID).Str("routing_key", routingKey).Msg("Erro ao publicar evento")
	}
}

func (e *TransactionEngine) finish(kind domain.TransactionKind, out *TransactionOutput, err error) {
	var partial *domain.PartialFailureError
	switch {
	case err == nil:
		e.metrics.Operation(string(kind), "success")
		e.logger.Info().
			Str("transaction_id", out.Record.ID).
			Str("type", string(kind)).
			Uint64("seq", out.Seq).
			Msg("Transação registrada")
	case errors.As(err, &partial):
		e.metrics.Operation(string(kind), "partial_failure")
	case domain.IsBusinessError(err):
		e.metrics.Operation(string(kind), "rejected")
		e.logger.Debug().Err(err).Str("type", string(kind)).Msg("Operação recusada")
	default:
		e.metrics.Operation(string(kind), "error")
		e.logger.Error().Err(err).Str("type", string(kind)).Msg("Falha ao processar operação")
	}
}
