package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/wneessen/go-mail"

	"github.com/aniwag2/Listen/internal/metrics"
)

// Outcome classifies the result of a delivery attempt
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAttachmentFailure
	OutcomeAuthFailure
	OutcomeTransportFailure
)

// String returns the outcome name used in logs and metric labels
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAttachmentFailure:
		return "attachment_failure"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Delivered reports whether the recording reached the mail service
func (o Outcome) Delivered() bool {
	return o == OutcomeSuccess
}

// Attempt describes one delivery attempt
type Attempt struct {
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Config contains mail delivery configuration
type Config struct {
	SMTPHost  string
	SMTPPort  int
	Sender    string
	Password  string
	Recipient string
	Timeout   time.Duration
}

// MailSender abstracts the SMTP client so tests can observe sends
// without a live server.
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Dispatcher emails completed recordings as attachments. Every artifact
// gets exactly one attempt; the caller applies the retention rule based
// on the returned outcome.
type Dispatcher struct {
	config  Config
	fs      afero.Fs
	logger  *slog.Logger
	metrics *metrics.Metrics
	sender  MailSender
}

// NewDispatcher creates a dispatcher with an authenticated TLS client
// for the configured server. No connection is made until a recording is
// sent.
func NewDispatcher(cfg Config, fs afero.Fs, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &Dispatcher{
		config:  cfg,
		fs:      fs,
		logger:  logger,
		metrics: m,
		sender:  client,
	}, nil
}

// Send delivers the artifact at the given path as a mail attachment and
// reports how the attempt ended. Failed attempts are not retried.
func (d *Dispatcher) Send(ctx context.Context, artifactPath string) Attempt {
	start := time.Now()
	outcome, err := d.attempt(ctx, artifactPath)
	duration := time.Since(start)

	d.metrics.RecordDeliveryAttempt(outcome.String(), duration.Seconds())

	if err != nil {
		d.logger.Error("Delivery failed",
			slog.String("artifact", artifactPath),
			slog.String("outcome", outcome.String()),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
	} else {
		d.logger.Info("Recording delivered",
			slog.String("artifact", artifactPath),
			slog.String("recipient", d.config.Recipient),
			slog.Duration("duration", duration),
		)
	}

	return Attempt{Outcome: outcome, Err: err, Duration: duration}
}

func (d *Dispatcher) attempt(ctx context.Context, artifactPath string) (Outcome, error) {
	// Read the artifact up front so an unreadable file never opens a
	// connection
	data, err := afero.ReadFile(d.fs, artifactPath)
	if err != nil {
		return OutcomeAttachmentFailure, fmt.Errorf("failed to read artifact %s: %w", artifactPath, err)
	}

	msg, err := d.buildMessage(filepath.Base(artifactPath), data)
	if err != nil {
		return OutcomeTransportFailure, err
	}

	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return classifySendError(err), fmt.Errorf("failed to send mail: %w", err)
	}

	return OutcomeSuccess, nil
}

func (d *Dispatcher) buildMessage(filename string, wavData []byte) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(d.config.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address %s: %w", d.config.Sender, err)
	}
	if err := msg.To(d.config.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address %s: %w", d.config.Recipient, err)
	}

	msg.Subject("Audio Recording from Voice Trigger - " + filename)
	msg.SetBodyString(mail.TypeTextPlain, "Please find the attached audio recording.")

	if err := msg.AttachReader(filename, bytes.NewReader(wavData)); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", filename, err)
	}

	return msg, nil
}

// classifySendError separates credential rejections from other send
// failures. Authentication happens during the dial, where the server
// reply surfaces as a textproto error with an RFC 4954 code.
func classifySendError(err error) Outcome {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return OutcomeAuthFailure
		}
	}
	return OutcomeTransportFailure
}
