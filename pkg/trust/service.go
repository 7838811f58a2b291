// Package trust is the façade over receipt building, signing, and chain
// verification. A Service wraps arbitrary caller operations (typically LLM
// calls) and pairs each result with a signed trust receipt.
package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sonate-labs/trust-receipts-go/pkg/crypto"
	"github.com/sonate-labs/trust-receipts-go/pkg/receipt"
)

// ScoreFunc computes a scores mapping for a prompt/response pair. Scoring is
// an external collaborator: the service embeds whatever it returns, never
// computes scores itself.
type ScoreFunc func(prompt, response any) (map[string]float64, error)

// ExtractFunc pulls the response payload to hash out of a raw operation
// result.
type ExtractFunc func(raw any) any

// Operation is the caller-supplied work being attested.
type Operation func(ctx context.Context) (any, error)

// Service owns exactly one Ed25519 keypair for its lifetime. All state is
// read-only after construction, so every method is safe for concurrent use.
type Service struct {
	keys           crypto.KeyPair
	keyID          string
	defaultAgentID string
	calcScores     ScoreFunc
	extract        ExtractFunc
	logger         *slog.Logger
	tracer         trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithPrivateKey supplies the service's private key (hex seed). The public
// key is derived from it.
func WithPrivateKey(privHex string) Option {
	return func(s *Service) { s.keys.PrivateKey = privHex }
}

// WithKeyPair supplies both halves of the keypair explicitly.
func WithKeyPair(kp crypto.KeyPair) Option {
	return func(s *Service) { s.keys = kp }
}

// WithAgentID sets the default agent id stamped on receipts that do not name
// one.
func WithAgentID(agentID string) Option {
	return func(s *Service) { s.defaultAgentID = agentID }
}

// WithScoreFunc injects the score calculator used when a call supplies no
// explicit scores.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(s *Service) { s.calcScores = fn }
}

// WithExtractor overrides the default response-content extraction.
func WithExtractor(fn ExtractFunc) Option {
	return func(s *Service) { s.extract = fn }
}

// WithLogger sets the structured logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New constructs a Service. A keypair is generated when none is supplied; a
// supplied private key has its public half derived so the two can never
// disagree.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		keyID:   uuid.NewString(),
		logger:  slog.Default(),
		extract: ExtractResponseContent,
		tracer:  otel.Tracer("github.com/sonate-labs/trust-receipts-go/pkg/trust"),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.keys.PrivateKey == "" && s.keys.PublicKey != "":
		// Verify-only service: can check receipts and chains but any attempt
		// to sign fails loudly.
	case s.keys.PrivateKey == "":
		kp, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		s.keys = kp
	default:
		pub, err := crypto.DerivePublic(s.keys.PrivateKey)
		if err != nil {
			return nil, err
		}
		s.keys.PublicKey = pub
	}

	s.logger.Debug("trust service initialized", "key_id", s.keyID, "public_key", s.keys.PublicKey)
	return s, nil
}

// PublicKey returns the service's hex public key for out-of-band
// distribution to verifiers. The private key is never exposed or serialized.
func (s *Service) PublicKey() string {
	return s.keys.PublicKey
}

// KeyID is a process-local identifier for log correlation. It is not part of
// the wire form.
func (s *Service) KeyID() string {
	return s.keyID
}

// WrapOptions configures a single Wrap call.
type WrapOptions struct {
	SessionID       string
	Input           any // the prompt payload
	AgentID         string
	PreviousReceipt *receipt.SignedReceipt
	Metadata        map[string]any
	Scores          map[string]float64 // explicit scores win over the injected calculator
	ExtractResponse ExtractFunc
	IncludeContent  bool
}

// WrappedResponse pairs an operation's raw result with its signed receipt.
type WrappedResponse struct {
	Response any
	Receipt  *receipt.SignedReceipt
}

// Wrap executes op exactly once and attests the exchange. The receipt is
// built strictly after op completes, over the extracted response content. If
// op fails, its error is propagated and no receipt is produced; if score
// calculation fails, the whole call fails — a receipt is never emitted with
// missing scores.
func (s *Service) Wrap(ctx context.Context, op Operation, opts WrapOptions) (*WrappedResponse, error) {
	ctx, span := s.tracer.Start(ctx, "trust.wrap", trace.WithAttributes(
		attribute.String("trust.session_id", opts.SessionID),
		attribute.String("trust.agent_id", s.agentID(opts.AgentID)),
	))
	defer span.End()

	raw, err := op(ctx)
	if err != nil {
		return nil, err
	}

	content := s.extractor(opts.ExtractResponse)(raw)

	scores := opts.Scores
	if len(scores) == 0 && s.calcScores != nil {
		scores, err = s.calcScores(opts.Input, content)
		if err != nil {
			return nil, fmt.Errorf("trust: score calculation failed: %w", err)
		}
	}

	signed, err := s.buildAndSign(receipt.Input{
		SessionID:       opts.SessionID,
		Prompt:          opts.Input,
		Response:        content,
		Scores:          scores,
		AgentID:         s.agentID(opts.AgentID),
		PrevReceiptHash: prevHash(opts.PreviousReceipt),
		Metadata:        opts.Metadata,
		IncludeContent:  opts.IncludeContent,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedResponse{Response: raw, Receipt: signed}, nil
}

// ReceiptOptions configures a manual CreateReceipt call, for exchanges that
// already happened (or happened elsewhere).
type ReceiptOptions struct {
	SessionID       string
	Prompt          any
	Response        any
	AgentID         string
	PreviousReceipt *receipt.SignedReceipt
	Metadata        map[string]any
	Scores          map[string]float64
	IncludeContent  bool
}

// CreateReceipt builds and signs a receipt without running an operation.
func (s *Service) CreateReceipt(ctx context.Context, opts ReceiptOptions) (*receipt.SignedReceipt, error) {
	_, span := s.tracer.Start(ctx, "trust.create_receipt", trace.WithAttributes(
		attribute.String("trust.session_id", opts.SessionID),
	))
	defer span.End()

	return s.buildAndSign(receipt.Input{
		SessionID:       opts.SessionID,
		Prompt:          opts.Prompt,
		Response:        opts.Response,
		Scores:          opts.Scores,
		AgentID:         s.agentID(opts.AgentID),
		PrevReceiptHash: prevHash(opts.PreviousReceipt),
		Metadata:        opts.Metadata,
		IncludeContent:  opts.IncludeContent,
	})
}

// VerifyReceipt checks a wire receipt's signature against this service's
// public key. Invalid is an outcome, not an error.
func (s *Service) VerifyReceipt(sr *receipt.SignedReceipt) bool {
	return sr.Verify(s.keys.PublicKey)
}

// VerifyChain verifies an ordered receipt sequence against this service's
// public key, collecting every link break and signature failure.
func (s *Service) VerifyChain(receipts []*receipt.SignedReceipt) receipt.ChainReport {
	report := receipt.VerifyChain(receipts, s.keys.PublicKey)
	if !report.Valid {
		s.logger.Warn("receipt chain verification failed",
			"receipts", len(receipts), "errors", len(report.Errors), "key_id", s.keyID)
	}
	return report
}

func (s *Service) buildAndSign(in receipt.Input) (*receipt.SignedReceipt, error) {
	r, err := receipt.Build(in, time.Now())
	if err != nil {
		return nil, err
	}
	if err := r.Sign(s.keys.PrivateKey); err != nil {
		return nil, err
	}
	s.logger.Debug("trust receipt signed",
		"session_id", r.SessionID,
		"receipt_hash", r.ReceiptHash,
		"prev_receipt_hash", r.PrevReceiptHash,
		"key_id", s.keyID)
	return r.Export()
}

func (s *Service) extractor(perCall ExtractFunc) ExtractFunc {
	if perCall != nil {
		return perCall
	}
	return s.extract
}

func (s *Service) agentID(perCall string) string {
	if perCall != "" {
		return perCall
	}
	return s.defaultAgentID
}

func prevHash(prev *receipt.SignedReceipt) string {
	if prev == nil {
		return ""
	}
	return prev.ReceiptHash
}
