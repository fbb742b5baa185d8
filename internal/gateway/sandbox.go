package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ticketbari/marketplace/internal/models"
)

type sandboxSession struct {
	req    CheckoutRequest
	status Status
}

// Sandbox is an in-process provider for development and tests. Sessions are
// paid explicitly through MarkPaid.
type Sandbox struct {
	mu       sync.Mutex
	baseURL  string
	sessions map[string]*sandboxSession
}

func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: make(map[string]*sandboxSession),
	}
}

func (s *Sandbox) Provider() string {
	return ProviderSandbox
}

func (s *Sandbox) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, fmt.Errorf("sandbox checkout: %w: %w", models.ErrGatewayUnavailable, err)
	}

	ref := "sbx_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	s.mu.Lock()
	s.sessions[ref] = &sandboxSession{req: req}
	s.mu.Unlock()

	return Session{
		Ref:         ref,
		RedirectURL: fmt.Sprintf("%s/v1/sandbox/sessions/%s/pay", s.baseURL, ref),
	}, nil
}

func (s *Sandbox) GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, fmt.Errorf("sandbox status: %w: %w", models.ErrGatewayUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionRef]
	if !ok {
		return Status{}, nil
	}
	return session.status, nil
}

// MarkPaid settles a sandbox session on the provider side and returns the
// success URL the buyer would be redirected to. Paying twice keeps the
// first transaction.
func (s *Sandbox) MarkPaid(sessionRef, payerEmail string) (Status, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionRef]
	if !ok {
		return Status{}, "", fmt.Errorf("sandbox session %s: %w", sessionRef, models.ErrNotFound)
	}
	if !session.status.Paid {
		session.status = Status{
			Paid:          true,
			TransactionID: "sbx_tx_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
			Amount:        session.req.Amount,
			PayerEmail:    payerEmail,
		}
	}
	return session.status, session.req.SuccessURL, nil
}
