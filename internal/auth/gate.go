package auth

import (
	"context"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/sirupsen/logrus"
)

// Connector makes sure the data stores are reachable. Connect must be
// idempotent and safe for concurrent use.
type Connector interface {
	Connect(ctx context.Context) error
}

// Gate wraps every operation: it connects the stores, resolves the caller
// and normalises whatever the operation returns into an *apperr.Error.
type Gate struct {
	verifier  Verifier
	connector Connector
	log       logrus.FieldLogger
}

// NewGate creates a Gate.
func NewGate(verifier Verifier, connector Connector, log logrus.FieldLogger) *Gate {
	return &Gate{verifier: verifier, connector: connector, log: log}
}

// Resolve returns the identity behind credential, or nil when it cannot be resolved.
func (g *Gate) Resolve(ctx context.Context, credential string) *Identity {
	if credential == "" || g.verifier == nil {
		return nil
	}
	id, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		g.log.WithError(err).Debug("credential rejected")
		return nil
	}
	return id
}

// Run resolves credential and invokes op with the result. When required is
// set an unresolved credential fails with Unauthenticated before op runs.
func (g *Gate) Run(ctx context.Context, credential string, required bool, op func(ctx context.Context, id *Identity) error) error {
	if g.connector != nil {
		if err := g.connector.Connect(ctx); err != nil {
			return g.Translate(err)
		}
	}
	id := g.Resolve(ctx, credential)
	if required && id == nil {
		return apperr.Unauthenticated()
	}
	if err := op(WithIdentity(ctx, id), id); err != nil {
		return g.Translate(err)
	}
	return nil
}

// Translate maps err to its public form and logs the detail of internal failures.
func (g *Gate) Translate(err error) *apperr.Error {
	e := apperr.Translate(err)
	if e == nil {
		return nil
	}
	switch e.Kind {
	case apperr.KindInternal:
		g.log.WithError(err).Error("operation failed")
	case apperr.KindConflict:
		g.log.WithError(err).Warn("unique constraint violated")
	}
	return e
}
