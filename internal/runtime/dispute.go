package runtime

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// openDispute attaches the single dispute record to p and moves it to
// Disputed. prior is the status the batch is restored to if the dispute is
// resolved in favour of the original terms.
func (t *ledgerTx) openDispute(ctx context.Context, op string, p *domain.Produce, raiser domain.Identity, description string, prior domain.ProduceStatus, automatic bool) error {
	key := domain.DisputeKey(p.ProduceID)
	exists, err := t.exists(ctx, key)
	if err != nil {
		return err
	}
	if p.DisputeRaised || exists {
		return domain.ErrDisputeAlreadyExists.With(op, "produce %d", p.ProduceID)
	}

	d := domain.Dispute{
		ProduceID:   p.ProduceID,
		ProduceKey:  domain.ProduceKey(p.ProduceID),
		Raiser:      raiser,
		Description: description,
		CreatedAt:   t.engine.now().UTC(),
		PriorStatus: prior,
		Automatic:   automatic,
	}
	if err := t.save(ctx, key, &d); err != nil {
		return err
	}

	p.DisputeRaised = true
	p.Status = domain.StatusDisputed
	return nil
}

// reopenDispute puts a resolved dispute back in front of the arbitrators and
// moves p to Disputed again. The batch still has one dispute record.
func (t *ledgerTx) reopenDispute(ctx context.Context, op string, p *domain.Produce, description string, prior domain.ProduceStatus) error {
	d, ok, err := t.dispute(ctx, p.ProduceID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDisputeNotFound.With(op, "produce %d", p.ProduceID)
	}
	if !d.Resolved {
		return domain.ErrDisputeAlreadyExists.With(op, "produce %d", p.ProduceID)
	}

	now := t.engine.now().UTC()
	d.Description = description
	d.PriorStatus = prior
	d.Automatic = true
	d.Resolved = false
	d.Resolution = false
	d.Arbitrator = ""
	d.ResolvedAt = nil
	d.ReopenedAt = &now
	if err := t.save(ctx, domain.DisputeKey(p.ProduceID), d); err != nil {
		return err
	}

	p.DisputeRaised = true
	p.Status = domain.StatusDisputed
	return nil
}

// RaiseDispute opens the dispute of a batch. Any registered participant may
// raise it once the batch has been picked up; each batch gets one dispute.
func (e *Engine) RaiseDispute(ctx context.Context, raiser domain.Identity, produceID uint64, description string) (string, error) {
	const op = "RaiseDispute"
	key := domain.DisputeKey(produceID)

	_, err := e.commit(ctx, domain.OpRaiseDispute, raiser, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if len(description) > domain.MaxDescriptionLen {
			return nil, domain.ErrDescriptionTooLong.With(op, "%d bytes, max %d", len(description), domain.MaxDescriptionLen)
		}
		if err := tx.requireRegistered(ctx, op, raiser); err != nil {
			return nil, err
		}

		p, err := tx.produce(ctx, op, produceID)
		if err != nil {
			return nil, err
		}
		if p.DisputeRaised {
			return nil, domain.ErrDisputeAlreadyExists.With(op, "produce %d", produceID)
		}
		current, err := tx.effectiveStatus(ctx, p)
		if err != nil {
			return nil, err
		}
		if !current.Disputable() {
			return nil, domain.ErrInvalidStatus.With(op, "produce %d is %s", produceID, current)
		}

		if err := tx.openDispute(ctx, op, p, raiser, description, current, false); err != nil {
			return nil, err
		}
		p.LastUpdated = e.now().UTC()
		if err := tx.save(ctx, domain.ProduceKey(produceID), p); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProduceID: u64(produceID), Status: p.Status}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// ResolveDispute closes a dispute. resolution=true upholds the original terms
// and reopens the settlement path; false upholds the dispute. The produce
// status is left as is and no funds move.
func (e *Engine) ResolveDispute(ctx context.Context, arbitrator domain.Identity, produceID uint64, resolution bool) (string, error) {
	const op = "ResolveDispute"
	key := domain.DisputeKey(produceID)

	_, err := e.commit(ctx, domain.OpResolveDispute, arbitrator, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.requireRole(ctx, op, arbitrator, domain.RoleArbitrator); err != nil {
			return nil, err
		}
		d, ok, err := tx.dispute(ctx, produceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrDisputeNotFound.With(op, "produce %d", produceID)
		}
		if d.Resolved {
			return nil, domain.ErrAlreadyResolved.With(op, "produce %d", produceID)
		}

		now := e.now().UTC()
		d.Resolved = true
		d.Resolution = resolution
		d.Arbitrator = arbitrator
		d.ResolvedAt = &now
		if err := tx.save(ctx, key, d); err != nil {
			return nil, err
		}
		return &domain.Event{
			Key:        key,
			ProduceID:  u64(produceID),
			Attributes: map[string]any{"resolution": resolution},
		}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetDispute returns the dispute attached to a batch.
func (e *Engine) GetDispute(ctx context.Context, produceID uint64) (*domain.Dispute, error) {
	var out *domain.Dispute
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		d, ok, err := tx.dispute(ctx, produceID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrDisputeNotFound.With("GetDispute", "produce %d", produceID)
		}
		out = d
		return nil
	})
	return out, err
}

