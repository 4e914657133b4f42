package runtime

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// Register creates the Participant record for identity. The role can never change.
func (e *Engine) Register(ctx context.Context, identity domain.Identity, role domain.Role, name, contactInfo string) (string, error) {
	const op = "Register"
	key := domain.ParticipantKey(identity)

	ev, err := e.commit(ctx, domain.OpRegister, identity, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if identity == "" {
			return nil, domain.ErrInvalidIdentity.With(op, "empty identity")
		}
		if !role.Valid() {
			return nil, domain.ErrInvalidRole.With(op, "%d", uint8(role))
		}
		if len(name) > domain.MaxNameLen {
			return nil, domain.ErrNameTooLong.With(op, "%d bytes, max %d", len(name), domain.MaxNameLen)
		}
		if len(contactInfo) > domain.MaxContactInfoLen {
			return nil, domain.ErrContactInfoTooLong.With(op, "%d bytes, max %d", len(contactInfo), domain.MaxContactInfoLen)
		}

		exists, err := tx.exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrAlreadyRegistered.With(op, "%s", identity)
		}

		p := domain.Participant{
			Owner:       identity,
			Role:        role,
			Name:        name,
			ContactInfo: contactInfo,
			CreatedAt:   e.now().UTC(),
		}
		if err := tx.save(ctx, key, &p); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Attributes: map[string]any{"role": role.String()}}, nil
	})
	if err != nil {
		return "", err
	}

	e.roles.put(identity, role)
	return ev.Key, nil
}

// GetParticipant returns the registry record of identity.
func (e *Engine) GetParticipant(ctx context.Context, identity domain.Identity) (*domain.Participant, error) {
	var out *domain.Participant
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		p, ok, err := tx.participant(ctx, identity)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotRegistered.With("GetParticipant", "%s", identity)
		}
		out = p
		return nil
	})
	return out, err
}

// GetRole returns the role of a registered identity.
func (e *Engine) GetRole(ctx context.Context, identity domain.Identity) (domain.Role, error) {
	if role, ok := e.roles.get(identity); ok {
		return role, nil
	}
	var role domain.Role
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		r, err := tx.role(ctx, "GetRole", identity)
		role = r
		return err
	})
	return role, err
}

// role resolves the role of identity, consulting the cache first.
// Fails with NotRegistered.
func (t *ledgerTx) role(ctx context.Context, op string, identity domain.Identity) (domain.Role, error) {
	if role, ok := t.engine.roles.get(identity); ok {
		return role, nil
	}
	p, ok, err := t.participant(ctx, identity)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrNotRegistered.With(op, "%s", identity)
	}
	// Only Register writes participants and it never resolves roles,
	// so anything read here is already committed.
	t.engine.roles.put(identity, p.Role)
	return p.Role, nil
}

// requireRole fails with Unauthorized unless identity holds one of roles.
// An unregistered identity gets Unauthorized wrapping NotRegistered.
func (t *ledgerTx) requireRole(ctx context.Context, op string, identity domain.Identity, roles ...domain.Role) (domain.Role, error) {
	role, err := t.role(ctx, op, identity)
	if err != nil {
		if domain.KindOf(err) == domain.KindState {
			return 0, domain.ErrUnauthorized.Wrap(op, err)
		}
		return 0, err
	}
	if !allowed(role, roles) {
		return 0, domain.ErrUnauthorized.With(op, "%s is a %s", identity, role)
	}
	return role, nil
}

// requireRegistered fails unless identity is any registered participant.
func (t *ledgerTx) requireRegistered(ctx context.Context, op string, identity domain.Identity) error {
	_, err := t.requireRole(ctx, op, identity, domain.Roles...)
	return err
}

// allowed matches role against the permitted set. The switch keeps every
// declared role in view so a new role must be placed explicitly.
func allowed(role domain.Role, permitted []domain.Role) bool {
	switch role {
	case domain.RoleFarmer, domain.RoleTransporter, domain.RoleWholesaler, domain.RoleRetailer, domain.RoleArbitrator:
		for _, p := range permitted {
			if p == role {
				return true
			}
		}
		return false
	default:
		return false
	}
}
