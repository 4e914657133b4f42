package runtime

import (
	"context"
	"math"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// HarvestInput carries the fields a farmer supplies when logging a batch.
type HarvestInput struct {
	ProduceID      uint64 `mapstructure:"produce_id"`
	ProduceType    string `mapstructure:"produce_type"`
	Quantity       uint64 `mapstructure:"quantity"`
	HarvestDate    int64  `mapstructure:"harvest_date"`
	Quality        uint8  `mapstructure:"quality"`
	QrCodeURI      string `mapstructure:"qr_code_uri"`
	FarmerPrice    uint64 `mapstructure:"farmer_price"`
	TransporterFee uint64 `mapstructure:"transporter_fee"`
}

func (in HarvestInput) validate(op string) error {
	switch {
	case len(in.ProduceType) > domain.MaxProduceTypeLen:
		return domain.ErrProduceTypeTooLong.With(op, "%d bytes, max %d", len(in.ProduceType), domain.MaxProduceTypeLen)
	case len(in.QrCodeURI) > domain.MaxQrCodeURILen:
		return domain.ErrQrCodeURITooLong.With(op, "%d bytes, max %d", len(in.QrCodeURI), domain.MaxQrCodeURILen)
	case in.Quality > domain.MaxQuality:
		return domain.ErrInvalidQuality.With(op, "%d not in 0..%d", in.Quality, domain.MaxQuality)
	case in.Quantity == 0:
		return domain.ErrInvalidQuantity.With(op, "quantity must be positive")
	case in.FarmerPrice > math.MaxUint64-in.TransporterFee:
		return domain.ErrOverflow.With(op, "farmer price plus transporter fee")
	}
	return nil
}

// LogHarvest creates a produce batch in Harvested status. Prices are fixed here for good.
func (e *Engine) LogHarvest(ctx context.Context, farmer domain.Identity, in HarvestInput) (string, error) {
	const op = "LogHarvest"
	key := domain.ProduceKey(in.ProduceID)

	ev, err := e.commit(ctx, domain.OpLogHarvest, farmer, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if err := in.validate(op); err != nil {
			return nil, err
		}
		if _, err := tx.requireRole(ctx, op, farmer, domain.RoleFarmer); err != nil {
			return nil, err
		}
		exists, err := tx.exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrProduceIDInUse.With(op, "produce %d", in.ProduceID)
		}

		p := domain.Produce{
			ProduceID:         in.ProduceID,
			Farmer:            farmer,
			ProduceType:       in.ProduceType,
			Quantity:          in.Quantity,
			HarvestDate:       in.HarvestDate,
			Quality:           in.Quality,
			VerifiedQuality:   domain.UnsetQuality,
			Status:            domain.StatusHarvested,
			LastUpdated:       e.now().UTC(),
			TransportTemp:     domain.UnsetTemperature,
			TransportHumidity: domain.UnsetHumidity,
			QrCodeURI:         in.QrCodeURI,
			FarmerPrice:       in.FarmerPrice,
			TransporterFee:    in.TransporterFee,
		}
		if err := tx.save(ctx, key, &p); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProduceID: u64(in.ProduceID), Status: p.Status}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// effectiveStatus is the status operations act on. A Disputed batch whose
// dispute was resolved in favour of the original terms behaves as if it were
// still in the status it had when the dispute was raised.
func (t *ledgerTx) effectiveStatus(ctx context.Context, p *domain.Produce) (domain.ProduceStatus, error) {
	if p.Status != domain.StatusDisputed {
		return p.Status, nil
	}
	d, ok, err := t.dispute(ctx, p.ProduceID)
	if err != nil {
		return "", err
	}
	if ok && d.UpholdsOriginalTerms() && d.PriorStatus.Valid() {
		return d.PriorStatus, nil
	}
	return p.Status, nil
}

// advance loads a batch, checks its effective status against from, lets
// mutate adjust it and saves it. It is the status compare-and-swap every
// transition goes through.
func (t *ledgerTx) advance(ctx context.Context, op string, produceID uint64, from []domain.ProduceStatus, mutate func(p *domain.Produce, current domain.ProduceStatus) error) (*domain.Produce, error) {
	p, err := t.produce(ctx, op, produceID)
	if err != nil {
		return nil, err
	}
	current, err := t.effectiveStatus(ctx, p)
	if err != nil {
		return nil, err
	}
	if !current.In(from...) {
		return nil, domain.ErrInvalidStatus.With(op, "produce %d is %s, need one of %v", produceID, current, from)
	}
	if err := mutate(p, current); err != nil {
		return nil, err
	}
	p.LastUpdated = t.engine.now().UTC()
	if err := t.save(ctx, domain.ProduceKey(produceID), p); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordPickup is called by the transporter collecting a Harvested batch.
// That transporter is the only one allowed to record its delivery later.
func (e *Engine) RecordPickup(ctx context.Context, transporter domain.Identity, produceID uint64, temp int16, humidity uint8) (string, error) {
	const op = "RecordPickup"
	key := domain.ProduceKey(produceID)

	ev, err := e.commit(ctx, domain.OpRecordPickup, transporter, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if humidity > domain.MaxHumidity {
			return nil, domain.ErrInvalidHumidity.With(op, "%d%% above %d%%", humidity, domain.MaxHumidity)
		}
		if temp < domain.MinTemperature {
			return nil, domain.ErrInvalidTemperature.With(op, "%d below absolute zero", temp)
		}
		if _, err := tx.requireRole(ctx, op, transporter, domain.RoleTransporter); err != nil {
			return nil, err
		}
		p, err := tx.advance(ctx, op, produceID, []domain.ProduceStatus{domain.StatusHarvested}, func(p *domain.Produce, _ domain.ProduceStatus) error {
			p.Transporter = transporter
			p.TransportTemp = temp
			p.TransportHumidity = humidity
			p.PickupConfirmed = true
			p.Status = domain.StatusPickedUp
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &domain.Event{
			Key:        key,
			ProduceID:  u64(produceID),
			Status:     p.Status,
			Attributes: map[string]any{"temp": temp, "humidity": humidity},
		}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// ConfirmPickup is the farmer acknowledging the pickup, which puts the batch in transit.
func (e *Engine) ConfirmPickup(ctx context.Context, farmer domain.Identity, produceID uint64) (string, error) {
	const op = "ConfirmPickup"
	key := domain.ProduceKey(produceID)

	ev, err := e.commit(ctx, domain.OpConfirmPickup, farmer, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.requireRole(ctx, op, farmer, domain.RoleFarmer); err != nil {
			return nil, err
		}
		p, err := tx.advance(ctx, op, produceID, []domain.ProduceStatus{domain.StatusPickedUp}, func(p *domain.Produce, _ domain.ProduceStatus) error {
			if p.Farmer != farmer {
				return domain.ErrUnauthorized.With(op, "produce %d belongs to %s", produceID, p.Farmer)
			}
			p.Status = domain.StatusInTransit
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProduceID: u64(produceID), Status: p.Status}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// RecordDelivery marks arrival. Only the transporter that picked the batch up may call it.
func (e *Engine) RecordDelivery(ctx context.Context, transporter domain.Identity, produceID uint64) (string, error) {
	const op = "RecordDelivery"
	key := domain.ProduceKey(produceID)

	ev, err := e.commit(ctx, domain.OpRecordDelivery, transporter, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.requireRole(ctx, op, transporter, domain.RoleTransporter); err != nil {
			return nil, err
		}
		from := []domain.ProduceStatus{domain.StatusPickedUp, domain.StatusInTransit}
		p, err := tx.advance(ctx, op, produceID, from, func(p *domain.Produce, _ domain.ProduceStatus) error {
			if p.Transporter != transporter {
				return domain.ErrUnauthorized.With(op, "produce %d was picked up by %s", produceID, p.Transporter)
			}
			p.Status = domain.StatusDelivered
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProduceID: u64(produceID), Status: p.Status}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// ConfirmDeliveryResult is returned by ConfirmDelivery.
type ConfirmDeliveryResult struct {
	Key        string
	EventID    string
	Settlement domain.Settlement
}

// ConfirmDelivery is the retailer accepting the batch. It settles the farmer
// price and transporter fee out of the payment vault in the same transaction
// as the status change. A batch settles at most once.
func (e *Engine) ConfirmDelivery(ctx context.Context, retailer domain.Identity, produceID uint64) (*ConfirmDeliveryResult, error) {
	const op = "ConfirmDelivery"
	key := domain.ProduceKey(produceID)

	ev, err := e.commit(ctx, domain.OpConfirmDelivery, retailer, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.requireRole(ctx, op, retailer, domain.RoleRetailer); err != nil {
			return nil, err
		}

		var settlement *domain.Settlement
		from := []domain.ProduceStatus{domain.StatusInTransit, domain.StatusDelivered, domain.StatusQualityVerified}
		p, err := tx.advance(ctx, op, produceID, from, func(p *domain.Produce, current domain.ProduceStatus) error {
			if p.DeliveryConfirmed {
				return domain.ErrAlreadySettled.With(op, "produce %d", produceID)
			}
			s, err := tx.settle(ctx, op, p)
			if err != nil {
				return err
			}
			settlement = s

			p.DeliveryConfirmed = true
			p.Retailer = retailer
			p.Status = current
			if current == domain.StatusInTransit {
				p.Status = domain.StatusDelivered
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &domain.Event{
			Key:        key,
			ProduceID:  u64(produceID),
			Status:     p.Status,
			Amount:     p.SettlementAmount(),
			Settlement: settlement,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &ConfirmDeliveryResult{Key: ev.Key, EventID: ev.ID, Settlement: *ev.Settlement}, nil
}

const qualityDisputeNote = "quality below threshold"

// VerifyQuality records an inspection score for a Delivered batch. A score
// below the threshold sends the batch to Disputed and opens a dispute on the
// inspector's behalf, or reopens the batch's resolved dispute.
func (e *Engine) VerifyQuality(ctx context.Context, inspector domain.Identity, produceID uint64, score uint8) (string, error) {
	const op = "VerifyQuality"
	key := domain.ProduceKey(produceID)

	ev, err := e.commit(ctx, domain.OpVerifyQuality, inspector, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if score > domain.MaxQuality {
			return nil, domain.ErrInvalidQuality.With(op, "%d not in 0..%d", score, domain.MaxQuality)
		}
		if _, err := tx.requireRole(ctx, op, inspector, domain.RoleWholesaler, domain.RoleRetailer); err != nil {
			return nil, err
		}

		reopened := false
		p, err := tx.advance(ctx, op, produceID, []domain.ProduceStatus{domain.StatusDelivered}, func(p *domain.Produce, current domain.ProduceStatus) error {
			p.VerifiedQuality = score
			if score >= domain.QualityThreshold {
				p.Status = domain.StatusQualityVerified
				return nil
			}
			if p.DisputeRaised {
				reopened = true
				return tx.reopenDispute(ctx, op, p, qualityDisputeNote, current)
			}
			return tx.openDispute(ctx, op, p, inspector, qualityDisputeNote, current, true)
		})
		if err != nil {
			return nil, err
		}
		attrs := map[string]any{"score": score}
		if reopened {
			attrs["reopened"] = true
		}
		return &domain.Event{
			Key:        key,
			ProduceID:  u64(produceID),
			Status:     p.Status,
			Attributes: attrs,
		}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// GetProduce returns a batch.
func (e *Engine) GetProduce(ctx context.Context, produceID uint64) (*domain.Produce, error) {
	var out *domain.Produce
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		p, err := tx.produce(ctx, "GetProduce", produceID)
		out = p
		return err
	})
	return out, err
}

// EffectiveStatus returns the status operations would act on for a batch.
func (e *Engine) EffectiveStatus(ctx context.Context, produceID uint64) (domain.ProduceStatus, error) {
	var out domain.ProduceStatus
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		p, err := tx.produce(ctx, "EffectiveStatus", produceID)
		if err != nil {
			return err
		}
		out, err = tx.effectiveStatus(ctx, p)
		return err
	})
	return out, err
}
