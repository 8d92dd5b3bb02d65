package onchain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"whalescan/internal/chains"
	whalesvc "whalescan/internal/services/whale"
	"whalescan/internal/workers"
	"whalescan/pkg/errors"
)

// MovementMonitor periodically sweeps the curated whale and exchange
// addresses on every registered chain and logs movements above the
// configured threshold. It is an observation loop, not an alerting system;
// downstream consumers read the structured log or the metrics feed.
type MovementMonitor struct {
	*workers.BaseWorker
	engine    *whalesvc.Service
	registry  *chains.Registry
	threshold decimal.Decimal
}

// NewMovementMonitor creates a new whale movement monitor
func NewMovementMonitor(
	engine *whalesvc.Service,
	registry *chains.Registry,
	threshold decimal.Decimal,
	interval time.Duration,
	enabled bool,
) *MovementMonitor {
	return &MovementMonitor{
		BaseWorker: workers.NewBaseWorker("movement_monitor", interval, enabled),
		engine:     engine,
		registry:   registry,
		threshold:  threshold,
	}
}

// Run executes one sweep across all registered chains
func (m *MovementMonitor) Run(ctx context.Context) error {
	m.Log().Debug("Movement monitor: starting sweep")

	totalMovements := 0
	chainsScanned := 0

	for _, profile := range m.registry.List() {
		// Check for context cancellation (graceful shutdown)
		select {
		case <-ctx.Done():
			m.Log().Info("Movement monitor interrupted by shutdown",
				"chains_scanned", chainsScanned,
				"movements_seen", totalMovements,
			)
			return ctx.Err()
		default:
		}

		count, err := m.sweepChain(ctx, profile.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			m.Log().Error("Chain sweep failed",
				"chain", profile.ID,
				"error", err,
			)
			continue
		}

		totalMovements += count
		chainsScanned++
	}

	m.Log().Info("Movement sweep completed",
		"chains", chainsScanned,
		"movements", totalMovements,
	)
	return nil
}

// sweepChain runs exchange tracking for one chain and logs what it finds.
func (m *MovementMonitor) sweepChain(ctx context.Context, chainID string) (int, error) {
	movements, err := m.engine.TrackExchangeWhales(ctx, chainID, nil, m.threshold)
	if err != nil {
		return 0, err
	}

	for _, mv := range movements {
		m.Log().Info("Whale movement observed",
			"chain", chainID,
			"tx", mv.TxHash,
			"direction", mv.Direction,
			"type", mv.MovementType,
			"magnitude", mv.Magnitude.String(),
			"significance", m.engine.Significance(mv.Magnitude),
			"exchange", mv.ExchangeLabel,
		)
	}
	return len(movements), nil
}
