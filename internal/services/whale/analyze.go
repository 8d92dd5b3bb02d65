package whale

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"whalescan/internal/domain/whale"
	"whalescan/internal/metrics"
	"whalescan/pkg/errors"
)

// AnalyzeWhale fetches balance, recent transactions and token transfers for
// an address and derives the full whale report. Data client errors propagate
// unchanged; the retry policy lives below the DataSource boundary.
func (s *Service) AnalyzeWhale(ctx context.Context, chainID, address string) (report *whale.Report, err error) {
	defer func() { metrics.RecordAnalysis(chainID, "analyze_whale", err) }()

	snap, err := s.source.GetBalance(ctx, chainID, address)
	if err != nil {
		return nil, err
	}
	address = snap.Address // normalized by the client

	txs, err := s.source.GetTransactions(ctx, chainID, address, analysisTxWindow)
	if err != nil {
		return nil, err
	}
	transfers, err := s.source.GetTokenTransfers(ctx, chainID, address, analysisTransferWindow)
	if err != nil {
		return nil, err
	}

	report = &whale.Report{
		ID:          uuid.NewString(),
		Address:     address,
		ChainID:     snap.ChainID,
		Class:       s.Classify(snap.Balance),
		Balance:     snap.Balance,
		GeneratedAt: s.now().UTC(),
		Label:       s.KnownWhaleLabel(chainID, address),
	}

	s.fillTransactionMetrics(report, address, txs)
	report.ActivityScore = s.activityScore(txs)
	report.RiskScore = s.riskScore(chainID, address, snap.Balance, txs)
	report.TokenDiversity = tokenDiversity(transfers)

	return report, nil
}

func (s *Service) fillTransactionMetrics(r *whale.Report, address string, txs []whale.Transaction) {
	r.TotalTransactions = len(txs)
	r.AvgTransaction = decimal.Zero
	r.MaxTransaction = decimal.Zero
	r.NetFlow = decimal.Zero
	if len(txs) == 0 {
		return
	}

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Value)
		if tx.Value.GreaterThan(largeTxMin) {
			r.LargeTransactions++
		}
		if tx.Value.GreaterThan(r.MaxTransaction) {
			r.MaxTransaction = tx.Value
		}
		if !tx.Success {
			continue // failed transactions moved nothing
		}
		if strings.EqualFold(tx.To, address) {
			r.NetFlow = r.NetFlow.Add(tx.Value)
		} else {
			r.NetFlow = r.NetFlow.Sub(tx.Value)
		}
		if r.FirstSeen.IsZero() || tx.Timestamp.Before(r.FirstSeen) {
			r.FirstSeen = tx.Timestamp
		}
		if tx.Timestamp.After(r.LastActivity) {
			r.LastActivity = tx.Timestamp
		}
	}
	r.AvgTransaction = sum.DivRound(decimal.NewFromInt(int64(len(txs))), 8)
}

// activityScore is the share of the 20 most recent transactions that landed
// within the last 30 days, scaled to 0-100.
func (s *Service) activityScore(txs []whale.Transaction) float64 {
	if len(txs) == 0 {
		return 0
	}

	const window = 20
	cutoff := s.now().Add(-30 * 24 * time.Hour)

	recent := 0
	checked := 0
	for _, tx := range txs {
		if checked == window {
			break
		}
		checked++
		if tx.Timestamp.After(cutoff) {
			recent++
		}
	}

	score := float64(recent) / float64(window) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// riskScore aggregates heuristic risk factors to 0-100: large holdings and
// a young or large-transaction-heavy history raise it, a curated label
// lowers it.
func (s *Service) riskScore(chainID, address string, balance decimal.Decimal, txs []whale.Transaction) float64 {
	score := 0.0

	if balance.GreaterThan(largeWhaleMin) {
		score += 30
	}
	if s.KnownWhaleLabel(chainID, address) != "" {
		score -= 20
	}

	if len(txs) > 0 {
		large := 0
		var oldest time.Time
		for _, tx := range txs {
			if tx.Value.GreaterThan(mediumWhaleMin) {
				large++
			}
			if oldest.IsZero() || tx.Timestamp.Before(oldest) {
				oldest = tx.Timestamp
			}
		}
		if float64(large)/float64(len(txs)) > 0.5 {
			score += 25
		}
		if s.now().Sub(oldest) < 30*24*time.Hour {
			score += 40
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func tokenDiversity(transfers []whale.TokenTransfer) int {
	seen := make(map[string]struct{}, len(transfers))
	for _, tr := range transfers {
		if tr.ContractAddress == "" {
			continue
		}
		seen[tr.ContractAddress] = struct{}{}
	}
	return len(seen)
}

// classifyBalance fetches and classifies an address, used when only the
// tier of a counterparty matters. Errors degrade to an unknown (empty)
// class rather than failing the caller's scan.
func (s *Service) classifyBalance(ctx context.Context, chainID, address string, cache map[string]whale.Class) (whale.Class, error) {
	key := strings.ToLower(address)
	if class, ok := cache[key]; ok {
		return class, nil
	}

	snap, err := s.source.GetBalance(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, errors.ErrUnknownChain) {
			return "", err
		}
		s.log.Debugw("counterparty classification skipped", "address", address, "error", err)
		return "", nil
	}

	class := s.Classify(snap.Balance)
	cache[key] = class
	return class, nil
}
