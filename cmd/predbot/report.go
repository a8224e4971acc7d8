package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/predbot/internal/adapters/notify"
	"github.com/alejandrodnm/predbot/internal/domain"
)

func runReport(ctx context.Context, s *stores, console *notify.Console) error {
	p, err := s.portfolio.Load(ctx)
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		fmt.Println("No portfolio yet. Run at least one cycle first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("runReport: load portfolio: %w", err)
	}

	decisions, err := s.decisions.Read(ctx)
	if err != nil {
		return fmt.Errorf("runReport: read decisions: %w", err)
	}

	console.PrintReport(domain.ComputeStats(p, decisions), p.Positions)
	return nil
}
