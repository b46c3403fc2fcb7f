package seating

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rota/internal/domain/model"
)

// StrategyName keys the allocation dispatch table.
type StrategyName string

const (
	StrategyDefault         StrategyName = "default"
	StrategyFridayAfternoon StrategyName = "friday-afternoon"
	StrategyPerio           StrategyName = "perio"
	StrategyOrphanRecovery  StrategyName = "orphan-recovery"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (StrategyName, error) {
	switch n := StrategyName(s); n {
	case "":
		return StrategyDefault, nil
	case StrategyDefault, StrategyFridayAfternoon, StrategyPerio, StrategyOrphanRecovery:
		return n, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Strategy is one way of running an allocation pass.
type Strategy interface {
	Allocate(ctx context.Context, a *Allocator, req Request) (Seating, error)
}

type defaultStrategy struct{}

func (defaultStrategy) Allocate(ctx context.Context, a *Allocator, req Request) (Seating, error) {
	return a.place(ctx, req, false)
}

type fridayAfternoonStrategy struct{}

func (fridayAfternoonStrategy) Allocate(ctx context.Context, a *Allocator, req Request) (Seating, error) {
	if req.Session.Date.Weekday() != time.Friday || req.Session.Period != model.PeriodPM {
		return Seating{}, fmt.Errorf("%w: %s is not a Friday afternoon", ErrStrategyMismatch, req.Session)
	}
	return a.place(ctx, req, true)
}

// perioStrategy seats workers one by one; every unit must be an orphan.
type perioStrategy struct{}

func (perioStrategy) Allocate(ctx context.Context, a *Allocator, req Request) (Seating, error) {
	for _, u := range req.Units {
		if u.Kind() != model.KindOrphan {
			return Seating{}, fmt.Errorf("%w: %s in %s", ErrUnexpectedKind, u.Kind(), req.Session)
		}
	}
	return a.place(ctx, req, true)
}

// orphanRecoveryStrategy re-seats the orphans of a previous pass. The caller
// passes a pool built from the positions that pass left free.
type orphanRecoveryStrategy struct{}

func (orphanRecoveryStrategy) Allocate(ctx context.Context, a *Allocator, req Request) (Seating, error) {
	return a.place(ctx, req, true)
}
