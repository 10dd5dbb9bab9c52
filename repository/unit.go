package repository

import "context"

// UnitCounter provides the engagement denominator.
type UnitCounter interface {
	TotalUnits(ctx context.Context) (int64, error)
}
