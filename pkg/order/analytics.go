package order

import (
	"context"
	"sort"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/query"
	"go.uber.org/zap"
)

// Report aggregates the shop's orders into a summary, a per-status breakdown and its
// five best selling flowers. Unresolvable flower names are left empty.
func (s *Service) Report(ctx context.Context, actor models.Actor, floristID string) (*models.FloristReport, error) {
	if err := RequireSelf(actor, models.RoleFlorist, floristID); err != nil {
		return nil, err
	}
	if floristID == "" {
		return nil, apperr.Validation("floristId is required")
	}

	report, err := s.store.FloristReport(ctx, floristID, topFlowersLimit)
	if err != nil {
		return nil, apperr.Wrap(err, "build florist report")
	}
	if report.ByStatus == nil {
		report.ByStatus = []models.StatusBreakdown{}
	}
	if report.TopFlowers == nil {
		report.TopFlowers = []models.FlowerSales{}
	}
	sort.SliceStable(report.ByStatus, func(i, j int) bool {
		return report.ByStatus[i].Count > report.ByStatus[j].Count
	})

	if s.catalog != nil {
		for i := range report.TopFlowers {
			flower, err := s.catalog.Lookup(ctx, report.TopFlowers[i].FlowerID)
			if err != nil {
				s.logger.Debug("Flower name unavailable",
					zap.String("flower_id", report.TopFlowers[i].FlowerID),
					zap.Error(err))
				continue
			}
			report.TopFlowers[i].Name = flower.Name
		}
	}

	return report, nil
}

func defaultListOptions() query.Options {
	return query.Options{Sort: []query.SortField{{Field: "createdAt", Desc: true}}}
}
