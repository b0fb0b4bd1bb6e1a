package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/platform/obs"
	"waste-dispatch-service/internal/ports"
)

// RerouteWaste moves every trip bound for siteID on date to the lowest-id
// other site accepting the same waste category, in one bulk update.
//
// It returns the number of trips changed. An unknown site, or a site with no
// substitute, changes nothing and returns 0. Repeating the call is a no-op
// because no trip references the closed site any more.
func (s *Scheduler) RerouteWaste(ctx context.Context, siteID int, date time.Time) (changed int, err error) {
	defer obs.Time(ctx, s.log, "reroute_waste")(&err)
	began := time.Now()
	defer func() { s.observe("reroute_waste", began, changed, err) }()

	day := domain.DateIn(date, s.loc)
	err = s.inTx(ctx, "reroute waste", func(tx ports.LedgerTx) (bool, error) {
		closed, err := tx.GetSite(ctx, siteID)
		if errors.Is(err, ports.ErrNotFound) {
			s.log.Debug().Int("site_id", siteID).Msg("reroute skipped: site not found")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("reroute waste: get site %d: %w", siteID, err)
		}

		sites, err := tx.ListSites(ctx, closed.WasteCategory)
		if err != nil {
			return false, fmt.Errorf("reroute waste: list sites category=%q: %w", closed.WasteCategory, err)
		}
		SortSites(sites)

		var substitute *domain.Site
		for i := range sites {
			if sites[i].SiteID != siteID {
				substitute = &sites[i]
				break
			}
		}
		if substitute == nil {
			s.log.Info().Int("site_id", siteID).Str("waste_category", closed.WasteCategory).Msg("reroute skipped: no substitute site")
			return false, nil
		}

		n, err := tx.RerouteAssignments(ctx, siteID, substitute.SiteID, day)
		if err != nil {
			return false, fmt.Errorf("reroute waste: update trips %d -> %d: %w", siteID, substitute.SiteID, err)
		}
		changed = n
		return n > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
