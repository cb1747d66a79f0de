package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/besra/killfeed/internal/esi"
	"github.com/besra/killfeed/internal/killmail"
	"github.com/besra/killfeed/internal/metrics"
	"github.com/besra/killfeed/internal/notify"
)

// processRef is the single pipeline every claimed ref goes through,
// regardless of which source discovered it: fetch detail, resolve display
// names, price, notify, archive. The claim already happened; a failure here
// leaves the ref claimed and unretried until reconciliation prunes it.
func (e *Engine) processRef(ctx context.Context, ref killmail.Ref, source string) error {
	km, err := e.deps.ESI.FetchKillmail(ctx, ref.ID, ref.Hash)
	if err != nil {
		if esi.IsNotFound(err) {
			// accepted loss: stays claimed, pruned later by cleanup
			metrics.ProcessErrors.WithLabelValues("fetch_gone").Inc()
			log.Warn().Int64("killmail_id", ref.ID).Msg("Killmail no longer available upstream")
			return nil
		}
		metrics.ProcessErrors.WithLabelValues("fetch").Inc()
		return err
	}

	kill := e.enrich(ctx, km, source)

	totalValue, err := e.deps.Pricing.KillmailValue(ctx, km)
	if err != nil {
		metrics.ProcessErrors.WithLabelValues("pricing").Inc()
		return err
	}
	droppedValue, err := e.deps.Pricing.DroppedValue(ctx, km)
	if err != nil {
		metrics.ProcessErrors.WithLabelValues("pricing").Inc()
		return err
	}
	kill.TotalValue = totalValue
	kill.DroppedValue = droppedValue

	if err := e.deps.Notifier.Notify(ctx, kill); err != nil {
		metrics.NotifyErrors.Inc()
		return err
	}
	metrics.KillsProcessed.WithLabelValues(source).Inc()

	if e.deps.Archive != nil {
		if err := e.deps.Archive.Insert(ctx, kill); err != nil {
			// archive is best effort, the notification already went out
			log.Warn().Err(err).Int64("killmail_id", kill.ID).Msg("Archive insert failed")
		}
	}
	return nil
}

// enrich resolves the cosmetic labels. Name resolution is tolerant: on any
// failure the notification carries placeholder labels instead of being
// dropped.
func (e *Engine) enrich(ctx context.Context, km *killmail.Killmail, source string) *notify.Kill {
	kill := &notify.Kill{
		ID:       km.ID,
		Hash:     km.Hash,
		Time:     km.Time,
		IsKill:   km.IsKillFor(e.cfg.CorporationID),
		Involved: km.InvolvedCount(),
		Source:   source,
	}

	fb := km.FinalBlow()

	ids := []int64{
		km.Victim.CharacterID, km.Victim.CorporationID, km.Victim.AllianceID,
		km.Victim.ShipTypeID, km.SolarSystemID,
	}
	if fb != nil {
		ids = append(ids, fb.CharacterID, fb.CorporationID, fb.AllianceID, fb.ShipTypeID)
	}

	regionID, err := e.deps.ESI.RegionForSystem(ctx, km.SolarSystemID)
	if err != nil {
		log.Warn().Err(err).Int64("system_id", km.SolarSystemID).Msg("Region lookup failed")
		regionID = 0
	}
	if regionID != 0 {
		ids = append(ids, regionID)
	}

	names, err := e.deps.ESI.ResolveNames(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Int64("killmail_id", km.ID).Msg("Name resolution failed")
		names = map[int64]string{}
	}

	lookup := func(id int64) string {
		if id == 0 {
			return ""
		}
		return names[id]
	}

	kill.SystemName = fallback(lookup(km.SolarSystemID), "System %d", km.SolarSystemID)
	kill.ShipName = fallback(lookup(km.Victim.ShipTypeID), "Type %d", km.Victim.ShipTypeID)
	kill.RegionName = "Unknown Region"
	if regionID != 0 {
		kill.RegionName = fallback(lookup(regionID), "Region %d", regionID)
	}

	kill.VictimName = lookup(km.Victim.CharacterID)
	kill.VictimCorp = lookup(km.Victim.CorporationID)
	kill.VictimAlliance = lookup(km.Victim.AllianceID)

	if fb != nil {
		kill.FinalBlowName = lookup(fb.CharacterID)
		kill.FinalBlowCorp = lookup(fb.CorporationID)
		kill.FinalBlowAlliance = lookup(fb.AllianceID)
		kill.FinalBlowShip = lookup(fb.ShipTypeID)
	}
	return kill
}

func fallback(name, format string, id int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf(format, id)
}
