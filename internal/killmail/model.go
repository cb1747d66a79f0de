// Package killmail holds the wire model for killmails as returned by ESI,
// plus the lightweight ref used for dedup and detail retrieval.
package killmail

import "time"

// Ref points at one killmail. The hash is an opaque access token required to
// fetch the full record; it is compared exact-match only, never normalized.
type Ref struct {
	ID   int64  `json:"killmail_id"`
	Hash string `json:"killmail_hash"`
}

// Item is one fitted or carried item on the victim's ship.
type Item struct {
	Flag              int   `json:"flag"`
	ItemTypeID        int64 `json:"item_type_id"`
	QuantityDestroyed int64 `json:"quantity_destroyed"`
	QuantityDropped   int64 `json:"quantity_dropped"`
	Singleton         int   `json:"singleton"`
}

type Victim struct {
	CharacterID   int64  `json:"character_id"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    int64  `json:"alliance_id"`
	ShipTypeID    int64  `json:"ship_type_id"`
	DamageTaken   int64  `json:"damage_taken"`
	Items         []Item `json:"items"`
}

type Attacker struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
	ShipTypeID    int64 `json:"ship_type_id"`
	WeaponTypeID  int64 `json:"weapon_type_id"`
	DamageDone    int64 `json:"damage_done"`
	FinalBlow     bool  `json:"final_blow"`
}

// Killmail is the full record. Constructed fresh per detail fetch, consumed
// by pricing and notification, then discarded; never cached.
type Killmail struct {
	ID            int64      `json:"killmail_id"`
	Hash          string     `json:"killmail_hash"`
	Time          time.Time  `json:"killmail_time"`
	SolarSystemID int64      `json:"solar_system_id"`
	Victim        Victim     `json:"victim"`
	Attackers     []Attacker `json:"attackers"`
}

// FinalBlow returns the attacker that landed the final blow, falling back to
// the first attacker when the flag is missing. Nil when there are none.
func (k *Killmail) FinalBlow() *Attacker {
	for i := range k.Attackers {
		if k.Attackers[i].FinalBlow {
			return &k.Attackers[i]
		}
	}
	if len(k.Attackers) > 0 {
		return &k.Attackers[0]
	}
	return nil
}

// IsKillFor reports whether the mail is a kill from corpID's point of view,
// i.e. any attacker belongs to that corporation. Otherwise it is a loss.
func (k *Killmail) IsKillFor(corpID int64) bool {
	for _, a := range k.Attackers {
		if a.CorporationID == corpID {
			return true
		}
	}
	return false
}

func (k *Killmail) InvolvedCount() int { return len(k.Attackers) }
