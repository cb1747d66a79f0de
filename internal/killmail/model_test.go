package killmail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalBlow(t *testing.T) {
	km := &Killmail{Attackers: []Attacker{
		{CharacterID: 1},
		{CharacterID: 2, FinalBlow: true},
		{CharacterID: 3},
	}}
	fb := km.FinalBlow()
	require.NotNil(t, fb)
	assert.EqualValues(t, 2, fb.CharacterID)

	// flag missing: first attacker stands in
	km.Attackers[1].FinalBlow = false
	fb = km.FinalBlow()
	require.NotNil(t, fb)
	assert.EqualValues(t, 1, fb.CharacterID)

	assert.Nil(t, (&Killmail{}).FinalBlow())
}

func TestIsKillFor(t *testing.T) {
	km := &Killmail{
		Victim:    Victim{CorporationID: 42},
		Attackers: []Attacker{{CorporationID: 99}, {CorporationID: 42}},
	}
	assert.True(t, km.IsKillFor(42), "own attacker present: a kill even when the victim is also ours")
	assert.False(t, km.IsKillFor(7))
	assert.False(t, (&Killmail{Victim: Victim{CorporationID: 42}}).IsKillFor(42))
}

func TestKillmailDecode(t *testing.T) {
	raw := `{
		"killmail_time":"2026-08-30T12:00:00Z",
		"solar_system_id":30000142,
		"victim":{"character_id":900,"ship_type_id":587,"damage_taken":4242,
			"items":[{"item_type_id":34,"quantity_destroyed":10,"quantity_dropped":5,"flag":5}]},
		"attackers":[{"character_id":700,"final_blow":true,"damage_done":4242}]
	}`
	var km Killmail
	require.NoError(t, json.Unmarshal([]byte(raw), &km))

	assert.EqualValues(t, 30000142, km.SolarSystemID)
	assert.EqualValues(t, 587, km.Victim.ShipTypeID)
	require.Len(t, km.Victim.Items, 1)
	assert.EqualValues(t, 10, km.Victim.Items[0].QuantityDestroyed)
	assert.EqualValues(t, 5, km.Victim.Items[0].QuantityDropped)
	assert.Equal(t, 1, km.InvolvedCount())
}
