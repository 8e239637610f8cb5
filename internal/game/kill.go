package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

// DamagePlayer lowers the target's health and kills it at zero.
func (g *Game) DamagePlayer(targetID, killerID world.ObjectID, amount float64, damageType uint8, itemSource string) error {
	o, ok := g.Players.Get(targetID)
	if !ok {
		return fmt.Errorf("damage %d: %w", targetID, ErrNoPlayer)
	}
	p := world.As[*world.Player](o)
	if p.Dead {
		return nil
	}
	p.Health -= amount
	if p.Health > 0 {
		return nil
	}
	return g.KillPlayer(targetID, killerID, damageType, itemSource)
}

// KillPlayer marks the target dead, drops its active item, credits the
// killer and broadcasts a Kill message. killerID 0 means no killer.
func (g *Game) KillPlayer(targetID, killerID world.ObjectID, damageType uint8, itemSource string) error {
	o, ok := g.Players.Get(targetID)
	if !ok {
		return fmt.Errorf("kill %d: %w", targetID, ErrNoPlayer)
	}
	p := world.As[*world.Player](o)
	if p.Dead {
		return nil
	}
	p.Dead = true
	p.Downed = false
	p.Health = 0
	p.MoveDir = geom.Vec2{}
	g.reg.SetPartDirty(o, world.FieldPlayerState)
	if p.ActiveItem != "" {
		item := p.ActiveItem
		p.ActiveItem = ""
		g.reg.SetPartDirty(o, world.FieldPlayerItem)
		if _, err := g.Loot.AddLoot(item, o.Pos, o.Layer, 1, LootOpts{PushSpeed: lootDefaultPush}); err != nil {
			g.log.Warn("death drop failed", zap.String("item", item), zap.Error(err))
		}
	}

	var killerName string
	var killerKills uint8
	if killerID == targetID {
		killerID = 0
	}
	if ko, ok := g.Players.Get(killerID); ok {
		kp := world.As[*world.Player](ko)
		if kp.Kills < 255 {
			kp.Kills++
		}
		killerName = kp.Name
		killerKills = kp.Kills
	} else {
		killerID = 0
	}

	if itemSource != "" && g.defs.Get(itemSource) == nil {
		itemSource = ""
	}
	g.SendMsg(packet.MsgKill, &packet.KillMsg{
		DamageType:     damageType,
		ItemSourceType: itemSource,
		TargetID:       uint16(targetID),
		KillerID:       uint16(killerID),
		KillCreditID:   uint16(killerID),
		KillerKills:    killerKills,
		Killed:         true,
	})
	event.Emit(g.bus, event.PlayerKilled{
		TargetID:    uint16(targetID),
		KillerID:    uint16(killerID),
		DamageType:  damageType,
		ItemSource:  itemSource,
		TargetName:  p.Name,
		KillerName:  killerName,
		KillerKills: killerKills,
		Tick:        g.tick,
	})
	g.log.Info("player killed",
		zap.Uint16("target", uint16(targetID)),
		zap.Uint16("killer", uint16(killerID)),
		zap.Uint8("damage_type", damageType),
	)
	return nil
}
