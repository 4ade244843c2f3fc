package graph

import (
	"context"

	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

// HandleLinkEnt decides whether an agent with caps may cross a link blocked
// by ent. A dynamic query asks about right now; a static query asks whether
// the link could ever be crossed and is what routing tables are built from.
func (g *Graph) HandleLinkEnt(node int, ent Entity, caps Capability, kind QueryKind) bool {
	if !g.ready("HandleLinkEnt") {
		return false
	}
	return g.handleLinkEnt(node, ent, caps, kind)
}

func (g *Graph) handleLinkEnt(node int, ent Entity, caps Capability, kind QueryKind) bool {
	if ent == nil {
		return true
	}

	switch {
	case isDoor(ent):
		flags := ent.SpawnFlags()
		staysOpen := ent.ToggleState() == ToggleAtTop && flags&DoorNoAutoReturn != 0
		if flags&DoorUseOnly != 0 {
			if caps&CapOpenDoors != 0 {
				return true
			}
			return kind == QueryStatic && staysOpen
		}
		if staysOpen {
			return true
		}
		if caps&CapOpenDoors != 0 && (flags&DoorNoMonsters == 0 || kind == QueryStatic) {
			return true
		}
		return false

	case ent.ClassName() == ClassBreakable:
		return kind == QueryStatic

	default:
		lognodegraph.UnhandledLinkEntity(context.Background(), g.opts.Publisher, g.opts.MapName, node, lognodegraph.LinkEntityPayload{
			Model:     ent.Model(),
			ClassName: ent.ClassName(),
		})
		return false
	}
}

// LinkEntForLink returns the entity an agent standing on node should
// interact with to open the link's blocker: a visible button that targets
// the door, the door itself otherwise, or nil for non-door blockers.
func (g *Graph) LinkEntForLink(link, node int) Entity {
	if link < 0 || link >= len(g.links) || !g.validNode(node) {
		return nil
	}
	ent := g.links[link].Ent
	if ent == nil {
		return nil
	}
	if !isDoor(ent) {
		lognodegraph.UnhandledLinkEntity(context.Background(), g.opts.Publisher, g.opts.MapName, node, lognodegraph.LinkEntityPayload{
			Model:     ent.Model(),
			ClassName: ent.ClassName(),
		})
		return nil
	}
	if ent.SpawnFlags()&DoorUseOnly != 0 || g.finder == nil || ent.TargetName() == "" {
		return ent
	}

	origin := g.nodes[node].Origin
	for _, trigger := range g.finder.FindEntitiesByTarget(ent.TargetName()) {
		if trigger == nil {
			continue
		}
		switch trigger.ClassName() {
		case ClassButton, ClassRotButton:
		default:
			continue
		}
		tr := g.trace(origin, trigger.Center(), TraceIgnoreMonsters, nil)
		if tr.Hit == trigger {
			return trigger
		}
	}
	return ent
}

// ResolveLinkEntities re-binds every link's blocking entity by model name
// after a load. Links whose entity is gone follow the dangling policy, and
// compiled routing tables are rebuilt so they agree with live searches. It
// returns the number of unresolved links.
func (g *Graph) ResolveLinkEntities(ctx context.Context, finder EntityFinder) (int, error) {
	g.finder = finder
	unresolved := 0
	for i := range g.links {
		link := &g.links[i]
		link.Ent = nil
		if link.ModelName == "" {
			continue
		}
		var ent Entity
		if finder != nil {
			ent = finder.FindEntityByModel(link.ModelName)
		}
		if ent != nil {
			link.Ent = ent
			g.markGraphed(ent)
			continue
		}

		unresolved++
		lognodegraph.LinkEntityUnresolved(ctx, g.opts.Publisher, g.opts.MapName, i, lognodegraph.LinkEntityPayload{
			Model:  link.ModelName,
			Policy: g.opts.Dangling.String(),
		})
		if g.opts.Dangling == DanglingDisable {
			link.Info |= LinkDisabled
		}
	}
	g.pointersSet = true

	if unresolved > 0 && g.routingComplete {
		return unresolved, g.ComputeStaticRoutingTables(ctx)
	}
	return unresolved, nil
}
