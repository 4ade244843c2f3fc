package graph

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is the world-space vector used throughout the graph.
type Vec3 = mgl64.Vec3

// NodeType flags describe the realm a node lives in.
type NodeType int32

const (
	NodeLand  NodeType = 1 << 0
	NodeAir   NodeType = 1 << 1
	NodeWater NodeType = 1 << 2

	// NodeRealm masks the realm bits; links only join nodes of equal realm.
	NodeRealm = NodeLand | NodeAir | NodeWater
)

// Hull identifies a monster size class.
type Hull int

const (
	HullSmall Hull = iota
	HullHuman
	HullLarge
	HullFly

	NumHulls = 4
)

func (h Hull) String() string {
	switch h {
	case HullSmall:
		return "small"
	case HullHuman:
		return "human"
	case HullLarge:
		return "large"
	case HullFly:
		return "fly"
	default:
		return "unknown"
	}
}

// ParseHull is the inverse of Hull.String.
func ParseHull(name string) (Hull, bool) {
	for h := Hull(0); h < NumHulls; h++ {
		if h.String() == name {
			return h, true
		}
	}
	return 0, false
}

// HullExtents returns the half width and height of the hull box.
func HullExtents(h Hull) (halfWidth, height float64) {
	switch h {
	case HullSmall:
		return 12, 24
	case HullHuman:
		return 16, 72
	case HullLarge:
		return 32, 64
	case HullFly:
		return 32, 64
	default:
		return 0, 0
	}
}

// LinkInfo flags carried by a link.
type LinkInfo int32

const (
	LinkSmallHull LinkInfo = 1 << 0
	LinkHumanHull LinkInfo = 1 << 1
	LinkLargeHull LinkInfo = 1 << 2
	LinkFlyHull   LinkInfo = 1 << 3
	LinkDisabled  LinkInfo = 1 << 4

	LinkAllHulls = LinkSmallHull | LinkHumanHull | LinkLargeHull | LinkFlyHull
)

// HullMask returns the link bit for the hull.
func HullMask(h Hull) LinkInfo {
	switch h {
	case HullSmall:
		return LinkSmallHull
	case HullHuman:
		return LinkHumanHull
	case HullLarge:
		return LinkLargeHull
	case HullFly:
		return LinkFlyHull
	default:
		return 0
	}
}

// Capability bits of the agent asking for a route.
type Capability int32

const (
	CapNone      Capability = 0
	CapUse       Capability = 1 << 6
	CapAutoDoors Capability = 1 << 8
	CapOpenDoors Capability = 1 << 9

	// CapDoorGroup is the capability set of the "can open doors" routing class.
	CapDoorGroup = CapUse | CapAutoDoors | CapOpenDoors

	NumCapClasses = 2
)

// CapIndex maps a capability mask to its routing table class.
func CapIndex(caps Capability) int {
	if caps&CapDoorGroup != 0 {
		return 1
	}
	return 0
}

// capClassMask is the capability mask routing tables are compiled with.
func capClassMask(class int) Capability {
	if class == 1 {
		return CapDoorGroup
	}
	return CapNone
}

// QueryKind distinguishes "usable right now" from "ever usable".
type QueryKind int

const (
	QueryDynamic QueryKind = iota
	QueryStatic
)

// TraceMode is passed through to the tracer.
type TraceMode int

const (
	TraceIgnoreMonsters TraceMode = iota
	TraceDontIgnoreMonsters
)

// TraceResult is what the host trace primitive reports.
type TraceResult struct {
	Fraction    float64
	EndPos      Vec3
	Hit         Entity
	StartSolid  bool
	PlaneNormal Vec3
}

// Tracer is the host line-trace primitive.
type Tracer interface {
	TraceLine(start, end Vec3, mode TraceMode, ignore Entity) TraceResult
}

// Walker is optionally implemented by tracers that can test whether a hull
// fits along a straight walk between two points.
type Walker interface {
	WalkMove(start, end Vec3, hull Hull, ignore Entity) bool
}

// ToggleState of a door-like entity.
type ToggleState int

const (
	ToggleAtTop ToggleState = iota
	ToggleAtBottom
	ToggleGoingUp
	ToggleGoingDown
)

// Door spawn flags consulted by link entity handling.
const (
	DoorNoAutoReturn = 32
	DoorUseOnly      = 256
	DoorNoMonsters   = 512
)

// Entity class names the graph knows about.
const (
	ClassWorld        = "worldspawn"
	ClassDoor         = "func_door"
	ClassDoorRotating = "func_door_rotating"
	ClassBreakable    = "func_breakable"
	ClassButton       = "func_button"
	ClassRotButton    = "func_rot_button"
)

// Entity is the slice of a host entity the graph looks at.
type Entity interface {
	ClassName() string
	Model() string
	TargetName() string
	SpawnFlags() int
	ToggleState() ToggleState
	Center() Vec3
}

// Grapher is implemented by entities that track whether a link references them.
type Grapher interface {
	SetGraphed(bool)
}

// EntityFinder resolves entity references owned by the host.
type EntityFinder interface {
	FindEntityByModel(model string) Entity
	FindEntitiesByTarget(targetName string) []Entity
}

func isWorld(ent Entity) bool {
	return ent == nil || ent.ClassName() == ClassWorld
}

func isDoor(ent Entity) bool {
	if ent == nil {
		return false
	}
	name := ent.ClassName()
	return name == ClassDoor || name == ClassDoorRotating
}

// NoNode is returned by queries that found nothing.
const NoNode = -1

// Node is a waypoint. Its identity is its index in the graph.
type Node struct {
	Origin       Vec3
	Peek         Vec3
	Info         NodeType
	HintType     int32
	HintActivity int32
	HintYaw      float64
	Region       [3]uint8
	FirstLink    int32
	NumLinks     int32
	NextBest     [NumHulls][NumCapClasses]int32
}

// Link is a directed edge.
type Link struct {
	Src       int32
	Dest      int32
	Weight    float64
	Info      LinkInfo
	Ent       Entity
	ModelName string
}
