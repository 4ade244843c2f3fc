package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
)

var (
	styleLink     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDoorLink = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	stylePath     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleLand     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleAir      = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleWater    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleEndpoint = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStatus   = tcell.StyleDefault.Reverse(true)
)

// viewer draws a top-down projection of a graph and the route between two
// selected nodes.
type viewer struct {
	g     *graph.Graph
	start int
	dest  int
	hull  graph.Hull
	caps  graph.Capability
	path  []int

	minX, minY, maxX, maxY float64
}

func newViewer(g *graph.Graph) *viewer {
	v := &viewer{g: g, hull: graph.HullHuman, dest: max(g.NodeCount()-1, 0)}
	v.minX, v.minY = math.Inf(1), math.Inf(1)
	v.maxX, v.maxY = math.Inf(-1), math.Inf(-1)
	for i := 0; i < g.NodeCount(); i++ {
		o := g.Node(i).Origin
		v.minX, v.maxX = min(v.minX, o[0]), max(v.maxX, o[0])
		v.minY, v.maxY = min(v.minY, o[1]), max(v.maxY, o[1])
	}
	v.route()
	return v
}

func (v *viewer) route() {
	v.path = nil
	if v.g.NodeCount() == 0 {
		return
	}
	v.path = v.g.FindShortestPath(v.start, v.dest, v.hull, v.caps)
}

// project maps a world origin into the drawable area above the status line.
// World +Y points up the screen.
func (v *viewer) project(origin graph.Vec3, width, height int) (int, int) {
	height--
	spanX := v.maxX - v.minX
	spanY := v.maxY - v.minY
	x, y := width/2, height/2
	if spanX > 0 && width > 1 {
		x = int(math.Round((origin[0] - v.minX) / spanX * float64(width-1)))
	}
	if spanY > 0 && height > 1 {
		y = height - 1 - int(math.Round((origin[1]-v.minY)/spanY*float64(height-1)))
	}
	return x, y
}

func (v *viewer) draw(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	if width < 2 || height < 3 {
		screen.Show()
		return
	}

	onPath := make(map[[2]int]bool, len(v.path))
	for i := 0; i+1 < len(v.path); i++ {
		onPath[[2]int{v.path[i], v.path[i+1]}] = true
		onPath[[2]int{v.path[i+1], v.path[i]}] = true
	}

	for i := 0; i < v.g.LinkCount(); i++ {
		link := v.g.Link(i)
		style := styleLink
		if link.ModelName != "" {
			style = styleDoorLink
		}
		if onPath[[2]int{int(link.Src), int(link.Dest)}] {
			style = stylePath
		}
		x0, y0 := v.project(v.g.Node(int(link.Src)).Origin, width, height)
		x1, y1 := v.project(v.g.Node(int(link.Dest)).Origin, width, height)
		drawLine(screen, x0, y0, x1, y1, '·', style)
	}

	for i := 0; i < v.g.NodeCount(); i++ {
		node := v.g.Node(i)
		x, y := v.project(node.Origin, width, height)
		r, style := 'o', styleLand
		switch {
		case node.Info&graph.NodeAir != 0:
			r, style = '^', styleAir
		case node.Info&graph.NodeWater != 0:
			r, style = '~', styleWater
		}
		switch i {
		case v.start:
			r, style = 'S', styleEndpoint
		case v.dest:
			r, style = 'D', styleEndpoint
		}
		screen.SetContent(x, y, r, nil, style)
	}

	drawText(screen, 0, height-1, width, v.status(), styleStatus)
	screen.Show()
}

func (v *viewer) status() string {
	route := "no route"
	if len(v.path) > 0 {
		route = fmt.Sprintf("%d hops %.0f units", len(v.path)-1, v.g.PathLength(v.start, v.dest, v.hull, v.caps))
	}
	doors := "closed"
	if v.caps&graph.CapOpenDoors != 0 {
		doors = "open"
	}
	return fmt.Sprintf(" %s  %d->%d  hull %s  doors %s  %s   [s/S start  d/D dest  h hull  o doors  q quit]",
		v.g.Options().MapName, v.start, v.dest, v.hull, doors, route)
}

// handle applies a key press and reports whether the viewer should exit.
func (v *viewer) handle(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return true
	}
	if ev.Key() != tcell.KeyRune {
		return false
	}
	n := v.g.NodeCount()
	if n == 0 {
		return ev.Rune() == 'q'
	}
	switch ev.Rune() {
	case 'q':
		return true
	case 's':
		v.start = (v.start + 1) % n
	case 'S':
		v.start = (v.start + n - 1) % n
	case 'd':
		v.dest = (v.dest + 1) % n
	case 'D':
		v.dest = (v.dest + n - 1) % n
	case 'h':
		v.hull = (v.hull + 1) % graph.NumHulls
	case 'o':
		v.caps ^= graph.CapOpenDoors
	default:
		return false
	}
	v.route()
	return false
}

func drawLine(screen tcell.Screen, x0, y0, x1, y1 int, r rune, style tcell.Style) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		screen.SetContent(x0, y0, r, nil, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= width {
			return
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		screen.SetContent(col, y, ' ', nil, style)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
