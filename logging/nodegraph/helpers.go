package nodegraph

import (
	"context"
	"strconv"

	"github.com/UAVXP/SharpLife-Game-sub000/logging"
)

const (
	// EventGraphBuilt is emitted when a build pipeline finishes.
	EventGraphBuilt logging.EventType = "nodegraph.graph_built"
	// EventLinkCapacityExceeded is emitted when a node or the link pool overflows.
	EventLinkCapacityExceeded logging.EventType = "nodegraph.link_capacity_exceeded"
	// EventInlineLinksRejected is emitted after redundant collinear links are pruned.
	EventInlineLinksRejected logging.EventType = "nodegraph.inline_links_rejected"
	// EventRoutingTablesCompiled is emitted when every hull/capability table is written.
	EventRoutingTablesCompiled logging.EventType = "nodegraph.routing_tables_compiled"
	// EventRoutingCompressionFailed is emitted when a next hop offset does not fit a byte.
	EventRoutingCompressionFailed logging.EventType = "nodegraph.routing_compression_failed"
	// EventGraphLoaded is emitted when a cached graph file is accepted.
	EventGraphLoaded logging.EventType = "nodegraph.graph_loaded"
	// EventGraphLoadFailed is emitted when a cached graph file is rejected.
	EventGraphLoadFailed logging.EventType = "nodegraph.graph_load_failed"
	// EventGraphSaveFailed is emitted when a rebuilt graph could not be written.
	EventGraphSaveFailed logging.EventType = "nodegraph.graph_save_failed"
	// EventLinkEntityUnresolved is emitted for each link whose blocking entity is gone.
	EventLinkEntityUnresolved logging.EventType = "nodegraph.link_entity_unresolved"
	// EventUnhandledLinkEntity is emitted when a link is blocked by an unknown entity class.
	EventUnhandledLinkEntity logging.EventType = "nodegraph.unhandled_link_entity"
	// EventGraphNotReady is emitted when a query arrives before the graph is usable.
	EventGraphNotReady logging.EventType = "nodegraph.graph_not_ready"
)

const category = "nodegraph"

func nodeRef(node int) logging.SubjectRef {
	return logging.SubjectRef{ID: strconv.Itoa(node), Kind: logging.SubjectNode}
}

func linkRef(link int) logging.SubjectRef {
	return logging.SubjectRef{ID: strconv.Itoa(link), Kind: logging.SubjectLink}
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	if event.Category == "" {
		event.Category = category
	}
	pub.Publish(ctx, event)
}

// GraphBuiltPayload summarises a finished build.
type GraphBuiltPayload struct {
	Nodes         int   `json:"nodes"`
	Links         int   `json:"links"`
	Rejected      int   `json:"rejected"`
	RouteBytes    int   `json:"routeBytes"`
	RoutingTables bool  `json:"routingTables"`
	DurationMS    int64 `json:"durationMs"`
}

// GraphBuilt publishes a build summary.
func GraphBuilt(ctx context.Context, pub logging.Publisher, mapName string, payload GraphBuiltPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventGraphBuilt,
		Map:      mapName,
		Subject:  logging.SubjectRef{Kind: logging.SubjectGraph},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// LinkCapacityPayload carries the limit that was hit.
type LinkCapacityPayload struct {
	Links int  `json:"links"`
	Limit int  `json:"limit"`
	Pool  bool `json:"pool"`
}

// LinkCapacityExceeded publishes the node that aborted construction.
func LinkCapacityExceeded(ctx context.Context, pub logging.Publisher, mapName string, node int, payload LinkCapacityPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLinkCapacityExceeded,
		Map:      mapName,
		Subject:  nodeRef(node),
		Severity: logging.SeverityError,
		Payload:  payload,
	})
}

// InlineLinksRejected publishes how many collinear links were pruned.
func InlineLinksRejected(ctx context.Context, pub logging.Publisher, mapName string, rejected int) {
	publish(ctx, pub, logging.Event{
		Type:     EventInlineLinksRejected,
		Map:      mapName,
		Subject:  logging.SubjectRef{Kind: logging.SubjectGraph},
		Severity: logging.SeverityDebug,
		Payload:  map[string]int{"rejected": rejected},
	})
}

// RoutingTablesPayload describes the compiled route blob.
type RoutingTablesPayload struct {
	Bytes          int `json:"bytes"`
	DedupedRows    int `json:"dedupedRows"`
	SearchesIssued int `json:"searchesIssued"`
}

// RoutingTablesCompiled publishes the route blob statistics.
func RoutingTablesCompiled(ctx context.Context, pub logging.Publisher, mapName string, payload RoutingTablesPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventRoutingTablesCompiled,
		Map:      mapName,
		Subject:  logging.SubjectRef{Kind: logging.SubjectGraph},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// RoutingCompressionPayload names the offending row.
type RoutingCompressionPayload struct {
	Hull   string `json:"hull"`
	Class  int    `json:"class"`
	Next   int    `json:"next"`
	Offset int    `json:"offset"`
}

// RoutingCompressionFailed publishes the row whose offset overflowed a byte.
func RoutingCompressionFailed(ctx context.Context, pub logging.Publisher, mapName string, node int, payload RoutingCompressionPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventRoutingCompressionFailed,
		Map:      mapName,
		Subject:  nodeRef(node),
		Severity: logging.SeverityError,
		Payload:  payload,
	})
}

// GraphFilePayload identifies a graph file and the reason it was touched.
type GraphFilePayload struct {
	Path   string `json:"path"`
	Reason string `json:"reason,omitempty"`
}

// GraphLoaded publishes an accepted cached graph.
func GraphLoaded(ctx context.Context, pub logging.Publisher, mapName string, payload GraphFilePayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventGraphLoaded,
		Map:      mapName,
		Subject:  logging.SubjectRef{ID: payload.Path, Kind: logging.SubjectFile},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}

// GraphLoadFailed publishes why a cached graph was rejected.
func GraphLoadFailed(ctx context.Context, pub logging.Publisher, mapName string, payload GraphFilePayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventGraphLoadFailed,
		Map:      mapName,
		Subject:  logging.SubjectRef{ID: payload.Path, Kind: logging.SubjectFile},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}

// GraphSaveFailed publishes a failed write; the in-memory graph stays usable.
func GraphSaveFailed(ctx context.Context, pub logging.Publisher, mapName string, payload GraphFilePayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventGraphSaveFailed,
		Map:      mapName,
		Subject:  logging.SubjectRef{ID: payload.Path, Kind: logging.SubjectFile},
		Severity: logging.SeverityError,
		Category: logging.CategoryStorage,
		Payload:  payload,
	})
}

// LinkEntityPayload describes a blocking entity reference.
type LinkEntityPayload struct {
	Model     string `json:"model,omitempty"`
	ClassName string `json:"className,omitempty"`
	Policy    string `json:"policy,omitempty"`
}

// LinkEntityUnresolved publishes a link whose model could not be found after load.
func LinkEntityUnresolved(ctx context.Context, pub logging.Publisher, mapName string, link int, payload LinkEntityPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLinkEntityUnresolved,
		Map:      mapName,
		Subject:  linkRef(link),
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// UnhandledLinkEntity publishes a blocking entity class the graph cannot reason about.
func UnhandledLinkEntity(ctx context.Context, pub logging.Publisher, mapName string, node int, payload LinkEntityPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventUnhandledLinkEntity,
		Map:      mapName,
		Subject:  nodeRef(node),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryQuery,
		Payload:  payload,
	})
}

// GraphNotReady publishes a query that arrived before the graph was usable.
func GraphNotReady(ctx context.Context, pub logging.Publisher, mapName string, operation string) {
	publish(ctx, pub, logging.Event{
		Type:     EventGraphNotReady,
		Map:      mapName,
		Subject:  logging.SubjectRef{Kind: logging.SubjectGraph},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryQuery,
		Payload:  map[string]string{"operation": operation},
	})
}
