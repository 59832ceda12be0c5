package handle

import (
	"sort"

	"github.com/jrobhoward/rustbridge/plugin"
)

// Descriptor is a handle's structured self-description: what a host-side
// diagnostics tool gets back from plugin_describe. It complements
// plugin_get_state with the introspection data the plugin contract
// already carries (supported type tags, binary message ids).
type Descriptor struct {
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	State            string   `json:"state"`
	SupportedTypes   []string `json:"supported_types"`
	SupportsBinary   bool     `json:"supports_binary"`
	BinaryMessageIDs []uint32 `json:"binary_message_ids,omitempty"`
}

// Stats is the per-handle request counter snapshot returned by
// plugin_request_stats. RejectedRequests always matches
// plugin_rejected_request_count; the other two give a host the
// denominator it needs when diagnosing a slow or failing plugin.
type Stats struct {
	TotalRequests    uint64 `json:"total_requests"`
	RejectedRequests uint64 `json:"rejected_requests"`
	HandlerErrors    uint64 `json:"handler_errors"`
}

// Descriptor snapshots the handle's self-description. The supported-types
// list comes straight from the plugin's own SupportedTypes; the binary
// message ids are the keys of its registered binary handlers, sorted for
// stable output.
func (h *Handle) Descriptor() Descriptor {
	d := Descriptor{
		Name:           h.pluginName,
		State:          h.currentState().String(),
		SupportedTypes: h.pl.SupportedTypes(),
		SupportsBinary: len(h.binaryHandlers) > 0,
	}
	if v, ok := h.pl.(plugin.Versioned); ok {
		d.Version = v.Version()
	}
	if len(h.binaryHandlers) > 0 {
		ids := make([]uint32, 0, len(h.binaryHandlers))
		for id := range h.binaryHandlers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		d.BinaryMessageIDs = ids
	}
	return d
}

// Stats snapshots the handle's request counters. Each counter is an
// independent atomic; the snapshot is not a single consistent cut across
// all three, which is fine for diagnostics.
func (h *Handle) Stats() Stats {
	return Stats{
		TotalRequests:    h.totalCount.Load(),
		RejectedRequests: h.rejectedCount.Load(),
		HandlerErrors:    h.errorCount.Load(),
	}
}
