package resolver

import (
	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// HandlerFunc is the v1 calling convention: given the matched records at a
// name, return the records to answer with (or nil to decline).
type HandlerFunc func(matched []domain.ResourceRecord) []domain.ResourceRecord

// HandlerFuncV2 is the v2 calling convention: it additionally receives the
// qname, qtype, and the original question, for handlers that need more
// context than the matched record set (e.g. templated responses).
type HandlerFuncV2 func(qname string, qtype domain.RRType, matched []domain.ResourceRecord, question domain.Question) []domain.ResourceRecord

// FilterFunc inspects the full RR set found at a name (used for qtype=ANY
// and for export/debug endpoints) and returns the subset safe to return.
type FilterFunc func(records []domain.ResourceRecord) []domain.ResourceRecord

// defaultHandlerRegistry is the stock HandlerRegistry: a map of qtype to
// v2 handler functions plus an optional filter hook, with panics converted
// to an empty result so a misbehaving handler cannot take down the
// resolver for every other zone.
type defaultHandlerRegistry struct {
	logger   log.Logger
	handlers map[domain.RRType]HandlerFuncV2
	filter   FilterFunc
}

// NewHandlerRegistry builds an empty registry. Register handlers with
// RegisterHandler and RegisterFilter before passing it to NewResolver.
func NewHandlerRegistry(logger log.Logger) *defaultHandlerRegistry {
	return &defaultHandlerRegistry{
		logger:   logger,
		handlers: make(map[domain.RRType]HandlerFuncV2),
	}
}

// RegisterHandler wires a v1-style handler for a specific qtype, adapting
// it to the v2 signature by ignoring the extra context.
func (h *defaultHandlerRegistry) RegisterHandler(t domain.RRType, fn HandlerFunc) {
	h.handlers[t] = func(_ string, _ domain.RRType, matched []domain.ResourceRecord, _ domain.Question) []domain.ResourceRecord {
		return fn(matched)
	}
}

// RegisterHandlerV2 wires a v2-style handler for a specific qtype.
func (h *defaultHandlerRegistry) RegisterHandlerV2(t domain.RRType, fn HandlerFuncV2) {
	h.handlers[t] = fn
}

// RegisterFilter wires the qtype=ANY / export filter hook.
func (h *defaultHandlerRegistry) RegisterFilter(fn FilterFunc) {
	h.filter = fn
}

// Handle dispatches to a registered handler for qtype, recovering from any
// panic by treating it as a decline (empty result, fall through to no-data).
func (h *defaultHandlerRegistry) Handle(qname string, qtype domain.RRType, matched []domain.ResourceRecord, question domain.Question) (result []domain.ResourceRecord) {
	fn, ok := h.handlers[qtype]
	if !ok {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error(map[string]any{"qname": qname, "qtype": qtype.String(), "panic": rec}, "handler panicked")
			result = nil
		}
	}()
	return fn(qname, qtype, matched, question)
}

// Filter applies the registered filter hook, or returns records unchanged
// when none is registered.
func (h *defaultHandlerRegistry) Filter(records []domain.ResourceRecord) []domain.ResourceRecord {
	if h.filter == nil {
		return records
	}
	return h.filter(records)
}
