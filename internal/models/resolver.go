package models

import (
	"sort"
	"strings"

	"ocigenai-gateway/internal/config"
	apperrors "ocigenai-gateway/internal/errors"
)

// Target is a resolved upstream model.
type Target struct {
	// Requested is the model string the client sent; it is echoed back in responses.
	Requested   string
	ModelID     string
	APIFormat   string
	ServingMode ServingMode
}

// Resolver turns client-facing model names into OCI model references.
type Resolver struct {
	mapping        map[string]string
	known          map[string]struct{}
	coherePrefixes []string
	servingType    string
	endpointID     string
}

// NewResolver builds a resolver from the OCI section of the configuration.
func NewResolver(cfg config.OCIConfig) *Resolver {
	r := &Resolver{
		mapping:        make(map[string]string, len(cfg.ModelMapping)),
		known:          make(map[string]struct{}, len(cfg.ModelMapping)),
		coherePrefixes: cfg.CoherePrefixes,
		servingType:    cfg.ServingMode,
		endpointID:     cfg.EndpointID,
	}
	for alias, model := range cfg.ModelMapping {
		r.mapping[alias] = model
		r.known[model] = struct{}{}
	}
	return r
}

// Resolve maps an alias to its OCI model id. A raw OCI model id that appears in the
// mapping is accepted as-is; with an empty mapping every id is passed through.
func (r *Resolver) Resolve(model string) (Target, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Target{}, apperrors.InvalidRequest("model is required")
	}
	id, ok := r.mapping[model]
	if !ok {
		if _, isValue := r.known[model]; isValue || len(r.mapping) == 0 {
			id = model
		} else {
			return Target{}, apperrors.ModelNotFound(model)
		}
	}
	return Target{
		Requested:   model,
		ModelID:     id,
		APIFormat:   r.apiFormat(id),
		ServingMode: r.servingMode(id),
	}, nil
}

func (r *Resolver) apiFormat(modelID string) string {
	lower := strings.ToLower(modelID)
	for _, p := range r.coherePrefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return APIFormatCohere
		}
	}
	return APIFormatGeneric
}

func (r *Resolver) servingMode(modelID string) ServingMode {
	if r.servingType == config.ServingModeDedicated {
		return ServingMode{ServingType: config.ServingModeDedicated, EndpointID: r.endpointID}
	}
	return ServingMode{ServingType: config.ServingModeOnDemand, ModelID: modelID}
}

// List returns the models a client can request, sorted by id.
func (r *Resolver) List(created int64) ModelList {
	ids := make([]string, 0, len(r.mapping))
	for alias := range r.mapping {
		ids = append(ids, alias)
	}
	sort.Strings(ids)
	out := ModelList{Object: "list", Data: make([]ModelInfo, 0, len(ids))}
	for _, id := range ids {
		out.Data = append(out.Data, ModelInfo{ID: id, Object: "model", Created: created, OwnedBy: ownerOf(r.mapping[id])})
	}
	return out
}

// ownerOf derives the vendor from an OCI model id such as "meta.llama-3.3-70b-instruct".
func ownerOf(modelID string) string {
	if vendor, _, ok := strings.Cut(modelID, "."); ok && vendor != "" {
		return vendor
	}
	return "oci"
}
