package translator

import (
	"math"

	apperrors "ocigenai-gateway/internal/errors"
	"ocigenai-gateway/internal/models"
)

type paramRange struct {
	min, max float64
}

// Accepted sampling ranges per API format.
var paramRanges = map[string]map[string]paramRange{
	models.APIFormatGeneric: {
		"temperature":       {0, 2},
		"top_p":             {0, 1},
		"top_k":             {-1, 500},
		"frequency_penalty": {-2, 2},
		"presence_penalty":  {-2, 2},
	},
	models.APIFormatCohere: {
		"temperature":       {0, 1},
		"top_p":             {0, 0.99},
		"top_k":             {0, 500},
		"frequency_penalty": {0, 1},
		"presence_penalty":  {0, 1},
	},
}

// paramMapper applies the range table in either clamp or strict mode.
type paramMapper struct {
	ranges      map[string]paramRange
	strict      bool
	adjustments []ParamAdjustment
}

func newParamMapper(apiFormat string, strict bool) *paramMapper {
	ranges, ok := paramRanges[apiFormat]
	if !ok {
		ranges = paramRanges[models.APIFormatGeneric]
	}
	return &paramMapper{ranges: ranges, strict: strict}
}

func (p *paramMapper) float(name string, v *float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	applied, err := p.fit(name, *v, p.ranges[name])
	if err != nil {
		return nil, err
	}
	return &applied, nil
}

func (p *paramMapper) int(name string, v *int) (*int, error) {
	if v == nil {
		return nil, nil
	}
	applied, err := p.fit(name, float64(*v), p.ranges[name])
	if err != nil {
		return nil, err
	}
	n := int(applied)
	return &n, nil
}

func (p *paramMapper) fit(name string, v float64, r paramRange) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.InvalidParameter(name, "%s must be a finite number", name)
	}
	if v >= r.min && v <= r.max {
		return v, nil
	}
	if p.strict {
		return 0, apperrors.InvalidParameter(name, "%s must be within [%g, %g], got %g", name, r.min, r.max, v)
	}
	applied := math.Min(math.Max(v, r.min), r.max)
	p.adjustments = append(p.adjustments, ParamAdjustment{Param: name, Requested: v, Applied: applied})
	return applied, nil
}

// defaultTopP is 1.0, capped at the format's maximum.
func (p *paramMapper) defaultTopP() *float64 {
	v := math.Min(1.0, p.ranges["top_p"].max)
	return &v
}

// maxTokens picks max_completion_tokens over max_tokens and fits it into [1, limit].
func (p *paramMapper) maxTokens(req *models.ChatRequest, opts Options) (int, error) {
	name, v := "max_tokens", req.MaxTokens
	if req.MaxCompletionTokens != nil {
		name, v = "max_completion_tokens", req.MaxCompletionTokens
	}
	if v == nil {
		return opts.defaultMaxTokens(), nil
	}
	applied, err := p.fit(name, float64(*v), paramRange{1, float64(opts.maxTokensLimit())})
	if err != nil {
		return 0, err
	}
	return int(applied), nil
}
