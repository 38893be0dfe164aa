package translator

// Options tunes ToUpstream. The zero value clamps parameters and uses built-in token limits.
type Options struct {
	// StrictParams rejects out-of-range sampling parameters instead of clamping them.
	StrictParams     bool
	CompartmentID    string
	DefaultMaxTokens int
	MaxTokensLimit   int
}

const (
	defaultMaxTokens = 1024
	maxTokensLimit   = 32000
	// MaxChoices bounds n; every choice costs one upstream call.
	MaxChoices = 8
)

func (o Options) defaultMaxTokens() int {
	if o.DefaultMaxTokens > 0 {
		return o.DefaultMaxTokens
	}
	return defaultMaxTokens
}

func (o Options) maxTokensLimit() int {
	if o.MaxTokensLimit > 0 {
		return o.MaxTokensLimit
	}
	return maxTokensLimit
}

// ParamAdjustment records one clamped parameter.
type ParamAdjustment struct {
	Param     string  `json:"param"`
	Requested float64 `json:"requested"`
	Applied   float64 `json:"applied"`
}

// ResponseMeta carries the response identity chosen by the caller, which keeps FromUpstream pure.
type ResponseMeta struct {
	ID      string
	Created int64
	Model   string
}
