package ollama

// Options carries the sampling parameters of a generate call.
type Options struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop"`
}

// GenerateRequest is the body of a POST /api/generate call.
type GenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// GenerateResponse is one unit emitted by the backend: either a delta
// carrying response text, or the terminal fragment with done=true and
// token counters. Response is a pointer so a terminal fragment that omits
// the field can be told apart from an empty delta; the counters are
// pointers so an absent counter can be reported as unknown.
type GenerateResponse struct {
	Response        *string `json:"response,omitempty"`
	Done            bool    `json:"done"`
	PromptEvalCount *int    `json:"prompt_eval_count,omitempty"`
	EvalCount       *int    `json:"eval_count,omitempty"`
}

// Text returns the response delta, or "" when the field was absent.
func (r GenerateResponse) Text() string {
	if r.Response == nil {
		return ""
	}
	return *r.Response
}

type tagsResponse struct {
	Models []tagEntry `json:"models"`
}

type tagEntry struct {
	Name string `json:"name"`
}
