// Package signal defines the closed set of feedback tags threaded between
// loop iterations. Signals advise the next iteration's model context; they
// never gate control flow.
package signal

// Sentiment classifies whether a signal reports progress or trouble.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Signal is one feedback tag with its machine-readable meaning.
type Signal struct {
	Name       string
	Sentiment  Sentiment
	ActionHint string
}

// Known signal keys.
const (
	Success                = "success"
	Warning                = "warning"
	Error                  = "error"
	Info                   = "info"
	SecurityOK             = "security-ok"
	HumanFeedbackRequested = "human-feedback-requested"
)

// table is the process-wide read-only signal lookup, loaded at startup.
var table = map[string]Signal{
	Success: {
		Name:       Success,
		Sentiment:  SentimentPositive,
		ActionHint: "The last action completed as intended; build on its result.",
	},
	Warning: {
		Name:       Warning,
		Sentiment:  SentimentNegative,
		ActionHint: "The last step did not go as planned; reconsider the approach before retrying.",
	},
	Error: {
		Name:       Error,
		Sentiment:  SentimentNegative,
		ActionHint: "The last action failed; inspect the failure text and choose a different action.",
	},
	Info: {
		Name:       Info,
		Sentiment:  SentimentNeutral,
		ActionHint: "No outcome to report yet; proceed with planning.",
	},
	SecurityOK: {
		Name:       SecurityOK,
		Sentiment:  SentimentPositive,
		ActionHint: "The proposed command passed its integrity check.",
	},
	HumanFeedbackRequested: {
		Name:       HumanFeedbackRequested,
		Sentiment:  SentimentNeutral,
		ActionHint: "The operator was asked for input; incorporate their answer.",
	},
}

// Lookup returns the signal for the given key.
func Lookup(key string) (Signal, bool) {
	s, ok := table[key]
	return s, ok
}

// Meaning returns a one-line textual meaning for the given key, or "unknown"
// for keys outside the closed set.
func Meaning(key string) string {
	s, ok := table[key]
	if !ok {
		return "unknown"
	}
	return s.Name + " (" + string(s.Sentiment) + "): " + s.ActionHint
}

// Keys returns the known signal keys. The order is unspecified.
func Keys() []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	return keys
}
