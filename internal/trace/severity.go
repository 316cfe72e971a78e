package trace

import (
	"encoding/json"
	"strings"

	"github.com/loggard/loggard/internal/store"
)

var levelScores = map[string]int{
	"DEBUG":    0,
	"INFO":     10,
	"WARNING":  30,
	"ERROR":    60,
	"CRITICAL": 90,
	"FATAL":    100,
}

var securityActions = map[string]bool{
	"ban":          true,
	"failed_login": true,
	"unauthorized": true,
}

// Severity scores an event 0..100 from its log level, with a bump for
// security-relevant actions and for events carrying a repeat count.
func Severity(event store.LogEvent) int {
	score, ok := levelScores[event.Level]
	if !ok {
		score = 10
	}
	if securityActions[event.Action] {
		score += 20
	}
	if repeatCount(event.Metadata) > 5 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func repeatCount(metadata string) int {
	if metadata == "" {
		return 0
	}
	var m struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(metadata), &m); err != nil {
		return 0
	}
	return m.Count
}

var criticalKeywords = []string{
	"fatal", "critical", "crash", "panic", "segfault",
	"out of memory", "disk full", "deadlock",
}

// errorSeverity scores an error message 0..100. Unlike Severity it also
// inspects the message text for keywords that mark systemic failure.
func errorSeverity(level, message string) int {
	score, ok := levelScores[strings.ToUpper(level)]
	if !ok {
		score = 50
	}
	lower := strings.ToLower(message)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			score += 15
			break
		}
	}
	if strings.Contains(lower, "database") || strings.Contains(lower, "sql") || strings.Contains(lower, "query") {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
