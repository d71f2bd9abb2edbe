package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// fencedBlockRE matches a triple-backtick fenced block, optionally tagged
// "json", and captures its interior. Models regularly wrap valid JSON in
// explanatory prose around such a block.
var fencedBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Structured is the outcome of recovering a JSON document from a model's
// free-text reply. Resolved distinguishes "the model produced valid
// structured data" from "the reply could not be parsed" — the latter is a
// degraded result, never an error.
type Structured struct {
	Data     json.RawMessage
	Resolved bool

	// Raw is the verbatim model reply, kept so unresolved replies can still
	// be returned to the caller.
	Raw string
}

// RecoverJSON attempts to resolve a JSON document embedded in reply.
//
// Resolution order:
//  1. If the reply contains a fenced code block, its interior is the
//     candidate; otherwise the whole reply is.
//  2. The candidate is parsed as JSON.
//  3. On parse failure the error and candidate are logged and an explicit
//     unresolved outcome is returned.
func RecoverJSON(reply string) Structured {
	candidate := strings.TrimSpace(reply)
	if m := fencedBlockRE.FindStringSubmatch(reply); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var data json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		slog.Warn("structured reply did not parse as JSON",
			"error", err,
			"candidate", candidate,
		)
		return Structured{Resolved: false, Raw: reply}
	}

	return Structured{Data: data, Resolved: true, Raw: reply}
}
