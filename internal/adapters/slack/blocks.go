// Package slack formats analysis results as Block Kit messages and
// posts them to an incoming webhook.
package slack

type textObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Block is one Block Kit element of a webhook message.
type Block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Fields   []textObject `json:"fields,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

const (
	maxHeaderLen = 150
	maxFields    = 10
)

// Header renders large bold header text.
func Header(text string) Block {
	if len(text) > maxHeaderLen {
		text = text[:maxHeaderLen]
	}
	return Block{
		Type: "header",
		Text: &textObject{Type: "plain_text", Text: text, Emoji: true},
	}
}

// Section renders a markdown-formatted section.
func Section(text string) Block {
	return Block{
		Type: "section",
		Text: &textObject{Type: "mrkdwn", Text: text},
	}
}

// Fields renders side-by-side field pairs. Slack caps a section at
// ten fields.
func Fields(fields []string) Block {
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}
	b := Block{Type: "section"}
	for _, f := range fields {
		b.Fields = append(b.Fields, textObject{Type: "mrkdwn", Text: f})
	}
	return b
}

// Divider renders a horizontal rule.
func Divider() Block {
	return Block{Type: "divider"}
}

// Context renders small gray footer text.
func Context(text string) Block {
	return Block{
		Type:     "context",
		Elements: []textObject{{Type: "mrkdwn", Text: text}},
	}
}

var statusEmoji = map[string]string{
	"RED":          ":red_circle:",
	"YELLOW":       ":large_yellow_circle:",
	"GREEN":        ":large_green_circle:",
	"WINNER":       ":white_check_mark:",
	"LOSER":        ":x:",
	"FLAT":         ":wavy_dash:",
	"KEEP RUNNING": ":hourglass_flowing_sand:",
	"TOO EARLY":    ":hourglass:",
}

// StatusEmoji maps a status or verdict label to a Slack emoji code.
func StatusEmoji(status string) string {
	if e, ok := statusEmoji[status]; ok {
		return e
	}
	return ":grey_question:"
}

var verdictEmoji = map[string]string{
	"WINNER":       "✅",
	"LOSER":        "❌",
	"FLAT":         "➖",
	"KEEP RUNNING": "⏳",
	"TOO EARLY":    "⏳",
}

// VerdictEmoji maps a verdict to a single character for headers.
func VerdictEmoji(verdict string) string {
	if e, ok := verdictEmoji[verdict]; ok {
		return e
	}
	return "❓"
}
