// Package feishu renders news items as Feishu custom-bot messages and
// delivers them to a bot webhook.
package feishu

import (
	"net/url"
	"strconv"
	"strings"

	"news_pusher/internal/domain"
)

const ellipsis = "…"

// Message is the JSON body accepted by a Feishu custom bot.
type Message struct {
	MsgType   string         `json:"msg_type"`
	Content   MessageContent `json:"content"`
	Timestamp string         `json:"timestamp,omitempty"`
	Sign      string         `json:"sign,omitempty"`
}

type MessageContent struct {
	Text string       `json:"text,omitempty"`
	Post *PostContent `json:"post,omitempty"`
}

type PostContent struct {
	ZhCN PostBody `json:"zh_cn"`
}

type PostBody struct {
	Title   string         `json:"title"`
	Content [][]PostInline `json:"content"`
}

// PostInline is one inline element of a post line.
type PostInline struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// FormatterConfig controls message rendering.
type FormatterConfig struct {
	Style       string
	Title       string
	TitleMaxLen int
	SourceURL   string
}

// Formatter turns selected items into a single message. It has no side
// effects and never fails.
type Formatter struct {
	style       string
	title       string
	titleMaxLen int
	sourceHost  string
}

func NewFormatter(cfg FormatterConfig) *Formatter {
	host := ""
	if u, err := url.Parse(cfg.SourceURL); err == nil {
		host = u.Host
	}
	return &Formatter{
		style:       strings.ToLower(strings.TrimSpace(cfg.Style)),
		title:       cfg.Title,
		titleMaxLen: cfg.TitleMaxLen,
		sourceHost:  host,
	}
}

// Format renders items using the configured style. Anything but "text"
// produces a post.
func (f *Formatter) Format(items []domain.NewsItem) Message {
	if f.style == "text" {
		return f.text(items)
	}
	return f.post(items)
}

func (f *Formatter) text(items []domain.NewsItem) Message {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, f.title+"：")
	for _, it := range items {
		lines = append(lines, "- "+NormalizeTitle(it.Title, f.titleMaxLen)+"\n  "+it.Link)
	}
	return Message{
		MsgType: "text",
		Content: MessageContent{Text: strings.Join(lines, "\n")},
	}
}

func (f *Formatter) post(items []domain.NewsItem) Message {
	lines := make([][]PostInline, 0, len(items)+1)
	for i, it := range items {
		lines = append(lines, []PostInline{
			{Tag: "text", Text: strconv.Itoa(i+1) + ". "},
			{Tag: "a", Text: NormalizeTitle(it.Title, f.titleMaxLen), Href: it.Link},
		})
	}
	if f.sourceHost != "" {
		lines = append(lines, []PostInline{{Tag: "text", Text: "来源：" + f.sourceHost}})
	}
	return Message{
		MsgType: "post",
		Content: MessageContent{Post: &PostContent{ZhCN: PostBody{
			Title:   f.title,
			Content: lines,
		}}},
	}
}

// NormalizeTitle collapses whitespace and shortens the title to at most limit
// runes. A long title is first cut at its first full stop, then at its first
// comma, and finally truncated with an ellipsis. limit <= 0 disables truncation.
func NormalizeTitle(raw string, limit int) string {
	title := strings.Join(strings.Fields(raw), " ")
	if limit <= 0 {
		return title
	}

	for _, sep := range []string{"。", "，"} {
		if runeLen(title) <= limit {
			break
		}
		if head, _, ok := strings.Cut(title, sep); ok && strings.TrimSpace(head) != "" {
			title = strings.TrimSpace(head)
		}
	}

	if runeLen(title) > limit {
		rs := []rune(title)
		title = strings.TrimRight(string(rs[:limit-1]), " ") + ellipsis
	}
	return title
}

func runeLen(s string) int {
	return len([]rune(s))
}
