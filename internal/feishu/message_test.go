package feishu

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_pusher/internal/domain"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "  OpenAI   发布 \n 新模型 ", 46, "OpenAI 发布 新模型"},
		{"cut at full stop", "第一句话。第二句话很长很长", 6, "第一句话"},
		{"cut at comma", "前半句，后半句很长很长很长", 5, "前半句"},
		{"keep full stop when short enough", "短。句", 10, "短。句"},
		{"ellipsis", "abcdefghij", 5, "abcd…"},
		{"trailing space before ellipsis", "abc defgh", 5, "abc…"},
		{"leading separator is not cut", "。abcdefgh", 4, "。ab…"},
		{"limit one", "abc", 1, "…"},
		{"no limit", "abcdef", 0, "abcdef"},
		{"empty", "   ", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in, tt.limit))
		})
	}
}

func TestNormalizeTitle_NeverExceedsLimit(t *testing.T) {
	inputs := []string{
		strings.Repeat("长", 200),
		strings.Repeat("a ", 100),
		strings.Repeat("标题，", 30),
		"x",
		"",
	}
	for limit := 1; limit <= 60; limit++ {
		for _, in := range inputs {
			got := NormalizeTitle(in, limit)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), limit, "limit=%d in=%q", limit, in)
		}
	}
}

var testItems = []domain.NewsItem{
	{ID: "3", Title: "Third news", Link: "https://news.example/zh/news/3"},
	{ID: "2", Title: "Second news", Link: "https://news.example/zh/news/2"},
}

func TestFormatter_Text(t *testing.T) {
	f := NewFormatter(FormatterConfig{Style: "text", Title: "AIBase 最新资讯", TitleMaxLen: 46, SourceURL: "https://news.example/zh/news"})

	msg := f.Format(testItems)

	assert.Equal(t, "text", msg.MsgType)
	assert.Nil(t, msg.Content.Post)
	assert.Equal(t,
		"AIBase 最新资讯：\n- Third news\n  https://news.example/zh/news/3\n- Second news\n  https://news.example/zh/news/2",
		msg.Content.Text,
	)
}

func TestFormatter_Post(t *testing.T) {
	f := NewFormatter(FormatterConfig{Style: "post", Title: "AIBase 最新资讯", TitleMaxLen: 5, SourceURL: "https://news.example/zh/news"})

	msg := f.Format(testItems)

	require.Equal(t, "post", msg.MsgType)
	require.NotNil(t, msg.Content.Post)
	body := msg.Content.Post.ZhCN
	assert.Equal(t, "AIBase 最新资讯", body.Title)
	require.Len(t, body.Content, 3)
	assert.Equal(t, []PostInline{
		{Tag: "text", Text: "1. "},
		{Tag: "a", Text: "Thir…", Href: "https://news.example/zh/news/3"},
	}, body.Content[0])
	assert.Equal(t, "2. ", body.Content[1][0].Text)
	assert.Equal(t, []PostInline{{Tag: "text", Text: "来源：news.example"}}, body.Content[2])
}

func TestFormatter_UnknownStyleIsPost(t *testing.T) {
	f := NewFormatter(FormatterConfig{Style: "card", Title: "t", TitleMaxLen: 10})

	msg := f.Format(testItems)

	assert.Equal(t, "post", msg.MsgType)
	// no source host, no footer line
	assert.Len(t, msg.Content.Post.ZhCN.Content, 2)
}

func TestMessage_JSONShape(t *testing.T) {
	f := NewFormatter(FormatterConfig{Style: "post", Title: "T", TitleMaxLen: 46, SourceURL: "https://news.example"})

	raw, err := json.Marshal(f.Format(testItems[:1]))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"msg_type": "post",
		"content": {"post": {"zh_cn": {
			"title": "T",
			"content": [
				[{"tag": "text", "text": "1. "}, {"tag": "a", "text": "Third news", "href": "https://news.example/zh/news/3"}],
				[{"tag": "text", "text": "来源：news.example"}]
			]
		}}}
	}`, string(raw))
}
