package models

import (
	"encoding/json"
	"strings"
)

// Theme is one chapter of a content item's metadata.
type Theme struct {
	ChapterNumber   int            `json:"chapter_number"`
	ThemeTitle      string         `json:"theme_title"`
	ThemeGist       string         `json:"theme_gist,omitempty"`
	SimpleBreakdown string         `json:"simple_breakdown,omitempty"`
	Metadata        *ThemeMetadata `json:"metadata,omitempty"`
	BigIdeas        BigIdeaList    `json:"big_ideas,omitempty"`
}

type ThemeMetadata struct {
	ThemeGist       string `json:"theme_gist,omitempty"`
	SimpleBreakdown string `json:"simple_breakdown,omitempty"`
}

// Gist falls back to the nested metadata copy some rows carry.
func (t Theme) Gist() string {
	if t.ThemeGist != "" {
		return t.ThemeGist
	}
	if t.Metadata != nil {
		return t.Metadata.ThemeGist
	}
	return ""
}

func (t Theme) Breakdown() string {
	if t.SimpleBreakdown != "" {
		return t.SimpleBreakdown
	}
	if t.Metadata != nil {
		return t.Metadata.SimpleBreakdown
	}
	return ""
}

type BigIdea struct {
	Title string `json:"title"`
	Quote string `json:"quote"`
}

// BigIdeaList accepts both the stored string form `• Title "quote"` and objects.
type BigIdeaList []BigIdea

func (l *BigIdeaList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(BigIdeaList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, ParseBigIdea(s))
			continue
		}
		var idea BigIdea
		if err := json.Unmarshal(item, &idea); err != nil {
			return err
		}
		out = append(out, idea)
	}
	*l = out
	return nil
}

// ParseBigIdea splits `• Title "quote"` on double quotes.
func ParseBigIdea(s string) BigIdea {
	parts := strings.Split(s, `"`)
	title := strings.TrimSpace(parts[0])
	title = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(title, "•"), "â€¢"))
	idea := BigIdea{Title: title}
	if len(parts) > 1 {
		idea.Quote = strings.TrimSpace(parts[1])
	}
	return idea
}
