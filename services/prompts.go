package services

import (
	"fmt"
	"strings"

	"github.com/podbrah/podbrah-backend/wizard"
)

const PersonaName = "H.C. Waif"

// Stages sent by the overview chat client.
const (
	StageIntroduction  = "introduction"
	StageUnderstanding = "understanding"
	StageValidation    = "validation"
	StageArticulation  = "articulation"
	StageTransition    = "transition"
	StageDiscussion    = "discussion"
	StageSynthesis     = "synthesis"
)

// Theme stage instructions. %[1]s is the theme title, %[2]s the listener's name.
var themeStageInstructions = map[string]string{
	StageIntroduction:  "Keep the conversation about %[1]s flowing naturally. You have already met %[2]s, so do not introduce yourself again. Focus on their perspective and encourage them to explore the theme further.",
	StageUnderstanding: "Help %[2]s confirm and deepen their understanding of %[1]s. Point to specific moments from the podcast content when it helps.",
	StageValidation:    "Compare %[2]s's understanding of %[1]s with the podcast content. Give constructive feedback and steer them toward a complete picture.",
	StageArticulation:  "Help %[2]s put %[1]s into their own words. Encourage personal connections and practical uses.",
	StageTransition:    "Wrap up the discussion of %[1]s and get ready for the next theme. Sum up the key insights first.",
}

var discussionStageInstructions = map[string]string{
	StageDiscussion: "%[1]s has explored every theme of this podcast. Talk with them about what made the conversation interesting, and push them to name the single idea a friend would care about most.",
	StageSynthesis:  "Write a short, punchy case for why others should listen to this podcast, in %[1]s's voice. Build on the insights from their discussion rather than summarizing the episode.",
}

const promptRules = `Remember:
- Don't re-introduce yourself or greet them again
- Stay focused on the current theme and stage
- Keep the conversation flowing
- Be concise but insightful
- Guide the user through a natural exploration of the theme`

func listenerName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "User"
}

// ComposeThemePrompt builds the system prompt for a theme conversation.
// Unknown stages get no stage instruction.
func ComposeThemePrompt(stage, themeTitle, themeGist, context, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI assistant discussing the theme: \"%s\".\n", PersonaName, themeTitle)
	fmt.Fprintf(&b, "Theme description: %s\n", themeGist)
	fmt.Fprintf(&b, "Context from podcast: %s\n", context)
	fmt.Fprintf(&b, "Current stage: %s\n\n", stage)
	if tmpl, ok := themeStageInstructions[stage]; ok {
		fmt.Fprintf(&b, tmpl, themeTitle, listenerName(name))
	}
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	return b.String()
}

// ComposeDiscussionPrompt is used once all themes are done, for the open
// discussion and the final synthesis.
func ComposeDiscussionPrompt(stage, userContext, context, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI assistant helping a listener reflect on a podcast.\n", PersonaName)
	fmt.Fprintf(&b, "What the listener has said so far: %s\n", userContext)
	fmt.Fprintf(&b, "Context from podcast: %s\n", context)
	fmt.Fprintf(&b, "Current stage: %s\n\n", stage)
	if tmpl, ok := discussionStageInstructions[stage]; ok {
		fmt.Fprintf(&b, tmpl, listenerName(name))
	}
	b.WriteString("\n\nRemember:\n- Don't re-introduce yourself or greet them again\n- Be concise but insightful")
	return b.String()
}

const gistSystemPrompt = "You are a helpful assistant that provides extremely concise chapter gists in less than 30 words."

// ComposeGistPrompt returns the system and user messages for one chapter gist.
func ComposeGistPrompt(title, summary string) (string, string) {
	user := fmt.Sprintf("Provide an extremely simple explanation (gist) of this chapter in less than 30 words:\n\nTitle: %s\nSummary: %s", title, summary)
	return gistSystemPrompt, user
}

// ComposeFeedbackPrompt asks for a short reaction to a theme explanation.
func ComposeFeedbackPrompt(theme wizard.Theme, explanation, name string) (string, string) {
	system := ComposeThemePrompt(StageValidation, theme.Title, theme.Gist, theme.SimpleBreakdown, name) +
		"\n- Answer in at most three sentences"
	return system, explanation
}

// ComposeSynthesisPrompt turns the captured explanations and the closing
// discussion into the request for a why-listen pitch.
func ComposeSynthesisPrompt(responses []wizard.Response, discussion string) string {
	var b strings.Builder
	b.WriteString("Based on this user's discussion:\n")
	for _, r := range responses {
		fmt.Fprintf(&b, "- %s: %s\n", r.ThemeTitle, r.UserExplanation)
	}
	if d := strings.TrimSpace(discussion); d != "" {
		fmt.Fprintf(&b, "\nIn their own words: %s\n", d)
	}
	b.WriteString("\nCreate a compelling, punchy synthesis of why others should listen to this podcast. Focus on the unique insights and value discovered through the discussion.")
	return b.String()
}

// LimitWords truncates s to at most n whitespace-separated words.
func LimitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
