package router

import (
	"fmt"
	"strings"
)

const (
	fallbackRoutine  = "I couldn't log that routine just now. Could you tell me about it again in a moment?"
	fallbackTip      = "Try pairing it with a small reward right after, so it's easier to repeat tomorrow."
	fallbackChat     = "I'm listening! Feel free to share more."
	fallbackMealPlan = "Sorry, I couldn't put together meal ideas right now. Please try again in a moment."
)

func categorizePrompt(msg string) string {
	return fmt.Sprintf(`Categorize the following user statement as one of:
- 'routine-related' if it involves sleep, diet, exercise, or other structured daily activities.
- 'life-event-related' if it is about relationships, emotions, or personal experiences.
- 'neutral-chat' if it is casual conversation without a concern.

Statement: %q

Respond ONLY with the category.`, msg)
}

func activityPrompt(msg string) string {
	return fmt.Sprintf(`Extract the main routine activity from this message as a short noun or gerund (e.g. "running", "sleep", "breakfast").
Message: %q
Respond ONLY with the activity.`, msg)
}

func tipPrompt(activity, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give one ADHD-friendly tip for this routine activity: %s\n", activity)
	b.WriteString("- Keep it under 2 sentences\n- Make it specific and actionable\n- Use positive reinforcement\n")
	if tone != "" {
		b.WriteString(tone + "\n")
	}
	b.WriteString("Respond ONLY with the tip.")
	return b.String()
}

func conversationPrompt(msg, concern, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a supportive assistant. The user's message was categorized as %s.\n", concern)
	b.WriteString("- For life-event-related messages, respond with warmth and empathy.\n")
	b.WriteString("- For neutral-chat messages, keep a friendly conversation going.\n")
	b.WriteString("- Be concise.\n")
	if tone != "" {
		b.WriteString(tone + "\n")
	}
	fmt.Fprintf(&b, "User message: %q", msg)
	return b.String()
}

func mealExtractPrompt(msg string) string {
	return fmt.Sprintf(`From the following request, extract:
- Meal Type (e.g. breakfast, lunch, dinner, snack)
- Dietary Preference (e.g. vegetarian, halal, keto, no preference)

Request: %q

Format your response exactly as:
Meal Type: ...
Dietary: ...`, msg)
}

func mealPlanPrompt(m MealRequest, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest a %s for dietary preference: %s.\n", m.MealType, m.Dietary)
	b.WriteString("- Exactly 3 simple options\n- Budget-friendly and easy to prepare\n- One short description each\n")
	if tone != "" {
		b.WriteString(tone)
	}
	return strings.TrimSpace(b.String())
}

func toneLine(label string, confidence float64) string {
	if label == "" {
		return ""
	}
	if confidence < 0 {
		return fmt.Sprintf("The user currently seems to be feeling %s; adapt your tone to that.", label)
	}
	return fmt.Sprintf("The user currently seems to be feeling %s (confidence %.2f); adapt your tone to that.", label, confidence)
}
