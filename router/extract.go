package router

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnparseable = errors.New("unparseable extraction")

var (
	concernRe  = regexp.MustCompile(`(?i)(routine-related|life-event-related|neutral-chat)`)
	mealLineRe = regexp.MustCompile(`(?i)meal\s*type\s*:\s*(.+?)\s*\r?\n\s*dietary(?:\s+preferences?)?\s*:\s*(.+)`)
	activityRe = regexp.MustCompile(`(?i)^(?:the\s+)?(?:main\s+)?(?:routine\s+)?activity(?:\s+is)?\s*:?\s*`)
)

var defaultKeywords = []string{
	"meal", "breakfast", "lunch", "dinner", "snack", "eat", "food", "diet", "vegetarian", "halal", "keto",
}

// MealRequest holds the fields pulled out of a food-related message.
type MealRequest struct {
	MealType string `json:"meal_type"`
	Dietary  string `json:"dietary_preference"`
}

func containsAny(msg string, keywords []string) bool {
	lower := strings.ToLower(msg)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func parseConcern(text string) string {
	m := concernRe.FindStringSubmatch(text)
	if m == nil {
		return ConcernNeutral
	}
	return strings.ToLower(m[1])
}

// parseMealRequest accepts either the "Meal Type: ..\nDietary: .." form or a JSON object.
func parseMealRequest(text string) (MealRequest, error) {
	if m := mealLineRe.FindStringSubmatch(text); m != nil {
		return validMeal(cleanField(m[1]), cleanField(m[2]))
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return MealRequest{}, ErrUnparseable
	}
	var raw struct {
		MealType           string `json:"meal_type"`
		Dietary            string `json:"dietary"`
		DietaryPreference  string `json:"dietary_preference"`
		DietaryPreferences string `json:"dietary_preferences"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return MealRequest{}, errors.Wrap(ErrUnparseable, err.Error())
	}
	dietary := raw.DietaryPreferences
	for _, d := range []string{raw.DietaryPreference, raw.Dietary} {
		if dietary == "" {
			dietary = d
		}
	}
	return validMeal(cleanField(raw.MealType), cleanField(dietary))
}

func validMeal(mealType, dietary string) (MealRequest, error) {
	if mealType == "" || mealType == "..." {
		return MealRequest{}, ErrUnparseable
	}
	if dietary == "" || dietary == "..." {
		dietary = "no preference"
	}
	return MealRequest{MealType: strings.ToLower(mealType), Dietary: strings.ToLower(dietary)}, nil
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`*.")
}

// cleanActivity reduces a free-text completion to a short activity name.
func cleanActivity(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	line = activityRe.ReplaceAllString(strings.TrimSpace(line), "")
	line = strings.Trim(strings.TrimSpace(line), "\"'`*.!")
	return strings.ToLower(strings.TrimSpace(line))
}
