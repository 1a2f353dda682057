package router

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/companion/clients"
	"github.com/maastricht-university/companion/emotion"
	"github.com/maastricht-university/companion/metrics"
	"github.com/maastricht-university/companion/routine"
)

const (
	ConcernRoutine   = "routine-related"
	ConcernLifeEvent = "life-event-related"
	ConcernNeutral   = "neutral-chat"
	ConcernMeal      = "meal-request"

	DefaultUserID = "default_user"
)

var ErrEmptyInput = errors.New("message cannot be empty")

type Completer interface {
	Complete(ctx context.Context, prompt string) (clients.Completion, error)
}

type SentimentAnalyzer interface {
	Sentiment(ctx context.Context, text string) (clients.Mood, error)
}

type EmotionReader interface {
	Current() (emotion.CombinedEmotion, bool)
}

type Request struct {
	UserID            string   `json:"user_id"`
	Message           string   `json:"message"`
	EmotionHint       string   `json:"emotion_hint,omitempty"`
	EmotionConfidence *float64 `json:"emotion_confidence,omitempty"`
}

type Response struct {
	Text     string       `json:"response"`
	Concern  string       `json:"-"`
	Activity string       `json:"-"`
	Meal     *MealRequest `json:"-"`
}

// Options carries the optional collaborators. Nil fields disable the feature.
type Options struct {
	Sentiment SentimentAnalyzer
	Emotions  EmotionReader
	Keywords  []string
	Log       *logrus.Entry
	Metrics   *metrics.Metrics
}

// Router classifies one message and dispatches it to exactly one handler. Capability
// failures are absorbed at each call site with a fixed fallback reply.
type Router struct {
	llm       Completer
	store     *routine.Store
	sentiment SentimentAnalyzer
	emotions  EmotionReader
	keywords  []string
	log       *logrus.Entry
	metrics   *metrics.Metrics
}

func New(llm Completer, store *routine.Store, opts Options) *Router {
	r := &Router{
		llm:       llm,
		store:     store,
		sentiment: opts.Sentiment,
		emotions:  opts.Emotions,
		keywords:  opts.Keywords,
		log:       opts.Log,
		metrics:   opts.Metrics,
	}
	if len(r.keywords) == 0 {
		r.keywords = defaultKeywords
	}
	if r.log == nil {
		r.log = logrus.NewEntry(logrus.StandardLogger())
	}
	r.log = r.log.WithField("component", "router")
	return r
}

func (r *Router) Route(ctx context.Context, req Request) (Response, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Response{}, ErrEmptyInput
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}
	log := r.log.WithField("user_id", userID)
	tone := r.tone(req)

	if containsAny(msg, r.keywords) {
		meal, err := r.extractMeal(ctx, msg)
		if err == nil {
			r.metrics.Routed(ConcernMeal)
			return r.handleMeal(ctx, log, userID, msg, meal, tone), nil
		}
		log.WithError(err).Info("meal extraction failed, using general routing")
	}

	concern := r.categorize(ctx, log, msg)
	r.metrics.Routed(concern)
	if concern == ConcernRoutine {
		return r.handleRoutine(ctx, log, userID, msg, tone), nil
	}
	return r.handleConversation(ctx, log, userID, msg, concern, tone), nil
}

// complete runs one capability call and logs failures under the call's name.
func (r *Router) complete(ctx context.Context, log *logrus.Entry, call, prompt string) (string, bool) {
	out, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		log.WithError(err).WithField("call", call).Warn("completion failed, using fallback")
		r.metrics.CompletionFailed(call)
		return "", false
	}
	return strings.TrimSpace(out.Text), true
}

func (r *Router) extractMeal(ctx context.Context, msg string) (MealRequest, error) {
	out, err := r.llm.Complete(ctx, mealExtractPrompt(msg))
	if err != nil {
		r.metrics.CompletionFailed("meal_extract")
		return MealRequest{}, errors.Wrap(err, "meal extract")
	}
	return parseMealRequest(out.Text)
}

func (r *Router) categorize(ctx context.Context, log *logrus.Entry, msg string) string {
	out, ok := r.complete(ctx, log, "categorize", categorizePrompt(msg))
	if !ok {
		return ConcernNeutral
	}
	return parseConcern(out)
}

func (r *Router) handleRoutine(ctx context.Context, log *logrus.Entry, userID, msg, tone string) Response {
	resp := Response{Concern: ConcernRoutine}
	out, ok := r.complete(ctx, log, "activity", activityPrompt(msg))
	activity := cleanActivity(out)
	if !ok || activity == "" {
		resp.Text = fallbackRoutine
		return resp
	}
	resp.Activity = activity

	r.store.Log(userID, activity, msg)
	r.store.Audit(userID, routine.TagRoutine, msg, activity)
	log.WithField("activity", activity).Info("routine logged")

	tip, ok := r.complete(ctx, log, "tip", tipPrompt(activity, tone))
	if !ok || tip == "" {
		tip = fallbackTip
	}
	resp.Text = "Noted your " + activity + " routine. " + tip
	return resp
}

func (r *Router) handleConversation(ctx context.Context, log *logrus.Entry, userID, msg, concern, tone string) Response {
	r.store.SetLastConcern(userID, concern)

	mood := clients.Mood{Score: 0.5, Label: "neutral"}
	if r.sentiment != nil {
		m, err := r.sentiment.Sentiment(ctx, msg)
		if err != nil {
			log.WithError(err).Warn("sentiment failed, assuming neutral")
		} else {
			mood = m
		}
	}
	r.store.Audit(userID, routine.TagConcern, msg, concern+" | Mood: "+mood.Label)

	text, ok := r.complete(ctx, log, "conversation", conversationPrompt(msg, concern, tone))
	if !ok || text == "" {
		text = fallbackChat
	}
	return Response{Text: text, Concern: concern}
}

func (r *Router) handleMeal(ctx context.Context, log *logrus.Entry, userID, msg string, meal MealRequest, tone string) Response {
	resp := Response{Concern: ConcernMeal, Meal: &meal}
	text, ok := r.complete(ctx, log, "meal_plan", mealPlanPrompt(meal, tone))
	if !ok || text == "" {
		resp.Text = fallbackMealPlan
		return resp
	}
	r.store.Audit(userID, routine.TagMealPlan, msg,
		text+" | Meal Type: "+meal.MealType+", Dietary: "+meal.Dietary)
	log.WithFields(logrus.Fields{"meal_type": meal.MealType, "dietary": meal.Dietary}).Info("meal plan suggested")
	resp.Text = text
	return resp
}

// tone prefers the caller's hint over the fused reading.
func (r *Router) tone(req Request) string {
	if hint := strings.TrimSpace(req.EmotionHint); hint != "" {
		conf := -1.0
		if req.EmotionConfidence != nil {
			conf = emotion.NormalizeConfidence(*req.EmotionConfidence)
		}
		return toneLine(hint, conf)
	}
	if r.emotions == nil {
		return ""
	}
	cur, ok := r.emotions.Current()
	if !ok {
		return ""
	}
	label, ok := cur.Dominant()
	if !ok {
		return ""
	}
	return toneLine(label, cur.Confidence())
}
