package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"chatmatch/internal/domain"
	"chatmatch/internal/entitlement"
	"chatmatch/internal/providers/replies"
)

// Tones returns the catalog of supported reply tones.
func (a *App) Tones(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"tones": replies.Tones()})
}

type generateRequest struct {
	Messages []replies.Message `json:"chat_messages"`
	Tone     string            `json:"tone"`
}

type generationDTO struct {
	ID         string               `json:"id"`
	Tone       string               `json:"tone"`
	Responses  []replies.Suggestion `json:"responses"`
	TokensUsed int                  `json:"tokens_used"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Generate is the quota-gated core flow: admission check, provider call,
// persist, then charge the quota. A failed provider call must not consume
// quota, so the usage commit happens strictly after the generation has
// been produced and stored.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Messages) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "chat_messages array is required")
		return
	}
	tone, ok := replies.ToneByID(req.Tone)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "valid tone is required")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user")
		return
	}

	now := time.Now()
	snapshot := user.EntitlementSnapshot()
	if !a.Engine.CanConsume(snapshot, now) {
		usage := a.Engine.UsageInfo(snapshot, now)
		message := "Daily limit reached. Please subscribe to Pro for more generations."
		if usage.Tier == entitlement.TierPro {
			message = "Monthly limit reached. Please upgrade your plan or wait for next month."
		}
		a.json(w, http.StatusTooManyRequests, map[string]any{
			"error": errorBody{Code: "limit_exceeded", Message: message},
			"usage": usage,
		})
		return
	}

	result, err := a.Replies.Generate(r.Context(), req.Messages, tone)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Str("tone", tone.ID).Msg("generation failed")
		a.error(w, http.StatusBadGateway, "provider_failure", "failed to generate responses")
		return
	}

	messagesJSON, _ := json.Marshal(req.Messages)
	responsesJSON, _ := json.Marshal(result.Suggestions)
	gen := &domain.Generation{
		UserID:     userID,
		Tone:       tone.ID,
		Messages:   messagesJSON,
		Responses:  responsesJSON,
		TokensUsed: result.TokensUsed,
		Model:      result.Model,
	}
	if err := a.Generations.Create(r.Context(), gen); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("store generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store generation")
		return
	}

	updated, err := a.Users.CommitUsage(r.Context(), userID, time.Now())
	if err != nil {
		// The generation succeeded and was delivered; losing the charge is
		// preferable to double-billing or failing the request.
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("commit usage failed")
		updated = user
	}

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"generation": generationDTO{
			ID:         gen.ID,
			Tone:       gen.Tone,
			Responses:  result.Suggestions,
			TokensUsed: gen.TokensUsed,
			CreatedAt:  gen.CreatedAt,
		},
		"usage": a.Engine.UsageInfo(updated.EntitlementSnapshot(), time.Now()),
	})
}

type historyItem struct {
	ID               string          `json:"id"`
	Tone             string          `json:"tone"`
	Responses        json.RawMessage `json:"responses"`
	SelectedResponse string          `json:"selected_response,omitempty"`
	TokensUsed       int             `json:"tokens_used"`
	CreatedAt        time.Time       `json:"created_at"`
}

// History lists the user's past generations, newest first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	page, limit := pagination(r, 10)
	offset := (page - 1) * limit

	gens, err := a.Generations.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list generations failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch history")
		return
	}
	total, err := a.Generations.CountByUser(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("count generations failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch history")
		return
	}

	items := make([]historyItem, 0, len(gens))
	for _, g := range gens {
		items = append(items, historyItem{
			ID:               g.ID,
			Tone:             g.Tone,
			Responses:        g.Responses,
			SelectedResponse: g.SelectedResponse,
			TokensUsed:       g.TokensUsed,
			CreatedAt:        g.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"generations": items,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

type selectRequest struct {
	GenerationID string `json:"generation_id"`
	Response     string `json:"response"`
}

// Select records which suggested reply the user actually used.
func (a *App) Select(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.GenerationID == "" || req.Response == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "generation_id and response required")
		return
	}
	err := a.Generations.SelectResponse(r.Context(), req.GenerationID, userID, req.Response)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		a.Logger.Error().Err(err).Str("generation_id", req.GenerationID).Msg("select response failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record selection")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}

func pagination(r *http.Request, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
