package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatmatch/internal/archetype"
)

type quizAnalyzeRequest struct {
	Answers []archetype.Answer `json:"answers"`
}

// QuizAnalyze classifies a completed archetype quiz. The scoring is
// stateless, so results are not persisted server-side.
func (a *App) QuizAnalyze(w http.ResponseWriter, r *http.Request) {
	var req quizAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	analysis, err := archetype.Analyze(req.Answers)
	if err != nil {
		if errors.Is(err, archetype.ErrIncompleteAnswers) {
			a.error(w, http.StatusBadRequest, "bad_request", "all quiz questions must be answered")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid answers")
		return
	}
	a.json(w, http.StatusOK, analysis)
}
