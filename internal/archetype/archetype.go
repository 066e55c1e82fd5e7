package archetype

import (
	"errors"
	"fmt"
)

// Archetype identifies one of the four relationship archetypes.
type Archetype string

const (
	Romantic   Archetype = "romantic"
	Avoidant   Archetype = "avoidant"
	Strategist Archetype = "strategist"
	Seeker     Archetype = "seeker"
)

// ordered fixes the tie-break order for classification: when two
// archetypes score equally, the earlier one wins.
var ordered = []Archetype{Romantic, Avoidant, Strategist, Seeker}

// displayNames are the client-facing Russian names of the archetypes.
var displayNames = map[Archetype]string{
	Romantic:   "Романтик",
	Avoidant:   "Избегающий",
	Strategist: "Стратег",
	Seeker:     "Искатель",
}

// DisplayName returns the client-facing name of an archetype.
func (a Archetype) DisplayName() string { return displayNames[a] }

// QuestionCount is the number of quiz questions an analysis requires.
const QuestionCount = 7

// Answer is one submitted quiz answer, keyed by question number (1-based)
// and the literal answer text.
type Answer struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// scoring maps question id -> answer text -> archetype point weights.
var scoring = map[int]map[string]map[Archetype]int{
	1: {
		"Любовь превыше всего":            {Romantic: 3},
		"Финансовая стабильность важнее":  {Strategist: 3},
		"Нужен баланс между ними":         {Strategist: 2, Romantic: 1},
		"Сначала стабильность, потом любовь": {Strategist: 3, Avoidant: 1},
	},
	2: {
		"Всегда стремлюсь к близости":        {Romantic: 3},
		"Часто отдаляюсь":                    {Avoidant: 3},
		"Зависит от настроения":              {Seeker: 2},
		"Сначала сближаюсь, потом отдаляюсь": {Avoidant: 2, Seeker: 1},
	},
	3: {
		"Никогда":                  {Romantic: 3},
		"Да, если есть любовь":     {Romantic: 2, Strategist: 1},
		"Только ради детей/семьи":  {Strategist: 3},
		"Страсть не главное":       {Strategist: 2, Avoidant: 1},
	},
	4: {
		"Абсолютно верю":      {Romantic: 3},
		"Скорее да, чем нет":  {Romantic: 2},
		"Скорее нет, чем да":  {Avoidant: 2},
		"Это выдумка":         {Avoidant: 3},
	},
	5: {
		"Да, хочу опору":              {Romantic: 2, Seeker: 1},
		"Нет, предпочитаю равенство":  {Strategist: 2},
		"Хочу быть сильнее":           {Avoidant: 2},
		"Не важно":                    {Seeker: 2},
	},
	6: {
		"Готов кардинально измениться": {Romantic: 3},
		"Готов на компромиссы":         {Strategist: 2, Romantic: 1},
		"Минимальные изменения":        {Avoidant: 2},
		"Не буду меняться":             {Avoidant: 3},
	},
	7: {
		"Очень боюсь":            {Romantic: 2, Seeker: 1},
		"Немного волнует":        {Romantic: 1, Seeker: 1},
		"Редко думаю об этом":    {Strategist: 2},
		"Совсем не боюсь":        {Avoidant: 2, Strategist: 1},
	},
}

// Analysis is the classification result for one full set of answers.
type Analysis struct {
	Dominant   Archetype         `json:"dominant"`
	Name       string            `json:"name"`
	Scores     map[Archetype]int `json:"scores"`
	TotalScore int               `json:"total_score"`
	// Percentage is the dominant archetype's share of all points.
	Percentage        int      `json:"percentage"`
	KeyInsights       []string `json:"key_insights"`
	Patterns          []string `json:"relationship_patterns"`
	CompatibilityTips []string `json:"compatibility_tips"`
}

// ErrIncompleteAnswers is returned when fewer than QuestionCount answers
// were submitted.
var ErrIncompleteAnswers = errors.New("not all questions answered")

// Analyze scores the submitted answers against the weighted point table
// and classifies the dominant archetype. Unknown answers contribute no
// points but do not fail the analysis.
func Analyze(answers []Answer) (*Analysis, error) {
	if len(answers) < QuestionCount {
		return nil, fmt.Errorf("%w: got %d of %d", ErrIncompleteAnswers, len(answers), QuestionCount)
	}

	scores := map[Archetype]int{Romantic: 0, Avoidant: 0, Strategist: 0, Seeker: 0}
	for _, ans := range answers {
		weights, ok := scoring[ans.QuestionID]
		if !ok {
			continue
		}
		for arch, points := range weights[ans.Answer] {
			scores[arch] += points
		}
	}

	dominant := ordered[0]
	for _, arch := range ordered[1:] {
		if scores[arch] > scores[dominant] {
			dominant = arch
		}
	}

	total := 0
	for _, pts := range scores {
		total += pts
	}
	percentage := 0
	if total > 0 {
		percentage = int(float64(scores[dominant])/float64(total)*100 + 0.5)
	}

	return &Analysis{
		Dominant:          dominant,
		Name:              dominant.DisplayName(),
		Scores:            scores,
		TotalScore:        total,
		Percentage:        percentage,
		KeyInsights:       keyInsights(answers),
		Patterns:          patterns(answers),
		CompatibilityTips: compatibilityTips(dominant),
	}, nil
}

func answerTo(answers []Answer, questionID int) string {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a.Answer
		}
	}
	return ""
}

func keyInsights(answers []Answer) []string {
	var insights []string
	switch answerTo(answers, 1) {
	case "Любовь превыше всего":
		insights = append(insights, "Ты ставишь эмоциональную связь выше материальной стабильности")
	case "Финансовая стабильность важнее":
		insights = append(insights, "Для тебя важна надёжность и стабильность в отношениях")
	}
	switch answerTo(answers, 2) {
	case "Часто отдаляюсь":
		insights = append(insights, "У тебя есть тенденция создавать эмоциональную дистанцию в близких отношениях")
	case "Всегда стремлюсь к близости":
		insights = append(insights, "Ты естественным образом тяготеешь к глубокой эмоциональной близости")
	}
	return insights
}

func patterns(answers []Answer) []string {
	var out []string
	if answerTo(answers, 3) == "Никогда" {
		out = append(out, "Страсть играет ключевую роль в твоих отношениях")
	}
	if answerTo(answers, 6) == "Готов кардинально измениться" {
		out = append(out, "Ты готов жертвовать собой ради отношений")
	}
	return out
}

var tips = map[Archetype][]string{
	Romantic: {
		"Ищи партнёра, который ценит глубину чувств",
		"Избегай слишком рациональных или холодных людей",
		"Важна эмоциональная отзывчивость партнёра",
	},
	Avoidant: {
		"Подходят независимые и самодостаточные партнёры",
		"Нужно время и пространство для личного развития",
		"Избегай слишком требовательных или навязчивых людей",
	},
	Strategist: {
		"Ищи партнёра с похожими жизненными целями",
		"Важна совместимость в планах на будущее",
		"Цени стабильность и надёжность в отношениях",
	},
	Seeker: {
		"Подходят открытые к экспериментам партнёры",
		"Важна возможность роста и развития вместе",
		"Не торопись с серьёзными обязательствами",
	},
}

func compatibilityTips(a Archetype) []string {
	return tips[a]
}
