package replies

// Tone describes one of the supported conversation styles.
type Tone struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`
}

var tones = []Tone{
	{
		ID:           "flirt",
		Name:         "Флирт",
		Description:  "Игривый и романтичный тон",
		SystemPrompt: "Ты помогаешь продолжить флиртующий диалог. Отвечай игриво, с лёгким кокетством, используй эмодзи и намёки. Будь очаровательным и интригующим.",
	},
	{
		ID:           "friendly",
		Name:         "Дружелюбный",
		Description:  "Тёплый и открытый тон",
		SystemPrompt: "Ты помогаешь продолжить дружескую беседу. Отвечай тепло, искренне, с интересом к собеседнику. Используй дружелюбные эмодзи и открытые вопросы.",
	},
	{
		ID:           "serious",
		Name:         "Серьёзный",
		Description:  "Деловой и вдумчивый тон",
		SystemPrompt: "Ты помогаешь продолжить серьёзную беседу. Отвечай вдумчиво, по существу, профессионально. Избегай лишних эмодзи, фокусируйся на содержании.",
	},
}

// Tones returns the tone catalog in a stable order.
func Tones() []Tone {
	out := make([]Tone, len(tones))
	copy(out, tones)
	return out
}

// ToneByID looks up a tone; ok is false for unknown ids.
func ToneByID(id string) (Tone, bool) {
	for _, t := range tones {
		if t.ID == id {
			return t, true
		}
	}
	return Tone{}, false
}
