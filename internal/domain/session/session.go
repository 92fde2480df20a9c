// Package session describes the realtime session configuration sent upstream.
package session

// DefaultSilenceDurationMS is used when the configured value is not positive.
const DefaultSilenceDurationMS = 700

// Instructions is the session-wide assistant policy.
const Instructions = "あなたは親切な音声アシスタントです。原則日本語で簡潔に回答します。" +
	"一般知識・技術解説・定義・事実確認などの『知識質問』に回答する前に必ず一度 search_kb 関数を呼び出し、" +
	"上位ヒットの要点を統合して回答してください。最低1件の出典（タイトルとURL）を短く明示します。" +
	"天気の質問は get_weather を使用します。ヒットが0件のときはその旨を伝え、質問の絞り込みを促してください。" +
	"推測やハルシネーションは避けてください。"

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string `json:"type"`
	SilenceDurationMS int    `json:"silence_duration_ms"`
}

// Transcription selects the input audio transcription model.
type Transcription struct {
	Model string `json:"model"`
}

// Tool is a callable function declaration.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Config is the session-creation payload.
type Config struct {
	Model                   string        `json:"model"`
	Voice                   string        `json:"voice"`
	Modalities              []string      `json:"modalities"`
	TurnDetection           TurnDetection `json:"turn_detection"`
	InputAudioTranscription Transcription `json:"input_audio_transcription"`
	Tools                   []Tool        `json:"tools"`
	Instructions            string        `json:"instructions"`
}

// Defaults are the configurable parts of a session.
type Defaults struct {
	Model             string
	Voice             string
	TranscribeModel   string
	SilenceDurationMS int
}

// NewConfig builds the fixed session payload from defaults.
func NewConfig(d Defaults) Config {
	silence := d.SilenceDurationMS
	if silence <= 0 {
		silence = DefaultSilenceDurationMS
	}
	return Config{
		Model:      d.Model,
		Voice:      d.Voice,
		Modalities: []string{"audio", "text"},
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			SilenceDurationMS: silence,
		},
		InputAudioTranscription: Transcription{Model: d.TranscribeModel},
		Tools:                   Tools(),
		Instructions:            Instructions,
	}
}

// Tools returns the callable tool declarations exposed to the model.
func Tools() []Tool {
	return []Tool{
		{
			Type:        "function",
			Name:        "get_weather",
			Description: "指定された都市の現在の天気(気温と簡易天気)を返す",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string", "description": "都市名（日本語可）"},
					"unit": map[string]any{"type": "string", "enum": []string{"c", "f"}, "default": "c"},
				},
				"required": []string{"city"},
			},
		},
		{
			Type:        "function",
			Name:        "search_kb",
			Description: "ナレッジベースから関連情報を検索して要約を返す",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "検索クエリ（日本語可）"},
					"top_k": map[string]any{"type": "integer", "minimum": 1, "maximum": 10, "default": 5},
				},
				"required": []string{"query"},
			},
		},
	}
}
