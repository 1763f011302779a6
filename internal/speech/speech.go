// Package speech renders podcast scripts to MP3 audio.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

var ErrDisabled = errors.New("speech synthesis is disabled")

type Synthesizer interface {
	// Synthesize returns MP3 audio for text spoken in lang ("en", "hi").
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
	Close() error
}

func New(ctx context.Context, log *logger.Logger, cfg config.SpeechConfig) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "google":
		return NewGoogleSynthesizer(ctx, log, cfg)
	case "openai":
		return NewOpenAISynthesizer(log, cfg, nil)
	case "", "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}

type None struct{}

func (None) Synthesize(context.Context, string, string) ([]byte, error) { return nil, ErrDisabled }
func (None) Close() error                                               { return nil }

var defaultVoices = map[string]string{
	"en": "en-US-Neural2-F",
	"hi": "hi-IN-Neural2-A",
}

func voiceFor(voices map[string]string, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if v := strings.TrimSpace(voices[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(voices["en"]); v != "" {
		return v
	}
	if v, ok := defaultVoices[lang]; ok {
		return v
	}
	return defaultVoices["en"]
}

// chunkText splits text on sentence boundaries into pieces of at most max
// bytes. A single sentence longer than max is split on rune boundaries.
func chunkText(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= max {
		return []string{text}
	}
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, sentence := range splitSentences(text) {
		if cur.Len()+len(sentence) > max {
			flush()
		}
		for len(sentence) > max {
			cut := max
			for cut > 0 && !utf8.RuneStart(sentence[cut]) {
				cut--
			}
			out = append(out, strings.TrimSpace(sentence[:cut]))
			sentence = sentence[cut:]
		}
		cur.WriteString(sentence)
	}
	flush()
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?', '।', '\n':
			end := i + utf8.RuneLen(r)
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
