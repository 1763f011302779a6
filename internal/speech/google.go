package speech

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// Cloud Text-to-Speech rejects inputs over 5000 bytes.
const googleMaxInputBytes = 4500

type GoogleSynthesizer struct {
	log    *logger.Logger
	client *texttospeech.Client
	voices map[string]string
}

func NewGoogleSynthesizer(ctx context.Context, log *logger.Logger, cfg config.SpeechConfig) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	return &GoogleSynthesizer{
		log:    log.With("service", "GoogleSynthesizer"),
		client: client,
		voices: cfg.Voices,
	}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	voice := voiceFor(g.voices, lang)
	chunks := chunkText(text, googleMaxInputBytes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	var audio []byte
	for i, chunk := range chunks {
		resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: languageCode(voice),
				Name:         voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio = append(audio, resp.GetAudioContent()...)
	}
	g.log.Debug("Synthesized speech", "voice", voice, "chunks", len(chunks), "bytes", len(audio))
	return audio, nil
}

func (g *GoogleSynthesizer) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// languageCode extracts "hi-IN" from a voice name such as "hi-IN-Neural2-A".
func languageCode(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
