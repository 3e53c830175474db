package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/matthgross1/message-intent-lab/app/config"
)

// ImageAttachment is one uploaded screenshot, passed through to the model.
type ImageAttachment struct {
	MIMEType string
	Data     []byte
}

// Analyzer runs the two model calls behind a decode: screenshot
// transcription and subtext interpretation. Handlers only commit usage when
// the whole analysis has succeeded.
type Analyzer interface {
	// Transcribe turns chat screenshots into a plain-text transcript.
	Transcribe(ctx context.Context, images []ImageAttachment) (string, error)
	// Interpret reads the conversation (plus the optional situation note)
	// and returns a short interpretation as simple HTML markup.
	Interpret(ctx context.Context, situation, thread string) (string, error)
}

const transcribePrompt = `Transcribe the chat conversation in these screenshots into plain text.
Write one line per message in order, earliest first. Prefix messages from the
person who owns the phone (blue/right-aligned bubbles) with "You:" and the
other person's messages with "Them:". Include only the messages, no commentary.`

const interpretSystemPrompt = `You read text conversations and explain, in plain English, what the other
person's messages were probably trying to do. Be direct, warm, and concrete;
no therapy-speak and no hedging spirals. Keep it under 200 words.
Format the answer as simple HTML: a short opening <p>, then a <ul> with two
to four bullet points, then one closing <p> with a realistic read on where
things stand. Use only p, ul, li, strong, and em tags.`

type anthropicAnalyzer struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicAnalyzer builds the production Analyzer from configuration.
func NewAnthropicAnalyzer(cfg config.AnthropicConfig) (Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &anthropicAnalyzer{
		client: client,
		model:  anthropic.Model(cfg.Model),
	}, nil
}

func (a *anthropicAnalyzer) Transcribe(ctx context.Context, images []ImageAttachment) (string, error) {
	if len(images) == 0 {
		return "", errors.New("no images to transcribe")
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		encoded := base64.StdEncoding.EncodeToString(img.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, encoded))
	}
	blocks = append(blocks, anthropic.NewTextBlock(transcribePrompt))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", fmt.Errorf("transcription call failed: %w", err)
	}

	transcript := collectText(message)
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("transcription returned no text")
	}
	return transcript, nil
}

func (a *anthropicAnalyzer) Interpret(ctx context.Context, situation, thread string) (string, error) {
	if strings.TrimSpace(thread) == "" {
		return "", errors.New("nothing to interpret")
	}

	var prompt strings.Builder
	if strings.TrimSpace(situation) != "" {
		prompt.WriteString("Situation, in their own words:\n")
		prompt.WriteString(strings.TrimSpace(situation))
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("The conversation, earliest message first:\n")
	prompt.WriteString(strings.TrimSpace(thread))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: interpretSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("interpretation call failed: %w", err)
	}

	result := collectText(message)
	if strings.TrimSpace(result) == "" {
		return "", errors.New("interpretation returned no text")
	}
	return result, nil
}

func collectText(message *anthropic.Message) string {
	var out strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String()
}
