package taleweave

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Orchestrator runs each generation against a primary provider and falls
// back to a secondary on any error. The secondary receives the identical
// prompt; attempts are strictly sequential, never raced.
type Orchestrator struct {
	TextPrimary    TextProvider
	TextSecondary  TextProvider
	ImagePrimary   ImageProvider
	ImageSecondary ImageProvider
}

// GenerateText returns the raw model output and whether the secondary
// provider produced it. When both providers fail the error aggregates both
// causes; when no secondary is configured the primary error is returned
// as-is.
func (o *Orchestrator) GenerateText(ctx context.Context, prompt string) (string, bool, error) {
	primary, secondary := o.TextPrimary, o.TextSecondary
	if primary == nil {
		primary, secondary = secondary, nil
	}
	if primary == nil {
		return "", false, errors.New("no text provider configured")
	}

	out, err := o.callText(ctx, primary, prompt)
	if err == nil {
		return out, false, nil
	}
	log.Warn().Err(err).Str("provider", primary.Name()).Msg("primary text provider failed")

	if secondary == nil {
		return "", false, err
	}
	fallbackTotal.WithLabelValues("text").Inc()

	out, ferr := o.callText(ctx, secondary, prompt)
	if ferr == nil {
		return out, true, nil
	}
	log.Error().Err(ferr).Str("provider", secondary.Name()).Msg("secondary text provider failed")
	return "", true, NewAllFailedError(err, ferr)
}

// GenerateImage renders a scene illustration with the locked art style
// applied. Image generation never fails a turn: any error, including both
// providers failing, yields an empty reference and the story continues
// without a picture.
func (o *Orchestrator) GenerateImage(ctx context.Context, scenePrompt, stylePrompt string) (string, bool) {
	primary, secondary := o.ImagePrimary, o.ImageSecondary
	if primary == nil {
		primary, secondary = secondary, nil
	}
	if primary == nil {
		return "", false
	}
	prompt := ApplyArtStyle(stylePrompt, scenePrompt)

	ref, err := o.callImage(ctx, primary, prompt)
	if err == nil {
		return ref, false
	}
	log.Warn().Err(err).Str("provider", primary.Name()).Msg("primary image provider failed")

	if secondary == nil {
		return "", false
	}
	fallbackTotal.WithLabelValues("image").Inc()

	ref, err = o.callImage(ctx, secondary, prompt)
	if err == nil {
		return ref, true
	}
	log.Error().Err(err).Str("provider", secondary.Name()).Msg("secondary image provider failed, continuing without image")
	return "", true
}

func (o *Orchestrator) callText(ctx context.Context, p TextProvider, prompt string) (string, error) {
	start := time.Now()
	out, err := p.Generate(ctx, prompt)
	observeProvider(p.Name(), time.Since(start).Seconds(), err)
	return out, err
}

func (o *Orchestrator) callImage(ctx context.Context, p ImageProvider, prompt string) (string, error) {
	start := time.Now()
	ref, err := p.Generate(ctx, prompt)
	observeProvider(p.Name(), time.Since(start).Seconds(), err)
	return ref, err
}

// ApplyArtStyle prefixes the scene description with the genre's locked art
// style. Idempotent: a scene that already leads with the style string is
// returned unchanged, so re-prompting a repaired payload cannot stack
// prefixes.
func ApplyArtStyle(stylePrompt, scenePrompt string) string {
	scenePrompt = strings.TrimSpace(scenePrompt)
	stylePrompt = strings.TrimSpace(stylePrompt)
	if stylePrompt == "" {
		return scenePrompt
	}
	if strings.HasPrefix(scenePrompt, stylePrompt) {
		return scenePrompt
	}
	return stylePrompt + " " + scenePrompt
}
