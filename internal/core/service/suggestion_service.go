package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/truefeedback/inbox-api/internal/core/ports"
)

// SuggestionSeparator splits the suggester's free text into individual prompts.
const SuggestionSeparator = "||"

// DefaultSuggestions is served when the suggester is unavailable.
const DefaultSuggestions = "What's your favorite movie?||Do you have any pets?||What's your dream job?"

type suggestionService struct {
	suggester ports.Suggester
	log       zerolog.Logger
}

func NewSuggestionService(suggester ports.Suggester, log zerolog.Logger) ports.SuggestionService {
	return &suggestionService{suggester: suggester, log: log}
}

// Suggest never fails on a collaborator error; it degrades to DefaultSuggestions.
func (s *suggestionService) Suggest(ctx context.Context, topic string) ([]string, error) {
	if s.suggester == nil {
		return split(DefaultSuggestions), nil
	}
	text, err := s.suggester.Suggest(ctx, strings.TrimSpace(topic))
	if err != nil {
		s.log.Warn().Err(err).Msg("suggester failed, serving defaults")
		return split(DefaultSuggestions), nil
	}
	out := split(text)
	if len(out) == 0 {
		return split(DefaultSuggestions), nil
	}
	return out, nil
}

func split(text string) []string {
	parts := strings.Split(text, SuggestionSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
