// Package translate fills the per-language translation table of group
// messages. The translation backend itself stays external: it is consumed
// as an opaque request/response function. What lives here is the decision
// of which targets actually need a round-trip.
package translate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"lingua-link/store"
)

// RequestFunc asks the external backend for a translation of text from
// sourceLang to targetLang. Both are ISO 639-1 codes.
type RequestFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

// DetectLanguage returns the ISO 639-1 code of the text's most likely
// language, "" when detection is not confident enough to act on.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

// Service writes translations under group_messages/{groupId}/{msgId}/translations.
type Service struct {
	store   store.TreeStore
	log     *slog.Logger
	request RequestFunc
}

func NewService(treeStore store.TreeStore, log *slog.Logger, request RequestFunc) *Service {
	return &Service{store: treeStore, log: log, request: request}
}

// FillGroupMessage translates a group message into each target language and
// stores the results. Targets matching the detected source language are
// skipped without a backend call; individual target failures are logged and
// do not abort the remaining targets.
func (s *Service) FillGroupMessage(ctx context.Context, groupID, messageID string, targets []string) error {
	path := fmt.Sprintf("group_messages/%s/%s", groupID, messageID)
	snap, err := s.store.Once(ctx, store.Ref{Path: path})
	if err != nil {
		return fmt.Errorf("load group message: %w", err)
	}
	text := snap.Child("messageOG").Text()
	if text == "" {
		text = snap.Child("message").Text()
	}
	if text == "" {
		return nil
	}

	source := DetectLanguage(text)
	for _, target := range targets {
		if target == "" || target == source {
			continue
		}
		if snap.Child("translations").Child(target).Text() != "" {
			continue
		}
		translated, err := s.request(ctx, text, source, target)
		if err != nil {
			s.log.Warn("translation failed", "message", messageID, "target", target, "error", err)
			continue
		}
		if err = s.store.Write(ctx, path+"/translations/"+target, translated); err != nil {
			return fmt.Errorf("store translation: %w", err)
		}
	}
	return nil
}
