package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smart-home-bot/internal/domain"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// LoadVocabulary reads the keyword vocabulary from path, or the built-in one
// when path is empty. Replies missing from a custom file fall back to the
// built-in wording.
func LoadVocabulary(path string) (domain.Vocabulary, error) {
	var builtin domain.Vocabulary
	if err := yaml.Unmarshal(defaultVocabulary, &builtin); err != nil {
		return domain.Vocabulary{}, fmt.Errorf("parsing built-in vocabulary: %w", err)
	}
	if path == "" {
		return builtin, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Vocabulary{}, fmt.Errorf("reading vocabulary file: %w", err)
	}

	var vocab domain.Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return domain.Vocabulary{}, fmt.Errorf("parsing vocabulary: %w", err)
	}
	if err := validateVocabulary(vocab); err != nil {
		return domain.Vocabulary{}, err
	}

	vocab.Replies = mergeReplies(vocab.Replies, builtin.Replies)
	return vocab, nil
}

func validateVocabulary(v domain.Vocabulary) error {
	if v.Version <= 0 {
		return errors.New("vocabulary: version must be positive")
	}
	if len(v.Create) == 0 || len(v.Delete) == 0 || len(v.Update) == 0 {
		return fmt.Errorf("vocabulary v%d: create, delete and update lists must not be empty", v.Version)
	}
	return nil
}

func mergeReplies(r, fallback domain.Replies) domain.Replies {
	pick := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	return domain.Replies{
		NotRecognized:      pick(r.NotRecognized, fallback.NotRecognized),
		DeviceNotFound:     pick(r.DeviceNotFound, fallback.DeviceNotFound),
		InvalidUpdate:      pick(r.InvalidUpdate, fallback.InvalidUpdate),
		UnknownParam:       pick(r.UnknownParam, fallback.UnknownParam),
		Updated:            pick(r.Updated, fallback.Updated),
		UpdateFailed:       pick(r.UpdateFailed, fallback.UpdateFailed),
		CreateNotRecog:     pick(r.CreateNotRecog, fallback.CreateNotRecog),
		NoSimilarDevice:    pick(r.NoSimilarDevice, fallback.NoSimilarDevice),
		UserNotFound:       pick(r.UserNotFound, fallback.UserNotFound),
		Created:            pick(r.Created, fallback.Created),
		CreateFailed:       pick(r.CreateFailed, fallback.CreateFailed),
		Deleted:            pick(r.Deleted, fallback.Deleted),
		DeleteFailed:       pick(r.DeleteFailed, fallback.DeleteFailed),
		DevicesUnavailable: pick(r.DevicesUnavailable, fallback.DevicesUnavailable),
		ChatUnavailable:    pick(r.ChatUnavailable, fallback.ChatUnavailable),
	}
}
