package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pavelanni/studyroom/internal/model"
)

var (
	frontKeys = []string{"front", "question", "term"}
	backKeys  = []string{"back", "answer", "definition"}
)

// ParseCards canonicalizes a stored flashcard payload: a bare list of cards or
// an object with a "cards" or "flashcards" key.
func ParseCards(content string) ([]model.FlashCard, error) {
	raw := model.TrimCodeFence(content)
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", model.ErrMalformedDeck)
	}
	list := gjson.Parse(raw)
	if list.IsObject() {
		if c := list.Get("cards"); c.Exists() {
			list = c
		} else {
			list = list.Get("flashcards")
		}
	}
	if !list.IsArray() || len(list.Array()) == 0 {
		return nil, fmt.Errorf("%w: expected a non-empty list of cards", model.ErrMalformedDeck)
	}

	var cards []model.FlashCard
	for i, item := range list.Array() {
		front, back := firstString(item, frontKeys), firstString(item, backKeys)
		if front == "" || back == "" {
			return nil, fmt.Errorf("%w: card %d needs a front and a back", model.ErrMalformedDeck, i+1)
		}
		cards = append(cards, model.FlashCard{Front: front, Back: back})
	}
	return cards, nil
}

func firstString(obj gjson.Result, keys []string) string {
	for _, k := range keys {
		if r := obj.Get(k); r.Type == gjson.String {
			return strings.TrimSpace(r.Str)
		}
	}
	return ""
}

// MarshalCards renders cards in the canonical stored form.
func MarshalCards(cards []model.FlashCard) (string, error) {
	b, err := json.Marshal(struct {
		Cards []model.FlashCard `json:"cards"`
	}{cards})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Canonicalize parses content and re-renders it in canonical form.
func Canonicalize(content string) (string, error) {
	cards, err := ParseCards(content)
	if err != nil {
		return "", err
	}
	return MarshalCards(cards)
}
