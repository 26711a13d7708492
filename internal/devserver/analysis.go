package devserver

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"eunoia.dev/pkg/eunoia/journal"
)

var emotionLexicon = map[string]string{
	"happy": "joy", "joy": "joy", "great": "joy", "wonderful": "joy", "excited": "joy", "proud": "joy",
	"accomplished": "joy", "good": "joy", "fun": "joy",
	"love": "love", "grateful": "love", "thankful": "love", "kind": "love",
	"surprised": "surprise", "unexpected": "surprise", "amazed": "surprise",
	"sad": "sadness", "lonely": "sadness", "tired": "sadness", "miss": "sadness", "down": "sadness",
	"angry": "anger", "frustrated": "anger", "annoyed": "anger", "furious": "anger",
	"anxious": "fear", "worried": "fear", "scared": "fear", "afraid": "fear", "nervous": "fear",
	"overwhelmed": "fear",
}

var stressWords = map[string]bool{
	"stress": true, "stressed": true, "deadline": true, "deadlines": true, "pressure": true, "anxious": true,
	"overwhelmed": true, "worried": true, "panic": true, "exhausted": true,
}

var emotionGroups = map[string]string{
	"joy": "positive", "love": "positive", "surprise": "positive",
	"sadness": "negative", "anger": "negative", "fear": "negative",
	"neutral": "neutral",
}

// analyze scores content with a small keyword lexicon and fills the entry's analysis fields.
func analyze(e *journal.Entry) {
	words := strings.FieldsFunc(strings.ToLower(e.Content), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	counts := map[string]int{}
	positive, negative, stress := 0, 0, 0

	for _, w := range words {
		if stressWords[w] {
			stress++
		}

		emotion, ok := emotionLexicon[w]
		if !ok {
			continue
		}

		counts[emotion]++

		if emotionGroups[emotion] == "positive" {
			positive++
		} else {
			negative++
		}
	}

	hits := positive + negative
	sentiment := round(clamp(5+5*float64(positive-negative)/float64(hits+1), 0, 10))
	stressLevel := round(clamp(2+2*float64(stress)+float64(negative)*0.5, 0, 10))

	detected := make([]journal.EmotionScore, 0, len(counts))
	for emotion, n := range counts {
		detected = append(detected, journal.EmotionScore{Emotion: emotion, Confidence: round(float64(n) / float64(hits))})
	}

	sort.Slice(detected, func(i, j int) bool {
		if detected[i].Confidence != detected[j].Confidence {
			return detected[i].Confidence > detected[j].Confidence
		}

		return detected[i].Emotion < detected[j].Emotion
	})

	top := journal.EmotionScore{Emotion: "neutral", Confidence: 0.5}
	if len(detected) > 0 {
		top = detected[0]
	} else {
		detected = append(detected, top)
	}

	wordCount := len(strings.Fields(e.Content))

	e.SentimentScore = &sentiment
	e.StressLevel = &stressLevel
	e.Emotion = top.Emotion
	e.EmotionConfidence = &top.Confidence
	e.EmotionsDetected = detected
	e.EmotionGroup = emotionGroups[top.Emotion]
	e.WordCount = &wordCount
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
