// internal/signal/sentiment.go
package signal

import (
	"math"
	"strings"
	"unicode"
)

// Lexicon valences on a -4..4 scale.
var lexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "amazing": 2.8, "awesome": 3.1, "best": 3.2,
	"love": 3.2, "win": 2.8, "winning": 2.4, "profit": 2.0, "profits": 2.0,
	"gain": 2.0, "gains": 2.0, "bullish": 2.5, "moon": 2.0, "mooning": 2.5,
	"pump": 1.5, "pumping": 1.8, "gem": 2.0, "rocket": 1.8, "lfg": 2.0,
	"excited": 2.2, "huge": 1.3, "strong": 2.3, "buy": 1.0, "launch": 0.8,
	"new": 0.4, "up": 0.5, "safe": 1.9, "legit": 1.8, "happy": 2.7,

	"bad": -2.5, "scam": -3.0, "rug": -3.0, "rugpull": -3.4, "rugged": -3.0,
	"dump": -2.0, "dumping": -2.2, "bearish": -2.5, "crash": -2.8,
	"crashing": -2.8, "loss": -2.0, "losses": -2.0, "sell": -0.8,
	"fear": -2.2, "hate": -2.7, "terrible": -3.1, "dead": -3.3, "down": -0.8,
	"risky": -1.2, "warning": -1.4, "fake": -2.1, "hack": -2.5,
	"hacked": -2.8, "weak": -1.9, "avoid": -1.6, "panic": -2.6,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"isnt": true, "isn't": true, "arent": true, "aren't": true, "wont": true,
	"won't": true, "cant": true, "can't": true, "without": true, "nothing": true,
}

var boosters = map[string]float64{
	"very": 0.293, "extremely": 0.293, "really": 0.293, "super": 0.293,
	"so": 0.293, "incredibly": 0.293, "absolutely": 0.293, "totally": 0.293,
	"slightly": -0.293, "somewhat": -0.293, "kinda": -0.293, "barely": -0.293,
}

const (
	negationScale = -0.74
	capsIncrement = 0.733
	bangIncrement = 0.292
	maxBangs      = 4
	normAlpha     = 15.0
)

// Sentiment scores text in [-1, 1]. Word valences from a small lexicon are
// adjusted for negation, boosters, ALL-CAPS emphasis and exclamation marks,
// then squashed into range.
func Sentiment(text string) float64 {
	raw := strings.Fields(text)
	words := make([]string, 0, len(raw))
	capsWords := 0
	for _, w := range raw {
		if strings.HasPrefix(w, "$") {
			// cashtags name a token, they carry no opinion
			words = append(words, "")
			continue
		}
		clean := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if isShouting(clean) {
			capsWords++
		}
		words = append(words, clean)
	}
	// Caps only emphasise when the rest of the text is not shouting too.
	mixedCase := capsWords > 0 && capsWords < len(words)

	var sum float64
	for i, w := range words {
		lower := strings.ToLower(w)
		valence, ok := lexicon[lower]
		if !ok {
			continue
		}
		if mixedCase && isShouting(w) {
			valence += math.Copysign(capsIncrement, valence)
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := strings.ToLower(words[i-back])
			if b, ok := boosters[prev]; ok && back == 1 {
				valence += math.Copysign(b, valence)
			}
			if negations[prev] {
				valence *= negationScale
				break
			}
		}
		sum += valence
	}

	if sum != 0 {
		bangs := strings.Count(text, "!")
		if bangs > maxBangs {
			bangs = maxBangs
		}
		sum += math.Copysign(float64(bangs)*bangIncrement, sum)
	}

	score := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, score))
}

func isShouting(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
