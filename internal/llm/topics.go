package llm

import (
	"regexp"
	"strings"
)

// Topic is a safety subject a helper question is about.
type Topic string

const (
	TopicAbuse      Topic = "abuse_identification"
	TopicReporting  Topic = "reporting"
	TopicBoundaries Topic = "boundaries"
	TopicSupport    Topic = "support"
	TopicPrevention Topic = "prevention"
	TopicOther      Topic = "fallback"
)

// Topics lists every topic in classification order.
var Topics = []Topic{TopicAbuse, TopicReporting, TopicBoundaries, TopicSupport, TopicPrevention, TopicOther}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, k := range Topics {
		if t == k {
			return true
		}
	}
	return false
}

// MessageID is the catalog entry holding the canned answer for t.
func (t Topic) MessageID() string {
	switch t {
	case TopicAbuse:
		return "HelperAbuse"
	case TopicReporting:
		return "HelperReporting"
	case TopicBoundaries:
		return "HelperBoundaries"
	case TopicSupport:
		return "HelperSupport"
	case TopicPrevention:
		return "HelperPrevention"
	default:
		return "HelperFallback"
	}
}

var phrases = []struct {
	topic Topic
	keys  []string
}{
	{TopicAbuse, []string{"what is abuse", "recognize abuse", "signs of abuse", "identify abuse", "types of abuse"}},
	{TopicReporting, []string{"report abuse", "tell someone", "call for help", "how to report", "who to tell"}},
	{TopicBoundaries, []string{"personal boundaries", "saying no", "consent", "body autonomy", "personal space"}},
	{TopicSupport, []string{"help someone", "support victim", "friend was abused", "family member abused"}},
	{TopicPrevention, []string{"prevent abuse", "stop abuse", "education", "training", "awareness"}},
}

var patterns = []struct {
	topic Topic
	re    *regexp.Regexp
}{
	{TopicAbuse, regexp.MustCompile(`\b(what|how|sign|signs|recognize|identify)\b.*abuse`)},
	{TopicReporting, regexp.MustCompile(`\b(report|tell|call|help|hotline)\b`)},
	{TopicBoundaries, regexp.MustCompile(`\b(boundary|boundaries|consent|say no|touch|space)\b`)},
	{TopicSupport, regexp.MustCompile(`\b(help|support|friend|victim|survivor)\b`)},
	{TopicPrevention, regexp.MustCompile(`\b(prevent|stop|education|teach|learn)\b`)},
}

// Classify maps a question to a topic. Exact phrases win over word patterns.
func Classify(question string) Topic {
	q := strings.ToLower(question)
	for _, p := range phrases {
		for _, k := range p.keys {
			if strings.Contains(q, k) {
				return p.topic
			}
		}
	}
	for _, p := range patterns {
		if p.re.MatchString(q) {
			return p.topic
		}
	}
	return TopicOther
}
