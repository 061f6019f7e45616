package compose

import (
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

// MinAnswerCJKShare is the minimum share of CJK characters in a non-empty
// answer.
const MinAnswerCJKShare = 0.3

// ValidateResponse checks a decoded JSON answer object: answer_zh and
// citations must be present, a non-empty answer must be mostly Chinese, and
// every citation must be an object carrying title and url.
func ValidateResponse(resp map[string]any) bool {
	rawAnswer, ok := resp["answer_zh"]
	if !ok {
		return false
	}
	rawCitations, ok := resp["citations"]
	if !ok {
		return false
	}

	answer, ok := rawAnswer.(string)
	if !ok {
		return false
	}
	if answer != "" && textproc.CJKShare(answer) < MinAnswerCJKShare {
		return false
	}

	citations, ok := rawCitations.([]any)
	if !ok {
		return false
	}
	for _, item := range citations {
		obj, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := obj["title"]; !ok {
			return false
		}
		if _, ok := obj["url"]; !ok {
			return false
		}
	}
	return true
}

// ValidateAnswer applies the ValidateResponse checks to a typed answer.
func ValidateAnswer(a model.ComposedAnswer) bool {
	if a.Citations == nil {
		return false
	}
	return a.AnswerZH == "" || textproc.CJKShare(a.AnswerZH) >= MinAnswerCJKShare
}
