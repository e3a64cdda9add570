package feedback

import (
	"time"

	"github.com/tshola/ngoma/core"
)

// Collection is the remote collection / cache entry name for feedback.
const Collection = "feedback"

type Feedback struct {
	Key       string    `json:"key"`
	MemberKey string    `json:"member_key"`
	Rating    int       `json:"rating"` // 1..5
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (f Feedback) RecordKey() string { return f.Key }

// NewFeedback contains information needed to submit app Feedback.
type NewFeedback struct {
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
	Body   string `json:"body" validate:"omitempty,max=4000"`
}

func (nf *NewFeedback) Validate() error {
	nf.Body = core.CleanString(nf.Body)
	return core.Validate.Struct(nf)
}
