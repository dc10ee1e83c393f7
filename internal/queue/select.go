package queue

import "time"

// Due returns the pending records whose schedule has arrived (scheduled <= now).
//
// Selection deliberately iterates the queue in stored (insertion) order, not
// sorted by schedule. When several records become due in the same cycle they
// are delivered in insertion order, so a later-inserted post with an earlier
// schedule goes out after an earlier-inserted one. Every due record is still
// processed in the cycle; only the within-cycle delivery order is affected.
func Due(q *Queue, now time.Time) []*Post {
	out := make([]*Post, 0, len(q.Posts))
	for i := range q.Posts {
		p := &q.Posts[i]
		if p.Status != StatusPending {
			continue
		}
		if p.Scheduled.IsZero() || p.Scheduled.After(now) {
			continue
		}
		out = append(out, p)
	}
	return out
}
