package quiz

import (
	"math/rand/v2"

	"github.com/coursiva/enroll-gateway/internal/model"
)

// Sample draws a uniformly random subset of size min(count, len(pool))
// from the question pool, without replacement. The input pool is never
// mutated; a request for more questions than the pool holds is clamped to
// the pool size rather than rejected. Output order carries no guarantee
// beyond "shuffled", and repeated calls yield independent samples.
func Sample(pool []model.Question, count int) []model.Question {
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return []model.Question{}
	}

	shuffled := make([]model.Question, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count:count]
}
