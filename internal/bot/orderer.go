package bot

// SelectCandidateOrder applies skill-driven randomization to the scored
// list to simulate imperfect play. It decides only which candidate is
// attempted first and in what order the rest are tried; scores are left
// untouched.
//
// One roll in [0,100) picks the behavior: below randomChoicePercent the
// bot promotes a uniformly random option to the front (a "distracted"
// pick); inside the next suboptimalityPercent band it swaps its best
// two ideas; otherwise it plays the ranking as scored.
func SelectCandidateOrder(scored []ScoredOption, randomChoicePercent, suboptimalityPercent float64, rng Rng) []ScoredOption {
	if len(scored) <= 1 {
		return scored
	}

	roll := rng.Float64() * 100
	switch {
	case roll < randomChoicePercent:
		idx := rng.Intn(len(scored))
		reordered := make([]ScoredOption, 0, len(scored))
		reordered = append(reordered, scored[idx])
		reordered = append(reordered, scored[:idx]...)
		reordered = append(reordered, scored[idx+1:]...)
		return reordered

	case roll < randomChoicePercent+suboptimalityPercent:
		// Near-miss: the bot tries its second-best idea first. Only the
		// top two ever swap; deeper shuffles are a different personality.
		reordered := make([]ScoredOption, len(scored))
		copy(reordered, scored)
		reordered[0], reordered[1] = reordered[1], reordered[0]
		return reordered

	default:
		return scored
	}
}
