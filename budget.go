package codescope

// Degradation ladder values, applied in fixed order when a summary exceeds
// its token budget. Each slice is walked left to right; a value applies
// only when it is strictly below the current effective setting, so the
// ladder is idempotent and never raises a caller's parameter.
var (
	ladderRadius       = []int{1}
	ladderTopK         = []int{300, 200, 150}
	ladderCommunities  = []int{10, 5}
	ladderPathSamples  = []int{3, 1}
	ladderPathMaxHops  = []int{3, 2}
	ladderSeedsPreview = []int{5}
)

// buildState carries the effective parameters of one summarization request
// as the ladder degrades them.
type buildState struct {
	radius         int
	topK           int
	maxCommunities int // 0 means unlimited
	pathSamples    int
	pathMaxHops    int
	seedsPreview   int
}

// charsPerToken is the fixed character-to-token ratio the budget math
// assumes.
const charsPerToken = 4

// estimateTokens approximates the token cost of rendered output as
// character count divided by charsPerToken. Crude, but stable and cheap,
// which is what the ladder needs; callers wanting exact budgets should
// post-check.
func estimateTokens(rendered string) int {
	return len(rendered) / charsPerToken
}

// degrade walks the ladder until the rendered summary fits budgetTokens or
// every floor value is reached. rebuild recomputes the summary for the
// given state; rebuildPaths and render re-derive only their stage. It
// returns the final summary and whether any step fired.
func degrade(state *buildState, budgetTokens int,
	rebuild func(*buildState) *GraphSummary,
	rebuildPaths func(*buildState, *GraphSummary),
	render func(*GraphSummary) string) (*GraphSummary, bool) {

	sum := rebuild(state)
	truncated := false
	// Measure the bytes a caller would actually receive, so the
	// truncation flag is rendered into the candidate before estimating.
	fits := func() bool {
		sum.Truncated = truncated
		return estimateTokens(render(sum)) <= budgetTokens
	}
	if fits() {
		return sum, false
	}

	// 1. Shrink the radius; the candidate set changes, so rebuild fully.
	for _, r := range ladderRadius {
		if r < state.radius {
			state.radius = r
			sum = rebuild(state)
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}

	// 2. Tighten Top-K; everything downstream of selection changes.
	for _, k := range ladderTopK {
		if k < state.topK {
			state.topK = k
			sum = rebuild(state)
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}

	// 3. Truncate the community list; no graph recompute.
	for _, c := range ladderCommunities {
		if len(sum.Communities) > c {
			state.maxCommunities = c
			truncateCommunities(sum, c)
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}

	// 4. Fewer path samples first, then shorter paths.
	for _, n := range ladderPathSamples {
		if n < state.pathSamples {
			state.pathSamples = n
			rebuildPaths(state, sum)
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}
	for _, h := range ladderPathMaxHops {
		if h < state.pathMaxHops {
			state.pathMaxHops = h
			rebuildPaths(state, sum)
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}

	// 5. Shorter seed preview; display only.
	for _, n := range ladderSeedsPreview {
		if len(sum.SeedsPreview) > n {
			state.seedsPreview = n
			sum.SeedsPreview = sum.SeedsPreview[:n]
			truncated = true
			if fits() {
				return sum, true
			}
		}
	}

	// Floor reached and still over budget: return the floor summary
	// anyway rather than failing.
	sum.Truncated = truncated
	return sum, truncated
}

// truncateCommunities keeps the top max communities (they are already
// sorted by size) and drops aggregate edges touching removed communities.
func truncateCommunities(sum *GraphSummary, max int) {
	if len(sum.Communities) <= max {
		return
	}
	sum.Communities = sum.Communities[:max]
	surviving := make(map[string]bool, max)
	for _, c := range sum.Communities {
		surviving[c.ID] = true
	}
	kept := sum.CommunityEdges[:0]
	for _, e := range sum.CommunityEdges {
		if surviving[e.Src] && surviving[e.Dst] {
			kept = append(kept, e)
		}
	}
	sum.CommunityEdges = kept
}
