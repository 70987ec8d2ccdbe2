package rope

// Rebalancing is lazy: no subtree is rebuilt until its depth exceeds the
// threshold, and the edit that pushes it over pays to flatten it at once,
// since every internal node an edit rebuilds passes through maybeRebalance.
// This amortizes the rebuild cost to O(n) over the Ω(n)
// edits that created the imbalance, rather than re-balancing on every
// mutation.

// maxDepthFor returns the maximum depth a subtree of the given leaf count
// is allowed to reach before maybeRebalance flattens it:
// 2*ceil(log2(leafCount)), per the rebalancing policy.
func maxDepthFor(leafCount int) int {
	if leafCount <= 1 {
		return 1
	}
	bits := 0
	for v := leafCount - 1; v > 0; v >>= 1 {
		bits++
	}
	return 2 * bits
}

// maybeRebalance flattens n into a balanced tree if its depth exceeds the
// policy threshold for its leaf count; otherwise it returns n unchanged.
func maybeRebalance(n node) node {
	in, ok := n.(*internalNode)
	if !ok {
		return n
	}
	leaves := countLeaves(n)
	if in.depth <= maxDepthFor(leaves) {
		return n
	}
	return rebalance(n)
}

// countLeaves counts leaf and gap nodes (both are tree leaves) in a
// subtree. O(leaf count). maybeRebalance calls it for every internal node
// that an insert, delete or concat rebuilds, the root included, so every
// such edit walks all the leaves of the tree.
func countLeaves(n node) int {
	switch v := n.(type) {
	case *internalNode:
		return countLeaves(v.left) + countLeaves(v.right)
	default:
		return 1
	}
}

// rebalance flattens a subtree into a list of leaves/gaps and rebuilds a
// perfectly balanced binary tree over them.
func rebalance(n node) node {
	var leaves []node
	collectLeaves(n, &leaves)
	return buildBalanced(leaves)
}

func collectLeaves(n node, out *[]node) {
	switch v := n.(type) {
	case *internalNode:
		collectLeaves(v.left, out)
		collectLeaves(v.right, out)
	default:
		*out = append(*out, n)
	}
}

func buildBalanced(leaves []node) node {
	if len(leaves) == 0 {
		return &leafNode{text: ""}
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	mid := len(leaves) / 2
	left := buildBalanced(leaves[:mid])
	right := buildBalanced(leaves[mid:])
	return &internalNode{
		left:     left,
		right:    right,
		leftSize: left.size(),
		depth:    maxInt(depthOf(left), depthOf(right)) + 1,
	}
}
