package tree

import "github.com/ac7x/lin-llc-sub001/internal/model"

// SmartExpand opens collapsed nodes until at least threshold rows would be
// visible, or nothing is left to open.
//
// Nodes are considered level by level starting next to the root, and in
// pre-order within a level, so a deeper node is never opened while a
// shallower candidate is still collapsed. The visible count is re-checked
// after every single expansion.
func SmartExpand(p *model.Project, exp Expansion, filter string, threshold int) Expansion {
	if p == nil {
		return exp
	}
	count := len(Flatten(p, exp, filter))
	if count >= threshold {
		return exp
	}
	for level := 1; level < model.KindTask.Level(); level++ {
		// Candidates come from the rows walked at this point, so they are
		// exactly the nodes whose ancestors are already open.
		for _, it := range Walk(p, exp, filter) {
			if it.Level != level || it.Expanded || !it.HasChildren {
				continue
			}
			exp = exp.Expand(it.ID)
			count = len(Flatten(p, exp, filter))
			if count >= threshold {
				return exp
			}
		}
	}
	return exp
}
