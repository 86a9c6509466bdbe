package model

import "fmt"

// Validate checks the structural invariants of the hierarchy: unique ids
// among siblings and subworkpackage back-references that match their parent.
func (p *Project) Validate() error {
	if p == nil {
		return fmt.Errorf("nil project")
	}
	seen := map[string]bool{}
	for _, wp := range p.Workpackages {
		if wp.ID == "" {
			return fmt.Errorf("workpackage without id in project %s", p.ID)
		}
		if seen[wp.ID] {
			return fmt.Errorf("duplicate workpackage id %s", wp.ID)
		}
		seen[wp.ID] = true

		subs := map[string]bool{}
		for _, sp := range wp.Subpackages {
			if subs[sp.ID] {
				return fmt.Errorf("duplicate subworkpackage id %s in %s", sp.ID, wp.ID)
			}
			subs[sp.ID] = true
			if sp.WorkpackageID != "" && sp.WorkpackageID != wp.ID {
				return fmt.Errorf("subworkpackage %s points at %s but lives in %s", sp.ID, sp.WorkpackageID, wp.ID)
			}
			tasks := map[string]bool{}
			for _, t := range sp.Tasks {
				if tasks[t.ID] {
					return fmt.Errorf("duplicate task id %s in %s", t.ID, sp.ID)
				}
				tasks[t.ID] = true
			}
		}
	}
	return nil
}
