package rates

import "slices"

// Group is a unit of removal: one record, or a pay record followed by its
// bill record.
type Group struct {
	Records []*Record
}

// Paired reports whether the group is a pay+bill pair.
func (g Group) Paired() bool {
	return len(g.Records) == 2
}

// First returns the first record of the group in document order.
func (g Group) First() *Record {
	return g.Records[0]
}

// Last returns the last record of the group in document order.
func (g Group) Last() *Record {
	return g.Records[len(g.Records)-1]
}

// Plan is the ordered set of groups to remove. It is computed once from the
// discovered records and applied as a whole.
type Plan struct {
	Groups []Group
	// Total is the number of records that were considered.
	Total int
	// Nested is the number of unselected records that disappear because an
	// enclosing record is removed.
	Nested int
	Paired bool
}

// Empty reports whether nothing will be removed.
func (p *Plan) Empty() bool {
	return len(p.Groups) == 0
}

// Removed returns the number of records that will disappear from the
// document. Pairs count twice.
func (p *Plan) Removed() int {
	n := p.Nested
	for _, g := range p.Groups {
		n += len(g.Records)
	}

	return n
}

// Remaining returns the number of records left after removal.
func (p *Plan) Remaining() int {
	return p.Total - p.Removed()
}

// Records returns the records of all groups in document order.
func (p *Plan) Records() []*Record {
	out := make([]*Record, 0, p.Removed()-p.Nested)
	for _, g := range p.Groups {
		out = append(out, g.Records...)
	}

	slices.SortFunc(out, func(a, b *Record) int { return a.Index - b.Index })

	return out
}

// Select evaluates pred over records (in discovery order) and builds a
// [Plan].
//
// In paired mode only pay+bill siblings that both match are selected. A pay
// and a bill are partners when only whitespace and other selected pairs lie
// between them, so the plan is a fixed point: a second pass over the output
// selects nothing. A matching record without a matching partner is left in
// place.
//
// A record nested inside another selected record is dropped from the plan,
// since removing the outer element already removes it.
func Select(records []*Record, pred Predicate, paired bool) *Plan {
	plan := &Plan{Total: len(records), Paired: paired}

	selected := make([]bool, len(records))
	matched := make([]bool, len(records))
	for i, r := range records {
		matched[i] = pred.Match(r)
	}

	if !paired {
		for i, r := range records {
			if !matched[i] || enclosedBySelected(records, selected, r) {
				continue
			}

			selected[i] = true
			plan.Groups = append(plan.Groups, Group{Records: []*Record{r}})
		}

		plan.Nested = countNested(records, selected)

		return plan
	}

	var groups []Group

	// Each run of adjacent siblings keeps a stack of the records still in
	// place. A bill pairs with the top of its run's stack.
	run := make([]int, len(records))
	stacks := map[int][]int{}
	for i, r := range records {
		head := i
		if r.Prev >= 0 {
			head = run[r.Prev]
		}

		run[i] = head

		stack := stacks[head]
		if n := len(stack); n > 0 {
			pay := stack[n-1]
			if matched[pay] && matched[i] && records[pay].IsType(TypePay) && r.IsType(TypeBill) {
				selected[pay] = true
				selected[i] = true
				groups = append(groups, Group{Records: []*Record{records[pay], r}})
				stacks[head] = stack[:n-1]

				continue
			}
		}

		stacks[head] = append(stack, i)
	}

	slices.SortFunc(groups, func(a, b Group) int {
		return a.First().Index - b.First().Index
	})

	for _, g := range groups {
		if enclosedBySelected(records, selected, g.First()) {
			continue
		}

		plan.Groups = append(plan.Groups, g)
	}

	plan.Nested = countNested(records, selected)

	return plan
}

// countNested counts the records that disappear with a selected ancestor.
func countNested(records []*Record, selected []bool) int {
	n := 0
	for _, r := range records {
		if enclosedBySelected(records, selected, r) {
			n++
		}
	}

	return n
}

func enclosedBySelected(records []*Record, selected []bool, r *Record) bool {
	for idx := r.Enclosing; idx >= 0; idx = records[idx].Enclosing {
		if selected[idx] {
			return true
		}
	}

	return false
}
