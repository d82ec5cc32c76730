package generator

// Relationships records which child entities hang off each parent while
// generation runs, so referential integrity can be checked afterwards
// without rescanning the dataset.
type Relationships struct {
	queriesByText   map[int][]int
	plansByQuery    map[int][]int
	intervalsByPlan map[int][]int
}

// NewRelationships returns an empty relationship index.
func NewRelationships() *Relationships {
	return &Relationships{
		queriesByText:   make(map[int][]int),
		plansByQuery:    make(map[int][]int),
		intervalsByPlan: make(map[int][]int),
	}
}

// AddQueryText registers a query text with no queries yet.
func (r *Relationships) AddQueryText(queryTextID int) {
	if _, ok := r.queriesByText[queryTextID]; !ok {
		r.queriesByText[queryTextID] = nil
	}
}

// AddQuery links a query to its text.
func (r *Relationships) AddQuery(queryID, queryTextID int) {
	r.queriesByText[queryTextID] = append(r.queriesByText[queryTextID], queryID)

	if _, ok := r.plansByQuery[queryID]; !ok {
		r.plansByQuery[queryID] = nil
	}
}

// AddPlan links a plan to its query.
func (r *Relationships) AddPlan(planID, queryID int) {
	r.plansByQuery[queryID] = append(r.plansByQuery[queryID], planID)

	if _, ok := r.intervalsByPlan[planID]; !ok {
		r.intervalsByPlan[planID] = nil
	}
}

// AddPlanInterval records that a plan executed in an interval. Repeated
// registrations of the same pair are collapsed.
func (r *Relationships) AddPlanInterval(planID, intervalID int) {
	for _, existing := range r.intervalsByPlan[planID] {
		if existing == intervalID {
			return
		}
	}

	r.intervalsByPlan[planID] = append(r.intervalsByPlan[planID], intervalID)
}

// QueriesForText returns the query IDs compiled from a text.
func (r *Relationships) QueriesForText(queryTextID int) []int {
	return r.queriesByText[queryTextID]
}

// PlansForQuery returns the plan IDs compiled for a query.
func (r *Relationships) PlansForQuery(queryID int) []int {
	return r.plansByQuery[queryID]
}

// IntervalsForPlan returns the intervals a plan executed in.
func (r *Relationships) IntervalsForPlan(planID int) []int {
	return r.intervalsByPlan[planID]
}
