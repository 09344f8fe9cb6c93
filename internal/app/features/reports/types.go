package reports

import "go.mongodb.org/mongo-driver/bson/primitive"

// departmentRow is one department in the budget report. Budget is zero for
// departments that have spend but no allocation.
type departmentRow struct {
	Department string `json:"department"`
	Budget     int64  `json:"budget"`
	Approved   int64  `json:"approved"`
	Remaining  int64  `json:"remaining"`
	Percent    int    `json:"percent"` // approved as a share of budget, 0 when unbudgeted
	Color      string `json:"color"`
}

// budgetReport is the JSON body of GET /projects/{projectID}/reports/budget.
type budgetReport struct {
	ProjectID   primitive.ObjectID `json:"project_id"`
	ProjectName string             `json:"project_name"`
	Currency    string             `json:"currency"`
	Budget      int64              `json:"budget"`
	Approved    int64              `json:"approved"`
	Pending     int64              `json:"pending"`
	Remaining   int64              `json:"remaining"`
	Departments []departmentRow    `json:"departments"`
}
