// internal/app/features/reports/expensescsv.go
package reports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/dalemusser/expensehub/internal/app/features/expenses"
	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/auth"
	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

var csvHeader = []string{
	"expense_date", "submitter", "department", "category", "description",
	"amount", "currency", "status", "reviewer", "review_comment", "submitted_at", "reviewed_at",
}

// ServeExpensesCSV handles GET /projects/{projectID}/reports/expenses.csv
// and streams the project's expenses matching the list filters (status,
// department, submitter, from, to). Reviewers only.
func (h *Handler) ServeExpensesCSV(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	projectID, err := respond.PathID(r, "projectID")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	f, err := expenses.ParseFilter(r, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "expense csv export")
	defer cancel()

	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	authority, err := h.Tracker.ReviewAuthority(ctx, u, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !authority.Allowed {
		respond.Error(w, r, h.Log, fmt.Errorf("only reviewers can export expenses: %w", apperr.ErrForbidden))
		return
	}

	filename := csvFilename(r, p.Name, time.Now().UTC())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM for Excel
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	_ = cw.Write(csvHeader)

	rowCount := 0
	err = h.Expenses.Each(ctx, f, func(e models.Expense) error {
		rowCount++
		return cw.Write(csvRow(e))
	})
	if err != nil {
		// Headers are already sent; all that is left is to stop and log.
		h.Log.Error("expense CSV export failed", zap.Error(err), zap.String("project_id", p.ID.Hex()), zap.Int("rows", rowCount))
		return
	}

	h.Log.Info("expense CSV exported",
		zap.String("user", u.FullName),
		zap.String("project_id", p.ID.Hex()),
		zap.Int("rows", rowCount))
}

func csvRow(e models.Expense) []string {
	return []string{
		e.ExpenseDate.UTC().Format("2006-01-02"),
		e.SubmitterName,
		e.Department,
		e.Category,
		e.Description,
		models.FormatAmount(e.Amount),
		e.Currency,
		string(e.Status),
		e.ReviewerName,
		e.ReviewComment,
		formatTime(e.SubmittedAt),
		formatTime(e.ReviewedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// csvFilename returns the "filename" query param, or one built from the
// project name and date, always ending in .csv.
func csvFilename(r *http.Request, projectName string, now time.Time) string {
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		filename = "expenses_" + slug(projectName) + "_" + now.Format("20060102_150405") + ".csv"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		filename += ".csv"
	}
	return filename
}

// slug folds s to lower-case ASCII and joins its words with underscores.
func slug(s string) string {
	words := strings.FieldsFunc(strings.ToLower(text.Fold(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "project"
	}
	return strings.Join(words, "_")
}
