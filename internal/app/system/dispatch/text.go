package dispatch

import (
	"fmt"
	"strings"

	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/domain/models"
)

const previewLen = 80

// Describe returns the title and message shown for ev.
func Describe(ev events.Event) (title, message string) {
	actor := ev.ActorName()
	project := "a project"
	if ev.Project != nil && ev.Project.Name != "" {
		project = ev.Project.Name
	}
	expense := "an expense"
	if e := ev.Expense; e != nil {
		expense = fmt.Sprintf("%s %s", models.FormatAmount(e.Amount), e.Currency)
		if e.Category != "" {
			expense += " (" + e.Category + ")"
		}
	}

	switch ev.Kind {
	case models.NotifyExpenseSubmitted:
		return "New expense to review", fmt.Sprintf("%s submitted %s on %s.", actor, expense, project)
	case models.NotifyExpenseApproved:
		return "Expense approved", fmt.Sprintf("%s approved your expense of %s.", actor, expense)
	case models.NotifyExpenseRejected:
		msg := fmt.Sprintf("%s rejected your expense of %s.", actor, expense)
		if ev.Expense != nil && ev.Expense.ReviewComment != "" {
			msg += " Reason: " + preview(ev.Expense.ReviewComment)
		}
		return "Expense rejected", msg
	case models.NotifyExpenseComment:
		return "New comment", fmt.Sprintf("%s commented on %s: %s", actor, expense, preview(ev.Text))
	case models.NotifyProjectAssigned:
		return "Added to project", fmt.Sprintf("You were added to %s.", project)
	case models.NotifyProjectRemoved:
		return "Removed from project", fmt.Sprintf("You were removed from %s.", project)
	case models.NotifyProjectArchived:
		return "Project archived", fmt.Sprintf("%s was archived by %s.", project, actor)
	case models.NotifyRoleChanged:
		return "Role changed", fmt.Sprintf("Your role is now %s.", roleLabel(ev.Text))
	case models.NotifyDelegationAssigned:
		return "Approval delegated to you", fmt.Sprintf("%s asked you to approve expenses on %s%s.", actor, project, window(ev))
	case models.NotifyDelegationAccepted:
		return "Delegation accepted", fmt.Sprintf("%s accepted temporary approval on %s.", actor, project)
	case models.NotifyDelegationRejected:
		return "Delegation declined", fmt.Sprintf("%s declined temporary approval on %s.", actor, project)
	case models.NotifyDelegationExpired:
		return "Delegation expired", fmt.Sprintf("Temporary approval on %s has expired.", project)
	case models.NotifyDelegationRemoved:
		return "Delegation removed", fmt.Sprintf("Your temporary approval on %s was removed.", project)
	case models.NotifyChatMessage:
		return actor, preview(ev.Text)
	case models.NotifyBudgetThreshold:
		scope := project
		if ev.Department != "" {
			scope = fmt.Sprintf("%s (%s)", project, ev.Department)
		}
		if ev.Percent >= 100 {
			return "Budget exceeded", fmt.Sprintf("Approved spend on %s has reached %d%% of budget.", scope, ev.Percent)
		}
		return "Budget warning", fmt.Sprintf("Approved spend on %s has passed %d%% of budget.", scope, ev.Percent)
	}
	return "Notification", ""
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen-1]) + "…"
}

func roleLabel(s string) string {
	if r, ok := models.ParseRole(s); ok {
		return strings.ToLower(strings.ReplaceAll(string(r), "_", " "))
	}
	return s
}

func window(ev events.Event) string {
	if ev.Delegation == nil || ev.Delegation.ExpiringDate.IsZero() {
		return ""
	}
	return " until " + ev.Delegation.ExpiringDate.UTC().Format("Jan 2, 2006 15:04 MST")
}
