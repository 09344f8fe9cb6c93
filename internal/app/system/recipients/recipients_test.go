package recipients_test

import (
	"testing"

	"github.com/dalemusser/expensehub/internal/app/system/events"
	"github.com/dalemusser/expensehub/internal/app/system/recipients"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ids(rs []recipients.Recipient) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(rs))
	for i, r := range rs {
		out[i] = r.UserID
	}
	return out
}

func TestResolve_ExpenseSubmitted(t *testing.T) {
	a, b, head, delegate := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	submitter := &models.User{ID: primitive.NewObjectID()}
	p := &models.Project{
		ID:                primitive.NewObjectID(),
		ApproverIDs:       []primitive.ObjectID{a, b},
		ProductionHeadIDs: []primitive.ObjectID{head, a}, // a is both; notify once
	}

	got := recipients.Resolve(events.Event{
		Kind:      models.NotifyExpenseSubmitted,
		Actor:     submitter,
		Project:   p,
		Delegates: []primitive.ObjectID{delegate},
	})

	want := []primitive.ObjectID{a, b, head, delegate}
	if len(got) != len(want) {
		t.Fatalf("got %d recipients, want %d", len(got), len(want))
	}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Errorf("recipient %d: got %s, want %s", i, id.Hex(), want[i].Hex())
		}
	}
	if got[2].Role != models.RoleProductionHead {
		t.Errorf("head role: got %q", got[2].Role)
	}
}

func TestResolve_ExcludesActor(t *testing.T) {
	approver := &models.User{ID: primitive.NewObjectID(), Role: models.RoleApprover}
	p := &models.Project{ApproverIDs: []primitive.ObjectID{approver.ID}}

	got := recipients.Resolve(events.Event{Kind: models.NotifyExpenseSubmitted, Actor: approver, Project: p})
	if len(got) != 0 {
		t.Errorf("expected actor excluded, got %d recipients", len(got))
	}
}

func TestResolve_DecisionNotifiesSubmitterOnly(t *testing.T) {
	submitter := primitive.NewObjectID()
	reviewer := &models.User{ID: primitive.NewObjectID()}
	e := &models.Expense{ID: primitive.NewObjectID(), SubmitterID: submitter}
	p := &models.Project{ApproverIDs: []primitive.ObjectID{primitive.NewObjectID()}}

	for _, kind := range []models.NotificationType{models.NotifyExpenseApproved, models.NotifyExpenseRejected} {
		got := recipients.Resolve(events.Event{Kind: kind, Actor: reviewer, Expense: e, Project: p})
		if len(got) != 1 || got[0].UserID != submitter {
			t.Errorf("%s: expected only submitter, got %v", kind, ids(got))
		}
	}
}

func TestResolve_CommentBySubmitterGoesToReviewer(t *testing.T) {
	submitter := &models.User{ID: primitive.NewObjectID()}
	reviewer := primitive.NewObjectID()
	e := &models.Expense{SubmitterID: submitter.ID, ReviewerID: &reviewer}

	got := recipients.Resolve(events.Event{Kind: models.NotifyExpenseComment, Actor: submitter, Expense: e})
	if len(got) != 1 || got[0].UserID != reviewer {
		t.Errorf("expected reviewer, got %v", ids(got))
	}
}

func TestResolve_Delegation(t *testing.T) {
	head := primitive.NewObjectID()
	delegate := primitive.NewObjectID()
	d := &models.TemporaryApprover{ApproverID: delegate, AssignedBy: head}

	tests := []struct {
		kind models.NotificationType
		want []primitive.ObjectID
	}{
		{models.NotifyDelegationAssigned, []primitive.ObjectID{delegate}},
		{models.NotifyDelegationRemoved, []primitive.ObjectID{delegate}},
		{models.NotifyDelegationAccepted, []primitive.ObjectID{head}},
		{models.NotifyDelegationRejected, []primitive.ObjectID{head}},
		{models.NotifyDelegationExpired, []primitive.ObjectID{delegate, head}},
	}
	for _, tt := range tests {
		got := ids(recipients.Resolve(events.Event{Kind: tt.kind, Delegation: d}))
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d recipients, want %d", tt.kind, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: recipient %d mismatch", tt.kind, i)
			}
		}
	}
}

func TestResolve_ChatMessage(t *testing.T) {
	sender := &models.User{ID: primitive.NewObjectID()}
	other := primitive.NewObjectID()
	c := &models.Chat{Participants: []primitive.ObjectID{sender.ID, other}}

	got := recipients.Resolve(events.Event{Kind: models.NotifyChatMessage, Actor: sender, Chat: c})
	if len(got) != 1 || got[0].UserID != other {
		t.Errorf("expected other participant, got %v", ids(got))
	}
}

func TestResolve_ArchivedNotifiesWholeTeam(t *testing.T) {
	admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	p := &models.Project{
		TeamMembers:       []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()},
		ApproverIDs:       []primitive.ObjectID{primitive.NewObjectID()},
		ProductionHeadIDs: []primitive.ObjectID{primitive.NewObjectID()},
	}
	got := recipients.Resolve(events.Event{Kind: models.NotifyProjectArchived, Actor: admin, Project: p})
	if len(got) != 4 {
		t.Errorf("expected 4 recipients, got %d", len(got))
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	got := recipients.Resolve(events.Event{Kind: "SOMETHING_ELSE"})
	if len(got) != 0 {
		t.Errorf("expected no recipients, got %d", len(got))
	}
}
