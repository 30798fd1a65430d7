package approvals

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
	"github.com/nextlevelbuilder/crewd/internal/store/mem"
)

func TestRequiresApproval(t *testing.T) {
	cases := []struct {
		risk string
		want bool
	}{
		{store.RiskLow, false},
		{store.RiskMedium, false},
		{store.RiskHigh, true},
		{store.RiskCritical, true},
		{"unknown", false},
	}
	for _, tc := range cases {
		if got := RequiresApproval(tc.risk); got != tc.want {
			t.Errorf("RequiresApproval(%q) = %t, want %t", tc.risk, got, tc.want)
		}
	}
}

func TestCreateIsAlwaysPending(t *testing.T) {
	g := NewGate(mem.New().Approvals)
	a, err := g.Create(context.Background(), store.GenNewID(), store.GenNewID(),
		"delete_data", "drop the staging table", store.RiskHigh)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Status != store.ApprovalPending {
		t.Errorf("Status = %q, want %q", a.Status, store.ApprovalPending)
	}
	if a.ResolvedAt != nil {
		t.Error("ResolvedAt set on a fresh approval")
	}
}

func TestResolveUnknownID(t *testing.T) {
	g := NewGate(mem.New().Approvals)
	_, err := g.Resolve(context.Background(), store.GenNewID(), true)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestResolveTwiceKeepsFirstResolution(t *testing.T) {
	ctx := context.Background()
	g := NewGate(mem.New().Approvals)

	a, err := g.Create(ctx, store.GenNewID(), store.GenNewID(), "send_email", "", store.RiskHigh)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := g.Resolve(ctx, a.ID, true)
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if first.Status != store.ApprovalApproved {
		t.Errorf("Status = %q, want approved", first.Status)
	}
	if first.ResolvedAt == nil {
		t.Fatal("ResolvedAt not set after resolution")
	}

	second, err := g.Resolve(ctx, a.ID, false)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Resolve() error = %v, want ErrAlreadyResolved", err)
	}
	if second.Status != store.ApprovalApproved {
		t.Errorf("second Resolve() status = %q, first resolution overwritten", second.Status)
	}
	if !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Errorf("ResolvedAt diverged: %v vs %v", second.ResolvedAt, first.ResolvedAt)
	}
}

func TestListAndCountPendingFilters(t *testing.T) {
	ctx := context.Background()
	st := mem.New()
	g := NewGate(st.Approvals)

	teamA, teamB := store.GenNewID(), store.GenNewID()
	agent1, agent2 := store.GenNewID(), store.GenNewID()

	mustCreate := func(team, agent uuid.UUID) *store.ApprovalData {
		a, err := g.Create(ctx, team, agent, "action", "", store.RiskHigh)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return a
	}
	first := mustCreate(teamA, agent1)
	mustCreate(teamA, agent2)
	mustCreate(teamB, agent1)

	pending, err := g.ListPending(ctx, teamA, uuid.Nil)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending for teamA = %d, want 2", len(pending))
	}

	if _, err := g.Resolve(ctx, first.ID, false); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	n, err := g.CountPending(ctx, teamA)
	if err != nil {
		t.Fatalf("CountPending() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountPending(teamA) = %d, want 1", n)
	}
	n, err = g.CountPending(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("CountPending(all) error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountPending(all) = %d, want 2", n)
	}
}
