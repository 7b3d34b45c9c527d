package entitlement_test

import (
	"testing"
	"time"

	"kaziflow/internal/domain"
	"kaziflow/internal/engine/entitlement"
)

func TestFreeTierLimits(t *testing.T) {
	g := entitlement.Gate{Tier: domain.TierFree}

	if g.IsPaid() {
		t.Fatalf("FREE is not paid")
	}
	if g.CanUsePrivateNotes() {
		t.Fatalf("FREE should not unlock private notes")
	}
	if !g.CanArchiveAnother(0) {
		t.Fatalf("FREE should allow the first archive")
	}
	if g.CanArchiveAnother(1) {
		t.Fatalf("FREE should block the second archive")
	}
	if !g.CanGenerateProposal(5) {
		t.Fatalf("FREE should allow proposals at 5 completed stages")
	}
	if g.CanGenerateProposal(6) {
		t.Fatalf("FREE should block proposals past 5 completed stages")
	}
}

func TestPaidTiersUnrestricted(t *testing.T) {
	for _, tier := range []domain.SubscriptionTier{domain.TierPro, domain.TierStudio} {
		g := entitlement.Gate{Tier: tier}
		if !g.IsPaid() || !g.CanUsePrivateNotes() {
			t.Fatalf("%s should be paid with notes", tier)
		}
		if !g.CanArchiveAnother(100) {
			t.Fatalf("%s archives should be unlimited", tier)
		}
		if !g.CanGenerateProposal(9) {
			t.Fatalf("%s proposals should be unrestricted", tier)
		}
	}
}

func TestCheckErrors(t *testing.T) {
	g := entitlement.Gate{Tier: domain.TierFree}

	err := g.CheckArchive(1)
	de, ok := err.(entitlement.DeniedError)
	if !ok || de.Feature != "portfolio_archive" || de.Tier != domain.TierFree {
		t.Fatalf("check archive: %v", err)
	}
	err = g.CheckProposal(7)
	de, ok = err.(entitlement.DeniedError)
	if !ok || de.Feature != "ai_proposal" {
		t.Fatalf("check proposal: %v", err)
	}
	if err := g.CheckArchive(0); err != nil {
		t.Fatalf("first archive should pass: %v", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if entitlement.Expired(domain.CompanySubscription{Tier: domain.TierFree}, now) {
		t.Fatalf("FREE never expires")
	}
	active := domain.CompanySubscription{Tier: domain.TierPro, ExpiresAt: "2024-07-01T00:00:00Z"}
	if entitlement.Expired(active, now) {
		t.Fatalf("future expiry should not be expired")
	}
	past := domain.CompanySubscription{Tier: domain.TierPro, ExpiresAt: "2024-05-01T00:00:00Z"}
	if !entitlement.Expired(past, now) {
		t.Fatalf("past expiry should be expired")
	}
	garbled := domain.CompanySubscription{Tier: domain.TierPro, ExpiresAt: "not-a-date"}
	if entitlement.Expired(garbled, now) {
		t.Fatalf("unparseable dates count as not expired")
	}
}
