// Package entitlement decides which features the company's subscription tier
// unlocks. Checks are pure; the engine supplies current state.
package entitlement

import (
	"fmt"
	"time"

	"kaziflow/internal/domain"
)

// Free-tier ceilings.
const (
	FreeArchiveLimit       = 1
	FreeProposalStageLimit = 5
)

// DeniedError indicates the current tier does not unlock a feature.
type DeniedError struct {
	Feature string
	Tier    domain.SubscriptionTier
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("feature %s requires an upgrade from tier %s", e.Feature, e.Tier)
}

// Gate answers feature questions for one subscription.
type Gate struct {
	Tier domain.SubscriptionTier
}

// IsPaid reports whether the tier is PRO or STUDIO. Expiry is advisory and
// never downgrades automatically.
func (g Gate) IsPaid() bool {
	return g.Tier == domain.TierPro || g.Tier == domain.TierStudio
}

// CanUsePrivateNotes gates rendering of saved designer notes.
func (g Gate) CanUsePrivateNotes() bool {
	return g.IsPaid()
}

// CanGenerateProposal gates AI proposal generation by project maturity.
func (g Gate) CanGenerateProposal(completedStages int) bool {
	return g.IsPaid() || completedStages <= FreeProposalStageLimit
}

// CanArchiveAnother gates creating one more portfolio snapshot.
func (g Gate) CanArchiveAnother(existingArchives int) bool {
	return g.IsPaid() || existingArchives < FreeArchiveLimit
}

// CheckArchive returns a DeniedError when archiving is not allowed.
func (g Gate) CheckArchive(existingArchives int) error {
	if !g.CanArchiveAnother(existingArchives) {
		return DeniedError{Feature: "portfolio_archive", Tier: g.Tier}
	}
	return nil
}

// CheckProposal returns a DeniedError when proposal generation is not allowed.
func (g Gate) CheckProposal(completedStages int) error {
	if !g.CanGenerateProposal(completedStages) {
		return DeniedError{Feature: "ai_proposal", Tier: g.Tier}
	}
	return nil
}

// Expired reports whether a paid subscription is past its expiry date.
// Unparseable dates count as not expired.
func Expired(sub domain.CompanySubscription, now time.Time) bool {
	if sub.Tier == domain.TierFree || sub.ExpiresAt == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, sub.ExpiresAt)
	if err != nil {
		return false
	}
	return now.After(t)
}
