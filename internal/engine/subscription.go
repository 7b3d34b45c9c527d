package engine

import (
	"context"
	"time"

	"kaziflow/internal/domain"
	"kaziflow/internal/events"
)

const subscriptionTerm = 30 * 24 * time.Hour

// UpgradeSubscription switches the company to a new tier after payment has
// settled. The expiry moves one term out from now; auto-renew is left as the
// customer last set it.
func (e *Engine) UpgradeSubscription(ctx context.Context, actor domain.User, tier domain.SubscriptionTier) (domain.CompanySubscription, error) {
	if actor.Role != domain.RoleDesigner {
		return domain.CompanySubscription{}, RoleError{Role: actor.Role, Action: "change the subscription"}
	}
	switch tier {
	case domain.TierFree, domain.TierPro, domain.TierStudio:
	default:
		return domain.CompanySubscription{}, ValidationError{Field: "tier", Reason: "unknown tier"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := domain.CompanySubscription{
		Tier:        tier,
		ExpiresAt:   e.now().UTC().Add(subscriptionTerm).Format(time.RFC3339),
		IsAutoRenew: e.subscription.IsAutoRenew,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CompanySubscription{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSubscription(ctx, tx, sub); err != nil {
		return domain.CompanySubscription{}, err
	}
	if err := e.Events.Append(ctx, tx, "subscription.upgraded", "subscription", string(tier), actor.ID, events.EventPayload{"expires_at": sub.ExpiresAt}); err != nil {
		return domain.CompanySubscription{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CompanySubscription{}, err
	}
	e.subscription = sub
	return sub, nil
}

// SetAutoRenew flips the auto-renew flag without touching tier or expiry.
func (e *Engine) SetAutoRenew(ctx context.Context, actor domain.User, on bool) (domain.CompanySubscription, error) {
	if actor.Role != domain.RoleDesigner {
		return domain.CompanySubscription{}, RoleError{Role: actor.Role, Action: "change the subscription"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := e.subscription
	sub.IsAutoRenew = on
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CompanySubscription{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSubscription(ctx, tx, sub); err != nil {
		return domain.CompanySubscription{}, err
	}
	if err := e.Events.Append(ctx, tx, "subscription.autorenew", "subscription", string(sub.Tier), actor.ID, events.EventPayload{"on": on}); err != nil {
		return domain.CompanySubscription{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CompanySubscription{}, err
	}
	e.subscription = sub
	return sub, nil
}
