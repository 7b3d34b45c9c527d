package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kaziflow/internal/billing"
	"kaziflow/internal/domain"
)

func TestInitiateValidation(t *testing.T) {
	p := billing.NewSimulated(time.Millisecond, zerolog.Nop())
	ctx := context.Background()

	var pe billing.InvalidPaymentError
	_, err := p.Initiate(ctx, billing.Request{Tier: domain.TierPro, Method: billing.MethodMpesa})
	if !errors.As(err, &pe) || pe.Field != "phone" {
		t.Fatalf("mpesa without phone: %v", err)
	}
	_, err = p.Initiate(ctx, billing.Request{Tier: domain.TierPro, Method: "cheque"})
	if !errors.As(err, &pe) || pe.Field != "method" {
		t.Fatalf("unknown method: %v", err)
	}
	if _, err := p.Initiate(ctx, billing.Request{Tier: domain.TierPro, Method: billing.MethodCard}); err != nil {
		t.Fatalf("card needs no phone: %v", err)
	}
}

func TestAwaitSettles(t *testing.T) {
	p := billing.NewSimulated(time.Millisecond, zerolog.Nop())
	p.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ref, err := p.Initiate(ctx, billing.Request{
		Tier:   domain.TierStudio,
		Method: billing.MethodMpesa,
		Phone:  "0722 000 000",
		Amount: "12,000",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	r, err := p.Await(ctx, ref)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if r.ID != ref || r.Tier != "STUDIO" || r.Amount != "12,000" {
		t.Fatalf("receipt: %+v", r)
	}
	if r.SettledAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("settled at: %s", r.SettledAt)
	}

	// a reference settles once
	if _, err := p.Await(ctx, ref); err == nil {
		t.Fatalf("second await on the same ref should fail")
	}
}

func TestConcurrentCheckouts(t *testing.T) {
	p := billing.NewSimulated(time.Millisecond, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := p.Initiate(ctx, billing.Request{Tier: domain.TierPro, Method: billing.MethodCard, Amount: "4,500"})
			if err != nil {
				t.Errorf("initiate: %v", err)
				return
			}
			r, err := p.Await(ctx, ref)
			if err != nil {
				t.Errorf("await %s: %v", ref, err)
				return
			}
			if r.ID != ref {
				t.Errorf("receipt %s for ref %s", r.ID, ref)
			}
		}()
	}
	wg.Wait()
}

func TestAwaitUnknownRef(t *testing.T) {
	p := billing.NewSimulated(time.Millisecond, zerolog.Nop())
	if _, err := p.Await(context.Background(), "nope"); err == nil {
		t.Fatalf("unknown ref should fail")
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	p := billing.NewSimulated(time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ref, err := p.Initiate(ctx, billing.Request{Tier: domain.TierPro, Method: billing.MethodCard})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Await(ctx, ref); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("await should stop with the context: %v", err)
	}
}
