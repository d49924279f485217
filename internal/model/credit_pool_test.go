package model

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestPoolQueryMatches(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	base := CreditPool{OwnerID: "u1", OrganizationID: "o1", Status: PoolPaid, CreditsTotal: 5}
	q := PoolQuery{OwnerID: "u1", OrganizationID: "o1", Now: now}

	cases := []struct {
		name string
		edit func(p *CreditPool)
		q    PoolQuery
		want bool
	}{
		{"paid never expires", func(p *CreditPool) {}, q, true},
		{"future expiry", func(p *CreditPool) { p.ExpiresAt = &future }, q, true},
		{"past expiry", func(p *CreditPool) { p.ExpiresAt = &past }, q, false},
		{"expiry equal to now", func(p *CreditPool) { p.ExpiresAt = &now }, q, false},
		{"pending", func(p *CreditPool) { p.Status = PoolPending }, q, false},
		{"void", func(p *CreditPool) { p.Status = PoolVoid }, q, false},
		{"other owner", func(p *CreditPool) { p.OwnerID = "u2" }, q, false},
		{"other organization", func(p *CreditPool) { p.OrganizationID = "o2" }, q, false},
		{"full pool still matches", func(p *CreditPool) { p.CreditsUsed = 5 }, q, true},
		{"product required and matching", func(p *CreditPool) { p.ProductID = strPtr("prod") },
			PoolQuery{OwnerID: "u1", OrganizationID: "o1", ProductID: strPtr("prod"), Now: now}, true},
		{"product required and unrestricted pool", func(p *CreditPool) {},
			PoolQuery{OwnerID: "u1", OrganizationID: "o1", ProductID: strPtr("prod"), Now: now}, false},
		{"product required and other product", func(p *CreditPool) { p.ProductID = strPtr("other") },
			PoolQuery{OwnerID: "u1", OrganizationID: "o1", ProductID: strPtr("prod"), Now: now}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.edit(&p)
			if got := tc.q.Matches(p); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	p := CreditPool{CreditsTotal: 5, CreditsUsed: 3}
	if p.Remaining() != 2 || !p.HasCapacity() {
		t.Fatalf("unexpected remaining %d", p.Remaining())
	}
	p.CreditsUsed = 5
	if p.Remaining() != 0 || p.HasCapacity() {
		t.Fatal("full pool must not have capacity")
	}
}
