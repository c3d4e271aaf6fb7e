// Package membership holds the subscription tiers and the bid and
// commission rules attached to them.
package membership

import (
	"math"
	"strings"
)

type Tier string

const (
	Free     Tier = "free"
	Basic    Tier = "basic"
	Pro      Tier = "pro"
	Business Tier = "business"
)

// Unlimited marks a plan without a monthly bid cap.
const Unlimited = -1

type Plan struct {
	Tier           Tier    `json:"tier"`
	Name           string  `json:"name"`
	MonthlyBids    int     `json:"monthlyBids"`
	CommissionRate float64 `json:"commissionRate"`
	MonthlyPrice   float64 `json:"monthlyPrice"`
}

var plans = []Plan{
	{Tier: Free, Name: "Free", MonthlyBids: 10, CommissionRate: 0.10, MonthlyPrice: 0},
	{Tier: Basic, Name: "Basic", MonthlyBids: 30, CommissionRate: 0.08, MonthlyPrice: 9.99},
	{Tier: Pro, Name: "Pro", MonthlyBids: 100, CommissionRate: 0.05, MonthlyPrice: 29.99},
	{Tier: Business, Name: "Business", MonthlyBids: Unlimited, CommissionRate: 0.03, MonthlyPrice: 79.99},
}

// Plans returns every plan, cheapest first.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// Lookup returns the plan for tier. Unknown or empty tiers get the free plan.
func Lookup(tier string) Plan {
	t := Tier(strings.ToLower(strings.TrimSpace(tier)))
	for _, p := range plans {
		if p.Tier == t {
			return p
		}
	}
	return plans[0]
}

// BidsRemaining is how many applications the plan still allows this month,
// or Unlimited.
func (p Plan) BidsRemaining(used int) int {
	if p.MonthlyBids == Unlimited {
		return Unlimited
	}
	if used >= p.MonthlyBids {
		return 0
	}
	return p.MonthlyBids - used
}

func (p Plan) CanBid(used int) bool {
	return p.BidsRemaining(used) != 0
}

// Commission is the platform fee on amount, rounded to cents.
func (p Plan) Commission(amount float64) float64 {
	return math.Round(amount*p.CommissionRate*100) / 100
}

// Usage reports a user's plan together with this month's consumption.
type Usage struct {
	Plan          Plan `json:"plan"`
	BidsUsed      int  `json:"bidsUsed"`
	BidsRemaining int  `json:"bidsRemaining"`
}

func (p Plan) Usage(used int) Usage {
	return Usage{Plan: p, BidsUsed: used, BidsRemaining: p.BidsRemaining(used)}
}
